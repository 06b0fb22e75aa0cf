package handlers

import (
	"fmt"
	"log"
	"strconv"

	"warung/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for the order flow.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/select", h.HandleSelect)
	orderRoutes.Post("/checkout", h.HandleCheckout)
	orderRoutes.Post("/:id/proof", h.HandleSubmitProof)
	orderRoutes.Post("/:id/decision", h.HandleDecide)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
}

type selectRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// HandleSelect records the buyer's product choice (the /buy command).
func (h *OrderHandler) HandleSelect(c *fiber.Ctx) error {
	buyerID, _ := c.Locals("user_id").(string)

	var req selectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	product, err := h.service.Select(buyerID, req.ProductID)
	if err != nil {
		log.Printf("Error selecting product %s for buyer %s: %v", req.ProductID, buyerID, err)
		return errorResponse(c, "Could not select product", err)
	}

	return c.JSON(fiber.Map{
		"message": "Product selected. Proceed with checkout.",
		"product": product,
	})
}

type checkoutRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// HandleCheckout creates an order from the buyer's selection and returns the
// payment instructions. The payment window starts now.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	buyerID, _ := c.Locals("user_id").(string)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	order, instructions, err := h.service.Checkout(buyerID, req.Quantity)
	if err != nil {
		log.Printf("Error at checkout for buyer %s: %v", buyerID, err)
		return errorResponse(c, "Checkout failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order":        order,
		"instructions": instructions,
		"message":      fmt.Sprintf("Submit payment proof within the payment window for order %d.", order.ID),
	})
}

type proofRequest struct {
	ProofRef string `json:"proof_ref" validate:"required,max=255"`
}

// HandleSubmitProof attaches payment evidence to an order (the /confirm command).
func (h *OrderHandler) HandleSubmitProof(c *fiber.Ctx) error {
	buyerID, _ := c.Locals("user_id").(string)

	orderID, err := parseOrderID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid order ID",
			"error":   err.Error(),
		})
	}

	var req proofRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	order, err := h.service.SubmitProof(orderID, buyerID, req.ProofRef)
	if err != nil {
		log.Printf("Error submitting proof for order %d: %v", orderID, err)
		return errorResponse(c, "Could not submit payment proof", err)
	}

	return c.JSON(fiber.Map{
		"message": "Payment proof received. Awaiting admin verification.",
		"order":   order,
	})
}

type decisionRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=accept reject"`
}

// HandleDecide applies an admin's accept/reject verdict to an order.
func (h *OrderHandler) HandleDecide(c *fiber.Ctx) error {
	adminID, _ := c.Locals("user_id").(string)

	orderID, err := parseOrderID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid order ID",
			"error":   err.Error(),
		})
	}

	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	order, delivery, err := h.service.Decide(orderID, adminID, services.Outcome(req.Outcome))
	if err != nil {
		log.Printf("Error deciding order %d: %v", orderID, err)
		return errorResponse(c, "Could not apply decision", err)
	}

	resp := fiber.Map{
		"message": fmt.Sprintf("Order %d is now %s.", order.ID, order.Status),
		"order":   order,
	}
	if delivery != "" {
		resp["delivery"] = delivery
	}
	return c.JSON(resp)
}

// HandleGetOrders retrieves all orders. Admin only.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	isAdmin, _ := c.Locals("is_admin").(bool)
	if !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Listing all orders requires admin rights",
		})
	}

	orders, err := h.service.GetAllOrders()
	if err != nil {
		log.Printf("Error getting all orders: %v", err)
		return errorResponse(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order. Buyers see only their own.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	requesterID, _ := c.Locals("user_id").(string)

	orderID, err := parseOrderID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid order ID",
			"error":   err.Error(),
		})
	}

	order, err := h.service.GetOrder(orderID, requesterID)
	if err != nil {
		log.Printf("Error getting order %d: %v", orderID, err)
		return errorResponse(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

func parseOrderID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}
