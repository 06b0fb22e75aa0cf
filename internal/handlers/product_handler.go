package handlers

import (
	"fmt"
	"log"

	"warung/internal/models"
	"warung/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service  *services.CatalogService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.CatalogService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/mine", h.HandleMyProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleListProducts retrieves the catalog, optionally filtered with ?q=.
// Non-admin callers get the buyer view without delivery payloads.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	keyword := c.Query("q")
	products, err := h.service.ListProducts(keyword)
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return errorResponse(c, "Could not retrieve products", err)
	}

	if isAdmin, _ := c.Locals("is_admin").(bool); !isAdmin {
		for i := range products {
			products[i] = products[i].BuyerView()
		}
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	productID := c.Params("id")
	product, err := h.service.GetProduct(productID)
	if err != nil {
		log.Printf("Error getting product by ID %s: %v", productID, err)
		return errorResponse(c, fmt.Sprintf("Could not retrieve product %s", productID), err)
	}

	if isAdmin, _ := c.Locals("is_admin").(bool); !isAdmin {
		view := product.BuyerView()
		return c.JSON(view)
	}
	return c.JSON(product)
}

// HandleMyProducts retrieves the products listed by the calling admin.
func (h *ProductHandler) HandleMyProducts(c *fiber.Ctx) error {
	if isAdmin, _ := c.Locals("is_admin").(bool); !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "This action is for admins only",
		})
	}
	sellerID, _ := c.Locals("user_id").(string)
	products, err := h.service.GetProductsBySeller(sellerID)
	if err != nil {
		log.Printf("Error getting products for seller %s: %v", sellerID, err)
		return errorResponse(c, "Could not retrieve your products", err)
	}
	return c.JSON(products)
}

// HandleCreateProduct lists a new product for sale (the /sell command).
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	if isAdmin, _ := c.Locals("is_admin").(bool); !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "This action is for admins only",
		})
	}
	sellerID, _ := c.Locals("user_id").(string)

	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		log.Printf("Error parsing product request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(product); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	if err := h.service.CreateProduct(&product, sellerID); err != nil {
		log.Printf("Error creating product: %v", err)
		return errorResponse(c, "Could not create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleDeleteProduct removes a product. Only its owner may do so.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if isAdmin, _ := c.Locals("is_admin").(bool); !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "This action is for admins only",
		})
	}
	sellerID, _ := c.Locals("user_id").(string)
	productID := c.Params("id")

	if err := h.service.DeleteProduct(productID, sellerID); err != nil {
		log.Printf("Error deleting product %s: %v", productID, err)
		return errorResponse(c, fmt.Sprintf("Could not delete product %s", productID), err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Product %s deleted", productID),
	})
}
