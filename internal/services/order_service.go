package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"warung/internal/apperrors"
	"warung/internal/models"
	"warung/internal/notifier"
	"warung/internal/repositories"
)

// Outcome is an admin's verdict on a submitted payment proof.
type Outcome string

const (
	OutcomeAccept Outcome = "accept"
	OutcomeReject Outcome = "reject"
)

// AdminChecker resolves whether a user ID belongs to an admin.
type AdminChecker interface {
	IsAdmin(userID string) bool
}

// EventPublisher is the subset of the RabbitMQ client used for order
// lifecycle events.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// DefaultProofTimeout is how long a buyer has to submit payment proof
// before the order is auto-rejected.
const DefaultProofTimeout = 60 * time.Second

const defaultInstructions = "Payment instructions are not configured. Contact an admin."

// OrderService orchestrates the order flow: product selection, checkout with
// pessimistic stock reservation, proof submission, the expiry timer, and the
// admin decision. All state transitions go through the registry's Transition,
// so the timer, the buyer and the admin compete through one arbitration point.
type OrderService struct {
	registry     repositories.OrderRegistry
	productRepo  repositories.ProductRepository
	notifier     notifier.AdminNotifier
	admins       AdminChecker
	events       EventPublisher // optional; nil disables event publishing
	proofTimeout time.Duration
	instructions string

	selMu      sync.Mutex
	selections map[string]string // buyer ID -> selected product ID

	timerMu sync.Mutex
	timers  map[int64]*time.Timer
}

// OrderServiceConfig carries the policy values for the order flow.
type OrderServiceConfig struct {
	// ProofTimeout defaults to DefaultProofTimeout when zero.
	ProofTimeout time.Duration
	// Instructions is the payment-instructions text returned by checkout.
	Instructions string
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	registry repositories.OrderRegistry,
	productRepo repositories.ProductRepository,
	adminNotifier notifier.AdminNotifier,
	admins AdminChecker,
	events EventPublisher,
	cfg OrderServiceConfig,
) *OrderService {
	if cfg.ProofTimeout <= 0 {
		cfg.ProofTimeout = DefaultProofTimeout
	}
	if cfg.Instructions == "" {
		cfg.Instructions = defaultInstructions
	}
	return &OrderService{
		registry:     registry,
		productRepo:  productRepo,
		notifier:     adminNotifier,
		admins:       admins,
		events:       events,
		proofTimeout: cfg.ProofTimeout,
		instructions: cfg.Instructions,
		selections:   make(map[string]string),
		timers:       make(map[int64]*time.Timer),
	}
}

// Select records the buyer's product choice. Any previous selection for the
// buyer is overwritten. Stock is not touched until checkout.
func (s *OrderService) Select(buyerID, productID string) (*models.Product, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product.Stock <= 0 {
		return nil, fmt.Errorf("product %s is out of stock: %w", productID, apperrors.ErrInsufficientStock)
	}

	s.selMu.Lock()
	s.selections[buyerID] = productID
	s.selMu.Unlock()

	view := product.BuyerView()
	return &view, nil
}

// Checkout turns the buyer's selection into an order in AwaitingProof state.
// Stock is reserved (decremented) immediately so the product cannot be
// oversold while payment is pending. The selection is cleared and the expiry
// timer starts. Returns the order and the payment instructions.
func (s *OrderService) Checkout(buyerID string, quantity int) (*models.Order, string, error) {
	if quantity < 1 {
		return nil, "", fmt.Errorf("quantity must be at least 1: %w", apperrors.ErrInsufficientStock)
	}

	s.selMu.Lock()
	productID, ok := s.selections[buyerID]
	s.selMu.Unlock()
	if !ok {
		return nil, "", fmt.Errorf("buyer %s: %w", buyerID, apperrors.ErrNoSelection)
	}

	// A buyer resolves their pending order (or lets it expire) before
	// starting another. This early check fails cheaply without touching
	// stock; the registry re-checks atomically at Create, which is what
	// stops two racing checkouts for the same buyer.
	if pending, ok := s.registry.ActiveByBuyer(buyerID); ok {
		return nil, "", fmt.Errorf("buyer %s already has pending order %d: %w",
			buyerID, pending.ID, apperrors.ErrInvalidState)
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, "", err
	}

	if err := s.productRepo.Reserve(productID, quantity); err != nil {
		return nil, "", err
	}

	order := &models.Order{
		BuyerID:     buyerID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.Price, // snapshot; later price changes don't apply
		Status:      models.StatusAwaitingProof,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.registry.Create(order); err != nil {
		if relErr := s.productRepo.Release(productID, quantity); relErr != nil {
			log.Printf("Failed to release stock after registry error for product %s: %v", productID, relErr)
		}
		return nil, "", fmt.Errorf("failed to register order: %w", err)
	}

	s.selMu.Lock()
	delete(s.selections, buyerID)
	s.selMu.Unlock()

	s.startExpiryTimer(order.ID)
	s.publishEvent("order.created", order)

	if err := s.notifier.NotifyOrderCreated(order); err != nil {
		log.Printf("Warning: failed to notify admins about order %d: %v", order.ID, err)
	}

	return order, s.instructions, nil
}

// SubmitProof attaches payment evidence to the order and moves it to
// UnderReview. The expiry timer is stopped best-effort; if the timer already
// fired, the transition fails with ErrInvalidState and nothing changes.
func (s *OrderService) SubmitProof(orderID int64, buyerID, proofRef string) (*models.Order, error) {
	order, err := s.registry.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, fmt.Errorf("order %d belongs to another buyer: %w", orderID, apperrors.ErrForbidden)
	}

	updated, err := s.registry.Transition(orderID, models.StatusAwaitingProof, models.StatusUnderReview,
		func(o *models.Order) {
			now := time.Now().UTC()
			o.ProofRef = proofRef
			o.ProofSubmittedAt = &now
		})
	if err != nil {
		return nil, err
	}

	// Once proof is in, the order waits on the admin, not the timer.
	// Cancellation is best-effort: the fire-time status check is the
	// authoritative guard.
	s.stopExpiryTimer(orderID)
	s.publishEvent("order.review", updated)

	if err := s.notifier.NotifyReview(updated); err != nil {
		log.Printf("Warning: failed to notify admins for review of order %d: %v", orderID, err)
	}

	return updated, nil
}

// Decide applies an admin's verdict to an order under review. Accept settles
// the sale and releases the delivery payload to the buyer; reject returns the
// reserved stock. Returns the updated order and, on acceptance, the payload.
func (s *OrderService) Decide(orderID int64, adminID string, outcome Outcome) (*models.Order, string, error) {
	if !s.admins.IsAdmin(adminID) {
		return nil, "", fmt.Errorf("user %s is not an admin: %w", adminID, apperrors.ErrUnauthorized)
	}

	target := models.StatusAccepted
	if outcome == OutcomeReject {
		target = models.StatusRejected
	} else if outcome != OutcomeAccept {
		return nil, "", fmt.Errorf("unknown outcome %q: %w", outcome, apperrors.ErrInvalidArgument)
	}

	updated, err := s.registry.Transition(orderID, models.StatusUnderReview, target,
		func(o *models.Order) {
			now := time.Now().UTC()
			o.DecidedBy = adminID
			o.DecidedAt = &now
		})
	if err != nil {
		return nil, "", err
	}

	var delivery string
	switch target {
	case models.StatusAccepted:
		// Sale finalized: the reservation becomes a permanent decrement.
		delivery = s.deliveryPayload(updated.ProductID)
	case models.StatusRejected:
		s.releaseReservation(updated)
	}

	s.publishEvent("order.decided", updated)

	if err := s.notifier.NotifyDecision(updated, delivery); err != nil {
		log.Printf("Warning: failed to notify buyer about order %d decision: %v", orderID, err)
	}

	return updated, delivery, nil
}

// GetOrder returns the order if the requester owns it or is an admin.
func (s *OrderService) GetOrder(orderID int64, requesterID string) (*models.Order, error) {
	order, err := s.registry.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != requesterID && !s.admins.IsAdmin(requesterID) {
		return nil, fmt.Errorf("order %d belongs to another buyer: %w", orderID, apperrors.ErrForbidden)
	}
	return order, nil
}

// GetAllOrders returns every order, active and settled.
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	return s.registry.GetAll()
}

// expire is the timer path: auto-reject an order whose payment window passed.
// It competes with SubmitProof and Decide through the registry transition; if
// the order already left AwaitingProof, this is a no-op.
func (s *OrderService) expire(orderID int64) {
	updated, err := s.registry.Transition(orderID, models.StatusAwaitingProof, models.StatusExpired,
		func(o *models.Order) {
			now := time.Now().UTC()
			o.DecidedAt = &now
		})
	if err != nil {
		// Proof arrived or a decision landed first; the reservation is
		// owned by whichever path won.
		return
	}

	s.releaseReservation(updated)
	s.publishEvent("order.expired", updated)

	if err := s.notifier.NotifyExpiry(updated); err != nil {
		log.Printf("Warning: failed to notify buyer about expired order %d: %v", orderID, err)
	}
}

// releaseReservation returns the reserved quantity to the product. Called
// exactly once per order, by the goroutine that won the terminal transition.
func (s *OrderService) releaseReservation(order *models.Order) {
	if err := s.productRepo.Release(order.ProductID, order.Quantity); err != nil {
		log.Printf("Failed to release stock for order %d (product %s): %v",
			order.ID, order.ProductID, err)
	}
}

func (s *OrderService) deliveryPayload(productID string) string {
	product, err := s.productRepo.GetByID(productID)
	if err != nil || product.Delivery == "" {
		if err != nil {
			log.Printf("Failed to load delivery payload for product %s: %v", productID, err)
		}
		return "The admin will send your product details shortly."
	}
	return product.Delivery
}

func (s *OrderService) startExpiryTimer(orderID int64) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	s.timers[orderID] = time.AfterFunc(s.proofTimeout, func() {
		s.timerMu.Lock()
		delete(s.timers, orderID)
		s.timerMu.Unlock()
		s.expire(orderID)
	})
}

func (s *OrderService) stopExpiryTimer(orderID int64) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if t, ok := s.timers[orderID]; ok {
		t.Stop()
		delete(s.timers, orderID)
	}
}

func (s *OrderService) publishEvent(routingKey string, order *models.Order) {
	if s.events == nil {
		return
	}
	body, err := json.Marshal(order)
	if err != nil {
		log.Printf("Failed to marshal order %d for event %s: %v", order.ID, routingKey, err)
		return
	}
	if err := s.events.Publish(routingKey, body); err != nil {
		log.Printf("Warning: failed to publish %s event for order %d: %v", routingKey, order.ID, err)
	}
}
