package repositories

import (
	"warung/internal/models"
)

// OrderRegistry defines the interface for the active-order table. It owns
// order state transitions: Transition is the single arbitration point that
// proof submission, admin decisions and timer expiries all go through, so
// only the first of any racing triggers succeeds.
type OrderRegistry interface {
	// Create stores the order, assigning it the next monotonic ID. It fails
	// with ErrInvalidState if the buyer already has a pending order; the
	// check and the insert are atomic, so concurrent creates for one buyer
	// yield exactly one pending order.
	Create(order *models.Order) error
	GetByID(id int64) (*models.Order, error)
	GetAll() ([]models.Order, error)
	// ActiveByBuyer returns the buyer's pending order (AwaitingProof or
	// UnderReview), if any. A buyer has at most one.
	ActiveByBuyer(buyerID string) (*models.Order, bool)
	// Transition moves the order from one status to another under the
	// per-order lock, applying extra mutations via apply before the status
	// changes. It fails with ErrInvalidState if the order is not currently
	// in from, or if the state machine forbids the move. The updated order
	// is returned on success.
	Transition(id int64, from, to models.OrderStatus, apply func(*models.Order)) (*models.Order, error)
}
