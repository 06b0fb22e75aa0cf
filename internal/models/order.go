package models

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	// StatusAwaitingProof is the initial state: the buyer checked out and
	// has a bounded window to submit payment proof.
	StatusAwaitingProof OrderStatus = "awaiting_proof"
	// StatusUnderReview means proof was submitted and an admin decision is pending.
	StatusUnderReview OrderStatus = "under_review"
	// StatusAccepted, StatusRejected and StatusExpired are terminal.
	StatusAccepted OrderStatus = "accepted"
	StatusRejected OrderStatus = "rejected"
	StatusExpired  OrderStatus = "expired"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusAwaitingProof: {StatusUnderReview: true, StatusExpired: true},
	StatusUnderReview:   {StatusAccepted: true, StatusRejected: true},
	StatusAccepted:      {},
	StatusRejected:      {},
	StatusExpired:       {},
}

// CanTransition reports whether the order state machine allows from -> to.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// IsTerminal reports whether no further transition can leave the status.
func (s OrderStatus) IsTerminal() bool {
	return len(validNext[s]) == 0
}

// Order represents a buyer's order for a single product.
type Order struct {
	ID          int64  `json:"id"`
	BuyerID     string `json:"buyer_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	// UnitPrice is snapshotted at checkout; later catalog price changes
	// do not affect the order.
	UnitPrice        int         `json:"unit_price"`
	Status           OrderStatus `json:"status"`
	ProofRef         string      `json:"proof_ref,omitempty"`
	DecidedBy        string      `json:"decided_by,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	ProofSubmittedAt *time.Time  `json:"proof_submitted_at,omitempty"`
	DecidedAt        *time.Time  `json:"decided_at,omitempty"`
}

// Total returns the amount due for the order.
func (o *Order) Total() int {
	return o.UnitPrice * o.Quantity
}
