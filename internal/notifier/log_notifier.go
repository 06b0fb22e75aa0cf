package notifier

import (
	"log"

	"warung/internal/models"
)

// LogNotifier writes notifications to the process log. Used when no message
// broker is configured, and in tests.
type LogNotifier struct{}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// NotifyOrderCreated logs a new-order notice.
func (n *LogNotifier) NotifyOrderCreated(order *models.Order) error {
	log.Printf("new order %d: %s x%d, total %d, buyer %s",
		order.ID, order.ProductName, order.Quantity, order.Total(), order.BuyerID)
	return nil
}

// NotifyReview logs the admin review prompt.
func (n *LogNotifier) NotifyReview(order *models.Order) error {
	log.Printf("order %d awaiting review: proof %s from buyer %s",
		order.ID, order.ProofRef, order.BuyerID)
	return nil
}

// NotifyDecision logs the decision outcome.
func (n *LogNotifier) NotifyDecision(order *models.Order, delivery string) error {
	log.Printf("order %d decided: %s (buyer %s)", order.ID, order.Status, order.BuyerID)
	if delivery != "" {
		log.Printf("order %d delivery released to buyer %s", order.ID, order.BuyerID)
	}
	return nil
}

// NotifyExpiry logs the auto-reject notice.
func (n *LogNotifier) NotifyExpiry(order *models.Order) error {
	log.Printf("order %d expired: payment window passed for buyer %s", order.ID, order.BuyerID)
	return nil
}
