package notifier

import "warung/internal/models"

// AdminNotifier delivers order lifecycle messages to the chat gateway, which
// forwards them to admins and buyers. Delivery is best-effort; the order flow
// never fails because a notification could not be sent.
type AdminNotifier interface {
	// NotifyOrderCreated tells admins a new order is awaiting payment.
	NotifyOrderCreated(order *models.Order) error
	// NotifyReview prompts admins to accept or reject the submitted proof.
	NotifyReview(order *models.Order) error
	// NotifyDecision tells the buyer the outcome. On acceptance, delivery
	// carries the product's digital payload.
	NotifyDecision(order *models.Order, delivery string) error
	// NotifyExpiry tells the buyer their order was auto-rejected on timeout.
	NotifyExpiry(order *models.Order) error
}
