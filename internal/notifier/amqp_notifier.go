package notifier

import (
	"encoding/json"
	"fmt"

	"warung/internal/models"
)

// Publisher is the subset of the RabbitMQ client the notifier needs.
type Publisher interface {
	Publish(routingKey string, body []byte) error
}

// AMQPNotifier publishes notification messages to the orders exchange. The
// chat gateway consumes them and turns them into admin prompts and buyer
// messages.
type AMQPNotifier struct {
	publisher Publisher
}

// NewAMQPNotifier creates a new AMQPNotifier.
func NewAMQPNotifier(publisher Publisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher}
}

type orderMessage struct {
	OrderID     int64  `json:"order_id"`
	BuyerID     string `json:"buyer_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Total       int    `json:"total"`
	Status      string `json:"status"`
	ProofRef    string `json:"proof_ref,omitempty"`
	Delivery    string `json:"delivery,omitempty"`
}

func (n *AMQPNotifier) publish(routingKey string, order *models.Order, delivery string) error {
	msg := orderMessage{
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		ProductID:   order.ProductID,
		ProductName: order.ProductName,
		Quantity:    order.Quantity,
		Total:       order.Total(),
		Status:      string(order.Status),
		ProofRef:    order.ProofRef,
		Delivery:    delivery,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification for order %d: %w", order.ID, err)
	}
	if err := n.publisher.Publish(routingKey, body); err != nil {
		return fmt.Errorf("failed to publish %s for order %d: %w", routingKey, order.ID, err)
	}
	return nil
}

// NotifyOrderCreated publishes an admin heads-up for a fresh order.
func (n *AMQPNotifier) NotifyOrderCreated(order *models.Order) error {
	return n.publish("order.notify.created", order, "")
}

// NotifyReview publishes the accept/reject prompt for admins.
func (n *AMQPNotifier) NotifyReview(order *models.Order) error {
	return n.publish("order.notify.review", order, "")
}

// NotifyDecision publishes the decision outcome for the buyer.
func (n *AMQPNotifier) NotifyDecision(order *models.Order, delivery string) error {
	return n.publish("order.notify.decision", order, delivery)
}

// NotifyExpiry publishes the auto-reject notice for the buyer.
func (n *AMQPNotifier) NotifyExpiry(order *models.Order) error {
	return n.publish("order.notify.expired", order, "")
}
