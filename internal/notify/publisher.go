package notify

import (
	"encoding/json"
	"fmt"

	"github.com/shopmesh/fulfillment/internal/messaging"
	"github.com/shopmesh/fulfillment/internal/models"
)

// Queue is the RabbitMQ queue the notification service consumes.
const Queue = "notifications"

// Notification is the JSON payload delivered to the notification sink.
type Notification struct {
	Type    string  `json:"type"`
	OrderID string  `json:"orderId"`
	UserID  string  `json:"userId"`
	Amount  float64 `json:"amount"`
}

// Publisher pushes notifications onto the queue. Callers treat failures as
// log-and-continue; notification delivery never gates the saga.
type Publisher struct {
	mq *messaging.RabbitMQ
}

func NewPublisher(mq *messaging.RabbitMQ) (*Publisher, error) {
	if err := mq.DeclareQueue(Queue); err != nil {
		return nil, err
	}
	return &Publisher{mq: mq}, nil
}

// OrderConfirmed announces a finalized order to the notification sink.
func (p *Publisher) OrderConfirmed(orderID, userID string, amount float64) error {
	n := Notification{
		Type:    models.TypeOrderConfirmed,
		OrderID: orderID,
		UserID:  userID,
		Amount:  amount,
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	return p.mq.Publish(Queue, data)
}
