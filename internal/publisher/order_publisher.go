package publisher

import (
	"context"
	"time"

	"github.com/shopmesh/fulfillment/internal/models"
	"github.com/shopmesh/fulfillment/internal/stream"
)

// Stream keys for every topic in the saga.
const (
	OrderCreatedStream        = "stream:orders:created"
	OrderConfirmedStream      = "stream:orders:confirmed"
	PaymentConfirmedStream    = "stream:payments:confirmed"
	InventoryReservedStream   = "stream:inventory:reserved"
	InventoryOutOfStockStream = "stream:inventory:out_of_stock"
	InventoryDLQStream        = "stream:inventory:dlq"
	PaymentsDLQStream         = "stream:payments:dlq"
)

// OrderPublisher emits the order-service side of the saga: order.created on
// creation and order.confirmed after payment finalization.
type OrderPublisher struct {
	broker stream.Broker
}

func NewOrderPublisher(broker stream.Broker) *OrderPublisher {
	return &OrderPublisher{broker: broker}
}

// PublishOrderCreated announces a freshly persisted order.
func (p *OrderPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	evt := models.OrderEvent{
		Type:    models.TypeOrderCreated,
		OrderID: order.ExternalID,
		UserID:  order.UserID,
		Items:   order.Items,
		Amount:  order.Amount,
		TS:      time.Now().UnixMilli(),
	}
	_, err := p.broker.Publish(ctx, OrderCreatedStream, evt.Values())
	return err
}

// PublishOrderConfirmed tells downstream (reservation commit, notification)
// that the order is finalized.
func (p *OrderPublisher) PublishOrderConfirmed(ctx context.Context, evt models.OrderEvent) error {
	evt.Type = models.TypeOrderConfirmed
	if evt.TS == 0 {
		evt.TS = time.Now().UnixMilli()
	}
	_, err := p.broker.Publish(ctx, OrderConfirmedStream, evt.Values())
	return err
}
