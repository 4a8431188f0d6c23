package publisher

import (
	"context"
	"time"

	"github.com/shopmesh/fulfillment/internal/models"
	"github.com/shopmesh/fulfillment/internal/stream"
)

// InventoryPublisher emits the inventory-service side of the saga.
type InventoryPublisher struct {
	broker stream.Broker
}

func NewInventoryPublisher(broker stream.Broker) *InventoryPublisher {
	return &InventoryPublisher{broker: broker}
}

// PublishReserved announces a committed stock reservation.
func (p *InventoryPublisher) PublishReserved(ctx context.Context, orderID string, items []models.OrderItem) error {
	evt := models.OrderEvent{
		Type:    models.TypeInventoryReserved,
		OrderID: orderID,
		Items:   items,
		TS:      time.Now().UnixMilli(),
	}
	_, err := p.broker.Publish(ctx, InventoryReservedStream, evt.Values())
	return err
}

// PublishOutOfStock announces a failed pre-payment availability check.
func (p *InventoryPublisher) PublishOutOfStock(ctx context.Context, orderID, reason string) error {
	evt := models.OutOfStockEvent{
		Type:    models.TypeInventoryOutOfStock,
		OrderID: orderID,
		Reason:  reason,
		TS:      time.Now().UnixMilli(),
	}
	_, err := p.broker.Publish(ctx, InventoryOutOfStockStream, evt.Values())
	return err
}
