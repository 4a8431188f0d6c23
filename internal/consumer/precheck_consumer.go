package consumer

import (
	"context"
	"fmt"
	"log"

	"github.com/shopmesh/fulfillment/internal/models"
	"github.com/shopmesh/fulfillment/internal/stream"
)

// StockStore is the slice of inventory persistence the saga consumers need.
type StockStore interface {
	CheckAvailability(items []models.OrderItem) (int, error)
	HasReservation(orderExternalID string) (bool, error)
	Reserve(orderExternalID string, items []models.OrderItem) error
}

// InventoryEvents publishes the inventory-service's downstream events.
type InventoryEvents interface {
	PublishReserved(ctx context.Context, orderID string, items []models.OrderItem) error
	PublishOutOfStock(ctx context.Context, orderID, reason string) error
}

// StatusCallback reports an order status change back to the order service
// out-of-band.
type StatusCallback interface {
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) error
}

// PrecheckConsumer fails obviously-unfulfillable orders fast, before payment
// is attempted. It never mutates stock: an order that passes here is
// re-verified at reservation time.
type PrecheckConsumer struct {
	stock  StockStore
	events InventoryEvents
	orders StatusCallback
}

func NewPrecheckConsumer(stock StockStore, events InventoryEvents, orders StatusCallback) *PrecheckConsumer {
	return &PrecheckConsumer{stock: stock, events: events, orders: orders}
}

func (c *PrecheckConsumer) Handle(ctx context.Context, msg stream.Message) error {
	evt, err := models.ParseOrderEvent(msg.Values)
	if err != nil {
		return stream.Permanent(err)
	}

	short, err := c.stock.CheckAvailability(evt.Items)
	if err != nil {
		return err
	}
	if short == 0 {
		log.Printf("✅ Order %s passed pre-payment stock check", evt.OrderID)
		return nil
	}

	reason := fmt.Sprintf("insufficient stock for product %d", short)
	if err := c.events.PublishOutOfStock(ctx, evt.OrderID, reason); err != nil {
		return err
	}
	if err := c.orders.UpdateStatus(ctx, evt.OrderID, models.StatusOutOfStock); err != nil {
		return err
	}

	log.Printf("🚫 Order %s rejected at pre-check: %s", evt.OrderID, reason)
	return nil
}
