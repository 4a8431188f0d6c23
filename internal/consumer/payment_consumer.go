package consumer

import (
	"context"
	"log"
	"time"

	"github.com/shopmesh/fulfillment/internal/models"
	"github.com/shopmesh/fulfillment/internal/stream"
)

// Consumer group names, one independent cursor per pipeline.
const (
	PaymentGroup     = "cg:payments:order-service"
	PrecheckGroup    = "cg:orders:inventory"
	ReservationGroup = "cg:orders:inventory-commit"
)

// OrderStore is the slice of order persistence the payment consumer needs.
type OrderStore interface {
	GetByExternalID(externalID string) (*models.Order, error)
	Create(order *models.Order) error
	UpdateStatusByExternalID(externalID string, status models.OrderStatus) error
}

// OrderEvents publishes the order-service's downstream events.
type OrderEvents interface {
	PublishOrderConfirmed(ctx context.Context, evt models.OrderEvent) error
}

// Notifier is the fire-and-forget notification sink. Failures are logged
// and never fail the saga.
type Notifier interface {
	OrderConfirmed(orderID, userID string, amount float64) error
}

// PaymentConsumer finalizes orders when payment.confirmed arrives. It is
// idempotent on the order's external id: a confirmation for an unknown order
// creates it directly in CONFIRMED (the event may outrun the creation call),
// and a confirmation for an already-CONFIRMED order is a no-op.
type PaymentConsumer struct {
	orders   OrderStore
	events   OrderEvents
	notifier Notifier
}

func NewPaymentConsumer(orders OrderStore, events OrderEvents, notifier Notifier) *PaymentConsumer {
	return &PaymentConsumer{orders: orders, events: events, notifier: notifier}
}

func (c *PaymentConsumer) Handle(ctx context.Context, msg stream.Message) error {
	evt, err := models.ParseOrderEvent(msg.Values)
	if err != nil {
		return stream.Permanent(err)
	}

	existing, err := c.orders.GetByExternalID(evt.OrderID)
	if err != nil {
		return err
	}

	switch {
	case existing == nil:
		order := &models.Order{
			ExternalID: evt.OrderID,
			UserID:     evt.UserID,
			Amount:     evt.Amount,
			Status:     models.StatusConfirmed,
			Items:      evt.Items,
			CreatedAt:  time.Now(),
		}
		// A concurrent delivery may win the insert race; the retried
		// message then observes the CONFIRMED row and no-ops.
		if err := c.orders.Create(order); err != nil {
			return err
		}
		log.Printf("🆕 Order %s created directly in CONFIRMED", evt.OrderID)

	case existing.Status == models.StatusConfirmed:
		log.Printf("🔁 Order %s already CONFIRMED, duplicate delivery ignored", evt.OrderID)
		return nil

	default:
		if err := c.orders.UpdateStatusByExternalID(evt.OrderID, models.StatusConfirmed); err != nil {
			return err
		}
		evt.UserID = orDefault(evt.UserID, existing.UserID)
		if evt.Amount == 0 {
			evt.Amount = existing.Amount
		}
		if len(evt.Items) == 0 {
			evt.Items = existing.Items
		}
		log.Printf("✅ Order %s confirmed", evt.OrderID)
	}

	if err := c.events.PublishOrderConfirmed(ctx, evt); err != nil {
		return err
	}

	if c.notifier != nil {
		if err := c.notifier.OrderConfirmed(evt.OrderID, evt.UserID, evt.Amount); err != nil {
			log.Printf("⚠️ Notification for order %s failed: %v", evt.OrderID, err)
		}
	}

	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
