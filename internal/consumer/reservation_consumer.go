package consumer

import (
	"context"
	"errors"
	"log"

	"github.com/shopmesh/fulfillment/internal/models"
	"github.com/shopmesh/fulfillment/internal/stream"
)

// ReservationConsumer commits stock for confirmed orders. The reservation
// row's uniqueness is the idempotency gate: however many times the
// order.confirmed event is delivered, stock is deducted exactly once.
//
// A shortage at this point means money was collected for items that are no
// longer available. There is no automated compensation; the message goes
// through the retry policy and lands in the dead-letter stream, which serves
// as the manual-ops queue.
type ReservationConsumer struct {
	stock  StockStore
	events InventoryEvents
}

func NewReservationConsumer(stock StockStore, events InventoryEvents) *ReservationConsumer {
	return &ReservationConsumer{stock: stock, events: events}
}

func (c *ReservationConsumer) Handle(ctx context.Context, msg stream.Message) error {
	evt, err := models.ParseOrderEvent(msg.Values)
	if err != nil {
		return stream.Permanent(err)
	}

	exists, err := c.stock.HasReservation(evt.OrderID)
	if err != nil {
		return err
	}
	if exists {
		log.Printf("🔁 Order %s already reserved, duplicate delivery ignored", evt.OrderID)
		return nil
	}

	if err := c.stock.Reserve(evt.OrderID, evt.Items); err != nil {
		if errors.Is(err, models.ErrAlreadyReserved) {
			// Lost the insert race to a concurrent consumer: the work is
			// already done.
			log.Printf("🔁 Order %s reserved concurrently, ignoring", evt.OrderID)
			return nil
		}
		return err
	}

	if err := c.events.PublishReserved(ctx, evt.OrderID, evt.Items); err != nil {
		return err
	}

	log.Printf("📦 Order %s reserved, stock committed", evt.OrderID)
	return nil
}
