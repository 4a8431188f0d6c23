package consumer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopmesh/fulfillment/internal/models"
	"github.com/shopmesh/fulfillment/internal/stream"
)

func createdMessage(orderID string, items []models.OrderItem) stream.Message {
	evt := models.OrderEvent{
		Type:    models.TypeOrderCreated,
		OrderID: orderID,
		UserID:  "user-1",
		Items:   items,
	}
	values := make(map[string]string)
	for k, v := range evt.Values() {
		values[k] = v.(string)
	}
	return stream.Message{ID: "1-0", Stream: "stream:orders:created", Values: values}
}

func TestPrecheckSufficientStockAcksQuietly(t *testing.T) {
	stock := newFakeStockStore(map[int]int{1: 5})
	events := newFakeInventoryEvents()
	callback := newFakeStatusCallback()
	c := NewPrecheckConsumer(stock, events, callback)

	msg := createdMessage("o-1", []models.OrderItem{{ProductID: 1, Qty: 2}})
	if err := c.Handle(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stock.stockOf(1) != 5 {
		t.Error("pre-check must never mutate stock")
	}
	if len(events.outOfStock) != 0 || len(callback.statuses) != 0 {
		t.Error("sufficient stock must produce no side effects")
	}
}

func TestPrecheckInsufficientStockNotifies(t *testing.T) {
	stock := newFakeStockStore(map[int]int{1: 1})
	events := newFakeInventoryEvents()
	callback := newFakeStatusCallback()
	c := NewPrecheckConsumer(stock, events, callback)

	msg := createdMessage("o-1", []models.OrderItem{{ProductID: 1, Qty: 2}})
	if err := c.Handle(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reason, ok := events.outOfStock["o-1"]
	if !ok {
		t.Fatal("expected inventory.out_of_stock publish")
	}
	if !strings.Contains(reason, "product 1") {
		t.Errorf("expected reason to name the short product, got %q", reason)
	}
	if callback.statuses["o-1"] != models.StatusOutOfStock {
		t.Errorf("expected OUT_OF_STOCK callback, got %q", callback.statuses["o-1"])
	}
	if stock.stockOf(1) != 1 {
		t.Error("pre-check must never mutate stock")
	}
}

func TestPrecheckReportsFirstShortItemInSequence(t *testing.T) {
	stock := newFakeStockStore(map[int]int{1: 0, 2: 0})
	events := newFakeInventoryEvents()
	c := NewPrecheckConsumer(stock, events, newFakeStatusCallback())

	// Item order decides which shortage is reported.
	msg := createdMessage("o-1", []models.OrderItem{
		{ProductID: 2, Qty: 1},
		{ProductID: 1, Qty: 1},
	})
	if err := c.Handle(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(events.outOfStock["o-1"], "product 2") {
		t.Errorf("expected first item in sequence to be reported, got %q", events.outOfStock["o-1"])
	}
}

func TestPrecheckCallbackFailureIsRetryable(t *testing.T) {
	stock := newFakeStockStore(map[int]int{1: 0})
	callback := newFakeStatusCallback()
	callback.err = errors.New("order service unreachable")
	c := NewPrecheckConsumer(stock, newFakeInventoryEvents(), callback)

	msg := createdMessage("o-1", []models.OrderItem{{ProductID: 1, Qty: 1}})
	err := c.Handle(context.Background(), msg)
	if err == nil {
		t.Fatal("expected an error")
	}
	if stream.IsPermanent(err) {
		t.Fatal("callback failures must stay retryable")
	}
}

func TestPrecheckMalformedMessageIsPermanent(t *testing.T) {
	c := NewPrecheckConsumer(newFakeStockStore(nil), newFakeInventoryEvents(), newFakeStatusCallback())

	msg := stream.Message{ID: "1-0", Values: map[string]string{"items": "nope"}}
	if err := c.Handle(context.Background(), msg); !stream.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}
