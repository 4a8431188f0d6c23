package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopmesh/fulfillment/internal/models"
	"github.com/shopmesh/fulfillment/internal/stream"
)

func paymentMessage(orderID string) stream.Message {
	evt := models.OrderEvent{
		Type:    models.TypePaymentConfirmed,
		OrderID: orderID,
		UserID:  "user-1",
		Items:   []models.OrderItem{{ProductID: 1, Qty: 2, Price: 10}},
		Amount:  20,
		TS:      time.Now().UnixMilli(),
	}
	values := make(map[string]string)
	for k, v := range evt.Values() {
		values[k] = v.(string)
	}
	return stream.Message{ID: "1-0", Stream: "stream:payments:confirmed", Values: values}
}

func TestPaymentConfirmsPendingOrder(t *testing.T) {
	orders := newFakeOrderStore()
	orders.Create(&models.Order{ExternalID: "o-1", UserID: "user-1", Amount: 20, Status: models.StatusPending})
	events := &fakeOrderEvents{}
	notifier := &fakeNotifier{}
	c := NewPaymentConsumer(orders, events, notifier)

	if err := c.Handle(context.Background(), paymentMessage("o-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := orders.status("o-1"); got != models.StatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", got)
	}
	if events.confirmedCount() != 1 {
		t.Errorf("expected one order.confirmed publish, got %d", events.confirmedCount())
	}
	if len(notifier.sent) != 1 {
		t.Errorf("expected one notification, got %d", len(notifier.sent))
	}
}

func TestPaymentCreatesMissingOrderAsConfirmed(t *testing.T) {
	orders := newFakeOrderStore()
	events := &fakeOrderEvents{}
	c := NewPaymentConsumer(orders, events, nil)

	if err := c.Handle(context.Background(), paymentMessage("o-ghost")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := orders.status("o-ghost"); got != models.StatusConfirmed {
		t.Errorf("expected order created in CONFIRMED, got %q", got)
	}
	if events.confirmedCount() != 1 {
		t.Errorf("expected one order.confirmed publish, got %d", events.confirmedCount())
	}
}

func TestPaymentDuplicateDeliveryIsNoop(t *testing.T) {
	orders := newFakeOrderStore()
	orders.Create(&models.Order{ExternalID: "o-1", UserID: "user-1", Amount: 20, Status: models.StatusPending})
	events := &fakeOrderEvents{}
	notifier := &fakeNotifier{}
	c := NewPaymentConsumer(orders, events, notifier)

	msg := paymentMessage("o-1")
	for i := 0; i < 2; i++ {
		if err := c.Handle(context.Background(), msg); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i+1, err)
		}
	}

	if events.confirmedCount() != 1 {
		t.Errorf("expected exactly one order.confirmed publish, got %d", events.confirmedCount())
	}
	if len(notifier.sent) != 1 {
		t.Errorf("expected exactly one notification, got %d", len(notifier.sent))
	}
}

func TestPaymentMalformedMessageIsPermanent(t *testing.T) {
	c := NewPaymentConsumer(newFakeOrderStore(), &fakeOrderEvents{}, nil)

	msg := stream.Message{ID: "1-0", Values: map[string]string{"type": models.TypePaymentConfirmed}}
	err := c.Handle(context.Background(), msg)
	if !stream.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if !errors.Is(err, models.ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
}

func TestPaymentStoreFailureIsRetryable(t *testing.T) {
	orders := newFakeOrderStore()
	orders.err = errors.New("connection refused")
	c := NewPaymentConsumer(orders, &fakeOrderEvents{}, nil)

	err := c.Handle(context.Background(), paymentMessage("o-1"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if stream.IsPermanent(err) {
		t.Fatal("store failures must stay retryable")
	}
}

func TestPaymentNotificationFailureDoesNotFailSaga(t *testing.T) {
	orders := newFakeOrderStore()
	orders.Create(&models.Order{ExternalID: "o-1", Status: models.StatusPending})
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	c := NewPaymentConsumer(orders, &fakeOrderEvents{}, notifier)

	if err := c.Handle(context.Background(), paymentMessage("o-1")); err != nil {
		t.Fatalf("notification failure must not propagate, got %v", err)
	}
}
