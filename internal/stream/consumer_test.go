package stream_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopmesh/fulfillment/internal/stream"
	"github.com/shopmesh/fulfillment/internal/stream/streamtest"
)

const (
	testStream = "stream:test"
	testGroup  = "cg:test"
	testDLQ    = "stream:test:dlq"
)

func newConsumer(broker stream.Broker, handler stream.HandlerFunc) *stream.Consumer {
	return &stream.Consumer{
		Broker:  broker,
		Stream:  testStream,
		Group:   testGroup,
		Name:    "test-1",
		Handler: handler,
		Retry:   stream.RetryPolicy{MaxRetries: stream.DefaultMaxRetries, DLQ: testDLQ},
	}
}

// drain polls until the stream has no undelivered entries left.
func drain(t *testing.T, c *stream.Consumer) {
	t.Helper()
	ctx := context.Background()
	for {
		n, err := c.Poll(ctx)
		if err != nil {
			t.Fatalf("poll failed: %v", err)
		}
		if n == 0 {
			return
		}
	}
}

func TestConsumerAcksOnSuccess(t *testing.T) {
	broker := streamtest.NewMemoryBroker()
	ctx := context.Background()

	var handled []string
	c := newConsumer(broker, func(_ context.Context, msg stream.Message) error {
		handled = append(handled, msg.Values["orderId"])
		return nil
	})

	broker.Publish(ctx, testStream, map[string]interface{}{"orderId": "o-1"})
	drain(t, c)

	if len(handled) != 1 || handled[0] != "o-1" {
		t.Fatalf("expected one handled message, got %v", handled)
	}
	if n := broker.PendingCount(testStream, testGroup); n != 0 {
		t.Errorf("expected empty pending list, got %d", n)
	}
}

func TestConsumerRetriesThenDeadLetters(t *testing.T) {
	broker := streamtest.NewMemoryBroker()
	ctx := context.Background()

	failures := 0
	c := newConsumer(broker, func(_ context.Context, msg stream.Message) error {
		failures++
		return errors.New("transaction aborted")
	})

	broker.Publish(ctx, testStream, map[string]interface{}{"orderId": "o-1"})
	drain(t, c)

	// Original delivery plus one re-enqueue per retry.
	if failures != stream.DefaultMaxRetries+1 {
		t.Errorf("expected %d processing attempts, got %d", stream.DefaultMaxRetries+1, failures)
	}

	// Each re-enqueue carries an incremented attempt counter.
	entries := broker.Messages(testStream)
	if len(entries) != stream.DefaultMaxRetries+1 {
		t.Fatalf("expected %d entries on origin stream, got %d", stream.DefaultMaxRetries+1, len(entries))
	}
	for i, msg := range entries {
		if got := stream.Attempt(msg); got != i {
			t.Errorf("entry %d: expected attempt %d, got %d", i, i, got)
		}
	}

	dlq := broker.Messages(testDLQ)
	if len(dlq) != 1 {
		t.Fatalf("expected exactly one dead-lettered message, got %d", len(dlq))
	}
	if got := stream.Attempt(dlq[0]); got != stream.DefaultMaxRetries {
		t.Errorf("expected attempt %d at dead-letter time, got %d", stream.DefaultMaxRetries, got)
	}
	if dlq[0].Values["error"] != "transaction aborted" {
		t.Errorf("expected error context on DLQ entry, got %q", dlq[0].Values["error"])
	}
	if dlq[0].Values["originalId"] == "" {
		t.Error("expected originalId on DLQ entry")
	}
	if dlq[0].Values["orderId"] != "o-1" {
		t.Error("expected original fields carried onto DLQ entry")
	}

	// Every delivery got a terminal outcome and was acked.
	if n := broker.PendingCount(testStream, testGroup); n != 0 {
		t.Errorf("expected empty pending list after dead-lettering, got %d", n)
	}
}

func TestConsumerDeadLettersPermanentErrorImmediately(t *testing.T) {
	broker := streamtest.NewMemoryBroker()
	ctx := context.Background()

	attempts := 0
	c := newConsumer(broker, func(_ context.Context, msg stream.Message) error {
		attempts++
		return stream.Permanent(fmt.Errorf("undecodable payload"))
	})

	broker.Publish(ctx, testStream, map[string]interface{}{"garbage": "yes"})
	drain(t, c)

	if attempts != 1 {
		t.Errorf("expected a single attempt for a permanent failure, got %d", attempts)
	}
	if len(broker.Messages(testStream)) != 1 {
		t.Error("permanent failures must not be re-enqueued")
	}
	if len(broker.Messages(testDLQ)) != 1 {
		t.Error("expected the message on the dead-letter stream")
	}
}

func TestConsumerLeavesDeliveryPendingWhenOutcomeUnrecordable(t *testing.T) {
	broker := streamtest.NewMemoryBroker()
	ctx := context.Background()

	c := newConsumer(broker, func(_ context.Context, msg stream.Message) error {
		return errors.New("boom")
	})

	broker.Publish(ctx, testStream, map[string]interface{}{"orderId": "o-1"})
	broker.PublishErr = errors.New("broker down")

	if _, err := c.Poll(ctx); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	// The re-enqueue failed, so no terminal outcome exists and the delivery
	// must stay pending for redelivery.
	if n := broker.PendingCount(testStream, testGroup); n != 1 {
		t.Errorf("expected delivery to remain pending, got %d pending", n)
	}
}

func TestAttempt(t *testing.T) {
	if got := stream.Attempt(stream.Message{Values: map[string]string{}}); got != 0 {
		t.Errorf("missing counter should read as 0, got %d", got)
	}
	if got := stream.Attempt(stream.Message{Values: map[string]string{"attempt": "2"}}); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	if got := stream.Attempt(stream.Message{Values: map[string]string{"attempt": "junk"}}); got != 0 {
		t.Errorf("unparsable counter should read as 0, got %d", got)
	}
}
