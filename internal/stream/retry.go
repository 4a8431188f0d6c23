package stream

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"
)

// DefaultMaxRetries bounds how many times a failed message is re-enqueued
// before it graduates to the dead-letter stream.
const DefaultMaxRetries = 3

// RetryPolicy is the cross-cutting failure contract every consumer applies:
// a failed message is re-published to its origin stream with an incremented
// attempt counter while attempts remain, and dead-lettered with its error
// context once the bound is exhausted. Either way the original delivery is
// acknowledged afterwards, so the pending list only ever shrinks for
// messages the pipeline has made a definitive decision on.
type RetryPolicy struct {
	MaxRetries int
	DLQ        string
}

// Attempt extracts the attempt counter from a delivered message. Messages
// that were never retried carry no counter and count as attempt 0.
func Attempt(msg Message) int {
	n, err := strconv.Atoi(msg.Values["attempt"])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Handle records a terminal outcome for a failed message: re-enqueue or
// dead-letter. It returns an error only if that outcome could not be
// published, in which case the caller must not acknowledge the delivery.
func (p RetryPolicy) Handle(ctx context.Context, broker Broker, msg Message, procErr error) error {
	attempt := Attempt(msg)

	if !IsPermanent(procErr) && attempt < p.MaxRetries {
		values := make(map[string]interface{}, len(msg.Values)+1)
		for k, v := range msg.Values {
			values[k] = v
		}
		values["attempt"] = strconv.Itoa(attempt + 1)

		if _, err := broker.Publish(ctx, msg.Stream, values); err != nil {
			return fmt.Errorf("failed to re-enqueue %s: %w", msg.ID, err)
		}
		log.Printf("🔁 Re-enqueued %s on %s (attempt %d): %v", msg.ID, msg.Stream, attempt+1, procErr)
		return nil
	}

	values := make(map[string]interface{}, len(msg.Values)+3)
	for k, v := range msg.Values {
		values[k] = v
	}
	values["originalId"] = msg.ID
	values["error"] = procErr.Error()
	values["ts"] = strconv.FormatInt(time.Now().UnixMilli(), 10)

	if _, err := broker.Publish(ctx, p.DLQ, values); err != nil {
		return fmt.Errorf("failed to dead-letter %s: %w", msg.ID, err)
	}
	log.Printf("💀 Dead-lettered %s from %s after %d attempts: %v", msg.ID, msg.Stream, attempt, procErr)
	return nil
}
