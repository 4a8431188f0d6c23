package stream

import (
	"context"
	"fmt"
	"log"
	"time"
)

// HandlerFunc processes one delivered message. Returning nil means the work
// is done (or was already done — duplicate deliveries are a no-op, not an
// error). Returning an error routes the message through the retry policy;
// wrap with Permanent to skip retries and dead-letter immediately.
type HandlerFunc func(ctx context.Context, msg Message) error

// Consumer runs one long-lived consumption loop against a stream/group pair.
// Messages are processed strictly one at a time: read, handle, record a
// terminal outcome, acknowledge, then read again.
type Consumer struct {
	Broker  Broker
	Stream  string
	Group   string
	Name    string
	Handler HandlerFunc
	Retry   RetryPolicy
	Block   time.Duration
}

// Start supervises the loop in its own goroutine: a panic or loop error is
// logged and the loop restarted after a short pause, until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	go func() {
		for {
			if err := c.runOnce(ctx); err != nil {
				log.Printf("❌ Consumer %s on %s stopped: %v", c.Name, c.Stream, err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}()
}

func (c *Consumer) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("consumer panic: %v", r)
		}
	}()

	if err := c.Broker.EnsureGroup(ctx, c.Stream, c.Group); err != nil {
		return err
	}
	log.Printf("👂 Consumer %s listening on %s as %s", c.Name, c.Stream, c.Group)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := c.Poll(ctx); err != nil {
			return err
		}
	}
}

// Poll performs one read-and-process cycle and returns how many messages it
// handled. A blocking-read timeout counts as zero messages, not an error.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	messages, err := c.Broker.ReadGroup(ctx, c.Stream, c.Group, c.Name, c.Block)
	if err != nil {
		return 0, err
	}

	for _, msg := range messages {
		c.process(ctx, msg)
	}
	return len(messages), nil
}

func (c *Consumer) process(ctx context.Context, msg Message) {
	if err := c.Handler(ctx, msg); err != nil {
		log.Printf("⚠️ Processing %s on %s failed: %v", msg.ID, c.Stream, err)
		if rerr := c.Retry.Handle(ctx, c.Broker, msg, err); rerr != nil {
			// No terminal outcome recorded: leave the delivery pending so
			// the broker redelivers it.
			log.Printf("❌ Retry handling for %s failed: %v", msg.ID, rerr)
			return
		}
	}

	if err := c.Broker.Ack(ctx, c.Stream, c.Group, msg.ID); err != nil {
		// Equivalent to never succeeding: the entry stays pending until the
		// idle-claim sweep picks it up.
		log.Printf("❌ Ack %s on %s failed: %v", msg.ID, c.Stream, err)
	}
}
