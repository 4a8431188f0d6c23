package stream

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one delivered stream entry with its fields normalized to
// strings.
type Message struct {
	ID     string
	Stream string
	Values map[string]string
}

// Broker is the append-only log the services coordinate through: publish
// appends, consumer groups keep an independent cursor plus a pending list of
// delivered-but-unacknowledged entries, and stalled deliveries can be
// reclaimed by consumer name after a minimum idle time.
type Broker interface {
	Publish(ctx context.Context, stream string, values map[string]interface{}) (string, error)
	EnsureGroup(ctx context.Context, stream, group string) error
	ReadGroup(ctx context.Context, stream, group, consumer string, block time.Duration) ([]Message, error)
	Ack(ctx context.Context, stream, group, id string) error
	AutoClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration) ([]string, error)
}

// RedisBroker implements Broker on Redis Streams.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(addr string) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("✅ Connected to Redis stream broker")
	return &RedisBroker{client: client}, nil
}

// Publish appends an entry to the stream and returns its id.
func (b *RedisBroker) Publish(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", stream, err)
	}
	return id, nil
}

// EnsureGroup creates the consumer group at the stream tail, creating the
// stream if needed. An already-existing group is not an error.
func (b *RedisBroker) EnsureGroup(ctx context.Context, stream, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create group %s on %s: %w", group, stream, err)
	}
	return nil
}

// ReadGroup blocks up to block for one undelivered entry. A timeout returns
// no messages and no error, so callers simply re-poll.
func (b *RedisBroker) ReadGroup(ctx context.Context, stream, group, consumer string, block time.Duration) ([]Message, error) {
	res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s as %s: %w", stream, group, err)
	}

	var messages []Message
	for _, s := range res {
		for _, m := range s.Messages {
			messages = append(messages, Message{
				ID:     m.ID,
				Stream: s.Stream,
				Values: stringValues(m.Values),
			})
		}
	}
	return messages, nil
}

func (b *RedisBroker) Ack(ctx context.Context, stream, group, id string) error {
	if err := b.client.XAck(ctx, stream, group, id).Err(); err != nil {
		return fmt.Errorf("failed to ack %s on %s: %w", id, stream, err)
	}
	return nil
}

// AutoClaim transfers ownership of pending entries idle longer than minIdle
// to the given consumer and returns their ids. Used by the operational
// stalled-delivery sweep, not by the main loop.
func (b *RedisBroker) AutoClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration) ([]string, error) {
	ids, _, err := b.client.XAutoClaimJustID(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to autoclaim on %s: %w", stream, err)
	}
	return ids, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

func stringValues(values map[string]interface{}) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
