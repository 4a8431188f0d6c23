// Package streamtest provides an in-memory Broker for package tests.
package streamtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopmesh/fulfillment/internal/stream"
)

type groupState struct {
	cursor  int
	pending map[string]time.Time
}

// MemoryBroker is a stream.Broker backed by in-process slices. ReadGroup
// never blocks: with no undelivered entries it returns immediately with no
// messages, which matches how the loop treats a blocking-read timeout.
type MemoryBroker struct {
	mu      sync.Mutex
	streams map[string][]stream.Message
	groups  map[string]*groupState

	// PublishErr, when set, makes the next Publish fail once.
	PublishErr error
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		streams: make(map[string][]stream.Message),
		groups:  make(map[string]*groupState),
	}
}

func (b *MemoryBroker) Publish(_ context.Context, s string, values map[string]interface{}) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.PublishErr != nil {
		err := b.PublishErr
		b.PublishErr = nil
		return "", err
	}

	flat := make(map[string]string, len(values))
	for k, v := range values {
		flat[k] = fmt.Sprint(v)
	}
	id := fmt.Sprintf("%d-0", len(b.streams[s])+1)
	b.streams[s] = append(b.streams[s], stream.Message{ID: id, Stream: s, Values: flat})
	return id, nil
}

func (b *MemoryBroker) EnsureGroup(_ context.Context, s, group string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureGroup(s, group)
	return nil
}

func (b *MemoryBroker) ReadGroup(_ context.Context, s, group, _ string, _ time.Duration) ([]stream.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g := b.ensureGroup(s, group)
	entries := b.streams[s]
	if g.cursor >= len(entries) {
		return nil, nil
	}
	msg := entries[g.cursor]
	g.cursor++
	g.pending[msg.ID] = time.Now()
	return []stream.Message{msg}, nil
}

func (b *MemoryBroker) Ack(_ context.Context, s, group, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	g := b.ensureGroup(s, group)
	delete(g.pending, id)
	return nil
}

func (b *MemoryBroker) AutoClaim(_ context.Context, s, group, _ string, minIdle time.Duration) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g := b.ensureGroup(s, group)
	var ids []string
	for id, delivered := range g.pending {
		if time.Since(delivered) >= minIdle {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Messages returns a copy of every entry appended to the stream so far.
func (b *MemoryBroker) Messages(s string) []stream.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]stream.Message(nil), b.streams[s]...)
}

// PendingCount reports how many deliveries the group has not acknowledged.
func (b *MemoryBroker) PendingCount(s, group string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ensureGroup(s, group).pending)
}

func (b *MemoryBroker) ensureGroup(s, group string) *groupState {
	key := s + "/" + group
	g, ok := b.groups[key]
	if !ok {
		g = &groupState{pending: make(map[string]time.Time)}
		b.groups[key] = g
	}
	return g
}
