package notify

import (
	"context"
	"sync"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/observability"
)

// BackendMemory names the in-process broker in hooks and metrics.
const BackendMemory = "memory"

// subscriberBuffer bounds how far a slow subscriber may lag before events
// to it are dropped.
const subscriberBuffer = 64

// Broker is an in-process Notifier and Publisher.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Event
	nextID int
}

// NewBroker returns a broker with no subscribers.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]chan Event)}
}

// Publish delivers ev to every current subscriber of its wall. Subscribers
// whose buffer is full miss the event.
func (b *Broker) Publish(ctx context.Context, ev Event) error {
	if ev.WallID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "event has no wall ID")
	}
	b.mu.Lock()
	for _, ch := range b.subs[ev.WallID] {
		select {
		case ch <- ev:
		default:
		}
	}
	b.mu.Unlock()
	observability.Notify().OnPublish(ctx, BackendMemory, ev.WallID, nil)
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, wallID string, h Handler) error {
	if err := errors.ValidateID("wall", wallID); err != nil {
		return err
	}
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[wallID] == nil {
		b.subs[wallID] = make(map[int]chan Event)
	}
	b.subs[wallID][id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs[wallID], id)
		if len(b.subs[wallID]) == 0 {
			delete(b.subs, wallID)
		}
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ch:
			observability.Notify().OnReceive(ctx, BackendMemory, wallID)
			h(ev)
		}
	}
}

// Subscribers returns the number of active subscriptions on wallID.
func (b *Broker) Subscribers(wallID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[wallID])
}

var (
	_ Notifier  = (*Broker)(nil)
	_ Publisher = (*Broker)(nil)
)
