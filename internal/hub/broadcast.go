package hub

import (
	"context"
	"sync"

	"github.com/desertthunder/yauma/internal/models"
)

// SubscriptionBuffer is the number of requests a subscriber may lag behind before the
// publisher blocks.
const SubscriptionBuffer = 16

// Broadcaster delivers every published request to every subscriber.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   []chan models.Request
	closed bool
}

// NewBroadcaster creates an open Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe returns a channel receiving every request published from now on. The channel is
// closed by [Broadcaster.Close].
func (b *Broadcaster) Subscribe() <-chan models.Request {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.Request, SubscriptionBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers req to every subscriber, blocking while any of them is full.
func (b *Broadcaster) Publish(ctx context.Context, req models.Request) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- req:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close closes every subscription. It must not race with Publish.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
}
