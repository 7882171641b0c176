package hub

import (
	"context"
	"sync"

	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/shared"
)

// OutboxCapacity bounds the answers queued for one connection.
const OutboxCapacity = 100

// Outbox is the bounded fan-in queue of one connection's answers.
type Outbox struct {
	ch   chan models.Answer
	done chan struct{}
	once sync.Once
}

// NewOutbox creates an Outbox holding up to capacity answers.
func NewOutbox(capacity int) *Outbox {
	if capacity <= 0 {
		capacity = OutboxCapacity
	}
	return &Outbox{
		ch:   make(chan models.Answer, capacity),
		done: make(chan struct{}),
	}
}

// Send queues answer, blocking while the outbox is full. It returns
// [shared.ErrOutboxClosed] once the outbox is closed.
func (o *Outbox) Send(ctx context.Context, answer models.Answer) error {
	select {
	case <-o.done:
		return shared.ErrOutboxClosed
	default:
	}

	select {
	case o.ch <- answer:
		return nil
	case <-o.done:
		return shared.ErrOutboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further sends and wakes blocked senders. Safe to call more than once.
func (o *Outbox) Close() {
	o.once.Do(func() { close(o.done) })
}

// Done is closed when the outbox is.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}

// Answers is the receive side of the queue.
func (o *Outbox) Answers() <-chan models.Answer {
	return o.ch
}
