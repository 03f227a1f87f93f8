// Package session tracks connected players and the Ludo tables they sit at.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultOutboxSize is the number of queued messages a player may fall
// behind by before further output is dropped.
const DefaultOutboxSize = 256

// Outbox errors.
var (
	ErrOutboxClosed = errors.New("outbox closed")
	ErrOutboxFull   = errors.New("outbox full")
)

// Outbox queues output for one player. Personal replies and table broadcasts
// share it, so a player sees them in the order they were produced. A single
// writer goroutine drains it to the player's connection.
type Outbox struct {
	owner string
	queue chan []byte

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewOutbox creates an open Outbox for owner holding up to size messages.
// A size below 1 uses DefaultOutboxSize.
func NewOutbox(owner string, size int) *Outbox {
	if size < 1 {
		size = DefaultOutboxSize
	}
	return &Outbox{owner: owner, queue: make(chan []byte, size)}
}

// Push queues data without blocking.
//
// Postcondition: Returns ErrOutboxClosed after Close, or ErrOutboxFull
// (and counts the drop) when the queue is at capacity.
func (o *Outbox) Push(data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("player %s: %w", o.owner, ErrOutboxClosed)
	}
	select {
	case o.queue <- data:
		return nil
	default:
		o.dropped++
		return fmt.Errorf("player %s: %w", o.owner, ErrOutboxFull)
	}
}

// Messages returns the queue for the writer to range over. It is closed by
// Close once everything queued before has been received.
func (o *Outbox) Messages() <-chan []byte {
	return o.queue
}

// Pending returns how many messages are waiting.
func (o *Outbox) Pending() int {
	return len(o.queue)
}

// Dropped returns how many pushes were refused because the queue was full.
func (o *Outbox) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

// Close stops the outbox accepting messages. It is safe to call twice.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
}

// IsClosed reports whether Close has been called.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
