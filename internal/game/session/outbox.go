// Package session tracks connected clients and queues the messages bound
// for each of them.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cory-johannsen/tileworld/internal/game/message"
)

// Outbox errors.
var (
	ErrOutboxClosed = errors.New("outbox closed")
	ErrOutboxFull   = errors.New("outbox full")
)

// Outbox is a bounded queue of messages waiting to be written to one client.
type Outbox struct {
	owner  string
	queue  chan message.Message
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox holding at most size messages.
//
// Precondition: owner must be non-empty.
// Postcondition: A non-positive size is treated as 64.
func NewOutbox(owner string, size int) *Outbox {
	if size <= 0 {
		size = 64
	}
	return &Outbox{
		owner: owner,
		queue: make(chan message.Message, size),
	}
}

// Push enqueues msg without blocking.
//
// Postcondition: Returns ErrOutboxFull or ErrOutboxClosed when msg was not queued.
func (o *Outbox) Push(msg message.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("client %s: %w", o.owner, ErrOutboxClosed)
	}
	select {
	case o.queue <- msg:
		return nil
	default:
		return fmt.Errorf("client %s: %w", o.owner, ErrOutboxFull)
	}
}

// Messages returns the receive side of the queue. It is closed by Close.
func (o *Outbox) Messages() <-chan message.Message {
	return o.queue
}

// Close closes the queue. It is idempotent.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
}

// Closed reports whether Close has been called.
func (o *Outbox) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
