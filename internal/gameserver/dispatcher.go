// Package gameserver drives the simulation: it ticks every room, routes the
// resulting messages to connected clients, and turns client intents into
// room operations.
package gameserver

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tileworld/internal/game/message"
	"github.com/cory-johannsen/tileworld/internal/game/object"
	"github.com/cory-johannsen/tileworld/internal/game/room"
	"github.com/cory-johannsen/tileworld/internal/game/world"
)

// Sink receives messages addressed to a single human client.
type Sink interface {
	Deliver(h object.Human, msg message.Message) bool
}

// Dispatcher runs the tick loop and fans messages out to clients.
//
// Invariant: rooms are ticked in load order, once per interval, and a tick's
// messages are delivered before the next tick starts.
type Dispatcher struct {
	logger   *zap.Logger
	world    *world.Manager
	sink     Sink
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDispatcher returns a Dispatcher that ticks every interval.
//
// Precondition: interval must be > 0; logger, w, and sink must be non-nil.
func NewDispatcher(logger *zap.Logger, w *world.Manager, sink Sink, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		panic("gameserver.NewDispatcher: interval must be > 0")
	}
	return &Dispatcher{
		logger:   logger.Named("dispatcher"),
		world:    w,
		sink:     sink,
		interval: interval,
	}
}

// Start runs the tick loop until ctx is cancelled or Stop is called.
//
// Postcondition: Returns nil on a clean stop.
func (d *Dispatcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		cancel()
		return errors.New("dispatcher already running")
	}
	d.cancel, d.done = cancel, done
	d.mu.Unlock()
	defer close(done)

	d.logger.Info("tick loop started", zap.Duration("interval", d.interval), zap.Int("rooms", d.world.RoomCount()))
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("tick loop stopped")
			return nil
		case <-ticker.C:
			d.Tick()
		}
	}
}

// Stop cancels the tick loop and waits for it to exit or ctx to end.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick updates every room once and delivers what they produced.
func (d *Dispatcher) Tick() {
	for _, r := range d.world.Rooms() {
		d.Deliver(r.Tick())
	}
}

// Deliver routes each message in order. A room recipient fans out to the
// room's current clients; a human recipient goes to its session; anything
// else is dropped. Travel requests are resolved in place and their
// resulting messages delivered before the next message in msgs.
func (d *Dispatcher) Deliver(msgs []message.Message) {
	for _, msg := range msgs {
		if tr, ok := msg.(message.Travel); ok {
			out, err := d.world.Resolve(tr)
			if err != nil {
				d.logger.Warn("travel failed",
					zap.String("traveller", tr.Traveler.RecipientName()),
					zap.String("to", tr.ToRoom),
					zap.Error(err),
				)
			}
			d.Deliver(out)
			continue
		}
		switch to := msg.Recipient().(type) {
		case *room.Room:
			for _, c := range to.Clients() {
				d.sink.Deliver(c, msg)
			}
		case object.Human:
			d.sink.Deliver(to, msg)
		default:
			d.logger.Debug("dropping message without a client recipient",
				zap.String("kind", string(msg.Kind())),
			)
		}
	}
}
