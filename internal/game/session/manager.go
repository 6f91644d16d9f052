package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tileworld/internal/game/message"
	"github.com/cory-johannsen/tileworld/internal/game/object"
)

// Manager errors.
var (
	ErrNameTaken       = errors.New("player name already connected")
	ErrSessionNotFound = errors.New("session not found")
)

// Session is one connected client and the player it controls.
type Session struct {
	ID     uuid.UUID
	Player *object.Player
	Outbox *Outbox
}

// Manager tracks all active sessions. All methods are safe for concurrent use.
type Manager struct {
	logger     *zap.Logger
	outboxSize int

	mu     sync.RWMutex
	byID   map[string]*Session // client id → session
	byName map[string]*Session // player name → session
}

// NewManager creates an empty Manager whose sessions queue up to outboxSize
// messages each.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger, outboxSize int) *Manager {
	return &Manager{
		logger:     logger.Named("sessions"),
		outboxSize: outboxSize,
		byID:       make(map[string]*Session),
		byName:     make(map[string]*Session),
	}
}

// Connect registers a new client playing as name.
//
// Precondition: name must be non-empty.
// Postcondition: Returns the session with a fresh uuid, or ErrNameTaken if a
// connected client already plays as name.
func (m *Manager) Connect(name, email string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byName[name]; taken {
		return nil, fmt.Errorf("%q: %w", name, ErrNameTaken)
	}
	id := uuid.New()
	sess := &Session{
		ID:     id,
		Player: object.NewPlayer(id.String(), name, email),
		Outbox: NewOutbox(id.String(), m.outboxSize),
	}
	m.byID[id.String()] = sess
	m.byName[name] = sess
	m.logger.Info("client connected", zap.String("client", id.String()), zap.String("player", name))
	return sess, nil
}

// Disconnect removes a session and closes its outbox.
//
// Postcondition: Returns ErrSessionNotFound if id is not connected.
func (m *Manager) Disconnect(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.byID[id.String()]
	if !ok {
		return fmt.Errorf("client %s: %w", id, ErrSessionNotFound)
	}
	delete(m.byID, id.String())
	delete(m.byName, sess.Player.Name())
	sess.Outbox.Close()
	m.logger.Info("client disconnected", zap.String("client", id.String()), zap.String("player", sess.Player.Name()))
	return nil
}

// Get returns the session for a client id.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.byID[id.String()]
	return sess, ok
}

// ByName returns the session playing as name.
func (m *Manager) ByName(name string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.byName[name]
	return sess, ok
}

// Sessions returns all sessions ordered by player name.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Player.Name() < out[j].Player.Name() })
	return out
}

// Count returns the number of connected clients.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Deliver queues msg for the client controlling h. A full or closed outbox
// drops msg and logs an error; an unknown client drops msg silently.
//
// Postcondition: Returns true if msg was queued.
func (m *Manager) Deliver(h object.Human, msg message.Message) bool {
	m.mu.RLock()
	sess, ok := m.byID[h.ClientID()]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	if err := sess.Outbox.Push(msg); err != nil {
		m.logger.Error("dropping message",
			zap.String("player", h.Name()),
			zap.String("kind", string(msg.Kind())),
			zap.Error(err),
		)
		return false
	}
	return true
}
