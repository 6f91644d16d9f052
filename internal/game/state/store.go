// Package state provides the opaque key-value state attached to players and
// rooms. Values are JSON documents; backends only store bytes.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Store persists JSON values under (scope, key).
type Store interface {
	// Get returns the value for key in scope; ok is false if absent.
	Get(ctx context.Context, scope, key string) (value json.RawMessage, ok bool, err error)
	// Set stores value, replacing any previous value.
	Set(ctx context.Context, scope, key string, value json.RawMessage) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, scope, key string) error
	// Keys lists the keys present in scope in ascending order.
	Keys(ctx context.Context, scope string) ([]string, error)
}

// PlayerScope returns the scope holding a player's state.
func PlayerScope(name string) string { return "player:" + name }

// RoomScope returns the scope holding a room's state.
func RoomScope(name string) string { return "room:" + name }

// Bucket is a Store bound to one scope.
type Bucket struct {
	store Store
	scope string
}

// NewBucket binds store to scope.
func NewBucket(store Store, scope string) Bucket {
	return Bucket{store: store, scope: scope}
}

// Scope returns the bound scope.
func (b Bucket) Scope() string { return b.scope }

// Raw returns the stored JSON for key.
func (b Bucket) Raw(ctx context.Context, key string) (json.RawMessage, bool, error) {
	return b.store.Get(ctx, b.scope, key)
}

// SetRaw stores JSON for key.
func (b Bucket) SetRaw(ctx context.Context, key string, value json.RawMessage) error {
	return b.store.Set(ctx, b.scope, key, value)
}

// Delete removes key.
func (b Bucket) Delete(ctx context.Context, key string) error {
	return b.store.Delete(ctx, b.scope, key)
}

// Keys lists the bucket's keys.
func (b Bucket) Keys(ctx context.Context) ([]string, error) {
	return b.store.Keys(ctx, b.scope)
}

// Load decodes key into a T, returning def when the key is absent.
func Load[T any](ctx context.Context, b Bucket, key string, def T) (T, error) {
	raw, ok, err := b.Raw(ctx, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, fmt.Errorf("decoding %s/%s: %w", b.scope, key, err)
	}
	return v, nil
}

// Save encodes v under key.
func Save[T any](ctx context.Context, b Bucket, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", b.scope, key, err)
	}
	return b.SetRaw(ctx, key, raw)
}

// Incr adds one to an integer counter and returns the new value.
func Incr(ctx context.Context, b Bucket, key string) (int, error) {
	n, err := Load(ctx, b, key, 0)
	if err != nil {
		return 0, err
	}
	n++
	return n, Save(ctx, b, key, n)
}

// MemoryStore is an in-process Store. All methods are safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	scopes map[string]map[string]json.RawMessage
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scopes: make(map[string]map[string]json.RawMessage)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, scope, key string) (json.RawMessage, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.scopes[scope][key]
	if !ok {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), v...), true, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, scope, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %s/%s is not valid JSON", scope, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scopes[scope]
	if !ok {
		s = make(map[string]json.RawMessage)
		m.scopes[scope] = s
	}
	s[key] = append(json.RawMessage(nil), value...)
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scopes[scope], key)
	return nil
}

// Keys implements Store.
func (m *MemoryStore) Keys(_ context.Context, scope string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.scopes[scope]))
	for k := range m.scopes[scope] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
