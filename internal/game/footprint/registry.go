// Package footprint resolves a visual kind to the number of grid cells it
// occupies. Sizes come from an asset provider and are memoized per kind.
package footprint

import (
	"errors"
	"fmt"
	"sync"
)

// ErrMalformed is returned when a provider reports non-positive dimensions.
var ErrMalformed = errors.New("malformed footprint geometry")

// Size is the rows×cols extent of a kind's footprint.
type Size struct {
	Rows int
	Cols int
}

// Cells returns the number of grid cells covered.
func (s Size) Cells() int {
	return s.Rows * s.Cols
}

// Provider is the asset/geometry collaborator.
type Provider interface {
	// Footprint returns the rows and cols covered by kind.
	Footprint(kind string) (rows, cols int, err error)
	// RenderID returns the opaque identifier sent to clients for kind.
	RenderID(kind string) string
}

// Registry memoizes Provider lookups. Kinds are never redefined once resolved.
// All methods are safe for concurrent use.
type Registry struct {
	provider Provider
	mu       sync.RWMutex
	sizes    map[string]Size
}

// NewRegistry creates a Registry backed by provider.
//
// Precondition: provider must be non-nil.
func NewRegistry(provider Provider) *Registry {
	return &Registry{
		provider: provider,
		sizes:    make(map[string]Size),
	}
}

// Resolve returns the footprint size for kind, consulting the provider only on
// the first call for that kind.
//
// Postcondition: Returns a Size with Rows, Cols >= 1, or an error wrapping
// ErrMalformed (or the provider's error). Failed lookups are not cached.
func (r *Registry) Resolve(kind string) (Size, error) {
	r.mu.RLock()
	s, ok := r.sizes[kind]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sizes[kind]; ok {
		return s, nil
	}
	rows, cols, err := r.provider.Footprint(kind)
	if err != nil {
		return Size{}, fmt.Errorf("resolving footprint for %q: %w", kind, err)
	}
	if rows <= 0 || cols <= 0 {
		return Size{}, fmt.Errorf("kind %q reports %dx%d: %w", kind, rows, cols, ErrMalformed)
	}
	s = Size{Rows: rows, Cols: cols}
	r.sizes[kind] = s
	return s, nil
}

// MustResolve is Resolve for process initialization, where a malformed kind
// is fatal.
func (r *Registry) MustResolve(kind string) Size {
	s, err := r.Resolve(kind)
	if err != nil {
		panic(fmt.Sprintf("footprint.MustResolve: %v", err))
	}
	return s
}

// RenderID returns the provider's render id for kind.
func (r *Registry) RenderID(kind string) string {
	return r.provider.RenderID(kind)
}

// Known returns the number of memoized kinds.
func (r *Registry) Known() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sizes)
}
