package object

import "sync"

// SharedText is a text cell owned by a room and shared between objects, so
// one object (a pressure plate) can change what another (a board) displays.
type SharedText struct {
	mu   sync.RWMutex
	text string
}

// NewSharedText creates a SharedText holding text.
func NewSharedText(text string) *SharedText {
	return &SharedText{text: text}
}

// Get returns the current text.
func (s *SharedText) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Set replaces the current text.
func (s *SharedText) Set(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
}
