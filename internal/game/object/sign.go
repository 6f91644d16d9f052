package object

import (
	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/message"
)

// Sign shows its text as dialogue when interacted with.
type Sign struct {
	Base
	text *SharedText
}

// NewSign creates a sign with fixed text.
func NewSign(reg *footprint.Registry, image, text string) (*Sign, error) {
	return NewBoard(reg, image, NewSharedText(text))
}

// NewBoard creates a sign whose text is read from a shared handle.
func NewBoard(reg *footprint.Registry, image string, text *SharedText) (*Sign, error) {
	if image == "" {
		image = "sign"
	}
	b, err := resolveBase(reg, "tile/ext_decor/"+image, false, ZDefault)
	if err != nil {
		return nil, err
	}
	return &Sign{Base: b, text: text}, nil
}

// Text returns the text currently shown.
func (s *Sign) Text() string {
	return s.text.Get()
}

// Interacted implements Interactable.
func (s *Sign) Interacted(actor MapObject) []message.Message {
	return []message.Message{message.Dialogue{Speaker: s, To: actor, Text: s.text.Get(), Style: "sign"}}
}
