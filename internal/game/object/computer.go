package object

import (
	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/message"
)

// MenuOption maps a menu label to the chat command it runs.
type MenuOption struct {
	Label   string
	Command string
}

// Computer opens a menu for the interacting player.
type Computer struct {
	Base
	title   string
	options []MenuOption
}

// NewComputer creates a computer offering options under title.
func NewComputer(reg *footprint.Registry, title string, options []MenuOption) (*Computer, error) {
	b, err := newUtility(reg, "computer", false)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = "Select an option"
	}
	return &Computer{Base: b, title: title, options: append([]MenuOption(nil), options...)}, nil
}

// Labels returns the menu labels in declaration order.
func (c *Computer) Labels() []string {
	out := make([]string, len(c.options))
	for i, o := range c.options {
		out[i] = o.Label
	}
	return out
}

// Option resolves a menu label to the command it runs.
func (c *Computer) Option(label string) (string, bool) {
	for _, o := range c.options {
		if o.Label == label {
			return o.Command, true
		}
	}
	return "", false
}

// Interacted implements Interactable.
func (c *Computer) Interacted(actor MapObject) []message.Message {
	p, ok := actor.(*Player)
	if !ok {
		return nil
	}
	p.OpenMenu(c)
	return []message.Message{message.Menu{Source: c, To: actor, Title: c.title, Options: c.Labels()}}
}

// Counter is impassable furniture that forwards interaction to an NPC
// standing behind it.
type Counter struct {
	Base
	clerk Interactable
}

// NewCounter creates a counter of the given colour attended by clerk.
func NewCounter(reg *footprint.Registry, colour string, clerk Interactable) (*Counter, error) {
	b, err := resolveBase(reg, "tile/int_decor/counter_"+colour, false, ZDefault)
	if err != nil {
		return nil, err
	}
	return &Counter{Base: b, clerk: clerk}, nil
}

// Interacted implements Interactable.
func (c *Counter) Interacted(actor MapObject) []message.Message {
	if c.clerk == nil {
		return nil
	}
	return c.clerk.Interacted(actor)
}
