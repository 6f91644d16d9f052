// Package message defines the transport-agnostic outgoing messages produced
// by rooms and objects. Every message has exactly one logical recipient: a
// room (broadcast to its connected clients) or a single human client.
package message

import "github.com/cory-johannsen/tileworld/internal/game/geom"

// Kind identifies a message variant on the wire.
type Kind string

// Message kinds.
const (
	KindRedraw   Kind = "grid"
	KindNotice   Kind = "server"
	KindDialogue Kind = "dialogue"
	KindMenu     Kind = "menu"
	KindSound    Kind = "sound"
	KindChat     Kind = "chat"
	KindTravel   Kind = "travel"
)

// Recipient is anything a message can be addressed to. The dispatcher only
// delivers to rooms and human clients; other recipients are dropped.
type Recipient interface {
	RecipientName() string
}

// Sender is the named origin of a dialogue, menu, or chat line.
type Sender interface {
	Name() string
}

// Message is one outgoing payload.
type Message interface {
	Kind() Kind
	Recipient() Recipient
}

// Redraw asks the recipient to repaint its current room grid.
type Redraw struct {
	To Recipient
	// WithDescription includes the room description, used on arrival.
	WithDescription bool
}

// Notice is a plain server line, used for user-input errors and command output.
type Notice struct {
	To   Recipient
	Text string
}

// Dialogue is speech from an object, rendered with a style tag.
type Dialogue struct {
	Speaker Sender
	To      Recipient
	Text    string
	Style   string
}

// Menu offers a list of options from a source object.
type Menu struct {
	Source  Sender
	To      Recipient
	Title   string
	Options []string
}

// Sound plays an audio id.
type Sound struct {
	To      Recipient
	SoundID string
}

// Chat is a player's free-text line broadcast to a room.
type Chat struct {
	From Sender
	To   Recipient
	Text string
}

// Travel is an internal request to move a human through a door. It is never
// serialized; the dispatcher resolves it in sequence and delivers the
// messages the transfer produces instead.
type Travel struct {
	Traveler Recipient
	ToRoom   string
	Entry    geom.Coord
}

func (m Redraw) Kind() Kind   { return KindRedraw }
func (m Notice) Kind() Kind   { return KindNotice }
func (m Dialogue) Kind() Kind { return KindDialogue }
func (m Menu) Kind() Kind     { return KindMenu }
func (m Sound) Kind() Kind    { return KindSound }
func (m Chat) Kind() Kind     { return KindChat }
func (m Travel) Kind() Kind   { return KindTravel }

func (m Redraw) Recipient() Recipient   { return m.To }
func (m Notice) Recipient() Recipient   { return m.To }
func (m Dialogue) Recipient() Recipient { return m.To }
func (m Menu) Recipient() Recipient     { return m.To }
func (m Sound) Recipient() Recipient    { return m.To }
func (m Chat) Recipient() Recipient     { return m.To }
func (m Travel) Recipient() Recipient   { return m.Traveler }

// Notify is shorthand for a one-element Notice slice.
func Notify(to Recipient, text string) []Message {
	return []Message{Notice{To: to, Text: text}}
}
