// Package ws serves the game over websockets: a JSON hello handshake, then
// intents in and rendered message frames out.
package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/message"
	"github.com/cory-johannsen/tileworld/internal/game/room"
	"github.com/cory-johannsen/tileworld/internal/game/tilemap"
	"github.com/cory-johannsen/tileworld/internal/gameserver"
)

// Codec errors.
var (
	ErrEmptyFrame    = errors.New("frame names no intent")
	ErrAmbiguous     = errors.New("frame names more than one intent")
	ErrNotSerialized = errors.New("message kind is never sent to clients")
)

// Hello is the first client frame.
type Hello struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// ClientFrame is any client frame. Exactly one field is set.
type ClientFrame struct {
	Hello      *Hello  `json:"hello,omitempty"`
	Move       *string `json:"move,omitempty"`
	MenuOption *string `json:"menu_option,omitempty"`
	Text       *string `json:"text,omitempty"`
}

// DecodeClientFrame parses one client frame.
func DecodeClientFrame(data []byte) (ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return ClientFrame{}, fmt.Errorf("decoding client frame: %w", err)
	}
	n := 0
	for _, set := range []bool{f.Hello != nil, f.Move != nil, f.MenuOption != nil, f.Text != nil} {
		if set {
			n++
		}
	}
	switch n {
	case 0:
		return ClientFrame{}, ErrEmptyFrame
	case 1:
		return f, nil
	default:
		return ClientFrame{}, ErrAmbiguous
	}
}

// Intent converts a non-hello frame into a gameserver intent.
//
// Postcondition: ok is false for a hello frame.
func (f ClientFrame) Intent() (in gameserver.Intent, ok bool) {
	switch {
	case f.Move != nil:
		return gameserver.Intent{Kind: gameserver.IntentMove, Value: *f.Move}, true
	case f.MenuOption != nil:
		return gameserver.Intent{Kind: gameserver.IntentMenuOption, Value: *f.MenuOption}, true
	case f.Text != nil:
		return gameserver.Intent{Kind: gameserver.IntentText, Value: *f.Text}, true
	}
	return gameserver.Intent{}, false
}

// Frame types the server sends besides message kinds.
const (
	TypeWelcome = "welcome"
	TypeError   = "error"
)

// ServerFrame is one server-to-client frame. Type is a message.Kind or one
// of TypeWelcome and TypeError.
type ServerFrame struct {
	Type        string              `json:"type"`
	ClientID    string              `json:"client_id,omitempty"`
	Room        string              `json:"room,omitempty"`
	Layers      [][][]tilemap.Layer `json:"layers,omitempty"`
	Music       string              `json:"music,omitempty"`
	Description string              `json:"description,omitempty"`
	Speaker     string              `json:"speaker,omitempty"`
	From        string              `json:"from,omitempty"`
	Text        string              `json:"text,omitempty"`
	Style       string              `json:"style,omitempty"`
	Title       string              `json:"title,omitempty"`
	Options     []string            `json:"options,omitempty"`
	Sound       string              `json:"sound,omitempty"`
}

// RoomFinder resolves room names.
type RoomFinder interface {
	GetRoom(name string) (*room.Room, bool)
}

// Encoder renders messages into frames. Redraws snapshot the room the
// recipient stands in at encode time, with image ids mapped to render ids.
type Encoder struct {
	Rooms      RoomFinder
	Footprints *footprint.Registry
}

// Encode renders msg.
//
// Postcondition: Returns ErrNotSerialized for travel requests and an error
// when a redraw's room cannot be resolved.
func (e Encoder) Encode(msg message.Message) (ServerFrame, error) {
	f := ServerFrame{Type: string(msg.Kind())}
	switch m := msg.(type) {
	case message.Redraw:
		rm, err := e.roomOf(m.To)
		if err != nil {
			return ServerFrame{}, err
		}
		view := rm.Snapshot()
		f.Room = view.Name
		f.Layers = e.renderIDs(view.Layers)
		f.Music = view.Music
		if m.WithDescription {
			f.Description = view.Description
		}
	case message.Notice:
		f.Text = m.Text
	case message.Dialogue:
		f.Speaker = senderName(m.Speaker)
		f.Text = m.Text
		f.Style = m.Style
	case message.Menu:
		f.Speaker = senderName(m.Source)
		f.Title = m.Title
		f.Options = m.Options
	case message.Sound:
		f.Sound = m.SoundID
	case message.Chat:
		f.From = senderName(m.From)
		f.Text = m.Text
	default:
		return ServerFrame{}, fmt.Errorf("%s: %w", msg.Kind(), ErrNotSerialized)
	}
	return f, nil
}

func (e Encoder) roomOf(to message.Recipient) (*room.Room, error) {
	if rm, ok := to.(*room.Room); ok {
		return rm, nil
	}
	located, ok := to.(interface{ RoomName() string })
	if !ok {
		return nil, fmt.Errorf("redraw for %T without a room", to)
	}
	rm, ok := e.Rooms.GetRoom(located.RoomName())
	if !ok {
		return nil, fmt.Errorf("redraw for %s: unknown room %q", to.RecipientName(), located.RoomName())
	}
	return rm, nil
}

func (e Encoder) renderIDs(layers [][][]tilemap.Layer) [][][]tilemap.Layer {
	if e.Footprints == nil {
		return layers
	}
	for _, row := range layers {
		for _, cell := range row {
			for i := range cell {
				cell[i].ImageID = e.Footprints.RenderID(cell[i].ImageID)
			}
		}
	}
	return layers
}

func senderName(s message.Sender) string {
	if s == nil {
		return ""
	}
	return s.Name()
}
