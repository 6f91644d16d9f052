package object

import (
	"sync"

	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/message"
)

// DefaultPlateText is spoken by a pressure plate with no configured text.
const DefaultPlateText = "You stepped on the pressure plate!"

func newUtility(reg *footprint.Registry, image string, passable bool) (Base, error) {
	return resolveBase(reg, "tile/utility/"+image, passable, ZUtility)
}

// PressurePlate speaks its text to whoever steps on it.
type PressurePlate struct {
	Base
	text *SharedText
}

// NewPressurePlate creates a plate reading its text from a shared handle.
func NewPressurePlate(reg *footprint.Registry, text *SharedText) (*PressurePlate, error) {
	b, err := newUtility(reg, "pressure_plate", true)
	if err != nil {
		return nil, err
	}
	if text == nil {
		text = NewSharedText(DefaultPlateText)
	}
	return &PressurePlate{Base: b, text: text}, nil
}

// Entered implements Enterable.
func (p *PressurePlate) Entered(actor MapObject) []message.Message {
	return []message.Message{message.Dialogue{Speaker: p, To: actor, Text: p.text.Get(), Style: "pressure_plate"}}
}

// MusicPlate plays a sound to whoever steps on it.
type MusicPlate struct {
	Base
	sound string
}

// NewMusicPlate creates a plate that plays sound.
func NewMusicPlate(reg *footprint.Registry, sound string) (*MusicPlate, error) {
	b, err := newUtility(reg, "pressure_plate", true)
	if err != nil {
		return nil, err
	}
	return &MusicPlate{Base: b, sound: sound}, nil
}

// Entered implements Enterable.
func (p *MusicPlate) Entered(actor MapObject) []message.Message {
	return []message.Message{message.Sound{To: actor, SoundID: p.sound}}
}

// JukeboxPlate cycles through songs; each step plays the next one and
// publishes its name to a shared handle, typically read by a Board.
type JukeboxPlate struct {
	Base
	songs  []string
	nowOn  *SharedText
	mu     sync.Mutex
	cursor int
}

// NewJukeboxPlate creates a jukebox plate.
//
// Precondition: songs must be non-empty.
func NewJukeboxPlate(reg *footprint.Registry, songs []string, nowOn *SharedText) (*JukeboxPlate, error) {
	b, err := newUtility(reg, "pressure_plate", true)
	if err != nil {
		return nil, err
	}
	if nowOn == nil {
		nowOn = NewSharedText("")
	}
	return &JukeboxPlate{Base: b, songs: append([]string(nil), songs...), nowOn: nowOn}, nil
}

// Entered implements Enterable.
func (p *JukeboxPlate) Entered(actor MapObject) []message.Message {
	if len(p.songs) == 0 {
		return nil
	}
	p.mu.Lock()
	song := p.songs[p.cursor%len(p.songs)]
	p.cursor++
	p.mu.Unlock()

	p.nowOn.Set("Now playing: " + song)
	return []message.Message{message.Sound{To: actor, SoundID: song}}
}
