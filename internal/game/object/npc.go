package object

import (
	"sync"

	"github.com/cory-johannsen/tileworld/internal/game/message"
)

// NPCConfig configures an NPC.
type NPCConfig struct {
	// Name is shown as the dialogue speaker.
	Name string
	// Sprite selects the character image set.
	Sprite string
	// EncounterText is spoken once when a player comes within StaringDistance.
	EncounterText string
	// StaringDistance is the Chebyshev radius that triggers the encounter; 0 disables it.
	StaringDistance int
	// Lines are spoken, in turn, when a player interacts.
	Lines []string
	// Chatter is announced to the whole room every ChatterEvery ticks.
	Chatter      []string
	ChatterEvery int
}

// NPC is an impassable computer-controlled character that reacts to nearby
// player movement and may chatter on its own every few ticks.
type NPC struct {
	Character
	cfg NPCConfig

	mu      sync.Mutex
	greeted map[string]bool
	line    int
	chatter int
	ticks   int
}

// NewNPC creates an NPC.
func NewNPC(cfg NPCConfig) *NPC {
	if cfg.Sprite == "" {
		cfg.Sprite = "npc"
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Sprite
	}
	n := &NPC{
		cfg:     cfg,
		greeted: make(map[string]bool),
	}
	n.init(cfg.Sprite, cfg.Name, false)
	return n
}

// PlayerLeft implements LeaveObserver.
func (n *NPC) PlayerLeft(actor Human) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.greeted, actor.ClientID())
}

// PlayerMoved implements MoveObserver.
func (n *NPC) PlayerMoved(actor MapObject) []message.Message {
	if n.cfg.StaringDistance <= 0 || n.cfg.EncounterText == "" || !IsHuman(actor) {
		return nil
	}
	key := actor.(Human).ClientID()
	near := n.Position().Chebyshev(actor.Position()) <= n.cfg.StaringDistance

	n.mu.Lock()
	defer n.mu.Unlock()
	if !near {
		delete(n.greeted, key)
		return nil
	}
	if n.greeted[key] {
		return nil
	}
	n.greeted[key] = true
	return []message.Message{message.Dialogue{Speaker: n, To: actor, Text: n.cfg.EncounterText, Style: "npc"}}
}

// Interacted implements Interactable.
func (n *NPC) Interacted(actor MapObject) []message.Message {
	text := n.cfg.EncounterText
	n.mu.Lock()
	if len(n.cfg.Lines) > 0 {
		text = n.cfg.Lines[n.line%len(n.cfg.Lines)]
		n.line++
	}
	n.mu.Unlock()
	if text == "" {
		return nil
	}
	return []message.Message{message.Dialogue{Speaker: n, To: actor, Text: text, Style: "npc"}}
}

// Update implements Ticker.
func (n *NPC) Update() []message.Message {
	if n.cfg.ChatterEvery <= 0 || len(n.cfg.Chatter) == 0 {
		return nil
	}
	room := n.Room()
	if room == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ticks++
	if n.ticks%n.cfg.ChatterEvery != 0 {
		return nil
	}
	text := n.cfg.Chatter[n.chatter%len(n.cfg.Chatter)]
	n.chatter++
	return []message.Message{message.Dialogue{Speaker: n, To: room, Text: text, Style: "npc"}}
}
