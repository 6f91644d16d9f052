package object

import "sync"

// Player is a human-controlled character bound to one client session.
type Player struct {
	Character
	clientID string
	email    string
	admin    bool

	mu   sync.Mutex
	menu *Computer
}

// NewPlayer creates an impassable player character.
//
// Precondition: clientID and name must be non-empty.
func NewPlayer(clientID, name, email string) *Player {
	p := &Player{
		clientID: clientID,
		email:    email,
	}
	p.init("player", name, false)
	return p
}

// ClientID implements Human.
func (p *Player) ClientID() string {
	return p.clientID
}

// Email returns the address the player registered with.
func (p *Player) Email() string {
	return p.email
}

// Admin reports whether the player may run admin commands.
func (p *Player) Admin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.admin
}

// SetAdmin grants or revokes admin visibility.
func (p *Player) SetAdmin(admin bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.admin = admin
}

// OpenMenu records the computer whose menu the player is looking at.
func (p *Player) OpenMenu(c *Computer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.menu = c
}

// Menu returns the open menu, or nil.
func (p *Player) Menu() *Computer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.menu
}

// CloseMenu clears the open menu.
func (p *Player) CloseMenu() {
	p.OpenMenu(nil)
}
