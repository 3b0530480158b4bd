package entities

import "time"

// Player represents a human participant in one game
type Player struct {
	ID             string    `json:"id"`
	GameID         string    `json:"game_id"`
	Name           string    `json:"name"`
	CharacterName  string    `json:"character_name,omitempty"`
	CharacterIntro string    `json:"character_intro,omitempty"`
	Role           Role      `json:"role,omitempty"`
	Alive          bool      `json:"alive"`
	Connected      bool      `json:"connected"`
	Ready          bool      `json:"ready"`
	VotedFor       string    `json:"voted_for,omitempty"`
	NightAction    string    `json:"night_action,omitempty"`
	JoinedAt       time.Time `json:"joined_at"`
}

// NewPlayer creates a player waiting in the lobby. Character and role are
// assigned when the game starts.
func NewPlayer(id, gameID, name string) *Player {
	return &Player{
		ID:     id,
		GameID: gameID,
		Name:   name,
		Alive:  true,
	}
}

// PublicPlayer is the role-redacted view safe to broadcast to everyone
type PublicPlayer struct {
	ID            string `json:"id"`
	CharacterName string `json:"character_name"`
	Alive         bool   `json:"alive"`
	Connected     bool   `json:"connected"`
	Ready         bool   `json:"ready"`
}

// ToPublic strips everything that would leak a player's role or actions
func (p *Player) ToPublic() *PublicPlayer {
	return &PublicPlayer{
		ID:            p.ID,
		CharacterName: p.CharacterName,
		Alive:         p.Alive,
		Connected:     p.Connected,
		Ready:         p.Ready,
	}
}

// HasNightAction reports whether this player owes a night action while alive
func (p *Player) HasNightAction() bool {
	return p.Alive && p.Role.Capability().HasNightAction
}
