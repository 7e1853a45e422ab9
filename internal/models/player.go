package models

// Role is the hidden allegiance of a player. It stays RoleUnassigned until the session starts.
type Role string

const (
	RoleUnassigned Role = ""
	RoleHuman      Role = "human"
	RoleTheThing   Role = "the_thing"
)

// Player is one seat in a session. Seat order in the roster is turn order.
type Player struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Hand     []Card `json:"hand"`
}

// NewPlayer returns a freshly joined player with no role and an empty hand.
func NewPlayer(username string) *Player {
	return &Player{
		Username: username,
		Role:     RoleUnassigned,
		Hand:     []Card{},
	}
}

// HandIndex returns the index of the first card in hand with the given name, or -1.
func (p *Player) HandIndex(name string) int {
	for i, c := range p.Hand {
		if c.Name == name {
			return i
		}
	}
	return -1
}
