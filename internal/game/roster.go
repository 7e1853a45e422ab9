package game

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/lacosa/internal/models"
)

// MinPlayers is the smallest roster that can start a session.
const MinPlayers = 3

// ThingCount returns how many players become The Thing in a roster of n.
func ThingCount(n int) int {
	if n >= 6 {
		return 2
	}
	return 1
}

// AddPlayer appends a new unassigned player. Usernames match exactly and case-sensitively.
func AddPlayer(players []*models.Player, username string) ([]*models.Player, error) {
	if strings.TrimSpace(username) == "" {
		return players, ErrInvalidUsername
	}
	if findPlayer(players, username) != nil {
		return players, fmt.Errorf("%w: %q", ErrAlreadyJoined, username)
	}
	return append(players, models.NewPlayer(username)), nil
}

// AssignRoles picks ThingCount distinct seats at random to be The Thing; the rest are Human.
func AssignRoles(rng Source, players []*models.Player) error {
	n := len(players)
	if n < MinPlayers {
		return fmt.Errorf("%w: have %d, need %d", ErrNotEnoughPlayers, n, MinPlayers)
	}

	chosen := make(map[int]bool, ThingCount(n))
	for len(chosen) < ThingCount(n) {
		idx := rng.Intn(n)
		if chosen[idx] {
			continue
		}
		chosen[idx] = true
	}

	for i, p := range players {
		if chosen[i] {
			p.Role = models.RoleTheThing
		} else {
			p.Role = models.RoleHuman
		}
	}
	return nil
}

func findPlayer(players []*models.Player, username string) *models.Player {
	for _, p := range players {
		if p.Username == username {
			return p
		}
	}
	return nil
}
