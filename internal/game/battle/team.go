package battle

import (
	"fmt"
	"hash/fnv"

	"github.com/cory-johannsen/pokedo/internal/game/moves"
)

// Team is one side of a battle.
//
// Invariant: len(Members) equals the format's team size; Active indexes Members.
type Team struct {
	PlayerID string     `json:"player_id"`
	Members  []*Pokemon `json:"members"`
	Active   int        `json:"active"`
	// MustSwitch is set when the active Pokemon fainted and a replacement is
	// available; only SWITCH or FORFEIT is accepted until it clears.
	MustSwitch bool `json:"must_switch,omitempty"`
}

// NewTeam snapshots the first TeamSize entries of a roster for battleID.
// Generated movesets are seeded from the battle and roster ids, so rebuilding
// the same team for the same battle gives the same moves.
//
// Precondition: pool must be non-nil.
// Postcondition: len(team.Members) == format.TeamSize(); Active == 0.
func NewTeam(battleID, playerID string, format Format, roster []RosterEntry, pool *moves.Pool) (*Team, error) {
	n := format.TeamSize()
	if n == 0 {
		return nil, fmt.Errorf("%w: unknown format", ErrValidation)
	}
	if len(roster) < n {
		return nil, fmt.Errorf("%w: %s format needs %d pokemon, roster has %d", ErrValidation, format, n, len(roster))
	}
	t := &Team{PlayerID: playerID, Members: make([]*Pokemon, 0, n)}
	for _, entry := range roster[:n] {
		p, err := NewPokemon(entry, pool, movesetSeed(battleID, entry.ID))
		if err != nil {
			return nil, err
		}
		t.Members = append(t.Members, p)
	}
	return t, nil
}

func movesetSeed(battleID string, rosterID int64) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s/%d", battleID, rosterID)
	return h.Sum64()
}

// ActivePokemon returns the Pokemon currently in battle.
func (t *Team) ActivePokemon() *Pokemon { return t.Members[t.Active] }

// HasUsable reports whether any member can still battle.
func (t *Team) HasUsable() bool {
	for _, p := range t.Members {
		if !p.IsFainted() {
			return true
		}
	}
	return false
}

// Remaining counts members that can still battle.
func (t *Team) Remaining() int {
	n := 0
	for _, p := range t.Members {
		if !p.IsFainted() {
			n++
		}
	}
	return n
}
