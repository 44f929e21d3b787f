package battle

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/pokedo/internal/game/moves"
	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
)

// RosterEntry is one Pokemon from a trainer's collection as supplied by the
// roster collaborator. It is read once when a team is submitted.
type RosterEntry struct {
	ID        int64          `json:"id" yaml:"id"`
	Species   string         `json:"species" yaml:"species"`
	Nickname  string         `json:"nickname,omitempty" yaml:"nickname,omitempty"`
	Types     []pokemon.Type `json:"types" yaml:"types"`
	Level     int            `json:"level" yaml:"level"`
	Nature    pokemon.Nature `json:"nature" yaml:"nature"`
	BaseStats pokemon.Stats  `json:"base_stats" yaml:"base_stats"`
	IVs       pokemon.Stats  `json:"ivs" yaml:"ivs"`
	EVs       pokemon.Stats  `json:"evs" yaml:"evs"`
	Moves     []string       `json:"moves,omitempty" yaml:"moves,omitempty"`
}

// Validate checks the entry can be turned into a battle snapshot.
func (e RosterEntry) Validate() error {
	if e.Species == "" {
		return fmt.Errorf("%w: roster entry %d has no species", ErrValidation, e.ID)
	}
	if len(e.Types) < 1 || len(e.Types) > 2 {
		return fmt.Errorf("%w: %s must have 1 or 2 types, has %d", ErrValidation, e.Species, len(e.Types))
	}
	for _, t := range e.Types {
		if !t.Valid() {
			return fmt.Errorf("%w: %s has invalid type %s", ErrValidation, e.Species, t)
		}
	}
	if len(e.Types) == 2 && e.Types[0] == e.Types[1] {
		return fmt.Errorf("%w: %s lists type %s twice", ErrValidation, e.Species, e.Types[0])
	}
	if e.Level < pokemon.MinLevel || e.Level > pokemon.MaxLevel {
		return fmt.Errorf("%w: %s level %d out of range", ErrValidation, e.Species, e.Level)
	}
	if e.BaseStats.HP <= 0 {
		return fmt.Errorf("%w: %s has no base HP", ErrValidation, e.Species)
	}
	if err := pokemon.ValidateSpread(e.IVs, e.EVs); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrValidation, e.Species, err)
	}
	if len(e.Moves) > moves.MaxMoves {
		return fmt.Errorf("%w: %s knows %d moves, max %d", ErrValidation, e.Species, len(e.Moves), moves.MaxMoves)
	}
	return nil
}

// MoveSlot is a move plus its remaining PP for one battle.
type MoveSlot struct {
	Move     moves.Move `json:"move"`
	PP       int        `json:"pp"`
	Disabled bool       `json:"disabled,omitempty"`
}

// Usable reports whether the slot can be selected this turn.
func (s MoveSlot) Usable() bool { return s.PP > 0 && !s.Disabled }

// Pokemon is the battle-time snapshot of a roster entry. Later changes to the
// roster never reach it.
//
// Invariant: 0 <= CurrentHP <= MaxHP; len(Moves) <= moves.MaxMoves.
type Pokemon struct {
	RosterID    int64          `json:"roster_id"`
	Species     string         `json:"species"`
	Nickname    string         `json:"nickname,omitempty"`
	Types       []pokemon.Type `json:"types"`
	Level       int            `json:"level"`
	Nature      pokemon.Nature `json:"nature"`
	MaxHP       int            `json:"max_hp"`
	CurrentHP   int            `json:"current_hp"`
	Stats       pokemon.Stats  `json:"stats"`
	Moves       []MoveSlot     `json:"moves"`
	Status      pokemon.Status `json:"status"`
	StatusTurns int            `json:"status_turns,omitempty"`
	Protected   bool           `json:"protected,omitempty"`
	// Fainted is set once the faint has been announced.
	Fainted bool `json:"fainted,omitempty"`
}

// NewPokemon builds a full-HP battle snapshot from a roster entry. Named moves
// are resolved against pool; an entry without moves gets a generated moveset
// derived from seed.
//
// Postcondition: CurrentHP == MaxHP; every slot has full PP; Status is none.
func NewPokemon(entry RosterEntry, pool *moves.Pool, seed uint64) (*Pokemon, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	stats := pokemon.CalcStats(entry.BaseStats, entry.IVs, entry.EVs, entry.Level, entry.Nature)

	var set []moves.Move
	if len(entry.Moves) == 0 {
		set = pool.GenerateMoveset(entry.Types, entry.Level, seed)
	} else {
		for _, name := range entry.Moves {
			m, ok := pool.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s knows unknown move %q", ErrValidation, entry.Species, name)
			}
			if slices.ContainsFunc(set, func(o moves.Move) bool { return o.Name == m.Name }) {
				return nil, fmt.Errorf("%w: %s knows %q twice", ErrValidation, entry.Species, name)
			}
			set = append(set, m)
		}
	}
	slots := make([]MoveSlot, len(set))
	for i, m := range set {
		slots[i] = MoveSlot{Move: m, PP: m.PP}
	}

	return &Pokemon{
		RosterID:  entry.ID,
		Species:   entry.Species,
		Nickname:  entry.Nickname,
		Types:     slices.Clone(entry.Types),
		Level:     entry.Level,
		Nature:    entry.Nature,
		MaxHP:     stats.HP,
		CurrentHP: stats.HP,
		Stats:     stats,
		Moves:     slots,
	}, nil
}

// Name returns the nickname when set, otherwise the species.
func (p *Pokemon) Name() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.Species
}

// IsFainted reports whether the Pokemon has no HP left.
func (p *Pokemon) IsFainted() bool { return p.CurrentHP <= 0 }

// HasType reports whether t is one of the Pokemon's types.
func (p *Pokemon) HasType(t pokemon.Type) bool { return slices.Contains(p.Types, t) }

// EffectiveSpeed is the speed used for turn order. Paralysis halves it.
func (p *Pokemon) EffectiveSpeed() int {
	if p.Status == pokemon.Paralysis {
		return p.Stats.Speed / 2
	}
	return p.Stats.Speed
}

// OutOfPP reports whether no slot can be used, which forces Struggle.
func (p *Pokemon) OutOfPP() bool {
	return !slices.ContainsFunc(p.Moves, MoveSlot.Usable)
}

// TakeDamage lowers CurrentHP by at most n and returns the HP actually lost.
//
// Postcondition: CurrentHP >= 0.
func (p *Pokemon) TakeDamage(n int) int {
	if n <= 0 {
		return 0
	}
	lost := min(n, p.CurrentHP)
	p.CurrentHP -= lost
	return lost
}

// Heal raises CurrentHP by at most n and returns the HP actually restored.
//
// Postcondition: CurrentHP <= MaxHP.
func (p *Pokemon) Heal(n int) int {
	if n <= 0 || p.IsFainted() {
		return 0
	}
	gained := min(n, p.MaxHP-p.CurrentHP)
	p.CurrentHP += gained
	return gained
}

// setStatus applies s unless the Pokemon already has a status or is immune.
func (p *Pokemon) setStatus(s pokemon.Status, turns int) bool {
	if p.Status != pokemon.StatusNone || pokemon.ImmuneTo(s, p.Types...) {
		return false
	}
	p.Status = s
	p.StatusTurns = turns
	return true
}

func (p *Pokemon) clearStatus() {
	p.Status = pokemon.StatusNone
	p.StatusTurns = 0
}
