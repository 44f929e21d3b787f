package battle

import (
	"github.com/cory-johannsen/pokedo/internal/game/moves"
	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
)

// Damage multipliers.
const (
	STABMultiplier     = 1.5
	CriticalMultiplier = 1.5
	BurnMultiplier     = 0.5
	// CriticalChance is the denominator of the 1-in-N critical hit roll.
	CriticalChance = 16
	// MinRandomPercent and MaxRandomPercent bound the random damage factor.
	MinRandomPercent = 85
	MaxRandomPercent = 100
)

// CalculateDamage returns the damage move would deal from attacker to
// defender. It is pure: critical, randomFactor and weather are decided by the
// caller.
//
// Precondition: randomFactor in [0.85, 1.0]; weather > 0.
// Postcondition: returns 0 when the move has no power or the defender is
// immune; otherwise returns at least 1.
func CalculateDamage(attacker, defender *Pokemon, move moves.Move, critical bool, randomFactor, weather float64) int {
	if !move.Damaging() {
		return 0
	}
	eff := pokemon.Effectiveness(move.Type, defender.Types...)
	if eff == 0 {
		return 0
	}

	atk, def := attacker.Stats.Attack, defender.Stats.Defense
	if move.Category == moves.Special {
		atk, def = attacker.Stats.SpAttack, defender.Stats.SpDefense
	}
	def = max(def, 1)

	base := (2*float64(attacker.Level)/5+2)*float64(move.Power)*float64(atk)/float64(def)/50 + 2

	mod := eff * randomFactor * weather
	if move.Type.Valid() && attacker.HasType(move.Type) {
		mod *= STABMultiplier
	}
	if critical {
		mod *= CriticalMultiplier
	}
	if attacker.Status == pokemon.Burn && move.Category == moves.Physical {
		mod *= BurnMultiplier
	}
	return max(1, int(base*mod))
}
