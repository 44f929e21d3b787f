package moves

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
)

// MaxMoves is the number of move slots a Pokemon has.
const MaxMoves = 4

// coverageMoves is how many Normal moves a non-Normal Pokemon draws on.
const coverageMoves = 2

// topTierLevel is the level from which universal status moves join the pool.
const topTierLevel = 50

// PowerCap returns the highest move power a Pokemon of the given level may be
// generated with. Levels of 50 and above are uncapped.
func PowerCap(level int) int {
	switch {
	case level < 10:
		return 50
	case level < 20:
		return 65
	case level < 35:
		return 85
	case level < 50:
		return 100
	default:
		return math.MaxInt
	}
}

// GenerateMoveset picks up to MaxMoves moves for a Pokemon with the given
// types and level. The seed only breaks ties between equal-power candidates,
// so the same inputs always yield the same moveset.
//
// Precondition: types holds 1-2 real types.
// Postcondition: 1 <= len(result) <= MaxMoves; names are unique; result
// contains at least one damaging move whenever any candidate is damaging.
func (p *Pool) GenerateMoveset(types []pokemon.Type, level int, seed uint64) []Move {
	var candidates []Move
	seen := make(map[pokemon.Type]bool, len(types))
	for _, t := range types {
		if !t.Valid() || seen[t] {
			continue
		}
		seen[t] = true
		candidates = append(candidates, p.byType[t]...)
	}
	if !seen[pokemon.Normal] {
		normal := p.byType[pokemon.Normal]
		candidates = append(candidates, normal[:min(coverageMoves, len(normal))]...)
	}
	if level >= topTierLevel {
		candidates = append(candidates, p.universal...)
	}
	if len(candidates) == 0 {
		return []Move{Struggle()}
	}

	limit := PowerCap(level)
	eligible := make([]Move, 0, len(candidates))
	for _, m := range candidates {
		if !m.Damaging() || m.Power <= limit {
			eligible = append(eligible, m)
		}
	}
	if !slices.ContainsFunc(eligible, Move.Damaging) {
		// Every damaging candidate is above the cap; keep the weakest one.
		if weakest, ok := weakestDamaging(candidates); ok {
			eligible = append(eligible, weakest)
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	rng.Shuffle(len(eligible), func(i, j int) { eligible[i], eligible[j] = eligible[j], eligible[i] })
	slices.SortStableFunc(eligible, func(a, b Move) int { return b.Power - a.Power })

	selected := make([]Move, 0, MaxMoves)
	names := make(map[string]bool, MaxMoves)
	typesUsed := make(map[pokemon.Type]bool, MaxMoves)
	for _, m := range eligible {
		if len(selected) == MaxMoves {
			break
		}
		if names[m.Name] {
			continue
		}
		if !typesUsed[m.Type] || len(selected) < 2 {
			selected = append(selected, m)
			names[m.Name] = true
			typesUsed[m.Type] = true
		}
	}
	for _, m := range eligible {
		if len(selected) == MaxMoves {
			break
		}
		if !names[m.Name] {
			selected = append(selected, m)
			names[m.Name] = true
		}
	}
	return selected
}

func weakestDamaging(ms []Move) (Move, bool) {
	var (
		best  Move
		found bool
	)
	for _, m := range ms {
		if m.Damaging() && (!found || m.Power < best.Power) {
			best, found = m, true
		}
	}
	return best, found
}
