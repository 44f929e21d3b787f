package battle_test

import (
	"testing"
	"time"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/moves"
	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
	"github.com/stretchr/testify/require"
)

// maxSrc always returns the largest allowed value: no crits, no misses, no
// paralysis skips, no secondary effects, full damage rolls.
type maxSrc struct{}

func (maxSrc) Intn(n int) int { return n - 1 }

// fixedSrc returns val clamped into range.
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int { return min(f.val, n-1) }

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func move(t testing.TB, name string) moves.Move {
	t.Helper()
	pool, err := moves.DefaultPool()
	require.NoError(t, err)
	m, ok := pool.Lookup(name)
	require.True(t, ok, "move %s", name)
	return m
}

type monOpt func(*battle.Pokemon)

func withStatus(s pokemon.Status, turns int) monOpt {
	return func(p *battle.Pokemon) { p.Status, p.StatusTurns = s, turns }
}

func withHP(hp int) monOpt {
	return func(p *battle.Pokemon) { p.CurrentHP = hp }
}

func mon(species string, types []pokemon.Type, speed int, ms []moves.Move, opts ...monOpt) *battle.Pokemon {
	slots := make([]battle.MoveSlot, len(ms))
	for i, m := range ms {
		slots[i] = battle.MoveSlot{Move: m, PP: m.PP}
	}
	p := &battle.Pokemon{
		Species:   species,
		Types:     types,
		Level:     50,
		MaxHP:     160,
		CurrentHP: 160,
		Stats: pokemon.Stats{
			HP: 160, Attack: 100, Defense: 100, SpAttack: 100, SpDefense: 100, Speed: speed,
		},
		Moves: slots,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func formatFor(n int) battle.Format {
	switch n {
	case 1:
		return battle.Singles1v1
	case 3:
		return battle.Singles3v3
	default:
		return battle.Singles6v6
	}
}

// activeBattle builds an ACTIVE battle between "ash" (side 0) and "gary" (side 1).
func activeBattle(t testing.TB, a, b []*battle.Pokemon) *battle.State {
	t.Helper()
	require.Equal(t, len(a), len(b))
	s, err := battle.NewChallenge("b-1", "ash", "gary", formatFor(len(a)), t0)
	require.NoError(t, err)
	require.NoError(t, s.Accept("gary", t0))
	require.NoError(t, s.SubmitTeam("ash", &battle.Team{Members: a}, t0))
	require.NoError(t, s.SubmitTeam("gary", &battle.Team{Members: b}, t0))
	require.Equal(t, battle.StatusActive, s.Status)
	return s
}

func submit(t testing.TB, s *battle.State, ashAct, garyAct battle.Action) {
	t.Helper()
	ready, err := s.SubmitAction("ash", 0, ashAct, t0)
	require.NoError(t, err)
	if _, forfeit := ashAct.(battle.ForfeitAction); !forfeit {
		require.False(t, ready)
	}
	ready, err = s.SubmitAction("gary", 0, garyAct, t0)
	require.NoError(t, err)
	require.True(t, ready)
}

func kinds(events []battle.TurnEvent) []battle.EventKind {
	out := make([]battle.EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func firstOf(events []battle.TurnEvent, k battle.EventKind) (battle.TurnEvent, bool) {
	for _, e := range events {
		if e.Kind == k {
			return e, true
		}
	}
	return battle.TurnEvent{}, false
}
