package battle_test

import (
	"testing"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/moves"
	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func charmander() battle.RosterEntry {
	return battle.RosterEntry{
		ID:        4,
		Species:   "charmander",
		Types:     []pokemon.Type{pokemon.Fire},
		Level:     50,
		Nature:    pokemon.Adamant,
		BaseStats: pokemon.Stats{HP: 39, Attack: 52, Defense: 43, SpAttack: 60, SpDefense: 50, Speed: 65},
		IVs:       pokemon.Stats{HP: 31, Attack: 31, Defense: 31, SpAttack: 31, SpDefense: 31, Speed: 31},
	}
}

func TestNewPokemon_SnapshotsEntry(t *testing.T) {
	pool, err := moves.DefaultPool()
	require.NoError(t, err)

	entry := charmander()
	p, err := battle.NewPokemon(entry, pool, 1)
	require.NoError(t, err)

	assert.Equal(t, p.MaxHP, p.CurrentHP)
	assert.Equal(t, pokemon.CalcHP(39, 31, 0, 50), p.MaxHP)
	assert.Equal(t, pokemon.StatusNone, p.Status)
	require.NotEmpty(t, p.Moves)
	for _, slot := range p.Moves {
		assert.Equal(t, slot.Move.PP, slot.PP)
	}

	entry.Types[0] = pokemon.Water
	assert.Equal(t, pokemon.Fire, p.Types[0], "snapshot must not alias the roster entry")
}

func TestNewPokemon_NamedMoves(t *testing.T) {
	pool, err := moves.DefaultPool()
	require.NoError(t, err)

	entry := charmander()
	entry.Moves = []string{"flamethrower", "protect"}
	p, err := battle.NewPokemon(entry, pool, 1)
	require.NoError(t, err)
	require.Len(t, p.Moves, 2)
	assert.Equal(t, "flamethrower", p.Moves[0].Move.Name)

	entry.Moves = []string{"splash"}
	_, err = battle.NewPokemon(entry, pool, 1)
	assert.ErrorIs(t, err, battle.ErrValidation)

	entry.Moves = []string{"ember", "ember"}
	_, err = battle.NewPokemon(entry, pool, 1)
	assert.ErrorIs(t, err, battle.ErrValidation)
}

func TestRosterEntry_Validate(t *testing.T) {
	mutate := []func(*battle.RosterEntry){
		func(e *battle.RosterEntry) { e.Species = "" },
		func(e *battle.RosterEntry) { e.Types = nil },
		func(e *battle.RosterEntry) { e.Types = []pokemon.Type{pokemon.Fire, pokemon.Fire} },
		func(e *battle.RosterEntry) { e.Types = []pokemon.Type{pokemon.TypeNone} },
		func(e *battle.RosterEntry) { e.Level = 0 },
		func(e *battle.RosterEntry) { e.Level = 101 },
		func(e *battle.RosterEntry) { e.IVs.Speed = 40 },
		func(e *battle.RosterEntry) { e.Moves = []string{"a", "b", "c", "d", "e"} },
		func(e *battle.RosterEntry) { e.BaseStats.HP = 0 },
	}
	for i, m := range mutate {
		e := charmander()
		m(&e)
		assert.ErrorIs(t, e.Validate(), battle.ErrValidation, "case %d", i)
	}
	assert.NoError(t, charmander().Validate())
}

func TestNewTeam_TakesFirstNEntries(t *testing.T) {
	pool, err := moves.DefaultPool()
	require.NoError(t, err)

	var roster []battle.RosterEntry
	for i := int64(1); i <= 4; i++ {
		e := charmander()
		e.ID = i
		roster = append(roster, e)
	}
	team, err := battle.NewTeam("battle-x", "ash", battle.Singles3v3, roster, pool)
	require.NoError(t, err)
	require.Len(t, team.Members, 3)
	assert.Equal(t, int64(3), team.Members[2].RosterID)
	assert.Equal(t, 0, team.Active)

	again, err := battle.NewTeam("battle-x", "ash", battle.Singles3v3, roster, pool)
	require.NoError(t, err)
	assert.Equal(t, team.Members[0].Moves, again.Members[0].Moves)

	_, err = battle.NewTeam("battle-x", "ash", battle.Singles6v6, roster, pool)
	assert.ErrorIs(t, err, battle.ErrValidation)
}
