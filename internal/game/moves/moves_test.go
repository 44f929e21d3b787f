package moves_test

import (
	"strings"
	"testing"

	"github.com/cory-johannsen/pokedo/internal/game/moves"
	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func defaultPool(t testing.TB) *moves.Pool {
	t.Helper()
	p, err := moves.DefaultPool()
	require.NoError(t, err)
	return p
}

func TestDefaultPool_LoadsEveryType(t *testing.T) {
	p := defaultPool(t)
	for _, typ := range pokemon.AllTypes() {
		ms := p.ForType(typ)
		require.Len(t, ms, 5, "type %s", typ)
		for _, m := range ms {
			assert.NoError(t, m.Validate())
			assert.Equal(t, typ, m.Type)
		}
	}
	assert.Equal(t, 18*5+3+7, p.Len())
}

func TestDefaultPool_KnownMoves(t *testing.T) {
	p := defaultPool(t)

	protect, ok := p.Lookup("protect")
	require.True(t, ok)
	assert.True(t, protect.Protect)
	assert.Equal(t, 4, protect.Priority)
	assert.Equal(t, moves.StatusMove, protect.Category)

	qa, ok := p.Lookup("quick-attack")
	require.True(t, ok)
	assert.Equal(t, 1, qa.Priority)

	ace, ok := p.Lookup("aerial-ace")
	require.True(t, ok)
	assert.True(t, ace.SureHit)

	rest, ok := p.Lookup("rest")
	require.True(t, ok)
	assert.True(t, rest.SelfHeal)
	assert.Equal(t, pokemon.Sleep, rest.Status)

	_, ok = p.Lookup("splash")
	assert.False(t, ok)
}

func TestLoadPool_RejectsMalformedData(t *testing.T) {
	cases := map[string]string{
		"bad type":     "types:\n  shadow:\n    - {name: x, category: physical, power: 10, accuracy: 100, pp: 5}\n",
		"bad accuracy": "types:\n  fire:\n    - {name: x, category: physical, power: 10, accuracy: 0, pp: 5}\n",
		"status power": "universal:\n  - {name: x, type: normal, category: status, power: 10, pp: 5}\n",
		"duplicate":    "types:\n  fire:\n    - {name: x, category: physical, power: 10, accuracy: 100, pp: 5}\ncatalog:\n  - {name: x, type: water, category: special, power: 10, pp: 5}\n",
		"unknown key":  "types:\n  fire:\n    - {name: x, category: physical, power: 10, accuracy: 100, pp: 5, flinch: 30}\n",
		"not yaml":     "types: [",
	}
	for name, doc := range cases {
		_, err := moves.LoadPool(strings.NewReader(doc))
		assert.Error(t, err, name)
	}
}

func TestMove_DisplayName(t *testing.T) {
	assert.Equal(t, "Quick Attack", moves.Move{Name: "quick-attack"}.DisplayName())
}

func TestStruggle_IsValidAndTypeless(t *testing.T) {
	s := moves.Struggle()
	require.NoError(t, s.Validate())
	assert.Equal(t, pokemon.TypeNone, s.Type)
	assert.Equal(t, 25, s.RecoilPercent)
	assert.Equal(t, 50, s.Power)
}

func TestPowerCap(t *testing.T) {
	assert.Equal(t, 50, moves.PowerCap(5))
	assert.Equal(t, 65, moves.PowerCap(10))
	assert.Equal(t, 85, moves.PowerCap(34))
	assert.Equal(t, 100, moves.PowerCap(49))
	assert.Greater(t, moves.PowerCap(50), 1000)
}

func TestGenerateMoveset_Properties(t *testing.T) {
	p := defaultPool(t)
	rapid.Check(t, func(rt *rapid.T) {
		t1 := rapid.SampledFrom(pokemon.AllTypes()).Draw(rt, "t1")
		types := []pokemon.Type{t1}
		if rapid.Bool().Draw(rt, "dual") {
			types = append(types, rapid.SampledFrom(pokemon.AllTypes()).Draw(rt, "t2"))
		}
		level := rapid.IntRange(1, 100).Draw(rt, "level")
		seed := rapid.Uint64().Draw(rt, "seed")

		set := p.GenerateMoveset(types, level, seed)
		require.NotEmpty(rt, set)
		require.LessOrEqual(rt, len(set), moves.MaxMoves)

		names := map[string]bool{}
		damaging := false
		for _, m := range set {
			assert.False(rt, names[m.Name], "duplicate %s", m.Name)
			names[m.Name] = true
			if m.Damaging() {
				damaging = true
				assert.LessOrEqual(rt, m.Power, moves.PowerCap(level))
			}
		}
		assert.True(rt, damaging, "moveset must contain a damaging move")

		again := p.GenerateMoveset(types, level, seed)
		assert.Equal(rt, set, again, "same seed must give the same moveset")
	})
}

func TestGenerateMoveset_LowLevelFireStaysUnderCap(t *testing.T) {
	p := defaultPool(t)
	set := p.GenerateMoveset([]pokemon.Type{pokemon.Fire}, 5, 1)
	require.Len(t, set, 4)
	for _, m := range set {
		assert.LessOrEqual(t, m.Power, 50)
	}
}

func TestGenerateMoveset_TopTierAddsNoStatusOverDamage(t *testing.T) {
	p := defaultPool(t)
	set := p.GenerateMoveset([]pokemon.Type{pokemon.Dragon, pokemon.Flying}, 80, 7)
	require.Len(t, set, 4)
	assert.Equal(t, 120, set[0].Power)
}
