package battle_test

import (
	"encoding/json"
	"testing"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/dice"
	"github.com/cory-johannsen/pokedo/internal/game/moves"
	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var normal = []pokemon.Type{pokemon.Normal}

func resolve(t *testing.T, e *battle.Engine, s *battle.State, src dice.Source) []battle.TurnEvent {
	t.Helper()
	events, err := e.ResolveTurn(s, src, t0)
	require.NoError(t, err)
	return events
}

func moveActors(events []battle.TurnEvent) []string {
	var out []string
	for _, e := range events {
		if e.Kind == battle.EventMove {
			out = append(out, e.Actor)
		}
	}
	return out
}

func TestResolveTurn_ParalysisHalvesSpeedForOrdering(t *testing.T) {
	tackle := move(t, "tackle")
	s := activeBattle(t,
		[]*battle.Pokemon{mon("fast", normal, 100, []moves.Move{tackle}, withStatus(pokemon.Paralysis, 0))},
		[]*battle.Pokemon{mon("slow", normal, 60, []moves.Move{tackle})},
	)
	submit(t, s, battle.MoveAction{}, battle.MoveAction{})
	events := resolve(t, battle.NewEngine(), s, maxSrc{})

	assert.Equal(t, []string{"gary", "ash"}, moveActors(events))
}

func TestResolveTurn_PriorityBeatsSpeed(t *testing.T) {
	s := activeBattle(t,
		[]*battle.Pokemon{mon("slow", normal, 10, []moves.Move{move(t, "quick-attack")})},
		[]*battle.Pokemon{mon("fast", normal, 200, []moves.Move{move(t, "tackle")})},
	)
	submit(t, s, battle.MoveAction{}, battle.MoveAction{})
	events := resolve(t, battle.NewEngine(), s, maxSrc{})

	assert.Equal(t, []string{"ash", "gary"}, moveActors(events))
}

func TestResolveTurn_SpeedTieUsesRecordedDraw(t *testing.T) {
	for _, tc := range []struct {
		src   dice.Source
		first string
	}{
		{fixedSrc{val: 0}, "ash"},
		{maxSrc{}, "gary"},
	} {
		tackle := move(t, "tackle")
		s := activeBattle(t,
			[]*battle.Pokemon{mon("a", normal, 80, []moves.Move{tackle})},
			[]*battle.Pokemon{mon("b", normal, 80, []moves.Move{tackle})},
		)
		submit(t, s, battle.MoveAction{}, battle.MoveAction{})
		events := resolve(t, battle.NewEngine(), s, tc.src)

		assert.Equal(t, tc.first, moveActors(events)[0])
		require.Len(t, s.Replays, 1)
		require.NotEmpty(t, s.Replays[0].Draws)
		assert.Equal(t, tc.src.Intn(2), s.Replays[0].Draws[0], "tie-break draw is recorded first")
	}
}

func TestResolveTurn_ForfeitEndsBattle(t *testing.T) {
	tackle := move(t, "tackle")
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", normal, 80, []moves.Move{tackle})},
		[]*battle.Pokemon{mon("b", normal, 80, []moves.Move{tackle})},
	)
	submit(t, s, battle.ForfeitAction{}, battle.MoveAction{})
	events := resolve(t, battle.NewEngine(), s, maxSrc{})

	assert.Equal(t, []battle.EventKind{battle.EventForfeit, battle.EventWin}, kinds(events))
	assert.Equal(t, battle.StatusFinished, s.Status)
	assert.Equal(t, "gary", s.Winner)
	assert.Equal(t, "ash", s.Loser())
	assert.Equal(t, battle.FinishForfeit, s.Reason)
	assert.Equal(t, 160, s.Teams[0].ActivePokemon().CurrentHP)
	assert.Equal(t, 1, s.Turn)
	assert.True(t, s.Rated())
}

func TestResolveTurn_ForfeitDoesNotWaitForOpponent(t *testing.T) {
	tackle := move(t, "tackle")
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", normal, 80, []moves.Move{tackle})},
		[]*battle.Pokemon{mon("b", normal, 80, []moves.Move{tackle})},
	)
	ready, err := s.SubmitAction("gary", 0, battle.ForfeitAction{}, t0)
	require.NoError(t, err)
	require.True(t, ready)

	e := battle.NewEngine()
	events := resolve(t, e, s, maxSrc{})
	assert.Equal(t, []battle.EventKind{battle.EventForfeit, battle.EventWin}, kinds(events))
	assert.Equal(t, "ash", s.Winner)
	require.Len(t, s.Replays, 1)
	assert.Nil(t, s.Replays[0].Actions[0])

	replayed, err := e.Replay(s)
	require.NoError(t, err)
	assert.Equal(t, s.History, replayed.History)
}

func TestResolveTurn_BothForfeitIsDraw(t *testing.T) {
	tackle := move(t, "tackle")
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", normal, 80, []moves.Move{tackle})},
		[]*battle.Pokemon{mon("b", normal, 80, []moves.Move{tackle})},
	)
	submit(t, s, battle.ForfeitAction{}, battle.ForfeitAction{})
	resolve(t, battle.NewEngine(), s, maxSrc{})
	assert.True(t, s.Draw)
	assert.Empty(t, s.Winner)
}

func TestResolveTurn_FaintForcesSwitch(t *testing.T) {
	tackle := move(t, "tackle")
	s := activeBattle(t,
		[]*battle.Pokemon{
			mon("a1", normal, 100, []moves.Move{tackle}),
			mon("a2", normal, 100, []moves.Move{tackle}),
			mon("a3", normal, 100, []moves.Move{tackle}),
		},
		[]*battle.Pokemon{
			mon("b1", normal, 50, []moves.Move{tackle}, withHP(1)),
			mon("b2", normal, 50, []moves.Move{tackle}),
			mon("b3", normal, 50, []moves.Move{tackle}),
		},
	)
	e := battle.NewEngine()
	submit(t, s, battle.MoveAction{}, battle.MoveAction{})
	events := resolve(t, e, s, maxSrc{})

	assert.Equal(t, []battle.EventKind{battle.EventMove, battle.EventDamage, battle.EventFaint}, kinds(events))
	assert.Equal(t, 1, events[1].Amount)
	assert.True(t, s.Teams[1].MustSwitch)
	assert.Equal(t, battle.StatusActive, s.Status)

	_, err := s.SubmitAction("gary", 0, battle.MoveAction{}, t0)
	assert.ErrorIs(t, err, battle.ErrValidation)

	submit(t, s, battle.MoveAction{}, battle.SwitchAction{Slot: 1})
	events = resolve(t, e, s, maxSrc{})
	require.NotEmpty(t, events)
	assert.Equal(t, battle.EventSwitch, events[0].Kind)
	dmg, ok := firstOf(events, battle.EventDamage)
	require.True(t, ok)
	assert.Equal(t, "b2", dmg.Target)
	assert.False(t, s.Teams[1].MustSwitch)
}

func TestResolveTurn_BothSwitchDealsNoDamage(t *testing.T) {
	tackle := move(t, "tackle")
	team := func(prefix string) []*battle.Pokemon {
		return []*battle.Pokemon{
			mon(prefix+"1", normal, 100, []moves.Move{tackle}),
			mon(prefix+"2", normal, 100, []moves.Move{tackle}),
			mon(prefix+"3", normal, 100, []moves.Move{tackle}),
		}
	}
	s := activeBattle(t, team("a"), team("b"))
	turn := s.Turn

	submit(t, s, battle.SwitchAction{Slot: 1}, battle.SwitchAction{Slot: 2})
	events := resolve(t, battle.NewEngine(), s, maxSrc{})

	assert.Equal(t, []battle.EventKind{battle.EventSwitch, battle.EventSwitch}, kinds(events))
	_, hit := firstOf(events, battle.EventDamage)
	assert.False(t, hit)
	assert.Equal(t, 1, s.Teams[0].Active)
	assert.Equal(t, 2, s.Teams[1].Active)
	assert.Equal(t, turn+1, s.Turn)
	for _, tm := range s.Teams {
		for _, p := range tm.Members {
			assert.Equal(t, p.MaxHP, p.CurrentHP, p.Species)
		}
	}
}

func TestResolveTurn_KnockoutFinishes(t *testing.T) {
	tackle := move(t, "tackle")
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", normal, 100, []moves.Move{tackle})},
		[]*battle.Pokemon{mon("b", normal, 50, []moves.Move{tackle}, withHP(5))},
	)
	submit(t, s, battle.MoveAction{}, battle.MoveAction{})
	events := resolve(t, battle.NewEngine(), s, maxSrc{})

	assert.Equal(t, battle.EventWin, events[len(events)-1].Kind)
	assert.Equal(t, "ash", s.Winner)
	assert.Equal(t, battle.FinishKnockout, s.Reason)
	assert.NotNil(t, s.FinishedAt)
	assert.Nil(t, s.Pending[0])
}

func TestResolveTurn_DoubleKnockoutIsDraw(t *testing.T) {
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", normal, 100, []moves.Move{move(t, "double-edge")}, withHP(1))},
		[]*battle.Pokemon{mon("b", normal, 50, []moves.Move{move(t, "tackle")}, withHP(1))},
	)
	submit(t, s, battle.MoveAction{}, battle.MoveAction{})
	events := resolve(t, battle.NewEngine(), s, maxSrc{})

	_, recoiled := firstOf(events, battle.EventRecoil)
	assert.True(t, recoiled)
	assert.True(t, s.Draw)
	assert.Equal(t, battle.FinishKnockout, s.Reason)
	assert.Equal(t, battle.EventDraw, events[len(events)-1].Kind)
}

func TestResolveTurn_TurnLimitIsDraw(t *testing.T) {
	sub := move(t, "substitute")
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", normal, 100, []moves.Move{sub})},
		[]*battle.Pokemon{mon("b", normal, 50, []moves.Move{sub})},
	)
	e := battle.NewEngine(battle.WithMaxTurns(2))
	submit(t, s, battle.MoveAction{}, battle.MoveAction{})
	events := resolve(t, e, s, maxSrc{})
	assert.Equal(t, battle.StatusActive, s.Status)
	assert.Contains(t, kinds(events), battle.EventNoEffect)

	submit(t, s, battle.MoveAction{}, battle.MoveAction{})
	resolve(t, e, s, maxSrc{})
	assert.Equal(t, battle.StatusFinished, s.Status)
	assert.True(t, s.Draw)
	assert.Equal(t, battle.FinishTurnLimit, s.Reason)
}

func TestResolveTurn_ResidualDamage(t *testing.T) {
	sub := move(t, "substitute")
	cases := []struct {
		status pokemon.Status
		want   []int
	}{
		{pokemon.Burn, []int{10, 10}},
		{pokemon.Poisoned, []int{20, 20}},
		{pokemon.BadlyPoisoned, []int{10, 20}},
	}
	for _, tc := range cases {
		s := activeBattle(t,
			[]*battle.Pokemon{mon("a", normal, 100, []moves.Move{sub}, withStatus(tc.status, 0))},
			[]*battle.Pokemon{mon("b", normal, 50, []moves.Move{sub})},
		)
		e := battle.NewEngine()
		hp := 160
		for turn, want := range tc.want {
			submit(t, s, battle.MoveAction{}, battle.MoveAction{})
			events := resolve(t, e, s, maxSrc{})
			ev, ok := firstOf(events, battle.EventStatusDamage)
			require.True(t, ok, "%s turn %d", tc.status, turn+1)
			assert.Equal(t, want, ev.Amount, "%s turn %d", tc.status, turn+1)
			hp -= want
			assert.Equal(t, hp, s.Teams[0].ActivePokemon().CurrentHP)
		}
	}
}

func TestResolveTurn_ProtectBlocksThenExpires(t *testing.T) {
	tackle := move(t, "tackle")
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", normal, 10, []moves.Move{move(t, "protect"), tackle})},
		[]*battle.Pokemon{mon("b", normal, 200, []moves.Move{tackle})},
	)
	submit(t, s, battle.MoveAction{Index: 0}, battle.MoveAction{})
	events := resolve(t, battle.NewEngine(), s, maxSrc{})

	assert.Equal(t, []battle.EventKind{
		battle.EventMove, battle.EventProtect, battle.EventMove, battle.EventProtected,
	}, kinds(events))
	assert.Equal(t, 160, s.Teams[0].ActivePokemon().CurrentHP)
	assert.False(t, s.Teams[0].ActivePokemon().Protected)
}

func TestResolveTurn_StruggleWhenOutOfPP(t *testing.T) {
	a := mon("a", normal, 100, []moves.Move{move(t, "tackle")})
	a.Moves[0].PP = 0
	s := activeBattle(t,
		[]*battle.Pokemon{a},
		[]*battle.Pokemon{mon("b", normal, 50, []moves.Move{move(t, "substitute")})},
	)
	submit(t, s, battle.MoveAction{}, battle.MoveAction{})
	events := resolve(t, battle.NewEngine(), s, maxSrc{})

	mv, ok := firstOf(events, battle.EventMove)
	require.True(t, ok)
	assert.Equal(t, moves.StruggleName, mv.Move)
	dmg, ok := firstOf(events, battle.EventDamage)
	require.True(t, ok)
	assert.Equal(t, 24, dmg.Amount)
	rec, ok := firstOf(events, battle.EventRecoil)
	require.True(t, ok)
	assert.Equal(t, 6, rec.Amount)
}

func TestResolveTurn_ImmuneTargetTakesNothing(t *testing.T) {
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", normal, 100, []moves.Move{move(t, "tackle")})},
		[]*battle.Pokemon{mon("gastly", []pokemon.Type{pokemon.Ghost}, 50, []moves.Move{move(t, "substitute")})},
	)
	submit(t, s, battle.MoveAction{}, battle.MoveAction{})
	events := resolve(t, battle.NewEngine(), s, maxSrc{})

	_, ok := firstOf(events, battle.EventImmune)
	assert.True(t, ok)
	_, ok = firstOf(events, battle.EventDamage)
	assert.False(t, ok)
	assert.Equal(t, 160, s.Teams[1].ActivePokemon().CurrentHP)
}

func TestResolveTurn_InaccurateMoveMisses(t *testing.T) {
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", normal, 100, []moves.Move{move(t, "slam")})},
		[]*battle.Pokemon{mon("b", normal, 50, []moves.Move{move(t, "substitute")})},
	)
	submit(t, s, battle.MoveAction{}, battle.MoveAction{})
	events := resolve(t, battle.NewEngine(), s, maxSrc{})

	_, ok := firstOf(events, battle.EventMiss)
	assert.True(t, ok)
	assert.Equal(t, 19, s.Teams[0].ActivePokemon().Moves[0].PP, "a miss still spends PP")
}

func TestResolveTurn_RestHealsAndSleeps(t *testing.T) {
	sub := move(t, "substitute")
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", normal, 100, []moves.Move{move(t, "rest"), move(t, "tackle")}, withHP(40), withStatus(pokemon.Burn, 0))},
		[]*battle.Pokemon{mon("b", normal, 50, []moves.Move{sub})},
	)
	e := battle.NewEngine()

	submit(t, s, battle.MoveAction{Index: 0}, battle.MoveAction{})
	events := resolve(t, e, s, maxSrc{})
	heal, ok := firstOf(events, battle.EventHeal)
	require.True(t, ok)
	assert.Equal(t, 120, heal.Amount)
	a := s.Teams[0].ActivePokemon()
	assert.Equal(t, pokemon.Sleep, a.Status)

	submit(t, s, battle.MoveAction{Index: 1}, battle.MoveAction{})
	events = resolve(t, e, s, maxSrc{})
	assert.Contains(t, kinds(events), battle.EventCantMove)
	assert.Contains(t, kinds(events), battle.EventStatusCured)
	assert.Equal(t, pokemon.StatusNone, a.Status)

	submit(t, s, battle.MoveAction{Index: 1}, battle.MoveAction{})
	events = resolve(t, e, s, maxSrc{})
	assert.Contains(t, kinds(events), battle.EventDamage)
}

func TestResolveTurn_SecondaryStatusAndFullParalysis(t *testing.T) {
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", normal, 100, []moves.Move{move(t, "thunder-shock")})},
		[]*battle.Pokemon{mon("b", normal, 50, []moves.Move{move(t, "substitute")})},
	)
	submit(t, s, battle.MoveAction{}, battle.MoveAction{})
	events := resolve(t, battle.NewEngine(), s, fixedSrc{val: 0})

	applied, ok := firstOf(events, battle.EventStatusApplied)
	require.True(t, ok)
	assert.Equal(t, pokemon.Paralysis, applied.Status)
	assert.Equal(t, pokemon.Paralysis, s.Teams[1].ActivePokemon().Status)
	stuck, ok := firstOf(events, battle.EventCantMove)
	require.True(t, ok)
	assert.Equal(t, "gary", stuck.Actor)
}

func TestResolveTurn_WeatherScalesDamage(t *testing.T) {
	run := func(e *battle.Engine) int {
		s := activeBattle(t,
			[]*battle.Pokemon{mon("a", normal, 100, []moves.Move{move(t, "ember")})},
			[]*battle.Pokemon{mon("b", normal, 50, []moves.Move{move(t, "substitute")})},
		)
		submit(t, s, battle.MoveAction{}, battle.MoveAction{})
		dmg, ok := firstOf(resolve(t, e, s, maxSrc{}), battle.EventDamage)
		require.True(t, ok)
		return dmg.Amount
	}
	sunny := battle.NewEngine(battle.WithWeather(func(mt pokemon.Type) float64 {
		if mt == pokemon.Fire {
			return 1.5
		}
		return 1.0
	}))
	assert.Equal(t, 19, run(battle.NewEngine()))
	assert.Equal(t, 29, run(sunny))
}

func TestResolveTurn_RejectsWhenNotReady(t *testing.T) {
	tackle := move(t, "tackle")
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", normal, 100, []moves.Move{tackle})},
		[]*battle.Pokemon{mon("b", normal, 50, []moves.Move{tackle})},
	)
	_, err := s.SubmitAction("ash", 0, battle.MoveAction{}, t0)
	require.NoError(t, err)

	_, err = battle.NewEngine().ResolveTurn(s, maxSrc{}, t0)
	assert.ErrorIs(t, err, battle.ErrState)
	assert.Equal(t, 0, s.Turn)
	assert.NotNil(t, s.Pending[0])
}

// playOut drives a 3v3 battle to completion, always using the first move and
// switching to the next healthy member when forced.
func playOut(t *testing.T, e *battle.Engine, s *battle.State, src dice.Source) {
	t.Helper()
	pick := func(side int) battle.Action {
		team := s.Teams[side]
		if !team.MustSwitch {
			return battle.MoveAction{}
		}
		for i, p := range team.Members {
			if i != team.Active && !p.IsFainted() {
				return battle.SwitchAction{Slot: i}
			}
		}
		return battle.ForfeitAction{}
	}
	for s.Status == battle.StatusActive && s.Turn < 100 {
		submit(t, s, pick(0), pick(1))
		resolve(t, e, s, src)
	}
}

func replayTeams(t *testing.T) ([]*battle.Pokemon, []*battle.Pokemon) {
	mk := func(prefix string, speed int, names ...string) []*battle.Pokemon {
		var out []*battle.Pokemon
		for i, n := range names {
			out = append(out, mon(prefix+string(rune('1'+i)), []pokemon.Type{pokemon.Fire}, speed, []moves.Move{move(t, n)}))
		}
		return out
	}
	return mk("a", 80, "ember", "thunder-shock", "slam"), mk("b", 80, "bubble-beam", "body-slam", "ice-shard")
}

func TestReplay_ReproducesHistory(t *testing.T) {
	a, b := replayTeams(t)
	s := activeBattle(t, a, b)
	e := battle.NewEngine()
	playOut(t, e, s, dice.NewSeededSource(2026))
	require.Equal(t, battle.StatusFinished, s.Status)

	rebuilt, err := e.Replay(s)
	require.NoError(t, err)
	assert.Equal(t, s.History, rebuilt.History)
	assert.Equal(t, s.Winner, rebuilt.Winner)
	assert.Equal(t, s.Turn, rebuilt.Turn)
	for side := range s.Teams {
		for i, p := range s.Teams[side].Members {
			assert.Equal(t, p.CurrentHP, rebuilt.Teams[side].Members[i].CurrentHP)
		}
	}
}

func TestResolveTurn_SameInputsGiveIdenticalEvents(t *testing.T) {
	run := func() []byte {
		a, b := replayTeams(t)
		s := activeBattle(t, a, b)
		playOut(t, battle.NewEngine(), s, dice.NewSeededSource(99))
		data, err := json.Marshal(s.History)
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, run(), run())
}
