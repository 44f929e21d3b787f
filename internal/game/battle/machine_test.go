package battle_test

import (
	"testing"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/moves"
	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
	"github.com/cory-johannsen/pokedo/internal/game/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChallenge_RejectsSelfChallenge(t *testing.T) {
	_, err := battle.NewChallenge("b", "ash", "ash", battle.Singles1v1, t0)
	assert.ErrorIs(t, err, battle.ErrValidation)
}

func TestNewChallenge_RejectsUnknownFormat(t *testing.T) {
	_, err := battle.NewChallenge("b", "ash", "gary", battle.FormatUnknown, t0)
	assert.ErrorIs(t, err, battle.ErrValidation)
}

func TestAccept_OnlyOpponentMayAccept(t *testing.T) {
	s, err := battle.NewChallenge("b", "ash", "gary", battle.Singles1v1, t0)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Accept("ash", t0), battle.ErrValidation)
	assert.ErrorIs(t, s.Accept("misty", t0), battle.ErrNotFound)
	assert.Equal(t, battle.StatusPending, s.Status)

	require.NoError(t, s.Accept("gary", t0))
	assert.Equal(t, battle.StatusTeamSubmission, s.Status)
	assert.ErrorIs(t, s.Accept("gary", t0), battle.ErrState)
}

func TestDecline_FinishesWithoutWinner(t *testing.T) {
	s, err := battle.NewChallenge("b", "ash", "gary", battle.Singles3v3, t0)
	require.NoError(t, err)
	require.NoError(t, s.Decline("gary", t0))

	assert.Equal(t, battle.StatusFinished, s.Status)
	assert.Empty(t, s.Winner)
	assert.False(t, s.Draw)
	assert.Equal(t, battle.FinishDeclined, s.Reason)
	assert.False(t, s.Rated())
	assert.ErrorIs(t, s.Decline("gary", t0), battle.ErrState)
}

func TestSubmitTeam_Rules(t *testing.T) {
	tackle := move(t, "tackle")
	s, err := battle.NewChallenge("b", "ash", "gary", battle.Singles1v1, t0)
	require.NoError(t, err)

	team := func() *battle.Team {
		return &battle.Team{Members: []*battle.Pokemon{mon("a", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle})}}
	}
	assert.ErrorIs(t, s.SubmitTeam("ash", team(), t0), battle.ErrState, "not accepted yet")

	require.NoError(t, s.Accept("gary", t0))
	assert.ErrorIs(t, s.SubmitTeam("misty", team(), t0), battle.ErrNotFound)
	assert.ErrorIs(t, s.SubmitTeam("ash", &battle.Team{}, t0), battle.ErrValidation)

	require.NoError(t, s.SubmitTeam("ash", team(), t0))
	assert.Equal(t, battle.StatusTeamSubmission, s.Status)
	assert.ErrorIs(t, s.SubmitTeam("ash", team(), t0), battle.ErrConflict)

	require.NoError(t, s.SubmitTeam("gary", team(), t0))
	assert.Equal(t, battle.StatusActive, s.Status)
	assert.Equal(t, "ash", s.Teams[0].PlayerID)
	require.NotNil(t, s.InitialTeams[1])
	assert.NotSame(t, s.Teams[1].Members[0], s.InitialTeams[1].Members[0])
}

func TestSubmitAction_Validation(t *testing.T) {
	tackle := move(t, "tackle")
	a := []*battle.Pokemon{
		mon("a1", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle}),
		mon("a2", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle}, withHP(0)),
		mon("a3", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle}),
	}
	b := []*battle.Pokemon{
		mon("b1", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle}),
		mon("b2", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle}),
		mon("b3", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle}),
	}
	s := activeBattle(t, a, b)

	cases := []struct {
		name string
		act  battle.Action
		turn int
		want error
	}{
		{"move index out of range", battle.MoveAction{Index: 4}, 0, battle.ErrValidation},
		{"negative move index", battle.MoveAction{Index: -1}, 0, battle.ErrValidation},
		{"switch to active", battle.SwitchAction{Slot: 0}, 0, battle.ErrValidation},
		{"switch to fainted", battle.SwitchAction{Slot: 1}, 0, battle.ErrValidation},
		{"switch out of range", battle.SwitchAction{Slot: 3}, 0, battle.ErrValidation},
		{"future turn", battle.MoveAction{}, 2, battle.ErrValidation},
		{"nil action", nil, 0, battle.ErrValidation},
	}
	for _, tc := range cases {
		_, err := s.SubmitAction("ash", tc.turn, tc.act, t0)
		assert.ErrorIs(t, err, tc.want, tc.name)
	}
	assert.Nil(t, s.Pending[0], "rejected actions must not be recorded")

	_, err := s.SubmitAction("misty", 0, battle.ForfeitAction{}, t0)
	assert.ErrorIs(t, err, battle.ErrNotFound)

	s.Teams[0].ActivePokemon().Moves[0].PP = 0
	s.Teams[0].ActivePokemon().Moves = append(s.Teams[0].ActivePokemon().Moves, battle.MoveSlot{Move: tackle, PP: 3})
	_, err = s.SubmitAction("ash", 0, battle.MoveAction{Index: 0}, t0)
	assert.ErrorIs(t, err, battle.ErrValidation, "empty PP slot")
	s.Teams[0].ActivePokemon().Moves[0].PP = 5
	s.Teams[0].ActivePokemon().Moves[1].Disabled = true
	_, err = s.SubmitAction("ash", 0, battle.MoveAction{Index: 1}, t0)
	assert.ErrorIs(t, err, battle.ErrValidation, "disabled slot")
}

func TestSubmitAction_ResubmitOverwritesAndStaleTurnConflicts(t *testing.T) {
	tackle := move(t, "tackle")
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle})},
		[]*battle.Pokemon{mon("b", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle})},
	)
	_, err := s.SubmitAction("ash", 1, battle.ForfeitAction{}, t0)
	require.NoError(t, err)
	_, err = s.SubmitAction("ash", 1, battle.MoveAction{Index: 0}, t0)
	require.NoError(t, err)
	assert.Equal(t, battle.ActionMove, s.Pending[0].Kind)

	submitGary, err := s.SubmitAction("gary", 1, battle.MoveAction{Index: 0}, t0)
	require.NoError(t, err)
	require.True(t, submitGary)

	_, err = battle.NewEngine().ResolveTurn(s, maxSrc{}, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Turn)

	_, err = s.SubmitAction("ash", 1, battle.MoveAction{Index: 0}, t0)
	assert.ErrorIs(t, err, battle.ErrConflict)
	_, err = s.SubmitAction("ash", 2, battle.MoveAction{Index: 0}, t0)
	assert.NoError(t, err)
}

func TestSubmitAction_RequiresActiveBattle(t *testing.T) {
	s, err := battle.NewChallenge("b", "ash", "gary", battle.Singles1v1, t0)
	require.NoError(t, err)
	_, err = s.SubmitAction("ash", 0, battle.ForfeitAction{}, t0)
	assert.ErrorIs(t, err, battle.ErrState)
}

func TestExpire(t *testing.T) {
	t.Run("pending challenge is cancelled", func(t *testing.T) {
		s, err := battle.NewChallenge("b", "ash", "gary", battle.Singles1v1, t0)
		require.NoError(t, err)
		events := s.Expire(t0)
		require.Len(t, events, 1)
		assert.Equal(t, battle.EventCancelled, events[0].Kind)
		assert.Equal(t, battle.FinishExpired, s.Reason)
		assert.False(t, s.Rated())
	})

	tackle := move(t, "tackle")
	newActive := func() *battle.State {
		return activeBattle(t,
			[]*battle.Pokemon{mon("a", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle})},
			[]*battle.Pokemon{mon("b", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle})},
		)
	}

	t.Run("idle side loses", func(t *testing.T) {
		s := newActive()
		_, err := s.SubmitAction("gary", 0, battle.MoveAction{}, t0)
		require.NoError(t, err)
		s.Expire(t0)
		assert.Equal(t, "gary", s.Winner)
		assert.Equal(t, battle.FinishAbandoned, s.Reason)
		assert.True(t, s.Rated())
	})

	t.Run("nobody acted is a draw", func(t *testing.T) {
		s := newActive()
		s.Expire(t0)
		assert.True(t, s.Draw)
		assert.True(t, s.Rated())
	})
}

func TestFail_IsUnratedDraw(t *testing.T) {
	s, err := battle.NewChallenge("b", "ash", "gary", battle.Singles1v1, t0)
	require.NoError(t, err)
	s.Fail("bad data", t0)
	assert.Equal(t, battle.StatusFinished, s.Status)
	assert.True(t, s.Draw)
	assert.Equal(t, "bad data", s.FailureReason)
	assert.False(t, s.Rated())
	_, ok := s.Outcome()
	assert.False(t, ok)
}

func TestOutcome(t *testing.T) {
	s, err := battle.NewChallenge("b", "ash", "gary", battle.Singles1v1, t0)
	require.NoError(t, err)
	_, ok := s.Outcome()
	assert.False(t, ok, "open battles have no outcome")

	require.NoError(t, s.Decline("gary", t0))
	_, ok = s.Outcome()
	assert.False(t, ok, "declined battles are unrated")

	tackle := move(t, "tackle")
	s = activeBattle(t,
		[]*battle.Pokemon{mon("a", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle})},
		[]*battle.Pokemon{mon("b", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle})},
	)
	_, err = s.SubmitAction("ash", 0, battle.MoveAction{}, t0)
	require.NoError(t, err)
	s.Expire(t0)
	o, ok := s.Outcome()
	require.True(t, ok)
	assert.Equal(t, rating.Outcome{Winner: "ash", Loser: "gary"}, o)
}

func TestState_CloneIsDeep(t *testing.T) {
	tackle := move(t, "tackle")
	s := activeBattle(t,
		[]*battle.Pokemon{mon("a", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle})},
		[]*battle.Pokemon{mon("b", []pokemon.Type{pokemon.Normal}, 50, []moves.Move{tackle})},
	)
	c, err := s.Clone()
	require.NoError(t, err)
	assert.Equal(t, s.Teams[0].Members[0].Stats, c.Teams[0].Members[0].Stats)
	c.Teams[0].Members[0].CurrentHP = 1
	assert.Equal(t, 160, s.Teams[0].Members[0].CurrentHP)
}

func TestActionRecord_RoundTrip(t *testing.T) {
	for _, a := range []battle.Action{battle.MoveAction{Index: 2}, battle.SwitchAction{Slot: 1}, battle.ForfeitAction{}} {
		got, err := battle.Record(a).Action()
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := battle.ActionRecord{}.Action()
	assert.ErrorIs(t, err, battle.ErrValidation)
}
