package battle

import (
	"encoding/json"
	"fmt"
	"time"
)

// NewChallenge creates a PENDING battle from challenger to opponent.
//
// Precondition: id is unique.
// Postcondition: Status == StatusPending; Players == [challenger, opponent].
func NewChallenge(id, challenger, opponent string, format Format, now time.Time) (*State, error) {
	if challenger == "" || opponent == "" {
		return nil, fmt.Errorf("%w: challenger and opponent are required", ErrValidation)
	}
	if challenger == opponent {
		return nil, fmt.Errorf("%w: cannot challenge yourself", ErrValidation)
	}
	if format.TeamSize() == 0 {
		return nil, fmt.Errorf("%w: unknown battle format", ErrValidation)
	}
	return &State{
		ID:        id,
		Format:    format,
		Status:    StatusPending,
		Players:   [2]string{challenger, opponent},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *State) advance(next Status, now time.Time) error {
	if !s.Status.canAdvance(next) {
		return fmt.Errorf("%w: battle %s cannot move from %s to %s", ErrState, s.ID, s.Status, next)
	}
	s.Status = next
	s.UpdatedAt = now
	return nil
}

// respond checks that responder may answer the challenge.
func (s *State) respond(responder string) error {
	side, ok := s.Side(responder)
	if !ok {
		return fmt.Errorf("%w: %s is not part of battle %s", ErrNotFound, responder, s.ID)
	}
	if s.Status != StatusPending {
		return fmt.Errorf("%w: battle %s is %s, not pending", ErrState, s.ID, s.Status)
	}
	if side != 1 {
		return fmt.Errorf("%w: only the challenged player can respond", ErrValidation)
	}
	return nil
}

// Accept moves a PENDING battle to TEAM_SUBMISSION.
//
// Precondition: responder is the challenged player.
func (s *State) Accept(responder string, now time.Time) error {
	if err := s.respond(responder); err != nil {
		return err
	}
	return s.advance(StatusTeamSubmission, now)
}

// Decline ends a PENDING battle with no winner. Declined battles are unrated.
func (s *State) Decline(responder string, now time.Time) error {
	if err := s.respond(responder); err != nil {
		return err
	}
	s.finish("", false, FinishDeclined, now)
	return nil
}

// ExpectsTeam returns nil if playerID may submit a team now, otherwise the
// error SubmitTeam would return.
func (s *State) ExpectsTeam(playerID string) error {
	side, ok := s.Side(playerID)
	if !ok {
		return fmt.Errorf("%w: %s is not part of battle %s", ErrNotFound, playerID, s.ID)
	}
	if s.Status != StatusTeamSubmission {
		return fmt.Errorf("%w: battle %s is %s, not accepting teams", ErrState, s.ID, s.Status)
	}
	if s.Teams[side] != nil {
		return fmt.Errorf("%w: %s already submitted a team", ErrConflict, playerID)
	}
	return nil
}

// SubmitTeam records playerID's team. The battle becomes ACTIVE once both
// teams are in.
//
// Precondition: team was built for s.Format.
// Postcondition: on error s is unchanged.
func (s *State) SubmitTeam(playerID string, team *Team, now time.Time) error {
	if err := s.ExpectsTeam(playerID); err != nil {
		return err
	}
	side, _ := s.Side(playerID)
	if team == nil || len(team.Members) != s.Format.TeamSize() {
		return fmt.Errorf("%w: team must have %d members", ErrValidation, s.Format.TeamSize())
	}
	initial, err := cloneTeam(team)
	if err != nil {
		return err
	}
	team.PlayerID = playerID
	initial.PlayerID = playerID
	s.Teams[side] = team
	s.InitialTeams[side] = initial
	s.UpdatedAt = now
	if s.Teams[0] != nil && s.Teams[1] != nil {
		return s.advance(StatusActive, now)
	}
	return nil
}

// SubmitAction records playerID's action for turn. turn 0 means the open turn.
// A resubmission before resolution replaces the earlier action.
//
// Postcondition: ready is true iff both players now have a pending action or
// either has forfeited; on error s is unchanged.
func (s *State) SubmitAction(playerID string, turn int, a Action, now time.Time) (ready bool, err error) {
	side, ok := s.Side(playerID)
	if !ok {
		return false, fmt.Errorf("%w: %s is not part of battle %s", ErrNotFound, playerID, s.ID)
	}
	if s.Status != StatusActive {
		return false, fmt.Errorf("%w: battle %s is %s, not active", ErrState, s.ID, s.Status)
	}
	open := s.Turn + 1
	switch {
	case turn == 0 || turn == open:
	case turn < open:
		return false, fmt.Errorf("%w: turn %d already resolved", ErrConflict, turn)
	default:
		return false, fmt.Errorf("%w: turn %d is not open, current turn is %d", ErrValidation, turn, open)
	}
	if a == nil {
		return false, fmt.Errorf("%w: action is required", ErrValidation)
	}
	if err := validateAction(s.Teams[side], a); err != nil {
		return false, err
	}
	rec := Record(a)
	s.Pending[side] = &rec
	s.UpdatedAt = now
	return s.resolvable(), nil
}

func validateAction(t *Team, a Action) error {
	switch act := a.(type) {
	case ForfeitAction:
		return nil
	case MoveAction:
		if t.MustSwitch {
			return fmt.Errorf("%w: active pokemon fainted, a switch is required", ErrValidation)
		}
		active := t.ActivePokemon()
		if act.Index < 0 || act.Index >= len(active.Moves) {
			return fmt.Errorf("%w: move index %d out of range", ErrValidation, act.Index)
		}
		// With every move spent any index selects Struggle.
		if active.OutOfPP() {
			return nil
		}
		slot := active.Moves[act.Index]
		if slot.Disabled {
			return fmt.Errorf("%w: %s is disabled", ErrValidation, slot.Move.Name)
		}
		if slot.PP <= 0 {
			return fmt.Errorf("%w: %s has no PP left", ErrValidation, slot.Move.Name)
		}
		return nil
	case SwitchAction:
		if act.Slot < 0 || act.Slot >= len(t.Members) {
			return fmt.Errorf("%w: switch slot %d out of range", ErrValidation, act.Slot)
		}
		if act.Slot == t.Active {
			return fmt.Errorf("%w: %s is already active", ErrValidation, t.Members[act.Slot].Name())
		}
		if t.Members[act.Slot].IsFainted() {
			return fmt.Errorf("%w: %s has fainted", ErrValidation, t.Members[act.Slot].Name())
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported action %T", ErrValidation, a)
	}
}

// Expire ends a battle that sat idle too long. A challenge or team submission
// is cancelled without a winner. In an active battle the side that failed to
// act loses; when neither side acted the battle is a draw.
//
// Postcondition: Status == StatusFinished.
func (s *State) Expire(now time.Time) []TurnEvent {
	if s.Status == StatusFinished {
		return nil
	}
	log := eventLog{turn: s.Turn + 1}
	if s.Status != StatusActive {
		log.add(TurnEvent{Kind: EventCancelled, Detail: "idle timeout"})
		s.History = append(s.History, log.events...)
		s.finish("", false, FinishExpired, now)
		return log.events
	}
	switch {
	case s.Pending[0] != nil && s.Pending[1] == nil:
		log.add(TurnEvent{Kind: EventForfeit, Actor: s.Players[1], Detail: "idle timeout"})
		log.add(TurnEvent{Kind: EventWin, Actor: s.Players[0]})
		s.finish(s.Players[0], false, FinishAbandoned, now)
	case s.Pending[1] != nil && s.Pending[0] == nil:
		log.add(TurnEvent{Kind: EventForfeit, Actor: s.Players[0], Detail: "idle timeout"})
		log.add(TurnEvent{Kind: EventWin, Actor: s.Players[1]})
		s.finish(s.Players[1], false, FinishAbandoned, now)
	default:
		log.add(TurnEvent{Kind: EventDraw, Detail: "idle timeout"})
		s.finish("", true, FinishAbandoned, now)
	}
	s.History = append(s.History, log.events...)
	return log.events
}

// Fail ends the battle as an unrated draw after an internal fault.
func (s *State) Fail(reason string, now time.Time) {
	if s.Status == StatusFinished {
		return
	}
	log := eventLog{turn: s.Turn + 1}
	log.add(TurnEvent{Kind: EventFailure, Detail: reason})
	s.History = append(s.History, log.events...)
	s.FailureReason = reason
	s.finish("", true, FinishFailure, now)
}

func (s *State) finish(winner string, draw bool, reason FinishReason, now time.Time) {
	s.Status = StatusFinished
	s.Winner = winner
	s.Draw = draw
	s.Reason = reason
	s.Pending = [2]*ActionRecord{}
	s.UpdatedAt = now
	s.FinishedAt = &now
}

func cloneTeam(t *Team) (*Team, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("cloning team: %w", err)
	}
	var out Team
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cloning team: %w", err)
	}
	return &out, nil
}
