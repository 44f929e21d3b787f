package battle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cory-johannsen/pokedo/internal/game/rating"
)

// FinishReason records why a battle ended.
type FinishReason string

const (
	FinishNone      FinishReason = ""
	FinishForfeit   FinishReason = "forfeit"
	FinishKnockout  FinishReason = "knockout"
	FinishTurnLimit FinishReason = "turn_limit"
	FinishDeclined  FinishReason = "declined"
	FinishExpired   FinishReason = "expired"
	FinishAbandoned FinishReason = "abandoned"
	FinishFailure   FinishReason = "failure"
)

// TurnReplay is everything needed to re-run one resolved turn: the actions in
// side order and every random draw the engine consumed. An action is nil when
// the turn was cut short by the other side's forfeit.
type TurnReplay struct {
	Turn    int              `json:"turn"`
	Actions [2]*ActionRecord `json:"actions"`
	Draws   []int            `json:"draws"`
}

// State is the authoritative record of one battle. Side 0 is the challenger,
// side 1 the opponent.
//
// Invariant: Status only moves forward; History is append-only; Turn counts
// resolved turns, so the turn open for submissions is Turn+1.
type State struct {
	ID      string    `json:"id"`
	Format  Format    `json:"format"`
	Status  Status    `json:"status"`
	Players [2]string `json:"players"`
	Teams   [2]*Team  `json:"teams"`
	// InitialTeams are the snapshots taken at team submission, kept for replay.
	InitialTeams  [2]*Team         `json:"initial_teams"`
	Turn          int              `json:"turn"`
	Pending       [2]*ActionRecord `json:"pending"`
	History       []TurnEvent      `json:"history"`
	Replays       []TurnReplay     `json:"replays"`
	Winner        string           `json:"winner,omitempty"`
	Draw          bool             `json:"draw,omitempty"`
	Reason        FinishReason     `json:"reason,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
	RatingChanges []rating.Change  `json:"rating_changes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	FinishedAt    *time.Time       `json:"finished_at,omitempty"`
}

// Side returns the side index of playerID.
func (s *State) Side(playerID string) (int, bool) {
	switch playerID {
	case s.Players[0]:
		return 0, true
	case s.Players[1]:
		return 1, true
	default:
		return -1, false
	}
}

// Challenger returns the id of the player who issued the challenge.
func (s *State) Challenger() string { return s.Players[0] }

// Opponent returns the id of the challenged player.
func (s *State) Opponent() string { return s.Players[1] }

// Rated reports whether the finished battle moves ratings: it needs a winner or
// a genuine draw. Cancelled and failed battles are unrated.
func (s *State) Rated() bool {
	return s.Status == StatusFinished && s.Reason != FinishFailure && (s.Winner != "" || s.Draw)
}

// Outcome returns the rating outcome of a rated battle.
func (s *State) Outcome() (rating.Outcome, bool) {
	if !s.Rated() {
		return rating.Outcome{}, false
	}
	return rating.Outcome{Winner: s.Winner, Loser: s.Loser(), Draw: s.Draw}, true
}

// resolvable reports whether the open turn can be resolved: both actions are
// in, or either side has forfeited.
func (s *State) resolvable() bool {
	for _, p := range s.Pending {
		if p != nil && p.Kind == ActionForfeit {
			return true
		}
	}
	return s.Pending[0] != nil && s.Pending[1] != nil
}

// Loser returns the losing player's id, or "" if there is no winner.
func (s *State) Loser() string {
	switch s.Winner {
	case s.Players[0]:
		return s.Players[1]
	case s.Players[1]:
		return s.Players[0]
	default:
		return ""
	}
}

// Clone returns a deep copy that shares no memory with s.
func (s *State) Clone() (*State, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("cloning battle %s: %w", s.ID, err)
	}
	var out State
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cloning battle %s: %w", s.ID, err)
	}
	return &out, nil
}

// Summary is the list-view of a battle.
type Summary struct {
	ID            string          `json:"id"`
	Format        Format          `json:"format"`
	Status        Status          `json:"status"`
	Challenger    string          `json:"challenger"`
	Opponent      string          `json:"opponent"`
	Turn          int             `json:"turn"`
	Winner        string          `json:"winner,omitempty"`
	Draw          bool            `json:"draw,omitempty"`
	Reason        FinishReason    `json:"reason,omitempty"`
	RatingChanges []rating.Change `json:"rating_changes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
}

// Summarize returns the list-view of s.
func (s *State) Summarize() Summary {
	return Summary{
		ID:            s.ID,
		Format:        s.Format,
		Status:        s.Status,
		Challenger:    s.Players[0],
		Opponent:      s.Players[1],
		Turn:          s.Turn,
		Winner:        s.Winner,
		Draw:          s.Draw,
		Reason:        s.Reason,
		RatingChanges: append([]rating.Change(nil), s.RatingChanges...),
		CreatedAt:     s.CreatedAt,
		FinishedAt:    s.FinishedAt,
	}
}
