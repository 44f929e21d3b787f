package rating

import (
	"slices"
	"strings"
	"time"
)

// Record is a player's rating and battle tally.
type Record struct {
	PlayerID  string    `json:"player_id"`
	Rating    int       `json:"rating"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Draws     int       `json:"draws"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord returns the starting record for a player.
func NewRecord(playerID string) Record {
	return Record{PlayerID: playerID, Rating: DefaultRating}
}

// Rank returns the record's rank name.
func (r Record) Rank() string { return ComputeRank(r.Rating) }

// Played returns the number of rated battles.
func (r Record) Played() int { return r.Wins + r.Losses + r.Draws }

// WinRate returns wins as a fraction of rated battles, or 0 with none played.
func (r Record) WinRate() float64 {
	if r.Played() == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Played())
}

// Outcome describes a finished rated battle. Winner and Loser are both empty
// for a draw.
type Outcome struct {
	Winner string
	Loser  string
	Draw   bool
}

// Change is one player's rating movement.
type Change struct {
	PlayerID string `json:"player_id"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
	Delta    int    `json:"delta"`
}

// ApplyOutcome updates a and b for outcome and returns their changes in the same
// order. Stored ratings never go below zero.
//
// Precondition: a and b are the two participants; for a decisive outcome one
// of them is outcome.Winner and the other outcome.Loser.
func ApplyOutcome(outcome Outcome, a, b *Record, k int, now time.Time) (Change, Change) {
	before := [2]int{a.Rating, b.Rating}
	switch {
	case outcome.Draw:
		da, db := CalculateDrawChange(a.Rating, b.Rating, k)
		a.Rating += da
		b.Rating += db
		a.Draws++
		b.Draws++
	case outcome.Winner == a.PlayerID:
		dw, dl := CalculateEloChange(a.Rating, b.Rating, k)
		a.Rating += dw
		b.Rating += dl
		a.Wins++
		b.Losses++
	default:
		dw, dl := CalculateEloChange(b.Rating, a.Rating, k)
		b.Rating += dw
		a.Rating += dl
		b.Wins++
		a.Losses++
	}
	a.Rating = max(0, a.Rating)
	b.Rating = max(0, b.Rating)
	a.UpdatedAt, b.UpdatedAt = now, now
	return Change{PlayerID: a.PlayerID, Before: before[0], After: a.Rating, Delta: a.Rating - before[0]},
		Change{PlayerID: b.PlayerID, Before: before[1], After: b.Rating, Delta: b.Rating - before[1]}
}

// SortKey selects the leaderboard ordering.
type SortKey string

const (
	SortByRating SortKey = "elo"
	SortByWins   SortKey = "wins"
	SortByLosses SortKey = "losses"
)

// ParseSortKey maps a query value to a SortKey; empty means SortByRating.
func ParseSortKey(s string) (SortKey, bool) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByRating:
		return SortByRating, true
	case SortByWins:
		return SortByWins, true
	case SortByLosses:
		return SortByLosses, true
	default:
		return "", false
	}
}

// Sort orders records for a leaderboard, highest first, ties by player id.
func Sort(records []Record, key SortKey) {
	val := func(r Record) int {
		switch key {
		case SortByWins:
			return r.Wins
		case SortByLosses:
			return r.Losses
		default:
			return r.Rating
		}
	}
	slices.SortStableFunc(records, func(x, y Record) int {
		if d := val(y) - val(x); d != 0 {
			return d
		}
		return strings.Compare(x.PlayerID, y.PlayerID)
	})
}

// Standing is a record placed on the leaderboard.
type Standing struct {
	Record
	Rank     string  `json:"rank"`
	Position int     `json:"position"`
	WinRate  float64 `json:"win_rate"`
}

// NewStanding wraps r with its derived fields. position is 1-based; 0 means
// unranked.
func NewStanding(r Record, position int) Standing {
	return Standing{Record: r, Rank: r.Rank(), Position: position, WinRate: r.WinRate()}
}
