package gameserver

import (
	"context"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/rating"
)

// Roster supplies a trainer's collection in selection order.
type Roster interface {
	// Roster returns playerID's entries. An unknown player has an empty roster.
	Roster(ctx context.Context, playerID string) ([]battle.RosterEntry, error)
}

// Store is durable storage for battle records and ratings.
//
// Implementations must ignore SaveBattle for a battle already stored as
// finished, and FinishBattle must apply ratings at most once per battle.
type Store interface {
	// SaveBattle upserts the battle record.
	SaveBattle(ctx context.Context, s *battle.State) error
	// FinishBattle writes the final battle record and, when the battle is
	// rated, both players' rating rows in one transaction. It sets
	// s.RatingChanges and returns the changes applied.
	FinishBattle(ctx context.Context, s *battle.State, k int) ([]rating.Change, error)
	// LoadBattle returns the stored battle, or an error wrapping
	// battle.ErrNotFound.
	LoadBattle(ctx context.Context, id string) (*battle.State, error)
	// ListCompleted returns playerID's finished battles, newest first.
	ListCompleted(ctx context.Context, playerID string, limit int) ([]battle.Summary, error)
	// Leaderboard returns one page of standings ordered by key.
	Leaderboard(ctx context.Context, key rating.SortKey, limit, offset int) ([]rating.Standing, error)
	// Standing returns playerID's record with its position by rating. A
	// player without rated battles gets the default record at position 0.
	Standing(ctx context.Context, playerID string) (rating.Standing, error)
}
