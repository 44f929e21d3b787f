package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
)

// RosterRepository reads and seeds trainers' collections.
type RosterRepository struct {
	db *pgxpool.Pool
}

// NewRosterRepository creates a RosterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRosterRepository(db *pgxpool.Pool) *RosterRepository {
	return &RosterRepository{db: db}
}

// Roster returns playerID's collection in position order.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *RosterRepository) Roster(ctx context.Context, playerID string) ([]battle.RosterEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, species, nickname, types, level, nature, base_stats, ivs, evs, moves
		FROM roster_pokemon WHERE player_id = $1 ORDER BY position ASC`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing roster of %s: %w", playerID, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (battle.RosterEntry, error) {
		var (
			e      battle.RosterEntry
			types  []string
			nature string
		)
		if err := row.Scan(&e.ID, &e.Species, &e.Nickname, &types, &e.Level, &nature,
			&e.BaseStats, &e.IVs, &e.EVs, &e.Moves); err != nil {
			return e, err
		}
		for _, name := range types {
			t, err := pokemon.ParseType(name)
			if err != nil {
				return e, fmt.Errorf("roster entry %d: %w", e.ID, err)
			}
			e.Types = append(e.Types, t)
		}
		n, err := pokemon.ParseNature(nature)
		if err != nil {
			return e, fmt.Errorf("roster entry %d: %w", e.ID, err)
		}
		e.Nature = n
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading roster of %s: %w", playerID, err)
	}
	return out, nil
}

// Replace swaps playerID's whole collection for entries in one transaction.
//
// Precondition: every entry passes RosterEntry.Validate.
// Postcondition: Roster returns entries in the given order with ids assigned.
func (r *RosterRepository) Replace(ctx context.Context, playerID string, entries []battle.RosterEntry) error {
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("roster of %s, entry %d: %w", playerID, i, err)
		}
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM roster_pokemon WHERE player_id = $1`, playerID); err != nil {
		return fmt.Errorf("clearing roster of %s: %w", playerID, err)
	}
	for i, e := range entries {
		types := make([]string, len(e.Types))
		for j, t := range e.Types {
			types[j] = t.String()
		}
		moves := e.Moves
		if moves == nil {
			moves = []string{}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO roster_pokemon
				(player_id, position, species, nickname, types, level, nature, base_stats, ivs, evs, moves)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			playerID, i, e.Species, e.Nickname, types, e.Level, e.Nature.String(),
			e.BaseStats, e.IVs, e.EVs, moves,
		); err != nil {
			return fmt.Errorf("inserting %s into roster of %s: %w", e.Species, playerID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
