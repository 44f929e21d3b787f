package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/rating"
)

// BattleStore persists battle records, ratings and the rating change log.
type BattleStore struct {
	db *pgxpool.Pool
}

// NewBattleStore creates a BattleStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with migrations applied.
func NewBattleStore(db *pgxpool.Pool) *BattleStore {
	return &BattleStore{db: db}
}

const upsertBattle = `
	INSERT INTO battles
		(id, format, status, challenger_id, opponent_id, winner_id, draw, reason,
		 turn, state, created_at, updated_at, finished_at)
	VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9,$10,$11,$12,$13)
	ON CONFLICT (id) DO UPDATE SET
		status      = EXCLUDED.status,
		winner_id   = EXCLUDED.winner_id,
		draw        = EXCLUDED.draw,
		reason      = EXCLUDED.reason,
		turn        = EXCLUDED.turn,
		state       = EXCLUDED.state,
		updated_at  = EXCLUDED.updated_at,
		finished_at = EXCLUDED.finished_at
	WHERE battles.status <> 'finished'`

func battleArgs(s *battle.State) ([]any, error) {
	state, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding battle %s: %w", s.ID, err)
	}
	return []any{
		s.ID, s.Format.String(), s.Status.String(), s.Players[0], s.Players[1],
		s.Winner, s.Draw, string(s.Reason), s.Turn, state,
		s.CreatedAt, s.UpdatedAt, s.FinishedAt,
	}, nil
}

// SaveBattle upserts s. A battle already stored as finished is left alone.
//
// Postcondition: Returns nil or a non-nil error; a finished row is never overwritten.
func (r *BattleStore) SaveBattle(ctx context.Context, s *battle.State) error {
	args, err := battleArgs(s)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, upsertBattle, args...); err != nil {
		return fmt.Errorf("saving battle %s: %w", s.ID, err)
	}
	return nil
}

// FinishBattle writes the final record of s together with both rating rows
// and the change log in one transaction. Replaying the call for a battle
// already stored as finished returns the changes recorded the first time.
//
// Precondition: s.Status == battle.StatusFinished.
// Postcondition: s.RatingChanges holds the applied changes; ratings are updated
// at most once per battle.
func (r *BattleStore) FinishBattle(ctx context.Context, s *battle.State, k int) ([]rating.Change, error) {
	if s.Status != battle.StatusFinished {
		return nil, fmt.Errorf("%w: battle %s is %s, not finished", battle.ErrValidation, s.ID, s.Status)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var prev []byte
	err = tx.QueryRow(ctx,
		`SELECT state FROM battles WHERE id = $1 AND status = 'finished' FOR UPDATE`, s.ID,
	).Scan(&prev)
	switch {
	case err == nil:
		var stored battle.State
		if err := json.Unmarshal(prev, &stored); err != nil {
			return nil, fmt.Errorf("decoding battle %s: %w", s.ID, err)
		}
		s.RatingChanges = stored.RatingChanges
		return stored.RatingChanges, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("locking battle %s: %w", s.ID, err)
	}

	var changes []rating.Change
	if outcome, ok := s.Outcome(); ok {
		a, b, err := lockRecords(ctx, tx, s.Players[0], s.Players[1])
		if err != nil {
			return nil, err
		}
		ca, cb := rating.ApplyOutcome(outcome, &a, &b, k, *s.FinishedAt)
		changes = []rating.Change{ca, cb}
		for _, rec := range []rating.Record{a, b} {
			if _, err := tx.Exec(ctx, `
				UPDATE ratings SET rating = $2, wins = $3, losses = $4, draws = $5, updated_at = $6
				WHERE player_id = $1`,
				rec.PlayerID, rec.Rating, rec.Wins, rec.Losses, rec.Draws, rec.UpdatedAt,
			); err != nil {
				return nil, fmt.Errorf("updating rating of %s: %w", rec.PlayerID, err)
			}
		}
	}
	s.RatingChanges = changes

	args, err := battleArgs(s)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, upsertBattle, args...); err != nil {
		return nil, fmt.Errorf("saving battle %s: %w", s.ID, err)
	}
	for _, c := range changes {
		if _, err := tx.Exec(ctx, `
			INSERT INTO rating_changes (battle_id, player_id, before_rating, after_rating, delta, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			s.ID, c.PlayerID, c.Before, c.After, c.Delta, *s.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("recording rating change of %s: %w", c.PlayerID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return changes, nil
}

// lockRecords creates missing rating rows and locks both, always in player id
// order so concurrent finishes cannot deadlock.
func lockRecords(ctx context.Context, tx pgx.Tx, a, b string) (rating.Record, rating.Record, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO ratings (player_id, rating) VALUES ($1, $3), ($2, $3)
		ON CONFLICT (player_id) DO NOTHING`,
		a, b, rating.DefaultRating,
	); err != nil {
		return rating.Record{}, rating.Record{}, fmt.Errorf("creating rating rows: %w", err)
	}
	rows, err := tx.Query(ctx, `
		SELECT player_id, rating, wins, losses, draws, updated_at
		FROM ratings WHERE player_id = ANY($1) ORDER BY player_id FOR UPDATE`,
		[]string{a, b},
	)
	if err != nil {
		return rating.Record{}, rating.Record{}, fmt.Errorf("locking rating rows: %w", err)
	}
	recs, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return rating.Record{}, rating.Record{}, fmt.Errorf("reading rating rows: %w", err)
	}
	byID := make(map[string]rating.Record, len(recs))
	for _, rec := range recs {
		byID[rec.PlayerID] = rec
	}
	return byID[a], byID[b], nil
}

func scanRecord(row pgx.CollectableRow) (rating.Record, error) {
	var rec rating.Record
	err := row.Scan(&rec.PlayerID, &rec.Rating, &rec.Wins, &rec.Losses, &rec.Draws, &rec.UpdatedAt)
	return rec, err
}

// LoadBattle returns the stored battle.
//
// Postcondition: Returns an error wrapping battle.ErrNotFound when no row exists.
func (r *BattleStore) LoadBattle(ctx context.Context, id string) (*battle.State, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT state FROM battles WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: battle %s", battle.ErrNotFound, id)
		}
		return nil, fmt.Errorf("loading battle %s: %w", id, err)
	}
	var s battle.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding battle %s: %w", id, err)
	}
	return &s, nil
}

// ListCompleted returns playerID's finished battles, newest first.
func (r *BattleStore) ListCompleted(ctx context.Context, playerID string, limit int) ([]battle.Summary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT state FROM battles
		WHERE status = 'finished' AND (challenger_id = $1 OR opponent_id = $1)
		ORDER BY finished_at DESC, id ASC
		LIMIT $2`,
		playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing battles of %s: %w", playerID, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (battle.Summary, error) {
		var data []byte
		if err := row.Scan(&data); err != nil {
			return battle.Summary{}, err
		}
		var s battle.State
		if err := json.Unmarshal(data, &s); err != nil {
			return battle.Summary{}, err
		}
		return s.Summarize(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading battles of %s: %w", playerID, err)
	}
	return out, nil
}

var leaderboardOrder = map[rating.SortKey]string{
	rating.SortByRating: "rating DESC, player_id ASC",
	rating.SortByWins:   "wins DESC, player_id ASC",
	rating.SortByLosses: "losses DESC, player_id ASC",
}

// Leaderboard returns one page of standings ordered by key.
//
// Precondition: key is one of the rating.SortBy constants; limit > 0; offset >= 0.
func (r *BattleStore) Leaderboard(ctx context.Context, key rating.SortKey, limit, offset int) ([]rating.Standing, error) {
	order, ok := leaderboardOrder[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sort key %q", battle.ErrValidation, key)
	}
	rows, err := r.db.Query(ctx, `
		SELECT player_id, rating, wins, losses, draws, updated_at
		FROM ratings ORDER BY `+order+` LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	recs, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard: %w", err)
	}
	out := make([]rating.Standing, len(recs))
	for i, rec := range recs {
		out[i] = rating.NewStanding(rec, offset+i+1)
	}
	return out, nil
}

// Standing returns playerID's record and its position by rating.
func (r *BattleStore) Standing(ctx context.Context, playerID string) (rating.Standing, error) {
	row := r.db.QueryRow(ctx, `
		SELECT player_id, rating, wins, losses, draws, updated_at
		FROM ratings WHERE player_id = $1`, playerID)
	var rec rating.Record
	err := row.Scan(&rec.PlayerID, &rec.Rating, &rec.Wins, &rec.Losses, &rec.Draws, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return rating.NewStanding(rating.NewRecord(playerID), 0), nil
	}
	if err != nil {
		return rating.Standing{}, fmt.Errorf("loading rating of %s: %w", playerID, err)
	}
	var ahead int
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM ratings
		WHERE rating > $1 OR (rating = $1 AND player_id < $2)`,
		rec.Rating, rec.PlayerID,
	).Scan(&ahead); err != nil {
		return rating.Standing{}, fmt.Errorf("ranking %s: %w", playerID, err)
	}
	return rating.NewStanding(rec, ahead+1), nil
}
