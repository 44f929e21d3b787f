// Package memory provides in-process battle, rating and roster storage for
// development and tests.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/rating"
)

// Store keeps battle records and ratings in memory. Battle records are stored
// encoded so callers never share memory with the store.
// All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	battles map[string][]byte
	ratings map[string]rating.Record
	changes []ChangeRow
	// failNext, when set, is returned by the next write and then cleared.
	failNext error
	encode   func(*battle.State) ([]byte, error)
}

// ChangeRow is one rating movement in the append-only change log.
type ChangeRow struct {
	BattleID string
	rating.Change
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		battles: make(map[string][]byte),
		ratings: make(map[string]rating.Record),
		encode:  encode,
	}
}

// FailNextWrite makes the next SaveBattle or FinishBattle return err.
func (m *Store) FailNextWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *Store) injected() error {
	err := m.failNext
	m.failNext = nil
	return err
}

// SaveBattle upserts s unless the stored copy has already finished.
func (m *Store) SaveBattle(ctx context.Context, s *battle.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected(); err != nil {
		return err
	}
	if prev, ok := m.decodeLocked(s.ID); ok && prev.Status == battle.StatusFinished {
		return nil
	}
	return m.putLocked(s)
}

// FinishBattle stores the final record of s and applies its rating outcome.
// Repeating the call for a stored finished battle returns the changes from
// the first call.
//
// Postcondition: s.RatingChanges holds the applied changes.
func (m *Store) FinishBattle(ctx context.Context, s *battle.State, k int) ([]rating.Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected(); err != nil {
		return nil, err
	}
	if s.Status != battle.StatusFinished {
		return nil, fmt.Errorf("%w: battle %s is %s, not finished", battle.ErrValidation, s.ID, s.Status)
	}
	if prev, ok := m.decodeLocked(s.ID); ok && prev.Status == battle.StatusFinished {
		s.RatingChanges = prev.RatingChanges
		return prev.RatingChanges, nil
	}
	var (
		changes []rating.Change
		a, b    rating.Record
	)
	outcome, rated := s.Outcome()
	if rated {
		a, b = m.recordLocked(s.Players[0]), m.recordLocked(s.Players[1])
		ca, cb := rating.ApplyOutcome(outcome, &a, &b, k, *s.FinishedAt)
		changes = []rating.Change{ca, cb}
	}
	// Nothing is committed until the record encodes.
	prevChanges := s.RatingChanges
	s.RatingChanges = changes
	data, err := m.encode(s)
	if err != nil {
		s.RatingChanges = prevChanges
		return nil, err
	}
	m.battles[s.ID] = data
	if rated {
		m.ratings[a.PlayerID] = a
		m.ratings[b.PlayerID] = b
		for _, c := range changes {
			m.changes = append(m.changes, ChangeRow{BattleID: s.ID, Change: c})
		}
	}
	return changes, nil
}

// LoadBattle returns a copy of the stored battle.
func (m *Store) LoadBattle(ctx context.Context, id string) (*battle.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.decodeLocked(id)
	if !ok {
		return nil, fmt.Errorf("%w: battle %s", battle.ErrNotFound, id)
	}
	return s, nil
}

// ListCompleted returns playerID's finished battles, newest first.
func (m *Store) ListCompleted(ctx context.Context, playerID string, limit int) ([]battle.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []battle.Summary
	for id := range m.battles {
		s, _ := m.decodeLocked(id)
		if _, ok := s.Side(playerID); ok && s.Status == battle.StatusFinished {
			out = append(out, s.Summarize())
		}
	}
	slices.SortFunc(out, func(a, b battle.Summary) int {
		if c := b.FinishedAt.Compare(*a.FinishedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Leaderboard returns one page of standings ordered by key.
func (m *Store) Leaderboard(ctx context.Context, key rating.SortKey, limit, offset int) ([]rating.Standing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.sortedLocked(key)
	if offset >= len(records) {
		return []rating.Standing{}, nil
	}
	end := len(records)
	if limit > 0 {
		end = min(end, offset+limit)
	}
	out := make([]rating.Standing, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, rating.NewStanding(records[i], i+1))
	}
	return out, nil
}

// Standing returns playerID's record and position by rating.
func (m *Store) Standing(ctx context.Context, playerID string) (rating.Standing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ratings[playerID]
	if !ok {
		return rating.NewStanding(rating.NewRecord(playerID), 0), nil
	}
	pos := slices.IndexFunc(m.sortedLocked(rating.SortByRating), func(x rating.Record) bool {
		return x.PlayerID == playerID
	})
	return rating.NewStanding(r, pos+1), nil
}

// Changes returns the rating change log in write order.
func (m *Store) Changes() []ChangeRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.changes)
}

func (m *Store) sortedLocked(key rating.SortKey) []rating.Record {
	records := make([]rating.Record, 0, len(m.ratings))
	for _, r := range m.ratings {
		records = append(records, r)
	}
	rating.Sort(records, key)
	return records
}

func (m *Store) recordLocked(playerID string) rating.Record {
	if r, ok := m.ratings[playerID]; ok {
		return r
	}
	return rating.NewRecord(playerID)
}

func (m *Store) putLocked(s *battle.State) error {
	data, err := m.encode(s)
	if err != nil {
		return err
	}
	m.battles[s.ID] = data
	return nil
}

func encode(s *battle.State) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding battle %s: %w", s.ID, err)
	}
	return data, nil
}

func (m *Store) decodeLocked(id string) (*battle.State, bool) {
	data, ok := m.battles[id]
	if !ok {
		return nil, false
	}
	var s battle.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false
	}
	return &s, true
}
