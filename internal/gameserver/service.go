package gameserver

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/dice"
	"github.com/cory-johannsen/pokedo/internal/game/moves"
	"github.com/cory-johannsen/pokedo/internal/game/rating"
)

// Listing limits.
const (
	DefaultIdleTimeout = 24 * time.Hour
	DefaultListLimit   = 20
	MaxListLimit       = 100
)

// ActionResult reports what an accepted action caused.
type ActionResult struct {
	// Resolved is true when this action completed the turn.
	Resolved bool `json:"resolved"`
	// Turn is the number of resolved turns after the call.
	Turn   int                `json:"turn"`
	Status battle.Status      `json:"status"`
	Events []battle.TurnEvent `json:"events,omitempty"`
}

// session is one live battle. mu serialises every read and write of state and
// is the rendezvous point of the two players' submissions.
type session struct {
	mu    sync.Mutex
	state *battle.State
	src   dice.Source
	idle  *IdleTimer
}

// ServiceOption configures a BattleService.
type ServiceOption func(*BattleService)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *BattleService) { s.now = now }
}

// WithSourceFactory sets how each battle's random source is created.
func WithSourceFactory(fn func(battleID string) dice.Source) ServiceOption {
	return func(s *BattleService) { s.newSource = fn }
}

// WithIDGenerator replaces the battle id generator.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *BattleService) { s.newID = fn }
}

// WithIdleTimeout sets how long a battle may sit without activity before it
// expires. Zero disables expiry.
func WithIdleTimeout(d time.Duration) ServiceOption {
	return func(s *BattleService) { s.idleTimeout = d }
}

// BattleService owns every live battle session. Operations on different
// battles never block each other. All methods are safe for concurrent use.
type BattleService struct {
	engine    *battle.Engine
	pool      *moves.Pool
	roster    Roster
	store     Store
	persister *Persister
	logger    *zap.Logger

	now         func() time.Time
	newSource   func(battleID string) dice.Source
	newID       func() string
	idleTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewBattleService creates a BattleService.
//
// Precondition: all arguments must be non-nil; persister must be started by
// the caller.
// Postcondition: Returns a service with no live sessions.
func NewBattleService(
	engine *battle.Engine,
	pool *moves.Pool,
	roster Roster,
	store Store,
	persister *Persister,
	logger *zap.Logger,
	opts ...ServiceOption,
) *BattleService {
	svc := &BattleService{
		engine:      engine,
		pool:        pool,
		roster:      roster,
		store:       store,
		persister:   persister,
		logger:      logger,
		now:         time.Now,
		newSource:   func(string) dice.Source { return dice.NewCryptoSource() },
		newID:       uuid.NewString,
		idleTimeout: DefaultIdleTimeout,
		sessions:    make(map[string]*session),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Challenge opens a PENDING battle from challengerID to opponentID.
//
// Postcondition: the returned summary has Status == battle.StatusPending.
func (svc *BattleService) Challenge(ctx context.Context, challengerID, opponentID string, format battle.Format) (battle.Summary, error) {
	st, err := battle.NewChallenge(svc.newID(), challengerID, opponentID, format, svc.now())
	if err != nil {
		return battle.Summary{}, err
	}
	sess := &session{state: st, src: svc.newSource(st.ID)}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	svc.mu.Lock()
	svc.sessions[st.ID] = sess
	svc.mu.Unlock()

	svc.logger.Info("battle challenge issued",
		zap.String("battle_id", st.ID),
		zap.String("challenger", challengerID),
		zap.String("opponent", opponentID),
		zap.Stringer("format", format),
	)
	svc.commitLocked(sess)
	return st.Summarize(), nil
}

// Accept moves a PENDING battle to team submission.
func (svc *BattleService) Accept(ctx context.Context, battleID, responderID string) (battle.Summary, error) {
	return svc.respond(ctx, battleID, responderID, (*battle.State).Accept)
}

// Decline ends a PENDING battle with no winner.
func (svc *BattleService) Decline(ctx context.Context, battleID, responderID string) (battle.Summary, error) {
	return svc.respond(ctx, battleID, responderID, (*battle.State).Decline)
}

func (svc *BattleService) respond(ctx context.Context, battleID, responderID string, fn func(*battle.State, string, time.Time) error) (battle.Summary, error) {
	var out battle.Summary
	err := svc.mutate(ctx, battleID, responderID, func(sess *session) error {
		if err := fn(sess.state, responderID, svc.now()); err != nil {
			return err
		}
		out = sess.state.Summarize()
		svc.logger.Info("battle challenge answered",
			zap.String("battle_id", battleID),
			zap.String("responder", responderID),
			zap.Stringer("status", out.Status),
		)
		return nil
	})
	return out, err
}

// SubmitTeam snapshots the first N entries of playerID's roster, N being the
// battle format's team size.
//
// Postcondition: the battle is ACTIVE once both teams are in.
func (svc *BattleService) SubmitTeam(ctx context.Context, battleID, playerID string) (battle.Summary, error) {
	if err := svc.peek(ctx, battleID, playerID, func(st *battle.State) error {
		return st.ExpectsTeam(playerID)
	}); err != nil {
		return battle.Summary{}, err
	}
	entries, err := svc.roster.Roster(ctx, playerID)
	if err != nil {
		return battle.Summary{}, fmt.Errorf("loading roster of %s: %w", playerID, err)
	}

	var out battle.Summary
	err = svc.mutate(ctx, battleID, playerID, func(sess *session) error {
		st := sess.state
		if err := st.ExpectsTeam(playerID); err != nil {
			return err
		}
		team, err := battle.NewTeam(st.ID, playerID, st.Format, entries, svc.pool)
		if err != nil {
			return err
		}
		if err := st.SubmitTeam(playerID, team, svc.now()); err != nil {
			return err
		}
		out = st.Summarize()
		svc.logger.Info("team submitted",
			zap.String("battle_id", battleID),
			zap.String("player", playerID),
			zap.Stringer("status", out.Status),
		)
		return nil
	})
	return out, err
}

// SubmitAction records playerID's action for turn (0 means the open turn).
// The turn resolves in the same call once both actions are in, or at once on
// a forfeit.
//
// Postcondition: on error the battle is unchanged.
func (svc *BattleService) SubmitAction(ctx context.Context, battleID, playerID string, turn int, a battle.Action) (ActionResult, error) {
	var res ActionResult
	err := svc.mutate(ctx, battleID, playerID, func(sess *session) error {
		st := sess.state
		ready, err := st.SubmitAction(playerID, turn, a, svc.now())
		if err != nil {
			return err
		}
		if ready {
			res.Events = svc.resolveLocked(sess)
			res.Resolved = true
		}
		res.Turn = st.Turn
		res.Status = st.Status
		return nil
	})
	return res, err
}

// resolveLocked runs the open turn. A fault inside the engine ends this
// battle as an unrated draw and never reaches other sessions.
//
// Precondition: caller holds sess.mu; both actions are pending.
func (svc *BattleService) resolveLocked(sess *session) (events []battle.TurnEvent) {
	st := sess.state
	fail := func(reason string) []battle.TurnEvent {
		st.Fail(reason, svc.now())
		return slices.Clone(st.History[len(st.History)-1:])
	}
	defer func() {
		if r := recover(); r != nil {
			svc.logger.Error("turn resolution panicked",
				zap.String("battle_id", st.ID),
				zap.Int("turn", st.Turn+1),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			events = fail(fmt.Sprintf("turn %d resolution failed: %v", st.Turn+1, r))
		}
	}()

	events, err := svc.engine.ResolveTurn(st, sess.src, svc.now())
	if err != nil {
		svc.logger.Error("turn resolution failed",
			zap.String("battle_id", st.ID),
			zap.Int("turn", st.Turn+1),
			zap.Error(err),
		)
		return fail(err.Error())
	}
	svc.logger.Debug("turn resolved",
		zap.String("battle_id", st.ID),
		zap.Int("turn", st.Turn),
		zap.Int("events", len(events)),
	)
	if st.Status == battle.StatusFinished {
		svc.logger.Info("battle finished",
			zap.String("battle_id", st.ID),
			zap.String("winner", st.Winner),
			zap.Bool("draw", st.Draw),
			zap.String("reason", string(st.Reason)),
		)
	}
	return slices.Clone(events)
}

// GetState returns requesterID's censored view of the battle.
func (svc *BattleService) GetState(ctx context.Context, battleID, requesterID string) (battle.View, error) {
	var view battle.View
	err := svc.read(ctx, battleID, func(st *battle.State) error {
		v, err := st.ViewFor(requesterID)
		view = v
		return err
	})
	return view, err
}

// GetHistory returns every event of the battle in order.
func (svc *BattleService) GetHistory(ctx context.Context, battleID string) ([]battle.TurnEvent, error) {
	var out []battle.TurnEvent
	err := svc.read(ctx, battleID, func(st *battle.State) error {
		out = slices.Clone(st.History)
		return nil
	})
	return out, err
}

// GetCompletedHistory returns up to limit of playerID's finished battles,
// newest first. limit 0 means DefaultListLimit.
func (svc *BattleService) GetCompletedHistory(ctx context.Context, playerID string, limit int) ([]battle.Summary, error) {
	limit, err := listLimit(limit)
	if err != nil {
		return nil, err
	}
	stored, err := svc.store.ListCompleted(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing completed battles of %s: %w", playerID, err)
	}
	// Finished battles still waiting on their final write are only in memory.
	byID := make(map[string]battle.Summary, len(stored))
	for _, sum := range stored {
		byID[sum.ID] = sum
	}
	for _, sum := range svc.summaries(playerID, func(s battle.Status) bool { return s == battle.StatusFinished }) {
		if _, ok := byID[sum.ID]; !ok {
			byID[sum.ID] = sum
		}
	}
	out := make([]battle.Summary, 0, len(byID))
	for _, sum := range byID {
		out = append(out, sum)
	}
	slices.SortFunc(out, func(a, b battle.Summary) int {
		if c := finishedAt(b).Compare(finishedAt(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListOpen returns playerID's battles that have not finished, oldest first.
func (svc *BattleService) ListOpen(ctx context.Context, playerID string) ([]battle.Summary, error) {
	out := svc.summaries(playerID, func(s battle.Status) bool { return s != battle.StatusFinished })
	slices.SortFunc(out, func(a, b battle.Summary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// GetLeaderboard returns one page of standings. limit 0 means
// DefaultListLimit.
func (svc *BattleService) GetLeaderboard(ctx context.Context, key rating.SortKey, limit, offset int) ([]rating.Standing, error) {
	sortKey, ok := rating.ParseSortKey(string(key))
	if !ok {
		return nil, fmt.Errorf("%w: unknown sort key %q", battle.ErrValidation, key)
	}
	limit, err := listLimit(limit)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", battle.ErrValidation)
	}
	return svc.store.Leaderboard(ctx, sortKey, limit, offset)
}

// GetPlayerRating returns playerID's standing. Players without rated battles
// get the default rating.
func (svc *BattleService) GetPlayerRating(ctx context.Context, playerID string) (rating.Standing, error) {
	if playerID == "" {
		return rating.Standing{}, fmt.Errorf("%w: player id is required", battle.ErrValidation)
	}
	return svc.store.Standing(ctx, playerID)
}

// Close stops every idle timer. Live sessions stay readable.
func (svc *BattleService) Close() {
	for _, sess := range svc.live() {
		sess.mu.Lock()
		if sess.idle != nil {
			sess.idle.Stop()
		}
		sess.mu.Unlock()
	}
}

func (svc *BattleService) session(id string) (*session, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	sess, ok := svc.sessions[id]
	return sess, ok
}

// live returns the current sessions. Callers lock each session themselves,
// never while holding svc.mu.
func (svc *BattleService) live() []*session {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	out := make([]*session, 0, len(svc.sessions))
	for _, sess := range svc.sessions {
		out = append(out, sess)
	}
	return out
}

// mutate runs fn on a live session under its lock and hands the result to the
// persister. Battles no longer in memory have finished, so the caller gets
// the error a finished battle would give.
func (svc *BattleService) mutate(ctx context.Context, battleID, playerID string, fn func(*session) error) error {
	sess, ok := svc.session(battleID)
	if !ok {
		return svc.archived(ctx, battleID, playerID)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := fn(sess); err != nil {
		return err
	}
	svc.commitLocked(sess)
	return nil
}

// peek runs a read-only check against a live session.
func (svc *BattleService) peek(ctx context.Context, battleID, playerID string, fn func(*battle.State) error) error {
	sess, ok := svc.session(battleID)
	if !ok {
		return svc.archived(ctx, battleID, playerID)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess.state)
}

func (svc *BattleService) archived(ctx context.Context, battleID, playerID string) error {
	st, err := svc.store.LoadBattle(ctx, battleID)
	if err != nil {
		return err
	}
	if _, ok := st.Side(playerID); !ok {
		return fmt.Errorf("%w: %s is not part of battle %s", battle.ErrNotFound, playerID, battleID)
	}
	return fmt.Errorf("%w: battle %s is %s", battle.ErrState, battleID, st.Status)
}

// read runs fn against the live session, or the stored record once the
// battle has been evicted.
func (svc *BattleService) read(ctx context.Context, battleID string, fn func(*battle.State) error) error {
	if sess, ok := svc.session(battleID); ok {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return fn(sess.state)
	}
	st, err := svc.store.LoadBattle(ctx, battleID)
	if err != nil {
		return err
	}
	return fn(st)
}

func (svc *BattleService) summaries(playerID string, keep func(battle.Status) bool) []battle.Summary {
	var out []battle.Summary
	for _, sess := range svc.live() {
		sess.mu.Lock()
		st := sess.state
		if _, ok := st.Side(playerID); ok && keep(st.Status) {
			out = append(out, st.Summarize())
		}
		sess.mu.Unlock()
	}
	return out
}

// commitLocked queues the session's state for persistence and keeps its idle
// timer current. The snapshot is queued under the session lock so writes for
// one battle reach the store in order.
//
// Precondition: caller holds sess.mu.
func (svc *BattleService) commitLocked(sess *session) {
	st := sess.state
	snap, err := st.Clone()
	if err != nil {
		svc.logger.Error("snapshotting battle", zap.String("battle_id", st.ID), zap.Error(err))
		return
	}
	if st.Status == battle.StatusFinished {
		if sess.idle != nil {
			sess.idle.Stop()
		}
		err = svc.persister.Finish(snap, svc.finalized)
	} else {
		svc.touchLocked(sess)
		err = svc.persister.Save(snap)
	}
	if err != nil {
		svc.logger.Warn("battle write not queued", zap.String("battle_id", st.ID), zap.Error(err))
	}
}

func (svc *BattleService) touchLocked(sess *session) {
	if svc.idleTimeout <= 0 {
		return
	}
	if sess.idle == nil {
		id := sess.state.ID
		sess.idle = NewIdleTimer(svc.idleTimeout, func() { svc.expire(id) })
		return
	}
	sess.idle.Reset(svc.idleTimeout)
}

// expire ends an idle battle.
func (svc *BattleService) expire(battleID string) {
	sess, ok := svc.session(battleID)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	st := sess.state
	if st.Status == battle.StatusFinished {
		return
	}
	st.Expire(svc.now())
	svc.logger.Info("battle expired",
		zap.String("battle_id", battleID),
		zap.String("winner", st.Winner),
		zap.Bool("draw", st.Draw),
		zap.String("reason", string(st.Reason)),
	)
	svc.commitLocked(sess)
}

// finalized evicts a battle once its final record is durable. A battle whose
// final write failed stays in memory and keeps serving reads.
func (svc *BattleService) finalized(battleID string, changes []rating.Change, err error) {
	if err != nil {
		return
	}
	svc.mu.Lock()
	delete(svc.sessions, battleID)
	svc.mu.Unlock()
	svc.logger.Info("battle archived",
		zap.String("battle_id", battleID),
		zap.Int("rating_changes", len(changes)),
	)
}

func listLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, fmt.Errorf("%w: limit must not be negative", battle.ErrValidation)
	case limit == 0:
		return DefaultListLimit, nil
	case limit > MaxListLimit:
		return MaxListLimit, nil
	default:
		return limit, nil
	}
}

func finishedAt(s battle.Summary) time.Time {
	if s.FinishedAt == nil {
		return time.Time{}
	}
	return *s.FinishedAt
}
