package gameserver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/rating"
)

// ErrPersisterClosed is returned when work is submitted after Stop.
var ErrPersisterClosed = errors.New("persister closed")

// PersisterConfig tunes the asynchronous writer.
type PersisterConfig struct {
	// QueueSize bounds the number of pending writes.
	QueueSize int
	// InitialBackoff is the first retry delay.
	InitialBackoff time.Duration
	// MaxBackoff caps a single retry delay.
	MaxBackoff time.Duration
	// MaxElapsed bounds the total time spent retrying one snapshot save.
	// Final writes carry a rating outcome and retry until Stop.
	MaxElapsed time.Duration
	// DrainTimeout bounds how long Stop waits for queued writes.
	DrainTimeout time.Duration
	// KFactor is the rating update step applied when a battle finishes.
	KFactor int
}

// DefaultPersisterConfig returns the settings used when none are configured.
func DefaultPersisterConfig() PersisterConfig {
	return PersisterConfig{
		QueueSize:      1024,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		MaxElapsed:     time.Minute,
		DrainTimeout:   5 * time.Second,
		KFactor:        rating.DefaultK,
	}
}

// FinishFunc receives the outcome of a FinishBattle write.
type FinishFunc func(battleID string, changes []rating.Change, err error)

type writeJob struct {
	state  *battle.State
	finish bool
	onDone FinishFunc
	flush  chan struct{}
}

// Persister writes battle snapshots to a Store on a single goroutine, in the
// order they were submitted, retrying failures with exponential backoff.
// In-memory battle state stays authoritative while a write is outstanding.
type Persister struct {
	store  Store
	logger *zap.Logger
	cfg    PersisterConfig
	queue  chan writeJob

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPersister creates a Persister. Start must be called to begin writing.
//
// Precondition: store and logger must be non-nil.
// Postcondition: Returns a Persister accepting work up to cfg.QueueSize.
func NewPersister(store Store, logger *zap.Logger, cfg PersisterConfig) *Persister {
	def := DefaultPersisterConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = def.MaxElapsed
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}
	if cfg.KFactor <= 0 {
		cfg.KFactor = def.KFactor
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Persister{
		store:  store,
		logger: logger,
		cfg:    cfg,
		queue:  make(chan writeJob, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	// The writer loop is counted before Start runs; Stop may race it.
	p.wg.Add(1)
	return p
}

// Start runs the writer loop and blocks until Stop is called.
//
// Precondition: Start is called exactly once; Stop waits for it to return.
func (p *Persister) Start() error {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			p.drain()
			return nil
		case job := <-p.queue:
			p.execute(p.ctx, job)
		}
	}
}

// drain writes whatever is still queued, bounded by DrainTimeout.
func (p *Persister) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.DrainTimeout)
	defer cancel()
	for {
		select {
		case job := <-p.queue:
			p.execute(ctx, job)
		case <-ctx.Done():
			p.logger.Warn("persister drain timed out", zap.Int("dropped", len(p.queue)))
			return
		default:
			return
		}
	}
}

// Stop stops accepting work, writes what is queued and waits for the loop to
// exit.
//
// Postcondition: Save and Finish return ErrPersisterClosed after Stop.
func (p *Persister) Stop() {
	p.cancel()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

// Save queues an upsert of s. The caller must not modify s afterwards.
func (p *Persister) Save(s *battle.State) error {
	return p.enqueue(writeJob{state: s})
}

// Finish queues the final write of s. The write is retried without an elapsed
// time limit until it succeeds, fails permanently or the persister stops.
// onDone, if non-nil, is called on the writer goroutine with the outcome.
func (p *Persister) Finish(s *battle.State, onDone FinishFunc) error {
	return p.enqueue(writeJob{state: s, finish: true, onDone: onDone})
}

// Flush blocks until every write queued before the call has been attempted.
func (p *Persister) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := p.enqueue(writeJob{flush: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Persister) enqueue(job writeJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPersisterClosed
	}
	select {
	case p.queue <- job:
		return nil
	case <-p.ctx.Done():
		return ErrPersisterClosed
	}
}

func (p *Persister) execute(ctx context.Context, job writeJob) {
	if job.flush != nil {
		close(job.flush)
		return
	}
	id := job.state.ID
	var changes []rating.Change
	op := func() error {
		var err error
		if job.finish {
			changes, err = p.store.FinishBattle(ctx, job.state, p.cfg.KFactor)
		} else {
			err = p.store.SaveBattle(ctx, job.state)
		}
		if errors.Is(err, battle.ErrValidation) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		p.logger.Warn("battle write failed, retrying",
			zap.String("battle_id", id),
			zap.Bool("finish", job.finish),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	err := backoff.RetryNotify(op, backoff.WithContext(p.policy(job.finish), ctx), notify)
	if err != nil {
		p.logger.Error("battle write abandoned",
			zap.String("battle_id", id),
			zap.Bool("finish", job.finish),
			zap.Error(err),
		)
	}
	if job.onDone != nil {
		job.onDone(id, changes, err)
	}
}

// policy returns the retry schedule for one write. Final writes have no
// elapsed time limit.
func (p *Persister) policy(finish bool) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.InitialBackoff
	b.MaxInterval = p.cfg.MaxBackoff
	b.MaxElapsedTime = p.cfg.MaxElapsed
	if finish {
		b.MaxElapsedTime = 0
	}
	return b
}
