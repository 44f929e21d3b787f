package gameserver_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/dice"
	"github.com/cory-johannsen/pokedo/internal/game/moves"
	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
	"github.com/cory-johannsen/pokedo/internal/gameserver"
	"github.com/cory-johannsen/pokedo/internal/storage/memory"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

// stepClock advances one second per reading.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// panicSrc simulates an engine fault on the first random draw.
type panicSrc struct{}

func (panicSrc) Intn(int) int { panic("corrupt move table") }

type fixture struct {
	svc       *gameserver.BattleService
	store     *memory.Store
	roster    *memory.Roster
	persister *gameserver.Persister
}

func newFixture(t *testing.T, opts ...gameserver.ServiceOption) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	roster := memory.NewRoster()
	for _, p := range []string{"ash", "gary", "misty"} {
		require.NoError(t, roster.Set(p, []battle.RosterEntry{
			entry(1, p+"-lead", pokemon.Normal, 100),
			entry(2, p+"-second", pokemon.Water, 90),
			entry(3, p+"-third", pokemon.Grass, 80),
		}))
	}
	cfg := gameserver.DefaultPersisterConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.MaxElapsed = time.Second
	p := gameserver.NewPersister(store, logger, cfg)
	go func() { _ = p.Start() }()
	t.Cleanup(p.Stop)

	var ids atomic.Int64
	clock := &stepClock{now: t0}
	base := []gameserver.ServiceOption{
		gameserver.WithClock(clock.Now),
		gameserver.WithIDGenerator(func() string { return fmt.Sprintf("b-%d", ids.Add(1)) }),
		gameserver.WithSourceFactory(func(string) dice.Source { return dice.NewSeededSource(7) }),
		gameserver.WithIdleTimeout(0),
	}
	pool, err := moves.DefaultPool()
	require.NoError(t, err)
	svc := gameserver.NewBattleService(battle.NewEngine(), pool, roster, store, p, logger, append(base, opts...)...)
	t.Cleanup(svc.Close)
	return &fixture{svc: svc, store: store, roster: roster, persister: p}
}

// entry is a bulky level 100 Pokemon that only knows tackle, so battles last.
func entry(id int64, species string, t pokemon.Type, speed int) battle.RosterEntry {
	return battle.RosterEntry{
		ID:        id,
		Species:   species,
		Types:     []pokemon.Type{t},
		Level:     100,
		BaseStats: pokemon.Stats{HP: 255, Attack: 60, Defense: 120, SpAttack: 60, SpDefense: 120, Speed: speed},
		Moves:     []string{"tackle"},
	}
}
