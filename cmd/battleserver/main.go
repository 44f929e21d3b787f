// Package main provides the battle server binary that runs the battle
// service behind the HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pokedo/internal/config"
	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/dice"
	"github.com/cory-johannsen/pokedo/internal/game/moves"
	"github.com/cory-johannsen/pokedo/internal/gameserver"
	"github.com/cory-johannsen/pokedo/internal/httpapi"
	"github.com/cory-johannsen/pokedo/internal/observability"
	"github.com/cory-johannsen/pokedo/internal/scripting"
	"github.com/cory-johannsen/pokedo/internal/server"
	"github.com/cory-johannsen/pokedo/internal/storage/memory"
	"github.com/cory-johannsen/pokedo/internal/storage/postgres"
)

const dbHealthTimeout = time.Second

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	migrateUp := flag.Bool("migrate", false, "apply pending migrations before serving (postgres store only)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "battleserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting battle server",
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.String("store", cfg.Server.Store),
	)

	pool, err := moves.DefaultPool()
	if err != nil {
		logger.Fatal("loading move pool", zap.Error(err))
	}
	logger.Info("move pool loaded", zap.Int("moves", pool.Len()))

	engineOpts := []battle.EngineOption{battle.WithMaxTurns(cfg.Battle.MaxTurns)}
	if cfg.Battle.RulesScript != "" {
		rules, err := scripting.LoadRules(cfg.Battle.RulesScript, cfg.Battle.ScriptInstructionLimit, logger)
		if err != nil {
			logger.Fatal("loading rules script", zap.Error(err))
		}
		engineOpts = append(engineOpts, rules.EngineOptions()...)
	}
	engine := battle.NewEngine(engineOpts...)

	var (
		store    gameserver.Store
		roster   gameserver.Roster
		httpOpts []httpapi.Option
	)
	switch cfg.Server.Store {
	case config.StorePostgres:
		if *migrateUp {
			migStart := time.Now()
			if err := postgres.MigrateUp(cfg.Database.DSN()); err != nil {
				logger.Fatal("applying migrations", zap.Error(err))
			}
			logger.Info("migrations applied", zap.Duration("elapsed", time.Since(migStart)))
		}
		dbStart := time.Now()
		db, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = postgres.NewBattleStore(db.DB())
		roster = postgres.NewRosterRepository(db.DB())
		httpOpts = append(httpOpts, httpapi.WithHealthCheck("database", func(ctx context.Context) error {
			return db.Health(ctx, dbHealthTimeout)
		}))
	default:
		store = memory.NewStore()
		r := memory.NewRoster()
		if cfg.Server.RosterFile != "" {
			r, err = memory.LoadRosterFile(cfg.Server.RosterFile)
			if err != nil {
				logger.Fatal("loading roster file", zap.Error(err))
			}
		}
		logger.Info("memory store ready", zap.Int("players", len(r.Players())))
		roster = r
	}

	pcfg := gameserver.PersisterConfig{
		QueueSize:      cfg.Persistence.QueueSize,
		InitialBackoff: cfg.Persistence.InitialBackoff,
		MaxBackoff:     cfg.Persistence.MaxBackoff,
		MaxElapsed:     cfg.Persistence.MaxElapsed,
		DrainTimeout:   cfg.Persistence.DrainTimeout,
		KFactor:        cfg.Battle.KFactor,
	}
	persister := gameserver.NewPersister(store, logger, pcfg)

	svcOpts := []gameserver.ServiceOption{gameserver.WithIdleTimeout(cfg.Battle.IdleTimeout)}
	if cfg.Logging.Level == "debug" {
		svcOpts = append(svcOpts, gameserver.WithSourceFactory(func(battleID string) dice.Source {
			return dice.NewLoggedSource(dice.NewCryptoSource(), logger.With(zap.String("battle_id", battleID)))
		}))
	}
	svc := gameserver.NewBattleService(engine, pool, roster, store, persister, logger, svcOpts...)
	api := httpapi.NewServer(svc, logger, cfg.HTTP, cfg.Server.ShutdownTimeout, httpOpts...)

	// Services stop in reverse order: HTTP drains first, then idle timers,
	// then the persister flushes queued writes.
	lc := server.NewLifecycle(logger)
	lc.Add("persister", persister)
	lc.Add("battles", server.BlockingService(svc.Close))
	lc.Add("http", api)

	logger.Info("battle server initialized", zap.Duration("startup", time.Since(start)))

	if err := lc.Run(ctx); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return
	}
	logger.Info("battle server stopped")
}
