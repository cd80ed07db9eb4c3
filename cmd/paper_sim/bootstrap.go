package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"paper_trading/internal/config"
	"paper_trading/internal/engine"
	"paper_trading/internal/ledger"
	"paper_trading/internal/logger"
	"paper_trading/internal/market"
	"paper_trading/internal/notifications"
	"paper_trading/internal/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app is everything a subcommand needs, built from configuration.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func()
	store    storage.Store
	engine   *engine.Engine
}

// Close releases the store and then the log file. Callers make sure nothing
// still uses the engine.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
	a.closeLog()
}

func bootstrap(alerts bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Version = readVersion()
	if seedFlag != 0 {
		cfg.Sim.Seed = seedFlag
	}
	if intervalFlag > 0 {
		cfg.Sim.TickInterval = intervalFlag
	}

	log, closeLog, err := logger.Setup(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, err
	}

	universe := market.DefaultUniverse()
	if cfg.Sim.UniverseFile != "" {
		if universe, err = market.LoadUniverse(cfg.Sim.UniverseFile); err != nil {
			closeLog()
			return nil, err
		}
		log.Info("universe loaded", zap.String("file", cfg.Sim.UniverseFile), zap.Int("sectors", len(universe.Sectors)))
	}

	store, err := openStore(cfg, log)
	if err != nil {
		closeLog()
		return nil, err
	}

	var notifier notifications.Notifier = notifications.Nop{}
	if alerts {
		notifier = notifications.NewWriter(os.Stdout, log)
	}

	sim := market.NewSimulator(universe, market.NewRand(cfg.Sim.Seed))
	led := ledger.New(cfg.InitialCashDecimal())
	repo := storage.NewRepository(store, log)

	return &app{
		cfg:      cfg,
		logger:   log,
		closeLog: closeLog,
		store:    store,
		engine:   engine.New(context.Background(), sim, led, repo, notifier, log),
	}, nil
}

func openStore(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		log.Info("using redis store", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
		return storage.NewRedisStore(client), nil
	case "memory":
		log.Warn("using in-memory store, state will not survive a restart")
		return storage.NewMemoryStore(), nil
	default:
		s, err := storage.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("open file store %s: %w", cfg.Storage.Dir, err)
		}
		log.Info("using file store", zap.String("dir", cfg.Storage.Dir))
		return s, nil
	}
}
