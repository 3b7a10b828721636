package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/fx"
	"github.com/cleared-dev/tally/internal/instrument"
	"github.com/cleared-dev/tally/internal/logging"
	"github.com/cleared-dev/tally/internal/posting"
	"github.com/cleared-dev/tally/internal/shipment"
	"github.com/cleared-dev/tally/internal/store"
)

// app wires the engine components for one command invocation.
type app struct {
	root      string
	cfg       *config.Config
	log       *zap.Logger
	db        *store.DB
	registry  *accounts.Registry
	engine    *posting.Engine
	rates     *fx.Resolver
	checks    *instrument.Lifecycle
	shipments *shipment.Service
}

// openApp loads the project at repo, opens its ledger and makes sure every
// mapped account exists.
func openApp(ctx context.Context, repo string) (*app, error) {
	root, err := filepath.Abs(repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(filepath.Join(root, ".env")); err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	registry, err := accounts.Load(root)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN(root))
	if err != nil {
		return nil, err
	}
	if err := accounts.EnsureAccounts(ctx, db, registry); err != nil {
		db.Close()
		return nil, err
	}

	engine := posting.NewEngine(db, log)
	rates := fx.NewResolver(db, log)
	return &app{
		root:      root,
		cfg:       cfg,
		log:       log,
		db:        db,
		registry:  registry,
		engine:    engine,
		rates:     rates,
		checks:    instrument.NewLifecycle(db, engine, registry, rates, cfg.HomeCurrency, log),
		shipments: shipment.NewService(db, engine, registry, rates, cfg.HomeCurrency, log),
	}, nil
}

func (a *app) Close() error {
	_ = a.log.Sync()
	return a.db.Close()
}
