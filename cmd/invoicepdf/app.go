package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/lvillar/invoicepdf"
	"github.com/lvillar/invoicepdf/assets"
	"github.com/lvillar/invoicepdf/config"
	"github.com/lvillar/invoicepdf/datactx"
	"github.com/lvillar/invoicepdf/internal/logging"
	"github.com/lvillar/invoicepdf/scene"
	"github.com/lvillar/invoicepdf/store"
)

// app holds the dependencies shared by the subcommands.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	engine  *invoicepdf.Engine
	docs    *store.Source // nil without a database
	closers []func() error
}

// newApp loads the configuration and wires the engine. Logs go to logOut.
func newApp(ctx context.Context, flags *rootFlags, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(flags.config, flags.envFiles...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}
	a := &app{
		cfg: cfg,
		log: logging.New(logging.Config{
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			Service: cfg.Log.Service,
			Output:  logOut,
		}),
	}

	var shared assets.Cache
	switch cfg.Cache.Driver {
	case "redis":
		rc, err := assets.NewRedisCache(ctx, cfg.RedisCacheConfig())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		shared = rc
	case "memory":
		shared = assets.NewMemoryCache()
	}

	if cfg.Database.Driver != "" {
		db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Debug)
		if err != nil {
			a.Close()
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		if cfg.Database.Migrate {
			if err := store.Migrate(db); err != nil {
				a.Close()
				return nil, err
			}
		}
		a.docs = store.NewSource(db)
	}

	a.engine = invoicepdf.New(
		invoicepdf.WithLogger(a.log),
		invoicepdf.WithMetrics(cfg.Render.Metrics),
		invoicepdf.WithAssetLoader(assets.New(cfg.AssetConfig(shared))),
		invoicepdf.WithValidation(cfg.Render.Validate),
	)
	a.log.Debug().
		Str("cache", cfg.Cache.Driver).
		Str("database", cfg.Database.Driver).
		Msg("engine ready")
	return a, nil
}

// Close releases the cache and database connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// dataFlags select the data context of a render or preview.
type dataFlags struct {
	template   string
	data       string
	kind       string
	documentID uint
}

func (f *dataFlags) loadTemplate() (*scene.Template, error) {
	raw, err := os.ReadFile(f.template)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return scene.Decode(raw)
}

// loadData returns the data from --data or --document-id. With neither,
// optional yields an empty context.
func (f *dataFlags) loadData(ctx context.Context, a *app, optional bool) (datactx.Context, error) {
	switch {
	case f.documentID != 0:
		if a.docs == nil {
			return nil, errors.New("--document-id needs a database (database.driver)")
		}
		return a.docs.Load(ctx, f.kind, f.documentID)
	case f.data != "":
		raw, err := os.ReadFile(f.data)
		if err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}
		return datactx.Decode(raw)
	case optional:
		return (&datactx.Snapshot{}).Freeze(), nil
	}
	return nil, errors.New("one of --data or --document-id is required")
}
