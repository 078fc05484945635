// Package app assembles stores, ledger, logging and metrics from a Config.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"corpusprep/internal/blob"
	"corpusprep/internal/config"
	"corpusprep/internal/dataset"
	"corpusprep/internal/imaging"
	"corpusprep/internal/infra/persistence/memory"
	"corpusprep/internal/infra/persistence/postgres"
	"corpusprep/internal/infra/persistence/sqlite"
	"corpusprep/internal/ledger"
	"corpusprep/internal/logging"
	"corpusprep/internal/metrics"
)

// App holds everything a command needs.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Metrics *metrics.Prometheus
	Source  blob.Store
	Target  blob.Store
	Ledger  ledger.Store
}

// Open builds an App. The caller owns the returned App and must Close it.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)
	src, err := blob.Open(ctx, BlobConfig(cfg, cfg.SourceRoot))
	if err != nil {
		return nil, fmt.Errorf("open source store: %w", err)
	}
	dst, err := blob.Open(ctx, BlobConfig(cfg, cfg.TargetRoot))
	if err != nil {
		return nil, fmt.Errorf("open target store: %w", err)
	}
	led, err := OpenLedger(ctx, cfg.Ledger)
	if err != nil {
		return nil, err
	}
	logger.Debug("app ready",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("ledger", cfg.Ledger.Driver),
		zap.String("source", cfg.SourceRoot),
		zap.String("target", cfg.TargetRoot))
	return &App{Config: cfg, Logger: logger, Metrics: metrics.New(), Source: src, Target: dst, Ledger: led}, nil
}

// BlobConfig maps the storage settings onto a blob driver rooted at root.
// For s3 root becomes a key prefix inside the configured bucket.
func BlobConfig(cfg config.Config, root string) blob.Config {
	out := blob.Config{Driver: blob.Driver(cfg.Storage.Driver), Root: root}
	if out.Driver == blob.DriverS3 {
		out.S3 = blob.S3Config{
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			Endpoint:  cfg.Storage.S3.Endpoint,
			PathStyle: cfg.Storage.S3.PathStyle,
			Root:      root,
		}
	}
	return out
}

// OpenLedger opens the configured run ledger.
func OpenLedger(ctx context.Context, cfg config.LedgerConfig) (ledger.Store, error) {
	switch ledger.Driver(cfg.Driver) {
	case ledger.DriverMemory:
		return memory.NewStore(), nil
	case ledger.DriverSQLite:
		s, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		return s, nil
	case ledger.DriverPostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres ledger: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
}

// Runner returns a pipeline runner over the App's stores.
func (a *App) Runner(force bool) *dataset.Runner {
	return &dataset.Runner{
		Options:   a.Options(),
		Source:    a.Source,
		Target:    a.Target,
		Ledger:    a.Ledger,
		Fraction:  a.Config.CropFraction,
		TestDir:   a.Config.Test.Dir,
		TestCount: a.Config.Test.Count,
		TestExt:   a.Config.Test.Ext,
		Force:     force,
	}
}

// Options returns the stage options shared by every command.
func (a *App) Options() dataset.Options {
	return dataset.Options{
		Logger:  a.Logger,
		Metrics: a.Metrics,
		Workers: a.Config.Workers,
		Codec:   imaging.Codec{JPEGQuality: a.Config.JPEGQuality},
	}
}

// Close flushes the metrics textfile, when configured, and closes the ledger.
func (a *App) Close() error {
	var errs []error
	if path := a.Config.Metrics.Textfile; path != "" {
		if err := a.Metrics.WriteTextfile(path); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if a.Ledger != nil {
		if err := a.Ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger: %w", err))
		}
	}
	return errors.Join(errs...)
}
