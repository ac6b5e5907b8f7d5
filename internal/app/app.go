package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	dbpkg "github.com/yungbote/hermes-backend/internal/data/db"
	"github.com/yungbote/hermes-backend/internal/data/repos"
	"github.com/yungbote/hermes-backend/internal/observability"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
	"github.com/yungbote/hermes-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    repos.Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics
	Reporter *observability.ErrorReporter

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	opts := logger.OptionsFromEnv()
	if opts.Mode == "" {
		opts.Mode = "development"
	}
	log, err := logger.NewWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	if err := cfg.validate(); err != nil {
		log.Sync()
		return nil, err
	}

	reporter := observability.InitSentry(log, observability.SentryConfig{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	})
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Release,
	})
	metrics := observability.Init(log)

	theDB, err := openDB(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := repos.New(theDB, log)
	serviceset, err := wireServices(log, cfg, reposet, clients, metrics, reporter)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		Reporter:     reporter,
		otelShutdown: otelShutdown,
	}, nil
}

func openDB(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	var theDB *gorm.DB
	switch cfg.DBDriver {
	case DBDriverSQLite:
		db, err := dbpkg.NewSQLite(log, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		theDB = db
	default:
		pg, err := dbpkg.NewPostgresService(log, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		theDB = pg.DB()
	}
	if err := dbpkg.AutoMigrateAll(theDB); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	if err := dbpkg.EnsureRunIndexes(theDB); err != nil {
		return nil, fmt.Errorf("run indexes: %w", err)
	}
	return theDB, nil
}

// Start launches the run executor and background collectors. It returns once
// they are running; everything stops when Close is called or ctx ends.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Cfg.MetricsAddr != "" {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	}
	a.Metrics.StartQueueCollector(ctx, a.Log, a.DB)

	if a.Clients.Bus != nil {
		evLog := a.Log.With("component", "RunEvents")
		if err := a.Clients.Bus.StartForwarder(ctx, func(m realtime.RunEvent) {
			evLog.Debug("run event", "event", m.Event, "run_id", m.RunID, "collection_id", m.CollectionID)
		}); err != nil {
			a.Log.Warn("Run event forwarder failed to start", "error", err)
		}
	}

	if a.Services.TemporalWorker != nil {
		if err := a.Services.TemporalWorker.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
		return nil
	}
	a.Services.JobWorker.Start(ctx)
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	a.Reporter.Flush()
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
