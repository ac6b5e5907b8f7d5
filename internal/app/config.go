package app

import (
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/yungbote/hermes-backend/internal/data/db"
	"github.com/yungbote/hermes-backend/internal/generation"
	"github.com/yungbote/hermes-backend/internal/jobs/pipeline"
	"github.com/yungbote/hermes-backend/internal/jobs/worker"
	"github.com/yungbote/hermes-backend/internal/platform/envutil"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
	"github.com/yungbote/hermes-backend/internal/platform/storage"
	"github.com/yungbote/hermes-backend/internal/temporalx"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

type Config struct {
	ServiceName string
	Environment string
	Release     string

	DBDriver   string
	SQLitePath string
	Postgres   dbpkg.PostgresConfig

	// ObjectStorageMode is kept raw so bootstrap can report a bad value.
	ObjectStorageMode string
	Storage           storage.Config

	RedisAddr string

	Worker              worker.Config
	Generation          generation.Config
	Temporal            temporalx.Config
	LockTTL             time.Duration
	MetadataConcurrency int

	MetricsAddr string
	SentryDSN   string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		ServiceName: envutil.String("SERVICE_NAME", "hermes-worker"),
		Environment: envutil.String("APP_ENV", "development"),
		Release:     envutil.String("APP_RELEASE", ""),

		DBDriver:   strings.ToLower(envutil.String("DB_DRIVER", DBDriverPostgres)),
		SQLitePath: envutil.String("SQLITE_PATH", ""),
		Postgres:   dbpkg.PostgresConfigFromEnv(),

		ObjectStorageMode: envutil.String("OBJECT_STORAGE_MODE", ""),

		RedisAddr: envutil.String("REDIS_ADDR", ""),

		Worker:              worker.ConfigFromEnv(),
		Generation:          generation.ConfigFromEnv(),
		Temporal:            temporalx.LoadConfig(),
		LockTTL:             pipeline.LockTTLFromEnv(),
		MetadataConcurrency: envutil.Int("METADATA_EXPORT_CONCURRENCY", 8),

		MetricsAddr: envutil.String("METRICS_ADDR", ""),
		SentryDSN:   envutil.String("SENTRY_DSN", ""),
	}
	// storage errors surface in resolveBucketService with a classified code
	storageCfg, _ := storage.ResolveConfigFromEnv()
	cfg.Storage = storageCfg

	log.Info("Configuration loaded",
		"environment", cfg.Environment,
		"db_driver", cfg.DBDriver,
		"object_storage_mode", cfg.Storage.Mode,
		"redis", cfg.RedisAddr != "",
		"temporal", cfg.Temporal.Enabled(),
		"worker_concurrency", cfg.Worker.Concurrency,
	)
	return cfg
}

func (c Config) validate() error {
	switch c.DBDriver {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}
