package observability

import (
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
}

// ErrorReporter forwards run failures to Sentry. A nil reporter drops everything.
type ErrorReporter struct {
	enabled bool
}

func InitSentry(log *logger.Logger, cfg SentryConfig) *ErrorReporter {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		if log != nil {
			log.Info("sentry not configured (SENTRY_DSN not set)")
		}
		return &ErrorReporter{}
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: cfg.Environment,
		Release:     "hermes-worker@" + cfg.Release,
		Debug:       cfg.Environment != "production",
	})
	if err != nil {
		if log != nil {
			log.Warn("sentry init failed (continuing)", "error", err)
		}
		return &ErrorReporter{}
	}
	if log != nil {
		log.Info("sentry initialized", "environment", cfg.Environment)
	}
	return &ErrorReporter{enabled: true}
}

// CaptureRunError reports err tagged with the run it belongs to.
func (r *ErrorReporter) CaptureRunError(err error, runID, collectionID, jobType string) {
	if r == nil || !r.enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("run_id", runID)
		scope.SetTag("collection_id", collectionID)
		scope.SetTag("job_type", jobType)
		sentry.CaptureException(err)
	})
}

func (r *ErrorReporter) Flush() {
	if r == nil || !r.enabled {
		return
	}
	sentry.Flush(2 * time.Second)
}
