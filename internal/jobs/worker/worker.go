package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/hermes-backend/internal/data/repos"
	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/jobs/runtime"
	"github.com/yungbote/hermes-backend/internal/observability"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
	"github.com/yungbote/hermes-backend/internal/platform/envutil"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

type Config struct {
	Concurrency       int
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	MaxAttempts       int
	StaleRunning      time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Concurrency:       envutil.Int("WORKER_CONCURRENCY", 4),
		PollInterval:      envutil.Duration("WORKER_POLL_INTERVAL", time.Second),
		HeartbeatInterval: envutil.Duration("WORKER_HEARTBEAT_INTERVAL", 15*time.Second),
		MaxAttempts:       envutil.Int("WORKER_MAX_ATTEMPTS", 3),
		StaleRunning:      envutil.Duration("WORKER_STALE_RUNNING", 30*time.Minute),
	}
}

func (c Config) normalized() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 30 * time.Minute
	}
	return c
}

type Worker struct {
	log      *logger.Logger
	cfg      Config
	repo     repos.GenerationRunRepo
	registry *runtime.Registry
	bus      runtime.Publisher
	metrics  *observability.Metrics
	reporter *observability.ErrorReporter
}

type Deps struct {
	Log      *logger.Logger
	Config   Config
	Repo     repos.GenerationRunRepo
	Registry *runtime.Registry
	Bus      runtime.Publisher
	Metrics  *observability.Metrics
	Reporter *observability.ErrorReporter
}

func NewWorker(deps Deps) *Worker {
	return &Worker{
		log:      deps.Log.With("component", "JobWorker"),
		cfg:      deps.Config.normalized(),
		repo:     deps.Repo,
		registry: deps.Registry,
		bus:      deps.Bus,
		metrics:  deps.Metrics,
		reporter: deps.Reporter,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency, "job_types", w.registry.Types())
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		go w.runLoop(ctx, workerID)
	}
	go w.reapLoop(ctx)
}

var errAttemptsExhausted = errors.New("run abandoned: worker attempts exhausted")

// reapLoop fails runs whose workers died on their last attempt; nothing else would
// ever move them to a terminal status.
func (w *Worker) reapLoop(ctx context.Context) {
	interval := w.cfg.StaleRunning / 4
	if interval < w.cfg.PollInterval {
		interval = w.cfg.PollInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.ReapAbandoned(ctx)
		}
	}
}

// ReapAbandoned moves every abandoned run to error and returns how many it failed.
func (w *Worker) ReapAbandoned(ctx context.Context) int {
	runs, err := w.repo.ListAbandoned(dbctx.New(ctx), w.cfg.MaxAttempts, w.cfg.StaleRunning)
	if err != nil {
		w.log.Warn("ListAbandoned failed", "error", err)
		return 0
	}
	for _, run := range runs {
		w.Abandon(ctx, run, errAttemptsExhausted)
	}
	if len(runs) > 0 {
		w.log.Warn("Failed abandoned runs", "count", len(runs))
	}
	return len(runs)
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			run, err := w.repo.ClaimNextRunnable(dbctx.New(ctx), w.cfg.MaxAttempts, w.cfg.StaleRunning)
			if err != nil {
				w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
				continue
			}
			if run == nil {
				continue
			}
			_ = w.Execute(ctx, run)
		}
	}
}

// Execute dispatches one claimed run to its handler. The run ends in completed or error.
func (w *Worker) Execute(ctx context.Context, run *types.GenerationRun) (err error) {
	start := time.Now()
	jc := runtime.NewContext(ctx, run, w.repo, w.bus, w.log)

	h, ok := w.registry.Get(run.JobType)
	if !ok {
		err = &missingHandlerError{JobType: run.JobType}
		jc.Log.Warn("No handler registered for job_type")
		jc.Fail("dispatch", err)
		w.finish(run, err, start)
		return err
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go w.heartbeat(hbCtx, run)

	func() {
		defer func() {
			if r := recover(); r != nil {
				jc.Log.Error("Job handler panic", "panic", r)
				err = errFromRecover(r)
			}
		}()
		err = h.Run(jc)
	}()
	stopHeartbeat()

	if err != nil {
		// pipelines usually fail the run themselves with a precise stage
		if run.Status != types.RunStatusError || run.Error == "" {
			jc.Fail("run", err)
		}
		w.reporter.CaptureRunError(err, run.ID.String(), run.CollectionID.String(), run.JobType)
		jc.Log.Warn("Job run failed", "error", err, "duration", time.Since(start))
	} else if !types.IsTerminalRunStatus(run.Status) {
		jc.Succeed(nil)
	}
	w.finish(run, err, start)
	return err
}

// Abandon fails a run that no worker will finish.
func (w *Worker) Abandon(ctx context.Context, run *types.GenerationRun, cause error) {
	jc := runtime.NewContext(ctx, run, w.repo, w.bus, w.log)
	jc.Fail("abandoned", cause)
	w.reporter.CaptureRunError(cause, run.ID.String(), run.CollectionID.String(), run.JobType)
	w.finish(run, cause, time.Now())
}

func (w *Worker) finish(run *types.GenerationRun, err error, start time.Time) {
	status := types.RunStatusCompleted
	if err != nil {
		status = types.RunStatusError
	}
	w.metrics.ObserveRun(run.JobType, status, time.Since(start))
	w.metrics.IncWorkerJob(err != nil)
}

func (w *Worker) heartbeat(ctx context.Context, run *types.GenerationRun) {
	t := time.NewTicker(w.cfg.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := w.repo.Heartbeat(dbctx.New(ctx), run.ID); err != nil && ctx.Err() == nil {
				w.log.Warn("heartbeat failed", "run_id", run.ID, "error", err)
			}
		}
	}
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
