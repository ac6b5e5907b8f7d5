package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/platform/envutil"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

type Metrics struct {
	runsTotal        *CounterVec
	runDuration      *HistogramVec
	artworksCreated  *Counter
	slotsExhausted   *CounterVec
	candidatesReject *CounterVec
	composeLatency   *HistogramVec
	queueDepth       *GaugeVec
	workerTotal      *Counter
	workerError      *Counter
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Init returns nil when metrics are disabled; every method is nil-safe.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		runsTotal: NewCounterVec("hermes_runs_total", "Generation runs finished by job type and status.", []string{"job_type", "status"}),
		runDuration: NewHistogramVec(
			"hermes_run_duration_seconds",
			"Generation run wall time in seconds by job type and status.",
			[]string{"job_type", "status"},
			[]float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		),
		artworksCreated:  NewCounter("hermes_artworks_created_total", "Artworks composited and persisted."),
		slotsExhausted:   NewCounterVec("hermes_slots_exhausted_total", "Slots skipped after the sampler gave up.", []string{"strategy"}),
		candidatesReject: NewCounterVec("hermes_candidates_rejected_total", "Candidates rejected as duplicates.", []string{"strategy"}),
		composeLatency: NewHistogramVec(
			"hermes_compose_duration_seconds",
			"Time spent compositing and storing one artwork.",
			nil,
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		queueDepth:  NewGaugeVec("hermes_run_queue_depth", "Generation runs by status.", []string{"status"}),
		workerTotal: NewCounter("hermes_worker_jobs_total", "Jobs dispatched by the worker."),
		workerError: NewCounter("hermes_worker_jobs_error_total", "Jobs that ended in error."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.runsTotal,
		m.runDuration,
		m.artworksCreated,
		m.slotsExhausted,
		m.candidatesReject,
		m.composeLatency,
		m.queueDepth,
		m.workerTotal,
		m.workerError,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveRun(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.Inc(jobType, status)
	m.runDuration.Observe(dur.Seconds(), jobType, status)
}

func (m *Metrics) ObserveCompose(dur time.Duration) {
	if m == nil {
		return
	}
	m.artworksCreated.Inc()
	m.composeLatency.Observe(dur.Seconds())
}

func (m *Metrics) IncSlotExhausted(strategy string) {
	if m == nil {
		return
	}
	m.slotsExhausted.Inc(strategy)
}

func (m *Metrics) IncCandidateRejected(strategy string) {
	if m == nil {
		return
	}
	m.candidatesReject.Inc(strategy)
}

func (m *Metrics) IncWorkerJob(failed bool) {
	if m == nil {
		return
	}
	m.workerTotal.Inc()
	if failed {
		m.workerError.Inc()
	}
}

// StartQueueCollector periodically samples generation_run counts per status.
func (m *Metrics) StartQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, s := range collections.RunStatuses {
					m.queueDepth.Set(0, s)
				}
				var rows []struct {
					Status string
					Count  int64
				}
				if err := db.WithContext(ctx).
					Model(&collections.GenerationRun{}).
					Select("status, count(*) as count").
					Group("status").
					Scan(&rows).Error; err != nil {
					if log != nil {
						log.Warn("metrics: run queue depth query failed", "error", err)
					}
					continue
				}
				for _, row := range rows {
					status := strings.TrimSpace(row.Status)
					if status == "" {
						status = "unknown"
					}
					m.queueDepth.Set(float64(row.Count), status)
				}
			}
		}
	}()
}
