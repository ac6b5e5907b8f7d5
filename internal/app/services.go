package app

import (
	"fmt"

	"github.com/yungbote/hermes-backend/internal/data/repos"
	"github.com/yungbote/hermes-backend/internal/generation"
	"github.com/yungbote/hermes-backend/internal/jobs/pipeline/art_generate"
	"github.com/yungbote/hermes-backend/internal/jobs/pipeline/metadata_export"
	"github.com/yungbote/hermes-backend/internal/jobs/pipeline/token_shuffle"
	"github.com/yungbote/hermes-backend/internal/jobs/pipeline/trait_count"
	jobrt "github.com/yungbote/hermes-backend/internal/jobs/runtime"
	"github.com/yungbote/hermes-backend/internal/jobs/worker"
	"github.com/yungbote/hermes-backend/internal/observability"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
	"github.com/yungbote/hermes-backend/internal/services"
	"github.com/yungbote/hermes-backend/internal/temporalx/temporalworker"
)

type Services struct {
	ArtStore   *services.ArtStore
	Engine     *generation.Engine
	Generation services.GenerationService
	Registry   *jobrt.Registry
	JobWorker  *worker.Worker
	// TemporalWorker is set instead of polling when Temporal is configured.
	TemporalWorker *temporalworker.Runner
}

func wireServices(
	log *logger.Logger,
	cfg Config,
	r repos.Repos,
	clients Clients,
	metrics *observability.Metrics,
	reporter *observability.ErrorReporter,
) (Services, error) {
	log.Info("Wiring services...")

	store := services.NewArtStore(log, r, clients.Bucket)
	engine := generation.NewEngine(generation.EngineDeps{
		Log:      log,
		Config:   cfg.Generation,
		Layers:   store,
		Artworks: store,
		Images:   store,
		Metrics:  metrics,
	})

	registry := jobrt.NewRegistry()
	handlers := []jobrt.Handler{
		art_generate.New(log, engine, clients.Locker, cfg.LockTTL),
		trait_count.New(log, engine, clients.Locker, cfg.LockTTL),
		token_shuffle.New(log, engine, clients.Locker, cfg.LockTTL),
		metadata_export.New(log, r, clients.Bucket, cfg.MetadataConcurrency),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return Services{}, fmt.Errorf("register %s pipeline: %w", h.Type(), err)
		}
	}

	jobWorker := worker.NewWorker(worker.Deps{
		Log:      log,
		Config:   cfg.Worker,
		Repo:     r.Runs,
		Registry: registry,
		Bus:      clients.Bus,
		Metrics:  metrics,
		Reporter: reporter,
	})

	out := Services{
		ArtStore:   store,
		Engine:     engine,
		Generation: services.NewGenerationService(log, r, clients.Bus, clients.Temporal, cfg.Temporal.TaskQueue),
		Registry:   registry,
		JobWorker:  jobWorker,
	}
	if clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, cfg.Temporal, cfg.Worker.Concurrency, clients.Temporal, r.Runs, jobWorker)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.TemporalWorker = runner
	}
	return out, nil
}
