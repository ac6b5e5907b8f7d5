package generation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/observability"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

type Request struct {
	CollectionID   uuid.UUID
	OwnerUserID    uuid.UUID
	RunID          *uuid.UUID
	Amount         int
	Strategy       string
	ComponentClass string
	// Status receives lifecycle transitions; nil discards them.
	Status StatusSink
}

type Result struct {
	Requested int    `json:"requested"`
	Feasible  uint64 `json:"feasible"`
	Target    int    `json:"target"`
	Produced  int    `json:"produced"`
	// StartOrdinal is the ordinal of the first artwork this run created.
	StartOrdinal int         `json:"start_ordinal"`
	SkippedSlots int         `json:"skipped_slots"`
	Exhausted    bool        `json:"exhausted"`
	ArtworkIDs   []uuid.UUID `json:"artwork_ids,omitempty"`
}

// Engine runs generation, rarity and shuffle operations against one collection at a time.
// It holds no per-collection state; concurrent calls for different collections are safe.
type Engine struct {
	log        *logger.Logger
	cfg        Config
	artworks   ArtworkStore
	planner    *Planner
	compositor *Compositor
	rarity     *RarityCalculator
	shuffler   *Shuffler
	metrics    *observability.Metrics
	seq        atomic.Uint64
	now        func() time.Time
}

type EngineDeps struct {
	Log      *logger.Logger
	Config   Config
	Layers   LayerStore
	Artworks ArtworkStore
	Images   ImageStore
	Metrics  *observability.Metrics
}

func NewEngine(deps EngineDeps) *Engine {
	cfg := deps.Config.normalized()
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		log:        log.With("service", "GenerationEngine"),
		cfg:        cfg,
		artworks:   deps.Artworks,
		planner:    NewPlanner(cfg, deps.Layers),
		compositor: NewCompositor(log, cfg, deps.Images, deps.Artworks),
		rarity:     NewRarityCalculator(log, deps.Layers, deps.Artworks),
		shuffler:   NewShuffler(log, deps.Artworks, deps.Images),
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// newRand returns a run-local generator. With a configured seed every call
// gets a distinct but reproducible stream.
func (e *Engine) newRand() *rand.Rand {
	n := e.seq.Add(1)
	if e.cfg.Seed != 0 {
		return rand.New(rand.NewPCG(e.cfg.Seed, n))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func (e *Engine) setStatus(ctx context.Context, sink StatusSink, status string) error {
	if sink == nil {
		sink = discardStatus{}
	}
	if err := sink.SetStatus(ctx, status, e.now().UTC()); err != nil {
		return fmt.Errorf("set status %s: %w", status, err)
	}
	return nil
}

// fail marks the run as errored and returns err unchanged.
func (e *Engine) fail(ctx context.Context, sink StatusSink, err error) error {
	if sink != nil {
		if serr := sink.SetStatus(context.WithoutCancel(ctx), collections.RunStatusError, e.now().UTC()); serr != nil {
			e.log.Warn("failed to record error status", "error", serr)
		}
	}
	return err
}

func validateRequest(req Request) error {
	if req.CollectionID == uuid.Nil {
		return fmt.Errorf("%w: missing collection id", ErrInvalidRequest)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	switch req.Strategy {
	case "", collections.StrategyNormalRandom, collections.StrategyRandomAfter:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidRequest, req.Strategy)
	}
	if c := strings.TrimSpace(req.ComponentClass); c != "" && !collections.ValidComponentClass(c) {
		return fmt.Errorf("%w: unknown component class %q", ErrInvalidRequest, c)
	}
	return nil
}

// Generate plans quotas, samples unique combinations, composites each one and
// finally recounts rarity. A short count is not an error.
func (e *Engine) Generate(ctx context.Context, req Request) (res *Result, err error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.ComponentClass == "" {
		req.ComponentClass = collections.DefaultComponentClass
	}
	if req.Strategy == "" {
		req.Strategy = collections.StrategyNormalRandom
	}
	ctx, span := observability.StartRunSpan(ctx, "generation.generate",
		attribute.String("collection_id", req.CollectionID.String()),
		attribute.String("strategy", req.Strategy),
		attribute.Int("amount", req.Amount),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	log := e.log.With("collection_id", req.CollectionID, "strategy", req.Strategy)

	if err := e.setStatus(ctx, req.Status, collections.RunStatusPreparing); err != nil {
		return nil, e.fail(ctx, req.Status, err)
	}
	plan, err := e.planner.Plan(ctx, req.CollectionID, req.ComponentClass, req.Amount)
	if err != nil {
		return nil, e.fail(ctx, req.Status, err)
	}
	highest, err := e.artworks.MaxOrdinal(ctx, req.CollectionID)
	if err != nil {
		return nil, e.fail(ctx, req.Status, fmt.Errorf("max artwork ordinal: %w", err))
	}

	res = &Result{
		Requested:    req.Amount,
		Feasible:     plan.FeasibleCombinations(),
		StartOrdinal: highest + 1,
	}
	res.Target = req.Amount
	if uint64(res.Target) > res.Feasible {
		res.Target = int(res.Feasible)
	}
	log.Info("generation planned", "requested", res.Requested, "feasible", res.Feasible, "target", res.Target, "start_ordinal", res.StartOrdinal)

	guard := NewGuard(req.CollectionID, e.artworks)
	guard.onReject = func() { e.metrics.IncCandidateRejected(req.Strategy) }
	strategy, err := NewStrategy(req.Strategy, e.cfg, plan, guard, e.newRand())
	if err != nil {
		return nil, e.fail(ctx, req.Status, err)
	}

	if err := e.setStatus(ctx, req.Status, collections.RunStatusGenerating); err != nil {
		return nil, e.fail(ctx, req.Status, err)
	}
	for slot := 0; slot < res.Target; slot++ {
		cand, err := strategy.Next(ctx)
		if errors.Is(err, ErrSlotExhausted) {
			res.SkippedSlots++
			e.metrics.IncSlotExhausted(strategy.Name())
			continue
		}
		if errors.Is(err, ErrSearchExhausted) {
			res.Exhausted = true
			break
		}
		if err != nil {
			return res, e.fail(ctx, req.Status, err)
		}
		started := e.now()
		art, err := e.compositor.Compose(ctx, ComposeInput{
			CollectionID:   req.CollectionID,
			OwnerUserID:    req.OwnerUserID,
			RunID:          req.RunID,
			Ordinal:        res.StartOrdinal + res.Produced,
			ComponentClass: req.ComponentClass,
			Layers:         layered(plan, cand),
		})
		if err != nil {
			return res, e.fail(ctx, req.Status, err)
		}
		e.metrics.ObserveCompose(e.now().Sub(started))
		res.Produced++
		res.ArtworkIDs = append(res.ArtworkIDs, art.ID)
	}
	log.Info("generation sampled", "produced", res.Produced, "skipped_slots", res.SkippedSlots, "exhausted", res.Exhausted)

	if _, err := e.CountTraits(ctx, req.CollectionID, req.Status); err != nil {
		return res, err
	}
	return res, nil
}

func layered(plan *Plan, c Candidate) []LayeredComponent {
	out := make([]LayeredComponent, 0, len(c.Options))
	for _, i := range c.Options {
		opt := plan.Option(i)
		if opt.Choice.IsNone() {
			continue
		}
		out = append(out, LayeredComponent{Component: opt.Choice.Component, LayerRank: opt.LayerRank})
	}
	return out
}

// CountTraits recomputes rarity statistics for the collection.
func (e *Engine) CountTraits(ctx context.Context, collectionID uuid.UUID, sink StatusSink) (*RarityReport, error) {
	if collectionID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing collection id", ErrInvalidRequest)
	}
	ctx, span := observability.StartRunSpan(ctx, "generation.count_traits", attribute.String("collection_id", collectionID.String()))
	defer span.End()
	if err := e.setStatus(ctx, sink, collections.RunStatusTraitCounting); err != nil {
		return nil, e.fail(ctx, sink, err)
	}
	report, err := e.rarity.Recount(ctx, collectionID)
	if err != nil {
		return nil, e.fail(ctx, sink, err)
	}
	if err := e.setStatus(ctx, sink, collections.RunStatusCompleted); err != nil {
		return nil, e.fail(ctx, sink, err)
	}
	return report, nil
}

// ShuffleTokenIDs renumbers the collection's artworks in random order.
func (e *Engine) ShuffleTokenIDs(ctx context.Context, collectionID uuid.UUID, sink StatusSink) (map[uuid.UUID]int, error) {
	if collectionID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing collection id", ErrInvalidRequest)
	}
	ctx, span := observability.StartRunSpan(ctx, "generation.shuffle_token_ids", attribute.String("collection_id", collectionID.String()))
	defer span.End()
	if err := e.setStatus(ctx, sink, collections.RunStatusShakingTokenID); err != nil {
		return nil, e.fail(ctx, sink, err)
	}
	assigned, err := e.shuffler.Shuffle(ctx, collectionID, e.newRand())
	if err != nil {
		return nil, e.fail(ctx, sink, err)
	}
	if err := e.setStatus(ctx, sink, collections.RunStatusCompleted); err != nil {
		return nil, e.fail(ctx, sink, err)
	}
	return assigned, nil
}
