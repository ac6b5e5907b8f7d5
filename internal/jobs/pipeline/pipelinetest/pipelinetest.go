// Package pipelinetest builds an in-process environment for pipeline tests:
// SQLite repos, an in-memory bucket and bus, and a seeded generation engine.
package pipelinetest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/hermes-backend/internal/data/repos"
	"github.com/yungbote/hermes-backend/internal/data/repos/testutil"
	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/generation"
	jobrt "github.com/yungbote/hermes-backend/internal/jobs/runtime"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
	"github.com/yungbote/hermes-backend/internal/platform/locks"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
	"github.com/yungbote/hermes-backend/internal/platform/storage"
	"github.com/yungbote/hermes-backend/internal/realtime"
	"github.com/yungbote/hermes-backend/internal/realtime/bus"
	"github.com/yungbote/hermes-backend/internal/services"
)

type Env struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Repos  repos.Repos
	Bucket *storage.MemoryBucket
	Store  *services.ArtStore
	Engine *generation.Engine
	Bus    *bus.MemoryBus
	Locker *locks.LocalLocker

	mu     sync.Mutex
	events []realtime.RunEvent
}

func New(tb testing.TB) *Env {
	tb.Helper()
	db := testutil.DB(tb)
	log := testutil.Logger(tb)
	r := repos.New(db, log)
	bucket := storage.NewMemoryBucket("")
	store := services.NewArtStore(log, r, bucket)
	cfg := generation.DefaultConfig()
	cfg.Seed = 11

	e := &Env{
		DB:     db,
		Log:    log,
		Repos:  r,
		Bucket: bucket,
		Store:  store,
		Bus:    bus.NewMemoryBus(),
		Locker: locks.NewLocalLocker(),
		Engine: generation.NewEngine(generation.EngineDeps{
			Log:      log,
			Config:   cfg,
			Layers:   store,
			Artworks: store,
			Images:   store,
		}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	tb.Cleanup(cancel)
	_ = e.Bus.StartForwarder(ctx, func(ev realtime.RunEvent) {
		e.mu.Lock()
		e.events = append(e.events, ev)
		e.mu.Unlock()
	})
	return e
}

// Events returns the event types published so far, in order.
func (e *Env) Events() []realtime.RunEventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]realtime.RunEventType, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Event)
	}
	return out
}

// Collection seeds "bg" (red, blue at 50% each) under "eyes" (dot at 100%),
// both required, with an image for every component.
func (e *Env) Collection(tb testing.TB) (*types.Collection, []*types.Component) {
	tb.Helper()
	ctx := context.Background()
	col := testutil.SeedCollection(tb, ctx, e.DB, "pipeline")
	bg := testutil.SeedLayer(tb, ctx, e.DB, col.ID, "bg", 0, true)
	eyes := testutil.SeedLayer(tb, ctx, e.DB, col.ID, "eyes", 1, true)
	comps := []*types.Component{
		testutil.SeedComponent(tb, ctx, e.DB, bg, "red", "A", 50),
		testutil.SeedComponent(tb, ctx, e.DB, bg, "blue", "A", 50),
		testutil.SeedComponent(tb, ctx, e.DB, eyes, "dot", "A", 100),
	}
	shades := []color.NRGBA{{R: 255, A: 255}, {B: 255, A: 255}, {A: 255}}
	for i, c := range comps {
		if err := e.Bucket.Upload(ctx, c.ImageKey, SolidPNG(tb, 4, 4, shades[i]), "image/png"); err != nil {
			tb.Fatalf("seed image: %v", err)
		}
	}
	return col, comps
}

func (e *Env) Run(tb testing.TB, col *types.Collection, jobType string, payload string) *types.GenerationRun {
	tb.Helper()
	run := testutil.SeedRun(tb, context.Background(), e.DB, col.ID, jobType, types.RunStatusSubmitted)
	if payload != "" {
		if err := e.DB.Model(run).Update("payload", payload).Error; err != nil {
			tb.Fatalf("set payload: %v", err)
		}
		run.Payload = []byte(payload)
	}
	return run
}

func (e *Env) Context(run *types.GenerationRun) *jobrt.Context {
	return jobrt.NewContext(context.Background(), run, e.Repos.Runs, e.Bus, e.Log)
}

func (e *Env) Reload(tb testing.TB, id uuid.UUID) *types.GenerationRun {
	tb.Helper()
	rows, err := e.Repos.Runs.GetByIDs(dbctx.New(context.Background()), []uuid.UUID{id})
	if err != nil || len(rows) != 1 {
		tb.Fatalf("reload run: err=%v rows=%d", err, len(rows))
	}
	return rows[0]
}

func SolidPNG(tb testing.TB, w, h int, c color.Color) []byte {
	tb.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		tb.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
