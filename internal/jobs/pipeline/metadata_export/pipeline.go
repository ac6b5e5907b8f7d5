package metadata_export

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/generation"
	jobrt "github.com/yungbote/hermes-backend/internal/jobs/runtime"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
)

type Output struct {
	Exported int    `json:"exported"`
	Prefix   string `json:"prefix"`
}

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	out, err := p.export(jc)
	if err != nil {
		jc.Fail("export_metadata", err)
		return err
	}
	if err := jc.SetStatus(jc.Ctx, types.RunStatusCompleted, time.Now().UTC()); err != nil {
		jc.Fail("export_metadata", err)
		return err
	}
	jc.Succeed(out)
	return nil
}

func (p *Pipeline) export(jc *jobrt.Context) (*Output, error) {
	ctx := jc.Ctx
	cid := jc.Run.CollectionID
	dbc := dbctx.New(ctx)

	if err := jc.SetStatus(ctx, types.RunStatusExporting, time.Now().UTC()); err != nil {
		return nil, err
	}
	col, err := p.repos.Collections.GetByID(dbc, cid)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	if col == nil {
		return nil, fmt.Errorf("collection %s not found", cid)
	}
	if f := strings.TrimSpace(col.MetadataFormat); f != "" && f != types.MetadataFormatOpenSea {
		return nil, fmt.Errorf("unsupported metadata format %q", f)
	}

	layers, err := p.repos.Layers.ListByCollection(dbc, cid)
	if err != nil {
		return nil, fmt.Errorf("list layers: %w", err)
	}
	arts, err := p.repos.Artworks.ListByCollection(dbc, cid)
	if err != nil {
		return nil, fmt.Errorf("list artworks: %w", err)
	}
	seen := map[uuid.UUID]bool{}
	var compIDs []uuid.UUID
	for _, a := range arts {
		for _, l := range a.Components {
			if !seen[l.ComponentID] {
				seen[l.ComponentID] = true
				compIDs = append(compIDs, l.ComponentID)
			}
		}
	}
	comps, err := p.repos.Components.GetByIDs(dbc, compIDs)
	if err != nil {
		return nil, fmt.Errorf("load components: %w", err)
	}
	src := generation.MetadataSources{
		Layers:     make(map[uuid.UUID]*types.Layer, len(layers)),
		Components: make(map[uuid.UUID]*types.Component, len(comps)),
	}
	for _, l := range layers {
		src.Layers[l.ID] = l
	}
	for _, c := range comps {
		src.Components[c.ID] = c
	}

	var (
		done       atomic.Int64
		progressMu sync.Mutex
	)
	total := len(arts)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, a := range arts {
		g.Go(func() error {
			body, err := generation.EncodeMetadata(generation.BuildMetadata(col, a, src))
			if err != nil {
				return fmt.Errorf("encode metadata for %s: %w", a.ID, err)
			}
			if err := p.bucket.Upload(gctx, generation.MetadataKey(cid, a.FilenameStem()), body, "application/json"); err != nil {
				return fmt.Errorf("upload metadata for %s: %w", a.ID, err)
			}
			if n := done.Add(1); n%50 == 0 {
				progressMu.Lock()
				defer progressMu.Unlock()
				jc.Progress(types.RunStatusExporting, int(n*100/int64(total)), fmt.Sprintf("%d/%d exported", n, total))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.log.Info("metadata exported", "collection_id", cid, "count", total)
	return &Output{
		Exported: total,
		Prefix:   fmt.Sprintf("collections/%s/metadata/", cid),
	}, nil
}
