package generation

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

type ComposeInput struct {
	CollectionID   uuid.UUID
	OwnerUserID    uuid.UUID
	RunID          *uuid.UUID
	Ordinal        int
	ComponentClass string
	// Layers are bottom first.
	Layers []LayeredComponent
}

type LayeredComponent struct {
	Component *collections.Component
	LayerRank int
}

type Compositor struct {
	log         *logger.Logger
	images      ImageStore
	artworks    ArtworkStore
	concurrency int
}

func NewCompositor(log *logger.Logger, cfg Config, images ImageStore, artworks ArtworkStore) *Compositor {
	cfg = cfg.normalized()
	return &Compositor{
		log:         log.With("service", "Compositor"),
		images:      images,
		artworks:    artworks,
		concurrency: cfg.FetchConcurrency,
	}
}

// Compose renders the stacked image, stores it and creates the artwork row.
func (c *Compositor) Compose(ctx context.Context, in ComposeInput) (*collections.Artwork, error) {
	if len(in.Layers) == 0 {
		return nil, fmt.Errorf("%w: nothing to compose", ErrInvalidRequest)
	}
	decoded, err := c.load(ctx, in.Layers)
	if err != nil {
		return nil, err
	}
	png, err := Render(decoded)
	if err != nil {
		return nil, err
	}

	artID := uuid.New()
	key := ArtworkImageKey(in.CollectionID, artID, in.Ordinal)
	if err := c.images.Write(ctx, key, png, "image/png"); err != nil {
		return nil, fmt.Errorf("store artwork image: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(in.Layers))
	links := make([]collections.ArtworkComponent, 0, len(in.Layers))
	for _, l := range in.Layers {
		ids = append(ids, l.Component.ID)
		links = append(links, collections.ArtworkComponent{
			ArtworkID:   artID,
			ComponentID: l.Component.ID,
			LayerID:     l.Component.LayerID,
			LayerRank:   l.LayerRank,
		})
	}
	art := &collections.Artwork{
		ID:              artID,
		CollectionID:    in.CollectionID,
		OwnerUserID:     in.OwnerUserID,
		GenerationRunID: in.RunID,
		Name:            ArtworkName(in.Ordinal),
		Description:     ArtworkName(in.Ordinal),
		Filename:        ArtworkFilename(in.Ordinal),
		ImageKey:        key,
		ContentType:     "image/png",
		ComponentClass:  in.ComponentClass,
		DNA:             collections.DNA(ids),
		Components:      links,
	}
	if err := c.artworks.CreateArtwork(ctx, art); err != nil {
		if delErr := c.images.Delete(ctx, key); delErr != nil {
			c.log.Warn("orphaned artwork image", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("create artwork: %w", err)
	}
	return art, nil
}

func (c *Compositor) load(ctx context.Context, layers []LayeredComponent) ([]image.Image, error) {
	out := make([]image.Image, len(layers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, l := range layers {
		g.Go(func() error {
			data, _, err := c.images.Read(gctx, l.Component.ImageKey)
			if err != nil {
				return fmt.Errorf("read component %s image: %w", l.Component.ID, err)
			}
			img, _, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("decode component %s image: %w", l.Component.ID, err)
			}
			out[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Render pastes each image over the previous ones at the origin and encodes PNG.
// The canvas takes the bounds of the bottom image.
func Render(stack []image.Image) ([]byte, error) {
	if len(stack) == 0 {
		return nil, fmt.Errorf("%w: empty image stack", ErrInvalidRequest)
	}
	dc := gg.NewContextForImage(stack[0])
	canvas, ok := dc.Image().(xdraw.Image)
	if !ok {
		return nil, fmt.Errorf("canvas is not drawable")
	}
	for _, overlay := range stack[1:] {
		ob := overlay.Bounds()
		xdraw.Draw(canvas, image.Rect(0, 0, ob.Dx(), ob.Dy()), overlay, ob.Min, xdraw.Over)
	}
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
