package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/hermes-backend/internal/domain/collections"
)

func SeedCollection(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Collection {
	tb.Helper()
	c := &types.Collection{
		ID:             uuid.New(),
		OwnerUserID:    uuid.New(),
		Name:           name,
		MetadataFormat: types.MetadataFormatOpenSea,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed collection: %v", err)
	}
	return c
}

func SeedLayer(tb testing.TB, ctx context.Context, tx *gorm.DB, collectionID uuid.UUID, name string, rank int, required bool) *types.Layer {
	tb.Helper()
	l := &types.Layer{
		ID:           uuid.New(),
		CollectionID: collectionID,
		Name:         name,
		Rank:         rank,
		Required:     required,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed layer: %v", err)
	}
	return l
}

func SeedComponent(tb testing.TB, ctx context.Context, tx *gorm.DB, layer *types.Layer, name, class string, weight float64) *types.Component {
	tb.Helper()
	if class == "" {
		class = types.DefaultComponentClass
	}
	id := uuid.New()
	c := &types.Component{
		ID:             id,
		CollectionID:   layer.CollectionID,
		LayerID:        layer.ID,
		Name:           name,
		ComponentClass: class,
		RarityWeight:   weight,
		ImageKey:       fmt.Sprintf("collections/%s/components/%s/%s.png", layer.CollectionID, id, name),
		ContentType:    "image/png",
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed component: %v", err)
	}
	return c
}

// SeedArtwork stores an artwork named "#<ordinal>" linked to comps.
func SeedArtwork(tb testing.TB, ctx context.Context, tx *gorm.DB, collectionID uuid.UUID, ordinal int, comps ...*types.Component) *types.Artwork {
	tb.Helper()
	a := &types.Artwork{
		ID:           uuid.New(),
		CollectionID: collectionID,
		OwnerUserID:  uuid.New(),
		Name:         fmt.Sprintf("#%d", ordinal),
		Filename:     fmt.Sprintf("%d.png", ordinal),
		ContentType:  "image/png",
	}
	a.ImageKey = fmt.Sprintf("collections/%s/artworks/%s/%d.png", collectionID, a.ID, ordinal)
	ids := make([]uuid.UUID, 0, len(comps))
	for _, c := range comps {
		ids = append(ids, c.ID)
	}
	a.DNA = types.DNA(ids)
	if err := tx.WithContext(ctx).Omit("Components").Create(a).Error; err != nil {
		tb.Fatalf("seed artwork: %v", err)
	}
	for i, c := range comps {
		link := &types.ArtworkComponent{ArtworkID: a.ID, ComponentID: c.ID, LayerID: c.LayerID, LayerRank: i}
		if err := tx.WithContext(ctx).Create(link).Error; err != nil {
			tb.Fatalf("seed artwork component: %v", err)
		}
		a.Components = append(a.Components, *link)
	}
	return a
}

func SeedRun(tb testing.TB, ctx context.Context, tx *gorm.DB, collectionID uuid.UUID, jobType, status string) *types.GenerationRun {
	tb.Helper()
	r := &types.GenerationRun{
		ID:           uuid.New(),
		CollectionID: collectionID,
		OwnerUserID:  uuid.New(),
		JobType:      jobType,
		Status:       status,
		Payload:      datatypes.JSON([]byte("{}")),
		Result:       datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed run: %v", err)
	}
	return r
}
