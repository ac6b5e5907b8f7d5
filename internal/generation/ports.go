package generation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
)

// LayerStore reads layer definitions and writes component statistics.
type LayerStore interface {
	// ListLayers returns the collection's layers ordered by rank, bottom first.
	ListLayers(ctx context.Context, collectionID uuid.UUID) ([]*collections.Layer, error)
	// ListComponents returns a layer's components; an empty class means all classes.
	ListComponents(ctx context.Context, layerID uuid.UUID, class string) ([]*collections.Component, error)
	CountArtworksUsing(ctx context.Context, componentID uuid.UUID) (int, error)
	GetComponents(ctx context.Context, ids []uuid.UUID) ([]*collections.Component, error)
	UpdateComponentStats(ctx context.Context, componentID uuid.UUID, generatedNumber int, rarity, rarityPercent float64) error
	SetGeneratedTrait(ctx context.Context, collectionID uuid.UUID, total int) error
}

type ArtworkStore interface {
	ExistsWithComponents(ctx context.Context, collectionID uuid.UUID, componentIDs []uuid.UUID) (bool, error)
	// CreateArtwork persists the artwork together with its component links.
	CreateArtwork(ctx context.Context, art *collections.Artwork) error
	// ListArtworks returns all artworks ordered by name with components loaded.
	ListArtworks(ctx context.Context, collectionID uuid.UUID) ([]*collections.Artwork, error)
	// MaxOrdinal is the highest ordinal already used in the collection, 0 when empty.
	MaxOrdinal(ctx context.Context, collectionID uuid.UUID) (int, error)
	UpdateArtwork(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

// ImageStore is keyed blob access for component and artwork images.
type ImageStore interface {
	Read(ctx context.Context, key string) ([]byte, string, error)
	Write(ctx context.Context, key string, data []byte, contentType string) error
	// Copy duplicates srcKey to dstKey, leaving the source in place.
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
}

type StatusSink interface {
	SetStatus(ctx context.Context, status string, at time.Time) error
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(ctx context.Context, status string, at time.Time) error

func (f StatusFunc) SetStatus(ctx context.Context, status string, at time.Time) error {
	return f(ctx, status, at)
}

type discardStatus struct{}

func (discardStatus) SetStatus(context.Context, string, time.Time) error { return nil }
