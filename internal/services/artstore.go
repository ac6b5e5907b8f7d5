package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/data/repos"
	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/generation"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
	"github.com/yungbote/hermes-backend/internal/platform/storage"
)

// ArtStore backs the generation engine with the repos and the art bucket.
type ArtStore struct {
	log    *logger.Logger
	repos  repos.Repos
	bucket storage.BucketService
}

var (
	_ generation.LayerStore   = (*ArtStore)(nil)
	_ generation.ArtworkStore = (*ArtStore)(nil)
	_ generation.ImageStore   = (*ArtStore)(nil)
)

func NewArtStore(baseLog *logger.Logger, r repos.Repos, bucket storage.BucketService) *ArtStore {
	return &ArtStore{
		log:    baseLog.With("service", "ArtStore"),
		repos:  r,
		bucket: bucket,
	}
}

func (s *ArtStore) ListLayers(ctx context.Context, collectionID uuid.UUID) ([]*types.Layer, error) {
	return s.repos.Layers.ListByCollection(dbctx.New(ctx), collectionID)
}

func (s *ArtStore) ListComponents(ctx context.Context, layerID uuid.UUID, class string) ([]*types.Component, error) {
	return s.repos.Components.ListByLayer(dbctx.New(ctx), layerID, class)
}

func (s *ArtStore) CountArtworksUsing(ctx context.Context, componentID uuid.UUID) (int, error) {
	return s.repos.Artworks.CountUsingComponent(dbctx.New(ctx), componentID)
}

func (s *ArtStore) GetComponents(ctx context.Context, ids []uuid.UUID) ([]*types.Component, error) {
	return s.repos.Components.GetByIDs(dbctx.New(ctx), ids)
}

func (s *ArtStore) UpdateComponentStats(ctx context.Context, componentID uuid.UUID, generatedNumber int, rarity, rarityPercent float64) error {
	return s.repos.Components.UpdateStats(dbctx.New(ctx), componentID, generatedNumber, rarity, rarityPercent)
}

func (s *ArtStore) SetGeneratedTrait(ctx context.Context, collectionID uuid.UUID, total int) error {
	return s.repos.Collections.SetGeneratedTrait(dbctx.New(ctx), collectionID, total)
}

func (s *ArtStore) ExistsWithComponents(ctx context.Context, collectionID uuid.UUID, componentIDs []uuid.UUID) (bool, error) {
	dna := types.DNA(componentIDs)
	if dna == "" {
		return false, nil
	}
	return s.repos.Artworks.ExistsByDNA(dbctx.New(ctx), collectionID, dna)
}

func (s *ArtStore) CreateArtwork(ctx context.Context, art *types.Artwork) error {
	return s.repos.Artworks.Create(dbctx.New(ctx), art)
}

func (s *ArtStore) ListArtworks(ctx context.Context, collectionID uuid.UUID) ([]*types.Artwork, error) {
	return s.repos.Artworks.ListByCollection(dbctx.New(ctx), collectionID)
}

func (s *ArtStore) MaxOrdinal(ctx context.Context, collectionID uuid.UUID) (int, error) {
	return s.repos.Artworks.MaxOrdinal(dbctx.New(ctx), collectionID)
}

func (s *ArtStore) UpdateArtwork(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return s.repos.Artworks.UpdateFields(dbctx.New(ctx), id, fields)
}

func (s *ArtStore) Read(ctx context.Context, key string) ([]byte, string, error) {
	return s.bucket.Download(ctx, key)
}

func (s *ArtStore) Write(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = storage.DetectContentType(key, data)
	}
	return s.bucket.Upload(ctx, key, data, contentType)
}

func (s *ArtStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	if srcKey == dstKey {
		return nil
	}
	if err := s.bucket.Copy(ctx, srcKey, dstKey); err != nil {
		return fmt.Errorf("copy %s: %w", srcKey, err)
	}
	return nil
}

func (s *ArtStore) Delete(ctx context.Context, key string) error {
	return s.bucket.Delete(ctx, key)
}

func (s *ArtStore) PublicURL(key string) string {
	return s.bucket.PublicURL(key)
}
