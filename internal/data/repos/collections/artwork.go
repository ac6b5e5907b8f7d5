package collections

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

type ArtworkRepo interface {
	// Create inserts the artwork and its component links in one transaction.
	Create(dbc dbctx.Context, art *types.Artwork) error
	ExistsByDNA(dbc dbctx.Context, collectionID uuid.UUID, dna string) (bool, error)
	ListByCollection(dbc dbctx.Context, collectionID uuid.UUID) ([]*types.Artwork, error)
	CountByCollection(dbc dbctx.Context, collectionID uuid.UUID) (int, error)
	// MaxOrdinal is the highest "<n>.png" ordinal in the collection, 0 when empty.
	MaxOrdinal(dbc dbctx.Context, collectionID uuid.UUID) (int, error)
	CountUsingComponent(dbc dbctx.Context, componentID uuid.UUID) (int, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type artworkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtworkRepo(db *gorm.DB, baseLog *logger.Logger) ArtworkRepo {
	return &artworkRepo{db: db, log: baseLog.With("repo", "ArtworkRepo")}
}

func (r *artworkRepo) Create(dbc dbctx.Context, art *types.Artwork) error {
	if art == nil {
		return fmt.Errorf("artwork required")
	}
	if art.DNA == "" {
		ids := make([]uuid.UUID, 0, len(art.Components))
		for _, c := range art.Components {
			ids = append(ids, c.ComponentID)
		}
		art.DNA = types.DNA(ids)
	}
	links := art.Components
	art.Components = nil
	defer func() { art.Components = links }()

	return dbc.DB(r.db).Transaction(func(txx *gorm.DB) error {
		if err := txx.Create(art).Error; err != nil {
			return err
		}
		if len(links) == 0 {
			return nil
		}
		for i := range links {
			links[i].ArtworkID = art.ID
		}
		return txx.Create(&links).Error
	})
}

func (r *artworkRepo) ExistsByDNA(dbc dbctx.Context, collectionID uuid.UUID, dna string) (bool, error) {
	if collectionID == uuid.Nil || dna == "" {
		return false, nil
	}
	var count int64
	err := dbc.DB(r.db).Model(&types.Artwork{}).
		Where("collection_id = ? AND dna = ?", collectionID, dna).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByCollection orders by name, which is "#<ordinal>" for generated artworks.
func (r *artworkRepo) ListByCollection(dbc dbctx.Context, collectionID uuid.UUID) ([]*types.Artwork, error) {
	var out []*types.Artwork
	if collectionID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("layer_order ASC") }).
		Where("collection_id = ?", collectionID).
		Order("name ASC").
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *artworkRepo) CountByCollection(dbc dbctx.Context, collectionID uuid.UUID) (int, error) {
	var count int64
	err := dbc.DB(r.db).Model(&types.Artwork{}).
		Where("collection_id = ?", collectionID).
		Count(&count).Error
	return int(count), err
}

func (r *artworkRepo) MaxOrdinal(dbc dbctx.Context, collectionID uuid.UUID) (int, error) {
	var filenames []string
	err := dbc.DB(r.db).Model(&types.Artwork{}).
		Where("collection_id = ?", collectionID).
		Pluck("filename", &filenames).Error
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, f := range filenames {
		if n, ok := types.OrdinalFromFilename(f); ok && n > highest {
			highest = n
		}
	}
	return highest, nil
}

func (r *artworkRepo) CountUsingComponent(dbc dbctx.Context, componentID uuid.UUID) (int, error) {
	var count int64
	err := dbc.DB(r.db).Model(&types.ArtworkComponent{}).
		Where("component_id = ?", componentID).
		Count(&count).Error
	return int(count), err
}

func (r *artworkRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return dbc.DB(r.db).Model(&types.Artwork{}).Where("id = ?", id).Updates(updates).Error
}
