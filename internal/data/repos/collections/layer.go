package collections

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

type LayerRepo interface {
	Create(dbc dbctx.Context, layers []*types.Layer) ([]*types.Layer, error)
	ListByCollection(dbc dbctx.Context, collectionID uuid.UUID) ([]*types.Layer, error)
}

type layerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLayerRepo(db *gorm.DB, baseLog *logger.Logger) LayerRepo {
	return &layerRepo{db: db, log: baseLog.With("repo", "LayerRepo")}
}

func (r *layerRepo) Create(dbc dbctx.Context, layers []*types.Layer) ([]*types.Layer, error) {
	if len(layers) == 0 {
		return []*types.Layer{}, nil
	}
	if err := dbc.DB(r.db).Create(&layers).Error; err != nil {
		return nil, err
	}
	return layers, nil
}

// ListByCollection orders by rank, bottom layer first.
func (r *layerRepo) ListByCollection(dbc dbctx.Context, collectionID uuid.UUID) ([]*types.Layer, error) {
	var out []*types.Layer
	if collectionID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("collection_id = ?", collectionID).
		Order("layer_order ASC").
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

type ComponentRepo interface {
	Create(dbc dbctx.Context, comps []*types.Component) ([]*types.Component, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Component, error)
	// ListByLayer filters by class unless class is empty.
	ListByLayer(dbc dbctx.Context, layerID uuid.UUID, class string) ([]*types.Component, error)
	UpdateStats(dbc dbctx.Context, id uuid.UUID, generatedNumber int, rarity, rarityPercent float64) error
}

type componentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewComponentRepo(db *gorm.DB, baseLog *logger.Logger) ComponentRepo {
	return &componentRepo{db: db, log: baseLog.With("repo", "ComponentRepo")}
}

func (r *componentRepo) Create(dbc dbctx.Context, comps []*types.Component) ([]*types.Component, error) {
	if len(comps) == 0 {
		return []*types.Component{}, nil
	}
	if err := dbc.DB(r.db).Create(&comps).Error; err != nil {
		return nil, err
	}
	return comps, nil
}

func (r *componentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Component, error) {
	var out []*types.Component
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *componentRepo) ListByLayer(dbc dbctx.Context, layerID uuid.UUID, class string) ([]*types.Component, error) {
	var out []*types.Component
	if layerID == uuid.Nil {
		return out, nil
	}
	q := dbc.DB(r.db).Where("layer_id = ?", layerID)
	if class = strings.TrimSpace(class); class != "" {
		q = q.Where("component_class = ?", class)
	}
	if err := q.Order("created_at ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *componentRepo) UpdateStats(dbc dbctx.Context, id uuid.UUID, generatedNumber int, rarity, rarityPercent float64) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Component{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"generated_number": generatedNumber,
			"rarity":           rarity,
			"rarity_percent":   rarityPercent,
			"updated_at":       time.Now(),
		}).Error
}
