package collections

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

type CollectionRepo interface {
	Create(dbc dbctx.Context, c *types.Collection) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Collection, error)
	SetGeneratedTrait(dbc dbctx.Context, id uuid.UUID, total int) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type collectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCollectionRepo(db *gorm.DB, baseLog *logger.Logger) CollectionRepo {
	return &collectionRepo{db: db, log: baseLog.With("repo", "CollectionRepo")}
}

func (r *collectionRepo) Create(dbc dbctx.Context, c *types.Collection) error {
	return dbc.DB(r.db).Create(c).Error
}

// GetByID returns nil, nil when the collection does not exist.
func (r *collectionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Collection, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Collection
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *collectionRepo) SetGeneratedTrait(dbc dbctx.Context, id uuid.UUID, total int) error {
	return r.UpdateFields(dbc, id, map[string]interface{}{"generated_trait": total})
}

func (r *collectionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return dbc.DB(r.db).Model(&types.Collection{}).Where("id = ?", id).Updates(updates).Error
}
