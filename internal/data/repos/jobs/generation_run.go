package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

var terminalStatuses = []string{types.RunStatusCompleted, types.RunStatusError}

type GenerationRunRepo interface {
	Create(dbc dbctx.Context, runs []*types.GenerationRun) ([]*types.GenerationRun, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.GenerationRun, error)
	GetLatestByCollection(dbc dbctx.Context, collectionID uuid.UUID, jobType string) (*types.GenerationRun, error)
	// ClaimNextRunnable picks the oldest unclaimed submitted run, or an in-flight run
	// whose heartbeat is older than staleRunning and that has attempts left.
	ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, staleRunning time.Duration) (*types.GenerationRun, error)
	// ListAbandoned returns in-flight runs with a stale heartbeat and no attempts left.
	ListAbandoned(dbc dbctx.Context, maxAttempts int, staleRunning time.Duration) ([]*types.GenerationRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	// HasActiveForCollection ignores jobType when it is empty.
	HasActiveForCollection(dbc dbctx.Context, collectionID uuid.UUID, jobType string) (bool, error)
}

type generationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationRunRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRunRepo {
	return &generationRunRepo{
		db:  db,
		log: baseLog.With("repo", "GenerationRunRepo"),
	}
}

func (r *generationRunRepo) Create(dbc dbctx.Context, runs []*types.GenerationRun) ([]*types.GenerationRun, error) {
	if len(runs) == 0 {
		return []*types.GenerationRun{}, nil
	}
	if err := dbc.DB(r.db).Create(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *generationRunRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.GenerationRun, error) {
	var out []*types.GenerationRun
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *generationRunRepo) GetLatestByCollection(dbc dbctx.Context, collectionID uuid.UUID, jobType string) (*types.GenerationRun, error) {
	if collectionID == uuid.Nil {
		return nil, nil
	}
	q := dbc.DB(r.db).Where("collection_id = ?", collectionID)
	if jobType != "" {
		q = q.Where("job_type = ?", jobType)
	}
	var run types.GenerationRun
	if err := q.Order("created_at DESC").Limit(1).Find(&run).Error; err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *generationRunRepo) ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, staleRunning time.Duration) (*types.GenerationRun, error) {
	now := time.Now()
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.GenerationRun
	err := dbc.DB(r.db).Transaction(func(txx *gorm.DB) error {
		q := txx
		if txx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var run types.GenerationRun
		qErr := q.Where(`
        (
          (status = ? AND locked_at IS NULL)
          OR (
            status NOT IN ?
            AND attempts < ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, types.RunStatusSubmitted, terminalStatuses, maxAttempts, staleCutoff).
			Order("created_at ASC").
			First(&run).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.GenerationRun{}).
			Where("id = ?", run.ID).
			Updates(map[string]interface{}{
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		run.Attempts++
		run.LockedAt = &now
		run.HeartbeatAt = &now
		claimed = &run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *generationRunRepo) ListAbandoned(dbc dbctx.Context, maxAttempts int, staleRunning time.Duration) ([]*types.GenerationRun, error) {
	var out []*types.GenerationRun
	err := dbc.DB(r.db).
		Where("status NOT IN ? AND attempts >= ? AND heartbeat_at IS NOT NULL AND heartbeat_at < ?",
			terminalStatuses, maxAttempts, time.Now().Add(-staleRunning)).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *generationRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return dbc.DB(r.db).
		Model(&types.GenerationRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *generationRunRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := dbc.DB(r.db).
		Model(&types.GenerationRun{}).
		Where("id = ?", id)
	if len(disallowedStatuses) == 1 {
		q = q.Where("status <> ?", disallowedStatuses[0])
	} else if len(disallowedStatuses) > 1 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *generationRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return dbc.DB(r.db).
		Model(&types.GenerationRun{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *generationRunRepo) HasActiveForCollection(dbc dbctx.Context, collectionID uuid.UUID, jobType string) (bool, error) {
	if collectionID == uuid.Nil {
		return false, nil
	}
	q := dbc.DB(r.db).
		Model(&types.GenerationRun{}).
		Where("collection_id = ? AND status NOT IN ?", collectionID, terminalStatuses)
	if jobType != "" {
		q = q.Where("job_type = ?", jobType)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
