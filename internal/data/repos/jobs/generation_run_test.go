package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/data/repos/testutil"
	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
)

func TestGenerationRunRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewGenerationRunRepo(db, testutil.Logger(t))

	now := time.Now()
	collectionID := uuid.New()

	submitted := &types.GenerationRun{
		CollectionID: collectionID,
		OwnerUserID:  uuid.New(),
		JobType:      types.JobTypeGenerate,
		Status:       types.RunStatusSubmitted,
		Amount:       10,
		CreatedAt:    now.Add(-3 * time.Hour),
		UpdatedAt:    now.Add(-3 * time.Hour),
	}
	stale := &types.GenerationRun{
		CollectionID: uuid.New(),
		OwnerUserID:  uuid.New(),
		JobType:      types.JobTypeCountTrait,
		Status:       types.RunStatusTraitCounting,
		Attempts:     1,
		HeartbeatAt:  ptrTime(now.Add(-10 * time.Hour)),
		CreatedAt:    now.Add(-2 * time.Hour),
		UpdatedAt:    now.Add(-2 * time.Hour),
	}
	exhausted := &types.GenerationRun{
		CollectionID: uuid.New(),
		OwnerUserID:  uuid.New(),
		JobType:      types.JobTypeGenerate,
		Status:       types.RunStatusGenerating,
		Attempts:     3,
		HeartbeatAt:  ptrTime(now.Add(-10 * time.Hour)),
		CreatedAt:    now.Add(-90 * time.Minute),
		UpdatedAt:    now.Add(-90 * time.Minute),
	}
	done := &types.GenerationRun{
		CollectionID: collectionID,
		OwnerUserID:  uuid.New(),
		JobType:      types.JobTypeGenerate,
		Status:       types.RunStatusCompleted,
		CreatedAt:    now.Add(-1 * time.Hour),
		UpdatedAt:    now.Add(-1 * time.Hour),
	}

	created, err := repo.Create(dbc, []*types.GenerationRun{submitted, stale, exhausted, done})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("Create: expected 4, got %d", len(created))
	}

	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{submitted.ID, stale.ID}); err != nil || len(rows) != 2 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}

	latest, err := repo.GetLatestByCollection(dbc, collectionID, types.JobTypeGenerate)
	if err != nil {
		t.Fatalf("GetLatestByCollection: %v", err)
	}
	if latest == nil || latest.ID != done.ID {
		t.Fatalf("GetLatestByCollection: expected %v got %v", done.ID, latest)
	}

	active, err := repo.HasActiveForCollection(dbc, collectionID, "")
	if err != nil || !active {
		t.Fatalf("HasActiveForCollection: active=%v err=%v", active, err)
	}
	active, err = repo.HasActiveForCollection(dbc, collectionID, types.JobTypeShakeTokenID)
	if err != nil || active {
		t.Fatalf("HasActiveForCollection (other type): active=%v err=%v", active, err)
	}

	claim1, err := repo.ClaimNextRunnable(dbc, 3, time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #1: %v", err)
	}
	if claim1 == nil || claim1.ID != submitted.ID || claim1.Attempts != 1 {
		t.Fatalf("ClaimNextRunnable #1: expected %v got %+v", submitted.ID, claim1)
	}

	claim2, err := repo.ClaimNextRunnable(dbc, 3, time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #2: %v", err)
	}
	if claim2 == nil || claim2.ID != stale.ID {
		t.Fatalf("ClaimNextRunnable #2: expected %v got %+v", stale.ID, claim2)
	}

	claim3, err := repo.ClaimNextRunnable(dbc, 3, time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #3: %v", err)
	}
	if claim3 != nil {
		t.Fatalf("ClaimNextRunnable #3: expected nil, got %+v", claim3)
	}

	abandoned, err := repo.ListAbandoned(dbc, 3, time.Hour)
	if err != nil {
		t.Fatalf("ListAbandoned: %v", err)
	}
	if len(abandoned) != 1 || abandoned[0].ID != exhausted.ID {
		t.Fatalf("ListAbandoned: expected only %v, got %d rows", exhausted.ID, len(abandoned))
	}

	if err := repo.Heartbeat(dbc, submitted.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	if err := repo.UpdateFields(dbc, submitted.ID, map[string]interface{}{"status": types.RunStatusError}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	ok, err := repo.UpdateFieldsUnlessStatus(dbc, submitted.ID, []string{types.RunStatusError, types.RunStatusCompleted},
		map[string]interface{}{"status": types.RunStatusGenerating})
	if err != nil {
		t.Fatalf("UpdateFieldsUnlessStatus: %v", err)
	}
	if ok {
		t.Fatalf("UpdateFieldsUnlessStatus: expected no update on a failed run")
	}
	ok, err = repo.UpdateFieldsUnlessStatus(dbc, stale.ID, []string{types.RunStatusError},
		map[string]interface{}{"status": types.RunStatusCompleted})
	if err != nil || !ok {
		t.Fatalf("UpdateFieldsUnlessStatus stale: ok=%v err=%v", ok, err)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
