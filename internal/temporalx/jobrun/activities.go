package jobrun

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"gorm.io/gorm"

	"github.com/yungbote/hermes-backend/internal/data/repos"
	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

// Executor runs one claimed run to a terminal status.
type Executor interface {
	Execute(ctx context.Context, run *types.GenerationRun) error
	// Abandon moves a run nobody can finish to error.
	Abandon(ctx context.Context, run *types.GenerationRun, cause error)
}

type Activities struct {
	Log      *logger.Logger
	Runs     repos.GenerationRunRepo
	Executor Executor
}

func (a *Activities) Execute(ctx context.Context, runID string) (RunResult, error) {
	res := RunResult{RunID: strings.TrimSpace(runID)}
	if a == nil || a.Runs == nil || a.Executor == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}
	id, err := uuid.Parse(res.RunID)
	if err != nil || id == uuid.Nil {
		return res, fmt.Errorf("jobrun: invalid run_id")
	}

	run, err := a.load(ctx, id)
	if err != nil {
		return res, err
	}
	if run == nil {
		return res, fmt.Errorf("jobrun: run %s not found", id)
	}
	if types.IsTerminalRunStatus(run.Status) {
		return fill(res, run), nil
	}

	now := time.Now()
	claimed, err := a.Runs.UpdateFieldsUnlessStatus(dbctx.New(ctx), id, []string{types.RunStatusCompleted, types.RunStatusError}, map[string]interface{}{
		"attempts":     gorm.Expr("attempts + 1"),
		"locked_at":    now,
		"heartbeat_at": now,
	})
	if err != nil {
		return res, fmt.Errorf("jobrun: claim run: %w", err)
	}
	if claimed {
		run.Attempts++
		run.LockedAt = &now
		run.HeartbeatAt = &now

		stop := a.startHeartbeat(ctx)
		// failures are recorded on the run row; the result below carries them
		_ = a.Executor.Execute(ctx, run)
		stop()
	}

	updated, err := a.load(ctx, id)
	if err != nil {
		return res, err
	}
	if updated == nil {
		return res, fmt.Errorf("jobrun: run %s vanished", id)
	}
	return fill(res, updated), nil
}

func (a *Activities) Abandon(ctx context.Context, runID, reason string) error {
	if a == nil || a.Runs == nil || a.Executor == nil {
		return fmt.Errorf("jobrun: activity not configured")
	}
	id, err := uuid.Parse(strings.TrimSpace(runID))
	if err != nil || id == uuid.Nil {
		return fmt.Errorf("jobrun: invalid run_id")
	}
	run, err := a.load(ctx, id)
	if err != nil {
		return err
	}
	if run == nil || types.IsTerminalRunStatus(run.Status) {
		return nil
	}
	a.Executor.Abandon(ctx, run, errors.New(reason))
	return nil
}

func fill(res RunResult, run *types.GenerationRun) RunResult {
	res.Status = run.Status
	res.Stage = run.Stage
	res.Progress = run.Progress
	res.Message = run.Message
	res.Error = run.Error
	return res
}

func (a *Activities) load(ctx context.Context, id uuid.UUID) (*types.GenerationRun, error) {
	rows, err := a.Runs.GetByIDs(dbctx.New(ctx), []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, nil
	}
	return rows[0], nil
}

func (a *Activities) startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
