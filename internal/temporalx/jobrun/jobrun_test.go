package jobrun

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/hermes-backend/internal/data/repos"
	"github.com/yungbote/hermes-backend/internal/data/repos/testutil"
	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
)

type completingExecutor struct {
	runs  repos.GenerationRunRepo
	calls int
}

func (e *completingExecutor) Execute(ctx context.Context, run *types.GenerationRun) error {
	e.calls++
	return e.runs.UpdateFields(dbctx.New(ctx), run.ID, map[string]interface{}{
		"status":   types.RunStatusCompleted,
		"progress": 100,
	})
}

func (e *completingExecutor) Abandon(ctx context.Context, run *types.GenerationRun, cause error) {
	_ = e.runs.UpdateFields(dbctx.New(ctx), run.ID, map[string]interface{}{
		"status": types.RunStatusError,
		"stage":  "abandoned",
		"error":  cause.Error(),
	})
}

func TestActivityClaimsAndExecutes(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	r := repos.New(db, log)
	col := testutil.SeedCollection(t, ctx, db, "c")
	run := testutil.SeedRun(t, ctx, db, col.ID, types.JobTypeCountTrait, types.RunStatusSubmitted)

	exec := &completingExecutor{runs: r.Runs}
	acts := &Activities{Log: log, Runs: r.Runs, Executor: exec}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivityWithOptions(acts.Execute, activity.RegisterOptions{Name: ActivityRun})

	val, err := env.ExecuteActivity(ActivityRun, run.ID.String())
	if err != nil {
		t.Fatalf("ExecuteActivity: %v", err)
	}
	var out RunResult
	if err := val.Get(&out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Status != types.RunStatusCompleted || out.Progress != 100 {
		t.Fatalf("unexpected result %+v", out)
	}

	// terminal runs are not executed again
	if _, err := env.ExecuteActivity(ActivityRun, run.ID.String()); err != nil {
		t.Fatalf("second ExecuteActivity: %v", err)
	}
	if exec.calls != 1 {
		t.Fatalf("executor calls=%d", exec.calls)
	}
	rows, err := r.Runs.GetByIDs(dbctx.New(ctx), []uuid.UUID{run.ID})
	if err != nil || len(rows) != 1 || rows[0].Attempts != 1 {
		t.Fatalf("attempts not recorded: err=%v %+v", err, rows)
	}
}

func TestActivityRejectsBadRunID(t *testing.T) {
	acts := &Activities{Log: testutil.Logger(t), Runs: repos.New(testutil.DB(t), testutil.Logger(t)).Runs, Executor: &completingExecutor{}}
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivityWithOptions(acts.Execute, activity.RegisterOptions{Name: ActivityRun})
	if _, err := env.ExecuteActivity(ActivityRun, "not-a-uuid"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestActivityAbandonFailsRun(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	r := repos.New(db, log)
	col := testutil.SeedCollection(t, ctx, db, "c")
	run := testutil.SeedRun(t, ctx, db, col.ID, types.JobTypeGenerate, types.RunStatusGenerating)
	acts := &Activities{Log: log, Runs: r.Runs, Executor: &completingExecutor{runs: r.Runs}}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivityWithOptions(acts.Abandon, activity.RegisterOptions{Name: ActivityAbandon})
	if _, err := env.ExecuteActivity(ActivityAbandon, run.ID.String(), "worker lost"); err != nil {
		t.Fatalf("ExecuteActivity: %v", err)
	}
	rows, err := r.Runs.GetByIDs(dbctx.New(ctx), []uuid.UUID{run.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("reload: err=%v", err)
	}
	if rows[0].Status != types.RunStatusError || rows[0].Error != "worker lost" {
		t.Fatalf("status=%s error=%q", rows[0].Status, rows[0].Error)
	}
}

func TestWorkflowAbandonsRunWhenActivityGivesUp(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.SetStartWorkflowOptions(temporalsdkclient.StartWorkflowOptions{ID: uuid.NewString()})
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(func(ctx context.Context, runID string) (RunResult, error) {
		return RunResult{}, temporal.NewNonRetryableApplicationError("worker lost", "lost", nil)
	}, activity.RegisterOptions{Name: ActivityRun})
	abandoned := ""
	env.RegisterActivityWithOptions(func(ctx context.Context, runID, reason string) error {
		abandoned = runID
		return nil
	}, activity.RegisterOptions{Name: ActivityAbandon})

	env.ExecuteWorkflow(WorkflowName)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if env.GetWorkflowError() == nil {
		t.Fatalf("expected workflow error")
	}
	if abandoned == "" {
		t.Fatalf("abandon activity was not called")
	}
}

func runWorkflow(t *testing.T, results ...RunResult) error {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.SetStartWorkflowOptions(temporalsdkclient.StartWorkflowOptions{ID: uuid.NewString()})
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	calls := 0
	env.RegisterActivityWithOptions(func(ctx context.Context, runID string) (RunResult, error) {
		res := results[calls]
		if calls < len(results)-1 {
			calls++
		}
		res.RunID = runID
		return res, nil
	}, activity.RegisterOptions{Name: ActivityRun})
	env.ExecuteWorkflow(WorkflowName)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	return env.GetWorkflowError()
}

func TestWorkflowPollsUntilCompleted(t *testing.T) {
	err := runWorkflow(t,
		RunResult{Status: types.RunStatusGenerating, Progress: 40},
		RunResult{Status: types.RunStatusCompleted, Progress: 100},
	)
	if err != nil {
		t.Fatalf("workflow error: %v", err)
	}
}

func TestWorkflowFailsOnRunError(t *testing.T) {
	err := runWorkflow(t, RunResult{Status: types.RunStatusError, Stage: "generate", Error: "no layers"})
	if err == nil {
		t.Fatalf("expected workflow error")
	}
}

