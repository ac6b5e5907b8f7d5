package jobrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	types "github.com/yungbote/hermes-backend/internal/domain/collections"
)

// Workflow drives one generation run; the workflow ID is the run ID.
func Workflow(ctx workflow.Context) error {
	runID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if runID == "" {
		return fmt.Errorf("jobrun: missing run_id")
	}

	const (
		pollInterval = 5 * time.Second
		maxTicks     = 500
	)

	abandonCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 24 * time.Hour,
		HeartbeatTimeout:    time.Minute,
		// covers lost workers; handler failures end the run and are not retried
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	})

	for tick := 1; ; tick++ {
		var out RunResult
		if err := workflow.ExecuteActivity(ctx, ActivityRun, runID).Get(ctx, &out); err != nil {
			reason := "run abandoned: " + err.Error()
			if aerr := workflow.ExecuteActivity(abandonCtx, ActivityAbandon, runID, reason).Get(abandonCtx, nil); aerr != nil {
				workflow.GetLogger(ctx).Warn("abandon activity failed", "run_id", runID, "error", aerr)
			}
			return err
		}
		switch out.Status {
		case types.RunStatusCompleted:
			return nil
		case types.RunStatusError:
			return fmt.Errorf("run failed (stage=%s): %s", out.Stage, out.Error)
		}
		if tick >= maxTicks {
			return workflow.NewContinueAsNewError(ctx, Workflow)
		}
		if err := workflow.Sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
}
