package jobrun

const (
	WorkflowName = "generation_run"
	ActivityRun  = "generation_run_execute"

	// ActivityAbandon fails a run whose execute activity ran out of retries.
	ActivityAbandon = "generation_run_abandon"
)

type RunResult struct {
	RunID    string `json:"run_id"`
	Status   string `json:"status"`
	Stage    string `json:"stage,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}
