package scheduler

import "context"

// The executors are external collaborators: a workflow engine, a notebook
// runner, and a data-sync engine. The orchestrator treats each invocation
// as an opaque, retry-free, single-attempt operation bounded by the per-job
// timeout on ctx.

// WorkflowResult reports one workflow execution
type WorkflowResult struct {
	Success          bool   `json:"success"`
	RecordsProcessed int    `json:"records_processed"`
	RecordsUpdated   int    `json:"records_updated"`
	Error            string `json:"error,omitempty"`
}

// NotebookResult reports one scheduled notebook execution
type NotebookResult struct {
	Success        bool   `json:"success"`
	ExecutionID    string `json:"execution_id,omitempty"`
	CellsExecuted  int    `json:"cells_executed"`
	CellsSucceeded int    `json:"cells_succeeded"`
	CellsFailed    int    `json:"cells_failed"`
	Error          string `json:"error,omitempty"`
}

// SyncResult reports one data-sync execution
type SyncResult struct {
	Success          bool   `json:"success"`
	RecordsFetched   int    `json:"records_fetched"`
	RecordsProcessed int    `json:"records_processed"`
	Error            string `json:"error,omitempty"`
}

// WorkflowExecutor runs one due workflow
type WorkflowExecutor interface {
	ExecuteWorkflow(ctx context.Context, id string) (*WorkflowResult, error)
}

// NotebookExecutor runs one due notebook schedule
type NotebookExecutor interface {
	ExecuteNotebook(ctx context.Context, scheduleID string) (*NotebookResult, error)
}

// SyncExecutor runs one due data-sync schedule
type SyncExecutor interface {
	ExecuteSync(ctx context.Context, scheduleID string) (*SyncResult, error)
}

// Metrics is the family-specific measurement payload attached to a per-job
// result in the pass summary
type Metrics map[string]interface{}

// outcome is the family-neutral shape the orchestrator records per attempt
type outcome struct {
	success bool
	errMsg  string
	metrics Metrics
}

func workflowOutcome(r *WorkflowResult) outcome {
	return outcome{
		success: r.Success,
		errMsg:  r.Error,
		metrics: Metrics{
			"records_processed": r.RecordsProcessed,
			"records_updated":   r.RecordsUpdated,
		},
	}
}

func notebookOutcome(r *NotebookResult) outcome {
	m := Metrics{
		"cells_executed":  r.CellsExecuted,
		"cells_succeeded": r.CellsSucceeded,
		"cells_failed":    r.CellsFailed,
	}
	if r.ExecutionID != "" {
		m["execution_id"] = r.ExecutionID
	}
	return outcome{success: r.Success, errMsg: r.Error, metrics: m}
}

func syncOutcome(r *SyncResult) outcome {
	return outcome{
		success: r.Success,
		errMsg:  r.Error,
		metrics: Metrics{
			"records_fetched":   r.RecordsFetched,
			"records_processed": r.RecordsProcessed,
		},
	}
}
