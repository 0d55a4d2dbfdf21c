package scheduler

import (
	"sync"
	"time"
)

// JobResult is the per-job outcome recorded in a pass summary
type JobResult struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
	Metrics    Metrics `json:"metrics,omitempty"`
	DurationMs int     `json:"duration_ms"`
}

// FamilyResults groups per-job results by job family
type FamilyResults struct {
	Workflows []JobResult `json:"workflows"`
	Notebooks []JobResult `json:"notebooks"`
	DataSyncs []JobResult `json:"dataSyncs"`
}

// PassSummary is the structured result of one orchestration pass. The
// caller always receives it, listing every attempted job and its outcome,
// even when some or all jobs failed.
type PassSummary struct {
	PassID        string        `json:"pass_id"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   time.Time     `json:"completed_at"`
	ExecutedCount int           `json:"executed_count"`
	FailedCount   int           `json:"failed_count"`
	SkippedCount  int           `json:"skipped_count"`
	Results       FamilyResults `json:"results"`

	// FamilyErrors records families whose processing failed wholesale
	// (e.g. the due query itself errored). Other families still ran.
	FamilyErrors map[Family]string `json:"family_errors,omitempty"`
}

// familyReport is the mutable accumulator one family loop fills in.
// The mutex guards results/skipped, which concurrent workers append to.
type familyReport struct {
	family  Family
	mu      sync.Mutex
	results []JobResult
	skipped int
	err     error
}

func (r *familyReport) addResult(result JobResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *familyReport) addSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped++
}

// summarize assembles the final pass summary from the per-family reports.
// Purely aggregative; no I/O.
func summarize(passID string, startedAt, completedAt time.Time, reports []*familyReport) *PassSummary {
	summary := &PassSummary{
		PassID:      passID,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Results: FamilyResults{
			Workflows: []JobResult{},
			Notebooks: []JobResult{},
			DataSyncs: []JobResult{},
		},
	}

	for _, report := range reports {
		if report.err != nil {
			if summary.FamilyErrors == nil {
				summary.FamilyErrors = make(map[Family]string)
			}
			summary.FamilyErrors[report.family] = report.err.Error()
		}

		summary.SkippedCount += report.skipped
		summary.ExecutedCount += len(report.results)
		for _, r := range report.results {
			if !r.Success {
				summary.FailedCount++
			}
		}

		switch report.family {
		case FamilyWorkflow:
			summary.Results.Workflows = append(summary.Results.Workflows, report.results...)
		case FamilyNotebook:
			summary.Results.Notebooks = append(summary.Results.Notebooks, report.results...)
		case FamilyDataSync:
			summary.Results.DataSyncs = append(summary.Results.DataSyncs, report.results...)
		}
	}

	return summary
}
