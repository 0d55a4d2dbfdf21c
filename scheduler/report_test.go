package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pacerhq/pacer/errors"
)

func TestSummarize(t *testing.T) {
	startedAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	completedAt := startedAt.Add(2 * time.Second)

	reports := []*familyReport{
		{
			family: FamilyWorkflow,
			results: []JobResult{
				{ID: "w1", Success: true},
				{ID: "w2", Success: false, Error: "boom"},
			},
			skipped: 1,
		},
		{
			family: FamilyNotebook,
			err:    errors.New("table locked"),
		},
		{
			family: FamilyDataSync,
			results: []JobResult{
				{ID: "s1", Success: true},
			},
		},
	}

	summary := summarize("pass-1", startedAt, completedAt, reports)

	assert.Equal(t, "pass-1", summary.PassID)
	assert.Equal(t, startedAt, summary.StartedAt)
	assert.Equal(t, completedAt, summary.CompletedAt)
	assert.Equal(t, 3, summary.ExecutedCount)
	assert.Equal(t, 1, summary.FailedCount)
	assert.Equal(t, 1, summary.SkippedCount)
	assert.Len(t, summary.Results.Workflows, 2)
	assert.Empty(t, summary.Results.Notebooks)
	assert.Len(t, summary.Results.DataSyncs, 1)
	assert.Equal(t, "table locked", summary.FamilyErrors[FamilyNotebook])
	assert.NotContains(t, summary.FamilyErrors, FamilyWorkflow)
}

func TestSummarize_EmptyReports(t *testing.T) {
	now := time.Now()
	summary := summarize("pass-2", now, now, []*familyReport{
		{family: FamilyWorkflow},
		{family: FamilyNotebook},
		{family: FamilyDataSync},
	})

	assert.Zero(t, summary.ExecutedCount)
	assert.Nil(t, summary.FamilyErrors)
	// Empty slices, not nil, so the JSON form shows [] instead of null
	assert.NotNil(t, summary.Results.Workflows)
	assert.NotNil(t, summary.Results.Notebooks)
	assert.NotNil(t, summary.Results.DataSyncs)
}

func TestDescriptor_Exhausted(t *testing.T) {
	d := &Descriptor{ExecutionCount: 5}
	assert.False(t, d.Exhausted(), "no budget means unlimited")

	limit := 5
	d.MaxExecutions = &limit
	assert.True(t, d.Exhausted())

	d.ExecutionCount = 4
	assert.False(t, d.Exhausted())
}
