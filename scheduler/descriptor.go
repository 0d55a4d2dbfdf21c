// Package scheduler decides when recurring jobs run next and drives a
// single polling pass that executes everything currently due across the
// workflow, notebook, and data-sync families.
package scheduler

import "time"

// Family identifies a category of schedulable work with its own store and
// executor.
type Family string

const (
	FamilyWorkflow Family = "workflow"
	FamilyNotebook Family = "notebook"
	FamilyDataSync Family = "datasync"
)

// Run status constants for schedule descriptors.
// RunStatusRunning doubles as the claim marker: a conditional update flips a
// descriptor into it, and a descriptor already in it is never fetched as due.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// Descriptor is a persisted record describing one schedulable job's
// recurrence rule and run history.
//
// NextRunAt == nil means "due now": either the schedule has never run, or it
// is a one-shot awaiting its single attempt. After a one-shot has been
// attempted (success or failure) LastRunStatus is set, which permanently
// excludes it from due polling.
type Descriptor struct {
	ID     string
	Name   string
	Family Family

	Recurrence RecurrenceType
	Config     RecurrenceConfig
	Timezone   string

	IsActive  bool
	StartDate *time.Time
	EndDate   *time.Time

	NextRunAt      *time.Time
	LastRunAt      *time.Time
	LastRunStatus  string
	LastRunError   string
	ExecutionCount int

	// MaxExecutions caps total attempts (notebook family only).
	// nil = unlimited. Once ExecutionCount reaches it the descriptor is
	// permanently ineligible.
	MaxExecutions *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Exhausted reports whether the descriptor has used up its execution budget
func (d *Descriptor) Exhausted() bool {
	return d.MaxExecutions != nil && d.ExecutionCount >= *d.MaxExecutions
}
