package server

import (
	"time"

	"github.com/pacerhq/pacer/scheduler"
)

// CreateScheduleRequest is the POST /api/schedules payload
type CreateScheduleRequest struct {
	Name       string                     `json:"name"`
	Family     string                     `json:"family"`
	Recurrence string                     `json:"recurrence"`
	Config     scheduler.RecurrenceConfig `json:"config"`
	Timezone   string                     `json:"timezone,omitempty"`
	StartDate  *time.Time                 `json:"start_date,omitempty"`
	EndDate    *time.Time                 `json:"end_date,omitempty"`

	// MaxExecutions is honored for notebook schedules only
	MaxExecutions *int `json:"max_executions,omitempty"`
}

// UpdateScheduleRequest is the PATCH /api/schedules/{id} payload
type UpdateScheduleRequest struct {
	IsActive *bool `json:"is_active,omitempty"`
}

// ScheduleResponse is the wire form of a schedule descriptor
type ScheduleResponse struct {
	ID             string                     `json:"id"`
	Name           string                     `json:"name"`
	Family         string                     `json:"family"`
	Recurrence     string                     `json:"recurrence"`
	Config         scheduler.RecurrenceConfig `json:"config"`
	Timezone       string                     `json:"timezone"`
	IsActive       bool                       `json:"is_active"`
	StartDate      *time.Time                 `json:"start_date,omitempty"`
	EndDate        *time.Time                 `json:"end_date,omitempty"`
	NextRunAt      *time.Time                 `json:"next_run_at,omitempty"`
	LastRunAt      *time.Time                 `json:"last_run_at,omitempty"`
	LastRunStatus  string                     `json:"last_run_status,omitempty"`
	LastRunError   string                     `json:"last_run_error,omitempty"`
	ExecutionCount int                        `json:"execution_count"`
	MaxExecutions  *int                       `json:"max_executions,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

// ListSchedulesResponse wraps a schedule listing
type ListSchedulesResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
	Count     int                `json:"count"`
}

// ListPassesResponse wraps the pass history listing
type ListPassesResponse struct {
	Passes []*scheduler.PassRecord `json:"passes"`
	Count  int                     `json:"count"`
}

func toScheduleResponse(d *scheduler.Descriptor) ScheduleResponse {
	return ScheduleResponse{
		ID:             d.ID,
		Name:           d.Name,
		Family:         string(d.Family),
		Recurrence:     string(d.Recurrence),
		Config:         d.Config,
		Timezone:       d.Timezone,
		IsActive:       d.IsActive,
		StartDate:      d.StartDate,
		EndDate:        d.EndDate,
		NextRunAt:      d.NextRunAt,
		LastRunAt:      d.LastRunAt,
		LastRunStatus:  d.LastRunStatus,
		LastRunError:   d.LastRunError,
		ExecutionCount: d.ExecutionCount,
		MaxExecutions:  d.MaxExecutions,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}
