package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pacerhq/pacer/errors"
	"github.com/pacerhq/pacer/scheduler"
)

// handleSchedules handles /api/schedules
// GET: list schedules, optionally filtered by ?family=
// POST: create a schedule
func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSchedules(w, r)
	case http.MethodPost:
		s.handleCreateSchedule(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleSchedule handles /api/schedules/{id}
// GET: fetch one schedule
// PATCH: pause/resume
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/schedules/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "Missing schedule ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSchedule(w, r, id)
	case http.MethodPatch:
		s.handleUpdateSchedule(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) familyStores() []*scheduler.Store {
	return []*scheduler.Store{
		s.orchestrator.StoreFor(scheduler.FamilyWorkflow),
		s.orchestrator.StoreFor(scheduler.FamilyNotebook),
		s.orchestrator.StoreFor(scheduler.FamilyDataSync),
	}
}

// findSchedule looks an ID up across the family stores. IDs are UUIDs, so
// cross-family collisions do not happen in practice.
func (s *Server) findSchedule(r *http.Request, id string) (*scheduler.Descriptor, *scheduler.Store, error) {
	if family := r.URL.Query().Get("family"); family != "" {
		store := s.orchestrator.StoreFor(scheduler.Family(family))
		if store == nil {
			return nil, nil, errors.NewInvalidRequestError("unknown family %q", family)
		}
		d, err := store.Get(r.Context(), id)
		return d, store, err
	}

	for _, store := range s.familyStores() {
		d, err := store.Get(r.Context(), id)
		if err == nil {
			return d, store, nil
		}
		if !errors.IsNotFound(err) {
			return nil, nil, err
		}
	}
	return nil, nil, errors.NewNotFoundError("schedule %s", id)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	stores := s.familyStores()
	if family := r.URL.Query().Get("family"); family != "" {
		store := s.orchestrator.StoreFor(scheduler.Family(family))
		if store == nil {
			writeError(w, http.StatusBadRequest, "Unknown family: "+family)
			return
		}
		stores = []*scheduler.Store{store}
	}

	response := ListSchedulesResponse{Schedules: []ScheduleResponse{}}
	for _, store := range stores {
		descriptors, err := store.List(r.Context(), 200)
		if err != nil {
			writeWrappedError(w, s.logger, err, "failed to list schedules", http.StatusInternalServerError)
			return
		}
		for _, d := range descriptors {
			response.Schedules = append(response.Schedules, toScheduleResponse(d))
		}
	}
	response.Count = len(response.Schedules)

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Missing schedule name")
		return
	}
	store := s.orchestrator.StoreFor(scheduler.Family(req.Family))
	if store == nil {
		writeError(w, http.StatusBadRequest, "Unknown family: "+req.Family)
		return
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	d := &scheduler.Descriptor{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Family:     scheduler.Family(req.Family),
		Recurrence: scheduler.RecurrenceType(req.Recurrence),
		Config:     req.Config,
		Timezone:   timezone,
		IsActive:   true,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	}
	if store.Family() == scheduler.FamilyNotebook {
		d.MaxExecutions = req.MaxExecutions
	}

	// A new schedule with a nil next_run_at is immediately due; seed the
	// real first-run instant up front so creation also validates the rule.
	next, err := scheduler.NextRun(d.Recurrence, d.Config, d.Timezone, timeNow())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid recurrence: "+err.Error())
		return
	}
	if d.Recurrence != scheduler.RecurrenceOnce {
		d.NextRunAt = next
	}

	if err := store.Create(r.Context(), d); err != nil {
		writeWrappedError(w, s.logger, err, "failed to create schedule", http.StatusInternalServerError)
		return
	}

	s.logger.Infow("Schedule created",
		"schedule_id", d.ID,
		"family", d.Family,
		"name", d.Name,
		"recurrence", d.Recurrence)

	created, err := store.Get(r.Context(), d.ID)
	if err != nil {
		writeWrappedError(w, s.logger, err, "failed to load created schedule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toScheduleResponse(created))
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request, id string) {
	d, _, err := s.findSchedule(r, id)
	if err != nil {
		writeStoreError(w, s.logger, err, "failed to get schedule")
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(d))
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdateScheduleRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	d, store, err := s.findSchedule(r, id)
	if err != nil {
		writeStoreError(w, s.logger, err, "failed to get schedule")
		return
	}

	if err := store.SetActive(r.Context(), d.ID, *req.IsActive); err != nil {
		writeStoreError(w, s.logger, err, "failed to update schedule")
		return
	}

	s.logger.Infow("Schedule updated",
		"schedule_id", d.ID,
		"family", d.Family,
		"is_active", *req.IsActive)

	updated, err := store.Get(r.Context(), d.ID)
	if err != nil {
		writeStoreError(w, s.logger, err, "failed to load updated schedule")
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(updated))
}
