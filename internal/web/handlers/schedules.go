package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/smart-presence/internal/store"
)

// weekdays are the accepted day_of_week values.
var weekdays = map[string]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

// ScheduleStore is the timetable persistence surface.
type ScheduleStore interface {
	ListSchedules(ctx context.Context) ([]store.Schedule, error)
	CreateSchedule(ctx context.Context, sch store.Schedule) (int64, error)
	UpdateSchedule(ctx context.Context, sch store.Schedule) error
	DeleteSchedule(ctx context.Context, id int64) error
}

// SchedulesHandler manages the class timetable.
type SchedulesHandler struct {
	store ScheduleStore
}

// NewSchedulesHandler creates a new schedules handler.
func NewSchedulesHandler(st ScheduleStore) *SchedulesHandler {
	return &SchedulesHandler{store: st}
}

// List returns all schedules.
func (h *SchedulesHandler) List(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.store.ListSchedules(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if schedules == nil {
		schedules = []store.Schedule{}
	}
	respondJSON(w, http.StatusOK, schedules)
}

// Create inserts a new schedule.
func (h *SchedulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var sch store.Schedule
	if err := decodeJSON(r, &sch); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := validateSchedule(sch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.store.CreateSchedule(r.Context(), sch)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sch.ID = id
	respondJSON(w, http.StatusCreated, sch)
}

// Update rewrites an existing schedule.
func (h *SchedulesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}

	var sch store.Schedule
	if err := decodeJSON(r, &sch); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	sch.ID = id
	if err := validateSchedule(sch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.UpdateSchedule(r.Context(), sch); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sch)
}

// Delete removes a schedule.
func (h *SchedulesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	if err := h.store.DeleteSchedule(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// validateSchedule checks the fields a new or updated timetable row must
// carry. Times are "HH:MM" with start strictly before end; the window is
// half-open, so back-to-back classes never overlap.
func validateSchedule(sch store.Schedule) error {
	if sch.ClassName == "" {
		return fmt.Errorf("class_name is required")
	}
	if !weekdays[sch.Day] {
		return fmt.Errorf("day_of_week must be a weekday name, got %q", sch.Day)
	}
	start, err := time.Parse("15:04", sch.Start)
	if err != nil {
		return fmt.Errorf("start_time must be HH:MM, got %q", sch.Start)
	}
	end, err := time.Parse("15:04", sch.End)
	if err != nil {
		return fmt.Errorf("end_time must be HH:MM, got %q", sch.End)
	}
	if !start.Before(end) {
		return fmt.Errorf("start_time %s must be before end_time %s", sch.Start, sch.End)
	}
	return nil
}
