package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kozaktomas/smart-presence/internal/store"
)

// defaultRecentLimit caps the attendance listing when no limit is given.
const defaultRecentLimit = 50

// AttendanceStore reads the attendance log.
type AttendanceStore interface {
	RecentEvents(ctx context.Context, limit int) ([]store.AttendanceEvent, error)
}

// AttendanceHandler exposes the attendance log.
type AttendanceHandler struct {
	store AttendanceStore
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(st AttendanceStore) *AttendanceHandler {
	return &AttendanceHandler{store: st}
}

// Recent returns the newest attendance events, most recent first. The
// optional ?limit= query parameter bounds the result.
func (h *AttendanceHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.store.RecentEvents(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []store.AttendanceEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}
