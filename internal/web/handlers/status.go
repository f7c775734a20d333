package handlers

import "net/http"

// StatusHandler exposes the engine status snapshot.
type StatusHandler struct {
	engine Engine
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(eng Engine) *StatusHandler {
	return &StatusHandler{engine: eng}
}

// Get returns the current engine status.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Status())
}
