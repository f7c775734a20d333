package handlers

import (
	"net/http"

	"github.com/kozaktomas/smart-presence/internal/settings"
)

// ControlHandler starts, stops and reconfigures the recognition engine.
type ControlHandler struct {
	engine Engine
}

// NewControlHandler creates a new control handler.
func NewControlHandler(eng Engine) *ControlHandler {
	return &ControlHandler{engine: eng}
}

// Start launches the engine. Starting a running engine is a no-op.
func (h *ControlHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.engine.Start()
	respondJSON(w, http.StatusOK, map[string]bool{"running": h.engine.Running()})
}

// Stop halts the engine and releases the camera.
func (h *ControlHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop()
	respondJSON(w, http.StatusOK, map[string]bool{"running": h.engine.Running()})
}

// Restart stops the engine, reloads enrolled identities and starts again.
func (h *ControlHandler) Restart(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Restart(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"running": h.engine.Running()})
}

// modeRequest is the payload for mode changes.
type modeRequest struct {
	Mode string `json:"mode"`
}

// SetMode switches the operating mode (auto, force_on, force_off).
func (h *ControlHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if err := h.engine.SetMode(r.Context(), settings.Mode(req.Mode)); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"mode": req.Mode})
}
