package handlers

import (
	"context"
	"net/http"

	"github.com/kozaktomas/smart-presence/internal/store"
)

// CameraStore lists the configured capture sources.
type CameraStore interface {
	ListCameras(ctx context.Context) ([]store.Camera, error)
}

// CamerasHandler exposes the configured cameras. Switching cameras takes a
// restart; the engine binds its capture source at startup.
type CamerasHandler struct {
	store CameraStore
}

// NewCamerasHandler creates a new cameras handler.
func NewCamerasHandler(st CameraStore) *CamerasHandler {
	return &CamerasHandler{store: st}
}

// List returns all configured cameras.
func (h *CamerasHandler) List(w http.ResponseWriter, r *http.Request) {
	cameras, err := h.store.ListCameras(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cameras == nil {
		cameras = []store.Camera{}
	}
	respondJSON(w, http.StatusOK, cameras)
}
