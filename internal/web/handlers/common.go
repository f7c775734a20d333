// Package handlers implements the HTTP API of the attendance service:
// engine control, live streaming, settings, schedules and the attendance
// log. Handlers depend on small interfaces so tests run against fakes.
package handlers

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/kozaktomas/smart-presence/internal/engine"
	"github.com/kozaktomas/smart-presence/internal/settings"
	"github.com/kozaktomas/smart-presence/internal/store"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// Engine is the recognition engine surface the web layer drives.
type Engine interface {
	Start()
	Stop()
	Restart(ctx context.Context) error
	Running() bool
	SetMode(ctx context.Context, mode settings.Mode) error
	Status() engine.Status
	LatestFrame() ([]byte, uint64)
	Subscribe() (<-chan store.AttendanceEvent, func())
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON parses a request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
