package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kozaktomas/smart-presence/internal/settings"
)

// SettingsStore lists the persisted settings rows.
type SettingsStore interface {
	AllSettings(ctx context.Context) (map[string]string, error)
}

// SettingsHandler reads and updates the runtime-tunable engine settings.
// Writes go through the engine's settings cache, so they take effect on the
// next recognition cycle without a restart.
type SettingsHandler struct {
	store SettingsStore
	cache *settings.Cache
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(st SettingsStore, cache *settings.Cache) *SettingsHandler {
	return &SettingsHandler{store: st, cache: cache}
}

// Get returns every setting, stored values merged over compiled defaults.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stored, err := h.store.AllSettings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.cache.All(r.Context(), stored))
}

// Update writes the provided settings. Unknown keys and malformed values
// are rejected before anything is persisted, so an update is all-or-nothing
// from the caller's point of view.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req) == 0 {
		respondError(w, http.StatusBadRequest, "no settings provided")
		return
	}

	for key, value := range req {
		if err := validateSetting(key, value); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	for key, value := range req {
		if err := h.cache.Set(r.Context(), key, value); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	stored, err := h.store.AllSettings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.cache.All(r.Context(), stored))
}

// validateSetting rejects unknown keys and values the engine could not use.
func validateSetting(key, value string) error {
	if _, known := settings.Defaults[key]; !known {
		return fmt.Errorf("unknown setting %q", key)
	}

	switch key {
	case settings.KeyTolerance, settings.KeyDetectionScale:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 || f > 1 {
			return fmt.Errorf("setting %s must be a number in (0, 1], got %q", key, value)
		}
	case settings.KeyDetectionInterval, settings.KeyLateThreshold,
		settings.KeyDisappearThreshold, settings.KeyRecheckInterval, settings.KeyFrameSkip:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("setting %s must be a positive integer, got %q", key, value)
		}
	case settings.KeySystemMode:
		switch settings.Mode(value) {
		case settings.ModeAuto, settings.ModeForceOn, settings.ModeForceOff:
		default:
			return fmt.Errorf("setting %s must be one of auto, force_on, force_off", key)
		}
	}
	return nil
}
