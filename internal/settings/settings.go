// Package settings provides the read-through/write-through cache of
// runtime-tunable engine parameters. Reads resolve memory -> store ->
// compiled default; writes go through to the store and invalidate the
// cached entry immediately, so the next engine cycle observes the new
// value without a restart.
package settings

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Setting keys.
const (
	KeyDetectorModel      = "DETECTOR_MODEL"
	KeyTolerance          = "TOLERANCE"
	KeyDetectionScale     = "DETECTION_SCALE"
	KeyDetectionInterval  = "DETECTION_INTERVAL_MS"
	KeyLateThreshold      = "LATE_THRESHOLD"
	KeyDisappearThreshold = "DISAPPEAR_THRESHOLD"
	KeyRecheckInterval    = "RECHECK_INTERVAL"
	KeySystemMode         = "SYSTEM_MODE"
	KeyFrameSkip          = "FRAME_SKIP" // legacy, kept for API compatibility
)

// Mode is the engine operating mode.
type Mode string

// Operating modes. auto gates logging on the class schedule, force_on logs
// against a synthetic always-active session, force_off disables detection.
const (
	ModeAuto     Mode = "auto"
	ModeForceOn  Mode = "force_on"
	ModeForceOff Mode = "force_off"
)

// Defaults are the compiled fallback values, used when the store has no
// row or holds a malformed value.
var Defaults = map[string]string{
	KeyDetectorModel:      "remote",
	KeyTolerance:          "0.5",
	KeyDetectionScale:     "0.5",
	KeyDetectionInterval:  "400",
	KeyLateThreshold:      "10",  // minutes after class start -> Late
	KeyDisappearThreshold: "15",  // minutes unseen -> Disappeared
	KeyRecheckInterval:    "300", // seconds between disappearance scans
	KeySystemMode:         string(ModeAuto),
	KeyFrameSkip:          "3",
}

// Backend is the persistent side of the cache.
type Backend interface {
	GetSetting(ctx context.Context, key string) (value string, found bool, err error)
	SetSetting(ctx context.Context, key, value string) error
}

// Cache is owned by a single engine instance; it is deliberately not
// package-global so multiple engines never corrupt each other's
// configuration.
type Cache struct {
	backend Backend
	log     zerolog.Logger

	mu     sync.RWMutex
	values map[string]string
}

// NewCache creates a settings cache over the given backend.
func NewCache(backend Backend, log zerolog.Logger) *Cache {
	return &Cache{
		backend: backend,
		log:     log.With().Str("component", "settings").Logger(),
		values:  make(map[string]string),
	}
}

// Get resolves a setting: cache -> store -> compiled default.
func (c *Cache) Get(ctx context.Context, key string) string {
	c.mu.RLock()
	val, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		return val
	}

	val, found, err := c.backend.GetSetting(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("settings read failed, using default")
		return Defaults[key]
	}
	if !found || val == "" {
		val = Defaults[key]
	}

	c.mu.Lock()
	c.values[key] = val
	c.mu.Unlock()
	return val
}

// Set writes through to the store and invalidates the cached entry so the
// very next read observes the new value.
func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := c.backend.SetSetting(ctx, key, value); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
	return nil
}

// Float returns the setting as a float64, falling back to the compiled
// default when malformed. A malformed value never halts the engine.
func (c *Cache) Float(ctx context.Context, key string) float64 {
	raw := c.Get(ctx, key)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.log.Warn().Str("key", key).Str("value", raw).Msg("malformed setting, using default")
		f, _ = strconv.ParseFloat(Defaults[key], 64)
	}
	return f
}

// Int returns the setting as an int, falling back to the compiled default
// when malformed.
func (c *Cache) Int(ctx context.Context, key string) int {
	raw := c.Get(ctx, key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.log.Warn().Str("key", key).Str("value", raw).Msg("malformed setting, using default")
		n, _ = strconv.Atoi(Defaults[key])
	}
	return n
}

// Minutes returns a minute-denominated setting as a duration.
func (c *Cache) Minutes(ctx context.Context, key string) time.Duration {
	return time.Duration(c.Int(ctx, key)) * time.Minute
}

// Seconds returns a second-denominated setting as a duration.
func (c *Cache) Seconds(ctx context.Context, key string) time.Duration {
	return time.Duration(c.Int(ctx, key)) * time.Second
}

// Milliseconds returns a millisecond-denominated setting as a duration.
func (c *Cache) Milliseconds(ctx context.Context, key string) time.Duration {
	return time.Duration(c.Int(ctx, key)) * time.Millisecond
}

// Mode returns the operating mode, falling back to auto for unknown values.
func (c *Cache) Mode(ctx context.Context) Mode {
	switch m := Mode(c.Get(ctx, KeySystemMode)); m {
	case ModeAuto, ModeForceOn, ModeForceOff:
		return m
	default:
		c.log.Warn().Str("value", string(m)).Msg("unknown system mode, using auto")
		return ModeAuto
	}
}

// All merges the store contents over the compiled defaults so every key is
// always present, mirroring what the settings API returns.
func (c *Cache) All(ctx context.Context, stored map[string]string) map[string]string {
	out := make(map[string]string, len(Defaults))
	for k, v := range Defaults {
		out[k] = v
	}
	for k, v := range stored {
		out[k] = v
	}
	return out
}
