// Package engine implements the recognition loop: it consumes frames from
// the capture slot, runs detection and matching on a cadence, bridges the
// gaps with cheap position trackers, and turns confirmed sightings into
// attendance events gated by the class schedule.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/smart-presence/internal/frame"
	"github.com/kozaktomas/smart-presence/internal/settings"
	"github.com/kozaktomas/smart-presence/internal/store"
	"github.com/kozaktomas/smart-presence/internal/vision"
)

// cycleInterval is the target pacing of the recognition loop. Detection
// runs on its own (settings-driven) cadence; between detections each cycle
// only performs cheap tracker updates and rendering.
const cycleInterval = 33 * time.Millisecond

// stopTimeout bounds how long Stop waits for the loop to exit.
const stopTimeout = 3 * time.Second

// eventBuffer is the per-subscriber channel depth for the live event feed.
// Slow subscribers lose events rather than stalling the loop.
const eventBuffer = 16

// Store is the persistence surface the engine consumes.
type Store interface {
	InsertAttendanceEvent(ctx context.Context, ev store.AttendanceEvent) error
	ActiveSchedule(ctx context.Context, day, hhmm string) (*store.Schedule, error)
	LoadKnownIdentities(ctx context.Context) ([]store.Identity, error)
}

// CaptureSource is the capture side of the pipeline.
type CaptureSource interface {
	Start()
	Stop()
	Connected() bool
	FPS() float64
}

// Status is the externally visible engine state.
type Status struct {
	Running          bool    `json:"running"`
	Connected        bool    `json:"connected"`
	FPS              float64 `json:"fps"`
	VisibleCount     int     `json:"visible_count"`
	Mode             string  `json:"mode"`
	ActiveScheduleID *int64  `json:"active_schedule_id,omitempty"`
	ActiveClassName  string  `json:"active_class_name,omitempty"`
	IdentitiesLoaded int     `json:"identities_loaded"`
	SessionLogged    int     `json:"session_logged"`
	DetectorModel    string  `json:"detector_model"`
}

// Options wires an engine instance. There is deliberately no process-wide
// singleton; the handle is constructed once and passed to the control and
// streaming layers.
type Options struct {
	Store      Store
	Settings   *settings.Cache
	Matcher    *vision.Matcher
	Encoder    vision.Encoder
	NewTracker vision.TrackerFactory
	Source     CaptureSource
	Input      *frame.Slot
	Output     *frame.ByteSlot
	Logger     zerolog.Logger
	Metrics    *Metrics
}

// Engine coordinates the capture and recognition loops over the shared
// frame slots and owns all recognition state.
type Engine struct {
	store      Store
	settings   *settings.Cache
	matcher    *vision.Matcher
	encoder    vision.Encoder
	newTracker vision.TrackerFactory
	source     CaptureSource
	input      *frame.Slot
	output     *frame.ByteSlot
	log        zerolog.Logger
	metrics    *Metrics

	// now is replaceable in tests.
	now func() time.Time

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}

	// Recognition state, owned by the loop goroutine. Tests drive cycles
	// synchronously instead of starting the loop.
	detector      vision.Detector
	detectorName  string
	trackers      *trackerPool
	session       *session
	lastSeen      map[string]time.Time
	lastDetection time.Time
	lastRecheck   time.Time

	statusSnap atomic.Value // Status

	subMu sync.Mutex
	subs  []chan store.AttendanceEvent
}

// New constructs an engine. Start must be called before frames flow.
func New(opts Options) *Engine {
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics()
	}
	e := &Engine{
		store:      opts.Store,
		settings:   opts.Settings,
		matcher:    opts.Matcher,
		encoder:    opts.Encoder,
		newTracker: opts.NewTracker,
		source:     opts.Source,
		input:      opts.Input,
		output:     opts.Output,
		log:        opts.Logger.With().Str("component", "engine").Logger(),
		metrics:    opts.Metrics,
		now:        time.Now,
		lastSeen:   make(map[string]time.Time),
	}
	e.trackers = newTrackerPool(opts.NewTracker)
	e.statusSnap.Store(Status{})
	return e
}

// Start launches the capture loop and the recognition loop.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop != nil {
		return
	}
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.source.Start()
	go e.run(e.stop, e.done)
	e.log.Info().Msg("recognition engine started")
}

// Stop signals both loops and blocks until the recognition loop exits or a
// bound elapses. The capture source is stopped afterwards so the device is
// always released.
func (e *Engine) Stop() {
	e.mu.Lock()
	stop, done := e.stop, e.done
	e.stop, e.done = nil, nil
	e.mu.Unlock()

	if stop != nil {
		close(stop)
		select {
		case <-done:
		case <-time.After(stopTimeout):
			e.log.Warn().Msg("recognition loop did not exit in time")
		}
	}
	e.source.Stop()
	e.publishStatus(false)
	e.log.Info().Msg("recognition engine stopped")
}

// Restart stops the engine, reloads enrolled identities (so newly enrolled
// people are recognized), and starts again.
func (e *Engine) Restart(ctx context.Context) error {
	e.Stop()
	if err := e.ReloadIdentities(ctx); err != nil {
		return err
	}
	e.Start()
	return nil
}

// ReloadIdentities refreshes the matcher from the enrollment store.
func (e *Engine) ReloadIdentities(ctx context.Context) error {
	ids, err := e.store.LoadKnownIdentities(ctx)
	if err != nil {
		return fmt.Errorf("load known identities: %w", err)
	}
	known := make([]vision.KnownIdentity, 0, len(ids))
	for _, id := range ids {
		vectors := make([]vision.FeatureVector, 0, len(id.Vectors))
		for _, v := range id.Vectors {
			vectors = append(vectors, vision.FeatureVector(v))
		}
		known = append(known, vision.KnownIdentity{Name: id.Name, Vectors: vectors})
	}
	e.matcher.Reload(known)
	e.log.Info().Int("identities", len(known)).Msg("known identities reloaded")
	return nil
}

// Running reports whether the recognition loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stop != nil
}

// SetMode switches the operating mode through the settings cache, taking
// effect on the next cycle.
func (e *Engine) SetMode(ctx context.Context, mode settings.Mode) error {
	switch mode {
	case settings.ModeAuto, settings.ModeForceOn, settings.ModeForceOff:
	default:
		return fmt.Errorf("invalid mode %q", mode)
	}
	return e.settings.Set(ctx, settings.KeySystemMode, string(mode))
}

// Status returns the latest engine status snapshot. Never blocks on the
// recognition loop.
func (e *Engine) Status() Status {
	return e.statusSnap.Load().(Status)
}

// LatestFrame returns the newest annotated JPEG and its sequence number.
func (e *Engine) LatestFrame() ([]byte, uint64) {
	return e.output.Latest()
}

// Subscribe registers a listener for attendance events. The returned
// cancel function must be called to release the channel.
func (e *Engine) Subscribe() (<-chan store.AttendanceEvent, func()) {
	ch := make(chan store.AttendanceEvent, eventBuffer)
	e.subMu.Lock()
	e.subs = append(e.subs, ch)
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		for i, sub := range e.subs {
			if sub == ch {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// broadcast delivers an event to subscribers without ever blocking the
// recognition loop; slow subscribers lose events.
func (e *Engine) broadcast(ev store.AttendanceEvent) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, sub := range e.subs {
		select {
		case sub <- ev:
		default:
		}
	}
}

// run is the recognition loop: one cycle, then sleep the remainder of the
// target interval. A panicking cycle is contained and the next one
// proceeds normally.
func (e *Engine) run(stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		started := e.now()
		e.safeCycle()

		elapsed := time.Since(started)
		if sleep := cycleInterval - elapsed; sleep > 0 {
			select {
			case <-stop:
				return
			case <-time.After(sleep):
			}
		}
	}
}

// safeCycle contains any failure inside a single cycle.
func (e *Engine) safeCycle() {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.CycleErrors.Inc()
			e.log.Error().Interface("panic", r).Msg("recognition cycle panicked")
		}
	}()
	e.runCycle(context.Background())
}

// publishStatus refreshes the externally visible snapshot.
func (e *Engine) publishStatus(running bool) {
	snap := Status{
		Running:          running,
		Connected:        e.source.Connected(),
		FPS:              e.source.FPS(),
		VisibleCount:     len(e.trackers.VisibleIdentities()),
		Mode:             string(e.settings.Mode(context.Background())),
		IdentitiesLoaded: e.matcher.Count(),
		DetectorModel:    e.detectorName,
	}
	if e.session != nil {
		snap.SessionLogged = len(e.session.logged)
		if e.session.schedule != nil {
			id := e.session.schedule.ID
			snap.ActiveScheduleID = &id
			snap.ActiveClassName = e.session.schedule.ClassName
		}
	}
	e.statusSnap.Store(snap)
}
