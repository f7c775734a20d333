package handlers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/smart-presence/internal/engine"
	"github.com/kozaktomas/smart-presence/internal/settings"
	"github.com/kozaktomas/smart-presence/internal/store"
)

// contextWithTimeout bounds a streaming handler call in tests.
func contextWithTimeout(t *testing.T, ms int) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), time.Duration(ms)*time.Millisecond)
}

// fakeEngine implements the Engine interface for handler tests.
type fakeEngine struct {
	mu         sync.Mutex
	running    bool
	mode       settings.Mode
	restartErr error
	frame      []byte
	seq        uint64
	restarts   int
}

func (e *fakeEngine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = true
}

func (e *fakeEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}

func (e *fakeEngine) Restart(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restarts++
	if e.restartErr != nil {
		return e.restartErr
	}
	e.running = true
	return nil
}

func (e *fakeEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *fakeEngine) SetMode(_ context.Context, mode settings.Mode) error {
	switch mode {
	case settings.ModeAuto, settings.ModeForceOn, settings.ModeForceOff:
	default:
		return fmt.Errorf("invalid mode %q", mode)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
	return nil
}

func (e *fakeEngine) Status() engine.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.Status{Running: e.running, Mode: string(e.mode)}
}

func (e *fakeEngine) LatestFrame() ([]byte, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame, e.seq
}

func (e *fakeEngine) Subscribe() (<-chan store.AttendanceEvent, func()) {
	ch := make(chan store.AttendanceEvent, 4)
	return ch, func() { close(ch) }
}

// fakeScheduleStore implements ScheduleStore in memory.
type fakeScheduleStore struct {
	mu        sync.Mutex
	schedules []store.Schedule
	nextID    int64
	err       error
}

func (s *fakeScheduleStore) ListSchedules(context.Context) ([]store.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]store.Schedule(nil), s.schedules...), nil
}

func (s *fakeScheduleStore) CreateSchedule(_ context.Context, sch store.Schedule) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.nextID++
	sch.ID = s.nextID
	s.schedules = append(s.schedules, sch)
	return sch.ID, nil
}

func (s *fakeScheduleStore) UpdateSchedule(_ context.Context, sch store.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for i := range s.schedules {
		if s.schedules[i].ID == sch.ID {
			s.schedules[i] = sch
			return nil
		}
	}
	return fmt.Errorf("schedule %d not found", sch.ID)
}

func (s *fakeScheduleStore) DeleteSchedule(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for i := range s.schedules {
		if s.schedules[i].ID == id {
			s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
			return nil
		}
	}
	return nil
}

// fakeSettingsBackend implements settings.Backend in memory.
type fakeSettingsBackend struct {
	mu sync.Mutex
	m  map[string]string
}

func newFakeSettingsBackend() *fakeSettingsBackend {
	return &fakeSettingsBackend{m: make(map[string]string)}
}

func (b *fakeSettingsBackend) GetSetting(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.m[key]
	return v, ok, nil
}

func (b *fakeSettingsBackend) SetSetting(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[key] = value
	return nil
}

func (b *fakeSettingsBackend) AllSettings(context.Context) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.m))
	for k, v := range b.m {
		out[k] = v
	}
	return out, nil
}

// fakeAttendanceStore implements AttendanceStore in memory.
type fakeAttendanceStore struct {
	events []store.AttendanceEvent
	err    error
	limit  int
}

func (s *fakeAttendanceStore) RecentEvents(_ context.Context, limit int) ([]store.AttendanceEvent, error) {
	s.limit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}
