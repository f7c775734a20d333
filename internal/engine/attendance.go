package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/smart-presence/internal/settings"
	"github.com/kozaktomas/smart-presence/internal/store"
)

// forcedScheduleID marks the synthetic schedule used in force_on mode.
// Events logged against it carry no schedule reference.
const forcedScheduleID int64 = -1

// session is one attendance window: a schedule occurrence (or the synthetic
// force_on window). Dedup state lives here and dies with the session;
// last-seen timestamps live on the engine and survive session boundaries.
type session struct {
	id          string
	key         string
	schedule    *store.Schedule
	start       time.Time
	logged      map[string]string // identity -> first logged status
	disappeared map[string]bool
}

// sessionKey identifies a schedule occurrence so that back-to-back classes
// and day rollovers start fresh sessions.
func sessionKey(sched *store.Schedule, now time.Time) string {
	if sched == nil {
		return ""
	}
	return fmt.Sprintf("%d@%s@%s", sched.ID, now.Format("2006-01-02"), sched.Start)
}

// activeSchedule resolves the schedule the engine should log against:
// force_off logs nothing, force_on logs against a synthetic always-active
// window, auto consults the timetable.
func (e *Engine) activeSchedule(ctx context.Context, mode settings.Mode, now time.Time) (*store.Schedule, error) {
	switch mode {
	case settings.ModeForceOff:
		return nil, nil
	case settings.ModeForceOn:
		return &store.Schedule{
			ID:        forcedScheduleID,
			ClassName: "Manual Session",
			Day:       now.Weekday().String(),
			Start:     "00:00",
			End:       "23:59",
			Active:    true,
		}, nil
	default:
		return e.store.ActiveSchedule(ctx, now.Weekday().String(), now.Format("15:04"))
	}
}

// syncSession starts a new session whenever the schedule occurrence
// changes, clearing the dedup and disappearance state. Trackers are dropped
// on every transition, including schedule-to-none, so identities from the
// ended class never stay visible into the gap or seed the next session.
// Last-seen times are deliberately kept so a disappearance span straddling
// a session boundary is still measured from the true last sighting.
func (e *Engine) syncSession(sched *store.Schedule, now time.Time) {
	key := sessionKey(sched, now)
	if e.session != nil && e.session.key == key {
		return
	}
	if key == "" {
		if e.session == nil {
			return
		}
		e.log.Info().Str("session", e.session.id).Msg("attendance session closed")
		e.session = nil
		e.trackers.Reset()
		return
	}

	e.session = &session{
		id:          uuid.New().String(),
		key:         key,
		schedule:    sched,
		start:       scheduleStart(sched, now),
		logged:      make(map[string]string),
		disappeared: make(map[string]bool),
	}
	e.trackers.Reset()
	e.log.Info().
		Str("session", e.session.id).
		Str("class", sched.ClassName).
		Int64("schedule_id", sched.ID).
		Msg("attendance session started")
}

// scheduleStart anchors the schedule's "HH:MM" start time to today's date.
// An unparseable start yields the zero time, which disables lateness.
func scheduleStart(sched *store.Schedule, now time.Time) time.Time {
	t, err := time.Parse("15:04", sched.Start)
	if err != nil {
		return time.Time{}
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
}

// recordSighting updates last-seen for an identity and, on its first
// sighting this session, writes an arrival event. The dedup mark is set
// only after the write succeeds, so a failed write is retried on the next
// sighting instead of losing the arrival.
func (e *Engine) recordSighting(ctx context.Context, identity string, now time.Time) {
	e.lastSeen[identity] = now

	s := e.session
	if s == nil {
		return
	}
	if _, done := s.logged[identity]; done {
		return
	}

	status := e.arrivalStatus(ctx, s, now)
	ev := store.AttendanceEvent{
		Identity:  identity,
		Status:    status,
		Source:    store.SourceEngine,
		SessionID: s.id,
		CreatedAt: now,
	}
	if s.schedule.ID != forcedScheduleID {
		id := s.schedule.ID
		ev.ScheduleID = &id
	}

	if err := e.store.InsertAttendanceEvent(ctx, ev); err != nil {
		e.metrics.StoreErrors.Inc()
		e.log.Error().Err(err).Str("identity", identity).Msg("attendance write failed, will retry on next sighting")
		return
	}

	s.logged[identity] = status
	e.metrics.AttendanceEvents.WithLabelValues(status).Inc()
	e.log.Info().Str("identity", identity).Str("status", status).Str("session", s.id).Msg("attendance logged")
	e.broadcast(ev)
}

// arrivalStatus classifies a first sighting. Within the late threshold of
// class start (inclusive) the student is on time; after it they are late.
// Forced sessions have no meaningful start, so everyone is Present.
func (e *Engine) arrivalStatus(ctx context.Context, s *session, now time.Time) string {
	if s.schedule.ID == forcedScheduleID || s.start.IsZero() {
		return store.StatusPresent
	}
	late := e.settings.Minutes(ctx, settings.KeyLateThreshold)
	if now.Sub(s.start) <= late {
		return store.StatusOnTime
	}
	return store.StatusLate
}

// scanDisappearances writes a Disappeared event for every identity logged
// this session that has been out of frame longer than the disappear
// threshold. The scan itself is gated by the recheck interval so it costs
// nothing on the hot path.
func (e *Engine) scanDisappearances(ctx context.Context, now time.Time) {
	recheck := e.settings.Seconds(ctx, settings.KeyRecheckInterval)
	if !e.lastRecheck.IsZero() && now.Sub(e.lastRecheck) < recheck {
		return
	}
	e.lastRecheck = now

	s := e.session
	if s == nil {
		return
	}

	visible := make(map[string]bool)
	for _, identity := range e.trackers.VisibleIdentities() {
		visible[identity] = true
	}

	threshold := e.settings.Minutes(ctx, settings.KeyDisappearThreshold)
	for identity := range s.logged {
		if s.disappeared[identity] || visible[identity] {
			continue
		}
		last, ok := e.lastSeen[identity]
		if !ok || now.Sub(last) <= threshold {
			continue
		}

		ev := store.AttendanceEvent{
			Identity:  identity,
			Status:    store.StatusDisappeared,
			Source:    store.SourceEngine,
			SessionID: s.id,
			Note:      fmt.Sprintf("last seen %s ago", now.Sub(last).Round(time.Minute)),
			CreatedAt: now,
		}
		if s.schedule.ID != forcedScheduleID {
			id := s.schedule.ID
			ev.ScheduleID = &id
		}

		if err := e.store.InsertAttendanceEvent(ctx, ev); err != nil {
			e.metrics.StoreErrors.Inc()
			e.log.Error().Err(err).Str("identity", identity).Msg("disappearance write failed")
			continue
		}

		s.disappeared[identity] = true
		e.metrics.AttendanceEvents.WithLabelValues(store.StatusDisappeared).Inc()
		e.log.Info().Str("identity", identity).Str("session", s.id).Msg("student disappeared")
		e.broadcast(ev)
	}
}
