package store

import (
	"context"
	"fmt"
	"time"
)

// Attendance statuses recognized by the system. The engine only ever emits
// OnTime, Late and Disappeared; the rest are written by external layers
// (manual corrections, end-of-window batch jobs).
const (
	StatusOnTime      = "On Time"
	StatusPresent     = "Present"
	StatusLate        = "Late"
	StatusAbsent      = "Absent"
	StatusDisappeared = "Disappeared"
	StatusEarlyLeave  = "Early Leave"
	StatusPermitted   = "Permitted"
	StatusExcused     = "Excused"
)

// SourceEngine tags events written by the recognition engine.
const SourceEngine = "ai"

// AttendanceEvent is an immutable attendance record. Identity is the
// normalized student name; the store resolves it to a student row on
// insert. ScheduleID is nil for events logged in force_on mode.
type AttendanceEvent struct {
	ID         int64     `json:"id"`
	Identity   string    `json:"identity"`
	Status     string    `json:"status"`
	Source     string    `json:"source"`
	ScheduleID *int64    `json:"schedule_id,omitempty"`
	SessionID  string    `json:"session_id"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// InsertAttendanceEvent appends an event to the attendance log. Events are
// never updated or deleted by the engine; corrections are an external-layer
// responsibility. Failures wrap ErrWrite so the engine can treat them as
// recoverable.
func (s *Store) InsertAttendanceEvent(ctx context.Context, ev AttendanceEvent) error {
	var studentID int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM students WHERE name = ?", ev.Identity).Scan(&studentID)
	if err != nil {
		return fmt.Errorf("%w: resolve student %q: %v", ErrWrite, ev.Identity, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attendance_logs (student_id, status, source, schedule_id, session_id, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, studentID, ev.Status, ev.Source, ev.ScheduleID, ev.SessionID, ev.Note, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert event for %q: %v", ErrWrite, ev.Identity, err)
	}
	return nil
}

// RecentEvents returns the newest attendance events, most recent first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]AttendanceEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, st.name, a.status, a.source, a.schedule_id, COALESCE(a.session_id, ''),
		       COALESCE(a.note, ''), a.created_at
		FROM attendance_logs a
		JOIN students st ON st.id = a.student_id
		ORDER BY a.id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []AttendanceEvent
	for rows.Next() {
		var ev AttendanceEvent
		if err := rows.Scan(&ev.ID, &ev.Identity, &ev.Status, &ev.Source, &ev.ScheduleID,
			&ev.SessionID, &ev.Note, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attendance event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, nil
}
