package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Schedule is one class slot. Start and End are "HH:MM" local times;
// Day is the weekday name ("Monday").
type Schedule struct {
	ID        int64  `json:"id"`
	ClassName string `json:"class_name"`
	Day       string `json:"day_of_week"`
	Start     string `json:"start_time"`
	End       string `json:"end_time"`
	Active    bool   `json:"is_active"`
}

// ActiveSchedule returns the schedule active at the given weekday and
// "HH:MM" time, or nil when none matches. A slot is active for
// start <= now < end.
func (s *Store) ActiveSchedule(ctx context.Context, day, hhmm string) (*Schedule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, class_name, day_of_week, start_time, end_time, is_active
		FROM class_schedules
		WHERE day_of_week = ? AND is_active = 1
		  AND start_time <= ? AND ? < end_time
		ORDER BY start_time LIMIT 1
	`, day, hhmm, hhmm)

	var sch Schedule
	err := row.Scan(&sch.ID, &sch.ClassName, &sch.Day, &sch.Start, &sch.End, &sch.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active schedule: %w", err)
	}
	return &sch, nil
}

// ListSchedules returns all schedules ordered by day and start time.
func (s *Store) ListSchedules(ctx context.Context) ([]Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, class_name, day_of_week, start_time, end_time, is_active
		FROM class_schedules ORDER BY day_of_week, start_time
	`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var out []Schedule
	for rows.Next() {
		var sch Schedule
		if err := rows.Scan(&sch.ID, &sch.ClassName, &sch.Day, &sch.Start, &sch.End, &sch.Active); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, sch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return out, nil
}

// CreateSchedule inserts a schedule and returns its id.
func (s *Store) CreateSchedule(ctx context.Context, sch Schedule) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO class_schedules (class_name, day_of_week, start_time, end_time, is_active)
		VALUES (?, ?, ?, ?, ?)
	`, sch.ClassName, sch.Day, sch.Start, sch.End, sch.Active)
	if err != nil {
		return 0, fmt.Errorf("create schedule: %w", err)
	}
	return res.LastInsertId()
}

// UpdateSchedule rewrites a schedule row.
func (s *Store) UpdateSchedule(ctx context.Context, sch Schedule) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE class_schedules
		SET class_name = ?, day_of_week = ?, start_time = ?, end_time = ?, is_active = ?
		WHERE id = ?
	`, sch.ClassName, sch.Day, sch.Start, sch.End, sch.Active, sch.ID)
	if err != nil {
		return fmt.Errorf("update schedule %d: %w", sch.ID, err)
	}
	return nil
}

// DeleteSchedule removes a schedule row.
func (s *Store) DeleteSchedule(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM class_schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
	}
	return nil
}
