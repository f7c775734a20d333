package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Camera is a configured capture source. The engine uses the first active
// camera, falling back to the compiled default when none is configured.
type Camera struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source"`
	Active bool   `json:"is_active"`
}

// ActiveCamera returns the first active camera by creation order, or nil.
func (s *Store) ActiveCamera(ctx context.Context) (*Camera, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, source, is_active FROM cameras
		WHERE is_active = 1 ORDER BY id ASC LIMIT 1
	`)

	var c Camera
	err := row.Scan(&c.ID, &c.Name, &c.Source, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active camera: %w", err)
	}
	return &c, nil
}

// ListCameras returns all configured cameras.
func (s *Store) ListCameras(ctx context.Context) ([]Camera, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, source, is_active FROM cameras ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	defer rows.Close()

	var out []Camera
	for rows.Next() {
		var c Camera
		if err := rows.Scan(&c.ID, &c.Name, &c.Source, &c.Active); err != nil {
			return nil, fmt.Errorf("scan camera: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cameras: %w", err)
	}
	return out, nil
}
