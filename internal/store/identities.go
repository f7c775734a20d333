package store

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// Identity is an enrolled student with its reference feature vectors.
type Identity struct {
	Name    string
	Vectors [][]float32
}

// LoadKnownIdentities returns all enrolled students with at least one
// reference vector. Vectors are stored as JSON arrays.
func (s *Store) LoadKnownIdentities(ctx context.Context) ([]Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT st.name, e.vector
		FROM students st
		JOIN encodings e ON e.student_id = st.id
		ORDER BY st.name
	`)
	if err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]*Identity)
	var order []string
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			return nil, fmt.Errorf("decode vector for %q: %w", name, err)
		}
		id, ok := byName[name]
		if !ok {
			id = &Identity{Name: name}
			byName[name] = id
			order = append(order, name)
		}
		id.Vectors = append(id.Vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	out := make([]Identity, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

// SaveIdentity appends reference vectors for a student, creating the
// student row if needed.
func (s *Store) SaveIdentity(ctx context.Context, name string, vectors [][]float32) error {
	id, err := s.ensureStudent(ctx, name)
	if err != nil {
		return err
	}

	for _, vec := range vectors {
		raw, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("encode vector for %q: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO encodings (student_id, vector) VALUES (?, ?)", id, string(raw)); err != nil {
			return fmt.Errorf("save vector for %q: %w", name, err)
		}
	}
	return nil
}

// SyncStudents ensures a student row exists for every enrolled name.
func (s *Store) SyncStudents(ctx context.Context, names []string) error {
	for _, name := range names {
		if _, err := s.ensureStudent(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensureStudent(ctx context.Context, name string) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO students (name) VALUES (?) ON CONFLICT (name) DO NOTHING", name)
	if err != nil {
		return 0, fmt.Errorf("ensure student %q: %w", name, err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, "SELECT id FROM students WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup student %q: %w", name, err)
	}
	return id, nil
}
