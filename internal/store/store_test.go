package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSettings_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, found, err := s.GetSetting(ctx, "TOLERANCE")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected missing setting before set")
	}

	if err := s.SetSetting(ctx, "TOLERANCE", "0.6"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetSetting(ctx, "TOLERANCE", "0.4"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	val, found, err := s.GetSetting(ctx, "TOLERANCE")
	if err != nil || !found {
		t.Fatalf("get after set: val=%q found=%v err=%v", val, found, err)
	}
	if val != "0.4" {
		t.Errorf("expected '0.4', got '%s'", val)
	}

	all, err := s.AllSettings(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if all["TOLERANCE"] != "0.4" {
		t.Errorf("expected AllSettings to include TOLERANCE=0.4, got %v", all)
	}
}

func TestActiveSchedule_HalfOpenInterval(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSchedule(ctx, Schedule{
		ClassName: "Math", Day: "Monday", Start: "08:00", End: "09:00", Active: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		time string
		want bool
	}{
		{"07:59", false},
		{"08:00", true}, // start is inclusive
		{"08:30", true},
		{"09:00", false}, // end is exclusive
	}

	for _, tt := range tests {
		sch, err := s.ActiveSchedule(ctx, "Monday", tt.time)
		if err != nil {
			t.Fatalf("query at %s: %v", tt.time, err)
		}
		got := sch != nil
		if got != tt.want {
			t.Errorf("at %s: active=%v, want %v", tt.time, got, tt.want)
		}
		if sch != nil && sch.ID != id {
			t.Errorf("at %s: got schedule %d, want %d", tt.time, sch.ID, id)
		}
	}

	if sch, _ := s.ActiveSchedule(ctx, "Tuesday", "08:30"); sch != nil {
		t.Error("expected no schedule on a different day")
	}
}

func TestActiveSchedule_InactiveIgnored(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateSchedule(ctx, Schedule{
		ClassName: "Math", Day: "Monday", Start: "08:00", End: "09:00", Active: false,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	sch, err := s.ActiveSchedule(ctx, "Monday", "08:30")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if sch != nil {
		t.Error("disabled schedule must never be active")
	}
}

func TestIdentities_SaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveIdentity(ctx, "alice", [][]float32{{1, 0}, {0.9, 0.1}}); err != nil {
		t.Fatalf("save alice: %v", err)
	}
	if err := s.SaveIdentity(ctx, "bob", [][]float32{{0, 1}}); err != nil {
		t.Fatalf("save bob: %v", err)
	}

	ids, err := s.LoadKnownIdentities(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(ids) != 2 {
		t.Fatalf("expected 2 identities, got %d", len(ids))
	}
	if ids[0].Name != "alice" || len(ids[0].Vectors) != 2 {
		t.Errorf("alice: got %+v", ids[0])
	}
	if ids[1].Name != "bob" || len(ids[1].Vectors) != 1 {
		t.Errorf("bob: got %+v", ids[1])
	}
}

func TestInsertAttendanceEvent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SyncStudents(ctx, []string{"alice"}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	schedID := int64(3)
	ev := AttendanceEvent{
		Identity:   "alice",
		Status:     StatusOnTime,
		Source:     SourceEngine,
		ScheduleID: &schedID,
		SessionID:  "session-1",
		CreatedAt:  time.Date(2026, 3, 2, 8, 5, 0, 0, time.UTC),
	}
	if err := s.InsertAttendanceEvent(ctx, ev); err != nil {
		t.Fatalf("insert: %v", err)
	}

	events, err := s.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.Identity != "alice" || got.Status != StatusOnTime || got.SessionID != "session-1" {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.ScheduleID == nil || *got.ScheduleID != 3 {
		t.Errorf("expected schedule id 3, got %v", got.ScheduleID)
	}
}

func TestInsertAttendanceEvent_UnknownStudent(t *testing.T) {
	s := openTestStore(t)

	err := s.InsertAttendanceEvent(context.Background(), AttendanceEvent{
		Identity: "nobody", Status: StatusLate, Source: SourceEngine, CreatedAt: time.Now(),
	})
	if err == nil {
		t.Error("expected error for unenrolled identity")
	}
}

func TestCameras(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cam, err := s.ActiveCamera(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if cam != nil {
		t.Fatal("expected no camera in a fresh store")
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO cameras (name, source, is_active) VALUES ('front', 'http://cam/stream', 1)"); err != nil {
		t.Fatalf("insert camera: %v", err)
	}

	cam, err = s.ActiveCamera(ctx)
	if err != nil || cam == nil {
		t.Fatalf("active after insert: cam=%v err=%v", cam, err)
	}
	if cam.Source != "http://cam/stream" {
		t.Errorf("unexpected source %s", cam.Source)
	}
}
