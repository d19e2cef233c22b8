package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	s := NewSqliteStore(filepath.Join(t.TempDir(), "dive.sqlite"))
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})
	return s
}

func floatPtr(v float64) *float64 { return &v }

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, "nautilus", map[string]any{"baudRate": 115200})
	if err != nil {
		t.Fatalf("CreateSession() = %v", err)
	}

	sess, err := s.Session(ctx, id)
	if err != nil {
		t.Fatalf("Session() = %v", err)
	}
	if sess.Vehicle != "nautilus" {
		t.Errorf("vehicle = %q", sess.Vehicle)
	}
	if sess.Config == nil {
		t.Fatal("config not persisted")
	}

	all, err := s.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() = %v", err)
	}
	if len(all) != 1 || all[0].ID != id {
		t.Errorf("Sessions() = %+v", all)
	}
}

func TestTelemetryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, "nautilus", nil)
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)
	if _, err := s.StoreTelemetry(ctx, id, &Telemetry{
		Timestamp: base,
		Depth:     floatPtr(2.5),
		Heading:   floatPtr(187.0),
	}); err != nil {
		t.Fatalf("StoreTelemetry() = %v", err)
	}

	rows, err := s.TelemetryBySession(ctx, id)
	if err != nil {
		t.Fatalf("TelemetryBySession() = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	got := rows[0]
	if got.Depth == nil || *got.Depth != 2.5 {
		t.Errorf("depth = %v", got.Depth)
	}
	if got.Heading == nil || *got.Heading != 187.0 {
		t.Errorf("heading = %v", got.Heading)
	}
	if got.Temperature != nil {
		t.Errorf("temperature = %v, want nil (sensor unavailable)", *got.Temperature)
	}
}

func TestBatchStoreTelemetry(t *testing.T) {
	ctx := context.Background()
	s := NewSqliteStore(filepath.Join(t.TempDir(), "dive.sqlite"), WithBatchSize(3))
	defer s.Close()

	id, err := s.CreateSession(ctx, "nautilus", nil)
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)
	var rows []*Telemetry
	for i := 0; i < 10; i++ {
		rows = append(rows, &Telemetry{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Depth:     floatPtr(float64(i)),
		})
	}

	if err := s.BatchStoreTelemetry(ctx, id, rows); err != nil {
		t.Fatalf("BatchStoreTelemetry() = %v", err)
	}

	got, err := s.TelemetryBySession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(rows) {
		t.Fatalf("stored %d rows, want %d", len(got), len(rows))
	}
	for i := range got {
		if got[i].Depth == nil || *got[i].Depth != float64(i) {
			t.Errorf("row %d depth = %v", i, got[i].Depth)
		}
	}
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, "nautilus", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.StoreEvent(ctx, id, EventConnectionVerified, ""); err != nil {
		t.Fatalf("StoreEvent() = %v", err)
	}
	if err := s.StoreEvent(ctx, id, EventMissionStarted, "mission 0"); err != nil {
		t.Fatalf("StoreEvent() = %v", err)
	}

	events, err := s.EventsBySession(ctx, id)
	if err != nil {
		t.Fatalf("EventsBySession() = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Kind != EventConnectionVerified || events[1].Detail != "mission 0" {
		t.Errorf("events = %+v, %+v", events[0], events[1])
	}
}
