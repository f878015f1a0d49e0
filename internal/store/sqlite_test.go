package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id string, started time.Time) protocol.RunRecord {
	return protocol.RunRecord{
		ID:          id,
		Kind:        protocol.RunClustering,
		State:       protocol.RunSent,
		TicketCount: 10,
		GroupCount:  2,
		StartedAt:   started,
		FinishedAt:  started.Add(time.Minute),
	}
}

func TestSaveAndListRuns(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := s.SaveRun(record(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %d", len(runs))
	}
	// Newest first
	if runs[0].ID != "c" || runs[2].ID != "a" {
		t.Errorf("order = %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
	if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("started at = %v", runs[0].StartedAt)
	}
}

func TestListRunsLimit(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		s.SaveRun(record(id, base.Add(time.Duration(i)*time.Minute)))
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("runs = %d, want 2", len(runs))
	}
}

func TestSaveRunUpsert(t *testing.T) {
	s := newTestStore(t)
	rec := record("a", time.Now().UTC())
	if err := s.SaveRun(rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	rec.State = protocol.RunFailed
	rec.Note = "provider error"
	if err := s.SaveRun(rec); err != nil {
		t.Fatalf("SaveRun update: %v", err)
	}

	runs, _ := s.ListRuns(10)
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want upsert not duplicate", len(runs))
	}
	if runs[0].State != protocol.RunFailed || runs[0].Note != "provider error" {
		t.Errorf("run = %+v", runs[0])
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	tickets := []protocol.Ticket{
		{ID: "1", Subject: "first", OrgID: "org-1"},
		{ID: "2", Subject: "second", Custom: protocol.CustomFields{JiraTicketID: "PAY-1"}},
	}
	if err := s.SaveSnapshot(tickets); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, savedAt, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(got) != 2 || got[1].Custom.JiraTicketID != "PAY-1" {
		t.Errorf("snapshot = %+v", got)
	}
	if savedAt.IsZero() {
		t.Error("saved_at not recorded")
	}
}

func TestSnapshotReplaces(t *testing.T) {
	s := newTestStore(t)
	s.SaveSnapshot([]protocol.Ticket{{ID: "1"}, {ID: "2"}})
	s.SaveSnapshot([]protocol.Ticket{{ID: "3"}})

	got, _, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(got) != 1 || got[0].ID != "3" {
		t.Errorf("snapshot = %+v, want single-row replacement", got)
	}
}

func TestLoadSnapshotEmpty(t *testing.T) {
	s := newTestStore(t)
	got, savedAt, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got != nil || !savedAt.IsZero() {
		t.Errorf("got %+v at %v, want empty", got, savedAt)
	}
}
