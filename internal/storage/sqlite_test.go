package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(versions) == 0 {
		t.Fatal("no migrations applied")
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations out of order: %v", versions)
		}
	}
}

func TestAppendAndGetExecutionLog(t *testing.T) {
	s := openTestStore(t)

	entry := ExecutionLog{
		ID:        uuid.New().String(),
		Timestamp: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		SessionID: "sess-1",
		DataJSON:  `{"plant_status": "healthy"}`,
	}
	if err := s.AppendExecutionLog(entry); err != nil {
		t.Fatalf("AppendExecutionLog: %v", err)
	}

	got, err := s.GetExecutionLog(entry.ID)
	if err != nil {
		t.Fatalf("GetExecutionLog: %v", err)
	}
	if got.SessionID != "sess-1" {
		t.Errorf("SessionID = %q", got.SessionID)
	}
	if got.DataJSON != entry.DataJSON {
		t.Errorf("DataJSON = %q", got.DataJSON)
	}
	if !got.Timestamp.Equal(entry.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, entry.Timestamp)
	}
}

func TestGetExecutionLog_NotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetExecutionLog("missing"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRecentExecutionLogs_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := ExecutionLog{
			ID:        fmt.Sprintf("entry-%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			SessionID: "sess",
			DataJSON:  "{}",
		}
		if err := s.AppendExecutionLog(entry); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := s.RecentExecutionLogs(3)
	if err != nil {
		t.Fatalf("RecentExecutionLogs: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	if got[0].ID != "entry-4" || got[2].ID != "entry-2" {
		t.Errorf("order wrong: %s ... %s", got[0].ID, got[2].ID)
	}

	n, err := s.CountExecutionLogs()
	if err != nil {
		t.Fatalf("CountExecutionLogs: %v", err)
	}
	if n != 5 {
		t.Errorf("count = %d, want 5", n)
	}
}

func TestAppendExecutionLog_TimestampStoredUTC(t *testing.T) {
	s := openTestStore(t)

	loc := time.FixedZone("JST", 9*60*60)
	local := time.Date(2026, 4, 1, 18, 0, 0, 0, loc)
	entry := ExecutionLog{ID: "tz", Timestamp: local, SessionID: "s", DataJSON: "{}"}
	if err := s.AppendExecutionLog(entry); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetExecutionLog("tz")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Timestamp.Equal(local) {
		t.Errorf("Timestamp = %v, want instant %v", got.Timestamp, local)
	}
	if _, offset := got.Timestamp.Zone(); offset != 0 {
		t.Errorf("stored offset = %d, want UTC", offset)
	}
}
