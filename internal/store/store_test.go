package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestPutGet(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	expires := time.Now().Add(time.Minute)
	if err := s.Put("k1", []byte("v1"), expires); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	e, err := s.Get("k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e == nil {
		t.Fatal("Expected live entry, got nil")
	}
	if string(e.Value) != "v1" {
		t.Errorf("Expected value v1, got %s", e.Value)
	}

	// Overwrite replaces value and lease
	if err := s.Put("k1", []byte("v2"), expires.Add(time.Minute)); err != nil {
		t.Fatalf("Put overwrite failed: %v", err)
	}
	e, err = s.Get("k1")
	if err != nil {
		t.Fatalf("Get after overwrite failed: %v", err)
	}
	if string(e.Value) != "v2" {
		t.Errorf("Expected value v2, got %s", e.Value)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	e, err := s.Get("absent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e != nil {
		t.Errorf("Expected nil for missing key, got %+v", e)
	}
}

func TestGetExpired(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if err := s.Put("k1", []byte("v1"), time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	e, err := s.Get("k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e != nil {
		t.Errorf("Expected expired entry to be hidden, got %+v", e)
	}
}

func TestPutIf(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	expires := time.Now().Add(time.Minute)
	never := func(existing []byte) bool { return false }

	// Vacant key: predicate is not consulted
	existing, ok, err := s.PutIf("k1", []byte("a"), expires, never)
	if err != nil {
		t.Fatalf("PutIf failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected write into vacant key to succeed")
	}
	if existing != nil {
		t.Errorf("Expected no existing value, got %s", existing)
	}

	// Occupied key, predicate rejects: existing value comes back
	existing, ok, err = s.PutIf("k1", []byte("b"), expires, never)
	if err != nil {
		t.Fatalf("PutIf failed: %v", err)
	}
	if ok {
		t.Error("Expected write to be rejected")
	}
	if string(existing) != "a" {
		t.Errorf("Expected existing value a, got %s", existing)
	}

	// Occupied key, predicate accepts: value replaced
	_, ok, err = s.PutIf("k1", []byte("c"), expires, func(existing []byte) bool {
		return string(existing) == "a"
	})
	if err != nil {
		t.Fatalf("PutIf failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected predicate-accepted write to succeed")
	}

	e, _ := s.Get("k1")
	if string(e.Value) != "c" {
		t.Errorf("Expected value c, got %s", e.Value)
	}
}

func TestPutIfExpiredTreatedAsVacant(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if err := s.Put("k1", []byte("stale"), time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	_, ok, err := s.PutIf("k1", []byte("fresh"), time.Now().Add(time.Minute),
		func(existing []byte) bool { return false })
	if err != nil {
		t.Fatalf("PutIf failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected write over expired entry to succeed without consulting predicate")
	}

	e, _ := s.Get("k1")
	if string(e.Value) != "fresh" {
		t.Errorf("Expected value fresh, got %s", e.Value)
	}
}

func TestDeleteIf(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if err := s.Put("k1", []byte("v1"), time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	deleted, err := s.DeleteIf("k1", func(existing []byte) bool { return false })
	if err != nil {
		t.Fatalf("DeleteIf failed: %v", err)
	}
	if deleted {
		t.Error("Expected rejected delete")
	}

	deleted, err = s.DeleteIf("k1", func(existing []byte) bool {
		return string(existing) == "v1"
	})
	if err != nil {
		t.Fatalf("DeleteIf failed: %v", err)
	}
	if !deleted {
		t.Error("Expected accepted delete")
	}

	// Missing key is a no-op
	deleted, err = s.DeleteIf("k1", func(existing []byte) bool { return true })
	if err != nil {
		t.Fatalf("DeleteIf failed: %v", err)
	}
	if deleted {
		t.Error("Expected delete of missing key to report false")
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	expires := time.Now().Add(time.Minute)
	for _, key := range []string{"lock:a", "lock:b", "other:c"} {
		if err := s.Put(key, []byte("v"), expires); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	// Expired entries are excluded
	if err := s.Put("lock:stale", []byte("v"), time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entries, err := s.List("lock:")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Key != "lock:a" || entries[1].Key != "lock:b" {
		t.Errorf("Unexpected keys: %s, %s", entries[0].Key, entries[1].Key)
	}
}

func TestListEscapesWildcards(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	expires := time.Now().Add(time.Minute)
	s.Put("a_b", []byte("v"), expires)
	s.Put("axb", []byte("v"), expires)

	entries, err := s.List("a_")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "a_b" {
		t.Errorf("Expected only a_b, got %d entries", len(entries))
	}
}

func TestPurgeExpired(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	s.Put("live", []byte("v"), time.Now().Add(time.Minute))
	s.Put("dead", []byte("v"), time.Now().Add(-time.Second))

	n, err := s.PurgeExpired()
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 purged row, got %d", n)
	}
}

func TestDecisionLog(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	rec, err := s.RecordDecision("lock", "coder", "src/main.go", "success", "{}")
	if err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("Decision ID should not be empty")
	}

	if _, err := s.RecordDecision("veto", "security", "", "denied", ""); err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}

	recs, err := s.ListDecisions(10)
	if err != nil {
		t.Fatalf("ListDecisions failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Expected 2 decisions, got %d", len(recs))
	}
}
