package audit

import (
	"path/filepath"
	"testing"

	"github.com/arbiter-dev/arbiter/internal/store"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewWriter(s)
}

func TestRecordAndRecent(t *testing.T) {
	w := newTestWriter(t)

	rec, err := w.Record("lock.acquire", "coder", "src/main.go", map[string]string{"ttl": "5m"}, "success")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("Record should be assigned an id")
	}
	if rec.Details == "" {
		t.Error("Inputs should be hashed into details")
	}

	recs, err := w.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(recs))
	}
	if recs[0].Kind != "lock.acquire" || recs[0].Outcome != "success" {
		t.Errorf("Unexpected record: %+v", recs[0])
	}
}

func TestHashIsStable(t *testing.T) {
	w := newTestWriter(t)

	a, _ := w.Record("k", "actor", "res", map[string]string{"x": "1"}, "ok")
	b, _ := w.Record("k", "actor", "res", map[string]string{"x": "1"}, "ok")
	c, _ := w.Record("k", "actor", "res", map[string]string{"x": "2"}, "ok")

	if a.Details != b.Details {
		t.Error("Identical inputs should hash identically")
	}
	if a.Details == c.Details {
		t.Error("Different inputs should hash differently")
	}
}

func TestNilInputs(t *testing.T) {
	w := newTestWriter(t)

	rec, err := w.Record("k", "actor", "", nil, "ok")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.Details == "" {
		t.Error("Nil inputs still hash to a value")
	}
}
