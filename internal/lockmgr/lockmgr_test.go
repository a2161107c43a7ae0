package lockmgr

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/arbiter-dev/arbiter/internal/models"
	"github.com/arbiter-dev/arbiter/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, time.Minute)
}

func TestAcquireRelease(t *testing.T) {
	m := newTestManager(t)

	lock, err := m.Acquire("src/main.go", "coder", 0, false)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if lock.Holder != "coder" {
		t.Errorf("Expected holder coder, got %s", lock.Holder)
	}
	if !lock.ExpiresAt.After(lock.AcquiredAt) {
		t.Error("Lease should expire after acquisition")
	}

	locked, holder, err := m.IsLocked("src/main.go")
	if err != nil {
		t.Fatalf("IsLocked failed: %v", err)
	}
	if !locked || holder != "coder" {
		t.Errorf("Expected locked by coder, got locked=%v holder=%s", locked, holder)
	}

	released, err := m.Release("src/main.go", "coder")
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !released {
		t.Error("Expected holder release to succeed")
	}

	locked, _, err = m.IsLocked("src/main.go")
	if err != nil {
		t.Fatalf("IsLocked failed: %v", err)
	}
	if locked {
		t.Error("Expected resource to be unlocked after release")
	}
}

func TestAcquireConflict(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Acquire("src/main.go", "coder", time.Minute, false); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	_, err := m.Acquire("src/main.go", "planner", time.Minute, false)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}
	if conflict.Holder != "coder" {
		t.Errorf("Expected conflict to name coder, got %s", conflict.Holder)
	}
	if conflict.Resource != "src/main.go" {
		t.Errorf("Expected conflict resource src/main.go, got %s", conflict.Resource)
	}
}

func TestAcquireSameHolderRefreshes(t *testing.T) {
	m := newTestManager(t)

	first, err := m.Acquire("src/main.go", "coder", time.Minute, false)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	second, err := m.Acquire("src/main.go", "coder", time.Hour, false)
	if err != nil {
		t.Fatalf("Re-acquire by holder failed: %v", err)
	}
	if !second.ExpiresAt.After(first.ExpiresAt) {
		t.Error("Re-acquire should refresh the lease")
	}
}

func TestAcquireForce(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Acquire("src/main.go", "coder", time.Minute, false); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	lock, err := m.Acquire("src/main.go", "security", time.Minute, true)
	if err != nil {
		t.Fatalf("Forced acquire failed: %v", err)
	}
	if lock.Holder != "security" {
		t.Errorf("Expected forced holder security, got %s", lock.Holder)
	}

	_, holder, _ := m.IsLocked("src/main.go")
	if holder != "security" {
		t.Errorf("Expected security to hold the lock, got %s", holder)
	}
}

func TestExpiredLockIsAcquirable(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Acquire("src/main.go", "coder", time.Millisecond, false); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	locked, _, err := m.IsLocked("src/main.go")
	if err != nil {
		t.Fatalf("IsLocked failed: %v", err)
	}
	if locked {
		t.Error("Expired lock should read as unlocked")
	}

	lock, err := m.Acquire("src/main.go", "planner", time.Minute, false)
	if err != nil {
		t.Fatalf("Acquire over expired lock failed: %v", err)
	}
	if lock.Holder != "planner" {
		t.Errorf("Expected planner to take over, got %s", lock.Holder)
	}
}

func TestReleaseNonHolder(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Acquire("src/main.go", "coder", time.Minute, false); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	released, err := m.Release("src/main.go", "planner")
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if released {
		t.Error("Non-holder release must not succeed")
	}

	locked, holder, _ := m.IsLocked("src/main.go")
	if !locked || holder != "coder" {
		t.Errorf("Lock state should be untouched, got locked=%v holder=%s", locked, holder)
	}
}

func TestReleaseMissing(t *testing.T) {
	m := newTestManager(t)

	released, err := m.Release("absent", "coder")
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if released {
		t.Error("Releasing a missing lock should report false")
	}
}

func TestExtend(t *testing.T) {
	m := newTestManager(t)

	first, err := m.Acquire("src/main.go", "coder", time.Minute, false)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	extended, err := m.Extend("src/main.go", "coder", time.Hour)
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if extended == nil {
		t.Fatal("Expected holder extend to succeed")
	}
	if !extended.ExpiresAt.After(first.ExpiresAt) {
		t.Error("Extend should push back the expiry")
	}

	// Non-holder gets nil, no error
	denied, err := m.Extend("src/main.go", "planner", time.Hour)
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if denied != nil {
		t.Error("Non-holder extend must not succeed")
	}

	// Missing lock gets nil too
	missing, err := m.Extend("absent", "coder", time.Hour)
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if missing != nil {
		t.Error("Extending a missing lock must not succeed")
	}
}

func TestListLocks(t *testing.T) {
	m := newTestManager(t)

	m.Acquire("src/a.go", "coder", time.Minute, false)
	m.Acquire("src/b.go", "planner", time.Minute, false)
	m.Acquire("docs/readme.md", "planner", time.Minute, false)

	all, err := m.ListLocks("")
	if err != nil {
		t.Fatalf("ListLocks failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 locks, got %d", len(all))
	}

	src, err := m.ListLocks("src/")
	if err != nil {
		t.Fatalf("ListLocks failed: %v", err)
	}
	if len(src) != 2 {
		t.Fatalf("Expected 2 src locks, got %d", len(src))
	}
}

func TestAcquireValidation(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Acquire("", "coder", time.Minute, false); err == nil {
		t.Error("Expected error for empty resource")
	}
	if _, err := m.Acquire("src/main.go", "", time.Minute, false); err == nil {
		t.Error("Expected error for empty holder")
	}
}

func TestIsProtected(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		path      string
		protected bool
		level     models.ProtectionLevel
	}{
		{"db/migrations/001_init.sql", true, models.ProtectionCritical},
		{"internal/schema.go", true, models.ProtectionCritical},
		{"config/app.yaml", true, models.ProtectionImportant},
		{".env", true, models.ProtectionImportant},
		{"Settings.json", true, models.ProtectionImportant},
		{"src/main.go", false, ""},
	}

	for _, tt := range tests {
		protected, level := m.IsProtected(tt.path)
		if protected != tt.protected || level != tt.level {
			t.Errorf("IsProtected(%q) = (%v, %q), want (%v, %q)",
				tt.path, protected, level, tt.protected, tt.level)
		}
	}
}
