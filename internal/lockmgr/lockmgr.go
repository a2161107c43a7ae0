// Package lockmgr implements distributed mutual exclusion over named
// resources, backed by the shared expiring store.
//
// Acquisition is optimistic: a conflicting acquire reports the current
// holder immediately instead of blocking. Retry and backoff are the
// caller's responsibility. Expiration is time-based, so a crashed holder's
// lock self-heals once its TTL lapses.
package lockmgr

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/arbiter-dev/arbiter/internal/models"
	"github.com/arbiter-dev/arbiter/internal/store"
)

const keyPrefix = "lock:"

// DefaultTTL is used when a caller acquires without an explicit TTL.
const DefaultTTL = 5 * time.Minute

// ConflictError reports a failed acquisition, identifying the current
// holder so the caller can decide to retry, back off, or force.
type ConflictError struct {
	Resource  string
	Holder    string
	ExpiresAt time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("resource %q locked by %q until %s", e.Resource, e.Holder, e.ExpiresAt.Format(time.RFC3339))
}

// ProtectionRule classifies resource paths by substring match.
type ProtectionRule struct {
	Substrings []string              `yaml:"substrings"`
	Level      models.ProtectionLevel `yaml:"level"`
}

// DefaultProtectionRules covers the built-in protected path classes:
// migration and schema paths are critical, configuration paths important.
func DefaultProtectionRules() []ProtectionRule {
	return []ProtectionRule{
		{Substrings: []string{"migrations/", "migration/", "schema"}, Level: models.ProtectionCritical},
		{Substrings: []string{"config", ".env", "settings"}, Level: models.ProtectionImportant},
	}
}

// Manager coordinates locks through the shared store.
type Manager struct {
	store      *store.Store
	defaultTTL time.Duration
	rules      []ProtectionRule
}

// New creates a lock manager with the built-in protection rules.
func New(s *store.Store, defaultTTL time.Duration) *Manager {
	return NewWithRules(s, defaultTTL, DefaultProtectionRules())
}

// NewWithRules creates a lock manager with custom protection rules.
func NewWithRules(s *store.Store, defaultTTL time.Duration, rules []ProtectionRule) *Manager {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Manager{store: s, defaultTTL: defaultTTL, rules: rules}
}

// Acquire takes or refreshes the lock on resource for holder. Acquiring a
// resource the same holder already owns refreshes the lease. A live lock
// held by someone else yields a *ConflictError unless force is set, in
// which case the lock is overwritten unconditionally.
func (m *Manager) Acquire(resource, holder string, ttl time.Duration, force bool) (*models.Lock, error) {
	if resource == "" || holder == "" {
		return nil, fmt.Errorf("resource and holder are required")
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	now := time.Now().UTC()
	lock := &models.Lock{
		Resource:   resource,
		Holder:     holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	value, err := json.Marshal(lock)
	if err != nil {
		return nil, fmt.Errorf("marshal lock: %w", err)
	}

	if force {
		if err := m.store.Put(keyPrefix+resource, value, lock.ExpiresAt); err != nil {
			return nil, err
		}
		return lock, nil
	}

	existing, ok, err := m.store.PutIf(keyPrefix+resource, value, lock.ExpiresAt, func(raw []byte) bool {
		return sameHolder(raw, holder)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		cur, derr := decodeLock(existing)
		if derr != nil {
			return nil, derr
		}
		return nil, &ConflictError{Resource: resource, Holder: cur.Holder, ExpiresAt: cur.ExpiresAt}
	}
	return lock, nil
}

// Release deletes the lock only when holder owns it. A non-holder can
// never release another's lock; that case returns false with state
// untouched.
func (m *Manager) Release(resource, holder string) (bool, error) {
	return m.store.DeleteIf(keyPrefix+resource, func(raw []byte) bool {
		return sameHolder(raw, holder)
	})
}

// IsLocked reports whether a live lock exists on resource and who holds
// it. Expired locks read as unlocked.
func (m *Manager) IsLocked(resource string) (bool, string, error) {
	entry, err := m.store.Get(keyPrefix + resource)
	if err != nil {
		return false, "", err
	}
	if entry == nil {
		return false, "", nil
	}
	lock, err := decodeLock(entry.Value)
	if err != nil {
		return false, "", err
	}
	return true, lock.Holder, nil
}

// Extend pushes back the expiry of a lock the holder already owns. Returns
// nil without error when the caller is not the current holder.
func (m *Manager) Extend(resource, holder string, additional time.Duration) (*models.Lock, error) {
	entry, err := m.store.Get(keyPrefix + resource)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	cur, err := decodeLock(entry.Value)
	if err != nil {
		return nil, err
	}
	if cur.Holder != holder {
		return nil, nil
	}

	cur.ExpiresAt = cur.ExpiresAt.Add(additional)
	value, err := json.Marshal(cur)
	if err != nil {
		return nil, fmt.Errorf("marshal lock: %w", err)
	}

	// Conditional on the holder still owning the lock at write time.
	_, ok, err := m.store.PutIf(keyPrefix+resource, value, cur.ExpiresAt, func(raw []byte) bool {
		return sameHolder(raw, holder)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return cur, nil
}

// ListLocks returns all live locks, optionally filtered by resource
// prefix.
func (m *Manager) ListLocks(prefix string) ([]models.Lock, error) {
	entries, err := m.store.List(keyPrefix + prefix)
	if err != nil {
		return nil, err
	}

	locks := make([]models.Lock, 0, len(entries))
	for _, e := range entries {
		lock, err := decodeLock(e.Value)
		if err != nil {
			return nil, err
		}
		locks = append(locks, *lock)
	}
	return locks, nil
}

// IsProtected classifies a path against the protection rules. The
// classification is advisory; enforcement happens in the conflict
// resolver's write-permission policy, not here.
func (m *Manager) IsProtected(path string) (bool, models.ProtectionLevel) {
	lower := strings.ToLower(path)
	for _, rule := range m.rules {
		for _, sub := range rule.Substrings {
			if strings.Contains(lower, sub) {
				return true, rule.Level
			}
		}
	}
	return false, ""
}

func sameHolder(raw []byte, holder string) bool {
	lock, err := decodeLock(raw)
	if err != nil {
		return false
	}
	return lock.Holder == holder
}

func decodeLock(raw []byte) (*models.Lock, error) {
	var lock models.Lock
	if err := json.Unmarshal(raw, &lock); err != nil {
		return nil, fmt.Errorf("decode lock: %w", err)
	}
	return &lock, nil
}
