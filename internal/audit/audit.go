// Package audit provides decision-record writing for Arbiter.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/arbiter-dev/arbiter/internal/models"
	"github.com/arbiter-dev/arbiter/internal/store"
)

// Writer appends decision records for state-mutating coordination actions.
type Writer struct {
	store *store.Store
}

// NewWriter creates a new decision-record writer.
func NewWriter(s *store.Store) *Writer {
	return &Writer{store: s}
}

// Record writes a decision record. Inputs are hashed rather than stored so
// the log stays small and free of payload contents.
func (w *Writer) Record(kind, actor, resource string, inputs interface{}, outcome string) (*models.DecisionRecord, error) {
	return w.store.RecordDecision(kind, actor, resource, outcome, hashInputs(inputs))
}

// Recent returns the newest decision records.
func (w *Writer) Recent(limit int) ([]models.DecisionRecord, error) {
	return w.store.ListDecisions(limit)
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
