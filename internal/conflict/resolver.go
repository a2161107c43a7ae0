// Package conflict implements the arbitration and write-permission policy
// between the coordinated subsystems.
//
// Resolution is pure decision logic over a static priority table: each
// conflict category has exactly one designated winner, and a small set of
// privileged roles may veto specific categories.
package conflict

import (
	"errors"
	"time"

	"github.com/arbiter-dev/arbiter/internal/models"
)

// ErrPermissionDenied reports that a requester is not the authorized
// writer or lacks veto rights. It is surfaced to the caller and never
// auto-retried.
var ErrPermissionDenied = errors.New("permission denied")

// PathClassifier reports whether a path is protected and at what level.
// The lock manager's IsProtected satisfies this.
type PathClassifier func(path string) (bool, models.ProtectionLevel)

// winners maps each conflict category to its designated winner.
var winners = map[models.ConflictType]models.Identity{
	models.ConflictFileCreation:     models.IdentityCoder,
	models.ConflictFileModification: models.IdentityCoder,
	models.ConflictDocumentation:    models.IdentityPlanner,
	models.ConflictKnowledgeUpdate:  models.IdentityKnowledge,
	models.ConflictTaskStatusChange: models.IdentityKnowledge,
	models.ConflictCodeValidation:   models.IdentityValidator,
}

// vetoers maps each privileged role to the categories it may veto.
var vetoers = map[models.Identity][]models.ConflictType{
	models.IdentityValidator: {models.ConflictCodeValidation},
	models.IdentitySecurity:  {models.ConflictFileCreation, models.ConflictFileModification},
}

// writeOperations are the mutating operations gated on the single writer.
var writeOperations = map[string]bool{
	"write":  true,
	"create": true,
	"modify": true,
}

// readOperations are open to every identity.
var readOperations = map[string]bool{
	"read":  true,
	"query": true,
}

// Resolver arbitrates conflicts between subsystem identities. It holds no
// runtime state beyond the injected path classifier.
type Resolver struct {
	classify PathClassifier
}

// New creates a resolver. classify may be nil, in which case no path is
// considered protected.
func New(classify PathClassifier) *Resolver {
	if classify == nil {
		classify = func(string) (bool, models.ProtectionLevel) { return false, "" }
	}
	return &Resolver{classify: classify}
}

// Resolve arbitrates a conflict category between contenders. The designated
// winner for the category wins; every other contender loses. For
// task-status-change only the knowledge subsystem can ever win, regardless
// of who contends.
func (r *Resolver) Resolve(conflictType models.ConflictType, contenders []models.Identity) models.ConflictResolution {
	winner := winners[conflictType]

	res := models.ConflictResolution{
		ConflictType: conflictType,
		Contenders:   append([]models.Identity(nil), contenders...),
		Winner:       winner,
		Timestamp:    time.Now().UTC(),
	}

	for _, c := range contenders {
		if c != winner {
			res.Losers = append(res.Losers, c)
		}
		if r.CanVeto(c, conflictType) {
			res.VetoPossible = true
			res.VetoBy = append(res.VetoBy, c)
		}
	}
	return res
}

// CheckSingleWriter reports whether identity may perform operation. Exactly
// one identity, the coder subsystem, is authorized for mutating
// operations; read-only operations are open to everyone.
func (r *Resolver) CheckSingleWriter(identity models.Identity, operation string) bool {
	if readOperations[operation] {
		return true
	}
	if writeOperations[operation] {
		return identity == models.IdentityCoder
	}
	return false
}

// CanVeto reports whether identity holds veto rights over conflictType.
func (r *Resolver) CanVeto(identity models.Identity, conflictType models.ConflictType) bool {
	for _, ct := range vetoers[identity] {
		if ct == conflictType {
			return true
		}
	}
	return false
}

// WritePermission derives the write permission for identity on path.
// Protected paths additionally require validation: critical paths by both
// the security and validator roles, important paths by security alone.
func (r *Resolver) WritePermission(identity models.Identity, path string) models.WritePermission {
	perm := models.WritePermission{
		Allowed: r.CheckSingleWriter(identity, "write"),
	}
	if !perm.Allowed {
		return perm
	}

	protected, level := r.classify(path)
	if !protected {
		return perm
	}

	perm.RequiresValidation = true
	switch level {
	case models.ProtectionCritical:
		perm.Validators = []models.Identity{models.IdentitySecurity, models.IdentityValidator}
	case models.ProtectionImportant:
		perm.Validators = []models.Identity{models.IdentitySecurity}
	}
	return perm
}
