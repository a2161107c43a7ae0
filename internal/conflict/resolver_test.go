package conflict

import (
	"testing"

	"github.com/arbiter-dev/arbiter/internal/models"
)

func TestResolveWinners(t *testing.T) {
	r := New(nil)

	tests := []struct {
		conflictType models.ConflictType
		winner       models.Identity
	}{
		{models.ConflictFileCreation, models.IdentityCoder},
		{models.ConflictFileModification, models.IdentityCoder},
		{models.ConflictDocumentation, models.IdentityPlanner},
		{models.ConflictKnowledgeUpdate, models.IdentityKnowledge},
		{models.ConflictTaskStatusChange, models.IdentityKnowledge},
		{models.ConflictCodeValidation, models.IdentityValidator},
	}

	contenders := []models.Identity{
		models.IdentityPlanner, models.IdentityKnowledge, models.IdentityCoder,
	}

	for _, tt := range tests {
		res := r.Resolve(tt.conflictType, contenders)
		if res.Winner != tt.winner {
			t.Errorf("Resolve(%s): winner = %s, want %s", tt.conflictType, res.Winner, tt.winner)
		}
		for _, loser := range res.Losers {
			if loser == tt.winner {
				t.Errorf("Resolve(%s): winner %s also listed as loser", tt.conflictType, tt.winner)
			}
		}
	}
}

func TestResolveLosers(t *testing.T) {
	r := New(nil)

	res := r.Resolve(models.ConflictFileModification,
		[]models.Identity{models.IdentityPlanner, models.IdentityCoder})

	if len(res.Losers) != 1 || res.Losers[0] != models.IdentityPlanner {
		t.Errorf("Expected planner as sole loser, got %v", res.Losers)
	}
}

func TestResolveVetoReporting(t *testing.T) {
	r := New(nil)

	// Security contends on a file-modification conflict: veto flagged
	res := r.Resolve(models.ConflictFileModification,
		[]models.Identity{models.IdentityCoder, models.IdentitySecurity})
	if !res.VetoPossible {
		t.Error("Expected veto to be possible with security contending")
	}
	if len(res.VetoBy) != 1 || res.VetoBy[0] != models.IdentitySecurity {
		t.Errorf("Expected VetoBy [security], got %v", res.VetoBy)
	}

	// No privileged contender: no veto
	res = r.Resolve(models.ConflictFileModification,
		[]models.Identity{models.IdentityCoder, models.IdentityPlanner})
	if res.VetoPossible {
		t.Error("Expected no veto without a privileged contender")
	}
}

func TestResolveTaskStatusOnlyKnowledgeWins(t *testing.T) {
	r := New(nil)

	res := r.Resolve(models.ConflictTaskStatusChange,
		[]models.Identity{models.IdentityCoder, models.IdentityPlanner})

	if res.Winner != models.IdentityKnowledge {
		t.Errorf("Task status changes must resolve to knowledge, got %s", res.Winner)
	}
	if len(res.Losers) != 2 {
		t.Errorf("Expected both contenders to lose, got %v", res.Losers)
	}
}

func TestCheckSingleWriter(t *testing.T) {
	r := New(nil)

	tests := []struct {
		identity  models.Identity
		operation string
		allowed   bool
	}{
		{models.IdentityCoder, "write", true},
		{models.IdentityCoder, "create", true},
		{models.IdentityCoder, "modify", true},
		{models.IdentityPlanner, "write", false},
		{models.IdentityKnowledge, "modify", false},
		{models.IdentityValidator, "create", false},
		{models.IdentityPlanner, "read", true},
		{models.IdentityKnowledge, "query", true},
		{models.IdentityCoder, "read", true},
		{models.IdentityCoder, "unknown-op", false},
	}

	for _, tt := range tests {
		if got := r.CheckSingleWriter(tt.identity, tt.operation); got != tt.allowed {
			t.Errorf("CheckSingleWriter(%s, %s) = %v, want %v",
				tt.identity, tt.operation, got, tt.allowed)
		}
	}
}

func TestCanVeto(t *testing.T) {
	r := New(nil)

	tests := []struct {
		identity     models.Identity
		conflictType models.ConflictType
		canVeto      bool
	}{
		{models.IdentityValidator, models.ConflictCodeValidation, true},
		{models.IdentityValidator, models.ConflictFileCreation, false},
		{models.IdentitySecurity, models.ConflictFileCreation, true},
		{models.IdentitySecurity, models.ConflictFileModification, true},
		{models.IdentitySecurity, models.ConflictDocumentation, false},
		{models.IdentityCoder, models.ConflictFileCreation, false},
	}

	for _, tt := range tests {
		if got := r.CanVeto(tt.identity, tt.conflictType); got != tt.canVeto {
			t.Errorf("CanVeto(%s, %s) = %v, want %v",
				tt.identity, tt.conflictType, got, tt.canVeto)
		}
	}
}

func TestWritePermission(t *testing.T) {
	classify := func(path string) (bool, models.ProtectionLevel) {
		switch path {
		case "db/migrations/001.sql":
			return true, models.ProtectionCritical
		case "config/app.yaml":
			return true, models.ProtectionImportant
		}
		return false, ""
	}
	r := New(classify)

	// Non-coder denied outright
	perm := r.WritePermission(models.IdentityPlanner, "src/main.go")
	if perm.Allowed {
		t.Error("Planner must not get write permission")
	}

	// Coder on an unprotected path: allowed, no validation
	perm = r.WritePermission(models.IdentityCoder, "src/main.go")
	if !perm.Allowed || perm.RequiresValidation {
		t.Errorf("Expected unconditional write, got %+v", perm)
	}

	// Critical path: security and validator must sign off
	perm = r.WritePermission(models.IdentityCoder, "db/migrations/001.sql")
	if !perm.Allowed || !perm.RequiresValidation {
		t.Fatalf("Expected validated write, got %+v", perm)
	}
	if len(perm.Validators) != 2 ||
		perm.Validators[0] != models.IdentitySecurity ||
		perm.Validators[1] != models.IdentityValidator {
		t.Errorf("Expected validators [security validator], got %v", perm.Validators)
	}

	// Important path: security alone
	perm = r.WritePermission(models.IdentityCoder, "config/app.yaml")
	if !perm.RequiresValidation || len(perm.Validators) != 1 || perm.Validators[0] != models.IdentitySecurity {
		t.Errorf("Expected validators [security], got %+v", perm)
	}
}

func TestWritePermissionNilClassifier(t *testing.T) {
	r := New(nil)

	perm := r.WritePermission(models.IdentityCoder, "db/migrations/001.sql")
	if !perm.Allowed || perm.RequiresValidation {
		t.Errorf("Nil classifier should protect nothing, got %+v", perm)
	}
}
