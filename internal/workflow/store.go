// internal/workflow/store.go
package workflow

import (
	"github.com/google/uuid"

	"github.com/medcouncil/registry-backend/internal/models"
)

// Store is the persistence boundary of the engine. Everything a
// transition touches — the dossier row, the audit record, the license
// sequence — must be composable inside one transaction.
type Store interface {
	// GetDossier reads a dossier without locking it. Used for the
	// pre-transaction existence check and for failed-attempt logging.
	GetDossier(id uuid.UUID) (*models.Dossier, error)

	// InTransaction runs fn inside a transaction. If fn returns an
	// error the transaction is rolled back and the error returned
	// unchanged; commit errors are returned as-is for the engine to
	// classify.
	InTransaction(fn func(tx Tx) error) error

	// AppendAttempt records a rejected transition attempt. It runs in
	// its own transaction: the attempt is forensic data, independent of
	// the state change that never happened.
	AppendAttempt(rec *models.TransitionRecord) error
}

// Tx is the transaction-scoped view of the store.
type Tx interface {
	// DossierForUpdate reads the dossier and takes the row lock that
	// serializes concurrent attempts on the same dossier.
	DossierForUpdate(id uuid.UUID) (*models.Dossier, error)

	// SaveDossier persists the mutated dossier.
	SaveDossier(d *models.Dossier) error

	// AppendRecord appends the audit record for a successful
	// transition. A failure here fails the whole transaction.
	AppendRecord(rec *models.TransitionRecord) error

	// NextLicenseNumber increments the license sequence and returns the
	// new value. The increment commits or rolls back with the rest of
	// the transaction; no two transactions may claim the same value.
	NextLicenseNumber() (int64, error)
}

// RoleSource supplies the authoritative role of a caller. The engine
// looks it up on every call and never trusts a client-supplied role.
type RoleSource interface {
	RoleOf(actorID uuid.UUID) (models.Role, error)
}

// ApprovalGate is an optional precondition on transitions into the
// approved state. A nil gate means approval is never payment-gated.
type ApprovalGate interface {
	Cleared(d *models.Dossier) error
}
