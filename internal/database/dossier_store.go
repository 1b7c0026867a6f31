// internal/database/dossier_store.go
package database

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medcouncil/registry-backend/internal/models"
	"github.com/medcouncil/registry-backend/internal/workflow"
)

// LicenseSequenceName is the reserved sequence row backing license
// number allocation.
const LicenseSequenceName = "license_number"

// DossierStore is the Postgres-backed workflow store. Per-dossier
// serialization comes from SELECT ... FOR UPDATE on the dossier row;
// license allocation serializes on the sequence row only, so unrelated
// dossiers do not contend.
type DossierStore struct {
	db *gorm.DB
}

func NewDossierStore(db *gorm.DB) *DossierStore {
	return &DossierStore{db: db}
}

func (s *DossierStore) GetDossier(id uuid.UUID) (*models.Dossier, error) {
	var dossier models.Dossier
	if err := s.db.First(&dossier, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrDossierNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &dossier, nil
}

func (s *DossierStore) InTransaction(fn func(tx workflow.Tx) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&dossierTx{tx: tx})
	})
}

// AppendAttempt writes a failed-attempt record in its own transaction;
// it must survive the rollback of the transition it describes.
func (s *DossierStore) AppendAttempt(rec *models.TransitionRecord) error {
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to append attempt record: %w", err)
	}
	return nil
}

type dossierTx struct {
	tx *gorm.DB
}

func (t *dossierTx) DossierForUpdate(id uuid.UUID) (*models.Dossier, error) {
	var dossier models.Dossier
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&dossier, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrDossierNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &dossier, nil
}

func (t *dossierTx) SaveDossier(d *models.Dossier) error {
	return t.tx.Save(d).Error
}

func (t *dossierTx) AppendRecord(rec *models.TransitionRecord) error {
	return t.tx.Create(rec).Error
}

// NextLicenseNumber locks the sequence row, increments it, and returns
// the new value. The increment is part of the enclosing transaction:
// a rollback releases the value before anyone observed it.
func (t *dossierTx) NextLicenseNumber() (int64, error) {
	var seq models.LicenseSequence
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&seq, "name = ?", LicenseSequenceName).Error
	if err != nil {
		return 0, fmt.Errorf("license sequence not found: %w", err)
	}

	seq.LastValue++
	if err := t.tx.Save(&seq).Error; err != nil {
		return 0, fmt.Errorf("failed to advance license sequence: %w", err)
	}

	return seq.LastValue, nil
}

// RoleDirectory resolves a caller's role from the users table on every
// call. The JWT role claim is used only for route gating; the engine
// trusts this lookup alone.
type RoleDirectory struct {
	db *gorm.DB
}

func NewRoleDirectory(db *gorm.DB) *RoleDirectory {
	return &RoleDirectory{db: db}
}

func (r *RoleDirectory) RoleOf(actorID uuid.UUID) (models.Role, error) {
	var user models.User
	if err := r.db.Select("role", "status").First(&user, "id = ?", actorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.New("caller not found")
		}
		return "", fmt.Errorf("database error: %w", err)
	}

	if user.Status != models.UserStatusActive {
		return "", fmt.Errorf("caller account is %s", user.Status)
	}

	return user.Role, nil
}
