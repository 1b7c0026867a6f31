// internal/models/dossier.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Dossier is a single applicant's registration case moving through the
// review workflow. ApplicantID is set at creation and never changes.
// LicenseNumber is assigned exactly once, when the dossier reaches the
// approved state, and carries a unique index.
type Dossier struct {
	BaseModel
	ApplicantID     uuid.UUID      `json:"applicant_id" gorm:"type:uuid;not null;index"`
	Specialty       string         `json:"specialty" gorm:"size:100;not null"`
	Qualifications  pq.StringArray `json:"qualifications" gorm:"type:text[]"`
	ApplicationData JSONB          `json:"application_data" gorm:"type:jsonb"`
	State           DossierState   `json:"state" gorm:"type:varchar(30);not null;default:'draft';index"`
	RejectionReason string         `json:"rejection_reason,omitempty" gorm:"type:text"`
	LicenseNumber   *int64         `json:"license_number,omitempty" gorm:"uniqueIndex"`
	LicenseCode     string         `json:"license_code,omitempty" gorm:"size:32;index"`

	// Review trail markers, stamped exactly once per stage.
	SubmittedAt          *time.Time `json:"submitted_at"`
	AgentReviewedBy      *uuid.UUID `json:"agent_reviewed_by" gorm:"type:uuid"`
	AgentReviewedAt      *time.Time `json:"agent_reviewed_at"`
	CommissionReviewedBy *uuid.UUID `json:"commission_reviewed_by" gorm:"type:uuid"`
	CommissionReviewedAt *time.Time `json:"commission_reviewed_at"`
	PresidentReviewedBy  *uuid.UUID `json:"president_reviewed_by" gorm:"type:uuid"`
	PresidentReviewedAt  *time.Time `json:"president_reviewed_at"`

	// Relationships
	Applicant User              `json:"applicant,omitempty" gorm:"foreignKey:ApplicantID"`
	Documents []DossierDocument `json:"documents,omitempty" gorm:"foreignKey:DossierID"`
	History   []TransitionRecord `json:"history,omitempty" gorm:"foreignKey:DossierID"`
}

// IsTerminal reports whether no further transition may leave the
// dossier's current state.
func (d *Dossier) IsTerminal() bool {
	return d.State == StateApproved || d.State == StateRejected
}

// TransitionRecord is one append-only audit entry describing a
// transition attempt. Rows are never updated or deleted; the records
// for a dossier, in creation order, are its full history.
type TransitionRecord struct {
	BaseModel
	DossierID     uuid.UUID    `json:"dossier_id" gorm:"type:uuid;not null;index"`
	Action        ActionName   `json:"action" gorm:"type:varchar(30);not null"`
	FromState     DossierState `json:"from_state" gorm:"type:varchar(30);not null"`
	ToState       DossierState `json:"to_state" gorm:"type:varchar(30)"`
	PerformedBy   uuid.UUID    `json:"performed_by" gorm:"type:uuid;not null;index"`
	PerformerRole Role         `json:"performer_role" gorm:"type:varchar(20);not null"`
	Notes         string       `json:"notes,omitempty" gorm:"type:text"`
	Succeeded     bool         `json:"succeeded" gorm:"not null;index"`
	ErrorCode     string       `json:"error_code,omitempty" gorm:"size:40"`

	// Relationships
	Performer User `json:"performer,omitempty" gorm:"foreignKey:PerformedBy"`
}

// LicenseSequence backs the license number issuer: a single row whose
// LastValue is incremented and read back inside the same transaction as
// the dossier update it belongs to.
type LicenseSequence struct {
	ID        uint      `json:"id" gorm:"primary_key"`
	Name      string    `json:"name" gorm:"size:50;uniqueIndex;not null"`
	LastValue int64     `json:"last_value" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DossierDocument struct {
	BaseModel
	DossierID  uuid.UUID `json:"dossier_id" gorm:"type:uuid;not null;index"`
	UploadedBy uuid.UUID `json:"uploaded_by" gorm:"type:uuid;not null"`
	FileName   string    `json:"file_name" gorm:"size:255;not null"`
	StorageKey string    `json:"storage_key" gorm:"size:512;not null"`
	URL        string    `json:"url" gorm:"size:1024"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type" gorm:"size:100"`

	// Relationships
	Dossier Dossier `json:"dossier,omitempty" gorm:"foreignKey:DossierID"`
}
