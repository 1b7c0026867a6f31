// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type Role string

const (
	RoleApplicant  Role = "applicant"
	RoleAgent      Role = "agent"
	RoleCommission Role = "commission"
	RolePresident  Role = "president"
	RoleAdmin      Role = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

// DossierState is the position of a registration dossier in the review
// workflow. approved and rejected are terminal.
type DossierState string

const (
	StateDraft            DossierState = "draft"
	StateSubmitted        DossierState = "submitted"
	StateAgentReview      DossierState = "agent_review"
	StateCommissionReview DossierState = "commission_review"
	StatePresidentReview  DossierState = "president_review"
	StateApproved         DossierState = "approved"
	StateRejected         DossierState = "rejected"
)

// ActionName identifies a workflow transition request.
type ActionName string

const (
	ActionSubmit             ActionName = "submit"
	ActionAgentStart         ActionName = "agent_start"
	ActionAgentApprove       ActionName = "agent_approve"
	ActionAgentReject        ActionName = "agent_reject"
	ActionCommissionApprove  ActionName = "commission_approve"
	ActionCommissionReject   ActionName = "commission_reject"
	ActionCommissionEscalate ActionName = "commission_escalate"
	ActionPresidentApprove   ActionName = "president_approve"
	ActionPresidentReject    ActionName = "president_reject"
)

type PaymentProvider string

const (
	PaymentProviderStripe      PaymentProvider = "stripe"
	PaymentProviderMobileMoney PaymentProvider = "mobile_money"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)
