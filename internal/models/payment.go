// internal/models/payment.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment records a registration-fee payment for a dossier. The
// workflow consumes it only as a "payment completed" fact; how the
// money moved (card, mobile money) is the gateway's business.
type Payment struct {
	BaseModel
	DossierID uuid.UUID       `json:"dossier_id" gorm:"type:uuid;not null;index"`
	PayerID   uuid.UUID       `json:"payer_id" gorm:"type:uuid;not null;index"`
	Amount    float64         `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency  string          `json:"currency" gorm:"size:10;not null"`
	Provider  PaymentProvider `json:"provider" gorm:"type:varchar(20);not null"`
	Reference string          `json:"reference" gorm:"size:255;index"`
	Status    PaymentStatus   `json:"status" gorm:"type:varchar(20);default:'pending';index"`

	CompletedAt *time.Time `json:"completed_at"`
	Metadata    JSONB      `json:"metadata" gorm:"type:jsonb"`

	// Relationships
	Dossier Dossier `json:"dossier,omitempty" gorm:"foreignKey:DossierID"`
	Payer   User    `json:"payer,omitempty" gorm:"foreignKey:PayerID"`
}

type Notification struct {
	BaseModel
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Type      string     `json:"type" gorm:"type:varchar(50);not null;index"`
	Title     string     `json:"title" gorm:"size:255;not null"`
	Message   string     `json:"message" gorm:"type:text;not null"`
	DossierID *uuid.UUID `json:"dossier_id" gorm:"type:uuid;index"`
	ReadAt    *time.Time `json:"read_at"`
}
