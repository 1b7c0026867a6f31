// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/medcouncil/registry-backend/internal/config"
	"github.com/medcouncil/registry-backend/internal/models"
	"github.com/medcouncil/registry-backend/internal/utils"
	"github.com/medcouncil/registry-backend/internal/workflow"
)

// PaymentService records registration-fee payments. The workflow only
// ever asks one question of it: does this dossier have a completed
// payment. Card payments go through Stripe; mobile-money payments are
// initiated here and completed by the provider's callback.
type PaymentService struct {
	db     *gorm.DB
	config *config.Config
}

type CreatePaymentIntentRequest struct {
	DossierID uuid.UUID `json:"dossier_id" validate:"required"`
}

type PaymentIntentResponse struct {
	ClientSecret string  `json:"client_secret"`
	PaymentID    string  `json:"payment_id"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
}

type MobileMoneyInitRequest struct {
	DossierID   uuid.UUID `json:"dossier_id" validate:"required"`
	PhoneNumber string    `json:"phone_number" validate:"required,min=8"`
}

type MobileMoneyCallbackRequest struct {
	Reference string `json:"reference" validate:"required"`
	Status    string `json:"status" validate:"required"`
}

func NewPaymentService(db *gorm.DB, config *config.Config) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		db:     db,
		config: config,
	}
}

// payableDossier loads the dossier a fee payment is for and checks the
// payer may still pay on it: it must be the payer's own case, not
// rejected, and not already paid.
func (s *PaymentService) payableDossier(dossierID, payerID uuid.UUID) (*models.Dossier, error) {
	var dossier models.Dossier
	if err := s.db.First(&dossier, "id = ?", dossierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("dossier not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if dossier.ApplicantID != payerID {
		return nil, errors.New("only the dossier owner can pay the registration fee")
	}
	if dossier.State == models.StateRejected {
		return nil, errors.New("cannot pay on a rejected dossier")
	}

	var completed int64
	if err := s.db.Model(&models.Payment{}).
		Where("dossier_id = ? AND status = ?", dossierID, models.PaymentStatusCompleted).
		Count(&completed).Error; err != nil {
		return nil, fmt.Errorf("failed to check payments: %w", err)
	}
	if completed > 0 {
		return nil, errors.New("registration fee already paid")
	}

	return &dossier, nil
}

// CreatePaymentIntent opens a Stripe payment for the registration fee
// of the caller's dossier.
func (s *PaymentService) CreatePaymentIntent(payerID uuid.UUID, req *CreatePaymentIntentRequest) (*PaymentIntentResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	dossier, err := s.payableDossier(req.DossierID, payerID)
	if err != nil {
		return nil, err
	}

	amount := s.config.Payment.RegistrationFee
	currency := s.config.Payment.Currency
	amountInCents := int64(amount * 100)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("dossier_id", dossier.ID.String())
	params.AddMetadata("payer_id", payerID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	payment := &models.Payment{
		DossierID: dossier.ID,
		PayerID:   payerID,
		Amount:    amount,
		Currency:  currency,
		Provider:  models.PaymentProviderStripe,
		Reference: pi.ID,
		Status:    models.PaymentStatusPending,
	}
	if err := s.db.Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Amount:       amount,
		Currency:     currency,
		Status:       string(pi.Status),
	}, nil
}

// ConfirmStripePayment re-reads the intent from Stripe and marks the
// local payment completed when Stripe says so. The gateway's status is
// authoritative; the caller's word is not.
func (s *PaymentService) ConfirmStripePayment(paymentIntentID string) (*models.Payment, error) {
	pi, err := paymentintent.Get(paymentIntentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	var payment models.Payment
	if err := s.db.Where("reference = ? AND provider = ?",
		paymentIntentID, models.PaymentProviderStripe).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("payment not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		if payment.Status != models.PaymentStatusCompleted {
			now := time.Now()
			payment.Status = models.PaymentStatusCompleted
			payment.CompletedAt = &now
			if err := s.db.Save(&payment).Error; err != nil {
				return nil, fmt.Errorf("failed to update payment: %w", err)
			}
		}
	case stripe.PaymentIntentStatusCanceled:
		payment.Status = models.PaymentStatusFailed
		if err := s.db.Save(&payment).Error; err != nil {
			return nil, fmt.Errorf("failed to update payment: %w", err)
		}
	}

	return &payment, nil
}

// InitiateMobileMoney records a pending mobile-money payment and hands
// back the reference the provider will echo in its callback.
func (s *PaymentService) InitiateMobileMoney(payerID uuid.UUID, req *MobileMoneyInitRequest) (*models.Payment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	dossier, err := s.payableDossier(req.DossierID, payerID)
	if err != nil {
		return nil, err
	}

	reference, err := utils.GeneratePaymentReference()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payment reference: %w", err)
	}

	payment := &models.Payment{
		DossierID: dossier.ID,
		PayerID:   payerID,
		Amount:    s.config.Payment.RegistrationFee,
		Currency:  s.config.Payment.Currency,
		Provider:  models.PaymentProviderMobileMoney,
		Reference: reference,
		Status:    models.PaymentStatusPending,
		Metadata:  models.JSONB{"phone_number": req.PhoneNumber},
	}

	if err := s.db.Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	return payment, nil
}

// HandleMobileMoneyCallback applies the provider's completion fact.
// Signature verification happens in the handler before this is called.
func (s *PaymentService) HandleMobileMoneyCallback(req *MobileMoneyCallbackRequest) (*models.Payment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var payment models.Payment
	if err := s.db.Where("reference = ? AND provider = ?",
		req.Reference, models.PaymentProviderMobileMoney).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("payment not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	switch req.Status {
	case "completed":
		if payment.Status != models.PaymentStatusCompleted {
			now := time.Now()
			payment.Status = models.PaymentStatusCompleted
			payment.CompletedAt = &now
		}
	case "failed":
		payment.Status = models.PaymentStatusFailed
	default:
		return nil, fmt.Errorf("unrecognized callback status %q", req.Status)
	}

	if err := s.db.Save(&payment).Error; err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	return &payment, nil
}

func (s *PaymentService) GetDossierPayments(dossierID uuid.UUID, callerID uuid.UUID) ([]models.Payment, error) {
	var dossier models.Dossier
	if err := s.db.First(&dossier, "id = ?", dossierID).Error; err != nil {
		return nil, errors.New("dossier not found")
	}

	if dossier.ApplicantID != callerID {
		var caller models.User
		if err := s.db.First(&caller, "id = ?", callerID).Error; err != nil {
			return nil, errors.New("unauthorized to view payments")
		}
		if caller.Role == models.RoleApplicant {
			return nil, errors.New("unauthorized to view payments")
		}
	}

	var payments []models.Payment
	if err := s.db.Where("dossier_id = ?", dossierID).
		Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}

	return payments, nil
}

// Cleared implements workflow.ApprovalGate: a dossier may only enter
// the approved state once a completed payment exists for it. Wired into
// the engine only when payment gating is enabled in config.
func (s *PaymentService) Cleared(d *models.Dossier) error {
	var count int64
	if err := s.db.Model(&models.Payment{}).
		Where("dossier_id = ? AND status = ?", d.ID, models.PaymentStatusCompleted).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check payments: %w", err)
	}

	if count == 0 {
		return workflow.ErrPaymentRequired
	}

	return nil
}
