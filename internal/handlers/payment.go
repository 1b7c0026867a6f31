// internal/handlers/payment.go
package handlers

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medcouncil/registry-backend/internal/config"
	"github.com/medcouncil/registry-backend/internal/i18n"
	"github.com/medcouncil/registry-backend/internal/services"
	"github.com/medcouncil/registry-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	config         *config.Config
}

func NewPaymentHandler(paymentService *services.PaymentService, config *config.Config) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		config:         config,
	}
}

// POST /payments/intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	payerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	intent, err := h.paymentService.CreatePaymentIntent(payerID, &req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentCreated),
		"payment": intent,
	})
}

// POST /payments/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req struct {
		PaymentIntentID string `json:"payment_intent_id" validate:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	payment, err := h.paymentService.ConfirmStripePayment(req.PaymentIntentID)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentCompleted),
		"payment": payment,
	})
}

// POST /payments/mobile-money
func (h *PaymentHandler) InitiateMobileMoney(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	payerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.MobileMoneyInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	payment, err := h.paymentService.InitiateMobileMoney(payerID, &req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentCreated),
		"payment": payment,
	})
}

// POST /payments/mobile-money/callback
//
// Called by the mobile-money provider, not by users. The raw body is
// verified against the shared secret before anything is parsed out of
// it.
func (h *PaymentHandler) MobileMoneyCallback(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read callback body", nil)
		return
	}

	signature := c.GetHeader("X-Callback-Signature")
	if !utils.VerifyCallbackSignature(payload, signature, h.config.Payment.MobileMoneySecret) {
		utils.UnauthorizedResponse(c, "Invalid callback signature")
		return
	}

	var req services.MobileMoneyCallbackRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		utils.BadRequestResponse(c, "Invalid callback payload", err.Error())
		return
	}

	payment, err := h.paymentService.HandleMobileMoneyCallback(&req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"payment": payment})
}

// GET /dossiers/:id/payments
func (h *PaymentHandler) GetDossierPayments(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		return
	}

	dossierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid dossier ID", nil)
		return
	}

	payments, err := h.paymentService.GetDossierPayments(dossierID, callerID)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"payments": payments})
}
