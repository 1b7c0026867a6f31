// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAccessDenied           = "auth.access_denied"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Dossiers
	KeyDossierCreated      = "dossier.created"
	KeyDossierNotFound     = "dossier.not_found"
	KeyDossierSubmitted    = "dossier.submitted"
	KeyDossierApproved     = "dossier.approved"
	KeyDossierRejected     = "dossier.rejected"
	KeyDossierEscalated    = "dossier.escalated"
	KeyDossierInReview     = "dossier.in_review"
	KeyDossierStateChanged = "dossier.state_changed"

	// Workflow errors
	KeyWorkflowUnauthorized      = "workflow.unauthorized"
	KeyWorkflowIllegalTransition = "workflow.illegal_transition"
	KeyWorkflowReasonRequired    = "workflow.reason_required"
	KeyWorkflowPaymentRequired   = "workflow.payment_required"
	KeyWorkflowUnknownAction     = "workflow.unknown_action"

	// Registry
	KeyLicenseNotFound = "license.not_found"
	KeyLicenseValid    = "license.valid"

	// Payments
	KeyPaymentCreated   = "payment.created"
	KeyPaymentCompleted = "payment.completed"
	KeyPaymentNotFound  = "payment.not_found"

	// Documents
	KeyDocumentUploaded = "document.uploaded"
	KeyDocumentTooLarge = "document.too_large"
)
