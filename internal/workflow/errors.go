// internal/workflow/errors.go
package workflow

import (
	"errors"
	"fmt"

	"github.com/medcouncil/registry-backend/internal/models"
)

// Error taxonomy returned by Engine.Execute. Callers branch with
// errors.Is / errors.As; nothing here is retried inside the engine.
var (
	// ErrDossierNotFound: the dossier id references nothing.
	ErrDossierNotFound = errors.New("dossier not found")

	// ErrUnknownAction: the action name is not in the transition table.
	ErrUnknownAction = errors.New("unknown workflow action")

	// ErrReasonRequired: a reject action arrived without a reason.
	// Checked before any store access.
	ErrReasonRequired = errors.New("rejection reason is required")

	// ErrPaymentRequired: the configured approval gate refused the
	// transition because no completed payment exists for the dossier.
	ErrPaymentRequired = errors.New("registration fee payment required")
)

// UnauthorizedError: the caller's role does not match the role bound to
// the action. No state was touched.
type UnauthorizedError struct {
	Action   models.ActionName
	Required models.Role
	Actual   models.Role
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("role %q may not perform %q (requires %q)", e.Actual, e.Action, e.Required)
}

// IllegalTransitionError: the dossier was not in one of the action's
// allowed source states. Carries the actual state so the caller can
// reconcile.
type IllegalTransitionError struct {
	Action       models.ActionName
	CurrentState models.DossierState
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("action %q is not legal from state %q", e.Action, e.CurrentState)
}

// PersistenceError: the transactional unit (state + audit + license
// allocation) failed to commit. Nothing is visible; the whole Execute
// call is safe to retry.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("workflow persistence failure: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ErrorCode maps an Execute error to the short code stored on
// failed-attempt audit records and rendered by the API layer.
func ErrorCode(err error) string {
	var unauthorized *UnauthorizedError
	var illegal *IllegalTransitionError
	var persistence *PersistenceError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDossierNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnknownAction), errors.Is(err, ErrReasonRequired), errors.Is(err, ErrPaymentRequired):
		return "VALIDATION_ERROR"
	case errors.As(err, &unauthorized):
		return "UNAUTHORIZED"
	case errors.As(err, &illegal):
		return "ILLEGAL_TRANSITION"
	case errors.As(err, &persistence):
		return "PERSISTENCE_FAILURE"
	default:
		return "INTERNAL_ERROR"
	}
}
