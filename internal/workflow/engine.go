// internal/workflow/engine.go
package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/medcouncil/registry-backend/internal/models"
)

// Engine moves dossiers through the review workflow. Every state
// change, its audit record, and (for approvals) the license number
// allocation commit as one atomic unit through the Store.
type Engine struct {
	store         Store
	roles         RoleSource
	gate          ApprovalGate
	licensePrefix string
	logger        *logrus.Entry
}

type Option func(*Engine)

// WithApprovalGate installs a precondition on transitions into the
// approved state (payment gating).
func WithApprovalGate(gate ApprovalGate) Option {
	return func(e *Engine) { e.gate = gate }
}

func WithLicensePrefix(prefix string) Option {
	return func(e *Engine) { e.licensePrefix = prefix }
}

func WithLogger(logger *logrus.Entry) Option {
	return func(e *Engine) { e.logger = logger }
}

func NewEngine(store Store, roles RoleSource, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		roles:         roles,
		licensePrefix: "MED",
		logger:        logrus.WithField("component", "workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is what a committed transition exposes: the new state and, for
// approvals, the newly assigned license number. Never partial state.
type Result struct {
	Dossier       *models.Dossier          `json:"dossier"`
	State         models.DossierState      `json:"state"`
	LicenseNumber *int64                   `json:"license_number,omitempty"`
	LicenseCode   string                   `json:"license_code,omitempty"`
	Record        *models.TransitionRecord `json:"record"`
}

// Execute applies one named action to a dossier on behalf of actorID.
//
// Validation order: unknown action and missing rejection reason fail
// before any store access; a missing dossier fails before the role
// check; the role check fails before any state mutation; legality is
// decided under the row lock so that concurrent attempts on the same
// dossier serialize and the loser sees IllegalTransition.
func (e *Engine) Execute(dossierID uuid.UUID, action models.ActionName, actorID uuid.UUID, notes string) (*Result, error) {
	rule, ok := RuleFor(action)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if rule.NeedsReason && strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("%w: action %q", ErrReasonRequired, action)
	}

	dossier, err := e.store.GetDossier(dossierID)
	if err != nil {
		return nil, err
	}

	role, err := e.roles.RoleOf(actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve caller role: %w", err)
	}

	if role != rule.RequiredRole {
		unauthorized := &UnauthorizedError{Action: action, Required: rule.RequiredRole, Actual: role}
		e.recordAttempt(dossier.ID, rule, dossier.State, actorID, role, notes, unauthorized)
		return nil, unauthorized
	}

	var result *Result
	txErr := e.store.InTransaction(func(tx Tx) error {
		locked, err := tx.DossierForUpdate(dossierID)
		if err != nil {
			return err
		}

		// Re-checked under the lock: a concurrent winner moves the
		// state and the loser lands here with a stale source.
		if !rule.AllowsSource(locked.State) {
			return &IllegalTransitionError{Action: action, CurrentState: locked.State}
		}

		if rule.Dest == models.StateApproved && e.gate != nil {
			if err := e.gate.Cleared(locked); err != nil {
				return err
			}
		}

		now := time.Now()
		fromState := locked.State
		locked.State = rule.Dest
		if rule.NeedsReason {
			locked.RejectionReason = notes
		}
		e.stampReviewMarker(locked, role, actorID, now)

		if rule.Dest == models.StateApproved {
			number, err := tx.NextLicenseNumber()
			if err != nil {
				return fmt.Errorf("failed to allocate license number: %w", err)
			}
			locked.LicenseNumber = &number
			locked.LicenseCode = FormatLicenseCode(e.licensePrefix, now, number)
		}

		record := &models.TransitionRecord{
			DossierID:     locked.ID,
			Action:        action,
			FromState:     fromState,
			ToState:       rule.Dest,
			PerformedBy:   actorID,
			PerformerRole: role,
			Notes:         notes,
			Succeeded:     true,
		}
		if err := tx.AppendRecord(record); err != nil {
			return fmt.Errorf("failed to append audit record: %w", err)
		}

		if err := tx.SaveDossier(locked); err != nil {
			return fmt.Errorf("failed to persist dossier: %w", err)
		}

		result = &Result{
			Dossier:       locked,
			State:         locked.State,
			LicenseNumber: locked.LicenseNumber,
			LicenseCode:   locked.LicenseCode,
			Record:        record,
		}
		return nil
	})

	if txErr != nil {
		return nil, e.classify(dossier, rule, actorID, role, notes, txErr)
	}

	e.logger.WithFields(logrus.Fields{
		"dossier_id": dossierID,
		"action":     action,
		"from_state": result.Record.FromState,
		"to_state":   result.State,
		"actor_id":   actorID,
		"role":       role,
	}).Info("Transition committed")

	return result, nil
}

// classify maps a transaction error onto the workflow taxonomy and logs
// rejected attempts.
func (e *Engine) classify(dossier *models.Dossier, rule Rule, actorID uuid.UUID, role models.Role, notes string, err error) error {
	var illegal *IllegalTransitionError
	if errors.As(err, &illegal) {
		e.recordAttempt(dossier.ID, rule, illegal.CurrentState, actorID, role, notes, err)
		return err
	}

	if errors.Is(err, ErrPaymentRequired) {
		e.recordAttempt(dossier.ID, rule, dossier.State, actorID, role, notes, err)
		return err
	}

	if errors.Is(err, ErrDossierNotFound) {
		return err
	}

	return &PersistenceError{Err: err}
}

// recordAttempt appends a failed-attempt audit row. Best effort: a
// failure to log an attempt must not mask the original error.
func (e *Engine) recordAttempt(dossierID uuid.UUID, rule Rule, fromState models.DossierState, actorID uuid.UUID, role models.Role, notes string, cause error) {
	attempt := &models.TransitionRecord{
		DossierID:     dossierID,
		Action:        rule.Action,
		FromState:     fromState,
		ToState:       "",
		PerformedBy:   actorID,
		PerformerRole: role,
		Notes:         notes,
		Succeeded:     false,
		ErrorCode:     ErrorCode(cause),
	}

	if err := e.store.AppendAttempt(attempt); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"dossier_id": dossierID,
			"action":     rule.Action,
		}).Error("Failed to record transition attempt")
	}
}

// stampReviewMarker sets the per-stage reviewer identity and timestamp
// exactly once; a marker already set is never overwritten.
func (e *Engine) stampReviewMarker(d *models.Dossier, role models.Role, actorID uuid.UUID, now time.Time) {
	switch role {
	case models.RoleApplicant:
		if d.SubmittedAt == nil {
			d.SubmittedAt = &now
		}
	case models.RoleAgent:
		if d.AgentReviewedBy == nil {
			actor := actorID
			d.AgentReviewedBy = &actor
			d.AgentReviewedAt = &now
		}
	case models.RoleCommission:
		if d.CommissionReviewedBy == nil {
			actor := actorID
			d.CommissionReviewedBy = &actor
			d.CommissionReviewedAt = &now
		}
	case models.RolePresident:
		if d.PresidentReviewedBy == nil {
			actor := actorID
			d.PresidentReviewedBy = &actor
			d.PresidentReviewedAt = &now
		}
	}
}

// FormatLicenseCode renders the public registration code for an
// allocated license number, e.g. "MED-2026-00042".
func FormatLicenseCode(prefix string, issuedAt time.Time, number int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, issuedAt.Year(), number)
}
