// internal/workflow/transitions.go
package workflow

import (
	"github.com/medcouncil/registry-backend/internal/models"
)

// Rule is one row of the transition table: the states an action may be
// performed from, the state it lands in, and the single role allowed to
// perform it.
type Rule struct {
	Action       models.ActionName
	Sources      []models.DossierState
	Dest         models.DossierState
	RequiredRole models.Role
	// NeedsReason marks actions that must carry a non-empty reason
	// (the rejection reason stored on the dossier).
	NeedsReason bool
}

// transitionTable is pure data. Adding a review stage or action is a
// table change, not an engine change.
var transitionTable = map[models.ActionName]Rule{
	models.ActionSubmit: {
		Action:       models.ActionSubmit,
		Sources:      []models.DossierState{models.StateDraft},
		Dest:         models.StateSubmitted,
		RequiredRole: models.RoleApplicant,
	},
	models.ActionAgentStart: {
		Action:       models.ActionAgentStart,
		Sources:      []models.DossierState{models.StateSubmitted},
		Dest:         models.StateAgentReview,
		RequiredRole: models.RoleAgent,
	},
	models.ActionAgentApprove: {
		Action:       models.ActionAgentApprove,
		Sources:      []models.DossierState{models.StateSubmitted, models.StateAgentReview},
		Dest:         models.StateCommissionReview,
		RequiredRole: models.RoleAgent,
	},
	models.ActionAgentReject: {
		Action:       models.ActionAgentReject,
		Sources:      []models.DossierState{models.StateSubmitted, models.StateAgentReview},
		Dest:         models.StateRejected,
		RequiredRole: models.RoleAgent,
		NeedsReason:  true,
	},
	models.ActionCommissionApprove: {
		Action:       models.ActionCommissionApprove,
		Sources:      []models.DossierState{models.StateCommissionReview},
		Dest:         models.StateApproved,
		RequiredRole: models.RoleCommission,
	},
	models.ActionCommissionReject: {
		Action:       models.ActionCommissionReject,
		Sources:      []models.DossierState{models.StateCommissionReview},
		Dest:         models.StateRejected,
		RequiredRole: models.RoleCommission,
		NeedsReason:  true,
	},
	models.ActionCommissionEscalate: {
		Action:       models.ActionCommissionEscalate,
		Sources:      []models.DossierState{models.StateCommissionReview},
		Dest:         models.StatePresidentReview,
		RequiredRole: models.RoleCommission,
	},
	models.ActionPresidentApprove: {
		Action:       models.ActionPresidentApprove,
		Sources:      []models.DossierState{models.StatePresidentReview},
		Dest:         models.StateApproved,
		RequiredRole: models.RolePresident,
	},
	models.ActionPresidentReject: {
		Action:       models.ActionPresidentReject,
		Sources:      []models.DossierState{models.StatePresidentReview},
		Dest:         models.StateRejected,
		RequiredRole: models.RolePresident,
		NeedsReason:  true,
	},
}

// RuleFor returns the transition rule for an action.
func RuleFor(action models.ActionName) (Rule, bool) {
	rule, ok := transitionTable[action]
	return rule, ok
}

// Actions returns every action the table knows, for admin/UI listings.
func Actions() []models.ActionName {
	actions := make([]models.ActionName, 0, len(transitionTable))
	for name := range transitionTable {
		actions = append(actions, name)
	}
	return actions
}

// AllowsSource reports whether the rule may fire from the given state.
func (r Rule) AllowsSource(state models.DossierState) bool {
	for _, s := range r.Sources {
		if s == state {
			return true
		}
	}
	return false
}
