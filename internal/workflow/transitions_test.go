// internal/workflow/transitions_test.go
package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcouncil/registry-backend/internal/models"
)

func TestNoActionLeavesTerminalStates(t *testing.T) {
	for _, rule := range transitionTable {
		assert.False(t, rule.AllowsSource(models.StateApproved),
			"action %s fires from approved", rule.Action)
		assert.False(t, rule.AllowsSource(models.StateRejected),
			"action %s fires from rejected", rule.Action)
	}
}

func TestEveryRuleBindsExactlyOneRole(t *testing.T) {
	for action, rule := range transitionTable {
		assert.NotEmpty(t, rule.RequiredRole, "action %s has no role", action)
		assert.Equal(t, action, rule.Action)
		assert.NotEmpty(t, rule.Sources, "action %s has no source states", action)
		assert.NotEmpty(t, rule.Dest, "action %s has no destination", action)
	}
}

func TestRejectionsAlwaysNeedReasons(t *testing.T) {
	for action, rule := range transitionTable {
		if rule.Dest == models.StateRejected {
			assert.True(t, rule.NeedsReason, "action %s rejects without a reason", action)
		} else {
			assert.False(t, rule.NeedsReason, "action %s needs a reason but does not reject", action)
		}
	}
}

func TestOnlyReviewRolesGrantLicenses(t *testing.T) {
	for action, rule := range transitionTable {
		if rule.Dest != models.StateApproved {
			continue
		}
		assert.Contains(t, []models.Role{models.RoleCommission, models.RolePresident},
			rule.RequiredRole, "action %s grants a license with role %s", action, rule.RequiredRole)
	}
}

func TestRuleForUnknownAction(t *testing.T) {
	_, ok := RuleFor("withdraw")
	assert.False(t, ok)
}

func TestActionsListsWholeTable(t *testing.T) {
	actions := Actions()
	require.Len(t, actions, len(transitionTable))
	for _, action := range actions {
		_, ok := RuleFor(action)
		assert.True(t, ok)
	}
}

func TestSubmitIsTheOnlyApplicantAction(t *testing.T) {
	for action, rule := range transitionTable {
		if rule.RequiredRole == models.RoleApplicant {
			assert.Equal(t, models.ActionSubmit, action)
		}
	}
}
