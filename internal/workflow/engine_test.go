// internal/workflow/engine_test.go
package workflow

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/medcouncil/registry-backend/internal/models"
)

// roleMap is a fixed actor-to-role directory for tests.
type roleMap map[uuid.UUID]models.Role

func (m roleMap) RoleOf(actorID uuid.UUID) (models.Role, error) {
	role, ok := m[actorID]
	if !ok {
		return "", fmt.Errorf("unknown actor %s", actorID)
	}
	return role, nil
}

// blockingGate refuses every approval, standing in for an unpaid
// registration fee.
type blockingGate struct{}

func (blockingGate) Cleared(*models.Dossier) error { return ErrPaymentRequired }

type testFixture struct {
	store      *MemoryStore
	engine     *Engine
	applicant  uuid.UUID
	agent      uuid.UUID
	commission uuid.UUID
	president  uuid.UUID
}

func newFixture(t *testing.T, opts ...Option) *testFixture {
	t.Helper()

	f := &testFixture{
		store:      NewMemoryStore(),
		applicant:  uuid.New(),
		agent:      uuid.New(),
		commission: uuid.New(),
		president:  uuid.New(),
	}
	roles := roleMap{
		f.applicant:  models.RoleApplicant,
		f.agent:      models.RoleAgent,
		f.commission: models.RoleCommission,
		f.president:  models.RolePresident,
	}
	f.engine = NewEngine(f.store, roles, opts...)
	return f
}

func (f *testFixture) seedDossier(state models.DossierState) *models.Dossier {
	d := &models.Dossier{
		ApplicantID:    f.applicant,
		Specialty:      "Cardiology",
		Qualifications: []string{"MD", "Board Certification"},
		State:          state,
	}
	d.ID = uuid.New()
	f.store.PutDossier(d)
	return d
}

// mustExecute runs an action that the test requires to succeed.
func (f *testFixture) mustExecute(t *testing.T, dossierID uuid.UUID, action models.ActionName, actorID uuid.UUID, notes string) *Result {
	t.Helper()
	result, err := f.engine.Execute(dossierID, action, actorID, notes)
	require.NoError(t, err)
	return result
}

func TestFullApprovalPath(t *testing.T) {
	f := newFixture(t)
	d := f.seedDossier(models.StateDraft)

	f.mustExecute(t, d.ID, models.ActionSubmit, f.applicant, "")
	f.mustExecute(t, d.ID, models.ActionAgentStart, f.agent, "")
	f.mustExecute(t, d.ID, models.ActionAgentApprove, f.agent, "documents complete")
	result := f.mustExecute(t, d.ID, models.ActionCommissionApprove, f.commission, "")

	assert.Equal(t, models.StateApproved, result.State)
	require.NotNil(t, result.LicenseNumber)
	assert.Equal(t, int64(1), *result.LicenseNumber)
	assert.Equal(t, FormatLicenseCode("MED", time.Now(), 1), result.LicenseCode)

	stored, err := f.store.GetDossier(d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateApproved, stored.State)
	require.NotNil(t, stored.LicenseNumber)
	assert.NotNil(t, stored.SubmittedAt)
	assert.NotNil(t, stored.AgentReviewedAt)
	assert.NotNil(t, stored.CommissionReviewedAt)
}

func TestEscalationToPresident(t *testing.T) {
	f := newFixture(t)
	d := f.seedDossier(models.StateCommissionReview)

	f.mustExecute(t, d.ID, models.ActionCommissionEscalate, f.commission, "unusual qualifications")
	result := f.mustExecute(t, d.ID, models.ActionPresidentApprove, f.president, "")

	assert.Equal(t, models.StateApproved, result.State)
	require.NotNil(t, result.LicenseNumber)

	stored, err := f.store.GetDossier(d.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PresidentReviewedBy)
	assert.Equal(t, f.president, *stored.PresidentReviewedBy)
}

func TestLicenseAssignedOnlyOnApproval(t *testing.T) {
	f := newFixture(t)
	d := f.seedDossier(models.StateDraft)

	f.mustExecute(t, d.ID, models.ActionSubmit, f.applicant, "")
	f.mustExecute(t, d.ID, models.ActionAgentReject, f.agent, "incomplete qualifications")

	stored, err := f.store.GetDossier(d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateRejected, stored.State)
	assert.Nil(t, stored.LicenseNumber)
	assert.Empty(t, stored.LicenseCode)
	assert.Equal(t, "incomplete qualifications", stored.RejectionReason)
}

func TestRejectionRequiresReason(t *testing.T) {
	f := newFixture(t)
	d := f.seedDossier(models.StateCommissionReview)

	_, err := f.engine.Execute(d.ID, models.ActionCommissionReject, f.commission, "   ")
	require.ErrorIs(t, err, ErrReasonRequired)

	// Nothing was touched: the check fires before any store access.
	stored, getErr := f.store.GetDossier(d.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StateCommissionReview, stored.State)
	assert.Empty(t, f.store.Records(d.ID))
}

func TestUnknownAction(t *testing.T) {
	f := newFixture(t)
	d := f.seedDossier(models.StateDraft)

	_, err := f.engine.Execute(d.ID, "fast_track", f.applicant, "")
	require.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, "VALIDATION_ERROR", ErrorCode(err))
}

func TestDossierNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Execute(uuid.New(), models.ActionSubmit, f.applicant, "")
	require.ErrorIs(t, err, ErrDossierNotFound)
}

func TestUnauthorizedRoleLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	d := f.seedDossier(models.StateCommissionReview)

	_, err := f.engine.Execute(d.ID, models.ActionCommissionApprove, f.agent, "")

	var unauthorized *UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)
	assert.Equal(t, models.RoleCommission, unauthorized.Required)
	assert.Equal(t, models.RoleAgent, unauthorized.Actual)

	stored, getErr := f.store.GetDossier(d.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StateCommissionReview, stored.State)
	assert.Nil(t, stored.LicenseNumber)

	// The refusal itself is on the audit trail.
	records := f.store.Records(d.ID)
	require.Len(t, records, 1)
	assert.False(t, records[0].Succeeded)
	assert.Equal(t, "UNAUTHORIZED", records[0].ErrorCode)
	assert.Equal(t, f.agent, records[0].PerformedBy)
}

func TestIllegalTransitionCarriesCurrentState(t *testing.T) {
	f := newFixture(t)
	d := f.seedDossier(models.StateDraft)

	_, err := f.engine.Execute(d.ID, models.ActionCommissionApprove, f.commission, "")

	var illegal *IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, models.StateDraft, illegal.CurrentState)

	stored, getErr := f.store.GetDossier(d.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StateDraft, stored.State)

	records := f.store.Records(d.ID)
	require.Len(t, records, 1)
	assert.False(t, records[0].Succeeded)
	assert.Equal(t, "ILLEGAL_TRANSITION", records[0].ErrorCode)
}

func TestReplayedActionFails(t *testing.T) {
	f := newFixture(t)
	d := f.seedDossier(models.StateDraft)

	f.mustExecute(t, d.ID, models.ActionSubmit, f.applicant, "")

	_, err := f.engine.Execute(d.ID, models.ActionSubmit, f.applicant, "")
	var illegal *IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, models.StateSubmitted, illegal.CurrentState)
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	f := newFixture(t)

	actors := map[models.Role]uuid.UUID{
		models.RoleApplicant:  f.applicant,
		models.RoleAgent:      f.agent,
		models.RoleCommission: f.commission,
		models.RolePresident:  f.president,
	}

	for _, terminal := range []models.DossierState{models.StateApproved, models.StateRejected} {
		d := f.seedDossier(terminal)
		for _, action := range Actions() {
			rule, _ := RuleFor(action)
			notes := ""
			if rule.NeedsReason {
				notes = "some reason"
			}
			_, err := f.engine.Execute(d.ID, action, actors[rule.RequiredRole], notes)

			var illegal *IllegalTransitionError
			require.ErrorAs(t, err, &illegal,
				"action %s must not fire from terminal state %s", action, terminal)
		}

		stored, err := f.store.GetDossier(d.ID)
		require.NoError(t, err)
		assert.Equal(t, terminal, stored.State)
	}
}

func TestAuditTrailReplaysToCurrentState(t *testing.T) {
	f := newFixture(t)
	d := f.seedDossier(models.StateDraft)

	f.mustExecute(t, d.ID, models.ActionSubmit, f.applicant, "")
	f.mustExecute(t, d.ID, models.ActionAgentStart, f.agent, "")

	// A failed attempt in the middle must not break the chain.
	_, err := f.engine.Execute(d.ID, models.ActionCommissionApprove, f.commission, "")
	require.Error(t, err)

	f.mustExecute(t, d.ID, models.ActionAgentApprove, f.agent, "")
	f.mustExecute(t, d.ID, models.ActionCommissionApprove, f.commission, "")

	records := f.store.Records(d.ID)
	require.Len(t, records, 5)

	// Walking the successful records in order reproduces the dossier's
	// state, each from-state matching the previous to-state.
	state := models.StateDraft
	for _, rec := range records {
		if !rec.Succeeded {
			continue
		}
		assert.Equal(t, state, rec.FromState)
		state = rec.ToState
	}

	stored, getErr := f.store.GetDossier(d.ID)
	require.NoError(t, getErr)
	assert.Equal(t, stored.State, state)
}

func TestConcurrentApprovalsGetDistinctNumbers(t *testing.T) {
	const n = 20

	f := newFixture(t)
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = f.seedDossier(models.StateCommissionReview).ID
	}

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := f.engine.Execute(id, models.ActionCommissionApprove, f.commission, "")
			return err
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[int64]uuid.UUID, n)
	for _, id := range ids {
		d, err := f.store.GetDossier(id)
		require.NoError(t, err)
		require.NotNil(t, d.LicenseNumber)
		if prev, dup := seen[*d.LicenseNumber]; dup {
			t.Fatalf("license number %d assigned to both %s and %s", *d.LicenseNumber, prev, id)
		}
		seen[*d.LicenseNumber] = id
	}
}

func TestConcurrentApprovalOfOneDossier(t *testing.T) {
	const attempts = 10

	f := newFixture(t)
	d := f.seedDossier(models.StateCommissionReview)

	errs := make(chan error, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := f.engine.Execute(d.ID, models.ActionCommissionApprove, f.commission, "")
			errs <- err
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(errs)

	// Exactly one winner; every loser sees IllegalTransition.
	var won, lost int
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		var illegal *IllegalTransitionError
		require.ErrorAs(t, err, &illegal)
		lost++
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, lost)

	stored, err := f.store.GetDossier(d.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LicenseNumber)
	assert.Equal(t, int64(1), *stored.LicenseNumber)
}

func TestApprovalGateBlocksUnpaidDossier(t *testing.T) {
	f := newFixture(t, WithApprovalGate(blockingGate{}))
	d := f.seedDossier(models.StateCommissionReview)

	_, err := f.engine.Execute(d.ID, models.ActionCommissionApprove, f.commission, "")
	require.ErrorIs(t, err, ErrPaymentRequired)

	stored, getErr := f.store.GetDossier(d.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StateCommissionReview, stored.State)
	assert.Nil(t, stored.LicenseNumber)

	records := f.store.Records(d.ID)
	require.Len(t, records, 1)
	assert.False(t, records[0].Succeeded)
	assert.Equal(t, "VALIDATION_ERROR", records[0].ErrorCode)
}

func TestReviewMarkersStampedOnce(t *testing.T) {
	f := newFixture(t)
	d := f.seedDossier(models.StateSubmitted)

	f.mustExecute(t, d.ID, models.ActionAgentStart, f.agent, "")
	first, err := f.store.GetDossier(d.ID)
	require.NoError(t, err)
	require.NotNil(t, first.AgentReviewedAt)

	// The second agent action must not overwrite the original marker.
	otherAgent := uuid.New()
	f.engine.roles.(roleMap)[otherAgent] = models.RoleAgent
	f.mustExecute(t, d.ID, models.ActionAgentApprove, otherAgent, "")

	second, err := f.store.GetDossier(d.ID)
	require.NoError(t, err)
	require.NotNil(t, second.AgentReviewedBy)
	assert.Equal(t, f.agent, *second.AgentReviewedBy)
	assert.Equal(t, first.AgentReviewedAt.UnixNano(), second.AgentReviewedAt.UnixNano())
}

func TestCustomLicensePrefix(t *testing.T) {
	f := newFixture(t, WithLicensePrefix("ONM"))
	d := f.seedDossier(models.StateCommissionReview)

	result := f.mustExecute(t, d.ID, models.ActionCommissionApprove, f.commission, "")
	assert.Equal(t, fmt.Sprintf("ONM-%d-00001", time.Now().Year()), result.LicenseCode)
}

func TestFormatLicenseCode(t *testing.T) {
	issued := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "MED-2026-00042", FormatLicenseCode("MED", issued, 42))
	assert.Equal(t, "MED-2026-123456", FormatLicenseCode("MED", issued, 123456))
}
