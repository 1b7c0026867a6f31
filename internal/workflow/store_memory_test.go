// internal/workflow/store_memory_test.go
package workflow

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcouncil/registry-backend/internal/models"
)

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()

	d := &models.Dossier{State: models.StateDraft, Specialty: "Dermatology"}
	d.ID = uuid.New()
	store.PutDossier(d)

	got, err := store.GetDossier(d.ID)
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the store.
	got.State = models.StateApproved
	again, err := store.GetDossier(d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateDraft, again.State)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetDossier(uuid.New())
	assert.ErrorIs(t, err, ErrDossierNotFound)
}

func TestTransactionRollbackDiscardsWrites(t *testing.T) {
	store := NewMemoryStore()

	d := &models.Dossier{State: models.StateCommissionReview}
	d.ID = uuid.New()
	store.PutDossier(d)

	boom := errors.New("boom")
	err := store.InTransaction(func(tx Tx) error {
		locked, err := tx.DossierForUpdate(d.ID)
		require.NoError(t, err)

		locked.State = models.StateApproved
		require.NoError(t, tx.SaveDossier(locked))
		require.NoError(t, tx.AppendRecord(&models.TransitionRecord{DossierID: d.ID}))

		n, err := tx.NextLicenseNumber()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		return boom
	})
	require.ErrorIs(t, err, boom)

	// Everything staged in the failed transaction is gone: the state,
	// the record, and the sequence increment.
	stored, getErr := store.GetDossier(d.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StateCommissionReview, stored.State)
	assert.Empty(t, store.Records(d.ID))

	commitErr := store.InTransaction(func(tx Tx) error {
		n, err := tx.NextLicenseNumber()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, "rolled-back allocation must not burn a number")
		return nil
	})
	require.NoError(t, commitErr)
}

func TestSequenceIsMonotonicAcrossTransactions(t *testing.T) {
	store := NewMemoryStore()

	var numbers []int64
	for i := 0; i < 3; i++ {
		err := store.InTransaction(func(tx Tx) error {
			n, err := tx.NextLicenseNumber()
			if err != nil {
				return err
			}
			numbers = append(numbers, n)
			return nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []int64{1, 2, 3}, numbers)
}

func TestAppendAttemptSurvivesFailedTransitions(t *testing.T) {
	store := NewMemoryStore()
	dossierID := uuid.New()

	require.NoError(t, store.AppendAttempt(&models.TransitionRecord{
		DossierID: dossierID,
		Action:    models.ActionSubmit,
		Succeeded: false,
		ErrorCode: "UNAUTHORIZED",
	}))

	records := store.Records(dossierID)
	require.Len(t, records, 1)
	assert.False(t, records[0].Succeeded)
	assert.NotEqual(t, uuid.Nil, records[0].ID)
}
