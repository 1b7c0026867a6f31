// internal/workflow/store_memory.go
package workflow

import (
	"sync"

	"github.com/google/uuid"

	"github.com/medcouncil/registry-backend/internal/models"
)

// MemoryStore is an in-memory Store for tests and for running the
// portal without Postgres. A single mutex held for the whole
// transaction gives the same per-dossier serialization the database
// row lock provides, at the cost of cross-dossier throughput that only
// matters in production.
type MemoryStore struct {
	mu       sync.Mutex
	dossiers map[uuid.UUID]*models.Dossier
	records  []*models.TransitionRecord
	sequence int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		dossiers: make(map[uuid.UUID]*models.Dossier),
	}
}

// PutDossier inserts or replaces a dossier outside any workflow
// transaction (dossier creation, test seeding).
func (s *MemoryStore) PutDossier(d *models.Dossier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	stored := cloneDossier(d)
	s.dossiers[stored.ID] = stored
}

func (s *MemoryStore) GetDossier(id uuid.UUID) (*models.Dossier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dossiers[id]
	if !ok {
		return nil, ErrDossierNotFound
	}
	return cloneDossier(d), nil
}

func (s *MemoryStore) InTransaction(fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}

	// Commit staged writes.
	for _, d := range tx.savedDossiers {
		s.dossiers[d.ID] = cloneDossier(d)
	}
	for _, rec := range tx.appendedRecords {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		s.records = append(s.records, rec)
	}
	s.sequence += tx.sequenceDelta
	return nil
}

func (s *MemoryStore) AppendAttempt(rec *models.TransitionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s.records = append(s.records, rec)
	return nil
}

// Records returns the audit trail for a dossier in append order.
func (s *MemoryStore) Records(dossierID uuid.UUID) []*models.TransitionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.TransitionRecord
	for _, rec := range s.records {
		if rec.DossierID == dossierID {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out
}

type memoryTx struct {
	store           *MemoryStore
	savedDossiers   []*models.Dossier
	appendedRecords []*models.TransitionRecord
	sequenceDelta   int64
}

func (t *memoryTx) DossierForUpdate(id uuid.UUID) (*models.Dossier, error) {
	d, ok := t.store.dossiers[id]
	if !ok {
		return nil, ErrDossierNotFound
	}
	return cloneDossier(d), nil
}

func (t *memoryTx) SaveDossier(d *models.Dossier) error {
	t.savedDossiers = append(t.savedDossiers, cloneDossier(d))
	return nil
}

func (t *memoryTx) AppendRecord(rec *models.TransitionRecord) error {
	t.appendedRecords = append(t.appendedRecords, rec)
	return nil
}

func (t *memoryTx) NextLicenseNumber() (int64, error) {
	t.sequenceDelta++
	return t.store.sequence + t.sequenceDelta, nil
}

func cloneDossier(d *models.Dossier) *models.Dossier {
	copied := *d
	if d.LicenseNumber != nil {
		n := *d.LicenseNumber
		copied.LicenseNumber = &n
	}
	copied.Qualifications = append([]string(nil), d.Qualifications...)
	return &copied
}
