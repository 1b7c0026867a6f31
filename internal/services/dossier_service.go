// internal/services/dossier_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medcouncil/registry-backend/internal/models"
	"github.com/medcouncil/registry-backend/internal/utils"
	"github.com/medcouncil/registry-backend/internal/workflow"
)

type DossierService struct {
	db                  *gorm.DB
	engine              *workflow.Engine
	notificationService *NotificationService
}

type CreateDossierRequest struct {
	Specialty       string                 `json:"specialty" validate:"required,specialty"`
	Qualifications  []string               `json:"qualifications" validate:"required,min=1,dive,min=2"`
	ApplicationData map[string]interface{} `json:"application_data,omitempty"`
}

type DossierSearchParams struct {
	utils.PaginationParams
	ApplicantID *uuid.UUID           `json:"applicant_id,omitempty"`
	State       *models.DossierState `json:"state,omitempty"`
}

// RegistryEntry is the public view of an approved registration,
// rendered by the license lookup endpoint.
type RegistryEntry struct {
	LicenseCode   string              `json:"license_code"`
	LicenseNumber int64               `json:"license_number"`
	Practitioner  string              `json:"practitioner"`
	Specialty     string              `json:"specialty"`
	State         models.DossierState `json:"state"`
	ApprovedAt    string              `json:"approved_at"`
}

func NewDossierService(db *gorm.DB, engine *workflow.Engine, notificationService *NotificationService) *DossierService {
	return &DossierService{
		db:                  db,
		engine:              engine,
		notificationService: notificationService,
	}
}

func (s *DossierService) CreateDossier(applicantID uuid.UUID, req *CreateDossierRequest) (*models.Dossier, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Verify applicant exists and is eligible
	var applicant models.User
	if err := s.db.First(&applicant, "id = ?", applicantID).Error; err != nil {
		return nil, fmt.Errorf("applicant not found: %w", err)
	}

	if applicant.Status != models.UserStatusActive {
		return nil, errors.New("applicant account is not active")
	}

	if applicant.Role != models.RoleApplicant {
		return nil, errors.New("only applicants can open a registration dossier")
	}

	// One open case at a time: an applicant with a dossier still in the
	// workflow may not open another.
	var openCount int64
	if err := s.db.Model(&models.Dossier{}).
		Where("applicant_id = ? AND state NOT IN (?, ?)",
			applicantID, models.StateApproved, models.StateRejected).
		Count(&openCount).Error; err != nil {
		return nil, fmt.Errorf("failed to check open dossiers: %w", err)
	}
	if openCount > 0 {
		return nil, errors.New("you already have a dossier under review")
	}

	dossier := &models.Dossier{
		ApplicantID:     applicantID,
		Specialty:       req.Specialty,
		Qualifications:  req.Qualifications,
		ApplicationData: models.JSONB(req.ApplicationData),
		State:           models.StateDraft,
	}

	if err := s.db.Create(dossier).Error; err != nil {
		return nil, fmt.Errorf("failed to create dossier: %w", err)
	}

	return dossier, nil
}

// ExecuteAction runs one workflow transition and, on commit, notifies
// the applicant asynchronously. All legality, role, and atomicity rules
// live in the engine.
func (s *DossierService) ExecuteAction(dossierID uuid.UUID, action models.ActionName, actorID uuid.UUID, notes string) (*workflow.Result, error) {
	result, err := s.engine.Execute(dossierID, action, actorID, notes)
	if err != nil {
		return nil, err
	}

	go s.sendTransitionNotification(result)

	return result, nil
}

func (s *DossierService) GetDossier(id uuid.UUID, callerID uuid.UUID) (*models.Dossier, error) {
	var dossier models.Dossier
	if err := s.db.Preload("Applicant").Preload("Documents").
		First(&dossier, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrDossierNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := s.authorizeRead(&dossier, callerID); err != nil {
		return nil, err
	}

	return &dossier, nil
}

// GetHistory returns the dossier's full audit trail, oldest first.
// Read-only: the records themselves are never modified.
func (s *DossierService) GetHistory(id uuid.UUID, callerID uuid.UUID) ([]models.TransitionRecord, error) {
	var dossier models.Dossier
	if err := s.db.First(&dossier, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrDossierNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := s.authorizeRead(&dossier, callerID); err != nil {
		return nil, err
	}

	var records []models.TransitionRecord
	if err := s.db.Preload("Performer").
		Where("dossier_id = ?", id).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch transition records: %w", err)
	}

	return records, nil
}

// SearchDossiers lists dossiers scoped by the caller's role: applicants
// see their own cases, each review role sees its queue, admin sees all.
func (s *DossierService) SearchDossiers(params DossierSearchParams, callerID uuid.UUID) ([]models.Dossier, int64, error) {
	var caller models.User
	if err := s.db.First(&caller, "id = ?", callerID).Error; err != nil {
		return nil, 0, errors.New("caller not found")
	}

	query := s.db.Model(&models.Dossier{}).Preload("Applicant")

	switch caller.Role {
	case models.RoleApplicant:
		query = query.Where("applicant_id = ?", callerID)
	case models.RoleAgent:
		query = query.Where("state IN (?, ?)", models.StateSubmitted, models.StateAgentReview)
	case models.RoleCommission:
		query = query.Where("state = ?", models.StateCommissionReview)
	case models.RolePresident:
		query = query.Where("state = ?", models.StatePresidentReview)
	case models.RoleAdmin:
		// Admin sees everything.
	default:
		return nil, 0, errors.New("unauthorized to list dossiers")
	}

	// Apply filters
	if params.ApplicantID != nil {
		query = query.Where("applicant_id = ?", *params.ApplicantID)
	}

	if params.State != nil {
		query = query.Where("state = ?", *params.State)
	}

	if params.Specialty != "" {
		query = query.Where("specialty = ?", params.Specialty)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count dossiers: %w", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"created_at", "updated_at", "state", "specialty"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var dossiers []models.Dossier
	if err := query.Find(&dossiers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch dossiers: %w", err)
	}

	return dossiers, total, nil
}

// LookupLicense resolves a public registry query by license code. Only
// approved dossiers are visible here.
func (s *DossierService) LookupLicense(code string) (*RegistryEntry, error) {
	var dossier models.Dossier
	if err := s.db.Preload("Applicant").
		Where("license_code = ? AND state = ?", code, models.StateApproved).
		First(&dossier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("license not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	entry := &RegistryEntry{
		LicenseCode:  dossier.LicenseCode,
		Practitioner: dossier.Applicant.Username,
		Specialty:    dossier.Specialty,
		State:        dossier.State,
	}
	if dossier.LicenseNumber != nil {
		entry.LicenseNumber = *dossier.LicenseNumber
	}
	if dossier.PresidentReviewedAt != nil {
		entry.ApprovedAt = dossier.PresidentReviewedAt.Format("2006-01-02")
	} else if dossier.CommissionReviewedAt != nil {
		entry.ApprovedAt = dossier.CommissionReviewedAt.Format("2006-01-02")
	}

	return entry, nil
}

// AttachDocument links an uploaded supporting document to a dossier.
// Only the owner may attach, and only while the dossier is still in the
// workflow.
func (s *DossierService) AttachDocument(dossierID uuid.UUID, uploaderID uuid.UUID, upload *UploadResult, fileName string) (*models.DossierDocument, error) {
	var dossier models.Dossier
	if err := s.db.First(&dossier, "id = ?", dossierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrDossierNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if dossier.ApplicantID != uploaderID {
		return nil, errors.New("only the dossier owner can attach documents")
	}

	if dossier.IsTerminal() {
		return nil, errors.New("cannot attach documents to a closed dossier")
	}

	document := &models.DossierDocument{
		DossierID:  dossierID,
		UploadedBy: uploaderID,
		FileName:   fileName,
		StorageKey: upload.Key,
		URL:        upload.URL,
		Size:       upload.Size,
		MimeType:   upload.MimeType,
	}

	if err := s.db.Create(document).Error; err != nil {
		return nil, fmt.Errorf("failed to attach document: %w", err)
	}

	return document, nil
}

func (s *DossierService) GetDossierStatistics() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	states := []models.DossierState{
		models.StateDraft, models.StateSubmitted, models.StateAgentReview,
		models.StateCommissionReview, models.StatePresidentReview,
		models.StateApproved, models.StateRejected,
	}

	byState := make(map[string]int64, len(states))
	for _, state := range states {
		var count int64
		if err := s.db.Model(&models.Dossier{}).Where("state = ?", state).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count dossiers in %s: %w", state, err)
		}
		byState[string(state)] = count
	}
	stats["by_state"] = byState

	var issued int64
	if err := s.db.Model(&models.Dossier{}).Where("license_number IS NOT NULL").Count(&issued).Error; err != nil {
		return nil, fmt.Errorf("failed to count issued licenses: %w", err)
	}
	stats["licenses_issued"] = issued

	return stats, nil
}

// authorizeRead: the applicant owns the dossier; any staff role may
// read it.
func (s *DossierService) authorizeRead(dossier *models.Dossier, callerID uuid.UUID) error {
	if dossier.ApplicantID == callerID {
		return nil
	}

	var caller models.User
	if err := s.db.First(&caller, "id = ?", callerID).Error; err != nil {
		return errors.New("unauthorized to view dossier")
	}

	switch caller.Role {
	case models.RoleAgent, models.RoleCommission, models.RolePresident, models.RoleAdmin:
		return nil
	default:
		return errors.New("unauthorized to view dossier")
	}
}

func (s *DossierService) sendTransitionNotification(result *workflow.Result) {
	if s.notificationService == nil || result == nil {
		return
	}

	switch result.State {
	case models.StateSubmitted:
		s.notificationService.SendDossierSubmittedNotification(result.Dossier)
	case models.StateApproved:
		s.notificationService.SendDossierApprovedNotification(result.Dossier)
	case models.StateRejected:
		s.notificationService.SendDossierRejectedNotification(result.Dossier)
	}
}
