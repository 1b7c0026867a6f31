// internal/services/admin_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medcouncil/registry-backend/internal/models"
	"github.com/medcouncil/registry-backend/internal/utils"
)

type AdminService struct {
	db                  *gorm.DB
	notificationService *NotificationService
}

type AdminDashboardStats struct {
	TotalUsers          int64            `json:"total_users"`
	ActiveUsers         int64            `json:"active_users"`
	NewUsersThisMonth   int64            `json:"new_users_this_month"`
	TotalDossiers       int64            `json:"total_dossiers"`
	DossiersByState     map[string]int64 `json:"dossiers_by_state"`
	LicensesIssued      int64            `json:"licenses_issued"`
	LicensesThisMonth   int64            `json:"licenses_this_month"`
	PendingReview       int64            `json:"pending_review"`
	FailedAttempts      int64            `json:"failed_attempts"`
	CompletedPayments   int64            `json:"completed_payments"`
	RevenueThisMonth    float64          `json:"revenue_this_month"`
}

type AdminUserFilter struct {
	utils.PaginationParams
	Role          *models.Role       `json:"role,omitempty"`
	Status        *models.UserStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time         `json:"created_after,omitempty"`
	CreatedBefore *time.Time         `json:"created_before,omitempty"`
}

type AdminAuditFilter struct {
	utils.PaginationParams
	DossierID     *uuid.UUID         `json:"dossier_id,omitempty"`
	PerformedBy   *uuid.UUID         `json:"performed_by,omitempty"`
	Action        *models.ActionName `json:"action,omitempty"`
	Succeeded     *bool              `json:"succeeded,omitempty"`
	CreatedAfter  *time.Time         `json:"created_after,omitempty"`
	CreatedBefore *time.Time         `json:"created_before,omitempty"`
}

type CreateStaffRequest struct {
	Username string      `json:"username" validate:"required,username,min=3,max=50"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,strong_password"`
	Role     models.Role `json:"role" validate:"required,oneof=agent commission president admin"`
}

func NewAdminService(db *gorm.DB, notificationService *NotificationService) *AdminService {
	return &AdminService{
		db:                  db,
		notificationService: notificationService,
	}
}

// Dashboard Statistics
func (s *AdminService) GetDashboardStats() (*AdminDashboardStats, error) {
	stats := &AdminDashboardStats{DossiersByState: make(map[string]int64)}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	// User statistics
	if err := s.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	s.db.Model(&models.User{}).Where("status = ?", models.UserStatusActive).Count(&stats.ActiveUsers)
	s.db.Model(&models.User{}).Where("created_at >= ?", monthStart).Count(&stats.NewUsersThisMonth)

	// Dossier statistics
	if err := s.db.Model(&models.Dossier{}).Count(&stats.TotalDossiers).Error; err != nil {
		return nil, fmt.Errorf("failed to count dossiers: %w", err)
	}

	rows, err := s.db.Model(&models.Dossier{}).
		Select("state, count(*) as count").
		Group("state").Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to count dossiers by state: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var state string
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan state count: %w", err)
		}
		stats.DossiersByState[state] = count
	}

	s.db.Model(&models.Dossier{}).Where("license_number IS NOT NULL").Count(&stats.LicensesIssued)
	s.db.Model(&models.Dossier{}).
		Where("license_number IS NOT NULL AND updated_at >= ?", monthStart).
		Count(&stats.LicensesThisMonth)
	s.db.Model(&models.Dossier{}).
		Where("state IN ?", []models.DossierState{
			models.StateSubmitted, models.StateAgentReview,
			models.StateCommissionReview, models.StatePresidentReview,
		}).Count(&stats.PendingReview)

	// Audit statistics
	s.db.Model(&models.TransitionRecord{}).Where("succeeded = ?", false).Count(&stats.FailedAttempts)

	// Payment statistics
	s.db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentStatusCompleted).
		Count(&stats.CompletedPayments)
	s.db.Model(&models.Payment{}).
		Where("status = ? AND completed_at >= ?", models.PaymentStatusCompleted, monthStart).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.RevenueThisMonth)

	return stats, nil
}

// User Management
func (s *AdminService) GetUsers(filter AdminUserFilter) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})

	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("username ILIKE ? OR email ILIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "username", "email", "role"})
	query = utils.ApplyPagination(query, filter.PaginationParams)
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

// CreateStaffUser provisions a reviewer account. Self-registration only
// ever produces applicants; every agent, commission member, president
// and admin account comes through here.
func (s *AdminService) CreateStaffUser(req *CreateStaffRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var existing models.User
	if err := s.db.Where("username = ? OR email = ?", req.Username, req.Email).
		First(&existing).Error; err == nil {
		return nil, errors.New("username or email already exists")
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
		Status:   models.UserStatusActive,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *AdminService) UpdateUserStatus(userID uuid.UUID, status models.UserStatus, adminID uuid.UUID, reason string) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("user not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if user.ID == adminID {
		return errors.New("cannot change your own account status")
	}

	oldStatus := user.Status
	user.Status = status
	if err := s.db.Save(&user).Error; err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}

	go s.sendUserStatusNotification(&user, oldStatus, reason)

	return nil
}

// UpdateUserRole reassigns a staff member's role. Applicants with open
// dossiers cannot be promoted; their dossiers would be orphaned
// mid-review.
func (s *AdminService) UpdateUserRole(userID uuid.UUID, role models.Role, adminID uuid.UUID) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("user not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if user.ID == adminID {
		return errors.New("cannot change your own role")
	}

	if user.Role == models.RoleApplicant && role != models.RoleApplicant {
		var open int64
		s.db.Model(&models.Dossier{}).
			Where("applicant_id = ? AND state NOT IN ?", user.ID,
				[]models.DossierState{models.StateApproved, models.StateRejected}).
			Count(&open)
		if open > 0 {
			return errors.New("user has open dossiers")
		}
	}

	user.Role = role
	if err := s.db.Save(&user).Error; err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}

	return nil
}

// Audit Trail
func (s *AdminService) GetTransitionRecords(filter AdminAuditFilter) ([]models.TransitionRecord, int64, error) {
	query := s.db.Model(&models.TransitionRecord{})

	if filter.DossierID != nil {
		query = query.Where("dossier_id = ?", *filter.DossierID)
	}
	if filter.PerformedBy != nil {
		query = query.Where("performed_by = ?", *filter.PerformedBy)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.Succeeded != nil {
		query = query.Where("succeeded = ?", *filter.Succeeded)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	var records []models.TransitionRecord
	query = query.Preload("Performer").Order("created_at ASC")
	query = utils.ApplyPagination(query, filter.PaginationParams)
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch records: %w", err)
	}

	return records, total, nil
}

func (s *AdminService) sendUserStatusNotification(user *models.User, oldStatus models.UserStatus, reason string) {
	if s.notificationService == nil {
		return
	}
	if err := s.notificationService.SendUserStatusChangeNotification(user, oldStatus, reason); err != nil {
		fmt.Printf("Failed to send status notification: %v\n", err)
	}
}
