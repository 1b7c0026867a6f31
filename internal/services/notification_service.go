// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medcouncil/registry-backend/internal/config"
	"github.com/medcouncil/registry-backend/internal/models"
)

type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

type NotificationRequest struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	Type      string    `json:"type" validate:"required"`
	Title     string    `json:"title" validate:"required"`
	Message   string    `json:"message" validate:"required"`
	SendEmail bool      `json:"send_email,omitempty"`
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

// Authentication notifications
func (s *NotificationService) SendWelcomeEmail(user *models.User) error {
	template := s.getEmailTemplate("welcome")

	data := map[string]interface{}{
		"Username":     user.Username,
		"PortalURL":    s.config.Frontend.BaseURL,
		"PlatformName": "Medical Council Registry",
	}

	subject := "Welcome to the Medical Council Registry"
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, subject, body)
}

// Dossier notifications
func (s *NotificationService) SendDossierSubmittedNotification(dossier *models.Dossier) error {
	applicant, err := s.dossierApplicant(dossier)
	if err != nil {
		return err
	}

	if err := s.createNotification(applicant.ID, "dossier_submitted",
		"Application Submitted",
		fmt.Sprintf("Your application for %s has been submitted for review.", dossier.Specialty),
		dossier.ID); err != nil {
		return err
	}

	data := map[string]interface{}{
		"ApplicantName": applicant.Username,
		"Specialty":     dossier.Specialty,
		"DossierURL":    fmt.Sprintf("%s/dossiers/%s", s.config.Frontend.BaseURL, dossier.ID),
	}

	subject := "Application Submitted - " + dossier.Specialty
	template := s.getEmailTemplate("dossier_submitted")
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(applicant.Email, subject, body)
}

func (s *NotificationService) SendDossierApprovedNotification(dossier *models.Dossier) error {
	applicant, err := s.dossierApplicant(dossier)
	if err != nil {
		return err
	}

	if err := s.createNotification(applicant.ID, "dossier_approved",
		"Application Approved",
		fmt.Sprintf("Your application has been approved. Your license number is %s.", dossier.LicenseCode),
		dossier.ID); err != nil {
		return err
	}

	data := map[string]interface{}{
		"ApplicantName": applicant.Username,
		"Specialty":     dossier.Specialty,
		"LicenseCode":   dossier.LicenseCode,
		"DossierURL":    fmt.Sprintf("%s/dossiers/%s", s.config.Frontend.BaseURL, dossier.ID),
	}

	subject := "License Granted - " + dossier.LicenseCode
	template := s.getEmailTemplate("dossier_approved")
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(applicant.Email, subject, body)
}

func (s *NotificationService) SendDossierRejectedNotification(dossier *models.Dossier) error {
	applicant, err := s.dossierApplicant(dossier)
	if err != nil {
		return err
	}

	if err := s.createNotification(applicant.ID, "dossier_rejected",
		"Application Rejected",
		fmt.Sprintf("Your application was rejected: %s", dossier.RejectionReason),
		dossier.ID); err != nil {
		return err
	}

	data := map[string]interface{}{
		"ApplicantName": applicant.Username,
		"Specialty":     dossier.Specialty,
		"Reason":        dossier.RejectionReason,
	}

	subject := "Application Rejected - " + dossier.Specialty
	template := s.getEmailTemplate("dossier_rejected")
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(applicant.Email, subject, body)
}

// Payment notifications
func (s *NotificationService) SendPaymentConfirmationNotification(payment *models.Payment) error {
	var payer models.User
	if err := s.db.First(&payer, "id = ?", payment.PayerID).Error; err != nil {
		return fmt.Errorf("payer not found: %w", err)
	}

	data := map[string]interface{}{
		"PayerName": payer.Username,
		"Amount":    payment.Amount,
		"Currency":  payment.Currency,
		"Reference": payment.Reference,
	}

	subject := "Payment Received"
	template := s.getEmailTemplate("payment_confirmation")
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(payer.Email, subject, body)
}

// Admin notifications
func (s *NotificationService) SendUserStatusChangeNotification(user *models.User, oldStatus models.UserStatus, reason string) error {
	data := map[string]interface{}{
		"Username":  user.Username,
		"NewStatus": user.Status,
		"OldStatus": oldStatus,
		"Reason":    reason,
	}

	subject := "Account Status Update"
	template := s.getEmailTemplate("user_status_change")
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, subject, body)
}

// Generic notification methods
func (s *NotificationService) SendCustomNotification(req *NotificationRequest) error {
	notification := &models.Notification{
		UserID:  req.UserID,
		Type:    req.Type,
		Title:   req.Title,
		Message: req.Message,
	}

	if err := s.db.Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if req.SendEmail {
		var user models.User
		if err := s.db.First(&user, "id = ?", req.UserID).Error; err != nil {
			return fmt.Errorf("user not found: %w", err)
		}

		return s.sendEmail(user.Email, req.Title, req.Message)
	}

	return nil
}

func (s *NotificationService) GetUserNotifications(userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	query := s.db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(100).Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, nil
}

func (s *NotificationService) MarkNotificationRead(userID, notificationID uuid.UUID) error {
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Update("read_at", gorm.Expr("NOW()"))
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}

	return nil
}

// Helper methods
func (s *NotificationService) dossierApplicant(dossier *models.Dossier) (*models.User, error) {
	var applicant models.User
	if err := s.db.First(&applicant, "id = ?", dossier.ApplicantID).Error; err != nil {
		return nil, fmt.Errorf("applicant not found: %w", err)
	}
	return &applicant, nil
}

func (s *NotificationService) createNotification(userID uuid.UUID, notifType, title, message string, dossierID uuid.UUID) error {
	notification := &models.Notification{
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		DossierID: &dossierID,
	}

	if err := s.db.Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		fmt.Printf("Email would be sent to %s: %s\n", to, subject)
		return nil
	}

	// Setup authentication
	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	// Compose message
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	// Send email
	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	// In a real implementation, these would be loaded from files or database
	templates := map[string]EmailTemplate{
		"dossier_approved": {
			Subject: "License Granted",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Congratulations {{.ApplicantName}}!</h2>
	<p>Your application for {{.Specialty}} has been approved.</p>
	<p>Your license number is <strong>{{.LicenseCode}}</strong>.</p>
	<a href="{{.DossierURL}}">View Your Application</a>
	<p>Best regards,<br>Medical Council Registry</p>
</body>
</html>`,
		},
		"dossier_rejected": {
			Subject: "Application Rejected",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.ApplicantName}},</h2>
	<p>Your application for {{.Specialty}} has been rejected.</p>
	<p>Reason: {{.Reason}}</p>
	<p>Best regards,<br>Medical Council Registry</p>
</body>
</html>`,
		},
		// Add more templates as needed...
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
