// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/medcouncil/registry-backend/internal/config"
	"github.com/medcouncil/registry-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Dossier{},
		&models.TransitionRecord{},
		&models.LicenseSequence{},
		&models.DossierDocument{},
		&models.Payment{},
		&models.Notification{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_role_status ON users(role, status)",

		// Dossier indexes
		"CREATE INDEX IF NOT EXISTS idx_dossiers_applicant ON dossiers(applicant_id)",
		"CREATE INDEX IF NOT EXISTS idx_dossiers_state ON dossiers(state)",
		"CREATE INDEX IF NOT EXISTS idx_dossiers_specialty ON dossiers(specialty)",
		"CREATE INDEX IF NOT EXISTS idx_dossiers_license_code ON dossiers(license_code)",
		"CREATE INDEX IF NOT EXISTS idx_dossiers_created_at ON dossiers(created_at DESC)",

		// Transition record indexes
		"CREATE INDEX IF NOT EXISTS idx_transition_records_dossier ON transition_records(dossier_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_transition_records_performer ON transition_records(performed_by)",
		"CREATE INDEX IF NOT EXISTS idx_transition_records_outcome ON transition_records(succeeded, created_at DESC)",

		// Payment indexes
		"CREATE INDEX IF NOT EXISTS idx_payments_dossier_status ON payments(dossier_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_payments_reference ON payments(reference)",

		// Document and notification indexes
		"CREATE INDEX IF NOT EXISTS idx_dossier_documents_dossier ON dossier_documents(dossier_id)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// The license sequence row must exist before the first approval.
	var seqCount int64
	db.Model(&models.LicenseSequence{}).Where("name = ?", LicenseSequenceName).Count(&seqCount)
	if seqCount == 0 {
		seq := &models.LicenseSequence{Name: LicenseSequenceName, LastValue: 0}
		if err := db.Create(seq).Error; err != nil {
			return fmt.Errorf("failed to create license sequence: %w", err)
		}
	}

	// One account per review role so a fresh install can process a
	// dossier end to end.
	staff := []struct {
		username string
		email    string
		role     models.Role
	}{
		{"admin", "admin@medcouncil.org", models.RoleAdmin},
		{"intake.agent", "intake@medcouncil.org", models.RoleAgent},
		{"commission.chair", "commission@medcouncil.org", models.RoleCommission},
		{"council.president", "president@medcouncil.org", models.RolePresident},
	}

	for _, member := range staff {
		var count int64
		db.Model(&models.User{}).Where("username = ?", member.username).Count(&count)
		if count > 0 {
			continue
		}

		user := &models.User{
			Username: member.username,
			Email:    member.email,
			Role:     member.role,
			Status:   models.UserStatusActive,
		}
		if err := user.SetPassword("ChangeMe123!@#"); err != nil {
			return fmt.Errorf("failed to set password for %s: %w", member.username, err)
		}
		if err := db.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create %s user: %w", member.username, err)
		}
		log.Printf("Seeded %s account (%s)", member.role, member.username)
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
