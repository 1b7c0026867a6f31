// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/medcouncil/registry-backend/internal/config"
	"github.com/medcouncil/registry-backend/internal/database"
	"github.com/medcouncil/registry-backend/internal/handlers"
	"github.com/medcouncil/registry-backend/internal/middleware"
	"github.com/medcouncil/registry-backend/internal/services"
	"github.com/medcouncil/registry-backend/internal/utils"
	"github.com/medcouncil/registry-backend/internal/workflow"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(db, cfg)
	storageService, _ := services.NewStorageService(cfg)
	paymentService := services.NewPaymentService(db, cfg)

	// Workflow engine over the database-backed store. Roles come from
	// the user table, not from token claims.
	engineOpts := []workflow.Option{
		workflow.WithLicensePrefix(cfg.Workflow.LicensePrefix),
		workflow.WithLogger(logrus.WithField("component", "workflow")),
	}
	if cfg.Workflow.RequirePayment {
		engineOpts = append(engineOpts, workflow.WithApprovalGate(paymentService))
	}
	engine := workflow.NewEngine(
		database.NewDossierStore(db),
		database.NewRoleDirectory(db),
		engineOpts...,
	)

	authService := services.NewAuthService(db, cfg)
	dossierService := services.NewDossierService(db, engine, notificationService)
	adminService := services.NewAdminService(db, notificationService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	dossierHandler := handlers.NewDossierHandler(dossierService, storageService)
	registryHandler := handlers.NewRegistryHandler(dossierService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, cfg)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Public license register
		registry := v1.Group("/registry")
		registry.Use(middleware.RegistryLookupRateLimit(), middleware.OptionalAuth())
		{
			registry.GET("/:code", registryHandler.LookupLicense)
		}

		// Dossier routes
		dossiers := v1.Group("/dossiers")
		dossiers.Use(middleware.AuthRequired())
		{
			dossiers.POST("", dossierHandler.CreateDossier)
			dossiers.GET("", dossierHandler.ListDossiers)
			dossiers.GET("/statistics", middleware.StaffRequired(), dossierHandler.GetStatistics)
			dossiers.GET("/:id", dossierHandler.GetDossier)
			dossiers.GET("/:id/history", dossierHandler.GetHistory)
			dossiers.POST("/:id/actions", dossierHandler.ExecuteAction)
			dossiers.POST("/:id/documents", middleware.UploadRateLimit(), dossierHandler.UploadDocument)
			dossiers.GET("/:id/payments", paymentHandler.GetDossierPayments)
		}

		// Payment routes
		payments := v1.Group("/payments")
		{
			payments.POST("/mobile-money/callback", paymentHandler.MobileMoneyCallback)

			protected := payments.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("/intent", paymentHandler.CreatePaymentIntent)
				protected.POST("/confirm", paymentHandler.ConfirmPayment)
				protected.POST("/mobile-money", paymentHandler.InitiateMobileMoney)
			}
		}

		// Notification routes
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard", adminHandler.GetDashboard)
			admin.GET("/users", adminHandler.GetUsers)
			admin.POST("/users", adminHandler.CreateStaffUser)
			admin.PATCH("/users/:id/status", adminHandler.UpdateUserStatus)
			admin.PATCH("/users/:id/role", adminHandler.UpdateUserRole)
			admin.GET("/audit", adminHandler.GetAuditRecords)
		}
	}

	return r
}
