// internal/handlers/notification.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medcouncil/registry-backend/internal/services"
	"github.com/medcouncil/registry-backend/internal/utils"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GET /notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.notificationService.GetUserNotifications(userID, unreadOnly)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch notifications")
		return
	}

	utils.SuccessResponse(c, gin.H{"notifications": notifications})
}

// PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid notification ID", nil)
		return
	}

	if err := h.notificationService.MarkNotificationRead(userID, notificationID); err != nil {
		utils.InternalErrorResponse(c, "Failed to mark notification read")
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Notification marked as read"})
}
