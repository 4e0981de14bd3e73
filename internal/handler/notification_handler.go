package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/repository"
	"github.com/taskhive/go-reminder-service/internal/shared/errors"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
)

// NotificationHandler exposes the notification record listing for operators
type NotificationHandler struct {
	repo *repository.NotificationRecordRepository
	log  *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(repo *repository.NotificationRecordRepository, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, log: log}
}

// GetNotifications lists notification records with pagination
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	var req domain.GetNotificationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	records, total, err := h.repo.Find(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to list notifications", "error", err)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to list notifications", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      records,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
	})
}
