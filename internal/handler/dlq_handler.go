package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/go-reminder-service/internal/dlq"
	"github.com/taskhive/go-reminder-service/internal/shared/errors"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
)

// DLQHandler exposes the dead letter queue for operators
type DLQHandler struct {
	queue *dlq.DeadLetterQueue
	store dlq.Requeuer
	log   *logger.Logger
}

// NewDLQHandler creates a new DLQ handler
func NewDLQHandler(queue *dlq.DeadLetterQueue, store dlq.Requeuer, log *logger.Logger) *DLQHandler {
	return &DLQHandler{queue: queue, store: store, log: log}
}

// GetFailedNotifications lists dead lettered notifications
func (h *DLQHandler) GetFailedNotifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	failed, total, err := h.queue.GetAll(c.Request.Context(), page, pageSize)
	if err != nil {
		h.log.Error("Failed to list dead lettered notifications", "error", err)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to list dead lettered notifications", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      failed,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// RetryNotification re-queues one dead lettered notification
func (h *DLQHandler) RetryNotification(c *gin.Context) {
	id := c.Param("id")

	if err := h.queue.Retry(c.Request.Context(), id, h.store); err != nil {
		h.log.Error("Failed to retry dead lettered notification", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to retry notification", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification requeued",
	})
}
