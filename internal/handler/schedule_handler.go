package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/planner"
	"github.com/taskhive/go-reminder-service/internal/shared/errors"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
)

// ScheduleHandler exposes the scheduling entry points consumed by task
// mutation code
type ScheduleHandler struct {
	planner *planner.Planner
	log     *logger.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(pl *planner.Planner, log *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{planner: pl, log: log}
}

// ScheduleTask plans notifications for a task. Stale pending records are
// cancelled first, so due-date edits replace records instead of mutating
// them.
func (h *ScheduleHandler) ScheduleTask(c *gin.Context) {
	var req domain.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	if req.Task.ID == "" {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("task.id is required", nil))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.planner.CancelForTask(ctx, req.Task.ID); err != nil {
		h.log.Error("Failed to cancel stale notifications", "error", err, "task_id", req.Task.ID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to cancel stale notifications", err))
		return
	}

	created, err := h.planner.ScheduleForTask(ctx, &req.Task)
	if err != nil {
		h.log.Error("Failed to schedule notifications", "error", err, "task_id", req.Task.ID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to schedule notifications", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Notifications scheduled",
		"created": created,
	})
}

// CancelTask deletes all pending notifications for a task
func (h *ScheduleHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("taskId is required", nil))
		return
	}

	deleted, err := h.planner.CancelForTask(c.Request.Context(), taskID)
	if err != nil {
		h.log.Error("Failed to cancel notifications", "error", err, "task_id", taskID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to cancel notifications", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notifications cancelled",
		"deleted": deleted,
	})
}
