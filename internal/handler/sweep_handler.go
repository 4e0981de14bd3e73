package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/scheduler"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
)

// SweepHandler exposes the sweep trigger endpoint for external schedulers
type SweepHandler struct {
	driver *scheduler.SweepDriver
	log    *logger.Logger
}

// NewSweepHandler creates a new sweep handler
func NewSweepHandler(driver *scheduler.SweepDriver, log *logger.Logger) *SweepHandler {
	return &SweepHandler{driver: driver, log: log}
}

// TriggerSweep runs one sweep synchronously. No body required; intended
// for an external cron and for inline invocation after task mutations.
func (h *SweepHandler) TriggerSweep(c *gin.Context) {
	if err := h.driver.RunNow(c.Request.Context(), "http"); err != nil {
		h.log.Error("Triggered sweep failed", "error", err)
		c.JSON(http.StatusInternalServerError, domain.SweepResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, domain.SweepResponse{Success: true})
}
