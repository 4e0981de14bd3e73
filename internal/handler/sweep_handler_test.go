package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/scheduler"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
)

type stubSweeper struct {
	err error
}

func (s *stubSweeper) Run(_ context.Context) error {
	return s.err
}

func newSweepRouter(sweepErr error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger()
	driver := scheduler.NewSweepDriver(&stubSweeper{err: sweepErr}, "* * * * *", log)
	h := NewSweepHandler(driver, log)

	router := gin.New()
	router.POST("/internal/sweep", h.TriggerSweep)
	return router
}

func TestTriggerSweep(t *testing.T) {
	router := newSweepRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/internal/sweep", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp domain.SweepResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if !resp.Success {
		t.Errorf("Success = false, want true")
	}
}

func TestTriggerSweepReportsFailure(t *testing.T) {
	router := newSweepRouter(errors.New("mongo unavailable"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/internal/sweep", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var resp domain.SweepResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Success || resp.Error == "" {
		t.Errorf("response = %+v, want failure with an error message", resp)
	}
}
