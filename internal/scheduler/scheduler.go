// Package scheduler owns the sweep cadence. It is an explicit component
// with deterministic Start and Stop, so restarts cannot leave duplicate
// timers running.
package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/taskhive/go-reminder-service/internal/metrics"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
)

// Sweeper runs one due-notification sweep to completion
type Sweeper interface {
	Run(ctx context.Context) error
}

// SweepDriver fires the sweep on a fixed cron cadence. It owns no schedule
// state of its own.
type SweepDriver struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
	log      *logger.Logger
	entryID  cron.EntryID
	running  bool
	mu       sync.Mutex
	sweepMu  sync.Mutex
}

// NewSweepDriver creates a new sweep driver. schedule is a standard
// five-field cron expression.
func NewSweepDriver(sweeper Sweeper, schedule string, log *logger.Logger) *SweepDriver {
	return &SweepDriver{
		cron:     cron.New(),
		sweeper:  sweeper,
		schedule: schedule,
		log:      log,
	}
}

// Start registers the sweep job and starts the cadence. Calling Start on a
// running driver is a no-op.
func (d *SweepDriver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}

	entryID, err := d.cron.AddFunc(d.schedule, d.tick)
	if err != nil {
		return err
	}

	d.entryID = entryID
	d.running = true
	d.cron.Start()
	d.log.Info("Sweep driver started", "schedule", d.schedule)
	return nil
}

// Stop halts the cadence and waits for an in-flight sweep to finish
func (d *SweepDriver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}

	ctx := d.cron.Stop()
	<-ctx.Done()
	d.running = false
	d.log.Info("Sweep driver stopped")
}

// tick runs one sweep. If the previous sweep is still running the tick is
// skipped rather than queued: overlapping sweeps would only be loosely
// guarded by the store's idempotent create.
func (d *SweepDriver) tick() {
	if !d.sweepMu.TryLock() {
		d.log.Warn("Previous sweep still running, skipping tick")
		metrics.SweepsTotal.WithLabelValues("cron", "skipped").Inc()
		return
	}
	defer d.sweepMu.Unlock()

	if err := d.sweeper.Run(context.Background()); err != nil {
		d.log.Error("Sweep failed", "error", err)
		metrics.SweepsTotal.WithLabelValues("cron", "error").Inc()
		return
	}
	metrics.SweepsTotal.WithLabelValues("cron", "success").Inc()
}

// RunNow executes a sweep immediately, serialized against cron ticks. Used
// by the HTTP trigger and by the task event consumer so freshly due
// notifications are not delayed by a full polling interval.
func (d *SweepDriver) RunNow(ctx context.Context, trigger string) error {
	d.sweepMu.Lock()
	defer d.sweepMu.Unlock()

	if err := d.sweeper.Run(ctx); err != nil {
		metrics.SweepsTotal.WithLabelValues(trigger, "error").Inc()
		return err
	}
	metrics.SweepsTotal.WithLabelValues(trigger, "success").Inc()
	return nil
}
