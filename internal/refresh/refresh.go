// Package refresh runs the working-hours refresh and a rescan on a cron
// schedule.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/logging"
	"github.com/example/shift-scheduler/internal/scheduler"
)

// Service is the part of application.ConflictService the refresher drives.
type Service interface {
	RefreshWorkingHours(ctx context.Context) ([]scheduler.Profile, error)
	Scan(ctx context.Context) (application.ScanResult, error)
}

// Refresher recomputes profile working hours from the snapshot and rescans,
// either on demand or on a cron schedule.
type Refresher struct {
	service Service
	logger  *slog.Logger
	cron    *cron.Cron

	mu      sync.Mutex
	running bool
}

// New parses spec, a standard five-field cron expression or a descriptor
// such as "@hourly", and returns a stopped refresher.
func New(spec string, service Service, logger *slog.Logger) (*Refresher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Refresher{
		service: service,
		logger:  logger.With("component", "refresh"),
		cron:    cron.New(),
	}
	if _, err := r.cron.AddFunc(spec, r.tick); err != nil {
		return nil, fmt.Errorf("refresh: invalid schedule %q: %w", spec, err)
	}
	return r, nil
}

// Start begins running the job in the background.
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running job, or for ctx to end.
func (r *Refresher) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce refreshes working hours and rescans the snapshot.
func (r *Refresher) RunOnce(ctx context.Context) (application.ScanResult, error) {
	profiles, err := r.service.RefreshWorkingHours(ctx)
	if err != nil {
		return application.ScanResult{}, fmt.Errorf("refresh working hours: %w", err)
	}
	result, err := r.service.Scan(ctx)
	if err != nil {
		return application.ScanResult{}, fmt.Errorf("rescan: %w", err)
	}
	r.logger.InfoContext(ctx, "refresh completed", "profiles", len(profiles), "conflicts", result.Conflicts, "state", result.State)
	return result, nil
}

// tick skips a run while the previous one is still in progress.
func (r *Refresher) tick() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Warn("previous refresh still running, skipping")
		return
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ctx := logging.ContextWithLogger(context.Background(), r.logger)
	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error("scheduled refresh failed", "error", err, "error_kind", application.ErrorKind(err))
	}
}
