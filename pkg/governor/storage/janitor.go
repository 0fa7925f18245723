package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor prunes stale domain records on a cron schedule.
//
// Common schedules:
//   - "*/10 * * * *"  every ten minutes
//   - "0 * * * *"     hourly
//   - "0 3 * * *"     daily at 3 AM
type Janitor struct {
	backend   Backend
	retention time.Duration
	schedule  string

	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewJanitor creates a janitor that deletes records older than retention on
// the given cron schedule.
func NewJanitor(backend Backend, schedule string, retention time.Duration) *Janitor {
	return &Janitor{
		backend:   backend,
		retention: retention,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    slog.Default().With("component", "storage.janitor"),
	}
}

// Start schedules the cleanup job. An empty schedule disables the janitor
// without error; an invalid schedule is rejected.
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return nil
	}
	if j.schedule == "" {
		j.logger.Info("cleanup schedule not configured, janitor disabled")
		return nil
	}

	if _, err := cron.ParseStandard(j.schedule); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", j.schedule, err)
	}

	if _, err := j.cron.AddFunc(j.schedule, j.run); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}

	j.cron.Start()
	j.running = true

	j.logger.Info("storage janitor started",
		"schedule", j.schedule,
		"retention", j.retention,
	)
	return nil
}

// Stop halts the schedule, waiting for an in-flight run to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	<-j.cron.Stop().Done()
	j.running = false
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-j.retention)
	deleted, err := j.backend.Cleanup(ctx, cutoff)
	if err != nil {
		j.logger.Warn("storage cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		j.logger.Info("storage cleanup complete", "deleted", deleted)
	}
}
