package usecase

import (
	"context"
	"log/slog"
	"time"

	"BulletinBriefs/internal/ports"
)

// Scheduler wires the periodic driver with the health scan.
type Scheduler struct {
	driver  ports.Scheduler
	scanner *HealthScanner
	logger  *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring scans.
func NewScheduler(driver ports.Scheduler, scanner *HealthScanner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, scanner: scanner, logger: logger}
}

// Start registers the scan with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.scanner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled scan triggered", "at", trigger)
		if _, err := s.scanner.Scan(ctx); err != nil {
			s.logger.Error("scheduled scan failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
