package usecase

import (
	"context"
	"log/slog"
	"time"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
)

// VerificationWorker polls the delayed-job queue and runs the verification
// pass when a job comes due. Several due jobs collapse into one pass.
type VerificationWorker struct {
	queue      ports.VerificationQueue
	pass       *VerificationPass
	interval   time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewVerificationWorker(queue ports.VerificationQueue, pass *VerificationPass, interval time.Duration, logger *slog.Logger) *VerificationWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	retryDelay := 15 * time.Minute
	if pass != nil && pass.delay > 0 {
		retryDelay = pass.delay
	}
	return &VerificationWorker{
		queue:      queue,
		pass:       pass,
		interval:   interval,
		retryDelay: retryDelay,
		logger:     logger,
		now:        time.Now,
	}
}

// Run polls until ctx is cancelled.
func (w *VerificationWorker) Run(ctx context.Context) error {
	if w.queue == nil || w.pass == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.Poll(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll claims due jobs once and runs a pass if any were claimed. It reports
// whether a pass ran. Jobs claimed for a pass that failed are put back with
// a fresh delay.
func (w *VerificationWorker) Poll(ctx context.Context) bool {
	jobs, err := w.queue.Due(ctx, w.now())
	if err != nil {
		w.logger.Error("poll verification queue failed", "error", err, "claimed", len(jobs))
	}
	if len(jobs) == 0 {
		return false
	}

	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}
	w.logger.Info("verification jobs due", "jobs", ids)

	if _, err := w.pass.Run(ctx); err != nil {
		w.logger.Error("verification pass failed", "error", err)
		w.requeue(context.WithoutCancel(ctx), jobs)
	}
	return true
}

func (w *VerificationWorker) requeue(ctx context.Context, jobs []domain.VerificationJob) {
	due := w.now().Add(w.retryDelay)
	for _, job := range jobs {
		job.DueAt = due
		if err := w.queue.Enqueue(ctx, job); err != nil {
			w.logger.Error("requeue verification job failed", "job", job.ID, "error", err)
		}
	}
}
