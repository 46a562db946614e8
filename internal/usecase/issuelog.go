package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
)

// IssueLogger persists scan findings to the health log.
type IssueLogger struct {
	store     ports.IssueLog
	retention time.Duration
	logger    *slog.Logger
}

// NewIssueLogger keeps open issues for retention; zero means 24h.
func NewIssueLogger(store ports.IssueLog, retention time.Duration, logger *slog.Logger) *IssueLogger {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IssueLogger{store: store, retention: retention, logger: logger}
}

// Cleanup deletes open issues detected more than the retention window before now.
func (l *IssueLogger) Cleanup(ctx context.Context, now time.Time) (int64, error) {
	n, err := l.store.DeleteOpenIssuesBefore(ctx, now.Add(-l.retention))
	if err != nil {
		return 0, fmt.Errorf("cleanup issues: %w", err)
	}
	if n > 0 {
		l.logger.Info("deleted stale open issues", "count", n)
	}
	return n, nil
}

// Record inserts issue. Issues whose fix was attempted are stored resolved.
func (l *IssueLogger) Record(ctx context.Context, issue domain.SEOIssue) (domain.SEOIssue, error) {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if issue.DetectedAt.IsZero() {
		issue.DetectedAt = time.Now()
	}
	if issue.AutoFixAttempted {
		issue.Status = domain.IssueResolved
		issue.ResolutionStatus = domain.ResolutionAutoFixed
	} else {
		issue.Status = domain.IssueOpen
		issue.ResolutionStatus = ""
	}

	if err := l.store.InsertIssue(ctx, issue); err != nil {
		return issue, fmt.Errorf("record issue: %w", err)
	}
	return issue, nil
}

// List returns logged issues matching filter.
func (l *IssueLogger) List(ctx context.Context, filter domain.IssueFilter) ([]domain.SEOIssue, error) {
	return l.store.ListIssues(ctx, filter)
}
