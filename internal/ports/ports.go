package ports

import (
	"context"
	"time"

	"BulletinBriefs/internal/domain"
)

// ArticleStore reads published articles and applies single-field fixes.
type ArticleStore interface {
	ListPublished(ctx context.Context, now time.Time) ([]domain.Article, error)
	GetArticle(ctx context.Context, id string) (domain.Article, error)
	UpdateArticleField(ctx context.Context, id string, field domain.ArticleField, value string) error
}

// IssueLog persists seo_health_log rows.
type IssueLog interface {
	DeleteOpenIssuesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	InsertIssue(ctx context.Context, issue domain.SEOIssue) error
	ListIssues(ctx context.Context, filter domain.IssueFilter) ([]domain.SEOIssue, error)
}

// VerificationStore persists seo_autofix_verification rows.
type VerificationStore interface {
	CreateVerification(ctx context.Context, rec domain.VerificationRecord) error
	GetVerification(ctx context.Context, id string) (domain.VerificationRecord, error)
	ListPendingVerifications(ctx context.Context, limit int) ([]domain.VerificationRecord, error)
	ListVerifications(ctx context.Context, filter domain.VerificationFilter) ([]domain.VerificationRecord, error)
	UpdateVerification(ctx context.Context, rec domain.VerificationRecord) error
}

// PageFetcher loads a live URL without following redirects.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (domain.PageSnapshot, error)
}

// ContentGenerator expands thin article bodies with an LLM.
type ContentGenerator interface {
	ExpandContent(ctx context.Context, article domain.Article) (string, error)
}

// Drafter asks an LLM for a complete news article draft.
type Drafter interface {
	DraftArticle(ctx context.Context, brief domain.DraftBrief) (domain.NewsDraft, error)
}

// Indexer requests a search-engine re-crawl of a URL.
type Indexer interface {
	RequestIndexing(ctx context.Context, url string) error
}

// IndexInspector reports whether a URL is indexed.
type IndexInspector interface {
	InspectIndexStatus(ctx context.Context, url string) (domain.GSCStatus, error)
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	Publish(ctx context.Context, message string) error
}

// VerificationQueue holds delayed verification jobs.
type VerificationQueue interface {
	Enqueue(ctx context.Context, job domain.VerificationJob) error
	// Due removes and returns the jobs whose DueAt is not after now.
	Due(ctx context.Context, now time.Time) ([]domain.VerificationJob, error)
}

// Scheduler controls when periodic scans execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
