package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"BulletinBriefs/internal/config"
	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
	"BulletinBriefs/internal/scanner"
	"BulletinBriefs/internal/seo"
	"BulletinBriefs/internal/tasks"
)

// ScannerDeps wires all driven adapters into the health scan.
type ScannerDeps struct {
	Articles ports.ArticleStore
	Issues   *IssueLogger
	Fixer    *AutoFixer
	Fetcher  ports.PageFetcher
	Indexer  ports.Indexer
	Queue    ports.VerificationQueue
	Notifier ports.Notifier
	Rules    *scanner.Registry

	Site              config.SiteConfig
	Scan              config.ScanConfig
	VerificationDelay time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// ScanReport summarizes one scan for the caller and the admin channel.
type ScanReport struct {
	ScanID             string                   `json:"scan_id"`
	StartedAt          time.Time                `json:"started_at"`
	FinishedAt         time.Time                `json:"finished_at"`
	Articles           int                      `json:"articles"`
	FetchFailures      int                      `json:"fetch_failures"`
	Issues             int                      `json:"issues"`
	IssuesByType       map[domain.IssueType]int `json:"issues_by_type"`
	FixesApplied       int                      `json:"fixes_applied"`
	FixFailures        int                      `json:"fix_failures"`
	IssueLogFailures   int                      `json:"issue_log_failures"`
	StaleIssuesDeleted int64                    `json:"stale_issues_deleted"`
	Reindex            []tasks.Snapshot         `json:"reindex"`
	VerificationJob    *domain.VerificationJob  `json:"verification_job,omitempty"`
}

// HealthScanner runs the scan -> auto-fix -> log workflow over every
// published article.
type HealthScanner struct {
	articles ports.ArticleStore
	issues   *IssueLogger
	fixer    *AutoFixer
	fetcher  ports.PageFetcher
	indexer  ports.Indexer
	queue    ports.VerificationQueue
	notifier ports.Notifier
	rules    *scanner.Registry

	site  config.SiteConfig
	scan  config.ScanConfig
	delay time.Duration

	logger *slog.Logger
	now    func() time.Time
}

// NewHealthScanner constructs the scan use case.
func NewHealthScanner(deps ScannerDeps) *HealthScanner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	rules := deps.Rules
	if rules == nil {
		rules = scanner.DefaultRegistry(deps.Scan.StaleAfter)
	}
	delay := deps.VerificationDelay
	if delay <= 0 {
		delay = 15 * time.Minute
	}
	return &HealthScanner{
		articles: deps.Articles,
		issues:   deps.Issues,
		fixer:    deps.Fixer,
		fetcher:  deps.Fetcher,
		indexer:  deps.Indexer,
		queue:    deps.Queue,
		notifier: deps.Notifier,
		rules:    rules,
		site:     deps.Site,
		scan:     deps.Scan,
		delay:    delay,
		logger:   logger,
		now:      now,
	}
}

// scanRun holds the per-invocation state of one scan.
type scanRun struct {
	report    *ScanReport
	runner    *tasks.Runner
	reindexed map[string]bool
}

// Scan executes one full health scan. Only a failure to list articles is
// returned; per-article failures are logged and counted in the report.
func (s *HealthScanner) Scan(ctx context.Context) (ScanReport, error) {
	if s.articles == nil {
		return ScanReport{}, errors.New("article store not configured")
	}

	started := s.now()
	report := ScanReport{
		ScanID:       uuid.NewString(),
		StartedAt:    started,
		IssuesByType: map[domain.IssueType]int{},
	}
	logger := s.logger.With("scan_id", report.ScanID)

	if s.issues != nil {
		deleted, err := s.issues.Cleanup(ctx, started)
		if err != nil {
			logger.Error("stale issue cleanup failed", "error", err)
		}
		report.StaleIssuesDeleted = deleted
	}

	articles, err := s.articles.ListPublished(ctx, started)
	if err != nil {
		return report, fmt.Errorf("list published articles: %w", err)
	}
	report.Articles = len(articles)
	logger.Info("scan started", "articles", len(articles))

	run := &scanRun{
		report:    &report,
		runner:    tasks.NewRunner(s.retryPolicy(), logger.With("component", "reindex")),
		reindexed: map[string]bool{},
	}

	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			logger.Warn("scan cancelled", "error", err)
			break
		}
		s.scanArticle(ctx, logger, run, article)
	}

	run.runner.Close()
	report.Reindex = run.runner.Snapshots()

	if report.FixesApplied > 0 {
		s.enqueueVerification(ctx, logger, &report)
	}

	report.FinishedAt = s.now()
	logger.Info("scan finished",
		"issues", report.Issues,
		"fixes_applied", report.FixesApplied,
		"fix_failures", report.FixFailures,
		"fetch_failures", report.FetchFailures,
	)
	s.notify(ctx, logger, FormatScanReport(report))
	return report, nil
}

func (s *HealthScanner) scanArticle(ctx context.Context, logger *slog.Logger, run *scanRun, article domain.Article) {
	permalink := seo.Permalink(s.site.BaseURL, s.site.ArticlePathPrefix, article.Slug)
	logger = logger.With("article_id", article.ID, "url", permalink)

	subject := scanner.Subject{Article: article, Permalink: permalink, Now: run.report.StartedAt}
	if s.fetcher != nil {
		page, err := s.fetcher.Fetch(ctx, permalink)
		if err != nil {
			run.report.FetchFailures++
			subject.FetchErr = err
			logger.Warn("live page fetch failed", "error", err)
		} else {
			subject.Page = &page
		}
	}

	findings := s.rules.Evaluate(subject)
	current := article
	contentFixed := false

	for _, finding := range findings {
		attempted := false
		if s.fixer != nil && s.fixer.Fixable(finding) {
			if finding.Fix == scanner.FixGenerateContent && contentFixed && s.scan.DedupeContentFixes {
				attempted = true
			} else {
				attempted = true
				updated, err := s.fixer.Apply(ctx, current, permalink, finding)
				if err != nil {
					run.report.FixFailures++
					logger.Error("auto-fix failed", "issue", finding.Type, "field", finding.Field, "error", err)
				} else {
					current = updated
					run.report.FixesApplied++
					if finding.Fix == scanner.FixGenerateContent {
						contentFixed = true
					}
					if finding.Reindex {
						s.requestReindex(ctx, run, permalink)
					}
				}
			}
		}

		s.logIssue(ctx, logger, run.report, domain.SEOIssue{
			URL:              permalink,
			Type:             finding.Type,
			Severity:         finding.Severity,
			Notes:            finding.Notes,
			ArticleID:        article.ID,
			AutoFixAttempted: attempted,
			DetectedAt:       run.report.StartedAt,
		})
	}

	if s.fresh(article, run.report.StartedAt) {
		s.requestReindex(ctx, run, permalink)
	}
}

func (s *HealthScanner) fresh(article domain.Article, now time.Time) bool {
	window := s.scan.FreshWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	if article.PublishedAt.IsZero() || article.PublishedAt.After(now) {
		return false
	}
	return now.Sub(article.PublishedAt) <= window
}

func (s *HealthScanner) logIssue(ctx context.Context, logger *slog.Logger, report *ScanReport, issue domain.SEOIssue) {
	report.Issues++
	report.IssuesByType[issue.Type]++
	if s.issues == nil {
		return
	}
	if _, err := s.issues.Record(ctx, issue); err != nil {
		report.IssueLogFailures++
		logger.Error("issue log write failed", "issue", issue.Type, "error", err)
	}
}

// requestReindex submits at most one indexing request per URL per scan.
func (s *HealthScanner) requestReindex(ctx context.Context, run *scanRun, url string) {
	if s.indexer == nil || run.reindexed[url] {
		return
	}
	run.reindexed[url] = true
	if _, err := run.runner.Submit(ctx, "reindex "+url, func(ctx context.Context) error {
		return s.indexer.RequestIndexing(ctx, url)
	}); err != nil {
		s.logger.Warn("reindex submit failed", "url", url, "error", err)
	}
}

// ForceReindex requests indexing of url and waits for the retries to finish.
func (s *HealthScanner) ForceReindex(ctx context.Context, url string) (tasks.Snapshot, error) {
	if s.indexer == nil {
		return tasks.Snapshot{}, errors.New("indexer not configured")
	}
	runner := tasks.NewRunner(s.retryPolicy(), s.logger.With("component", "reindex"))
	task, err := runner.Submit(ctx, "reindex "+url, func(ctx context.Context) error {
		return s.indexer.RequestIndexing(ctx, url)
	})
	if err != nil {
		return tasks.Snapshot{}, err
	}
	runner.Close()
	return task.Snapshot(), nil
}

func (s *HealthScanner) enqueueVerification(ctx context.Context, logger *slog.Logger, report *ScanReport) {
	if s.queue == nil {
		return
	}
	now := s.now()
	job := domain.VerificationJob{
		ID:         uuid.NewString(),
		ScanID:     report.ScanID,
		Reason:     fmt.Sprintf("%d fixes applied", report.FixesApplied),
		DueAt:      now.Add(s.delay),
		EnqueuedAt: now,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		logger.Error("enqueue verification job failed", "error", err)
		return
	}
	report.VerificationJob = &job
}

func (s *HealthScanner) retryPolicy() tasks.Policy {
	r := s.scan.Reindex
	return tasks.Policy{MaxAttempts: r.MaxAttempts, InitialBackoff: r.InitialBackoff, MaxBackoff: r.MaxBackoff}
}

func (s *HealthScanner) notify(ctx context.Context, logger *slog.Logger, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, message); err != nil {
		logger.Warn("publish summary failed", "error", err)
	}
}

// FormatScanReport renders the admin summary of a scan.
func FormatScanReport(r ScanReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SEO health scan %s\n", r.ScanID)
	fmt.Fprintf(&b, "Articles: %d, issues: %d\n", r.Articles, r.Issues)
	fmt.Fprintf(&b, "Fixes applied: %d, failed: %d\n", r.FixesApplied, r.FixFailures)
	if r.FetchFailures > 0 {
		fmt.Fprintf(&b, "Live page fetch failures: %d\n", r.FetchFailures)
	}
	if r.IssueLogFailures > 0 {
		fmt.Fprintf(&b, "Issue log write failures: %d\n", r.IssueLogFailures)
	}

	types := make([]string, 0, len(r.IssuesByType))
	for t := range r.IssuesByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(&b, "- %s: %d\n", t, r.IssuesByType[domain.IssueType(t)])
	}

	if len(r.Reindex) > 0 {
		counts := tasks.Counts(r.Reindex)
		fmt.Fprintf(&b, "Reindex requests: %d succeeded, %d failed\n",
			counts[tasks.StatusSucceeded], counts[tasks.StatusFailed])
	}
	if r.VerificationJob != nil {
		fmt.Fprintf(&b, "Verification due at %s\n", r.VerificationJob.DueAt.Format(time.RFC3339))
	}
	return b.String()
}
