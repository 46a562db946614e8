package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"BulletinBriefs/internal/config"
	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
	"BulletinBriefs/internal/seo"
)

// VerificationDeps wires the adapters the verification pass reads from.
type VerificationDeps struct {
	Articles      ports.ArticleStore
	Verifications ports.VerificationStore
	Fetcher       ports.PageFetcher
	Inspector     ports.IndexInspector
	Queue         ports.VerificationQueue
	Notifier      ports.Notifier

	Site         config.SiteConfig
	Verification config.VerificationConfig

	Logger *slog.Logger
	Now    func() time.Time
}

// VerificationReport summarizes one verification pass.
type VerificationReport struct {
	StartedAt    time.Time               `json:"started_at"`
	FinishedAt   time.Time               `json:"finished_at"`
	Checked      int                     `json:"checked"`
	Passed       int                     `json:"passed"`
	Failed       int                     `json:"failed"`
	StillPending int                     `json:"still_pending"`
	Errors       int                     `json:"errors"`
	NextJob      *domain.VerificationJob `json:"next_job,omitempty"`
}

// VerificationPass re-checks pending auto-fixes against the live site and
// the search console.
type VerificationPass struct {
	articles      ports.ArticleStore
	verifications ports.VerificationStore
	fetcher       ports.PageFetcher
	inspector     ports.IndexInspector
	queue         ports.VerificationQueue
	notifier      ports.Notifier

	site      config.SiteConfig
	delay     time.Duration
	batchSize int

	logger *slog.Logger
	now    func() time.Time
}

func NewVerificationPass(deps VerificationDeps) *VerificationPass {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	delay := deps.Verification.Delay
	if delay <= 0 {
		delay = 15 * time.Minute
	}
	batch := deps.Verification.BatchSize
	if batch <= 0 {
		batch = 200
	}
	return &VerificationPass{
		articles:      deps.Articles,
		verifications: deps.Verifications,
		fetcher:       deps.Fetcher,
		inspector:     deps.Inspector,
		queue:         deps.Queue,
		notifier:      deps.Notifier,
		site:          deps.Site,
		delay:         delay,
		batchSize:     batch,
		logger:        logger,
		now:           now,
	}
}

// Run verifies every pending record and schedules another pass while any
// record stays pending.
func (v *VerificationPass) Run(ctx context.Context) (VerificationReport, error) {
	if v.verifications == nil {
		return VerificationReport{}, errors.New("verification store not configured")
	}

	report := VerificationReport{StartedAt: v.now()}
	pending, err := v.verifications.ListPendingVerifications(ctx, v.batchSize)
	if err != nil {
		return report, fmt.Errorf("list pending verifications: %w", err)
	}

	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			v.logger.Warn("verification cancelled", "error", err)
			break
		}
		updated, err := v.verify(ctx, rec)
		report.Checked++
		if err != nil {
			report.Errors++
			report.StillPending++
			v.logger.Error("verification update failed", "id", rec.ID, "url", rec.URL, "error", err)
			continue
		}
		switch updated.InternalStatus {
		case domain.InternalPassed:
			report.Passed++
		case domain.InternalFailed:
			report.Failed++
		default:
			report.StillPending++
		}
	}

	if report.StillPending > 0 {
		report.NextJob = v.reschedule(ctx)
	}
	report.FinishedAt = v.now()

	v.logger.Info("verification pass finished",
		"checked", report.Checked,
		"passed", report.Passed,
		"failed", report.Failed,
		"pending", report.StillPending,
	)
	if report.Checked > 0 && v.notifier != nil {
		if err := v.notifier.Publish(ctx, FormatVerificationReport(report)); err != nil {
			v.logger.Warn("publish verification summary failed", "error", err)
		}
	}
	return report, nil
}

// Recheck re-runs verification for one record. Passed records are
// returned unchanged.
func (v *VerificationPass) Recheck(ctx context.Context, id string) (domain.VerificationRecord, error) {
	if v.verifications == nil {
		return domain.VerificationRecord{}, errors.New("verification store not configured")
	}
	rec, err := v.verifications.GetVerification(ctx, id)
	if err != nil {
		return domain.VerificationRecord{}, err
	}
	if rec.InternalStatus == domain.InternalPassed {
		return rec, nil
	}
	return v.verify(ctx, rec)
}

// List returns verification records matching filter.
func (v *VerificationPass) List(ctx context.Context, filter domain.VerificationFilter) ([]domain.VerificationRecord, error) {
	if v.verifications == nil {
		return nil, errors.New("verification store not configured")
	}
	return v.verifications.ListVerifications(ctx, filter)
}

func (v *VerificationPass) verify(ctx context.Context, rec domain.VerificationRecord) (domain.VerificationRecord, error) {
	confirmErr := v.confirm(ctx, rec)

	if v.inspector != nil {
		status, err := v.inspector.InspectIndexStatus(ctx, rec.URL)
		if err != nil {
			v.logger.Warn("index inspection failed", "url", rec.URL, "error", err)
			if confirmErr == nil {
				confirmErr = fmt.Errorf("inspect index status: %w", err)
			}
		} else {
			rec.GSCStatus = status
		}
	}

	next := nextState(rec, confirmErr, v.inspector != nil, v.now())
	if err := v.verifications.UpdateVerification(ctx, next); err != nil {
		return next, fmt.Errorf("update verification %s: %w", rec.ID, err)
	}
	return next, nil
}

// nextState applies one verification outcome to rec. requireIndexed is set
// when a search console inspector is wired.
func nextState(rec domain.VerificationRecord, confirmErr error, requireIndexed bool, now time.Time) domain.VerificationRecord {
	rec.RecheckedAt = &now

	if confirmErr == nil && requireIndexed && rec.GSCStatus != domain.GSCIndexed {
		confirmErr = fmt.Errorf("url is %s in search console", rec.GSCStatus)
	}
	if confirmErr == nil {
		rec.InternalStatus = domain.InternalPassed
		rec.LastError = ""
		return rec
	}

	rec.LastError = confirmErr.Error()
	if rec.RetryCount >= domain.MaxVerificationRetries {
		rec.InternalStatus = domain.InternalFailed
		return rec
	}
	rec.RetryCount++
	rec.InternalStatus = domain.InternalPending
	return rec
}

// confirm checks that the fix recorded in rec is visible in the store and
// on the live page.
func (v *VerificationPass) confirm(ctx context.Context, rec domain.VerificationRecord) error {
	if v.articles == nil || rec.ArticleID == "" {
		return errors.New("article unavailable for verification")
	}
	article, err := v.articles.GetArticle(ctx, rec.ArticleID)
	if err != nil {
		return fmt.Errorf("load article: %w", err)
	}
	permalink := seo.Permalink(v.site.BaseURL, v.site.ArticlePathPrefix, article.Slug)

	var page *domain.PageSnapshot
	var fetchErr error
	if v.fetcher != nil {
		snap, err := v.fetcher.Fetch(ctx, rec.URL)
		if err != nil {
			fetchErr = err
		} else {
			page = &snap
		}
	}

	return confirmFix(rec.IssueType, article, permalink, page, fetchErr)
}

func confirmFix(issue domain.IssueType, article domain.Article, permalink string, page *domain.PageSnapshot, fetchErr error) error {
	switch issue {
	case domain.IssueMissingCanonical, domain.IssueDuplicateCanonical:
		if !seo.SameURL(article.CanonicalURL, permalink) {
			return fmt.Errorf("canonical %q does not match %s", article.CanonicalURL, permalink)
		}
		if page != nil && page.Canonical != "" && !seo.SameURL(page.Canonical, permalink) {
			return fmt.Errorf("live page canonical %q does not match %s", page.Canonical, permalink)
		}
		return nil

	case domain.IssueMissingMetaTitle:
		title := strings.TrimSpace(article.MetaTitle)
		if title == "" {
			return errors.New("meta_title is still empty")
		}
		if n := seo.Length(title); n > seo.MaxMetaTitleLen {
			return fmt.Errorf("meta_title is %d characters", n)
		}
		// Templates may append the site name to <title>.
		if page != nil && page.Title != "" && !strings.Contains(page.Title, title) {
			return fmt.Errorf("live page title %q does not carry meta_title", page.Title)
		}
		return nil

	case domain.IssueMissingMetaDescription:
		if strings.TrimSpace(article.MetaDescription) == "" {
			return errors.New("meta_description is still empty")
		}
		return nil

	case domain.IssueShortContent, domain.IssueSoft404:
		if n := seo.PlainTextLength(article.Content); n < seo.MinContentLen {
			return fmt.Errorf("content is %d characters of text", n)
		}
		if page == nil {
			if issue == domain.IssueSoft404 {
				if fetchErr != nil {
					return fmt.Errorf("fetch live page: %w", fetchErr)
				}
				return errors.New("live page unavailable")
			}
			return nil
		}
		if page.StatusCode == 200 && page.BodyBytes < seo.MinBodyBytes {
			return fmt.Errorf("live page still serves %d bytes", page.BodyBytes)
		}
		return nil
	}

	return fmt.Errorf("no confirmation check for %s", issue)
}

func (v *VerificationPass) reschedule(ctx context.Context) *domain.VerificationJob {
	if v.queue == nil {
		return nil
	}
	now := v.now()
	job := domain.VerificationJob{
		ID:         uuid.NewString(),
		Reason:     "pending verifications remain",
		DueAt:      now.Add(v.delay),
		EnqueuedAt: now,
	}
	if err := v.queue.Enqueue(ctx, job); err != nil {
		v.logger.Error("reschedule verification failed", "error", err)
		return nil
	}
	return &job
}

// FormatVerificationReport renders the admin summary of a verification pass.
func FormatVerificationReport(r VerificationReport) string {
	var b strings.Builder
	b.WriteString("SEO auto-fix verification\n")
	fmt.Fprintf(&b, "Checked: %d, passed: %d, failed: %d, pending: %d\n",
		r.Checked, r.Passed, r.Failed, r.StillPending)
	if r.NextJob != nil {
		fmt.Fprintf(&b, "Next check at %s\n", r.NextJob.DueAt.Format(time.RFC3339))
	}
	return b.String()
}
