package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
	"BulletinBriefs/internal/scanner"
	"BulletinBriefs/internal/seo"
)

// ErrEmptyGeneration is returned when the content generator answers with no text.
var ErrEmptyGeneration = errors.New("content generator returned empty content")

// AutoFixerDeps wires the stores and the AI generator used for repairs.
type AutoFixerDeps struct {
	Articles      ports.ArticleStore
	Verifications ports.VerificationStore
	Generator     ports.ContentGenerator
	Logger        *slog.Logger
	Now           func() time.Time
}

// AutoFixer applies the repair attached to a scanner finding and opens a
// verification record for every fix it writes.
type AutoFixer struct {
	articles      ports.ArticleStore
	verifications ports.VerificationStore
	generator     ports.ContentGenerator
	logger        *slog.Logger
	now           func() time.Time
}

func NewAutoFixer(deps AutoFixerDeps) *AutoFixer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AutoFixer{
		articles:      deps.Articles,
		verifications: deps.Verifications,
		generator:     deps.Generator,
		logger:        logger,
		now:           now,
	}
}

// Fixable reports whether the fix for f can be attempted with the wired adapters.
func (a *AutoFixer) Fixable(f scanner.Finding) bool {
	if a.articles == nil {
		return false
	}
	switch f.Fix {
	case scanner.FixField:
		return f.Field.Valid() && strings.TrimSpace(f.Value) != ""
	case scanner.FixGenerateContent:
		return a.generator != nil
	default:
		return false
	}
}

// Apply performs the fix for finding on article and returns the article as
// stored afterwards. url is the permalink the verification pass will check.
func (a *AutoFixer) Apply(ctx context.Context, article domain.Article, url string, finding scanner.Finding) (domain.Article, error) {
	switch finding.Fix {
	case scanner.FixField:
		return a.ApplyField(ctx, article, url, finding.Type, finding.Field, finding.Value)
	case scanner.FixGenerateContent:
		return a.ExpandContent(ctx, article, url, finding.Type)
	default:
		return article, fmt.Errorf("finding %s has no fix", finding.Type)
	}
}

// ApplyField writes one deterministic field value.
func (a *AutoFixer) ApplyField(ctx context.Context, article domain.Article, url string, issue domain.IssueType, field domain.ArticleField, value string) (domain.Article, error) {
	if !field.Valid() {
		return article, fmt.Errorf("field %q is not writable", field)
	}
	if err := a.articles.UpdateArticleField(ctx, article.ID, field, value); err != nil {
		return article, fmt.Errorf("apply %s fix: %w", issue, err)
	}

	a.recordFix(ctx, article, url, issue, fmt.Sprintf("set %s to %q", field, value))
	return article.With(field, value), nil
}

// ExpandContent regenerates a thin article body through the AI generator.
// The generated body is stored as returned.
func (a *AutoFixer) ExpandContent(ctx context.Context, article domain.Article, url string, issue domain.IssueType) (domain.Article, error) {
	if a.generator == nil {
		return article, errors.New("content generator not configured")
	}
	content, err := a.generator.ExpandContent(ctx, article)
	if err != nil {
		return article, fmt.Errorf("expand content: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return article, ErrEmptyGeneration
	}
	if err := a.articles.UpdateArticleField(ctx, article.ID, domain.FieldContent, content); err != nil {
		return article, fmt.Errorf("apply %s fix: %w", issue, err)
	}

	action := fmt.Sprintf("expanded content to %d characters of text", seo.PlainTextLength(content))
	a.recordFix(ctx, article, url, issue, action)
	return article.With(domain.FieldContent, content), nil
}

func (a *AutoFixer) recordFix(ctx context.Context, article domain.Article, url string, issue domain.IssueType, action string) {
	if a.verifications == nil {
		return
	}
	rec := domain.VerificationRecord{
		ID:             uuid.NewString(),
		URL:            url,
		IssueType:      issue,
		FixAction:      action,
		ArticleID:      article.ID,
		InternalStatus: domain.InternalPending,
		GSCStatus:      domain.GSCPending,
		RetryCount:     0,
		FixAppliedAt:   a.now(),
	}
	if err := a.verifications.CreateVerification(ctx, rec); err != nil {
		a.logger.Error("create verification record failed", "url", url, "issue", issue, "error", err)
	}
}
