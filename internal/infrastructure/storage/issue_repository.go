package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
)

const issuesTable = "seo_health_log"

var issueColumns = []string{
	"id", "url", "issue_type", "severity", "notes", "article_id", "status",
	"resolution_status", "auto_fix_attempted", "detected_at",
}

type issueRow struct {
	ID               string         `db:"id"`
	URL              string         `db:"url"`
	IssueType        string         `db:"issue_type"`
	Severity         string         `db:"severity"`
	Notes            string         `db:"notes"`
	ArticleID        sql.NullString `db:"article_id"`
	Status           string         `db:"status"`
	ResolutionStatus sql.NullString `db:"resolution_status"`
	AutoFixAttempted bool           `db:"auto_fix_attempted"`
	DetectedAt       time.Time      `db:"detected_at"`
}

func (r issueRow) toDomain() domain.SEOIssue {
	return domain.SEOIssue{
		ID:               r.ID,
		URL:              r.URL,
		Type:             domain.IssueType(r.IssueType),
		Severity:         domain.Severity(r.Severity),
		Notes:            r.Notes,
		ArticleID:        r.ArticleID.String,
		Status:           domain.IssueStatus(r.Status),
		ResolutionStatus: r.ResolutionStatus.String,
		AutoFixAttempted: r.AutoFixAttempted,
		DetectedAt:       r.DetectedAt,
	}
}

// IssueRepository stores detected issues in seo_health_log.
type IssueRepository struct {
	db *sqlx.DB
}

var _ ports.IssueLog = (*IssueRepository)(nil)

func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

func deleteOpenBeforeQuery(cutoff time.Time) sq.DeleteBuilder {
	return psql.Delete(issuesTable).
		Where(sq.Eq{"status": string(domain.IssueOpen)}).
		Where(sq.Lt{"detected_at": cutoff})
}

// DeleteOpenIssuesBefore removes open issues detected before cutoff.
// Resolved rows are kept as history.
func (r *IssueRepository) DeleteOpenIssuesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := deleteOpenBeforeQuery(cutoff).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build issue cleanup: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete stale issues: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete stale issues: %w", err)
	}
	return n, nil
}

func insertIssueQuery(issue domain.SEOIssue) sq.InsertBuilder {
	return psql.Insert(issuesTable).
		Columns(issueColumns...).
		Values(
			issue.ID,
			issue.URL,
			string(issue.Type),
			string(issue.Severity),
			issue.Notes,
			nullString(issue.ArticleID),
			string(issue.Status),
			nullString(issue.ResolutionStatus),
			issue.AutoFixAttempted,
			issue.DetectedAt,
		)
}

func (r *IssueRepository) InsertIssue(ctx context.Context, issue domain.SEOIssue) error {
	query, args, err := insertIssueQuery(issue).ToSql()
	if err != nil {
		return fmt.Errorf("build insert issue: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert issue %s for %s: %w", issue.Type, issue.URL, err)
	}
	return nil
}

func listIssuesQuery(filter domain.IssueFilter) sq.SelectBuilder {
	q := psql.Select(issueColumns...).From(issuesTable).OrderBy("detected_at DESC")
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Type != "" {
		q = q.Where(sq.Eq{"issue_type": string(filter.Type)})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	return q
}

func (r *IssueRepository) ListIssues(ctx context.Context, filter domain.IssueFilter) ([]domain.SEOIssue, error) {
	query, args, err := listIssuesQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list issues: %w", err)
	}
	var rows []issueRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	issues := make([]domain.SEOIssue, 0, len(rows))
	for _, row := range rows {
		issues = append(issues, row.toDomain())
	}
	return issues, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
