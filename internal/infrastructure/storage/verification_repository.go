package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
)

const verificationsTable = "seo_autofix_verification"

var verificationColumns = []string{
	"id", "url", "issue_type", "fix_action", "article_id", "internal_status",
	"gsc_status", "retry_count", "last_error", "fix_applied_at", "rechecked_at",
}

type verificationRow struct {
	ID             string         `db:"id"`
	URL            string         `db:"url"`
	IssueType      string         `db:"issue_type"`
	FixAction      string         `db:"fix_action"`
	ArticleID      sql.NullString `db:"article_id"`
	InternalStatus string         `db:"internal_status"`
	GSCStatus      string         `db:"gsc_status"`
	RetryCount     int            `db:"retry_count"`
	LastError      sql.NullString `db:"last_error"`
	FixAppliedAt   time.Time      `db:"fix_applied_at"`
	RecheckedAt    sql.NullTime   `db:"rechecked_at"`
}

func (r verificationRow) toDomain() domain.VerificationRecord {
	rec := domain.VerificationRecord{
		ID:             r.ID,
		URL:            r.URL,
		IssueType:      domain.IssueType(r.IssueType),
		FixAction:      r.FixAction,
		ArticleID:      r.ArticleID.String,
		InternalStatus: domain.InternalStatus(r.InternalStatus),
		GSCStatus:      domain.GSCStatus(r.GSCStatus),
		RetryCount:     r.RetryCount,
		LastError:      r.LastError.String,
		FixAppliedAt:   r.FixAppliedAt,
	}
	if r.RecheckedAt.Valid {
		t := r.RecheckedAt.Time
		rec.RecheckedAt = &t
	}
	return rec
}

// VerificationRepository stores post-fix verification records.
type VerificationRepository struct {
	db *sqlx.DB
}

var _ ports.VerificationStore = (*VerificationRepository)(nil)

func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func insertVerificationQuery(rec domain.VerificationRecord) sq.InsertBuilder {
	return psql.Insert(verificationsTable).
		Columns(verificationColumns...).
		Values(
			rec.ID,
			rec.URL,
			string(rec.IssueType),
			rec.FixAction,
			nullString(rec.ArticleID),
			string(rec.InternalStatus),
			string(rec.GSCStatus),
			rec.RetryCount,
			nullString(rec.LastError),
			rec.FixAppliedAt,
			nullTime(rec.RecheckedAt),
		)
}

func (r *VerificationRepository) CreateVerification(ctx context.Context, rec domain.VerificationRecord) error {
	query, args, err := insertVerificationQuery(rec).ToSql()
	if err != nil {
		return fmt.Errorf("build insert verification: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert verification for %s: %w", rec.URL, err)
	}
	return nil
}

func (r *VerificationRepository) GetVerification(ctx context.Context, id string) (domain.VerificationRecord, error) {
	query, args, err := psql.Select(verificationColumns...).
		From(verificationsTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return domain.VerificationRecord{}, fmt.Errorf("build get verification: %w", err)
	}
	var row verificationRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.VerificationRecord{}, fmt.Errorf("verification %s: %w", id, ErrNotFound)
		}
		return domain.VerificationRecord{}, fmt.Errorf("get verification %s: %w", id, err)
	}
	return row.toDomain(), nil
}

// ListPendingVerifications returns pending records, oldest fix first.
func (r *VerificationRepository) ListPendingVerifications(ctx context.Context, limit int) ([]domain.VerificationRecord, error) {
	return r.ListVerifications(ctx, domain.VerificationFilter{Status: domain.InternalPending, Limit: limit})
}

func listVerificationsQuery(filter domain.VerificationFilter) sq.SelectBuilder {
	q := psql.Select(verificationColumns...).From(verificationsTable).OrderBy("fix_applied_at ASC")
	if filter.Status != "" {
		q = q.Where(sq.Eq{"internal_status": string(filter.Status)})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	return q
}

func (r *VerificationRepository) ListVerifications(ctx context.Context, filter domain.VerificationFilter) ([]domain.VerificationRecord, error) {
	query, args, err := listVerificationsQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list verifications: %w", err)
	}
	var rows []verificationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	records := make([]domain.VerificationRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}

func updateVerificationQuery(rec domain.VerificationRecord) sq.UpdateBuilder {
	return psql.Update(verificationsTable).
		Set("internal_status", string(rec.InternalStatus)).
		Set("gsc_status", string(rec.GSCStatus)).
		Set("retry_count", rec.RetryCount).
		Set("last_error", nullString(rec.LastError)).
		Set("rechecked_at", nullTime(rec.RecheckedAt)).
		Where(sq.Eq{"id": rec.ID})
}

// UpdateVerification persists the mutable status columns of rec.
func (r *VerificationRepository) UpdateVerification(ctx context.Context, rec domain.VerificationRecord) error {
	query, args, err := updateVerificationQuery(rec).ToSql()
	if err != nil {
		return fmt.Errorf("build update verification: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update verification %s: %w", rec.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update verification %s: %w", rec.ID, ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
