package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
)

const articlesTable = "articles"

var articleColumns = []string{
	"id", "slug", "title", "content", "canonical_url", "meta_title", "meta_description",
	"seo_keywords", "published_at", "updated_at",
}

type articleRow struct {
	ID              string         `db:"id"`
	Slug            string         `db:"slug"`
	Title           string         `db:"title"`
	Content         sql.NullString `db:"content"`
	CanonicalURL    sql.NullString `db:"canonical_url"`
	MetaTitle       sql.NullString `db:"meta_title"`
	MetaDescription sql.NullString `db:"meta_description"`
	SEOKeywords     pq.StringArray `db:"seo_keywords"`
	PublishedAt     sql.NullTime   `db:"published_at"`
	UpdatedAt       sql.NullTime   `db:"updated_at"`
}

func (r articleRow) toDomain() domain.Article {
	return domain.Article{
		ID:              r.ID,
		Slug:            r.Slug,
		Title:           r.Title,
		Content:         r.Content.String,
		CanonicalURL:    r.CanonicalURL.String,
		MetaTitle:       r.MetaTitle.String,
		MetaDescription: r.MetaDescription.String,
		SEOKeywords:     []string(r.SEOKeywords),
		PublishedAt:     r.PublishedAt.Time,
		UpdatedAt:       r.UpdatedAt.Time,
	}
}

// ArticleRepository reads the editorial articles table and applies
// single-column fixes to it.
type ArticleRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ ports.ArticleStore = (*ArticleRepository)(nil)

// NewArticleRepository wires a sqlx.DB implementation.
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db, now: time.Now}
}

func listPublishedQuery(now time.Time) sq.SelectBuilder {
	return psql.Select(articleColumns...).
		From(articlesTable).
		Where(sq.NotEq{"published_at": nil}).
		Where(sq.LtOrEq{"published_at": now}).
		OrderBy("published_at DESC")
}

// ListPublished returns every article published at or before now.
func (r *ArticleRepository) ListPublished(ctx context.Context, now time.Time) ([]domain.Article, error) {
	query, args, err := listPublishedQuery(now).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list published: %w", err)
	}

	var rows []articleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}

	articles := make([]domain.Article, 0, len(rows))
	for _, row := range rows {
		articles = append(articles, row.toDomain())
	}
	return articles, nil
}

// GetArticle loads one article by id.
func (r *ArticleRepository) GetArticle(ctx context.Context, id string) (domain.Article, error) {
	query, args, err := psql.Select(articleColumns...).From(articlesTable).Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build get article: %w", err)
	}

	var row articleRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, fmt.Errorf("article %s: %w", id, ErrNotFound)
		}
		return domain.Article{}, fmt.Errorf("get article %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func updateFieldQuery(id string, field domain.ArticleField, value string, now time.Time) (sq.UpdateBuilder, error) {
	if !field.Valid() {
		return sq.UpdateBuilder{}, fmt.Errorf("field %q is not writable", field)
	}
	return psql.Update(articlesTable).
		Set(string(field), value).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}), nil
}

// UpdateArticleField writes one column of one article.
func (r *ArticleRepository) UpdateArticleField(ctx context.Context, id string, field domain.ArticleField, value string) error {
	builder, err := updateFieldQuery(id, field, value, r.now())
	if err != nil {
		return err
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update %s: %w", field, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s of %s: %w", field, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update %s of %s: %w", field, id, ErrNotFound)
	}
	return nil
}
