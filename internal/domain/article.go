package domain

import "time"

// Article is a piece of published content as stored in the articles table.
// Nullable SEO columns are mapped to empty values.
type Article struct {
	ID              string
	Slug            string
	Title           string
	Content         string
	CanonicalURL    string
	MetaTitle       string
	MetaDescription string
	SEOKeywords     []string
	PublishedAt     time.Time
	UpdatedAt       time.Time
}

// ArticleField names a column the auto-fixer is allowed to rewrite.
type ArticleField string

const (
	FieldCanonicalURL    ArticleField = "canonical_url"
	FieldMetaTitle       ArticleField = "meta_title"
	FieldMetaDescription ArticleField = "meta_description"
	FieldContent         ArticleField = "content"
)

// Valid reports whether f is one of the writable fields.
func (f ArticleField) Valid() bool {
	switch f {
	case FieldCanonicalURL, FieldMetaTitle, FieldMetaDescription, FieldContent:
		return true
	}
	return false
}

// Value returns the current value of a writable field.
func (a Article) Value(f ArticleField) string {
	switch f {
	case FieldCanonicalURL:
		return a.CanonicalURL
	case FieldMetaTitle:
		return a.MetaTitle
	case FieldMetaDescription:
		return a.MetaDescription
	case FieldContent:
		return a.Content
	}
	return ""
}

// With returns a copy of the article with the field replaced.
func (a Article) With(f ArticleField, value string) Article {
	switch f {
	case FieldCanonicalURL:
		a.CanonicalURL = value
	case FieldMetaTitle:
		a.MetaTitle = value
	case FieldMetaDescription:
		a.MetaDescription = value
	case FieldContent:
		a.Content = value
	}
	return a
}

// PageSnapshot is what the live-page fetcher observed for a URL.
type PageSnapshot struct {
	URL        string
	StatusCode int
	Location   string
	BodyBytes  int
	NoIndex    bool
	Canonical  string
	Title      string
	FetchedAt  time.Time
}

// Redirect reports a 3xx response.
func (p PageSnapshot) Redirect() bool {
	return p.StatusCode >= 300 && p.StatusCode < 400
}
