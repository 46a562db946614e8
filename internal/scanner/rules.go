package scanner

import (
	"fmt"
	"strings"
	"time"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/seo"
)

// DefaultRegistry registers the health-scan rules in their fixed order.
func DefaultRegistry(staleAfter time.Duration) *Registry {
	reg := NewRegistry()
	reg.Register(LivePageRule{})
	reg.Register(MissingCanonicalRule{})
	reg.Register(CanonicalMismatchRule{})
	reg.Register(MissingMetaTitleRule{})
	reg.Register(MetaTitleLengthRule{})
	reg.Register(MissingMetaDescriptionRule{})
	reg.Register(MetaDescriptionLengthRule{})
	reg.Register(KeywordsRule{})
	reg.Register(ContentLengthRule{})
	reg.Register(StalenessRule{After: staleAfter})
	return reg
}

// LivePageRule classifies the live HTTP response.
type LivePageRule struct{}

func (LivePageRule) Name() string { return "live_page" }

func (LivePageRule) Check(s Subject) []Finding {
	if s.Page == nil {
		return nil
	}

	var findings []Finding
	page := s.Page
	if page.Redirect() {
		findings = append(findings, Finding{
			Type:     domain.IssuePageWithRedirect,
			Severity: domain.SeverityWarning,
			Notes:    fmt.Sprintf("status %d redirects to %s", page.StatusCode, page.Location),
		})
	}
	if page.StatusCode == 200 && page.BodyBytes < seo.MinBodyBytes {
		findings = append(findings, Finding{
			Type:     domain.IssueSoft404,
			Severity: domain.SeverityCritical,
			Notes:    fmt.Sprintf("status 200 with %d byte body", page.BodyBytes),
			Fix:      FixGenerateContent,
			Field:    domain.FieldContent,
		})
	}
	if page.NoIndex {
		findings = append(findings, Finding{
			Type:     domain.IssueNotIndexedIntentionally,
			Severity: domain.SeverityInfo,
			Notes:    "page carries a noindex robots directive",
		})
	}
	return findings
}

// MissingCanonicalRule sets absent canonical URLs to the permalink.
type MissingCanonicalRule struct{}

func (MissingCanonicalRule) Name() string { return "missing_canonical" }

func (MissingCanonicalRule) Check(s Subject) []Finding {
	if strings.TrimSpace(s.Article.CanonicalURL) != "" {
		return nil
	}
	return []Finding{{
		Type:     domain.IssueMissingCanonical,
		Severity: domain.SeverityCritical,
		Notes:    "canonical_url is empty",
		Fix:      FixField,
		Field:    domain.FieldCanonicalURL,
		Value:    s.Permalink,
	}}
}

// CanonicalMismatchRule overwrites canonical URLs that point elsewhere.
type CanonicalMismatchRule struct{}

func (CanonicalMismatchRule) Name() string { return "canonical_mismatch" }

func (CanonicalMismatchRule) Check(s Subject) []Finding {
	current := strings.TrimSpace(s.Article.CanonicalURL)
	if current == "" || seo.SameURL(current, s.Permalink) {
		return nil
	}
	return []Finding{{
		Type:     domain.IssueDuplicateCanonical,
		Severity: domain.SeverityCritical,
		Notes:    fmt.Sprintf("canonical_url %s differs from %s", current, s.Permalink),
		Fix:      FixField,
		Field:    domain.FieldCanonicalURL,
		Value:    s.Permalink,
		Reindex:  true,
	}}
}

// MissingMetaTitleRule derives an absent meta title from the article title.
type MissingMetaTitleRule struct{}

func (MissingMetaTitleRule) Name() string { return "missing_meta_title" }

func (MissingMetaTitleRule) Check(s Subject) []Finding {
	if strings.TrimSpace(s.Article.MetaTitle) != "" {
		return nil
	}
	f := Finding{
		Type:     domain.IssueMissingMetaTitle,
		Severity: domain.SeverityCritical,
		Notes:    "meta_title is empty",
	}
	if v := seo.TruncateMetaTitle(s.Article.Title); v != "" {
		f.Fix, f.Field, f.Value = FixField, domain.FieldMetaTitle, v
	} else {
		f.Notes += "; title is empty too"
	}
	return []Finding{f}
}

// MetaTitleLengthRule flags long meta titles without fixing them.
type MetaTitleLengthRule struct{}

func (MetaTitleLengthRule) Name() string { return "meta_title_length" }

func (MetaTitleLengthRule) Check(s Subject) []Finding {
	n := seo.Length(s.Article.MetaTitle)
	if n <= seo.MaxMetaTitleLen {
		return nil
	}
	return []Finding{{
		Type:     domain.IssueMetaTitleTooLong,
		Severity: domain.SeverityWarning,
		Notes:    fmt.Sprintf("meta_title is %d characters (max %d)", n, seo.MaxMetaTitleLen),
	}}
}

// MissingMetaDescriptionRule derives an absent description from the body.
type MissingMetaDescriptionRule struct{}

func (MissingMetaDescriptionRule) Name() string { return "missing_meta_description" }

func (MissingMetaDescriptionRule) Check(s Subject) []Finding {
	if strings.TrimSpace(s.Article.MetaDescription) != "" {
		return nil
	}
	f := Finding{
		Type:     domain.IssueMissingMetaDescription,
		Severity: domain.SeverityCritical,
		Notes:    "meta_description is empty",
	}
	if v := seo.DeriveMetaDescription(s.Article.Content); v != "" {
		f.Fix, f.Field, f.Value = FixField, domain.FieldMetaDescription, v
	} else {
		f.Notes += "; content has no text to derive from"
	}
	return []Finding{f}
}

// MetaDescriptionLengthRule flags long descriptions without fixing them.
type MetaDescriptionLengthRule struct{}

func (MetaDescriptionLengthRule) Name() string { return "meta_description_length" }

func (MetaDescriptionLengthRule) Check(s Subject) []Finding {
	n := seo.Length(s.Article.MetaDescription)
	if n <= seo.MaxMetaDescriptionLen {
		return nil
	}
	return []Finding{{
		Type:     domain.IssueMetaDescriptionTooLong,
		Severity: domain.SeverityWarning,
		Notes:    fmt.Sprintf("meta_description is %d characters (max %d)", n, seo.MaxMetaDescriptionLen),
	}}
}

// KeywordsRule flags articles without SEO keywords.
type KeywordsRule struct{}

func (KeywordsRule) Name() string { return "seo_keywords" }

func (KeywordsRule) Check(s Subject) []Finding {
	for _, kw := range s.Article.SEOKeywords {
		if strings.TrimSpace(kw) != "" {
			return nil
		}
	}
	return []Finding{{
		Type:     domain.IssueMissingSEOKeywords,
		Severity: domain.SeverityWarning,
		Notes:    "seo_keywords is empty",
	}}
}

// ContentLengthRule escalates thin articles to AI content expansion.
type ContentLengthRule struct{}

func (ContentLengthRule) Name() string { return "content_length" }

func (ContentLengthRule) Check(s Subject) []Finding {
	n := seo.PlainTextLength(s.Article.Content)
	if n >= seo.MinContentLen {
		return nil
	}
	return []Finding{{
		Type:     domain.IssueShortContent,
		Severity: domain.SeverityCritical,
		Notes:    fmt.Sprintf("content is %d characters of text (min %d)", n, seo.MinContentLen),
		Fix:      FixGenerateContent,
		Field:    domain.FieldContent,
	}}
}

// StalenessRule flags articles published longer ago than After.
type StalenessRule struct {
	After time.Duration
}

func (StalenessRule) Name() string { return "staleness" }

func (r StalenessRule) Check(s Subject) []Finding {
	after := r.After
	if after <= 0 {
		after = 7 * 24 * time.Hour
	}
	if s.Article.PublishedAt.IsZero() || s.Now.Sub(s.Article.PublishedAt) <= after {
		return nil
	}
	days := int(s.Now.Sub(s.Article.PublishedAt).Hours() / 24)
	return []Finding{{
		Type:     domain.IssueStaleContent,
		Severity: domain.SeverityInfo,
		Notes:    fmt.Sprintf("published %d days ago", days),
	}}
}
