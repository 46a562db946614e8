package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/seo"
)

var (
	fencedExpr = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")
	objectExpr = regexp.MustCompile(`(?s)\{.*\}`)
	slugExpr   = regexp.MustCompile(`[^a-z0-9]+`)
)

// ParseError reports a completion that could not be decoded into the
// expected JSON shape.
type ParseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse ai response: %s: %v", e.Reason, e.Err)
	}
	return "parse ai response: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// ExtractJSON returns the JSON object embedded in a completion: the content
// of the first markdown fence if it holds an object, otherwise the span from
// the first '{' to the last '}'.
func ExtractJSON(raw string) (string, bool) {
	if m := fencedExpr.FindStringSubmatch(raw); m != nil {
		inner := strings.TrimSpace(m[1])
		if strings.HasPrefix(inner, "{") {
			return inner, true
		}
	}
	if m := objectExpr.FindString(raw); m != "" {
		return m, true
	}
	return "", false
}

type draftPayload struct {
	Title           *string  `json:"title"`
	Slug            string   `json:"slug"`
	Excerpt         string   `json:"excerpt"`
	Content         *string  `json:"content"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	SEOKeywords     []string `json:"seo_keywords"`
	Category        string   `json:"category"`
}

// ParseDraft decodes and validates a drafting completion. Missing optional
// SEO fields are derived from the title and body.
func ParseDraft(raw string) (domain.NewsDraft, error) {
	var p draftPayload
	if err := decode(raw, &p); err != nil {
		return domain.NewsDraft{}, err
	}

	if p.Title == nil || strings.TrimSpace(*p.Title) == "" {
		return domain.NewsDraft{}, &ParseError{Reason: "missing title", Raw: raw}
	}
	if p.Content == nil || strings.TrimSpace(*p.Content) == "" {
		return domain.NewsDraft{}, &ParseError{Reason: "missing content", Raw: raw}
	}

	draft := domain.NewsDraft{
		Title:           strings.TrimSpace(*p.Title),
		Slug:            Slugify(p.Slug),
		Excerpt:         strings.TrimSpace(p.Excerpt),
		Content:         strings.TrimSpace(*p.Content),
		MetaTitle:       strings.TrimSpace(p.MetaTitle),
		MetaDescription: strings.TrimSpace(p.MetaDescription),
		Category:        strings.TrimSpace(p.Category),
	}
	if draft.Slug == "" {
		draft.Slug = Slugify(draft.Title)
	}
	if draft.MetaTitle == "" || seo.Length(draft.MetaTitle) > seo.MaxMetaTitleLen {
		draft.MetaTitle = seo.TruncateMetaTitle(firstNonEmpty(draft.MetaTitle, draft.Title))
	}
	if draft.MetaDescription == "" {
		draft.MetaDescription = seo.DeriveMetaDescription(firstNonEmpty(draft.Excerpt, draft.Content))
	}
	for _, kw := range p.SEOKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			draft.SEOKeywords = append(draft.SEOKeywords, kw)
		}
	}
	if draft.SEOKeywords == nil {
		draft.SEOKeywords = []string{}
	}
	return draft, nil
}

// ParseExpansion decodes a content-expansion completion.
func ParseExpansion(raw string) (string, error) {
	var p struct {
		Content *string `json:"content"`
	}
	if err := decode(raw, &p); err != nil {
		return "", err
	}
	if p.Content == nil || strings.TrimSpace(*p.Content) == "" {
		return "", &ParseError{Reason: "missing content", Raw: raw}
	}
	return strings.TrimSpace(*p.Content), nil
}

// Slugify lowercases s and joins its ASCII alphanumeric runs with dashes.
func Slugify(s string) string {
	return strings.Trim(slugExpr.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func decode(raw string, v any) error {
	body, ok := ExtractJSON(raw)
	if !ok {
		return &ParseError{Reason: "no json object found", Raw: raw}
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return &ParseError{Reason: "invalid json", Raw: raw, Err: err}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
