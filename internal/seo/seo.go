// Package seo holds the pure string transforms the health scanner and the
// auto-fixer share: permalink construction, URL normalization, meta field
// derivation and plain-text extraction.
package seo

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/idna"
)

const (
	// MaxMetaTitleLen is the target upper bound for meta titles.
	MaxMetaTitleLen = 60
	// MaxMetaDescriptionLen is the target upper bound for meta descriptions.
	MaxMetaDescriptionLen = 160
	// MinContentLen is the minimum plain-text length of a healthy article.
	MinContentLen = 500
	// MinBodyBytes is the smallest live HTML body not treated as a soft 404.
	MinBodyBytes = 500

	ellipsis = "..."
)

var tagExpr = regexp.MustCompile(`<[^>]*>`)

// Permalink builds the canonical article URL from the site base, the article
// path prefix and the slug.
func Permalink(baseURL, prefix, slug string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "/" {
		prefix = ""
	}
	return base + prefix + "/" + strings.Trim(strings.TrimSpace(slug), "/")
}

// NormalizeURL lowercases a URL and strips trailing slashes. Internationalized
// hosts are converted to their ASCII form so both spellings compare equal.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		if ascii, err := idna.Lookup.ToASCII(u.Hostname()); err == nil {
			if port := u.Port(); port != "" {
				u.Host = ascii + ":" + port
			} else {
				u.Host = ascii
			}
			raw = u.String()
		}
	}

	return strings.TrimRight(strings.ToLower(raw), "/")
}

// SameURL compares two URLs after normalization.
func SameURL(a, b string) bool {
	return NormalizeURL(a) == NormalizeURL(b)
}

// Length counts characters, not bytes.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// TruncateMetaTitle returns title unchanged when it fits, otherwise its first
// 57 characters followed by an ellipsis. The result never exceeds 60
// characters, so applying it twice is a no-op.
func TruncateMetaTitle(title string) string {
	return truncate(strings.TrimSpace(title), MaxMetaTitleLen)
}

// DeriveMetaDescription strips the HTML body and truncates it to 160
// characters (157 plus ellipsis).
func DeriveMetaDescription(content string) string {
	return truncate(StripHTML(content), MaxMetaDescriptionLen)
}

// StripHTML returns the visible text of an HTML fragment with whitespace
// collapsed.
func StripHTML(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	var text string
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		text = tagExpr.ReplaceAllString(content, " ")
	} else {
		doc.Find("script, style, noscript").Remove()
		text = doc.Text()
	}

	return strings.Join(strings.Fields(text), " ")
}

// PlainTextLength is the character count of the stripped content.
func PlainTextLength(content string) int {
	return Length(StripHTML(content))
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
