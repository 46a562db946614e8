package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
)

const maxBodyBytes = 4 << 20

// PageFetcher loads live article pages the way a crawler sees them: one
// request, redirects reported instead of followed.
type PageFetcher struct {
	client    *http.Client
	userAgent string
	now       func() time.Time
}

var _ ports.PageFetcher = (*PageFetcher)(nil)

// NewPageFetcher wires an HTTP client; nil builds one with a pooled transport.
func NewPageFetcher(client *http.Client, userAgent string, timeout time.Duration) *PageFetcher {
	if client == nil {
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	noFollow := *client
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	if userAgent == "" {
		userAgent = "BulletinBriefsSEOBot/1.0"
	}
	return &PageFetcher{client: &noFollow, userAgent: userAgent, now: time.Now}
}

// Fetch requests url and summarizes status, size and SEO-relevant markup.
func (f *PageFetcher) Fetch(ctx context.Context, url string) (domain.PageSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.PageSnapshot{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.PageSnapshot{}, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.PageSnapshot{}, fmt.Errorf("read page: %w", err)
	}

	snap := domain.PageSnapshot{
		URL:        url,
		StatusCode: resp.StatusCode,
		Location:   resp.Header.Get("Location"),
		BodyBytes:  len(body),
		NoIndex:    hasNoIndex(resp.Header.Values("X-Robots-Tag")),
		FetchedAt:  f.now(),
	}

	if len(body) == 0 || !isHTML(resp.Header.Get("Content-Type"), body) {
		return snap, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return snap, fmt.Errorf("parse page: %w", err)
	}
	inspectDocument(doc, &snap)

	return snap, nil
}

func inspectDocument(doc *goquery.Document, snap *domain.PageSnapshot) {
	doc.Find(`meta[name]`).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "robots", "googlebot":
			content, _ := s.Attr("content")
			if hasNoIndex([]string{content}) {
				snap.NoIndex = true
			}
		}
	})

	doc.Find(`link[rel]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !strings.EqualFold(strings.TrimSpace(rel), "canonical") {
			return true
		}
		href, _ := s.Attr("href")
		snap.Canonical = strings.TrimSpace(href)
		return false
	})

	snap.Title = strings.TrimSpace(doc.Find("head > title").First().Text())
}

func hasNoIndex(directives []string) bool {
	for _, d := range directives {
		for _, part := range strings.Split(d, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "noindex" || part == "none" {
				return true
			}
		}
	}
	return false
}

func isHTML(contentType string, body []byte) bool {
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "html") || strings.Contains(ct, "xml")
}
