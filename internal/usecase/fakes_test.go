package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"BulletinBriefs/internal/config"
	"BulletinBriefs/internal/domain"
)

var (
	errNotFound = domain.ErrNotFound

	testNow  = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	testSite = config.SiteConfig{BaseURL: "https://www.thebulletinbriefs.in", ArticlePathPrefix: "/article/"}

	healthyContent = strings.Repeat("<p>Lorem ipsum dolor sit amet. </p>", 30)
)

func fixedNow() time.Time { return testNow }

func permalinkOf(slug string) string {
	return "https://www.thebulletinbriefs.in/article/" + slug
}

// healthyArticle passes every rule when no live page is fetched.
func healthyArticle(id, slug string) domain.Article {
	return domain.Article{
		ID:              id,
		Slug:            slug,
		Title:           "Budget 2026 explained",
		Content:         healthyContent,
		CanonicalURL:    permalinkOf(slug),
		MetaTitle:       "Budget 2026 explained",
		MetaDescription: "What the budget means for households.",
		SEOKeywords:     []string{"budget"},
		PublishedAt:     testNow.Add(-48 * time.Hour),
	}
}

type fieldUpdate struct {
	ID    string
	Field domain.ArticleField
	Value string
}

type fakeArticles struct {
	mu         sync.Mutex
	articles   map[string]domain.Article
	order      []string
	updates    []fieldUpdate
	failFields map[domain.ArticleField]error
	listErr    error
}

func newFakeArticles(articles ...domain.Article) *fakeArticles {
	f := &fakeArticles{articles: map[string]domain.Article{}, failFields: map[domain.ArticleField]error{}}
	for _, a := range articles {
		f.articles[a.ID] = a
		f.order = append(f.order, a.ID)
	}
	return f
}

func (f *fakeArticles) ListPublished(_ context.Context, now time.Time) ([]domain.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Article
	for _, id := range f.order {
		a := f.articles[id]
		if !a.PublishedAt.IsZero() && !a.PublishedAt.After(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeArticles) GetArticle(_ context.Context, id string) (domain.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.articles[id]
	if !ok {
		return domain.Article{}, errNotFound
	}
	return a, nil
}

func (f *fakeArticles) UpdateArticleField(_ context.Context, id string, field domain.ArticleField, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFields[field]; err != nil {
		return err
	}
	a, ok := f.articles[id]
	if !ok {
		return errNotFound
	}
	f.articles[id] = a.With(field, value)
	f.updates = append(f.updates, fieldUpdate{ID: id, Field: field, Value: value})
	return nil
}

func (f *fakeArticles) get(id string) domain.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.articles[id]
}

type fakeIssues struct {
	mu      sync.Mutex
	rows    []domain.SEOIssue
	cutoffs []time.Time
	failIns error
}

func (f *fakeIssues) DeleteOpenIssuesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	kept := f.rows[:0]
	var n int64
	for _, r := range f.rows {
		if r.Status == domain.IssueOpen && r.DetectedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return n, nil
}

func (f *fakeIssues) InsertIssue(_ context.Context, issue domain.SEOIssue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIns != nil {
		return f.failIns
	}
	f.rows = append(f.rows, issue)
	return nil
}

func (f *fakeIssues) ListIssues(_ context.Context, filter domain.IssueFilter) ([]domain.SEOIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SEOIssue
	for _, r := range f.rows {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeIssues) byType(t domain.IssueType) []domain.SEOIssue {
	out, _ := f.ListIssues(context.Background(), domain.IssueFilter{Type: t})
	return out
}

type fakeVerifications struct {
	mu        sync.Mutex
	records   map[string]domain.VerificationRecord
	created   []string
	listErr   error
	updateErr error
}

func newFakeVerifications(recs ...domain.VerificationRecord) *fakeVerifications {
	f := &fakeVerifications{records: map[string]domain.VerificationRecord{}}
	for _, r := range recs {
		f.records[r.ID] = r
		f.created = append(f.created, r.ID)
	}
	return f
}

func (f *fakeVerifications) CreateVerification(_ context.Context, rec domain.VerificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.ID] = rec
	f.created = append(f.created, rec.ID)
	return nil
}

func (f *fakeVerifications) GetVerification(_ context.Context, id string) (domain.VerificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return domain.VerificationRecord{}, errNotFound
	}
	return rec, nil
}

func (f *fakeVerifications) ListPendingVerifications(ctx context.Context, limit int) ([]domain.VerificationRecord, error) {
	f.mu.Lock()
	listErr := f.listErr
	f.mu.Unlock()
	if listErr != nil {
		return nil, listErr
	}
	return f.ListVerifications(ctx, domain.VerificationFilter{Status: domain.InternalPending, Limit: limit})
}

func (f *fakeVerifications) ListVerifications(_ context.Context, filter domain.VerificationFilter) ([]domain.VerificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.VerificationRecord
	for _, id := range f.created {
		r := f.records[id]
		if filter.Status != "" && r.InternalStatus != filter.Status {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeVerifications) UpdateVerification(_ context.Context, rec domain.VerificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.records[rec.ID]; !ok {
		return errNotFound
	}
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeVerifications) all() []domain.VerificationRecord {
	out, _ := f.ListVerifications(context.Background(), domain.VerificationFilter{})
	return out
}

type fakeFetcher struct {
	pages map[string]domain.PageSnapshot
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (domain.PageSnapshot, error) {
	if err := f.errs[url]; err != nil {
		return domain.PageSnapshot{}, err
	}
	page, ok := f.pages[url]
	if !ok {
		return domain.PageSnapshot{}, errors.New("no such page")
	}
	return page, nil
}

type fakeGenerator struct {
	mu     sync.Mutex
	calls  int
	output string
	err    error
}

func (g *fakeGenerator) ExpandContent(_ context.Context, _ domain.Article) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.output, g.err
}

type fakeIndexer struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (i *fakeIndexer) RequestIndexing(_ context.Context, url string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.calls == nil {
		i.calls = map[string]int{}
	}
	i.calls[url]++
	return i.err
}

func (i *fakeIndexer) total() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := 0
	for _, c := range i.calls {
		n += c
	}
	return n
}

func (i *fakeIndexer) urls() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]string, 0, len(i.calls))
	for u := range i.calls {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

type fakeInspector struct {
	status domain.GSCStatus
	err    error
}

func (f fakeInspector) InspectIndexStatus(context.Context, string) (domain.GSCStatus, error) {
	return f.status, f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Publish(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

type fakeDrafter struct {
	draft domain.NewsDraft
	err   error
	seen  domain.DraftBrief
}

func (d *fakeDrafter) DraftArticle(_ context.Context, brief domain.DraftBrief) (domain.NewsDraft, error) {
	d.seen = brief
	return d.draft, d.err
}
