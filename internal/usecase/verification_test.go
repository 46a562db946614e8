package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BulletinBriefs/internal/config"
	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/infrastructure/queue"
	"BulletinBriefs/internal/logging"
	"BulletinBriefs/internal/ports"
)

func pendingRecord(id, articleID, slug string, issue domain.IssueType, retries int) domain.VerificationRecord {
	return domain.VerificationRecord{
		ID:             id,
		URL:            permalinkOf(slug),
		IssueType:      issue,
		FixAction:      "test fix",
		ArticleID:      articleID,
		InternalStatus: domain.InternalPending,
		GSCStatus:      domain.GSCPending,
		RetryCount:     retries,
		FixAppliedAt:   testNow.Add(-15 * time.Minute),
	}
}

type verifyFixture struct {
	articles      *fakeArticles
	verifications *fakeVerifications
	queue         *queue.MemoryQueue
	notifier      *fakeNotifier
	fetcher       ports.PageFetcher
	inspector     ports.IndexInspector
}

// pass leaves Queue and Notifier as nil interfaces when the fixture has
// none, so the pass sees them as unconfigured.
func (f *verifyFixture) pass() *VerificationPass {
	deps := VerificationDeps{
		Articles:      f.articles,
		Verifications: f.verifications,
		Fetcher:       f.fetcher,
		Inspector:     f.inspector,
		Site:          testSite,
		Verification:  config.VerificationConfig{Delay: 15 * time.Minute, BatchSize: 50},
		Logger:        logging.Discard(),
		Now:           fixedNow,
	}
	if f.queue != nil {
		deps.Queue = f.queue
	}
	if f.notifier != nil {
		deps.Notifier = f.notifier
	}
	return NewVerificationPass(deps)
}

func TestNextState(t *testing.T) {
	t.Parallel()

	base := pendingRecord("v1", "a1", "x", domain.IssueMissingCanonical, 0)
	failure := errors.New("canonical still wrong")

	tests := []struct {
		name        string
		rec         domain.VerificationRecord
		confirmErr  error
		requireIdx  bool
		gsc         domain.GSCStatus
		wantStatus  domain.InternalStatus
		wantRetries int
		wantErr     bool
	}{
		{name: "confirmed without inspector", rec: base, wantStatus: domain.InternalPassed},
		{name: "confirmed and indexed", rec: base, requireIdx: true, gsc: domain.GSCIndexed, wantStatus: domain.InternalPassed},
		{name: "confirmed but not indexed", rec: base, requireIdx: true, gsc: domain.GSCNotIndexed, wantStatus: domain.InternalPending, wantRetries: 1, wantErr: true},
		{name: "first failure", rec: base, confirmErr: failure, wantStatus: domain.InternalPending, wantRetries: 1, wantErr: true},
		{name: "third failure stays pending", rec: withRetries(base, 2), confirmErr: failure, wantStatus: domain.InternalPending, wantRetries: 3, wantErr: true},
		{name: "exhausted retries fail", rec: withRetries(base, 3), confirmErr: failure, wantStatus: domain.InternalFailed, wantRetries: 3, wantErr: true},
		{name: "late success after retries", rec: withRetries(base, 3), wantStatus: domain.InternalPassed, wantRetries: 3},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := tc.rec
			if tc.gsc != "" {
				rec.GSCStatus = tc.gsc
			}
			got := nextState(rec, tc.confirmErr, tc.requireIdx, testNow)
			assert.Equal(t, tc.wantStatus, got.InternalStatus)
			assert.Equal(t, tc.wantRetries, got.RetryCount)
			assert.LessOrEqual(t, got.RetryCount, domain.MaxVerificationRetries)
			require.NotNil(t, got.RecheckedAt)
			assert.Equal(t, testNow, *got.RecheckedAt)
			if tc.wantErr {
				assert.NotEmpty(t, got.LastError)
			} else {
				assert.Empty(t, got.LastError)
			}
		})
	}
}

func withRetries(rec domain.VerificationRecord, n int) domain.VerificationRecord {
	rec.RetryCount = n
	return rec
}

func TestConfirmFix(t *testing.T) {
	t.Parallel()

	permalink := permalinkOf("x")
	article := healthyArticle("a1", "x")

	assert.NoError(t, confirmFix(domain.IssueMissingCanonical, article, permalink, nil, nil))

	wrong := article
	wrong.CanonicalURL = "https://elsewhere.example.com/x"
	assert.Error(t, confirmFix(domain.IssueDuplicateCanonical, wrong, permalink, nil, nil))
	assert.Error(t, confirmFix(domain.IssueDuplicateCanonical, wrong, permalink,
		&domain.PageSnapshot{StatusCode: 200, BodyBytes: 4000, Canonical: permalink}, nil))

	noTitle := article
	noTitle.MetaTitle = ""
	assert.Error(t, confirmFix(domain.IssueMissingMetaTitle, noTitle, permalink, nil, nil))
	assert.NoError(t, confirmFix(domain.IssueMissingMetaDescription, article, permalink, nil, nil))

	thin := &domain.PageSnapshot{StatusCode: 200, BodyBytes: 100}
	assert.Error(t, confirmFix(domain.IssueSoft404, article, permalink, thin, nil))
	assert.Error(t, confirmFix(domain.IssueSoft404, article, permalink, nil, errors.New("timeout")))
	assert.NoError(t, confirmFix(domain.IssueShortContent, article, permalink, nil, errors.New("timeout")))

	short := article
	short.Content = "<p>tiny</p>"
	assert.Error(t, confirmFix(domain.IssueShortContent, short, permalink, nil, nil))

	assert.Error(t, confirmFix(domain.IssueStaleContent, article, permalink, nil, nil))
}

func TestConfirmFixChecksLivePage(t *testing.T) {
	t.Parallel()

	permalink := permalinkOf("x")
	article := healthyArticle("a1", "x")

	tests := []struct {
		name    string
		issue   domain.IssueType
		page    *domain.PageSnapshot
		wantErr bool
	}{
		{name: "canonical live and stored", issue: domain.IssueMissingCanonical,
			page: &domain.PageSnapshot{StatusCode: 200, Canonical: permalink + "/"}},
		{name: "canonical stored but live page differs", issue: domain.IssueMissingCanonical,
			page: &domain.PageSnapshot{StatusCode: 200, Canonical: "https://elsewhere.example.com/copy"}, wantErr: true},
		{name: "canonical absent from live page", issue: domain.IssueDuplicateCanonical,
			page: &domain.PageSnapshot{StatusCode: 200}},
		{name: "title rendered with site suffix", issue: domain.IssueMissingMetaTitle,
			page: &domain.PageSnapshot{StatusCode: 200, Title: article.MetaTitle + " | The Bulletin Briefs"}},
		{name: "title still stale on live page", issue: domain.IssueMissingMetaTitle,
			page: &domain.PageSnapshot{StatusCode: 200, Title: "Untitled"}, wantErr: true},
		{name: "title without live page", issue: domain.IssueMissingMetaTitle},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := confirmFix(tc.issue, article, permalink, tc.page, nil)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerificationRunKeepsRecordPendingWhenLiveCanonicalDiffers(t *testing.T) {
	t.Parallel()

	article := healthyArticle("a1", "x")
	f := &verifyFixture{
		articles:      newFakeArticles(article),
		verifications: newFakeVerifications(pendingRecord("v1", "a1", "x", domain.IssueMissingCanonical, 0)),
		queue:         queue.NewMemoryQueue(),
		fetcher: &fakeFetcher{pages: map[string]domain.PageSnapshot{
			permalinkOf("x"): {StatusCode: 200, BodyBytes: 4000, Canonical: "https://elsewhere.example.com/copy"},
		}},
	}

	report, err := f.pass().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.StillPending)

	rec, _ := f.verifications.GetVerification(context.Background(), "v1")
	assert.Equal(t, domain.InternalPending, rec.InternalStatus)
	assert.Equal(t, 1, rec.RetryCount)
	assert.Contains(t, rec.LastError, "live page canonical")
}

func TestVerificationRunCountsUnsavedRecordsAsPending(t *testing.T) {
	t.Parallel()

	article := healthyArticle("a1", "x")
	f := &verifyFixture{
		articles:      newFakeArticles(article),
		verifications: newFakeVerifications(pendingRecord("v1", "a1", "x", domain.IssueMissingCanonical, 0)),
		queue:         queue.NewMemoryQueue(),
	}
	f.verifications.updateErr = errors.New("connection reset")

	report, err := f.pass().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errors)
	assert.Zero(t, report.Passed)
	assert.Equal(t, 1, report.StillPending)
	require.NotNil(t, report.NextJob)
	assert.Equal(t, 1, f.queue.Pending())
}

func TestVerificationRunUpdatesRecords(t *testing.T) {
	t.Parallel()

	fixed := healthyArticle("a1", "fixed")
	broken := healthyArticle("a2", "broken")
	broken.MetaTitle = ""

	f := &verifyFixture{
		articles: newFakeArticles(fixed, broken),
		verifications: newFakeVerifications(
			pendingRecord("v1", "a1", "fixed", domain.IssueMissingCanonical, 0),
			pendingRecord("v2", "a2", "broken", domain.IssueMissingMetaTitle, 0),
			pendingRecord("v3", "a2", "broken", domain.IssueMissingMetaTitle, 3),
		),
		queue:    queue.NewMemoryQueue(),
		notifier: &fakeNotifier{},
	}

	report, err := f.pass().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.StillPending)

	v1, _ := f.verifications.GetVerification(context.Background(), "v1")
	assert.Equal(t, domain.InternalPassed, v1.InternalStatus)

	v2, _ := f.verifications.GetVerification(context.Background(), "v2")
	assert.Equal(t, domain.InternalPending, v2.InternalStatus)
	assert.Equal(t, 1, v2.RetryCount)
	assert.Contains(t, v2.LastError, "meta_title")

	v3, _ := f.verifications.GetVerification(context.Background(), "v3")
	assert.Equal(t, domain.InternalFailed, v3.InternalStatus)
	assert.Equal(t, 3, v3.RetryCount)

	require.NotNil(t, report.NextJob)
	assert.Equal(t, testNow.Add(15*time.Minute), report.NextJob.DueAt)
	assert.Equal(t, 1, f.queue.Pending())
	assert.Len(t, f.notifier.messages, 1)
}

func TestVerificationRunDoesNotRetryFailedRecords(t *testing.T) {
	t.Parallel()

	broken := healthyArticle("a1", "broken")
	broken.CanonicalURL = "https://elsewhere.example.com/broken"
	f := &verifyFixture{
		articles:      newFakeArticles(broken),
		verifications: newFakeVerifications(pendingRecord("v1", "a1", "broken", domain.IssueDuplicateCanonical, 3)),
		queue:         queue.NewMemoryQueue(),
	}

	report, err := f.pass().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Nil(t, report.NextJob)
	assert.Zero(t, f.queue.Pending())

	report, err = f.pass().Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
}

func TestVerificationUsesInspector(t *testing.T) {
	t.Parallel()

	article := healthyArticle("a1", "x")
	f := &verifyFixture{
		articles:      newFakeArticles(article),
		verifications: newFakeVerifications(pendingRecord("v1", "a1", "x", domain.IssueMissingCanonical, 0)),
		queue:         queue.NewMemoryQueue(),
		inspector:     fakeInspector{status: domain.GSCNotIndexed},
	}

	report, err := f.pass().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.StillPending)

	rec, _ := f.verifications.GetVerification(context.Background(), "v1")
	assert.Equal(t, domain.GSCNotIndexed, rec.GSCStatus)
	assert.Equal(t, 1, rec.RetryCount)

	f.inspector = fakeInspector{status: domain.GSCIndexed}
	report, err = f.pass().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Passed)

	rec, _ = f.verifications.GetVerification(context.Background(), "v1")
	assert.Equal(t, domain.InternalPassed, rec.InternalStatus)
	assert.Equal(t, domain.GSCIndexed, rec.GSCStatus)
}

func TestVerificationRecheck(t *testing.T) {
	t.Parallel()

	article := healthyArticle("a1", "x")
	passed := pendingRecord("v2", "a1", "x", domain.IssueMissingCanonical, 1)
	passed.InternalStatus = domain.InternalPassed
	f := &verifyFixture{
		articles: newFakeArticles(article),
		verifications: newFakeVerifications(
			pendingRecord("v1", "a1", "x", domain.IssueMissingCanonical, 0),
			passed,
		),
	}
	pass := f.pass()

	rec, err := pass.Recheck(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, domain.InternalPassed, rec.InternalStatus)

	rec, err = pass.Recheck(context.Background(), "v2")
	require.NoError(t, err)
	assert.Equal(t, passed, rec)

	_, err = pass.Recheck(context.Background(), "missing")
	assert.ErrorIs(t, err, errNotFound)
}

func TestVerificationMissingArticleCountsAsFailure(t *testing.T) {
	t.Parallel()

	f := &verifyFixture{
		articles:      newFakeArticles(),
		verifications: newFakeVerifications(pendingRecord("v1", "gone", "x", domain.IssueMissingMetaTitle, 0)),
	}

	report, err := f.pass().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.StillPending)
	rec, _ := f.verifications.GetVerification(context.Background(), "v1")
	assert.Contains(t, rec.LastError, "load article")
}
