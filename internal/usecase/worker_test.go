package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/infrastructure/queue"
	"BulletinBriefs/internal/logging"
)

func TestWorkerPollRunsPassOnlyWhenJobsAreDue(t *testing.T) {
	t.Parallel()

	article := healthyArticle("a1", "x")
	f := &verifyFixture{
		articles:      newFakeArticles(article),
		verifications: newFakeVerifications(pendingRecord("v1", "a1", "x", domain.IssueMissingCanonical, 0)),
		queue:         queue.NewMemoryQueue(),
	}
	require.NoError(t, f.queue.Enqueue(context.Background(), domain.VerificationJob{ID: "j1", DueAt: testNow.Add(time.Minute)}))

	w := NewVerificationWorker(f.queue, f.pass(), time.Second, logging.Discard())
	w.now = fixedNow

	assert.False(t, w.Poll(context.Background()))
	rec, _ := f.verifications.GetVerification(context.Background(), "v1")
	assert.Equal(t, domain.InternalPending, rec.InternalStatus)

	w.now = func() time.Time { return testNow.Add(time.Minute) }
	assert.True(t, w.Poll(context.Background()))
	rec, _ = f.verifications.GetVerification(context.Background(), "v1")
	assert.Equal(t, domain.InternalPassed, rec.InternalStatus)
	assert.Zero(t, f.queue.Pending())
}

func TestWorkerPollRequeuesJobsWhenPassFails(t *testing.T) {
	t.Parallel()

	article := healthyArticle("a1", "x")
	f := &verifyFixture{
		articles:      newFakeArticles(article),
		verifications: newFakeVerifications(pendingRecord("v1", "a1", "x", domain.IssueMissingCanonical, 0)),
		queue:         queue.NewMemoryQueue(),
	}
	f.verifications.listErr = errors.New("connection refused")
	require.NoError(t, f.queue.Enqueue(context.Background(), domain.VerificationJob{ID: "j1", DueAt: testNow}))

	w := NewVerificationWorker(f.queue, f.pass(), time.Second, logging.Discard())
	w.now = fixedNow

	assert.True(t, w.Poll(context.Background()))
	assert.Equal(t, 1, f.queue.Pending())
	rec, _ := f.verifications.GetVerification(context.Background(), "v1")
	assert.Equal(t, domain.InternalPending, rec.InternalStatus)

	// The job comes back after the verification delay, not on the next tick.
	assert.False(t, w.Poll(context.Background()))

	f.verifications.mu.Lock()
	f.verifications.listErr = nil
	f.verifications.mu.Unlock()
	w.now = func() time.Time { return testNow.Add(15 * time.Minute) }

	assert.True(t, w.Poll(context.Background()))
	rec, _ = f.verifications.GetVerification(context.Background(), "v1")
	assert.Equal(t, domain.InternalPassed, rec.InternalStatus)
	assert.Zero(t, f.queue.Pending())
}

// partialQueue hands out its jobs together with a claim error.
type partialQueue struct {
	mu       sync.Mutex
	jobs     []domain.VerificationJob
	claimErr error
	enqueued []domain.VerificationJob
}

func (q *partialQueue) Enqueue(_ context.Context, job domain.VerificationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, job)
	return nil
}

func (q *partialQueue) Due(context.Context, time.Time) ([]domain.VerificationJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := q.jobs
	q.jobs = nil
	return jobs, q.claimErr
}

func TestWorkerPollRunsPassForPartialClaims(t *testing.T) {
	t.Parallel()

	article := healthyArticle("a1", "x")
	f := &verifyFixture{
		articles:      newFakeArticles(article),
		verifications: newFakeVerifications(pendingRecord("v1", "a1", "x", domain.IssueMissingCanonical, 0)),
	}
	q := &partialQueue{
		jobs:     []domain.VerificationJob{{ID: "j1", DueAt: testNow}},
		claimErr: errors.New("claim job: i/o timeout"),
	}

	w := NewVerificationWorker(q, f.pass(), time.Second, logging.Discard())
	w.now = fixedNow

	assert.True(t, w.Poll(context.Background()))
	rec, _ := f.verifications.GetVerification(context.Background(), "v1")
	assert.Equal(t, domain.InternalPassed, rec.InternalStatus)
	assert.Empty(t, q.enqueued)
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	w := NewVerificationWorker(queue.NewMemoryQueue(), &VerificationPass{}, 10*time.Millisecond, logging.Discard())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
