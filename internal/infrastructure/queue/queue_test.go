package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BulletinBriefs/internal/config"
	"BulletinBriefs/internal/domain"
)

func TestMemoryQueueReturnsOnlyDueJobs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := NewMemoryQueue()

	require.NoError(t, q.Enqueue(ctx, domain.VerificationJob{ID: "later", DueAt: now.Add(time.Minute)}))
	require.NoError(t, q.Enqueue(ctx, domain.VerificationJob{ID: "b", DueAt: now}))
	require.NoError(t, q.Enqueue(ctx, domain.VerificationJob{ID: "a", DueAt: now.Add(-time.Minute)}))

	due, err := q.Due(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].ID)
	assert.Equal(t, "b", due[1].ID)
	assert.Equal(t, 1, q.Pending())

	due, err = q.Due(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = q.Due(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "later", due[0].ID)
	assert.Zero(t, q.Pending())
}

func TestJobCodecRoundTrip(t *testing.T) {
	t.Parallel()

	job := domain.VerificationJob{
		ID:     "j1",
		ScanID: "s1",
		Reason: "autofix",
		DueAt:  time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC),
	}
	member, err := encodeJob(job)
	require.NoError(t, err)

	got, err := decodeJob(member)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.True(t, job.DueAt.Equal(got.DueAt))

	_, err = decodeJob("not json")
	assert.Error(t, err)
}

func TestRedisQueueIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	key := "test:verification:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	q := NewRedisQueue(client, key)
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, q.Enqueue(ctx, domain.VerificationJob{ID: "due", DueAt: now.Add(-time.Second)}))
	require.NoError(t, q.Enqueue(ctx, domain.VerificationJob{ID: "future", DueAt: now.Add(time.Hour)}))

	due, err := q.Due(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)

	due, err = q.Due(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}
