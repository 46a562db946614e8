package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"BulletinBriefs/internal/config"
	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
)

// NewRedisClient opens a client and pings it.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisQueue stores verification jobs in a sorted set scored by due time,
// so jobs survive restarts and several workers can share one queue.
type RedisQueue struct {
	client redis.Cmdable
	key    string
}

var _ ports.VerificationQueue = (*RedisQueue)(nil)

func NewRedisQueue(client redis.Cmdable, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job domain.VerificationJob) error {
	member, err := encodeJob(job)
	if err != nil {
		return err
	}
	if err := q.client.ZAdd(ctx, q.key, redis.Z{Score: float64(job.DueAt.Unix()), Member: member}).Err(); err != nil {
		return fmt.Errorf("enqueue verification job %s: %w", job.ID, err)
	}
	return nil
}

// Due claims due members one by one. A member is returned only by the
// caller whose ZREM removed it.
func (q *RedisQueue) Due(ctx context.Context, now time.Time) ([]domain.VerificationJob, error) {
	members, err := q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}

	jobs := make([]domain.VerificationJob, 0, len(members))
	for _, member := range members {
		removed, err := q.client.ZRem(ctx, q.key, member).Result()
		if err != nil {
			return jobs, fmt.Errorf("claim job: %w", err)
		}
		if removed != 1 {
			continue
		}
		job, err := decodeJob(member)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func encodeJob(job domain.VerificationJob) (string, error) {
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode verification job: %w", err)
	}
	return string(raw), nil
}

func decodeJob(member string) (domain.VerificationJob, error) {
	var job domain.VerificationJob
	if err := json.Unmarshal([]byte(member), &job); err != nil {
		return domain.VerificationJob{}, fmt.Errorf("decode verification job: %w", err)
	}
	return job, nil
}
