package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
)

// MemoryQueue keeps verification jobs in process. It is used when no
// Redis address is configured and in tests.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs []domain.VerificationJob
}

var _ ports.VerificationQueue = (*MemoryQueue)(nil)

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job domain.VerificationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

// Due removes and returns jobs due at or before now, earliest first.
func (q *MemoryQueue) Due(_ context.Context, now time.Time) ([]domain.VerificationJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []domain.VerificationJob
	kept := q.jobs[:0]
	for _, job := range q.jobs {
		if !job.DueAt.After(now) {
			due = append(due, job)
			continue
		}
		kept = append(kept, job)
	}
	q.jobs = kept

	sort.SliceStable(due, func(i, j int) bool { return due[i].DueAt.Before(due[j].DueAt) })
	return due, nil
}

// Pending reports how many jobs are waiting.
func (q *MemoryQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
