// Package tasks runs side effects (re-index requests and similar) as
// asynchronous tasks with bounded retries and observable status.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRunnerClosed is returned by Submit after Close.
var ErrRunnerClosed = errors.New("task runner is closed")

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Policy bounds retries; attempt n waits InitialBackoff*2^(n-1), capped at MaxBackoff.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy is used when a runner gets a zero policy.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialBackoff: 2 * time.Second, MaxBackoff: 30 * time.Second}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = 0
	}
	if p.MaxBackoff > 0 && p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return p
}

// Backoff returns the wait before the attempt following attempt n (1-based).
func (p Policy) Backoff(n int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Snapshot is a point-in-time copy of a task's state.
type Snapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Task is a handle to a submitted side effect.
type Task struct {
	id   string
	name string
	done chan struct{}

	mu       sync.Mutex
	status   Status
	attempts int
	lastErr  error
	started  time.Time
	finished time.Time
}

// Done is closed once the task reaches a terminal status.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the last attempt's error for failed tasks.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusFailed {
		return nil
	}
	return t.lastErr
}

// Snapshot copies the task state.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Snapshot{
		ID:         t.id,
		Name:       t.name,
		Status:     t.status,
		Attempts:   t.attempts,
		StartedAt:  t.started,
		FinishedAt: t.finished,
	}
	if t.lastErr != nil {
		s.LastError = t.lastErr.Error()
	}
	return s
}

func (t *Task) set(fn func(t *Task)) {
	t.mu.Lock()
	fn(t)
	t.mu.Unlock()
}

// Runner executes tasks concurrently, one goroutine per task.
type Runner struct {
	policy Policy
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time

	mu     sync.Mutex
	wg     sync.WaitGroup
	tasks  []*Task
	closed bool
}

// NewRunner builds a runner; a nil logger discards task logs.
func NewRunner(policy Policy, logger *slog.Logger) *Runner {
	if policy == (Policy{}) {
		policy = DefaultPolicy()
	}
	return &Runner{
		policy: policy.normalized(),
		logger: logger,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

// Submit starts fn in the background. fn is retried per the runner policy
// until it succeeds, attempts run out or ctx is cancelled.
func (r *Runner) Submit(ctx context.Context, name string, fn func(context.Context) error) (*Task, error) {
	if fn == nil {
		return nil, fmt.Errorf("task %s: nil func", name)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRunnerClosed
	}
	task := &Task{id: uuid.NewString(), name: name, status: StatusPending, done: make(chan struct{})}
	r.tasks = append(r.tasks, task)
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(ctx, task, fn)
	return task, nil
}

func (r *Runner) run(ctx context.Context, task *Task, fn func(context.Context) error) {
	defer r.wg.Done()
	defer close(task.done)

	task.set(func(t *Task) {
		t.status = StatusRunning
		t.started = r.now()
	})

	var err error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		task.set(func(t *Task) { t.attempts = attempt })

		if err = fn(ctx); err == nil {
			task.set(func(t *Task) {
				t.status = StatusSucceeded
				t.lastErr = nil
				t.finished = r.now()
			})
			r.debug("task succeeded", "task", task.name, "attempt", attempt)
			return
		}

		task.set(func(t *Task) { t.lastErr = err })
		r.warn("task attempt failed", "task", task.name, "attempt", attempt, "error", err)

		if attempt == r.policy.MaxAttempts {
			break
		}
		if sErr := r.sleep(ctx, r.policy.Backoff(attempt)); sErr != nil {
			err = fmt.Errorf("%w (retry aborted: %v)", err, sErr)
			break
		}
	}

	task.set(func(t *Task) {
		t.status = StatusFailed
		t.lastErr = err
		t.finished = r.now()
	})
}

// Wait blocks until every submitted task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close rejects new submissions and waits for running tasks.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}

// Snapshots returns every task state in submission order.
func (r *Runner) Snapshots() []Snapshot {
	r.mu.Lock()
	tasks := make([]*Task, len(r.tasks))
	copy(tasks, r.tasks)
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Snapshot())
	}
	return out
}

// Counts tallies snapshots by status.
func Counts(snaps []Snapshot) map[Status]int {
	out := map[Status]int{}
	for _, s := range snaps {
		out[s.Status]++
	}
	return out
}

func (r *Runner) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Runner) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
