package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/oscied/orchestrator/cmn"
)

// MockQueue is an in-process JobQueue for tests (the daemon itself always
// dials a broker): Submit never leaves the process, and submitted jobs are
// retained so a test can assert on what was sent. Queue names are supplied
// upfront so GET /transform/queue behaves the same as against a real broker.
type MockQueue struct {
	mu       sync.Mutex
	queues   map[string]bool
	jobs     map[string]Job
	revoked  map[string]bool
	failNext bool
}

func NewMockQueue(queues ...string) *MockQueue {
	known := make(map[string]bool, len(queues))
	for _, q := range queues {
		known[q] = true
	}
	return &MockQueue{queues: known, jobs: map[string]Job{}, revoked: map[string]bool{}}
}

// FailNextSubmit makes the next Submit call return a Transient error,
// exercising the "queue returns nothing -> operation fails" path of spec §4.3
// step 5 without requiring a real broker outage.
func (q *MockQueue) FailNextSubmit() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failNext = true
}

func (q *MockQueue) Submit(_ context.Context, job Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failNext {
		q.failNext = false
		return "", cmn.NewTransient("unable to transmit job to " + job.Queue)
	}
	if !q.queues[job.Queue] {
		return "", cmn.NewMissingEntityRef("queue", job.Queue)
	}
	taskID := uuid.New().String()
	q.jobs[taskID] = job
	return taskID, nil
}

func (q *MockQueue) Revoke(_ context.Context, taskID string, _ bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.jobs[taskID]; !ok {
		return cmn.NewMissingEntityRef("task", taskID)
	}
	q.revoked[taskID] = true
	return nil
}

func (q *MockQueue) ProgressEvents(_ context.Context, _ string) (<-chan Event, error) {
	return nil, nil
}

func (q *MockQueue) Queues(_ context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	names := make([]string, 0, len(q.queues))
	for name := range q.queues {
		names = append(names, name)
	}
	return names, nil
}

// Job returns the job previously submitted for taskID, for assertions.
func (q *MockQueue) Job(taskID string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[taskID]
	return j, ok
}

func (q *MockQueue) Revoked(taskID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.revoked[taskID]
}

func (q *MockQueue) Close() error { return nil }
