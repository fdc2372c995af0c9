// Package queue abstracts the message bus a task dispatcher submits work to:
// named queues accept a serialized job and return a worker-assigned task id,
// or fail outright (spec §9, "JobQueue interface").
package queue

import (
	"context"
	"time"
)

// Job is the payload handed to a worker: the serialized media_in, media_out,
// profile and callback URL a transform worker needs, or the media and
// callback a publisher worker needs. Queue implementations treat it opaquely
// and marshal it with cmn.Marshal before putting it on the wire.
type Job struct {
	Queue       string
	CallbackURL string
	Payload     map[string]interface{}
}

// Event is a progress update delivered out-of-band from the primary
// callback-based path (spec §9: "progress_events(task_id) -> stream
// (optional)"). Most deployments never populate this; a nil channel from
// ProgressEvents means "no side channel available".
type Event struct {
	TaskID  string
	Percent int
	Message string
}

// JobQueue is the contract every worker-queue backend satisfies.
type JobQueue interface {
	// Submit puts job on its named queue and returns the worker-assigned
	// task id. An empty id with a nil error never happens; failure to
	// obtain an id is always reported as an error (spec §4.3 step 5).
	Submit(ctx context.Context, job Job) (taskID string, err error)

	// Revoke asks the worker to cancel taskID. terminate requests a hard
	// stop; without it the request is advisory only. Best-effort: the
	// task may already have reached a terminal state on the worker side.
	Revoke(ctx context.Context, taskID string, terminate bool) error

	// ProgressEvents returns a channel of progress events for taskID, or
	// nil if this backend has no side channel. The channel is closed when
	// the task reaches a terminal state or ctx is done.
	ProgressEvents(ctx context.Context, taskID string) (<-chan Event, error)

	// Queues lists the queue names this backend currently knows about
	// (GET /transform/queue, spec §6).
	Queues(ctx context.Context) ([]string, error)

	Close() error
}

// DefaultDialTimeout bounds each broker connection attempt made by Dial.
const DefaultDialTimeout = 10 * time.Second
