package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/oscied/orchestrator/cmn"
)

// AMQPQueue is the production JobQueue, backed by github.com/streadway/amqp
// against a RabbitMQ broker (cmn.Config.Queue.RabbitConnection). Task ids are
// minted client-side (google/uuid) at submit time and carried as the AMQP
// message id and correlation id, mirroring the Celery task-id-returned-
// immediately contract the original worker pool relied on.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	mu     sync.Mutex
	known  map[string]bool
	events map[string]chan Event
}

// Dial connects to dsn and declares every name in queues up front, so
// Queues() (and therefore the dispatcher's pre-submit queue check) accepts
// them immediately on a fresh connection instead of only after some earlier
// Submit happened to declare them. An operator adding a new named
// transform/publisher queue still only needs to add it to config and
// redeploy; Submit also declares on demand for any queue missing from this
// seed list.
func Dial(dsn string, queues []string) (*AMQPQueue, error) {
	conn, err := amqp.DialConfig(dsn, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(DefaultDialTimeout),
	})
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindTransient, "failed to connect to message broker")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, cmn.Wrap(err, cmn.KindTransient, "failed to open amqp channel")
	}
	q := &AMQPQueue{conn: conn, ch: ch, known: map[string]bool{}, events: map[string]chan Event{}}
	for _, name := range queues {
		if err := q.declare(name); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, cmn.Wrap(err, cmn.KindTransient, "failed to declare queue "+name)
		}
	}
	return q, nil
}

func (q *AMQPQueue) declare(name string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.known[name] {
		return nil
	}
	_, err := q.ch.QueueDeclare(name, true /*durable*/, false, false, false, nil)
	if err != nil {
		return err
	}
	q.known[name] = true
	return nil
}

func (q *AMQPQueue) Submit(ctx context.Context, job Job) (string, error) {
	if err := q.declare(job.Queue); err != nil {
		return "", cmn.Wrap(err, cmn.KindTransient, "unable to declare queue "+job.Queue)
	}
	taskID := uuid.New().String()
	body, err := cmn.Marshal(job.Payload)
	if err != nil {
		return "", cmn.Wrap(err, cmn.KindInternal, "failed to marshal job payload")
	}
	msg := amqp.Publishing{
		ContentType:   "application/json",
		MessageId:     taskID,
		CorrelationId: taskID,
		Body:          body,
		DeliveryMode:  amqp.Persistent,
	}
	publishErr := make(chan error, 1)
	go func() { publishErr <- q.ch.Publish("", job.Queue, false, false, msg) }()
	select {
	case err := <-publishErr:
		if err != nil {
			return "", cmn.Wrap(err, cmn.KindTransient, "unable to transmit job to "+job.Queue)
		}
		return taskID, nil
	case <-ctx.Done():
		return "", cmn.Wrap(ctx.Err(), cmn.KindTransient, "timed out submitting job")
	}
}

// Revoke publishes a best-effort cancellation control message on the
// default exchange with the "control" routing key; the worker side decides
// whether terminate means a hard kill or a graceful stop.
func (q *AMQPQueue) Revoke(ctx context.Context, taskID string, terminate bool) error {
	body, err := cmn.Marshal(map[string]interface{}{
		"task_id":   taskID,
		"terminate": terminate,
	})
	if err != nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to marshal revoke control message")
	}
	msg := amqp.Publishing{ContentType: "application/json", CorrelationId: taskID, Body: body}
	done := make(chan error, 1)
	go func() { done <- q.ch.Publish("", "control", false, false, msg) }()
	select {
	case err := <-done:
		if err != nil {
			return cmn.Wrap(err, cmn.KindTransient, "unable to transmit revoke for "+taskID)
		}
		return nil
	case <-ctx.Done():
		return cmn.Wrap(ctx.Err(), cmn.KindTransient, "timed out revoking task")
	}
}

// ProgressEvents has no side-channel wiring over plain queue delivery in
// this deployment; callbacks (package callback) are the sole progress path.
func (q *AMQPQueue) ProgressEvents(_ context.Context, _ string) (<-chan Event, error) {
	return nil, nil
}

func (q *AMQPQueue) Queues(_ context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	names := make([]string, 0, len(q.known))
	for name := range q.known {
		names = append(names, name)
	}
	return names, nil
}

func (q *AMQPQueue) Close() error {
	_ = q.ch.Close()
	return q.conn.Close()
}
