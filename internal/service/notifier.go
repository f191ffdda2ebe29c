package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stitchline/atelier-api/pkg/jobs"
)

// QueueNotifier publishes workflow events through the background job queue.
// Enqueue failures are logged and dropped; the workflow never blocks on them.
type QueueNotifier struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewQueueNotifier builds the queue-backed notifier and its queue. The
// provided sink receives each event off the worker goroutines.
func NewQueueNotifier(sink func(context.Context, NotificationEvent) error, cfg jobs.QueueConfig) *QueueNotifier {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(NotificationEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		if sink == nil {
			return nil
		}
		return sink(ctx, event)
	}
	return &QueueNotifier{
		queue:  jobs.NewQueue("notifications", handler, cfg),
		logger: logger,
	}
}

// Start begins delivery workers.
func (n *QueueNotifier) Start(ctx context.Context) { n.queue.Start(ctx) }

// Stop drains the workers.
func (n *QueueNotifier) Stop() { n.queue.Stop() }

// Publish implements Notifier.
func (n *QueueNotifier) Publish(event NotificationEvent) {
	job := jobs.Job{
		ID:       uuid.NewString(),
		Type:     event.Type,
		Payload:  event,
		Enqueued: time.Now().UTC(),
	}
	if err := n.queue.Enqueue(job); err != nil {
		n.logger.Warn("failed to enqueue notification", zap.String("type", event.Type), zap.Error(err))
	}
}
