package notify

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/appshell-dev/appshell/internal/tasks"
)

// Enqueuer is the part of *asynq.Client used by TaskSink
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskSink queues notifications for the worker, which records them
type TaskSink struct {
	client  Enqueuer
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewTaskSink(client Enqueuer, logger zerolog.Logger) *TaskSink {
	return &TaskSink{
		client:  client,
		logger:  logger,
		timeout: 2 * time.Second,
		now:     time.Now,
	}
}

// Show enqueues the message. Failures are logged and dropped.
func (t *TaskSink) Show(message string) {
	task, err := tasks.NewShowNotificationTask(ulid.Make().String(), message, t.now().UTC())
	if err != nil {
		t.logger.Error().Err(err).Msg("Failed to create notification task")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	if _, err := t.client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		t.logger.Error().Err(err).Msg("Failed to enqueue notification task")
		return
	}

	t.logger.Debug().Str("message", message).Msg("Notification task enqueued")
}
