package workers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/appshell-dev/appshell/internal/persist"
	"github.com/appshell-dev/appshell/internal/tasks"
)

// HandleShowNotification records a queued notification.
// A malformed payload is not retried.
func HandleShowNotification(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	payload, err := tasks.ParseNotificationPayload(t)
	if err != nil {
		logger.Error().Err(err).Msg("Dropping malformed notification task")
		return fmt.Errorf("failed to parse payload: %w: %w", err, asynq.SkipRetry)
	}

	record, err := persist.RecordNotification(ctx, db, payload.ID, payload.Message, payload.CreatedAt)
	if err != nil {
		return err
	}

	logger.Info().
		Str("notification_id", record.ID).
		Str("message", record.Message).
		Msg("Notification recorded")

	return nil
}
