package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/appshell-dev/appshell/internal/models"
)

// RecordNotification stores a notification. Recording the same ID twice is a
// no-op so queue retries do not duplicate rows.
func RecordNotification(ctx context.Context, db *gorm.DB, id, message string, createdAt time.Time) (*models.NotificationRecord, error) {
	db = db.WithContext(ctx)

	if id != "" {
		var existing models.NotificationRecord
		err := models.FindByID(db, id, &existing)
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up notification: %w", err)
		}
	}

	record := &models.NotificationRecord{
		BaseModel: models.BaseModel{ID: id, CreatedAt: createdAt},
		Message:   message,
	}
	if err := db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to record notification: %w", err)
	}
	return record, nil
}

// ListNotifications returns the most recent notifications, newest first
func ListNotifications(ctx context.Context, db *gorm.DB, limit int) ([]models.NotificationRecord, error) {
	var records []models.NotificationRecord
	err := db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return records, nil
}

// RecordSink is a notify.Sink that writes straight to the database. Used when
// no notification queue is configured.
type RecordSink struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewRecordSink(db *gorm.DB, logger zerolog.Logger) *RecordSink {
	return &RecordSink{db: db, logger: logger}
}

func (r *RecordSink) Show(message string) {
	if _, err := RecordNotification(context.Background(), r.db, "", message, time.Now().UTC()); err != nil {
		r.logger.Error().Err(err).Msg("Failed to record notification")
	}
}
