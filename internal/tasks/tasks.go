package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// Notification delivery (consumed by cmd/worker)
	TypeShowNotification = "notification:show"
)

// QueueNotifications is the queue notification tasks are enqueued on
const QueueNotifications = "notifications"

// NotificationPayload is the payload of a show-notification task
type NotificationPayload struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewShowNotificationTask creates a task that records a user notification
func NewShowNotificationTask(id, message string, createdAt time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(NotificationPayload{
		ID:        id,
		Message:   message,
		CreatedAt: createdAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeShowNotification, payload, asynq.Queue(QueueNotifications)), nil
}

// ParseNotificationPayload parses task payload from Asynq task
func ParseNotificationPayload(task *asynq.Task) (NotificationPayload, error) {
	var payload NotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.Message == "" {
		return payload, fmt.Errorf("notification payload has no message")
	}
	return payload, nil
}
