package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// NotificationRepository persists per-user notifications produced by the
// fan-out consumer.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a notification row. Metadata is serialized to jsonb.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	var metadata []byte
	if notification.Metadata != nil {
		encoded, err := json.Marshal(notification.Metadata)
		if err != nil {
			return fmt.Errorf("encode notification metadata: %w", err)
		}
		metadata = encoded
	}

	const query = `INSERT INTO notifications (id, user_id, title, message, type, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		notification.ID,
		notification.UserID,
		notification.Title,
		notification.Message,
		notification.Type,
		metadata,
		notification.CreatedAt,
	); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}
