package models

import "time"

// Notification types emitted by the timetable fan-out.
const (
	NotificationTypeScheduleCreated = "SCHEDULE_CREATED"
	NotificationTypeScheduleUpdated = "SCHEDULE_UPDATED"
)

// Notification is one per-user message produced by the fan-out consumer.
type Notification struct {
	ID        string            `db:"id" json:"id"`
	UserID    string            `db:"user_id" json:"user_id"`
	Title     string            `db:"title" json:"title"`
	Message   string            `db:"message" json:"message"`
	Type      string            `db:"type" json:"type"`
	Metadata  map[string]string `db:"-" json:"metadata,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}
