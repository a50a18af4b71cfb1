package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type rosterRepository interface {
	ListActiveStudentContacts(ctx context.Context, classID string) ([]models.StudentContact, error)
	ListActiveTeacherUserIDs(ctx context.Context, classID string) ([]string, error)
}

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type broadcaster interface {
	Publish(ctx context.Context, channel string, value interface{}) error
}

// NotificationService consumes schedule-changed events and fans them out to
// the class roster: active students, their linked parents, and active
// assigned teachers. The fan-out is best effort; per-user failures are logged
// and never surfaced to the mutation that produced the event.
type NotificationService struct {
	roster    rosterRepository
	store     notificationStore
	broadcast broadcaster
	channel   string
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewNotificationService constructs the fan-out consumer. broadcast may be
// nil; channel publishing is then skipped.
func NewNotificationService(roster rosterRepository, store notificationStore, broadcast broadcaster, channel string, logger *zap.Logger, metrics *MetricsService) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		roster:    roster,
		store:     store,
		broadcast: broadcast,
		channel:   channel,
		logger:    logger,
		metrics:   metrics,
	}
}

// HandleScheduleEvent is the jobs.Handler for schedule-changed events.
// Roster resolution errors are returned so the queue can retry; everything
// past that point is swallowed after logging.
func (s *NotificationService) HandleScheduleEvent(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(ScheduleChangedEvent)
	if !ok {
		s.logger.Error("unexpected job payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}

	userIDs, err := s.resolveAffectedUsers(ctx, event.ClassID)
	if err != nil {
		return fmt.Errorf("resolve affected users for class %s: %w", event.ClassID, err)
	}

	title, message := describeChange(event)
	notificationType := models.NotificationTypeScheduleCreated
	if event.Change == ScheduleChangeUpdated {
		notificationType = models.NotificationTypeScheduleUpdated
	}

	for _, userID := range userIDs {
		notification := models.Notification{
			UserID:  userID,
			Title:   title,
			Message: message,
			Type:    notificationType,
			Metadata: map[string]string{
				"class_id":    event.ClassID,
				"schedule_id": event.ScheduleID,
			},
		}
		if err := s.store.Create(ctx, &notification); err != nil {
			s.metrics.RecordFanout("failed")
			s.logger.Warn("failed to store notification",
				zap.String("user_id", userID),
				zap.String("schedule_id", event.ScheduleID),
				zap.Error(err))
			continue
		}
		if s.broadcast != nil {
			if err := s.broadcast.Publish(ctx, s.channel, notification); err != nil {
				s.logger.Warn("failed to broadcast notification",
					zap.String("user_id", userID),
					zap.Error(err))
			}
		}
		s.metrics.RecordFanout("delivered")
	}

	s.logger.Info("schedule change fan-out complete",
		zap.String("class_id", event.ClassID),
		zap.String("schedule_id", event.ScheduleID),
		zap.String("change", event.Change),
		zap.Int("recipients", len(userIDs)))
	return nil
}

// resolveAffectedUsers returns a deduplicated list: students first, then
// linked parents, then assigned teachers.
func (s *NotificationService) resolveAffectedUsers(ctx context.Context, classID string) ([]string, error) {
	contacts, err := s.roster.ListActiveStudentContacts(ctx, classID)
	if err != nil {
		return nil, err
	}
	teacherIDs, err := s.roster.ListActiveTeacherUserIDs(ctx, classID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var userIDs []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		userIDs = append(userIDs, id)
	}

	for _, contact := range contacts {
		add(contact.StudentUserID)
		if contact.ParentUserID != nil {
			add(*contact.ParentUserID)
		}
	}
	for _, id := range teacherIDs {
		add(id)
	}
	return userIDs, nil
}

func describeChange(event ScheduleChangedEvent) (title, message string) {
	slot := fmt.Sprintf("%s %s-%s", event.DayOfWeek, event.StartTime, event.EndTime)
	if event.Change == ScheduleChangeUpdated {
		return "Timetable updated", fmt.Sprintf("A period on %s was updated in your class timetable.", slot)
	}
	return "New timetable period", fmt.Sprintf("A new period was added on %s in your class timetable.", slot)
}
