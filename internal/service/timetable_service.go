package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/interval"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

const dateLayout = "2006-01-02"

type timetableRepository interface {
	WithSerializableTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	GetOrCreate(ctx context.Context, tx *sqlx.Tx, classID string) (*models.Timetable, error)
	FindByClass(ctx context.Context, classID string) (*models.Timetable, error)
	ClassIDForTimetable(ctx context.Context, timetableID string) (string, error)
	FindScheduleByID(ctx context.Context, id string) (*models.Schedule, error)
	ListByClass(ctx context.Context, classID string) ([]models.Schedule, error)
	FindClassDayCandidates(ctx context.Context, tx *sqlx.Tx, q models.ConflictQuery) ([]models.Schedule, error)
	FindTeacherDayCandidates(ctx context.Context, tx *sqlx.Tx, q models.ConflictQuery) ([]models.Schedule, error)
	CreateSchedule(ctx context.Context, tx *sqlx.Tx, schedule *models.Schedule) error
	UpdateSchedule(ctx context.Context, tx *sqlx.Tx, schedule *models.Schedule) error
	ClearRoom(ctx context.Context, id string) error
}

type classLookup interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type subjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type viewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// EventQueue dispatches schedule-changed events to the fan-out workers.
type EventQueue interface {
	Enqueue(job jobs.Job) error
}

// ScheduleChangedEvent is published after a successful mutation and consumed
// by the notification fan-out.
type ScheduleChangedEvent struct {
	ClassID    string             `json:"class_id"`
	ScheduleID string             `json:"schedule_id"`
	Change     string             `json:"change"`
	DayOfWeek  models.DayOfWeek   `json:"day_of_week"`
	StartTime  interval.ClockTime `json:"start_time"`
	EndTime    interval.ClockTime `json:"end_time"`
}

// Schedule change kinds.
const (
	ScheduleChangeCreated = "created"
	ScheduleChangeUpdated = "updated"
)

// AddScheduleRequest describes payload for adding a schedule to a class.
type AddScheduleRequest struct {
	DayOfWeek     string  `json:"day_of_week" validate:"required"`
	StartTime     string  `json:"start_time" validate:"required"`
	EndTime       string  `json:"end_time" validate:"required"`
	PeriodType    string  `json:"period_type" validate:"required"`
	SubjectID     *string `json:"subject_id"`
	TeacherID     *string `json:"teacher_id"`
	RoomID        *string `json:"room_id"`
	EffectiveDate *string `json:"effective_date"`
	EndDate       *string `json:"end_date"`
}

// EditScheduleRequest carries a partial update; absent fields keep their
// current values. ClearEndDate removes the end date, making the validity
// window open-ended again.
type EditScheduleRequest struct {
	DayOfWeek     *string `json:"day_of_week"`
	StartTime     *string `json:"start_time"`
	EndTime       *string `json:"end_time"`
	PeriodType    *string `json:"period_type"`
	SubjectID     *string `json:"subject_id"`
	TeacherID     *string `json:"teacher_id"`
	RoomID        *string `json:"room_id"`
	EffectiveDate *string `json:"effective_date"`
	EndDate       *string `json:"end_date"`
	ClearEndDate  bool    `json:"clear_end_date"`
}

// TimetableServiceOptions tunes timeouts, caching and instrumentation.
type TimetableServiceOptions struct {
	QueryTimeout time.Duration
	CacheTTL     time.Duration
	Metrics      *MetricsService
}

// TimetableService is the only write path to timetables and schedules. It
// enforces the period-type rules and the conflict invariants on every
// mutation.
type TimetableService struct {
	repo      timetableRepository
	classes   classLookup
	subjects  subjectLookup
	teachers  teacherLookup
	cache     viewCache
	events    EventQueue
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService

	queryTimeout time.Duration
	cacheTTL     time.Duration

	csv *export.CSVExporter
	pdf *export.PDFExporter
}

// NewTimetableService instantiates the service. cache and events may be nil;
// caching and fan-out are then skipped.
func NewTimetableService(repo timetableRepository, classes classLookup, subjects subjectLookup, teachers teacherLookup, cache viewCache, events EventQueue, validate *validator.Validate, logger *zap.Logger, opts TimetableServiceOptions) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 5 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &TimetableService{
		repo:         repo,
		classes:      classes,
		subjects:     subjects,
		teachers:     teachers,
		cache:        cache,
		events:       events,
		validator:    validate,
		logger:       logger,
		metrics:      opts.Metrics,
		queryTimeout: opts.QueryTimeout,
		cacheTTL:     opts.CacheTTL,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
	}
}

// scheduleProposal is a fully parsed and sanitized candidate schedule.
type scheduleProposal struct {
	day        models.DayOfWeek
	start      interval.ClockTime
	end        interval.ClockTime
	periodType models.PeriodType
	subjectID  *string
	teacherID  *string
	roomID     *string
	effective  time.Time
	endDate    *time.Time
}

// AddSchedule validates a proposed period and attaches it to the class
// timetable, creating the timetable on first use. The conflict checks and
// the insert run in one serializable transaction.
func (s *TimetableService) AddSchedule(ctx context.Context, classID string, req AddScheduleRequest) (*models.Schedule, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	proposal, err := s.parseAddRequest(req)
	if err != nil {
		return nil, err
	}
	if err := applyPeriodRules(proposal); err != nil {
		return nil, err
	}
	if err := validateRanges(proposal); err != nil {
		return nil, err
	}
	if err := s.checkExistence(ctx, classID, proposal); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var created *models.Schedule
	txErr := s.repo.WithSerializableTx(opCtx, func(tx *sqlx.Tx) error {
		timetable, err := s.repo.GetOrCreate(opCtx, tx, classID)
		if err != nil {
			return err
		}
		if err := s.ensureClassSlotFree(opCtx, tx, classID, proposal, ""); err != nil {
			return err
		}
		if err := s.ensureTeacherFree(opCtx, tx, proposal, ""); err != nil {
			return err
		}

		schedule := proposal.toSchedule(timetable.ID)
		if err := s.repo.CreateSchedule(opCtx, tx, schedule); err != nil {
			return err
		}
		created = schedule
		return nil
	})
	if txErr != nil {
		return nil, s.mapWriteError(txErr, "failed to add schedule")
	}

	s.invalidateTimetable(ctx, classID)
	s.publishChange(classID, created, ScheduleChangeCreated)
	return created, nil
}

// EditSchedule merges the partial request onto the stored schedule and
// re-validates it as if new, excluding the schedule's own id from the
// conflict checks so it never conflicts with its pre-edit self.
func (s *TimetableService) EditSchedule(ctx context.Context, scheduleID string, req EditScheduleRequest) (*models.Schedule, error) {
	existing, err := s.repo.FindScheduleByID(ctx, scheduleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrScheduleNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	classID, err := s.repo.ClassIDForTimetable(ctx, existing.TimetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve class")
	}

	proposal, err := s.mergeEditRequest(existing, req)
	if err != nil {
		return nil, err
	}
	if err := applyPeriodRules(proposal); err != nil {
		return nil, err
	}
	if err := validateRanges(proposal); err != nil {
		return nil, err
	}
	if err := s.checkExistence(ctx, classID, proposal); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	updated := proposal.toSchedule(existing.TimetableID)
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	txErr := s.repo.WithSerializableTx(opCtx, func(tx *sqlx.Tx) error {
		if err := s.ensureClassSlotFree(opCtx, tx, classID, proposal, existing.ID); err != nil {
			return err
		}
		if err := s.ensureTeacherFree(opCtx, tx, proposal, existing.ID); err != nil {
			return err
		}
		return s.repo.UpdateSchedule(opCtx, tx, updated)
	})
	if txErr != nil {
		return nil, s.mapWriteError(txErr, "failed to edit schedule")
	}

	s.invalidateTimetable(ctx, classID)
	s.publishChange(classID, updated, ScheduleChangeUpdated)
	return updated, nil
}

// UnassignRoom clears only the room reference. Day, time and teacher are
// untouched, so the conflict checks do not need to run again.
func (s *TimetableService) UnassignRoom(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	existing, err := s.repo.FindScheduleByID(ctx, scheduleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrScheduleNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	if err := s.repo.ClearRoom(ctx, scheduleID); err != nil {
		return nil, s.mapWriteError(err, "failed to unassign room")
	}
	existing.RoomID = nil

	classID, err := s.repo.ClassIDForTimetable(ctx, existing.TimetableID)
	if err == nil {
		s.invalidateTimetable(ctx, classID)
		s.publishChange(classID, existing, ScheduleChangeUpdated)
	} else {
		s.logger.Warn("failed to resolve class for room unassign", zap.String("schedule_id", scheduleID), zap.Error(err))
	}
	return existing, nil
}

// GetTimetableByClass returns the class timetable view. A class without a
// timetable yet yields an empty schedule list.
func (s *TimetableService) GetTimetableByClass(ctx context.Context, classID string) (*models.ClassTimetable, error) {
	key := timetableCacheKey(classID)
	if s.cache != nil {
		var cached models.ClassTimetable
		start := time.Now()
		err := s.cache.Get(ctx, key, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("timetable cache read failed", zap.String("class_id", classID), zap.Error(err))
		}
	}

	view := &models.ClassTimetable{ClassID: classID, IsActive: true, Schedules: []models.Schedule{}}
	timetable, err := s.repo.FindByClass(ctx, classID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if err == nil {
		view.IsActive = timetable.IsActive
		schedules, err := s.repo.ListByClass(ctx, classID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
		}
		if schedules != nil {
			view.Schedules = schedules
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, view, s.cacheTTL); err != nil {
			s.logger.Warn("timetable cache write failed", zap.String("class_id", classID), zap.Error(err))
		}
	}
	return view, nil
}

// ExportTimetable renders the class timetable as CSV or PDF.
func (s *TimetableService) ExportTimetable(ctx context.Context, classID, format string) ([]byte, string, error) {
	view, err := s.GetTimetableByClass(ctx, classID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Day", "Start", "End", "Type", "Subject", "Teacher", "Room", "Effective", "Until"},
	}
	for _, sched := range view.Schedules {
		row := map[string]string{
			"Day":       string(sched.DayOfWeek),
			"Start":     sched.StartTime.String(),
			"End":       sched.EndTime.String(),
			"Type":      string(sched.PeriodType),
			"Effective": sched.EffectiveDate.Format(dateLayout),
		}
		if sched.SubjectID != nil {
			row["Subject"] = *sched.SubjectID
		}
		if sched.TeacherID != nil {
			row["Teacher"] = *sched.TeacherID
		}
		if sched.RoomID != nil {
			row["Room"] = *sched.RoomID
		}
		if sched.EndDate != nil {
			row["Until"] = sched.EndDate.Format(dateLayout)
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	switch format {
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, s.csv.ContentType(), nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("Timetable %s", classID))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, s.pdf.ContentType(), nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *TimetableService) parseAddRequest(req AddScheduleRequest) (*scheduleProposal, error) {
	day, ok := models.ParseDayOfWeek(req.DayOfWeek)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day_of_week")
	}
	periodType, ok := models.ParsePeriodType(req.PeriodType)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown period_type")
	}
	start, err := interval.ParseClockTime(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_time")
	}
	end, err := interval.ParseClockTime(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_time")
	}

	effective := truncateToDate(time.Now().UTC())
	if req.EffectiveDate != nil {
		effective, err = parseDate(*req.EffectiveDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_date")
		}
	}
	var endDate *time.Time
	if req.EndDate != nil {
		parsed, err := parseDate(*req.EndDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date")
		}
		endDate = &parsed
	}

	return &scheduleProposal{
		day:        day,
		start:      start,
		end:        end,
		periodType: periodType,
		subjectID:  normalizeID(req.SubjectID),
		teacherID:  normalizeID(req.TeacherID),
		roomID:     normalizeID(req.RoomID),
		effective:  effective,
		endDate:    endDate,
	}, nil
}

func (s *TimetableService) mergeEditRequest(existing *models.Schedule, req EditScheduleRequest) (*scheduleProposal, error) {
	proposal := &scheduleProposal{
		day:        existing.DayOfWeek,
		start:      existing.StartTime,
		end:        existing.EndTime,
		periodType: existing.PeriodType,
		subjectID:  existing.SubjectID,
		teacherID:  existing.TeacherID,
		roomID:     existing.RoomID,
		effective:  existing.EffectiveDate,
		endDate:    existing.EndDate,
	}

	if req.DayOfWeek != nil {
		day, ok := models.ParseDayOfWeek(*req.DayOfWeek)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day_of_week")
		}
		proposal.day = day
	}
	if req.PeriodType != nil {
		periodType, ok := models.ParsePeriodType(*req.PeriodType)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown period_type")
		}
		proposal.periodType = periodType
	}
	if req.StartTime != nil {
		start, err := interval.ParseClockTime(*req.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_time")
		}
		proposal.start = start
	}
	if req.EndTime != nil {
		end, err := interval.ParseClockTime(*req.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_time")
		}
		proposal.end = end
	}
	if req.SubjectID != nil {
		proposal.subjectID = normalizeID(req.SubjectID)
	}
	if req.TeacherID != nil {
		proposal.teacherID = normalizeID(req.TeacherID)
	}
	if req.RoomID != nil {
		proposal.roomID = normalizeID(req.RoomID)
	}
	if req.EffectiveDate != nil {
		effective, err := parseDate(*req.EffectiveDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_date")
		}
		proposal.effective = effective
	}
	if req.ClearEndDate {
		proposal.endDate = nil
	} else if req.EndDate != nil {
		endDate, err := parseDate(*req.EndDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date")
		}
		proposal.endDate = &endDate
	}

	return proposal, nil
}

// applyPeriodRules enforces the BREAK/ACADEMICS business rules. BREAK periods
// never carry a subject or teacher, whatever the caller sent; ACADEMICS
// periods must name a subject.
func applyPeriodRules(p *scheduleProposal) error {
	switch p.periodType {
	case models.PeriodBreak:
		p.subjectID = nil
		p.teacherID = nil
	case models.PeriodAcademics:
		if p.subjectID == nil {
			return appErrors.Clone(appErrors.ErrSubjectRequired, "")
		}
	}
	return nil
}

// validateRanges is the cheapest check and runs before any database query.
func validateRanges(p *scheduleProposal) error {
	if !p.start.Before(p.end) {
		return appErrors.Clone(appErrors.ErrInvalidTimeRange, "")
	}
	if p.endDate != nil && !p.endDate.After(p.effective) {
		return appErrors.Clone(appErrors.ErrInvalidDateRange, "")
	}
	return nil
}

func (s *TimetableService) checkExistence(ctx context.Context, classID string, p *scheduleProposal) error {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrClassNotFound, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up class")
	}
	if p.subjectID != nil {
		if _, err := s.subjects.FindByID(ctx, *p.subjectID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrSubjectNotFound, "")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up subject")
		}
	}
	if p.teacherID != nil {
		if _, err := s.teachers.FindByID(ctx, *p.teacherID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrTeacherNotFound, "")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up teacher")
		}
	}
	return nil
}

// ensureClassSlotFree fails when any active schedule of the class on the same
// day and an overlapping validity window overlaps the proposed time range.
func (s *TimetableService) ensureClassSlotFree(ctx context.Context, tx *sqlx.Tx, classID string, p *scheduleProposal, excludeID string) error {
	candidates, err := s.repo.FindClassDayCandidates(ctx, tx, models.ConflictQuery{
		ClassID:       classID,
		DayOfWeek:     p.day,
		EffectiveDate: p.effective,
		EndDate:       p.endDate,
		ExcludeID:     excludeID,
	})
	if err != nil {
		return err
	}
	for _, candidate := range candidates {
		if interval.TimesOverlap(p.start, p.end, candidate.StartTime, candidate.EndTime) {
			return conflictError(models.ConflictScopeClass, candidate)
		}
	}
	return nil
}

// ensureTeacherFree applies the same overlap test keyed by teacher across all
// classes. Skipped when the proposal has no teacher.
func (s *TimetableService) ensureTeacherFree(ctx context.Context, tx *sqlx.Tx, p *scheduleProposal, excludeID string) error {
	if p.teacherID == nil {
		return nil
	}
	candidates, err := s.repo.FindTeacherDayCandidates(ctx, tx, models.ConflictQuery{
		TeacherID:     *p.teacherID,
		DayOfWeek:     p.day,
		EffectiveDate: p.effective,
		EndDate:       p.endDate,
		ExcludeID:     excludeID,
	})
	if err != nil {
		return err
	}
	for _, candidate := range candidates {
		if interval.TimesOverlap(p.start, p.end, candidate.StartTime, candidate.EndTime) {
			return conflictError(models.ConflictScopeTeacher, candidate)
		}
	}
	return nil
}

func conflictError(scope string, existing models.Schedule) error {
	base := appErrors.ErrClassDayOverlap
	if scope == models.ConflictScopeTeacher {
		base = appErrors.ErrTeacherDoubleBooked
	}
	conflict := models.ScheduleConflict{
		ScheduleID: existing.ID,
		DayOfWeek:  existing.DayOfWeek,
		StartTime:  existing.StartTime,
		EndTime:    existing.EndTime,
		Scope:      scope,
	}
	message := fmt.Sprintf("%s: conflicts with schedule %s (%s %s-%s)",
		base.Message, existing.ID, existing.DayOfWeek, existing.StartTime, existing.EndTime)
	domainErr := &models.ScheduleConflictError{Message: message, Conflict: conflict}
	return appErrors.Wrap(domainErr, base.Code, base.Status, message)
}

func (s *TimetableService) mapWriteError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, repository.ErrTxSerialization) || errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrOperationFailed.Code, appErrors.ErrOperationFailed.Status, appErrors.ErrOperationFailed.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *TimetableService) invalidateTimetable(ctx context.Context, classID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, timetableCacheKey(classID)); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.String("class_id", classID), zap.Error(err))
	}
}

// publishChange hands the event to the fan-out queue. Enqueue failures are
// logged and dropped; the mutation has already committed and must not fail.
func (s *TimetableService) publishChange(classID string, schedule *models.Schedule, change string) {
	if s.events == nil || schedule == nil {
		return
	}
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: "schedule." + change,
		Payload: ScheduleChangedEvent{
			ClassID:    classID,
			ScheduleID: schedule.ID,
			Change:     change,
			DayOfWeek:  schedule.DayOfWeek,
			StartTime:  schedule.StartTime,
			EndTime:    schedule.EndTime,
		},
	}
	if err := s.events.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue schedule change event",
			zap.String("class_id", classID),
			zap.String("schedule_id", schedule.ID),
			zap.Error(err))
	}
}

func (p *scheduleProposal) toSchedule(timetableID string) *models.Schedule {
	return &models.Schedule{
		TimetableID:   timetableID,
		DayOfWeek:     p.day,
		StartTime:     p.start,
		EndTime:       p.end,
		PeriodType:    p.periodType,
		SubjectID:     p.subjectID,
		TeacherID:     p.teacherID,
		RoomID:        p.roomID,
		EffectiveDate: p.effective,
		EndDate:       p.endDate,
	}
}

func timetableCacheKey(classID string) string {
	return "timetable:class:" + classID
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, raw)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeID(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return id
}
