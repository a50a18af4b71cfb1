package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ErrTxSerialization marks a serializable transaction that lost against a
// concurrent writer. Callers should surface it as a retryable failure.
var ErrTxSerialization = errors.New("serializable transaction conflict")

const scheduleColumns = `s.id, s.timetable_id, s.day_of_week, s.start_time, s.end_time, s.period_type, s.subject_id, s.teacher_id, s.room_id, s.effective_date, s.end_date, s.created_at, s.updated_at`

// TimetableRepository provides persistence for timetables and their schedules.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// WithSerializableTx runs fn inside a SERIALIZABLE transaction. The conflict
// checks and the subsequent insert/update must share one transaction so that
// concurrent writers racing on the same class/day or teacher/day candidate
// set are serialized instead of both passing validation.
func (r *TimetableRepository) WithSerializableTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin serializable tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return translateSerialization(err)
	}

	if err := tx.Commit(); err != nil {
		return translateSerialization(fmt.Errorf("commit serializable tx: %w", err))
	}
	return nil
}

func translateSerialization(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "40001" {
		return fmt.Errorf("%w: %v", ErrTxSerialization, err)
	}
	return err
}

// FindByClass loads the timetable owned by a class.
func (r *TimetableRepository) FindByClass(ctx context.Context, classID string) (*models.Timetable, error) {
	const query = `SELECT id, class_id, is_active, created_at, updated_at FROM timetables WHERE class_id = $1`
	var tt models.Timetable
	if err := r.db.GetContext(ctx, &tt, query, classID); err != nil {
		return nil, err
	}
	return &tt, nil
}

// GetOrCreate returns the class timetable, creating it when absent. The
// unique constraint on class_id backstops the application-level check under
// concurrent creation.
func (r *TimetableRepository) GetOrCreate(ctx context.Context, tx *sqlx.Tx, classID string) (*models.Timetable, error) {
	const selectQuery = `SELECT id, class_id, is_active, created_at, updated_at FROM timetables WHERE class_id = $1`
	var tt models.Timetable
	err := tx.GetContext(ctx, &tt, selectQuery, classID)
	if err == nil {
		return &tt, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("find timetable by class: %w", err)
	}

	now := time.Now().UTC()
	tt = models.Timetable{
		ID:        uuid.NewString(),
		ClassID:   classID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	const insertQuery = `INSERT INTO timetables (id, class_id, is_active, created_at, updated_at) VALUES (:id, :class_id, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, insertQuery, &tt); err != nil {
		return nil, fmt.Errorf("create timetable: %w", err)
	}
	return &tt, nil
}

// ClassIDForTimetable resolves the owning class of a timetable.
func (r *TimetableRepository) ClassIDForTimetable(ctx context.Context, timetableID string) (string, error) {
	const query = `SELECT class_id FROM timetables WHERE id = $1`
	var classID string
	if err := r.db.GetContext(ctx, &classID, query, timetableID); err != nil {
		return "", fmt.Errorf("resolve timetable class: %w", err)
	}
	return classID, nil
}

// FindScheduleByID loads a schedule by id.
func (r *TimetableRepository) FindScheduleByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules s WHERE s.id = $1`, scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// ListByClass returns all schedules of the class timetable ordered by day and
// start time. Used by the read path only.
func (r *TimetableRepository) ListByClass(ctx context.Context, classID string) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules s
        JOIN timetables t ON t.id = s.timetable_id
        WHERE t.class_id = $1
        ORDER BY CASE s.day_of_week
            WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2 WHEN 'WEDNESDAY' THEN 3
            WHEN 'THURSDAY' THEN 4 WHEN 'FRIDAY' THEN 5 WHEN 'SATURDAY' THEN 6
            ELSE 7 END, s.start_time ASC`, scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, classID); err != nil {
		return nil, fmt.Errorf("list schedules by class: %w", err)
	}
	return schedules, nil
}

// FindClassDayCandidates returns active schedules on the same class and day
// whose validity window overlaps the proposed one. Time-of-day overlap is
// decided by the caller.
func (r *TimetableRepository) FindClassDayCandidates(ctx context.Context, tx *sqlx.Tx, q models.ConflictQuery) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules s
        JOIN timetables t ON t.id = s.timetable_id
        WHERE t.class_id = $1 AND t.is_active = TRUE AND s.day_of_week = $2`, scheduleColumns)
	args := []interface{}{q.ClassID, string(q.DayOfWeek)}
	query, args = appendWindowConditions(query, args, q)

	var schedules []models.Schedule
	if err := tx.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("find class day candidates: %w", err)
	}
	return schedules, nil
}

// FindTeacherDayCandidates returns active schedules for the same teacher and
// day across all classes whose validity window overlaps the proposed one.
func (r *TimetableRepository) FindTeacherDayCandidates(ctx context.Context, tx *sqlx.Tx, q models.ConflictQuery) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules s
        JOIN timetables t ON t.id = s.timetable_id
        WHERE s.teacher_id = $1 AND t.is_active = TRUE AND s.day_of_week = $2`, scheduleColumns)
	args := []interface{}{q.TeacherID, string(q.DayOfWeek)}
	query, args = appendWindowConditions(query, args, q)

	var schedules []models.Schedule
	if err := tx.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("find teacher day candidates: %w", err)
	}
	return schedules, nil
}

// appendWindowConditions adds the validity-window overlap filter and the
// optional self-exclusion. A NULL end date is open-ended on either side.
func appendWindowConditions(query string, args []interface{}, q models.ConflictQuery) (string, []interface{}) {
	args = append(args, q.EffectiveDate)
	query += fmt.Sprintf(" AND (s.end_date IS NULL OR s.end_date >= $%d)", len(args))
	if q.EndDate != nil {
		args = append(args, *q.EndDate)
		query += fmt.Sprintf(" AND s.effective_date <= $%d", len(args))
	}
	if q.ExcludeID != "" {
		args = append(args, q.ExcludeID)
		query += fmt.Sprintf(" AND s.id <> $%d", len(args))
	}
	return query, args
}

// CreateSchedule stores a new schedule inside the caller's transaction.
func (r *TimetableRepository) CreateSchedule(ctx context.Context, tx *sqlx.Tx, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `INSERT INTO schedules (id, timetable_id, day_of_week, start_time, end_time, period_type, subject_id, teacher_id, room_id, effective_date, end_date, created_at, updated_at) VALUES (:id, :timetable_id, :day_of_week, :start_time, :end_time, :period_type, :subject_id, :teacher_id, :room_id, :effective_date, :end_date, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// UpdateSchedule rewrites all mutable schedule fields inside the caller's
// transaction.
func (r *TimetableRepository) UpdateSchedule(ctx context.Context, tx *sqlx.Tx, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedules SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, period_type = :period_type, subject_id = :subject_id, teacher_id = :teacher_id, room_id = :room_id, effective_date = :effective_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// ClearRoom removes the room reference from a schedule. No other field is
// touched, so conflict checks are not re-run.
func (r *TimetableRepository) ClearRoom(ctx context.Context, id string) error {
	const query = `UPDATE schedules SET room_id = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear schedule room: %w", err)
	}
	return nil
}
