package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/interval"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type stubTimetableRepo struct {
	timetable         *models.Timetable
	schedules         map[string]*models.Schedule
	classByTimetable  map[string]string
	classCandidates   []models.Schedule
	teacherCandidates []models.Schedule
	listed            []models.Schedule

	created     *models.Schedule
	updated     *models.Schedule
	clearedRoom string
	txErr       error
}

func (m *stubTimetableRepo) WithSerializableTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(nil)
}

func (m *stubTimetableRepo) GetOrCreate(ctx context.Context, tx *sqlx.Tx, classID string) (*models.Timetable, error) {
	if m.timetable == nil {
		m.timetable = &models.Timetable{ID: "tt-1", ClassID: classID, IsActive: true}
	}
	return m.timetable, nil
}

func (m *stubTimetableRepo) FindByClass(ctx context.Context, classID string) (*models.Timetable, error) {
	if m.timetable == nil || m.timetable.ClassID != classID {
		return nil, sql.ErrNoRows
	}
	return m.timetable, nil
}

func (m *stubTimetableRepo) ClassIDForTimetable(ctx context.Context, timetableID string) (string, error) {
	if m.classByTimetable != nil {
		if classID, ok := m.classByTimetable[timetableID]; ok {
			return classID, nil
		}
	}
	return "c1", nil
}

func (m *stubTimetableRepo) FindScheduleByID(ctx context.Context, id string) (*models.Schedule, error) {
	if sched, ok := m.schedules[id]; ok {
		copied := *sched
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubTimetableRepo) ListByClass(ctx context.Context, classID string) ([]models.Schedule, error) {
	return m.listed, nil
}

func (m *stubTimetableRepo) FindClassDayCandidates(ctx context.Context, tx *sqlx.Tx, q models.ConflictQuery) ([]models.Schedule, error) {
	return filterCandidates(m.classCandidates, q), nil
}

func (m *stubTimetableRepo) FindTeacherDayCandidates(ctx context.Context, tx *sqlx.Tx, q models.ConflictQuery) ([]models.Schedule, error) {
	return filterCandidates(m.teacherCandidates, q), nil
}

func filterCandidates(candidates []models.Schedule, q models.ConflictQuery) []models.Schedule {
	var out []models.Schedule
	for _, c := range candidates {
		if c.ID == q.ExcludeID {
			continue
		}
		if c.DayOfWeek != q.DayOfWeek {
			continue
		}
		if !interval.DateRangesOverlap(q.EffectiveDate, q.EndDate, c.EffectiveDate, c.EndDate) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (m *stubTimetableRepo) CreateSchedule(ctx context.Context, tx *sqlx.Tx, schedule *models.Schedule) error {
	schedule.ID = "sched-new"
	m.created = schedule
	return nil
}

func (m *stubTimetableRepo) UpdateSchedule(ctx context.Context, tx *sqlx.Tx, schedule *models.Schedule) error {
	m.updated = schedule
	return nil
}

func (m *stubTimetableRepo) ClearRoom(ctx context.Context, id string) error {
	m.clearedRoom = id
	return nil
}

type stubClassLookup struct{}

func (m *stubClassLookup) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Class{ID: id}, nil
}

type stubSubjectLookup struct{}

func (m *stubSubjectLookup) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Subject{ID: id}, nil
}

type stubTeacherLookup struct{}

func (m *stubTeacherLookup) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Teacher{ID: id, Active: true}, nil
}

type stubViewCache struct {
	store   map[string]*models.ClassTimetable
	deleted []string
}

func (m *stubViewCache) Get(ctx context.Context, key string, dest interface{}) error {
	if view, ok := m.store[key]; ok {
		*dest.(*models.ClassTimetable) = *view
		return nil
	}
	return repository.ErrCacheMiss
}

func (m *stubViewCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string]*models.ClassTimetable)
	}
	if view, ok := value.(*models.ClassTimetable); ok {
		copied := *view
		m.store[key] = &copied
	}
	return nil
}

func (m *stubViewCache) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.store, key)
	return nil
}

type stubEventQueue struct {
	enqueued []jobs.Job
}

func (m *stubEventQueue) Enqueue(job jobs.Job) error {
	m.enqueued = append(m.enqueued, job)
	return nil
}

func newTimetableServiceForTest(repo *stubTimetableRepo, cache *stubViewCache, queue *stubEventQueue) *TimetableService {
	return NewTimetableService(repo, &stubClassLookup{}, &stubSubjectLookup{}, &stubTeacherLookup{}, cache, queue, validator.New(), zap.NewNop(), TimetableServiceOptions{})
}

func mustClock(t *testing.T, raw string) interval.ClockTime {
	t.Helper()
	ct, err := interval.ParseClockTime(raw)
	require.NoError(t, err)
	return ct
}

func strPtr(s string) *string { return &s }

func datePtr(t time.Time) *time.Time { return &t }

func validAddRequest() AddScheduleRequest {
	return AddScheduleRequest{
		DayOfWeek:  "MONDAY",
		StartTime:  "08:00:00",
		EndTime:    "09:00:00",
		PeriodType: "ACADEMICS",
		SubjectID:  strPtr("sub-1"),
		TeacherID:  strPtr("tch-1"),
		RoomID:     strPtr("room-1"),
	}
}

func existingSchedule(t *testing.T, id, day, start, end string) models.Schedule {
	t.Helper()
	return models.Schedule{
		ID:            id,
		TimetableID:   "tt-1",
		DayOfWeek:     models.DayOfWeek(day),
		StartTime:     mustClock(t, start),
		EndTime:       mustClock(t, end),
		PeriodType:    models.PeriodAcademics,
		EffectiveDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestAddScheduleSuccess(t *testing.T) {
	repo := &stubTimetableRepo{}
	cache := &stubViewCache{}
	queue := &stubEventQueue{}
	svc := newTimetableServiceForTest(repo, cache, queue)

	created, err := svc.AddSchedule(context.Background(), "c1", validAddRequest())
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "tt-1", created.TimetableID)
	assert.Equal(t, models.DayMonday, created.DayOfWeek)
	assert.Equal(t, mustClock(t, "08:00:00"), created.StartTime)
	assert.NotNil(t, repo.created)

	require.Len(t, queue.enqueued, 1)
	event, ok := queue.enqueued[0].Payload.(ScheduleChangedEvent)
	require.True(t, ok)
	assert.Equal(t, "c1", event.ClassID)
	assert.Equal(t, ScheduleChangeCreated, event.Change)
	assert.Contains(t, cache.deleted, "timetable:class:c1")
}

func TestAddScheduleDefaultsEffectiveDateToToday(t *testing.T) {
	repo := &stubTimetableRepo{}
	svc := newTimetableServiceForTest(repo, &stubViewCache{}, &stubEventQueue{})

	created, err := svc.AddSchedule(context.Background(), "c1", validAddRequest())
	require.NoError(t, err)

	today := time.Now().UTC()
	assert.Equal(t, today.Year(), created.EffectiveDate.Year())
	assert.Equal(t, today.YearDay(), created.EffectiveDate.YearDay())
	assert.Nil(t, created.EndDate)
}

func TestAddScheduleClassDayOverlap(t *testing.T) {
	repo := &stubTimetableRepo{
		classCandidates: []models.Schedule{existingSchedule(t, "sched-1", "MONDAY", "08:30:00", "09:30:00")},
	}
	svc := newTimetableServiceForTest(repo, &stubViewCache{}, &stubEventQueue{})

	_, err := svc.AddSchedule(context.Background(), "c1", validAddRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrClassDayOverlap))

	var conflict *models.ScheduleConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "sched-1", conflict.Conflict.ScheduleID)
	assert.Equal(t, models.ConflictScopeClass, conflict.Conflict.Scope)
	assert.Nil(t, repo.created)
}

func TestAddScheduleAdjacentSlotsAllowed(t *testing.T) {
	repo := &stubTimetableRepo{
		classCandidates: []models.Schedule{existingSchedule(t, "sched-1", "MONDAY", "09:00:00", "10:00:00")},
	}
	svc := newTimetableServiceForTest(repo, &stubViewCache{}, &stubEventQueue{})

	created, err := svc.AddSchedule(context.Background(), "c1", validAddRequest())
	require.NoError(t, err)
	assert.Equal(t, mustClock(t, "09:00:00"), created.EndTime)
}

func TestAddScheduleTeacherDoubleBooked(t *testing.T) {
	other := existingSchedule(t, "sched-other", "MONDAY", "08:00:00", "09:00:00")
	other.TimetableID = "tt-other-class"
	repo := &stubTimetableRepo{teacherCandidates: []models.Schedule{other}}
	svc := newTimetableServiceForTest(repo, &stubViewCache{}, &stubEventQueue{})

	_, err := svc.AddSchedule(context.Background(), "c1", validAddRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTeacherDoubleBooked))

	var conflict *models.ScheduleConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, models.ConflictScopeTeacher, conflict.Conflict.Scope)
}

func TestAddScheduleOpenEndedWindowsConflict(t *testing.T) {
	open := existingSchedule(t, "sched-open", "MONDAY", "08:00:00", "09:00:00")
	open.EndDate = nil
	repo := &stubTimetableRepo{classCandidates: []models.Schedule{open}}
	svc := newTimetableServiceForTest(repo, &stubViewCache{}, &stubEventQueue{})

	req := validAddRequest()
	req.EffectiveDate = strPtr("2030-09-01")
	_, err := svc.AddSchedule(context.Background(), "c1", req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrClassDayOverlap))
}

func TestAddScheduleDisjointWindowsAllowed(t *testing.T) {
	bounded := existingSchedule(t, "sched-bounded", "MONDAY", "08:00:00", "09:00:00")
	bounded.EndDate = datePtr(time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))
	repo := &stubTimetableRepo{classCandidates: []models.Schedule{bounded}}
	svc := newTimetableServiceForTest(repo, &stubViewCache{}, &stubEventQueue{})

	req := validAddRequest()
	req.EffectiveDate = strPtr("2026-09-01")
	created, err := svc.AddSchedule(context.Background(), "c1", req)
	require.NoError(t, err)
	assert.NotNil(t, created)
}

func TestAddScheduleBreakDropsSubjectAndTeacher(t *testing.T) {
	repo := &stubTimetableRepo{}
	svc := newTimetableServiceForTest(repo, &stubViewCache{}, &stubEventQueue{})

	req := validAddRequest()
	req.PeriodType = "BREAK"
	created, err := svc.AddSchedule(context.Background(), "c1", req)
	require.NoError(t, err)
	assert.Nil(t, created.SubjectID)
	assert.Nil(t, created.TeacherID)
	assert.NotNil(t, created.RoomID)
}

func TestAddScheduleAcademicsRequiresSubject(t *testing.T) {
	svc := newTimetableServiceForTest(&stubTimetableRepo{}, &stubViewCache{}, &stubEventQueue{})

	req := validAddRequest()
	req.SubjectID = nil
	_, err := svc.AddSchedule(context.Background(), "c1", req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSubjectRequired))
}

func TestAddScheduleInvalidTimeRange(t *testing.T) {
	svc := newTimetableServiceForTest(&stubTimetableRepo{}, &stubViewCache{}, &stubEventQueue{})

	req := validAddRequest()
	req.StartTime = "10:00:00"
	req.EndTime = "10:00:00"
	_, err := svc.AddSchedule(context.Background(), "c1", req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTimeRange))
}

func TestAddScheduleInvalidDateRange(t *testing.T) {
	svc := newTimetableServiceForTest(&stubTimetableRepo{}, &stubViewCache{}, &stubEventQueue{})

	req := validAddRequest()
	req.EffectiveDate = strPtr("2026-06-01")
	req.EndDate = strPtr("2026-06-01")
	_, err := svc.AddSchedule(context.Background(), "c1", req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidDateRange))
}

func TestAddScheduleUnknownReferences(t *testing.T) {
	svc := newTimetableServiceForTest(&stubTimetableRepo{}, &stubViewCache{}, &stubEventQueue{})

	_, err := svc.AddSchedule(context.Background(), "missing", validAddRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrClassNotFound))

	req := validAddRequest()
	req.SubjectID = strPtr("missing")
	_, err = svc.AddSchedule(context.Background(), "c1", req)
	assert.True(t, appErrors.Is(err, appErrors.ErrSubjectNotFound))

	req = validAddRequest()
	req.TeacherID = strPtr("missing")
	_, err = svc.AddSchedule(context.Background(), "c1", req)
	assert.True(t, appErrors.Is(err, appErrors.ErrTeacherNotFound))
}

func TestAddScheduleRejectsMalformedInput(t *testing.T) {
	svc := newTimetableServiceForTest(&stubTimetableRepo{}, &stubViewCache{}, &stubEventQueue{})

	req := validAddRequest()
	req.DayOfWeek = "FUNDAY"
	_, err := svc.AddSchedule(context.Background(), "c1", req)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	req = validAddRequest()
	req.StartTime = "late"
	_, err = svc.AddSchedule(context.Background(), "c1", req)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestEditScheduleExcludesSelfFromConflicts(t *testing.T) {
	existing := existingSchedule(t, "sched-1", "MONDAY", "08:00:00", "09:00:00")
	existing.SubjectID = strPtr("sub-1")
	existing.TeacherID = strPtr("tch-1")
	repo := &stubTimetableRepo{
		schedules:       map[string]*models.Schedule{"sched-1": &existing},
		classCandidates: []models.Schedule{existing},
	}
	cache := &stubViewCache{}
	queue := &stubEventQueue{}
	svc := newTimetableServiceForTest(repo, cache, queue)

	updated, err := svc.EditSchedule(context.Background(), "sched-1", EditScheduleRequest{EndTime: strPtr("09:30:00")})
	require.NoError(t, err)
	assert.Equal(t, "sched-1", updated.ID)
	assert.Equal(t, mustClock(t, "09:30:00"), updated.EndTime)
	assert.NotNil(t, repo.updated)

	require.Len(t, queue.enqueued, 1)
	event := queue.enqueued[0].Payload.(ScheduleChangedEvent)
	assert.Equal(t, ScheduleChangeUpdated, event.Change)
}

func TestEditScheduleConflictsWithOtherSchedule(t *testing.T) {
	existing := existingSchedule(t, "sched-1", "MONDAY", "08:00:00", "09:00:00")
	existing.SubjectID = strPtr("sub-1")
	blocker := existingSchedule(t, "sched-2", "MONDAY", "09:00:00", "10:00:00")
	repo := &stubTimetableRepo{
		schedules:       map[string]*models.Schedule{"sched-1": &existing},
		classCandidates: []models.Schedule{existing, blocker},
	}
	svc := newTimetableServiceForTest(repo, &stubViewCache{}, &stubEventQueue{})

	_, err := svc.EditSchedule(context.Background(), "sched-1", EditScheduleRequest{EndTime: strPtr("09:30:00")})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrClassDayOverlap))

	var conflict *models.ScheduleConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "sched-2", conflict.Conflict.ScheduleID)
}

func TestEditScheduleRevalidatesPeriodRules(t *testing.T) {
	existing := existingSchedule(t, "sched-1", "MONDAY", "08:00:00", "09:00:00")
	existing.SubjectID = strPtr("sub-1")
	existing.TeacherID = strPtr("tch-1")
	repo := &stubTimetableRepo{schedules: map[string]*models.Schedule{"sched-1": &existing}}
	svc := newTimetableServiceForTest(repo, &stubViewCache{}, &stubEventQueue{})

	updated, err := svc.EditSchedule(context.Background(), "sched-1", EditScheduleRequest{PeriodType: strPtr("BREAK")})
	require.NoError(t, err)
	assert.Nil(t, updated.SubjectID)
	assert.Nil(t, updated.TeacherID)
}

func TestEditScheduleClearEndDate(t *testing.T) {
	existing := existingSchedule(t, "sched-1", "MONDAY", "08:00:00", "09:00:00")
	existing.SubjectID = strPtr("sub-1")
	existing.EndDate = datePtr(time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))
	repo := &stubTimetableRepo{schedules: map[string]*models.Schedule{"sched-1": &existing}}
	svc := newTimetableServiceForTest(repo, &stubViewCache{}, &stubEventQueue{})

	updated, err := svc.EditSchedule(context.Background(), "sched-1", EditScheduleRequest{ClearEndDate: true})
	require.NoError(t, err)
	assert.Nil(t, updated.EndDate)
}

func TestEditScheduleNotFound(t *testing.T) {
	svc := newTimetableServiceForTest(&stubTimetableRepo{}, &stubViewCache{}, &stubEventQueue{})

	_, err := svc.EditSchedule(context.Background(), "ghost", EditScheduleRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrScheduleNotFound))
}

func TestUnassignRoom(t *testing.T) {
	existing := existingSchedule(t, "sched-1", "MONDAY", "08:00:00", "09:00:00")
	existing.RoomID = strPtr("room-1")
	repo := &stubTimetableRepo{schedules: map[string]*models.Schedule{"sched-1": &existing}}
	cache := &stubViewCache{}
	queue := &stubEventQueue{}
	svc := newTimetableServiceForTest(repo, cache, queue)

	updated, err := svc.UnassignRoom(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Nil(t, updated.RoomID)
	assert.Equal(t, "sched-1", repo.clearedRoom)
	assert.Contains(t, cache.deleted, "timetable:class:c1")
	assert.Len(t, queue.enqueued, 1)
}

func TestUnassignRoomNotFound(t *testing.T) {
	svc := newTimetableServiceForTest(&stubTimetableRepo{}, &stubViewCache{}, &stubEventQueue{})

	_, err := svc.UnassignRoom(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrScheduleNotFound))
}

func TestGetTimetableByClassEmptyWhenAbsent(t *testing.T) {
	svc := newTimetableServiceForTest(&stubTimetableRepo{}, &stubViewCache{}, &stubEventQueue{})

	view, err := svc.GetTimetableByClass(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", view.ClassID)
	assert.True(t, view.IsActive)
	assert.Empty(t, view.Schedules)
}

func TestGetTimetableByClassCachesView(t *testing.T) {
	repo := &stubTimetableRepo{
		timetable: &models.Timetable{ID: "tt-1", ClassID: "c1", IsActive: true},
		listed:    []models.Schedule{existingSchedule(t, "sched-1", "MONDAY", "08:00:00", "09:00:00")},
	}
	cache := &stubViewCache{}
	svc := newTimetableServiceForTest(repo, cache, &stubEventQueue{})

	view, err := svc.GetTimetableByClass(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, view.Schedules, 1)

	repo.listed = nil
	cached, err := svc.GetTimetableByClass(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, cached.Schedules, 1)
}

func TestAddScheduleSerializationFailureIsRetryable(t *testing.T) {
	repo := &stubTimetableRepo{txErr: repository.ErrTxSerialization}
	svc := newTimetableServiceForTest(repo, &stubViewCache{}, &stubEventQueue{})

	_, err := svc.AddSchedule(context.Background(), "c1", validAddRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrOperationFailed))
}

func TestExportTimetableFormats(t *testing.T) {
	sched := existingSchedule(t, "sched-1", "MONDAY", "08:00:00", "09:00:00")
	sched.SubjectID = strPtr("sub-1")
	repo := &stubTimetableRepo{
		timetable: &models.Timetable{ID: "tt-1", ClassID: "c1", IsActive: true},
		listed:    []models.Schedule{sched},
	}
	svc := newTimetableServiceForTest(repo, &stubViewCache{}, &stubEventQueue{})

	payload, contentType, err := svc.ExportTimetable(context.Background(), "c1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "MONDAY")

	payload, contentType, err = svc.ExportTimetable(context.Background(), "c1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.NotEmpty(t, payload)

	_, _, err = svc.ExportTimetable(context.Background(), "c1", "xml")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
