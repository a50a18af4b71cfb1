package models

import (
	"strings"
	"time"

	"github.com/noah-isme/sma-timetable-api/pkg/interval"
)

// DayOfWeek enumerates the seven schedule days.
type DayOfWeek string

const (
	DayMonday    DayOfWeek = "MONDAY"
	DayTuesday   DayOfWeek = "TUESDAY"
	DayWednesday DayOfWeek = "WEDNESDAY"
	DayThursday  DayOfWeek = "THURSDAY"
	DayFriday    DayOfWeek = "FRIDAY"
	DaySaturday  DayOfWeek = "SATURDAY"
	DaySunday    DayOfWeek = "SUNDAY"
)

// ParseDayOfWeek normalises and validates a day name.
func ParseDayOfWeek(raw string) (DayOfWeek, bool) {
	day := DayOfWeek(strings.ToUpper(strings.TrimSpace(raw)))
	switch day {
	case DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday, DaySunday:
		return day, true
	default:
		return "", false
	}
}

// PeriodType distinguishes lesson periods from breaks.
type PeriodType string

const (
	PeriodAcademics PeriodType = "ACADEMICS"
	PeriodBreak     PeriodType = "BREAK"
)

// ParsePeriodType normalises and validates a period type.
func ParsePeriodType(raw string) (PeriodType, bool) {
	pt := PeriodType(strings.ToUpper(strings.TrimSpace(raw)))
	switch pt {
	case PeriodAcademics, PeriodBreak:
		return pt, true
	default:
		return "", false
	}
}

// Timetable is the single schedule container for one class. It is created
// lazily the first time a schedule is added to the class.
type Timetable struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Schedule is one bookable period within a timetable. The validity window is
// always present on the effective side; a nil EndDate means open-ended.
type Schedule struct {
	ID            string             `db:"id" json:"id"`
	TimetableID   string             `db:"timetable_id" json:"timetable_id"`
	DayOfWeek     DayOfWeek          `db:"day_of_week" json:"day_of_week"`
	StartTime     interval.ClockTime `db:"start_time" json:"start_time"`
	EndTime       interval.ClockTime `db:"end_time" json:"end_time"`
	PeriodType    PeriodType         `db:"period_type" json:"period_type"`
	SubjectID     *string            `db:"subject_id" json:"subject_id,omitempty"`
	TeacherID     *string            `db:"teacher_id" json:"teacher_id,omitempty"`
	RoomID        *string            `db:"room_id" json:"room_id,omitempty"`
	EffectiveDate time.Time          `db:"effective_date" json:"effective_date"`
	EndDate       *time.Time         `db:"end_date" json:"end_date,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// ClassTimetable is the read-path view of a class timetable.
type ClassTimetable struct {
	ClassID   string     `json:"class_id"`
	IsActive  bool       `json:"is_active"`
	Schedules []Schedule `json:"schedules"`
}

// ConflictQuery narrows conflict candidates to one class/day or teacher/day
// whose validity window overlaps the proposed one.
type ConflictQuery struct {
	ClassID       string
	TeacherID     string
	DayOfWeek     DayOfWeek
	EffectiveDate time.Time
	EndDate       *time.Time
	ExcludeID     string
}

// ScheduleConflict describes an existing schedule that blocks a proposal.
type ScheduleConflict struct {
	ScheduleID string             `json:"schedule_id"`
	DayOfWeek  DayOfWeek          `json:"day_of_week"`
	StartTime  interval.ClockTime `json:"start_time"`
	EndTime    interval.ClockTime `json:"end_time"`
	Scope      string             `json:"scope"`
}

// Conflict scopes.
const (
	ConflictScopeClass   = "CLASS"
	ConflictScopeTeacher = "TEACHER"
)

// ScheduleConflictError is returned when a proposal collides with an existing
// schedule.
type ScheduleConflictError struct {
	Message  string           `json:"message"`
	Conflict ScheduleConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
