package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for the scheduling pipeline.
var (
	ErrInvalidTimeRange    = New("INVALID_TIME_RANGE", http.StatusBadRequest, "start time must be before end time")
	ErrInvalidDateRange    = New("INVALID_DATE_RANGE", http.StatusBadRequest, "end date must be after effective date")
	ErrClassNotFound       = New("CLASS_NOT_FOUND", http.StatusNotFound, "class not found")
	ErrSubjectNotFound     = New("SUBJECT_NOT_FOUND", http.StatusNotFound, "subject not found")
	ErrTeacherNotFound     = New("TEACHER_NOT_FOUND", http.StatusNotFound, "teacher not found")
	ErrSubjectRequired     = New("SUBJECT_REQUIRED", http.StatusBadRequest, "academic periods require a subject")
	ErrClassDayOverlap     = New("CLASS_DAY_OVERLAP", http.StatusConflict, "class already has a schedule in this time range")
	ErrTeacherDoubleBooked = New("TEACHER_DOUBLE_BOOKED", http.StatusConflict, "teacher already booked in this time range")
	ErrScheduleNotFound    = New("SCHEDULE_NOT_FOUND", http.StatusNotFound, "schedule not found")
	ErrOperationFailed     = New("OPERATION_FAILED", http.StatusServiceUnavailable, "operation failed, please retry")
	ErrValidation          = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotFound            = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrInternal            = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
