// Package interval provides the time-of-day and date-range arithmetic used by
// the schedule conflict checks. All comparisons on clock times are half-open:
// a period ending at 10:00 does not overlap a period starting at 10:00.
package interval

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// ClockTime is a wall-clock time of day with second precision, stored as
// seconds since midnight. It maps to a Postgres "time" column.
type ClockTime int

const secondsPerDay = 24 * 60 * 60

// ParseClockTime parses "HH:MM:SS" or "HH:MM".
func ParseClockTime(raw string) (ClockTime, error) {
	var h, m, s int
	switch n, _ := fmt.Sscanf(raw, "%d:%d:%d", &h, &m, &s); n {
	case 2, 3:
	default:
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	return ClockTime(h*3600 + m*60 + s), nil
}

// String renders the canonical "HH:MM:SS" form.
func (t ClockTime) String() string {
	sec := int(t) % secondsPerDay
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}

// Before reports whether t is strictly earlier than other.
func (t ClockTime) Before(other ClockTime) bool {
	return t < other
}

// MarshalJSON encodes the time as its string form.
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON decodes a quoted "HH:MM:SS" value.
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid clock time json %s", data)
	}
	parsed, err := ParseClockTime(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer.
func (t ClockTime) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner. lib/pq returns "time" columns as bytes; other
// drivers may hand back strings or a time.Time.
func (t *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = 0
		return nil
	case []byte:
		parsed, err := ParseClockTime(string(v))
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case string:
		parsed, err := ParseClockTime(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case time.Time:
		*t = ClockTime(v.Hour()*3600 + v.Minute()*60 + v.Second())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

// TimesOverlap reports whether the half-open intervals [startA, endA) and
// [startB, endB) share at least one instant. Touching boundaries do not count.
func TimesOverlap(startA, endA, startB, endB ClockTime) bool {
	return startA < endB && startB < endA
}

// DateRangesOverlap reports whether two validity windows intersect. A nil end
// date means the window is open-ended and compares as unbounded; no sentinel
// date is involved. Bounds are date-granular and inclusive.
func DateRangesOverlap(effA time.Time, endA *time.Time, effB time.Time, endB *time.Time) bool {
	if endB != nil && effA.After(*endB) {
		return false
	}
	if endA != nil && endA.Before(effB) {
		return false
	}
	return true
}
