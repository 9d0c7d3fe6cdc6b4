package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock offset from local midnight with second precision.
type TimeOfDay int32

const (
	// Midnight is the first second of a day.
	Midnight TimeOfDay = 0
	// EndOfDay is the last second of a day. A window ending at "00:00" is
	// normalized to EndOfDay and includes that final second.
	EndOfDay TimeOfDay = 23*3600 + 59*60 + 59

	dayBound TimeOfDay = 24 * 3600
)

// ErrInvalidTimeOfDay indicates a schedule time is not a valid HH:mm[:ss] value.
var ErrInvalidTimeOfDay = errors.New("schedule: invalid time of day")

// ParseTimeOfDay parses "HH:mm" or "HH:mm:ss". Single digit fields are accepted.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}

	limits := []int{23, 59, 59}
	fields := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] || len(part) > 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
		}
		fields[i] = n
	}

	return TimeOfDay(fields[0]*3600 + fields[1]*60 + fields[2]), nil
}

// ParseWindowEnd parses a window end. "00:00" means the window runs to the end
// of the same day and is normalized to EndOfDay.
func ParseWindowEnd(value string) (TimeOfDay, error) {
	end, err := ParseTimeOfDay(value)
	if err != nil {
		return 0, err
	}
	if end == Midnight {
		return EndOfDay, nil
	}
	return end, nil
}

// TimeOfDayOf returns the time of day of t in t's own location, truncated to the second.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(h*3600 + m*60 + s)
}

// On combines the calendar date of day with the receiver's wall clock in
// day's location. The exclusive day bound maps to the following midnight.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	if t >= dayBound {
		return time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
	}
	secs := int(t)
	return time.Date(y, m, d, secs/3600, (secs%3600)/60, secs%60, 0, day.Location())
}

// String formats the value as HH:mm, or HH:mm:ss when seconds are set.
func (t TimeOfDay) String() string {
	h := int(t) / 3600
	m := (int(t) % 3600) / 60
	s := int(t) % 60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}
