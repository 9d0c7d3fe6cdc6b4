package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow indicates an inverted, empty or overlapping raid window.
var ErrInvalidWindow = errors.New("schedule: invalid raid window")

// TimeWindow is a raid window within one calendar day. Windows are half-open
// [Start, End) except when End is EndOfDay, which includes the final second.
type TimeWindow struct {
	Start TimeOfDay
	End   TimeOfDay
}

// NewTimeWindow parses a window from HH:mm strings, normalizing a "00:00" end.
func NewTimeWindow(start, end string) (TimeWindow, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := ParseWindowEnd(end)
	if err != nil {
		return TimeWindow{}, err
	}
	w := TimeWindow{Start: s, End: e}
	if err := w.Validate(); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

// FullDay is the [00:00, 23:59:59] interval used by day-level overrides and
// by the gap fill when a day has no window boundaries.
func FullDay() TimeWindow {
	return TimeWindow{Start: Midnight, End: EndOfDay}
}

// IsZero reports whether the window is unset.
func (w TimeWindow) IsZero() bool {
	return w.Start == 0 && w.End == 0
}

// Validate reports whether the window covers at least one second.
func (w TimeWindow) Validate() error {
	if w.Start < 0 || w.End > EndOfDay || w.Start >= w.bound() {
		return fmt.Errorf("%w: %s-%s", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

// bound is the exclusive upper limit of the window.
func (w TimeWindow) bound() TimeOfDay {
	if w.End == EndOfDay {
		return dayBound
	}
	return w.End
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t TimeOfDay) bool {
	return w.Start <= t && t < w.bound()
}

// EndedBy reports whether the window is entirely in the past at t.
func (w TimeWindow) EndedBy(t TimeOfDay) bool {
	return w.bound() <= t
}

// Progress is the elapsed fraction of the window at t, clamped to [0, 1].
func (w TimeWindow) Progress(t TimeOfDay) float64 {
	if !w.Contains(t) {
		return 0
	}
	return float64(t-w.Start) / float64(w.bound()-w.Start)
}

// String formats the window as "HH:mm-HH:mm".
func (w TimeWindow) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// EndOn returns the absolute instant the window closes on the date of day.
// An end-of-day window closes at the following midnight.
func (w TimeWindow) EndOn(day time.Time) time.Time {
	return w.bound().On(day)
}
