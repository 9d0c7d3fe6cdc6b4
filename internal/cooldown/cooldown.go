// Package cooldown evaluates the post-wipe protection period during which
// raiding is disallowed regardless of the weekly schedule.
package cooldown

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CutoffLayout is the accepted format of a custom cutoff (dd-MM-yy HH:mm).
const CutoffLayout = "02-01-06 15:04"

// ErrInvalidCutoff indicates the custom cutoff could not be parsed. The
// cooldown is reported active alongside this error.
var ErrInvalidCutoff = errors.New("cooldown: invalid custom wipe cutoff")

// Policy configures the post-wipe protection period of a raid profile.
type Policy struct {
	Enabled bool
	Days    int
	// Custom, when set, replaces Days with an absolute cutoff in CutoffLayout.
	Custom string
}

// HasCustomCutoff reports whether the policy carries a custom cutoff.
func (p Policy) HasCustomCutoff() bool {
	return strings.TrimSpace(p.Custom) != ""
}

// State is the evaluated cooldown at one instant.
type State struct {
	Active bool
	// Ends is the first instant at which the cooldown no longer applies. It is
	// zero when the cooldown is inactive by configuration or indefinite.
	Ends time.Time
	// Indefinite is set when an unparsable cutoff keeps the cooldown active.
	Indefinite bool
}

// Evaluate computes the cooldown state for now. Times are compared in now's
// location; the wipe time is converted into it before date arithmetic.
//
// The rules, in order:
//   - a disabled policy is never active;
//   - a parsable custom cutoff is active while now is before it;
//   - an unparsable custom cutoff is active indefinitely and reported as ErrInvalidCutoff;
//   - zero days is never active;
//   - otherwise the cooldown covers every calendar day up to and including the
//     day of lastWipe+Days, ending at the following midnight.
func Evaluate(p Policy, lastWipe, now time.Time) (State, error) {
	if !p.Enabled {
		return State{}, nil
	}

	loc := now.Location()

	if p.HasCustomCutoff() {
		cutoff, err := time.ParseInLocation(CutoffLayout, strings.TrimSpace(p.Custom), loc)
		if err != nil {
			return State{Active: true, Indefinite: true}, fmt.Errorf("%w: %q (expected dd-MM-yy HH:mm)", ErrInvalidCutoff, p.Custom)
		}
		return State{Active: now.Before(cutoff), Ends: cutoff}, nil
	}

	if p.Days <= 0 || lastWipe.IsZero() {
		return State{}, nil
	}

	target := lastWipe.In(loc).AddDate(0, 0, p.Days)
	y, m, d := target.Date()
	ends := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return State{Active: now.Before(ends), Ends: ends}, nil
}

// IsActive reports whether the cooldown applies at now.
func IsActive(p Policy, lastWipe, now time.Time) (bool, error) {
	state, err := Evaluate(p, lastWipe, now)
	return state.Active, err
}

// CooldownEnd returns the instant the cooldown stops applying. A zero time
// with an active indefinite cooldown means no end is known; callers keep
// treating the cooldown as active.
func CooldownEnd(p Policy, lastWipe, now time.Time) (time.Time, error) {
	state, err := Evaluate(p, lastWipe, now)
	return state.Ends, err
}

// Progress is the elapsed fraction of the cooldown at now, clamped to [0, 1].
func (s State) Progress(lastWipe, now time.Time) float64 {
	if !s.Active || s.Ends.IsZero() || lastWipe.IsZero() {
		return 0
	}
	total := s.Ends.Sub(lastWipe)
	if total <= 0 {
		return 1
	}
	elapsed := now.Sub(lastWipe)
	switch {
	case elapsed <= 0:
		return 0
	case elapsed >= total:
		return 1
	}
	return float64(elapsed) / float64(total)
}
