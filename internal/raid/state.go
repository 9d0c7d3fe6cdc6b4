// Package raid composes schedule resolution and the wipe cooldown into the
// per-actor raid verdict.
package raid

import (
	"time"

	"github.com/example/raid-controller/internal/cooldown"
	"github.com/example/raid-controller/internal/schedule"
)

// ActorState is the resolved raid state of one actor at one instant. It is
// written only by the refresh scheduler; every other reader gets a copy.
type ActorState struct {
	ActorID    string
	ProfileKey string
	// HasProfile is false when no profile matched; such actors can never raid.
	HasProfile bool

	Now     time.Time
	Weekday time.Weekday
	Locale  string

	Resolution schedule.Resolution

	Wipe               cooldown.State
	LastWipe           time.Time
	WipeCooldownActive bool
	AllDayRaid         bool
	AllDayNoRaid       bool

	// Boundary is the absolute instant the actual window ends.
	Boundary time.Time

	CanRaid bool
}

// Input carries what Compute needs for one resolution.
type Input struct {
	ActorID  string
	Locale   string
	Profile  schedule.RaidProfile
	Matched  bool
	Local    time.Time
	LastWipe time.Time
}

// Compute resolves the actor's schedule at in.Local and caches the raid
// verdict. A cutoff error is returned with a state whose cooldown is active.
func Compute(in Input) (ActorState, error) {
	state := ActorState{
		ActorID:  in.ActorID,
		Locale:   in.Locale,
		Now:      in.Local,
		Weekday:  in.Local.Weekday(),
		LastWipe: in.LastWipe,
	}
	if !in.Matched {
		state.Resolution = schedule.ResolveDay(schedule.DaySchedule{}, schedule.TimeOfDayOf(in.Local))
		state.Boundary = state.Resolution.Actual.EndOn(in.Local)
		return state, nil
	}

	state.HasProfile = true
	state.ProfileKey = in.Profile.Key
	state.Resolution = schedule.Resolve(in.Profile, state.Weekday, schedule.TimeOfDayOf(in.Local))
	state.Boundary = state.Resolution.Actual.EndOn(in.Local)
	state.AllDayRaid = state.Resolution.Kind == schedule.KindAllDayRaid
	state.AllDayNoRaid = state.Resolution.Kind == schedule.KindNoRaidAllDay

	wipe, err := cooldown.Evaluate(in.Profile.Wipe, in.LastWipe, in.Local)
	state.Wipe = wipe
	state.WipeCooldownActive = wipe.Active
	state.CanRaid = CanRaid(state)
	return state, err
}

// CanRaid is the raid-permission predicate. It reads only resolved fields.
func CanRaid(s ActorState) bool {
	switch {
	case !s.HasProfile:
		return false
	case s.AllDayNoRaid:
		return false
	case s.AllDayRaid:
		return true
	case s.WipeCooldownActive:
		return false
	}
	return s.Resolution.Within
}

// Advance moves the state's clock without re-resolving.
func (s *ActorState) Advance(local time.Time) {
	s.Now = local
}

// BoundaryCrossed reports whether local has reached the end of the actual window.
func (s ActorState) BoundaryCrossed(local time.Time) bool {
	return !s.Boundary.IsZero() && !local.Before(s.Boundary)
}
