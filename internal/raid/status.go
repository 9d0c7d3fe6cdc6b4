package raid

import (
	"time"

	"github.com/example/raid-controller/internal/schedule"
)

// Status is the headline classification shown to an actor.
type Status string

const (
	StatusRaidAllowed  Status = "raid_allowed"
	StatusRaidClosed   Status = "raid_closed"
	StatusWipeCooldown Status = "wipe_cooldown"
	StatusAllDayRaid   Status = "all_day_raid"
	StatusNoRaidToday  Status = "no_raid_today"
)

// Classify maps a resolved state to its status. Day overrides come first,
// then the wipe cooldown, then the window verdict.
func Classify(s ActorState) Status {
	switch {
	case s.HasProfile && s.AllDayNoRaid:
		return StatusNoRaidToday
	case s.HasProfile && s.AllDayRaid:
		return StatusAllDayRaid
	case s.WipeCooldownActive:
		return StatusWipeCooldown
	case s.CanRaid:
		return StatusRaidAllowed
	}
	return StatusRaidClosed
}

// Remaining is the time left until the actual window ends, measured from the
// state's own clock.
func (s ActorState) Remaining() time.Duration {
	if s.Boundary.IsZero() || !s.Now.Before(s.Boundary) {
		return 0
	}
	return s.Boundary.Sub(s.Now)
}

// Countdown splits Remaining into whole hours and minutes.
func (s ActorState) Countdown() (hours, minutes int) {
	total := int(s.Remaining() / time.Second)
	return total / 3600, (total / 60) % 60
}

// FinishedToday reports whether raiding is closed with no window left today.
func (s ActorState) FinishedToday() bool {
	return !s.CanRaid && !s.Resolution.HasNext()
}

// WindowProgress is the elapsed fraction of the actual window.
func (s ActorState) WindowProgress() float64 {
	return s.Resolution.Actual.Progress(schedule.TimeOfDayOf(s.Now))
}

// WipeProgress is the elapsed fraction of the wipe cooldown.
func (s ActorState) WipeProgress() float64 {
	return s.Wipe.Progress(s.LastWipe, s.Now)
}

// Snapshot is the read-only view handed to callers outside the scheduler.
type Snapshot struct {
	ActorID       string    `json:"actor_id"`
	Profile       string    `json:"profile,omitempty"`
	Status        Status    `json:"status"`
	CanRaid       bool      `json:"can_raid"`
	Now           time.Time `json:"now"`
	Weekday       string    `json:"weekday"`
	Locale        string    `json:"locale,omitempty"`
	Actual        string    `json:"actual"`
	Within        bool      `json:"within_window"`
	Prev          string    `json:"prev,omitempty"`
	Next          string    `json:"next,omitempty"`
	EndsAt        time.Time `json:"ends_at"`
	Hours         int       `json:"hours"`
	Minutes       int       `json:"minutes"`
	FinishedToday bool      `json:"finished_today"`
	Progress      float64   `json:"progress"`
	WipeCooldown  bool      `json:"wipe_cooldown"`
	WipeEndsAt    time.Time `json:"wipe_ends_at,omitempty"`
	WipeProgress  float64   `json:"wipe_progress"`
}

// Snapshot returns the external view of the state.
func (s ActorState) Snapshot() Snapshot {
	hours, minutes := s.Countdown()
	snap := Snapshot{
		ActorID:       s.ActorID,
		Profile:       s.ProfileKey,
		Status:        Classify(s),
		CanRaid:       s.CanRaid,
		Now:           s.Now,
		Weekday:       s.Weekday.String(),
		Locale:        s.Locale,
		Actual:        s.Resolution.Actual.String(),
		Within:        s.Resolution.Within,
		EndsAt:        s.Boundary,
		Hours:         hours,
		Minutes:       minutes,
		FinishedToday: s.FinishedToday(),
		Progress:      s.WindowProgress(),
		WipeCooldown:  s.WipeCooldownActive,
		WipeEndsAt:    s.Wipe.Ends,
		WipeProgress:  s.WipeProgress(),
	}
	if s.Resolution.HasPrev() {
		snap.Prev = s.Resolution.Prev.String()
	}
	if s.Resolution.HasNext() {
		snap.Next = s.Resolution.Next.String()
	}
	return snap
}
