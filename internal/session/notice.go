package session

import (
	"time"

	"github.com/example/raid-controller/internal/arbitration"
	"github.com/example/raid-controller/internal/raid"
)

// NoticeKind identifies the message a HUD or chat renderer should show.
type NoticeKind string

const (
	// NoticeRaidOpen announces raiding is allowed until Until.
	NoticeRaidOpen NoticeKind = "raid_open"
	// NoticeRaidClosed announces raiding is closed and reopens at Until.
	NoticeRaidClosed NoticeKind = "raid_closed"
	// NoticeFinishedToday announces no window remains today.
	NoticeFinishedToday NoticeKind = "finished_today"
	// NoticeCountdown carries the hours and minutes left until raiding opens.
	NoticeCountdown NoticeKind = "countdown"
)

// Notice is a message for one actor. Rendering and localization are left to
// the consumer; Locale is the actor's current locale.
type Notice struct {
	Actor   arbitration.ActorID `json:"actor_id"`
	Kind    NoticeKind          `json:"kind"`
	Until   time.Time           `json:"until,omitempty"`
	Hours   int                 `json:"hours"`
	Minutes int                 `json:"minutes"`
	Locale  string              `json:"locale,omitempty"`
	At      time.Time           `json:"at"`
}

// NoticeSettings gate which notices the scheduler emits.
type NoticeSettings struct {
	Open       bool
	Closed     bool
	AlertEvery time.Duration
}

// Notifier receives notices produced by the engine.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

// ResolutionNotice is the open/closed/finished notice for a fresh resolution.
func ResolutionNotice(id arbitration.ActorID, state raid.ActorState) Notice {
	n := Notice{Actor: id, Until: state.Boundary, Locale: state.Locale, At: state.Now}
	switch {
	case state.CanRaid:
		n.Kind = NoticeRaidOpen
	case state.FinishedToday():
		n.Kind = NoticeFinishedToday
	default:
		n.Kind = NoticeRaidClosed
	}
	return n
}

// CountdownNotice reports the time until raiding opens. It returns false when
// raiding is open or less than a minute remains.
func CountdownNotice(id arbitration.ActorID, state raid.ActorState) (Notice, bool) {
	if state.CanRaid {
		return Notice{}, false
	}
	hours, minutes := state.Countdown()
	if hours == 0 && minutes == 0 {
		return Notice{}, false
	}
	return Notice{
		Actor:   id,
		Kind:    NoticeCountdown,
		Until:   state.Boundary,
		Hours:   hours,
		Minutes: minutes,
		Locale:  state.Locale,
		At:      state.Now,
	}, true
}

// TryDamageNotice answers a suppressed raid attempt: the countdown to the end
// of the current closed period, or finished_today when no window is left.
// It returns false when raiding is open or less than a minute remains.
func TryDamageNotice(id arbitration.ActorID, state raid.ActorState) (Notice, bool) {
	n, ok := CountdownNotice(id, state)
	if !ok {
		return Notice{}, false
	}
	if state.FinishedToday() {
		n.Kind = NoticeFinishedToday
	}
	return n, true
}
