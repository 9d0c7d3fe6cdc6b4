package schedule

import "time"

// Kind classifies how a resolution was reached. Exactly one applies.
type Kind int

const (
	// KindGap means no window contains the queried time.
	KindGap Kind = iota
	// KindWithinWindow means a configured window contains the queried time.
	KindWithinWindow
	// KindAllDayRaid means the day-level all-day raid override applied.
	KindAllDayRaid
	// KindNoRaidAllDay means the day-level no-raid override applied.
	KindNoRaidAllDay
)

func (k Kind) String() string {
	switch k {
	case KindWithinWindow:
		return "within_window"
	case KindAllDayRaid:
		return "all_day_raid"
	case KindNoRaidAllDay:
		return "no_raid_all_day"
	default:
		return "gap"
	}
}

// Resolution is the window classification of one time of day. Prev and Next
// are zero when absent.
type Resolution struct {
	Kind   Kind
	Prev   TimeWindow
	Actual TimeWindow
	Next   TimeWindow
	Within bool
}

// HasPrev reports whether a window ended earlier the same day.
func (r Resolution) HasPrev() bool { return !r.Prev.IsZero() }

// HasNext reports whether a window starts later the same day.
func (r Resolution) HasNext() bool { return !r.Next.IsZero() }

// Resolve classifies t against the profile's schedule for weekday.
func Resolve(profile RaidProfile, weekday time.Weekday, t TimeOfDay) Resolution {
	return ResolveDay(profile.Week.Day(weekday), t)
}

// ResolveDay classifies t against a single day schedule. The result never
// crosses midnight; the caller resolves again when the day rolls over.
func ResolveDay(day DaySchedule, t TimeOfDay) Resolution {
	switch {
	case day.AllDay:
		return Resolution{Kind: KindAllDayRaid, Actual: FullDay(), Within: true}
	case day.NoAllDayRaid:
		return Resolution{Kind: KindNoRaidAllDay, Actual: FullDay()}
	}

	var (
		res       Resolution
		foundCur  bool
		foundNext bool
	)
	for _, w := range day.Windows {
		if w.EndedBy(t) {
			res.Prev = w
		}
		if !foundCur && w.Contains(t) {
			res.Actual = w
			res.Within = true
			foundCur = true
		}
		if !foundNext && w.Start > t {
			res.Next = w
			foundNext = true
		}
	}

	if foundCur {
		res.Kind = KindWithinWindow
		return res
	}

	res.Kind = KindGap
	res.Actual = TimeWindow{Start: Midnight, End: EndOfDay}
	if res.HasPrev() {
		res.Actual.Start = res.Prev.End
	}
	if res.HasNext() {
		res.Actual.End = res.Next.Start
	}
	return res
}
