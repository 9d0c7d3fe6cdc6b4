package session_test

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/example/raid-controller/internal/arbitration"
	"github.com/example/raid-controller/internal/schedule"
	"github.com/example/raid-controller/internal/session"
	"github.com/example/raid-controller/internal/testfixtures"
)

func testProfiles(t *testing.T) *schedule.ProfileSet {
	t.Helper()
	morning, err := schedule.NewTimeWindow("08:00", "10:00")
	if err != nil {
		t.Fatalf("NewTimeWindow error = %v", err)
	}
	evening, err := schedule.NewTimeWindow("16:00", "00:00")
	if err != nil {
		t.Fatalf("NewTimeWindow error = %v", err)
	}

	var week schedule.WeeklySchedule
	week[time.Monday] = schedule.DaySchedule{Windows: []schedule.TimeWindow{morning, evening}}

	var vipWeek schedule.WeeklySchedule
	vipWeek[time.Monday] = schedule.DaySchedule{AllDay: true}

	set, err := schedule.NewProfileSet([]schedule.RaidProfile{
		{Key: schedule.DefaultProfileKey, Week: week},
		{Key: "vip", Week: vipWeek},
	})
	if err != nil {
		t.Fatalf("NewProfileSet error = %v", err)
	}
	return set
}

// 2024-03-04 is a Monday.
func newTestScheduler(t *testing.T, clock *testfixtures.Clock, notices session.NoticeSettings) *session.Scheduler {
	t.Helper()
	return session.NewScheduler(session.Options{
		Profiles: testProfiles(t),
		Location: time.UTC,
		Notices:  notices,
		Now:      clock.NowFunc(),
	})
}

func TestStartResolvesImmediately(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC))
	s := newTestScheduler(t, clock, session.NoticeSettings{Open: true, Closed: true})

	state, notices := s.Start(context.Background(), session.Identity{ID: 1, Locale: "en"})
	if !state.CanRaid {
		t.Fatalf("expected raid allowed at 09:00")
	}
	if len(notices) != 1 || notices[0].Kind != session.NoticeRaidOpen {
		t.Fatalf("expected one raid_open notice, got %+v", notices)
	}
	if want := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC); !notices[0].Until.Equal(want) {
		t.Fatalf("expected notice until %s, got %s", want, notices[0].Until)
	}
	if canRaid, ok := s.CanRaid(1); !ok || !canRaid {
		t.Fatalf("expected cached verdict true, got %v (session %v)", canRaid, ok)
	}
}

func TestTickRecomputesOnBoundary(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Date(2024, time.March, 4, 9, 59, 58, 0, time.UTC))
	s := newTestScheduler(t, clock, session.NoticeSettings{Closed: true})
	s.Start(context.Background(), session.Identity{ID: 1})

	clock.Advance(time.Second)
	if notices := s.Tick(context.Background()); len(notices) != 0 {
		t.Fatalf("expected no re-resolution before boundary, got %+v", notices)
	}
	if canRaid, _ := s.CanRaid(1); !canRaid {
		t.Fatalf("expected window still open at 09:59:59")
	}

	clock.Advance(time.Second)
	notices := s.Tick(context.Background())
	if canRaid, _ := s.CanRaid(1); canRaid {
		t.Fatalf("expected window closed at 10:00")
	}
	if len(notices) != 1 || notices[0].Kind != session.NoticeRaidClosed {
		t.Fatalf("expected raid_closed notice at boundary, got %+v", notices)
	}
	state, _ := s.Snapshot(1)
	if got := state.Resolution.Actual.String(); got != "10:00-16:00" {
		t.Fatalf("expected actual 10:00-16:00, got %s", got)
	}
}

func TestBoundaryFollowsWallClockAcrossDSTChanges(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation error = %v", err)
	}
	morning, err := schedule.NewTimeWindow("08:00", "10:00")
	if err != nil {
		t.Fatalf("NewTimeWindow error = %v", err)
	}
	var week schedule.WeeklySchedule
	week[time.Sunday] = schedule.DaySchedule{Windows: []schedule.TimeWindow{morning}}
	profiles, err := schedule.NewProfileSet([]schedule.RaidProfile{{Key: schedule.DefaultProfileKey, Week: week}})
	if err != nil {
		t.Fatalf("NewProfileSet error = %v", err)
	}

	// Both dates are Sundays: clocks spring forward on 2025-03-30 and fall
	// back on 2025-10-26.
	for _, day := range []time.Time{
		time.Date(2025, time.March, 30, 0, 0, 0, 0, berlin),
		time.Date(2025, time.October, 26, 0, 0, 0, 0, berlin),
	} {
		t.Run(day.Format("2006-01-02"), func(t *testing.T) {
			t.Parallel()
			y, m, d := day.Date()
			clock := testfixtures.NewClock(time.Date(y, m, d, 9, 0, 0, 0, berlin))
			s := session.NewScheduler(session.Options{Profiles: profiles, Location: berlin, Now: clock.NowFunc()})

			state, _ := s.Start(context.Background(), session.Identity{ID: 1})
			if !state.CanRaid {
				t.Fatalf("expected raid allowed at 09:00")
			}
			if want := time.Date(y, m, d, 10, 0, 0, 0, berlin); !state.Boundary.Equal(want) {
				t.Fatalf("expected boundary at %s, got %s", want, state.Boundary)
			}
			if h, mm := state.Countdown(); h != 1 || mm != 0 {
				t.Fatalf("expected 1h0m countdown, got %dh%dm", h, mm)
			}

			clock.Set(time.Date(y, m, d, 10, 30, 0, 0, berlin))
			s.Tick(context.Background())
			if canRaid, _ := s.CanRaid(1); canRaid {
				t.Fatalf("expected window closed at 10:30 local")
			}
		})
	}
}

func TestTickAdvancesClockWithoutTrigger(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC))
	s := newTestScheduler(t, clock, session.NoticeSettings{Open: true, Closed: true})
	s.Start(context.Background(), session.Identity{ID: 1})

	clock.Advance(30 * time.Minute)
	if notices := s.Tick(context.Background()); len(notices) != 0 {
		t.Fatalf("expected no notices, got %+v", notices)
	}
	state, _ := s.Snapshot(1)
	if !state.Now.Equal(clock.Now()) {
		t.Fatalf("expected state clock advanced to %s, got %s", clock.Now(), state.Now)
	}
	if h, m := state.Countdown(); h != 3 || m != 30 {
		t.Fatalf("expected 3h30m until opening, got %dh%dm", h, m)
	}
}

func TestTickDayRollover(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Date(2024, time.March, 4, 23, 59, 59, 0, time.UTC))
	s := newTestScheduler(t, clock, session.NoticeSettings{Closed: true})
	state, _ := s.Start(context.Background(), session.Identity{ID: 1})
	if !state.CanRaid {
		t.Fatalf("expected end-of-day window to include 23:59:59")
	}

	clock.Advance(time.Second)
	notices := s.Tick(context.Background())
	state, _ = s.Snapshot(1)
	if state.Weekday != time.Tuesday || state.CanRaid {
		t.Fatalf("expected closed tuesday after rollover, got %s can_raid=%v", state.Weekday, state.CanRaid)
	}
	if len(notices) != 1 || notices[0].Kind != session.NoticeFinishedToday {
		t.Fatalf("expected finished_today notice, got %+v", notices)
	}
}

func TestInvalidationIsDrained(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC))
	s := newTestScheduler(t, clock, session.NoticeSettings{})
	s.Start(context.Background(), session.Identity{ID: 1})

	if err := s.UpdateIdentity(session.Identity{ID: 1, Groups: []string{"vip"}}); err != nil {
		t.Fatalf("UpdateIdentity error = %v", err)
	}
	if !s.Pending(1) {
		t.Fatalf("expected group change to queue a refresh")
	}
	if canRaid, _ := s.CanRaid(1); canRaid {
		t.Fatalf("expected cached verdict to stay until the next tick")
	}

	s.Tick(context.Background())
	if s.Pending(1) {
		t.Fatalf("expected invalidation to be drained")
	}
	state, _ := s.Snapshot(1)
	if !state.CanRaid || state.ProfileKey != "vip" {
		t.Fatalf("expected vip all-day profile after refresh, got profile=%q can_raid=%v", state.ProfileKey, state.CanRaid)
	}
}

func TestLocaleChangeTriggersRefresh(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC))
	s := newTestScheduler(t, clock, session.NoticeSettings{Closed: true})
	s.Start(context.Background(), session.Identity{ID: 1, Locale: "en"})

	if err := s.UpdateIdentity(session.Identity{ID: 1, Locale: "fr"}); err != nil {
		t.Fatalf("UpdateIdentity error = %v", err)
	}
	notices := s.Tick(context.Background())
	if len(notices) != 1 || notices[0].Locale != "fr" {
		t.Fatalf("expected a re-issued notice in the new locale, got %+v", notices)
	}
}

func TestCountdownAlertsSkipFirstPeriod(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC))
	s := newTestScheduler(t, clock, session.NoticeSettings{AlertEvery: 10 * time.Minute})
	_, notices := s.Start(context.Background(), session.Identity{ID: 1})
	if len(notices) != 0 {
		t.Fatalf("expected no alert at session start, got %+v", notices)
	}

	clock.Advance(5 * time.Minute)
	if notices := s.Tick(context.Background()); len(notices) != 0 {
		t.Fatalf("expected no alert before the period elapses, got %+v", notices)
	}

	clock.Advance(5 * time.Minute)
	notices = s.Tick(context.Background())
	if len(notices) != 1 || notices[0].Kind != session.NoticeCountdown {
		t.Fatalf("expected one countdown notice, got %+v", notices)
	}
	if notices[0].Hours != 3 || notices[0].Minutes != 50 {
		t.Fatalf("expected 3h50m, got %dh%dm", notices[0].Hours, notices[0].Minutes)
	}
}

func TestEndDiscardsState(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC))
	s := newTestScheduler(t, clock, session.NoticeSettings{})
	s.Start(context.Background(), session.Identity{ID: 1})
	s.Start(context.Background(), session.Identity{ID: 2})

	if !s.End(1) {
		t.Fatalf("expected session to end")
	}
	if s.End(1) {
		t.Fatalf("expected second end to report no session")
	}
	if _, ok := s.Snapshot(1); ok {
		t.Fatalf("expected no state after end")
	}
	if ids := s.Sessions(); len(ids) != 1 || ids[0] != arbitration.ActorID(2) {
		t.Fatalf("expected only actor 2 left, got %v", ids)
	}
	if err := s.UpdateIdentity(session.Identity{ID: 1}); err != session.ErrNoSession {
		t.Fatalf("expected session.ErrNoSession, got %v", err)
	}
}

func TestSetLastWipeInvalidatesEverySession(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC))
	s := newTestScheduler(t, clock, session.NoticeSettings{})
	s.Start(context.Background(), session.Identity{ID: 1})
	s.Start(context.Background(), session.Identity{ID: 2})

	s.SetLastWipe(clock.Now())
	for _, id := range []arbitration.ActorID{1, 2} {
		if !s.Pending(id) {
			t.Fatalf("expected actor %d to be pending refresh", id)
		}
	}
}

func TestTryDamageNotice(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC))
	s := newTestScheduler(t, clock, session.NoticeSettings{})
	state, _ := s.Start(context.Background(), session.Identity{ID: 5})

	n, ok := session.TryDamageNotice(5, state)
	if !ok || n.Kind != session.NoticeCountdown || n.Hours != 4 || n.Minutes != 0 {
		t.Fatalf("expected 4h0m countdown at 12:00, got %+v (ok %v)", n, ok)
	}

	clock.Set(time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC))
	s.Tick(context.Background())
	state, _ = s.Snapshot(5)
	n, ok = session.TryDamageNotice(5, state)
	if !ok || n.Kind != session.NoticeFinishedToday {
		t.Fatalf("expected finished_today on an empty Tuesday, got %+v (ok %v)", n, ok)
	}

	clock.Set(time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC))
	s.Tick(context.Background())
	state, _ = s.Snapshot(5)
	if _, ok := session.TryDamageNotice(5, state); ok {
		t.Fatalf("expected no notice while raiding is open")
	}
}
