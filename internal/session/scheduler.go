// Package session owns the resolved raid state of every connected actor and
// refreshes it on a fixed tick or when a change trigger fires.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/raid-controller/internal/arbitration"
	"github.com/example/raid-controller/internal/cooldown"
	"github.com/example/raid-controller/internal/logging"
	"github.com/example/raid-controller/internal/raid"
	"github.com/example/raid-controller/internal/schedule"
)

// ErrNoSession indicates the actor has no active session.
var ErrNoSession = errors.New("session: no active session")

// Trigger names why a session was re-resolved.
type Trigger string

const (
	TriggerStart       Trigger = "start"
	TriggerLocale      Trigger = "locale"
	TriggerWeekday     Trigger = "weekday"
	TriggerBoundary    Trigger = "boundary"
	TriggerInvalidated Trigger = "invalidated"
)

// Identity is what the host tells the scheduler about an actor.
type Identity struct {
	ID     arbitration.ActorID
	Groups []string
	Locale string
}

func (i Identity) profileIdentity() schedule.Identity {
	return schedule.Identity{ID: i.ID.String(), Groups: append([]string(nil), i.Groups...)}
}

type actorSession struct {
	identity  Identity
	state     raid.ActorState
	nextAlert time.Time
}

// Options configure a Scheduler.
type Options struct {
	Profiles *schedule.ProfileSet
	Location *time.Location
	LastWipe time.Time
	Notices  NoticeSettings
	Now      func() time.Time
	Logger   *slog.Logger
}

// Scheduler owns one ActorState per session. Only the scheduler writes
// state; Snapshot hands out copies.
type Scheduler struct {
	mu       sync.Mutex
	profiles *schedule.ProfileSet
	loc      *time.Location
	lastWipe time.Time
	notices  NoticeSettings
	now      func() time.Time
	logger   *slog.Logger

	sessions map[arbitration.ActorID]*actorSession
	order    []arbitration.ActorID
	invalid  map[arbitration.ActorID]struct{}
	warned   map[string]struct{}
}

// NewScheduler returns a scheduler with no sessions.
func NewScheduler(opts Options) *Scheduler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		profiles: opts.Profiles,
		loc:      loc,
		lastWipe: opts.LastWipe,
		notices:  opts.Notices,
		now:      now,
		logger:   logger,
		sessions: make(map[arbitration.ActorID]*actorSession),
		invalid:  make(map[arbitration.ActorID]struct{}),
		warned:   make(map[string]struct{}),
	}
}

// Location is the server location schedules are resolved in.
func (s *Scheduler) Location() *time.Location { return s.loc }

// Start opens a session and resolves it immediately. Starting an existing
// session replaces its identity and re-resolves.
func (s *Scheduler) Start(ctx context.Context, id Identity) (raid.ActorState, []Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := s.now().In(s.loc)
	sess, ok := s.sessions[id.ID]
	if !ok {
		sess = &actorSession{}
		s.sessions[id.ID] = sess
		s.order = append(s.order, id.ID)
	}
	sess.identity = id
	delete(s.invalid, id.ID)

	var notices []Notice
	if n, ok := s.resolveLocked(ctx, sess, local, TriggerStart); ok {
		notices = append(notices, n)
	}
	if s.notices.AlertEvery > 0 {
		sess.nextAlert = local.Add(s.notices.AlertEvery)
	}
	return sess.state, notices
}

// End discards the session. It reports whether one existed.
func (s *Scheduler) End(id arbitration.ActorID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	delete(s.invalid, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// UpdateIdentity replaces the actor's groups and locale. A group change marks
// the session invalid; a locale change is picked up by the next tick.
func (s *Scheduler) UpdateIdentity(id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id.ID]
	if !ok {
		return ErrNoSession
	}
	if !sameGroups(sess.identity.Groups, id.Groups) {
		s.invalid[id.ID] = struct{}{}
	}
	sess.identity = id
	return nil
}

// Invalidate requests a forced refresh of one actor on its next tick.
func (s *Scheduler) Invalidate(id arbitration.ActorID) {
	s.mu.Lock()
	s.invalid[id] = struct{}{}
	s.mu.Unlock()
}

// InvalidateAll requests a forced refresh of every active session.
func (s *Scheduler) InvalidateAll() {
	s.mu.Lock()
	for _, id := range s.order {
		s.invalid[id] = struct{}{}
	}
	s.mu.Unlock()
}

// SetProfiles swaps the profile set and invalidates every session.
func (s *Scheduler) SetProfiles(profiles *schedule.ProfileSet) {
	s.mu.Lock()
	s.profiles = profiles
	s.warned = make(map[string]struct{})
	s.mu.Unlock()
	s.InvalidateAll()
}

// SetNotices swaps the notice settings. Alert timers restart from now.
func (s *Scheduler) SetNotices(settings NoticeSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notices = settings
	local := s.now().In(s.loc)
	for _, sess := range s.sessions {
		sess.nextAlert = time.Time{}
		if settings.AlertEvery > 0 {
			sess.nextAlert = local.Add(settings.AlertEvery)
		}
	}
}

// SetLastWipe records a new wipe time and invalidates every session.
func (s *Scheduler) SetLastWipe(t time.Time) {
	s.mu.Lock()
	s.lastWipe = t
	s.mu.Unlock()
	s.InvalidateAll()
}

// LastWipe returns the wipe time used for cooldown evaluation.
func (s *Scheduler) LastWipe() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWipe
}

// Tick advances every session. Sessions with a firing trigger are fully
// re-resolved; the rest only advance their clock. Sessions are visited in
// start order.
func (s *Scheduler) Tick(ctx context.Context) []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := s.now().In(s.loc)
	var notices []Notice
	for _, id := range s.order {
		sess := s.sessions[id]
		if trigger, fire := s.triggerLocked(id, sess, local); fire {
			delete(s.invalid, id)
			if n, ok := s.resolveLocked(ctx, sess, local, trigger); ok {
				notices = append(notices, n)
			}
		} else {
			sess.state.Advance(local)
		}

		if s.notices.AlertEvery > 0 && !sess.nextAlert.IsZero() && !local.Before(sess.nextAlert) {
			for !local.Before(sess.nextAlert) {
				sess.nextAlert = sess.nextAlert.Add(s.notices.AlertEvery)
			}
			if n, ok := CountdownNotice(id, sess.state); ok {
				notices = append(notices, n)
			}
		}
	}
	return notices
}

// Snapshot returns a copy of the actor's state.
func (s *Scheduler) Snapshot(id arbitration.ActorID) (raid.ActorState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return raid.ActorState{}, false
	}
	return sess.state, true
}

// CanRaid returns the cached verdict of the last resolution.
func (s *Scheduler) CanRaid(id arbitration.ActorID) (canRaid, ok bool) {
	state, ok := s.Snapshot(id)
	return state.CanRaid, ok
}

// Sessions lists active actors in start order.
func (s *Scheduler) Sessions() []arbitration.ActorID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]arbitration.ActorID(nil), s.order...)
}

// Pending reports whether the actor has a forced refresh queued.
func (s *Scheduler) Pending(id arbitration.ActorID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.invalid[id]
	return ok
}

func (s *Scheduler) triggerLocked(id arbitration.ActorID, sess *actorSession, local time.Time) (Trigger, bool) {
	switch {
	case hasKey(s.invalid, id):
		return TriggerInvalidated, true
	case sess.identity.Locale != sess.state.Locale:
		return TriggerLocale, true
	case local.Weekday() != sess.state.Weekday || !sameDate(local, sess.state.Now):
		return TriggerWeekday, true
	case sess.state.BoundaryCrossed(local):
		return TriggerBoundary, true
	}
	return "", false
}

func (s *Scheduler) resolveLocked(ctx context.Context, sess *actorSession, local time.Time, trigger Trigger) (Notice, bool) {
	profile, matched := s.profiles.Select(sess.identity.profileIdentity())
	state, err := raid.Compute(raid.Input{
		ActorID:  sess.identity.ID.String(),
		Locale:   sess.identity.Locale,
		Profile:  profile,
		Matched:  matched,
		Local:    local,
		LastWipe: s.lastWipe.In(s.loc),
	})
	sess.state = state

	logger := logging.Resolve(ctx, s.logger, "", "")
	if errors.Is(err, cooldown.ErrInvalidCutoff) {
		if _, seen := s.warned[profile.Wipe.Custom]; !seen {
			s.warned[profile.Wipe.Custom] = struct{}{}
			logger.Warn("wipe cooldown cutoff unparsable, cooldown stays active", "profile", profile.Key, "cutoff", profile.Wipe.Custom, "error", err)
		}
	}
	if !matched {
		logger.Warn("no raid profile matched actor", "actor_id", sess.identity.ID.String())
	}
	logger.Debug("actor state resolved", "actor_id", sess.identity.ID.String(), "trigger", string(trigger), "profile", state.ProfileKey, "can_raid", state.CanRaid, "actual", state.Resolution.Actual.String())

	n := ResolutionNotice(sess.identity.ID, state)
	switch {
	case n.Kind == NoticeRaidOpen && s.notices.Open:
		return n, true
	case n.Kind != NoticeRaidOpen && s.notices.Closed:
		return n, true
	}
	return Notice{}, false
}

func hasKey(set map[arbitration.ActorID]struct{}, id arbitration.ActorID) bool {
	_, ok := set[id]
	return ok
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

func sameGroups(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
