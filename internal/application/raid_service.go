package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/raid-controller/internal/arbitration"
	"github.com/example/raid-controller/internal/persistence"
	"github.com/example/raid-controller/internal/proxyfire"
	"github.com/example/raid-controller/internal/raid"
	"github.com/example/raid-controller/internal/rules"
	"github.com/example/raid-controller/internal/schedule"
	"github.com/example/raid-controller/internal/session"
)

// WipeRepository captures the wipe history operations needed by the service.
type WipeRepository interface {
	RecordWipe(ctx context.Context, wipe persistence.Wipe) error
	LatestWipe(ctx context.Context) (persistence.Wipe, error)
	ListWipes(ctx context.Context, limit int) ([]persistence.Wipe, error)
}

// RuleSetRepository captures the rule set operations needed by the service.
type RuleSetRepository interface {
	SaveRuleSet(ctx context.Context, ruleSet persistence.RuleSet) error
	LatestRuleSet(ctx context.Context) (persistence.RuleSet, error)
}

// RaidServiceOptions wires a RaidService.
type RaidServiceOptions struct {
	Rules       *rules.Rules
	RulesID     string
	Wipes       WipeRepository
	RuleSets    RuleSetRepository
	Notifier    session.Notifier
	Location    *time.Location
	LastWipe    time.Time
	Now         func() time.Time
	IDGenerator func() string
	Logger      *slog.Logger
}

// RaidService is the single entry point hosts use. One mutex serializes ticks,
// damage events and mutations so every decision reads a consistent state.
type RaidService struct {
	mu         sync.Mutex
	rules      *rules.Rules
	applied    RulesInfo
	scheduler  *session.Scheduler
	correlator *proxyfire.Correlator
	facts      map[arbitration.ActorID]arbitration.ActorFacts
	refunds    *cooldownTable
	tryDamage  *cooldownTable

	wipes    WipeRepository
	ruleSets RuleSetRepository
	notifier session.Notifier
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// NewRaidService constructs the service with the initial rules applied.
func NewRaidService(opts RaidServiceOptions) (*RaidService, error) {
	if opts.Rules == nil {
		return nil, ErrNoRules
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	logger := defaultLogger(opts.Logger)

	s := &RaidService{
		rules: opts.Rules,
		scheduler: session.NewScheduler(session.Options{
			Profiles: opts.Rules.Profiles,
			Location: opts.Location,
			LastWipe: opts.LastWipe,
			Notices:  opts.Rules.Notices.Settings(),
			Now:      now,
			Logger:   logger,
		}),
		correlator: proxyfire.NewCorrelator(
			proxyfire.WithHorizon(opts.Rules.ProxyFire.Horizon),
			proxyfire.WithRadius(opts.Rules.ProxyFire.Radius),
			proxyfire.WithIDGenerator(newID),
		),
		facts:     make(map[arbitration.ActorID]arbitration.ActorFacts),
		refunds:   newCooldownTable(refundCooldown, cooldownTableSize),
		tryDamage: newCooldownTable(tryDamageCooldown, cooldownTableSize),
		wipes:     opts.Wipes,
		ruleSets:  opts.RuleSets,
		notifier:  opts.Notifier,
		now:       now,
		newID:     newID,
		logger:    logger,
	}
	s.applied = RulesInfo{
		ID:        opts.RulesID,
		Checksum:  persistence.Checksum(opts.Rules.Source),
		AppliedAt: now(),
		Document:  opts.Rules.Source,
	}
	return s, nil
}

func (s *RaidService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RaidService", operation, attrs...)
}

// SessionInput is what the host reports about a connected actor.
type SessionInput struct {
	ActorID arbitration.ActorID   `json:"actor_id"`
	Groups  []string              `json:"groups"`
	Locale  string                `json:"locale"`
	IsAdmin bool                  `json:"is_admin"`
	Team    []arbitration.ActorID `json:"team"`
}

func (in SessionInput) normalize() (SessionInput, *ValidationError) {
	vErr := &ValidationError{}
	if in.ActorID == 0 {
		vErr.add("actor_id", "is required")
	}
	groups := make([]string, 0, len(in.Groups))
	for _, g := range in.Groups {
		g = strings.TrimSpace(g)
		if g == "" {
			vErr.add("groups", "must not contain empty names")
			continue
		}
		groups = append(groups, g)
	}
	in.Groups = groups
	in.Locale = strings.TrimSpace(in.Locale)
	return in, vErr
}

func (in SessionInput) identity() session.Identity {
	return session.Identity{ID: in.ActorID, Groups: in.Groups, Locale: in.Locale}
}

func (in SessionInput) actorFacts() arbitration.ActorFacts {
	return arbitration.ActorFacts{
		ID:      in.ActorID,
		IsAdmin: in.IsAdmin,
		Team:    append([]arbitration.ActorID(nil), in.Team...),
	}
}

// StartSession opens a session and resolves the actor's state immediately.
func (s *RaidService) StartSession(ctx context.Context, in SessionInput) (snapshot raid.Snapshot, err error) {
	logger := s.loggerWith(ctx, "StartSession", "actor_id", in.ActorID.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to start session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session started", "status", string(snapshot.Status), "profile", snapshot.Profile)
	}()

	in, vErr := in.normalize()
	if vErr.HasErrors() {
		err = vErr
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.facts[in.ActorID] = in.actorFacts()
	state, notices := s.scheduler.Start(ctx, in.identity())
	s.deliver(ctx, notices...)
	snapshot = state.Snapshot()
	return
}

// UpdateSession replaces the facts of an active session. Group changes force
// a refresh on the next tick; a locale change is picked up by the tick itself.
func (s *RaidService) UpdateSession(ctx context.Context, in SessionInput) (err error) {
	logger := s.loggerWith(ctx, "UpdateSession", "actor_id", in.ActorID.String())
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to update session", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	in, vErr := in.normalize()
	if vErr.HasErrors() {
		err = vErr
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.scheduler.UpdateIdentity(in.identity()); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			err = ErrNoSession
		}
		return
	}
	s.facts[in.ActorID] = in.actorFacts()
	return nil
}

// EndSession discards the actor's state and cooldowns.
func (s *RaidService) EndSession(ctx context.Context, id arbitration.ActorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scheduler.End(id) {
		return ErrNoSession
	}
	delete(s.facts, id)
	s.refunds.Forget(id)
	s.tryDamage.Forget(id)
	s.loggerWith(ctx, "EndSession", "actor_id", id.String()).InfoContext(ctx, "session ended")
	return nil
}

// Status returns the cached state of an active session.
func (s *RaidService) Status(ctx context.Context, id arbitration.ActorID) (raid.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.scheduler.Snapshot(id)
	if !ok {
		return raid.Snapshot{}, ErrNoSession
	}
	return state.Snapshot(), nil
}

// Refresh queues a forced re-resolution of the actor on the next tick.
func (s *RaidService) Refresh(ctx context.Context, id arbitration.ActorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scheduler.Snapshot(id); !ok {
		return ErrNoSession
	}
	s.scheduler.Invalidate(id)
	s.loggerWith(ctx, "Refresh", "actor_id", id.String()).DebugContext(ctx, "refresh queued")
	return nil
}

// Sessions lists active actors in start order.
func (s *RaidService) Sessions() []arbitration.ActorID {
	return s.scheduler.Sessions()
}

// Tick advances every session to the current time and delivers the notices
// it produced.
func (s *RaidService) Tick(ctx context.Context) []session.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()

	notices := s.scheduler.Tick(ctx)
	s.deliver(ctx, notices...)
	return notices
}

// EvaluateDamage decides whether a damage event may apply. Suppressed direct
// hits may record a fire origin, earn a refund and produce a notice.
func (s *RaidService) EvaluateDamage(ctx context.Context, event DamageEvent) (verdict DamageVerdict, err error) {
	if vErr := event.validate(); vErr.HasErrors() {
		return DamageVerdict{}, vErr
	}
	event = event.normalized()

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.loggerWith(ctx, "EvaluateDamage", "kind", string(event.Kind))
	defer func() {
		if !verdict.Allowed {
			attrs := []any{"rule", string(verdict.Rule), "target", event.Target.Prefab}
			if verdict.DecidedBy != nil {
				attrs = append(attrs, "actor_id", verdict.DecidedBy.String())
			}
			logger.DebugContext(ctx, "damage suppressed", attrs...)
		}
	}()

	if !s.rules.Enabled {
		return allowVerdict(RuleRulesDisabled), nil
	}
	now := s.now()
	if event.Kind.fire() {
		return s.evaluateFireLocked(event, now), nil
	}
	return s.evaluateDirectLocked(ctx, event, now), nil
}

func (s *RaidService) decideLocked(id arbitration.ActorID, target arbitration.TargetFacts) (arbitration.Decision, bool) {
	canRaid, ok := s.scheduler.CanRaid(id)
	if !ok {
		return arbitration.Decision{}, false
	}
	facts, ok := s.facts[id]
	if !ok {
		facts = arbitration.ActorFacts{ID: id}
	}
	return s.rules.Policy.Evaluate(target, facts, canRaid), true
}

func (s *RaidService) evaluateFireLocked(event DamageEvent, now time.Time) DamageVerdict {
	verdict := allowVerdict(RuleUnattributed)
	if event.Initiator != nil {
		if d, ok := s.decideLocked(*event.Initiator, event.Target); ok {
			switch {
			case d.Allowed:
				verdict.Rule = d.Rule
				verdict.DecidedBy = decidedBy(*event.Initiator)
			case !s.rules.PlayerFire:
				return DamageVerdict{Rule: d.Rule, DecidedBy: decidedBy(*event.Initiator)}
			}
		}
	}

	for _, actor := range s.correlator.AttributedActors(event.HitPoint, now) {
		d, ok := s.decideLocked(actor, event.Target)
		if !ok {
			continue
		}
		verdict.AttributedTo = append(verdict.AttributedTo, actor)
		if !d.Allowed {
			verdict.Allowed = false
			verdict.Rule = d.Rule
			verdict.DecidedBy = decidedBy(actor)
			return verdict
		}
		if verdict.Rule == RuleUnattributed {
			verdict.Rule = d.Rule
			verdict.DecidedBy = decidedBy(actor)
		}
	}
	return verdict
}

func (s *RaidService) evaluateDirectLocked(ctx context.Context, event DamageEvent, now time.Time) DamageVerdict {
	if event.Initiator == nil {
		return allowVerdict(RuleNoSession)
	}
	actor := *event.Initiator
	d, ok := s.decideLocked(actor, event.Target)
	if !ok {
		return allowVerdict(RuleNoSession)
	}
	if d.Allowed {
		return DamageVerdict{Allowed: true, Rule: d.Rule, DecidedBy: decidedBy(actor)}
	}

	verdict := DamageVerdict{Rule: d.Rule, DecidedBy: decidedBy(actor)}
	if isIncendiary(event.Weapon.AmmoShortname) {
		origin := s.correlator.RecordOrigin(actor, event.HitPoint, event.Target.Prefab, now)
		verdict.Origin = &origin
	}
	if item, ok := lookupRefund(event.Weapon); ok && s.rules.Refund.Allows(item.category) && s.refunds.Allow(actor, now) {
		verdict.Refund = &Refund{Actor: actor, Item: item.item, Category: item.category, Amount: 1}
	}
	if s.rules.Notices.TryDamage {
		state, _ := s.scheduler.Snapshot(actor)
		if n, ok := session.TryDamageNotice(actor, state); ok && s.tryDamage.Allow(actor, now) {
			verdict.Notice = &n
			s.deliver(ctx, n)
		}
	}
	return verdict
}

// FireOriginInput records an incendiary launch reported directly by the host.
type FireOriginInput struct {
	ActorID arbitration.ActorID `json:"actor_id"`
	Point   proxyfire.Vec3      `json:"point"`
	Entity  string              `json:"entity"`
}

// RecordFireOrigin stores a launch for heat attribution.
func (s *RaidService) RecordFireOrigin(ctx context.Context, in FireOriginInput) (proxyfire.Origin, error) {
	if in.ActorID == 0 {
		return proxyfire.Origin{}, &ValidationError{FieldErrors: map[string]string{"actor_id": "is required"}}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	origin := s.correlator.RecordOrigin(in.ActorID, in.Point, in.Entity, s.now())
	s.loggerWith(ctx, "RecordFireOrigin", "actor_id", in.ActorID.String(), "origin_id", origin.ID).DebugContext(ctx, "fire origin recorded")
	return origin, nil
}

// FireOrigins lists the unexpired fire origins.
func (s *RaidService) FireOrigins() []proxyfire.Origin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.correlator.Origins(s.now())
}

// WipeInput describes a wipe to record. A zero At means now.
type WipeInput struct {
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

// RecordWipe stores a wipe, moves the cooldown reference to it and forces
// every session to refresh.
func (s *RaidService) RecordWipe(ctx context.Context, in WipeInput) (wipe persistence.Wipe, err error) {
	logger := s.loggerWith(ctx, "RecordWipe")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to record wipe", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "wipe recorded", "wipe_id", wipe.ID, "at", wipe.At)
	}()

	now := s.now()
	at := in.At
	if at.IsZero() {
		at = now
	}
	if at.After(now) {
		err = &ValidationError{FieldErrors: map[string]string{"at": "must not be in the future"}}
		return
	}

	wipe = persistence.Wipe{
		ID:         s.newID(),
		At:         at,
		Reason:     strings.TrimSpace(in.Reason),
		RecordedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wipes != nil {
		if err = s.wipes.RecordWipe(ctx, wipe); err != nil {
			err = fmt.Errorf("record wipe: %w", err)
			return
		}
	}
	s.scheduler.SetLastWipe(at)
	return
}

// LastWipe returns the wipe time the cooldown is evaluated against.
func (s *RaidService) LastWipe() time.Time {
	return s.scheduler.LastWipe()
}

// ListWipes returns stored wipes newest first.
func (s *RaidService) ListWipes(ctx context.Context, limit int) ([]persistence.Wipe, error) {
	if s.wipes == nil {
		return nil, nil
	}
	wipes, err := s.wipes.ListWipes(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list wipes: %w", err)
	}
	return wipes, nil
}

// RulesInfo describes the active rules document.
type RulesInfo struct {
	ID        string    `json:"id,omitempty"`
	Checksum  string    `json:"checksum"`
	AppliedAt time.Time `json:"applied_at"`
	Document  []byte    `json:"-"`
}

// ApplyRules validates a rules document, stores it and swaps it in. Every
// session is refreshed on the next tick.
func (s *RaidService) ApplyRules(ctx context.Context, raw []byte) (info RulesInfo, err error) {
	logger := s.loggerWith(ctx, "ApplyRules")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "rules rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "rules applied", "rule_set_id", info.ID, "checksum", info.Checksum)
	}()

	parsed, err := ParseRules(raw)
	if err != nil {
		return RulesInfo{}, err
	}

	now := s.now()
	info = RulesInfo{ID: s.newID(), Checksum: persistence.Checksum(raw), AppliedAt: now, Document: raw}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ruleSets != nil {
		ruleSet := persistence.RuleSet{ID: info.ID, Document: raw, Checksum: info.Checksum, CreatedAt: now}
		if err = s.ruleSets.SaveRuleSet(ctx, ruleSet); err != nil {
			return RulesInfo{}, fmt.Errorf("save rule set: %w", err)
		}
	}
	s.applyLocked(parsed)
	s.applied = info
	return info, nil
}

// CurrentRules describes the active rules document.
func (s *RaidService) CurrentRules() RulesInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

func (s *RaidService) applyLocked(r *rules.Rules) {
	s.rules = r
	s.scheduler.SetNotices(r.Notices.Settings())
	s.scheduler.SetProfiles(r.Profiles)
	s.correlator.Configure(r.ProxyFire.Horizon, r.ProxyFire.Radius)
}

// ParseRules parses a rules document, reporting document problems as a
// ValidationError keyed by document path.
func ParseRules(raw []byte) (*rules.Rules, error) {
	parsed, err := rules.Parse(raw)
	if err != nil {
		return nil, rulesValidationError(err)
	}
	return parsed, nil
}

func rulesValidationError(err error) *ValidationError {
	var rErr *rules.Error
	switch {
	case errors.As(err, &rErr):
		return &ValidationError{FieldErrors: rErr.Fields}
	case errors.Is(err, schedule.ErrMissingDefaultProfile):
		return &ValidationError{FieldErrors: map[string]string{"/profiles": err.Error()}}
	}
	return &ValidationError{FieldErrors: map[string]string{"document": err.Error()}}
}

func (s *RaidService) deliver(ctx context.Context, notices ...session.Notice) {
	if len(notices) == 0 {
		return
	}
	logger := s.loggerWith(ctx, "deliver")
	for _, n := range notices {
		logger.DebugContext(ctx, "notice", "actor_id", n.Actor.String(), "kind", string(n.Kind))
		if s.notifier != nil {
			s.notifier.Notify(n)
		}
	}
}
