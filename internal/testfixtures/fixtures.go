package testfixtures

import (
	"testing"

	"github.com/example/raid-controller/internal/application"
	"github.com/example/raid-controller/internal/arbitration"
	"github.com/example/raid-controller/internal/proxyfire"
	"github.com/example/raid-controller/internal/rules"
)

// RulesDocument is a compact rules document. The default profile raids on
// Monday 08:00-10:00 and 16:00-00:00 and all day Saturday; members of "vip"
// raid all day Monday. Refunds are on for rockets and explosives.
const RulesDocument = `enabled: true
bypass:
  admin: true
  twig: true
  owner: true
  team: true
  decay: false
  no_zone: false
  player_fire: false
  items:
    - "assets/prefabs/deployable/sleeping bag/sleepingbag_leather_deployed.prefab"
refund:
  enabled: true
  categories:
    explosive: true
    grenade: false
    rocket: true
    grenadelauncher: false
    rifle: false
    pistol: false
    shotgun: false
notices:
  open: true
  closed: true
  try_damage: true
  alert_every: 30m
proxy_fire:
  radius: 5
  horizon: 30s
profiles:
  - key: default
    days:
      monday:
        windows:
          - { start: "08:00", end: "10:00" }
          - { start: "16:00", end: "00:00" }
      saturday:
        all_day: true
      sunday:
        no_raid: true
  - key: vip
    days:
      monday:
        all_day: true
`

// ForeignOwner owns the structures built by NewTarget.
const ForeignOwner arbitration.ActorID = 99

// Rules parses RulesDocument.
func Rules(tb testing.TB) *rules.Rules {
	tb.Helper()
	return ParseRules(tb, RulesDocument)
}

// ParseRules parses document or fails the test.
func ParseRules(tb testing.TB, document string) *rules.Rules {
	tb.Helper()
	parsed, err := rules.Parse([]byte(document))
	if err != nil {
		tb.Fatalf("parse rules fixture: %v", err)
	}
	return parsed
}

// ----------------------------- Target fixtures -----------------------------

// TargetOption configures a target fixture.
type TargetOption func(*arbitration.TargetFacts)

// NewTarget returns a stone wall owned by ForeignOwner inside a live zone.
func NewTarget(opts ...TargetOption) arbitration.TargetFacts {
	target := arbitration.TargetFacts{
		Category: arbitration.CategoryBuildingBlock,
		Prefab:   "assets/prefabs/building core/wall/wall.prefab",
		OwnerID:  ForeignOwner,
		Zone:     arbitration.ZoneActive,
		Grade:    arbitration.GradeStone,
	}
	for _, opt := range opts {
		opt(&target)
	}
	return target
}

// WithOwner overrides the owner; zero means unowned.
func WithOwner(id arbitration.ActorID) TargetOption {
	return func(t *arbitration.TargetFacts) { t.OwnerID = id }
}

// WithCategory overrides the structural category.
func WithCategory(category arbitration.Category) TargetOption {
	return func(t *arbitration.TargetFacts) { t.Category = category }
}

// WithGrade overrides the construction tier.
func WithGrade(grade arbitration.Grade) TargetOption {
	return func(t *arbitration.TargetFacts) { t.Grade = grade }
}

// WithZone overrides the access-control zone state.
func WithZone(zone arbitration.ZoneState) TargetOption {
	return func(t *arbitration.TargetFacts) { t.Zone = zone }
}

// WithPrefab overrides the prefab path.
func WithPrefab(prefab string) TargetOption {
	return func(t *arbitration.TargetFacts) { t.Prefab = prefab }
}

// ----------------------------- Session fixtures ----------------------------

// SessionOption configures a session fixture.
type SessionOption func(*application.SessionInput)

// NewSession returns the host facts for a plain player.
func NewSession(id arbitration.ActorID, opts ...SessionOption) application.SessionInput {
	in := application.SessionInput{ActorID: id, Locale: "en"}
	for _, opt := range opts {
		opt(&in)
	}
	return in
}

// WithGroups sets the permission groups.
func WithGroups(groups ...string) SessionOption {
	return func(in *application.SessionInput) { in.Groups = append([]string(nil), groups...) }
}

// WithLocale sets the locale.
func WithLocale(locale string) SessionOption {
	return func(in *application.SessionInput) { in.Locale = locale }
}

// WithAdmin marks the actor as an administrator.
func WithAdmin() SessionOption {
	return func(in *application.SessionInput) { in.IsAdmin = true }
}

// WithTeam sets the actor's team members.
func WithTeam(members ...arbitration.ActorID) SessionOption {
	return func(in *application.SessionInput) { in.Team = append([]arbitration.ActorID(nil), members...) }
}

// ----------------------------- Damage fixtures -----------------------------

var (
	// RocketHV is a high velocity rocket launch.
	RocketHV = application.Weapon{AmmoShortname: "ammo.rocket.hv", WeaponPrefab: "rocket_hv"}
	// TimedExplosive is a deployed C4 charge.
	TimedExplosive = application.Weapon{AmmoShortname: "explosive.timed", WeaponPrefab: "explosive.timed.deployed"}
	// IncendiaryRifle fires incendiary rifle rounds.
	IncendiaryRifle = application.Weapon{AmmoShortname: "ammo.rifle.incendiary", ProjectilePrefab: "riflebullet_fire"}
)

// DirectHit is a direct damage event by actor.
func DirectHit(actor arbitration.ActorID, target arbitration.TargetFacts, weapon application.Weapon, at proxyfire.Vec3) application.DamageEvent {
	return application.DamageEvent{
		Initiator: &actor,
		Kind:      application.DamageDirect,
		HitPoint:  at,
		Target:    target,
		Weapon:    weapon,
	}
}

// HeatAt is heat damage without a known initiator.
func HeatAt(target arbitration.TargetFacts, at proxyfire.Vec3) application.DamageEvent {
	return application.DamageEvent{Kind: application.DamageHeat, HitPoint: at, Target: target}
}
