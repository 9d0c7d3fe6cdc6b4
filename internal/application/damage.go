package application

import (
	"fmt"

	"github.com/example/raid-controller/internal/arbitration"
	"github.com/example/raid-controller/internal/proxyfire"
	"github.com/example/raid-controller/internal/session"
)

// DamageKind separates direct hits from fire damage.
type DamageKind string

const (
	DamageDirect   DamageKind = "direct"
	DamageHeat     DamageKind = "heat"
	DamageFireball DamageKind = "fireball"
)

func (k DamageKind) valid() bool {
	switch k {
	case DamageDirect, DamageHeat, DamageFireball:
		return true
	}
	return false
}

func (k DamageKind) fire() bool { return k == DamageHeat || k == DamageFireball }

// Rule labels produced by the pipeline itself rather than the policy.
const (
	RuleRulesDisabled arbitration.Rule = "rules_disabled"
	RuleNoSession     arbitration.Rule = "no_session"
	RuleUnattributed  arbitration.Rule = "unattributed"
)

// Weapon describes what dealt a direct hit.
type Weapon struct {
	AmmoShortname    string `json:"ammo,omitempty"`
	WeaponPrefab     string `json:"weapon_prefab,omitempty"`
	ProjectilePrefab string `json:"projectile_prefab,omitempty"`
}

// DamageEvent is one damage event reported by the host. Initiator is nil
// for damage without a known actor, such as a spreading fire.
type DamageEvent struct {
	Initiator *arbitration.ActorID    `json:"initiator,omitempty"`
	Kind      DamageKind              `json:"kind"`
	HitPoint  proxyfire.Vec3          `json:"hit_point"`
	Target    arbitration.TargetFacts `json:"target"`
	Weapon    Weapon                  `json:"weapon"`
}

func (e DamageEvent) validate() *ValidationError {
	vErr := &ValidationError{}
	if !e.Kind.valid() {
		vErr.add("kind", fmt.Sprintf("must be one of %s, %s, %s", DamageDirect, DamageHeat, DamageFireball))
	}
	return vErr
}

// normalized maps unknown target categories to other.
func (e DamageEvent) normalized() DamageEvent {
	e.Target.Category, _ = arbitration.ParseCategory(string(e.Target.Category))
	return e
}

// DamageVerdict tells the host whether to apply the damage.
type DamageVerdict struct {
	Allowed bool             `json:"allowed"`
	Rule    arbitration.Rule `json:"rule"`
	// DecidedBy is the actor whose evaluation produced Rule.
	DecidedBy    *arbitration.ActorID  `json:"decided_by,omitempty"`
	AttributedTo []arbitration.ActorID `json:"attributed_to,omitempty"`
	Origin       *proxyfire.Origin     `json:"origin,omitempty"`
	Refund       *Refund               `json:"refund,omitempty"`
	Notice       *session.Notice       `json:"notice,omitempty"`
}

func allowVerdict(rule arbitration.Rule) DamageVerdict {
	return DamageVerdict{Allowed: true, Rule: rule}
}

func decidedBy(id arbitration.ActorID) *arbitration.ActorID {
	return &id
}
