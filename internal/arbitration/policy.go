package arbitration

// Rule names the step of the decision chain that settled a damage event.
type Rule string

const (
	RuleRaidAllowed       Rule = "raid_allowed"
	RuleUnprotected       Rule = "unprotected_target"
	RuleAdmin             Rule = "admin"
	RuleTwig              Rule = "twig"
	RuleOwner             Rule = "owner"
	RuleTeammate          Rule = "teammate"
	RuleItem              Rule = "item"
	RuleItemZoneProtected Rule = "item_zone_protected"
	RuleDecay             Rule = "decay"
	RuleNoZone            Rule = "no_zone"
	RuleNoOwner           Rule = "no_owner"
	RuleDenied            Rule = "denied"
)

// Toggles switch the configurable bypass rules on or off.
type Toggles struct {
	Admin  bool
	Twig   bool
	Owner  bool
	Team   bool
	Decay  bool
	NoZone bool
}

// DefaultToggles mirrors the stock rules document: identity bypasses on,
// zone-state bypasses off.
func DefaultToggles() Toggles {
	return Toggles{Admin: true, Twig: true, Owner: true, Team: true}
}

// Policy is an immutable bypass configuration.
type Policy struct {
	toggles            Toggles
	items              map[string]struct{}
	itemsZoneProtected map[string]struct{}
}

// NewPolicy builds a policy from toggles and the two prefab allow-lists.
func NewPolicy(toggles Toggles, items, itemsZoneProtected []string) Policy {
	return Policy{
		toggles:            toggles,
		items:              toSet(items),
		itemsZoneProtected: toSet(itemsZoneProtected),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Toggles returns the configured toggles.
func (p Policy) Toggles() Toggles { return p.toggles }

// Decision is the outcome of one arbitration.
type Decision struct {
	Allowed bool
	Rule    Rule
}

// Evaluate runs the decision chain. The first matching rule decides.
func (p Policy) Evaluate(target TargetFacts, actor ActorFacts, canRaid bool) Decision {
	if canRaid {
		return Decision{Allowed: true, Rule: RuleRaidAllowed}
	}
	if !target.Protected() {
		return Decision{Allowed: true, Rule: RuleUnprotected}
	}

	switch {
	case p.toggles.Admin && actor.IsAdmin:
		return Decision{Allowed: true, Rule: RuleAdmin}
	case p.toggles.Twig && target.Category == CategoryBuildingBlock && target.Grade == GradeTwig:
		return Decision{Allowed: true, Rule: RuleTwig}
	case p.toggles.Owner && actor.IsOwner(target.OwnerID):
		return Decision{Allowed: true, Rule: RuleOwner}
	case p.toggles.Team && actor.IsTeammate(target.OwnerID):
		return Decision{Allowed: true, Rule: RuleTeammate}
	case p.listed(p.items, target.Prefab):
		return Decision{Allowed: true, Rule: RuleItem}
	case target.Zone == ZoneActive && p.listed(p.itemsZoneProtected, target.Prefab):
		return Decision{Allowed: true, Rule: RuleItemZoneProtected}
	case p.toggles.Decay && target.Zone == ZoneExpired:
		return Decision{Allowed: true, Rule: RuleDecay}
	case p.toggles.NoZone && (target.Zone == ZoneNone || target.Zone == ""):
		return Decision{Allowed: true, Rule: RuleNoZone}
	case target.OwnerID == 0:
		return Decision{Allowed: true, Rule: RuleNoOwner}
	}
	return Decision{Allowed: false, Rule: RuleDenied}
}

// Allow reports only whether the damage may be applied.
func (p Policy) Allow(target TargetFacts, actor ActorFacts, canRaid bool) bool {
	return p.Evaluate(target, actor, canRaid).Allowed
}

func (p Policy) listed(set map[string]struct{}, prefab string) bool {
	if prefab == "" {
		return false
	}
	_, ok := set[prefab]
	return ok
}
