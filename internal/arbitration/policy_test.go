package arbitration

import "testing"

const (
	campfire     = "assets/prefabs/deployable/campfire/campfire.prefab"
	sleepingBag  = "assets/prefabs/deployable/sleeping bag/sleepingbag_leather_deployed.prefab"
	wallPrefab   = "assets/prefabs/building core/wall/wall.prefab"
	doorPrefab   = "assets/prefabs/building/door.hinged/door.hinged.wood.prefab"
	barrelPrefab = "assets/bundled/prefabs/radtown/loot_barrel_1.prefab"
)

func TestPolicyEvaluate(t *testing.T) {
	t.Parallel()

	policy := NewPolicy(DefaultToggles(), []string{sleepingBag}, []string{campfire})
	owner := ActorID(100)
	attacker := ActorFacts{ID: 200}

	tests := []struct {
		name    string
		policy  Policy
		target  TargetFacts
		actor   ActorFacts
		canRaid bool
		allowed bool
		rule    Rule
	}{
		{
			name:    "open window allows everything",
			target:  TargetFacts{Category: CategoryBuildingBlock, OwnerID: owner, Grade: GradeMetal, Zone: ZoneActive},
			actor:   attacker,
			canRaid: true,
			allowed: true,
			rule:    RuleRaidAllowed,
		},
		{
			name:    "unprotected entity passes",
			target:  TargetFacts{Category: CategoryOther, Prefab: barrelPrefab, OwnerID: owner},
			actor:   attacker,
			allowed: true,
			rule:    RuleUnprotected,
		},
		{
			name:    "admin bypass",
			target:  TargetFacts{Category: CategoryDoor, OwnerID: owner, Zone: ZoneActive},
			actor:   ActorFacts{ID: 200, IsAdmin: true},
			allowed: true,
			rule:    RuleAdmin,
		},
		{
			name:    "twig bypass",
			target:  TargetFacts{Category: CategoryBuildingBlock, Prefab: wallPrefab, OwnerID: owner, Grade: GradeTwig, Zone: ZoneActive},
			actor:   attacker,
			allowed: true,
			rule:    RuleTwig,
		},
		{
			name:    "twig bypass ignores simple building blocks",
			target:  TargetFacts{Category: CategorySimpleBuildingBlock, OwnerID: owner, Grade: GradeTwig, Zone: ZoneActive},
			actor:   attacker,
			allowed: false,
			rule:    RuleDenied,
		},
		{
			name:    "owner bypass",
			target:  TargetFacts{Category: CategoryDoor, Prefab: doorPrefab, OwnerID: owner, Zone: ZoneActive},
			actor:   ActorFacts{ID: owner},
			allowed: true,
			rule:    RuleOwner,
		},
		{
			name:    "teammate bypass",
			target:  TargetFacts{Category: CategoryDoor, Prefab: doorPrefab, OwnerID: owner, Zone: ZoneActive},
			actor:   ActorFacts{ID: 200, Team: []ActorID{300, owner}},
			allowed: true,
			rule:    RuleTeammate,
		},
		{
			name:    "owner bypass disabled denies owner",
			policy:  NewPolicy(Toggles{Team: true}, nil, nil),
			target:  TargetFacts{Category: CategoryDoor, OwnerID: owner, Zone: ZoneActive},
			actor:   ActorFacts{ID: owner, Team: []ActorID{owner}},
			allowed: false,
			rule:    RuleDenied,
		},
		{
			name:    "allow-listed item regardless of zone",
			target:  TargetFacts{Category: CategoryDeployable, Prefab: sleepingBag, OwnerID: owner, Zone: ZoneActive},
			actor:   attacker,
			allowed: true,
			rule:    RuleItem,
		},
		{
			name:    "zone-protected item inside active zone",
			target:  TargetFacts{Category: CategoryDeployable, Prefab: campfire, OwnerID: owner, Zone: ZoneActive},
			actor:   attacker,
			allowed: true,
			rule:    RuleItemZoneProtected,
		},
		{
			name:    "zone-protected item outside zone falls through",
			target:  TargetFacts{Category: CategoryDeployable, Prefab: campfire, OwnerID: owner, Zone: ZoneExpired},
			actor:   attacker,
			allowed: false,
			rule:    RuleDenied,
		},
		{
			name:    "decay bypass",
			policy:  NewPolicy(Toggles{Decay: true}, nil, nil),
			target:  TargetFacts{Category: CategoryBuildingBlock, OwnerID: owner, Zone: ZoneExpired},
			actor:   attacker,
			allowed: true,
			rule:    RuleDecay,
		},
		{
			name:    "no-zone bypass",
			policy:  NewPolicy(Toggles{NoZone: true}, nil, nil),
			target:  TargetFacts{Category: CategoryBuildingBlock, OwnerID: owner, Zone: ZoneNone},
			actor:   attacker,
			allowed: true,
			rule:    RuleNoZone,
		},
		{
			name:    "prefab path marks deployables",
			target:  TargetFacts{Category: CategoryOther, Prefab: "assets/prefabs/deployable/woodenbox/box.wooden.large.prefab", OwnerID: owner},
			actor:   attacker,
			allowed: false,
			rule:    RuleDenied,
		},
		{
			name:    "default deny",
			target:  TargetFacts{Category: CategoryShopFront, OwnerID: owner, Zone: ZoneActive, Grade: GradeStone},
			actor:   attacker,
			allowed: false,
			rule:    RuleDenied,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := tt.policy
			if p.items == nil {
				p = policy
			}
			got := p.Evaluate(tt.target, tt.actor, tt.canRaid)
			if got.Allowed != tt.allowed || got.Rule != tt.rule {
				t.Fatalf("expected allowed=%v rule=%s, got allowed=%v rule=%s", tt.allowed, tt.rule, got.Allowed, got.Rule)
			}
		})
	}
}

func TestNoOwnerAlwaysAllowed(t *testing.T) {
	t.Parallel()

	policies := []Policy{
		NewPolicy(Toggles{}, nil, nil),
		NewPolicy(DefaultToggles(), []string{sleepingBag}, []string{campfire}),
	}
	categories := []Category{CategoryBuildingBlock, CategorySimpleBuildingBlock, CategoryDoor, CategoryShopFront, CategoryDeployable}
	zones := []ZoneState{ZoneNone, ZoneActive, ZoneExpired, ""}
	grades := []Grade{GradeUnknown, GradeTwig, GradeTopTier}

	for _, policy := range policies {
		for _, category := range categories {
			for _, zone := range zones {
				for _, grade := range grades {
					target := TargetFacts{Category: category, Zone: zone, Grade: grade}
					if !policy.Allow(target, ActorFacts{ID: 5, Team: []ActorID{9}}, false) {
						t.Fatalf("expected unowned %s (zone=%q grade=%q) to be allowed", category, zone, grade)
					}
				}
			}
		}
	}
}

func TestParseActorID(t *testing.T) {
	t.Parallel()

	id, err := ParseActorID("76561198000000001")
	if err != nil {
		t.Fatalf("ParseActorID error = %v", err)
	}
	if id.String() != "76561198000000001" {
		t.Fatalf("expected round trip, got %s", id)
	}
	if _, err := ParseActorID("-1"); err == nil {
		t.Fatalf("expected negative id to be rejected")
	}
}
