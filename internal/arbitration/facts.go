// Package arbitration decides whether a single damage event against a
// structure may be applied while raiding is closed for the attacker.
package arbitration

import (
	"fmt"
	"strconv"
	"strings"
)

// ActorID identifies a player. Zero means "nobody" and is used for unowned
// structures.
type ActorID uint64

// ParseActorID parses the decimal form of an actor id.
func ParseActorID(value string) (ActorID, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid actor id %q: %w", value, err)
	}
	return ActorID(id), nil
}

func (id ActorID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Category is the structural class of a damage target.
type Category string

const (
	CategoryOther               Category = "other"
	CategoryBuildingBlock       Category = "building_block"
	CategorySimpleBuildingBlock Category = "simple_building_block"
	CategoryDoor                Category = "door"
	CategoryShopFront           Category = "shop_front"
	CategoryDeployable          Category = "deployable"
)

// ParseCategory maps a category label to a Category. Unknown labels are
// reported as false and callers fall back to CategoryOther.
func ParseCategory(value string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(value))); c {
	case CategoryOther, CategoryBuildingBlock, CategorySimpleBuildingBlock,
		CategoryDoor, CategoryShopFront, CategoryDeployable:
		return c, true
	case "":
		return CategoryOther, true
	}
	return CategoryOther, false
}

// Grade is the construction tier of a building block.
type Grade string

const (
	GradeUnknown Grade = ""
	GradeTwig    Grade = "twigs"
	GradeWood    Grade = "wood"
	GradeStone   Grade = "stone"
	GradeMetal   Grade = "metal"
	GradeTopTier Grade = "toptier"
)

// ZoneState describes the access-control zone covering a target.
type ZoneState string

const (
	// ZoneNone means no access-control zone covers the target.
	ZoneNone ZoneState = "none"
	// ZoneActive means the target is protected by a live zone.
	ZoneActive ZoneState = "active"
	// ZoneExpired means a zone exists but has decayed.
	ZoneExpired ZoneState = "expired"
)

// TargetFacts are what the host knows about the damaged entity. Missing facts
// are zero values and are treated as decision inputs.
type TargetFacts struct {
	Category Category  `json:"category"`
	Prefab   string    `json:"prefab"`
	OwnerID  ActorID   `json:"owner_id"`
	Zone     ZoneState `json:"zone"`
	Grade    Grade     `json:"grade"`
}

// Protected reports whether the target belongs to a protected category.
// Any prefab whose path names a deployable is protected regardless of category.
func (t TargetFacts) Protected() bool {
	switch t.Category {
	case CategoryBuildingBlock, CategorySimpleBuildingBlock, CategoryDoor,
		CategoryShopFront, CategoryDeployable:
		return true
	}
	return strings.Contains(t.Prefab, "deploy")
}

// ActorFacts are what the host knows about the acting player.
type ActorFacts struct {
	ID      ActorID   `json:"id"`
	IsAdmin bool      `json:"is_admin"`
	Team    []ActorID `json:"team,omitempty"`
}

// IsOwner reports whether the actor owns a structure owned by owner.
func (a ActorFacts) IsOwner(owner ActorID) bool {
	return owner != 0 && a.ID == owner
}

// IsTeammate reports whether the actor is on the owner's team without being
// the owner.
func (a ActorFacts) IsTeammate(owner ActorID) bool {
	if owner == 0 || a.ID == owner {
		return false
	}
	for _, member := range a.Team {
		if member == owner {
			return true
		}
	}
	return false
}
