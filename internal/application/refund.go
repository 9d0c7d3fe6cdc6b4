package application

import "github.com/example/raid-controller/internal/arbitration"

// Refund categories, matching the keys of the rules document's refund section.
const (
	RefundExplosive       = "explosive"
	RefundGrenade         = "grenade"
	RefundRocket          = "rocket"
	RefundGrenadeLauncher = "grenadelauncher"
	RefundRifle           = "rifle"
	RefundPistol          = "pistol"
	RefundShotgun         = "shotgun"
)

// Refund is one item handed back to an actor whose damage was suppressed.
type Refund struct {
	Actor    arbitration.ActorID `json:"actor_id"`
	Item     string              `json:"item"`
	Category string              `json:"category"`
	Amount   int                 `json:"amount"`
}

type refundItem struct {
	item     string
	category string
}

// refundByPrefab maps a thrown, placed or fired prefab to the item it
// consumed.
var refundByPrefab = map[string]refundItem{
	"explosive.timed.deployed":   {"explosive.timed", RefundExplosive},
	"explosive.satchel.deployed": {"explosive.satchel", RefundExplosive},
	"grenade.beancan.deployed":   {"grenade.beancan", RefundGrenade},
	"grenade.f1.deployed":        {"grenade.f1", RefundGrenade},
	"grenade.molotov.deployed":   {"grenade.molotov", RefundGrenade},
	"rocket_fire":                {"ammo.rocket.fire", RefundRocket},
	"rocket_hv":                  {"ammo.rocket.hv", RefundRocket},
	"rocket_basic":               {"ammo.rocket.basic", RefundRocket},
	"40mm_grenade_he":            {"ammo.grenadelauncher.he", RefundGrenadeLauncher},
	"riflebullet":                {"ammo.rifle", RefundRifle},
	"riflebullet_explosive":      {"ammo.rifle.explosive", RefundRifle},
	"riflebullet_fire":           {"ammo.rifle.incendiary", RefundRifle},
	"pistolbullet":               {"ammo.pistol", RefundPistol},
	"pistolbullet_fire":          {"ammo.pistol.fire", RefundPistol},
	"shotgunbullet":              {"ammo.shotgun", RefundShotgun},
	"shotgunbullet_fire":         {"ammo.shotgun.fire", RefundShotgun},
	"shotgunslug":                {"ammo.shotgun.slug", RefundShotgun},
}

// explosiveWeaponPrefabs are weapon prefabs that are themselves the consumed
// item. Everything else is identified by its projectile.
var explosiveWeaponPrefabs = map[string]struct{}{
	"rocket_fire":                {},
	"rocket_hv":                  {},
	"rocket_basic":               {},
	"explosive.timed.deployed":   {},
	"survey_charge.deployed":     {},
	"explosive.satchel.deployed": {},
	"grenade.beancan.deployed":   {},
	"grenade.f1.deployed":        {},
	"grenade.molotov.deployed":   {},
	"40mm_grenade_he":            {},
}

// incendiaryAmmo lists held ammunition whose suppressed hits still start
// fires, so their origin is recorded for heat attribution.
var incendiaryAmmo = map[string]struct{}{
	"ammo.rifle.incendiary": {},
	"ammo.rifle.explosive":  {},
	"ammo.pistol.fire":      {},
	"ammo.shotgun.fire":     {},
}

func isIncendiary(ammo string) bool {
	_, ok := incendiaryAmmo[ammo]
	return ok
}

// lookupRefund identifies the consumed item of a suppressed hit.
func lookupRefund(w Weapon) (refundItem, bool) {
	name := w.ProjectilePrefab
	if _, ok := explosiveWeaponPrefabs[w.WeaponPrefab]; ok {
		name = w.WeaponPrefab
	}
	item, ok := refundByPrefab[name]
	return item, ok
}
