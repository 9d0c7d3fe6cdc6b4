package application

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/example/raid-controller/internal/arbitration"
)

const (
	refundCooldown    = 100 * time.Millisecond
	tryDamageCooldown = 5 * time.Second

	cooldownTableSize = 4096
)

// cooldownTable rate-limits a per-actor action. The table is bounded; when it
// is full the least recently used actor is forgotten, which at worst lets
// that actor act once early.
type cooldownTable struct {
	window  time.Duration
	entries *lru.Cache[arbitration.ActorID, time.Time]
}

func newCooldownTable(window time.Duration, size int) *cooldownTable {
	if size <= 0 {
		size = cooldownTableSize
	}
	entries, err := lru.New[arbitration.ActorID, time.Time](size)
	if err != nil {
		panic(err)
	}
	return &cooldownTable{window: window, entries: entries}
}

// Allow reports whether id may act at now and, if so, starts its cooldown.
func (c *cooldownTable) Allow(id arbitration.ActorID, now time.Time) bool {
	if c == nil {
		return true
	}
	if last, ok := c.entries.Get(id); ok && now.Sub(last) < c.window {
		return false
	}
	c.entries.Add(id, now)
	return true
}

// Forget drops id so its next action is allowed immediately.
func (c *cooldownTable) Forget(id arbitration.ActorID) {
	if c == nil {
		return
	}
	c.entries.Remove(id)
}

// Len reports the number of tracked actors.
func (c *cooldownTable) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
