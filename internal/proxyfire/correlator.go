// Package proxyfire attributes delayed incendiary damage to the actors whose
// projectiles started the fire.
package proxyfire

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/raid-controller/internal/arbitration"
)

const (
	// DefaultHorizon is how long a recorded origin can be attributed.
	DefaultHorizon = 30 * time.Second
	// DefaultRadius is the attribution distance around an origin.
	DefaultRadius = 5.0
)

// Vec3 is a world-space position.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance is the euclidean distance between two points.
func (v Vec3) Distance(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Origin records an incendiary launch.
type Origin struct {
	ID     string              `json:"id"`
	At     time.Time           `json:"at"`
	Actor  arbitration.ActorID `json:"actor_id"`
	Point  Vec3                `json:"point"`
	Entity string              `json:"entity,omitempty"`
}

// Correlator keeps recent origins in insertion order. Expired entries are
// dropped while scanning, never by a background sweep.
type Correlator struct {
	mu      sync.Mutex
	horizon time.Duration
	radius  float64
	newID   func() string
	origins []Origin
}

// Option customises a Correlator.
type Option func(*Correlator)

// WithHorizon overrides the attribution horizon.
func WithHorizon(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.horizon = d
		}
	}
}

// WithRadius overrides the attribution radius.
func WithRadius(r float64) Option {
	return func(c *Correlator) {
		if r > 0 {
			c.radius = r
		}
	}
}

// WithIDGenerator replaces the uuid generator used for origin ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Correlator) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewCorrelator returns an empty correlator.
func NewCorrelator(opts ...Option) *Correlator {
	c := &Correlator{
		horizon: DefaultHorizon,
		radius:  DefaultRadius,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure replaces the horizon and radius. Non-positive values keep the
// current setting. Stored origins are kept.
func (c *Correlator) Configure(horizon time.Duration, radius float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if horizon > 0 {
		c.horizon = horizon
	}
	if radius > 0 {
		c.radius = radius
	}
}

// RecordOrigin stores a launch. Each origin gets its own id so launches in the
// same instant never collide.
func (c *Correlator) RecordOrigin(actor arbitration.ActorID, point Vec3, entity string, now time.Time) Origin {
	origin := Origin{ID: c.newID(), At: now, Actor: actor, Point: point, Entity: entity}

	c.mu.Lock()
	c.origins = append(c.origins, origin)
	c.mu.Unlock()
	return origin
}

// AttributedActors returns the distinct actors with an unexpired origin
// strictly within the radius of point, in the order their first matching
// origin was recorded.
func (c *Correlator) AttributedActors(point Vec3, now time.Time) []arbitration.ActorID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked(now)

	var (
		actors []arbitration.ActorID
		seen   = make(map[arbitration.ActorID]struct{})
	)
	for _, origin := range c.origins {
		if origin.Point.Distance(point) >= c.radius {
			continue
		}
		if _, ok := seen[origin.Actor]; ok {
			continue
		}
		seen[origin.Actor] = struct{}{}
		actors = append(actors, origin.Actor)
	}
	return actors
}

// Origins returns the unexpired origins at now.
func (c *Correlator) Origins(now time.Time) []Origin {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked(now)
	out := make([]Origin, len(c.origins))
	copy(out, c.origins)
	return out
}

// Len reports the number of stored origins, expired or not.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.origins)
}

func (c *Correlator) evictLocked(now time.Time) {
	kept := c.origins[:0]
	for _, origin := range c.origins {
		if now.Sub(origin.At) < c.horizon {
			kept = append(kept, origin)
		}
	}
	for i := len(kept); i < len(c.origins); i++ {
		c.origins[i] = Origin{}
	}
	c.origins = kept
}
