package sim

import (
	"math/rand"
	"time"
)

// OrderCache is the in-memory working set of open order ids the fulfillment
// step samples from.
//
// It is a point-in-time snapshot replaced on the maintenance cadence. Between
// refreshes an entry may refer to an order that has since been fulfilled or
// expired; the fulfillment step then finds no open lines and does nothing.
// This staleness window is intentional.
type OrderCache struct {
	ids         []int64
	refreshedAt time.Time
}

// Replace swaps in a new snapshot.
func (c *OrderCache) Replace(ids []int64, at time.Time) {
	c.ids = ids
	c.refreshedAt = at
}

// Pick returns a uniformly random id, or false when the cache is empty.
func (c *OrderCache) Pick(rng *rand.Rand) (int64, bool) {
	if len(c.ids) == 0 {
		return 0, false
	}
	return UniformChoice(rng, c.ids), true
}

// Len returns the number of cached ids.
func (c *OrderCache) Len() int { return len(c.ids) }

// IDs returns the cached ids. Callers must not modify the slice.
func (c *OrderCache) IDs() []int64 { return c.ids }

// RefreshedAt is the simulated time of the last refresh.
func (c *OrderCache) RefreshedAt() time.Time { return c.refreshedAt }
