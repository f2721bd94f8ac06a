// Package instrument observes evaluations through the instrumentation hook of
// package eval. It keeps a cache of expression values that later evaluations
// can reuse, reports values to callbacks and sinks, and overrides values of
// single expressions.
package instrument

import (
	"sync"

	"github.com/google/uuid"
)

// Cache holds values of expressions by identity. Only expressions with a
// positive weight have their values stored. It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	weights map[uuid.UUID]int
	values  map[uuid.UUID]any
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{weights: make(map[uuid.UUID]int), values: make(map[uuid.UUID]any)}
}

// SetWeight sets the weight of an expression. A weight of zero or less stops
// storing values of the expression and drops any stored value.
func (c *Cache) SetWeight(id uuid.UUID, weight int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if weight <= 0 {
		delete(c.weights, id)
		delete(c.values, id)
		return
	}
	c.weights[id] = weight
}

// Weight returns the weight of an expression.
func (c *Cache) Weight(id uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weights[id]
}

// Get returns the stored value of an expression.
func (c *Cache) Get(id uuid.UUID) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[id]
	return v, ok
}

// Offer stores a value if the expression has a positive weight, and reports
// whether it did.
func (c *Cache) Offer(id uuid.UUID, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.weights[id] <= 0 {
		return false
	}
	c.values[id] = v
	return true
}

// Invalidate drops the stored values of the given expressions.
func (c *Cache) Invalidate(ids ...uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.values, id)
	}
}

// Clear drops all stored values. Weights are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[uuid.UUID]any)
}

// Len returns the number of stored values.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

func (c *Cache) interesting(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, cached := c.values[id]
	return cached || c.weights[id] > 0
}
