package snippet

import (
	"sync"
)

// Cache maps specialization keys to built templates. Lookups race benignly:
// two goroutines missing on the same key both build, the first publish wins,
// and the loser's template is discarded. Published templates are immutable,
// so every winner is observationally equivalent to the loser.
type Cache struct {
	builder   *Builder
	templates sync.Map // canonical key string -> *Template
}

// NewCache wraps a builder with a concurrent template cache.
func NewCache(b *Builder) *Cache {
	return &Cache{builder: b}
}

// GetOrBuild returns the cached template for the key, specializing on miss.
// Construction faults are returned without publishing anything.
func (c *Cache) GetOrBuild(key *Key) (*Template, error) {
	ck := key.String()
	if t, ok := c.templates.Load(ck); ok {
		return t.(*Template), nil
	}
	t, err := c.builder.Specialize(key)
	if err != nil {
		return nil, err
	}
	actual, _ := c.templates.LoadOrStore(ck, t)
	return actual.(*Template), nil
}

// Publish inserts a prebuilt template, e.g. one restored from a disk cache.
// An already-published template for the same key wins.
func (c *Cache) Publish(t *Template) *Template {
	actual, _ := c.templates.LoadOrStore(t.Name, t)
	return actual.(*Template)
}

// Len counts the published templates.
func (c *Cache) Len() int {
	n := 0
	c.templates.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Keys returns the canonical keys of all published templates.
func (c *Cache) Keys() []string {
	var keys []string
	c.templates.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	return keys
}
