package geometry

// Cache keeps computed layouts until they are invalidated. Layouts are never
// recomputed just because they are read.
type Cache[K comparable] struct {
	entries    map[K]Layout
	recomputed int
}

func NewCache[K comparable]() *Cache[K] {
	return &Cache[K]{entries: make(map[K]Layout)}
}

// Layout returns the cached layout for key, computing it with the params
// supplied by fn on a miss.
func (c *Cache[K]) Layout(key K, fn func() Params, m TextMetrics, consts Constants) Layout {
	if l, ok := c.entries[key]; ok {
		return l
	}
	l := Compute(fn(), m, consts)
	c.entries[key] = l
	c.recomputed++
	return l
}

func (c *Cache[K]) Invalidate(key K) {
	delete(c.entries, key)
}

func (c *Cache[K]) InvalidateAll() {
	clear(c.entries)
}

// Recomputations counts cache misses since creation.
func (c *Cache[K]) Recomputations() int {
	return c.recomputed
}
