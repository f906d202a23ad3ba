package cache

// Cache is a generic keyed memo without eviction.
//
// The zero value is not usable; create caches with New.
type Cache[K comparable, V any] struct {
	entries map[K]V
	order   []K // insertion order, for deterministic Range and Drain
	hits    uint64
	misses  uint64
}

// New creates an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]V),
	}
}

// Get retrieves a value from the cache.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Set stores a value, replacing any previous value for key.
func (c *Cache[K, V]) Set(key K, value V) {
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = value
}

// GetOrCreate returns the cached value or creates and stores it.
// If create fails nothing is stored and the error is returned.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	if v, ok := c.entries[key]; ok {
		c.hits++
		return v, nil
	}
	c.misses++

	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.entries[key] = v
	c.order = append(c.order, key)
	return v, nil
}

// Delete removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *Cache[K, V]) Delete(key K) bool {
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Range calls fn for every entry in insertion order until fn returns false.
// fn must not modify the cache.
func (c *Cache[K, V]) Range(fn func(key K, value V) bool) {
	for _, k := range c.order {
		if !fn(k, c.entries[k]) {
			return
		}
	}
}

// Drain empties the cache and returns the removed values in insertion order.
func (c *Cache[K, V]) Drain() []V {
	if len(c.order) == 0 {
		return nil
	}
	values := make([]V, 0, len(c.order))
	for _, k := range c.order {
		values = append(values, c.entries[k])
	}
	c.entries = make(map[K]V)
	c.order = nil
	return values
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	s := Stats{
		Len:    len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Hits is the number of lookups that found an entry.
	Hits uint64
	// Misses is the number of lookups that did not.
	Misses uint64
	// HitRate is the cache hit rate 0.0 to 1.0.
	HitRate float64
}
