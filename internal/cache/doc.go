// Package cache provides the keyed memo used for per-buffer view caches and
// sampler deduplication.
//
// Entries are never evicted: a cached value lives until it is deleted or the
// cache is drained, which is what resource ownership requires (the owner
// disposes every cached value exactly once).
//
//	views := cache.New[ViewKey, *View]()
//	v, err := views.GetOrCreate(key, func() (*View, error) { return newView(key) })
//
// Cache is not safe for concurrent use. It belongs to a single graphics
// context, which is itself single-threaded.
package cache
