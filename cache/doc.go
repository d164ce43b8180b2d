// Package cache provides the generic keyed cache that backs per-outport
// resize caches.
//
// # Cache[K, V]
//
// A thread-safe LRU cache. A limit of 0 means unlimited: entries only leave
// the cache through DeleteFunc or Clear. A positive limit evicts the
// least recently used entries once it is exceeded.
//
//	c := cache.New[imgport.Size, *imgport.Image](0)
//	c.Set(size, img)
//	img, ok := c.Get(size)
//
// Hit and miss counters are kept atomically so Stats can be read while other
// goroutines use the cache.
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
