// Package cache provides a size-bounded in-memory LRU cache.
package cache
