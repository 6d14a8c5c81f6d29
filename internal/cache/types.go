package cache

import "errors"

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")
)

// Stats holds cache counters.
type Stats struct {
	Capacity  int64   // Maximum total cost
	Size      int64   // Current total cost
	ItemCount int64   // Number of items in cache
	Hits      int64   // Number of cache hits
	Misses    int64   // Number of cache misses
	Evictions int64   // Number of evictions
	HitRate   float64 // hits / (hits + misses)
}

// Sizer returns the cost of a value. Costs are summed and compared with the
// cache capacity.
type Sizer[V any] func(V) int64

// CountSizer gives every value a cost of one, turning the capacity into an
// item count.
func CountSizer[V any](V) int64 { return 1 }
