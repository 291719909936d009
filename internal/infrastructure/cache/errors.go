package cache

import (
	"fmt"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
)

// ErrCacheKeyNotFound is returned when a key is absent from the cache
type ErrCacheKeyNotFound struct {
	Key string
}

func (e ErrCacheKeyNotFound) Error() string {
	return fmt.Sprintf("cache key not found: %s", e.Key)
}

// ErrStaleSnapshot is returned when a publish would replace a newer snapshot
type ErrStaleSnapshot struct {
	Published int64
	Current   int64
}

func (e ErrStaleSnapshot) Error() string {
	return fmt.Sprintf("snapshot version %d is older than cached version %d", e.Published, e.Current)
}

// Unwrap lets callers match dnc.ErrStaleSnapshot without importing the cache
func (e ErrStaleSnapshot) Unwrap() error {
	return dnc.ErrStaleSnapshot
}
