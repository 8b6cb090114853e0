package cache

import (
	"context"
	"time"
)

// Store is a string key-value cache with per-entry expiration.
// A miss is reported as ("", false, nil).
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}
