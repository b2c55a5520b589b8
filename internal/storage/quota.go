package storage

import (
	"context"
	"fmt"
)

// DefaultQuota matches the typical per-origin local storage capacity.
const DefaultQuota = 5 << 20

type quota struct {
	Storage
	max int
}

// WithQuota rejects writes whose value is larger than maxBytes with [ErrQuotaExceeded].
// The previous value is left in place.
func WithQuota(backend Storage, maxBytes int) Storage {
	return &quota{Storage: backend, max: maxBytes}
}

func (q *quota) Set(ctx context.Context, key string, value []byte) error {
	if len(value) > q.max {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrQuotaExceeded, len(value), q.max)
	}
	return q.Storage.Set(ctx, key, value)
}
