// Package storage tracks consumed refresh token ids so a refresh token
// can be redeemed at most once.
package storage

import (
	"context"
	"time"
)

// TokenStore records refresh token ids that have been consumed. Entries
// only need to live as long as the refresh window; after that the token
// itself is expired.
type TokenStore interface {
	// MarkUsed records the token id. Returns an error only on storage
	// failure; marking an already-marked id is a no-op.
	MarkUsed(ctx context.Context, jti string, ttl time.Duration) error

	// IsUsed reports whether the token id has been consumed.
	IsUsed(ctx context.Context, jti string) (bool, error)

	// Close releases underlying resources.
	Close() error
}
