// Package keycache holds the private halves of transport keypairs between
// issuance and the single request that consumes them.
package keycache

import (
	"context"

	"github.com/xxxsen/accountd/internal/model"
)

// Cache stores keypairs by handle. Take removes the entry in the same step
// that reads it, so a handle can be consumed at most once. A missing or
// evicted entry yields errors.ErrKeyNotFound.
type Cache interface {
	Put(ctx context.Context, kp *model.TransportKeypair) error
	Take(ctx context.Context, handle string) (*model.TransportKeypair, error)
}
