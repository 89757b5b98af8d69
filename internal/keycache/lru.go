package keycache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

type lruCache struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *model.TransportKeypair]
}

// NewLRU returns an in-process cache. Entries are evicted after ttl or when
// size is exceeded, whichever comes first.
func NewLRU(size int, ttl time.Duration) Cache {
	return &lruCache{
		cache: expirable.NewLRU[string, *model.TransportKeypair](size, nil, ttl),
	}
}

func (l *lruCache) Put(_ context.Context, kp *model.TransportKeypair) error {
	l.cache.Add(kp.Handle, cloneKeypair(kp))
	return nil
}

func (l *lruCache) Take(_ context.Context, handle string) (*model.TransportKeypair, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kp, ok := l.cache.Peek(handle)
	if !ok {
		return nil, appErr.ErrKeyNotFound
	}
	l.cache.Remove(handle)
	return kp, nil
}

func cloneKeypair(kp *model.TransportKeypair) *model.TransportKeypair {
	clone := *kp
	clone.PublicKey = append([]byte(nil), kp.PublicKey...)
	clone.PrivateKey = append([]byte(nil), kp.PrivateKey...)
	return &clone
}
