package keycache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

type redisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis returns a cache shared by every instance talking to the same
// redis. Take relies on GETDEL, so two instances racing on one handle
// cannot both get the key.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) Cache {
	if prefix == "" {
		prefix = "tk"
	}
	return &redisCache{client: client, prefix: prefix, ttl: ttl}
}

func (r *redisCache) key(handle string) string {
	return r.prefix + ":" + handle
}

func (r *redisCache) Put(ctx context.Context, kp *model.TransportKeypair) error {
	data, err := json.Marshal(kp)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(kp.Handle), data, r.ttl).Err(); err != nil {
		return appErr.Dependency(err)
	}
	return nil
}

func (r *redisCache) Take(ctx context.Context, handle string) (*model.TransportKeypair, error) {
	data, err := r.client.GetDel(ctx, r.key(handle)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErr.ErrKeyNotFound
		}
		return nil, appErr.Dependency(err)
	}
	var kp model.TransportKeypair
	if err := json.Unmarshal(data, &kp); err != nil {
		return nil, appErr.ErrKeyNotFound
	}
	return &kp, nil
}
