package service

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/keycache"
	"github.com/xxxsen/accountd/internal/metrics"
	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/rsakey"
)

// KeyExpiryGrace is how long a cache keeps a slot past its expiry so that a
// late fetch reports ErrKeyExpired rather than ErrKeyNotFound.
const KeyExpiryGrace = time.Minute

// KeyIssuer hands out one RSA keypair per login or registration attempt.
// Each keypair is addressed by its own handle; the private half can be
// fetched once.
type KeyIssuer struct {
	cache   keycache.Cache
	bits    int
	ttl     time.Duration
	padding rsakey.Padding
	now     func() time.Time
}

func NewKeyIssuer(cache keycache.Cache, bits int, ttl time.Duration, padding rsakey.Padding) *KeyIssuer {
	if bits == 0 {
		bits = rsakey.DefaultBits
	}
	return &KeyIssuer{cache: cache, bits: bits, ttl: ttl, padding: padding, now: time.Now}
}

func (k *KeyIssuer) Padding() rsakey.Padding {
	return k.padding
}

func (k *KeyIssuer) Issue(ctx context.Context) (*model.TransportKey, error) {
	pub, priv, err := rsakey.Generate(k.bits)
	if err != nil {
		logutil.GetLogger(ctx).Error("generate transport key failed", zap.Int("bits", k.bits), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrKeygenFailed, err)
	}
	now := k.now()
	kp := &model.TransportKeypair{
		Handle:     uuid.NewString(),
		PublicKey:  pub,
		PrivateKey: priv,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(k.ttl).Unix(),
	}
	if err := k.cache.Put(context.WithoutCancel(ctx), kp); err != nil {
		return nil, appErr.Dependency(err)
	}
	metrics.TransportKeysIssuedTotal.Inc()
	return &model.TransportKey{
		Handle:    kp.Handle,
		PublicKey: string(pub),
		Padding:   string(k.padding),
		ExpiresAt: kp.ExpiresAt,
	}, nil
}

// FetchPrivateKey consumes the slot behind handle. A second fetch of the
// same handle fails with ErrKeyNotFound.
func (k *KeyIssuer) FetchPrivateKey(ctx context.Context, handle string) (*rsa.PrivateKey, error) {
	key, err := k.fetch(ctx, handle)
	metrics.TransportKeyFetchTotal.WithLabelValues(metrics.Result(err)).Inc()
	return key, err
}

func (k *KeyIssuer) fetch(ctx context.Context, handle string) (*rsa.PrivateKey, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, appErr.ErrInvalid
	}
	kp, err := k.cache.Take(context.WithoutCancel(ctx), handle)
	if err != nil {
		return nil, err
	}
	if k.now().Unix() > kp.ExpiresAt {
		return nil, appErr.ErrKeyExpired
	}
	key, err := rsakey.ParsePrivateKey(kp.PrivateKey)
	if err != nil {
		logutil.GetLogger(ctx).Error("cached transport key unreadable", zap.String("handle", handle))
		return nil, appErr.ErrKeyNotFound
	}
	return key, nil
}
