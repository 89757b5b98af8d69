package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/accountd/internal/keycache"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/rsakey"
)

func TestKeyIssuer_IssueAndFetchOnce(t *testing.T) {
	clock := newFakeClock()
	keys := newTestKeyIssuer(clock)
	ctx := context.Background()

	key, err := keys.Issue(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, key.Handle)
	require.Contains(t, key.PublicKey, "PUBLIC KEY")
	require.Equal(t, "oaep", key.Padding)
	require.Equal(t, clock.Now().Add(testKeyTTL).Unix(), key.ExpiresAt)

	priv, err := keys.FetchPrivateKey(ctx, key.Handle)
	require.NoError(t, err)
	pub, err := rsakey.ParsePublicKey([]byte(key.PublicKey))
	require.NoError(t, err)
	require.Equal(t, pub.N, priv.PublicKey.N)

	_, err = keys.FetchPrivateKey(ctx, key.Handle)
	require.ErrorIs(t, err, appErr.ErrKeyNotFound)
}

func TestKeyIssuer_HandlesAreIndependent(t *testing.T) {
	keys := newTestKeyIssuer(newFakeClock())
	ctx := context.Background()

	a, err := keys.Issue(ctx)
	require.NoError(t, err)
	b, err := keys.Issue(ctx)
	require.NoError(t, err)
	require.NotEqual(t, a.Handle, b.Handle)

	privB, err := keys.FetchPrivateKey(ctx, b.Handle)
	require.NoError(t, err)
	privA, err := keys.FetchPrivateKey(ctx, a.Handle)
	require.NoError(t, err)
	require.NotEqual(t, privA.N, privB.N)
}

func TestKeyIssuer_Expired(t *testing.T) {
	clock := newFakeClock()
	keys := newTestKeyIssuer(clock)
	ctx := context.Background()

	key, err := keys.Issue(ctx)
	require.NoError(t, err)
	clock.Advance(testKeyTTL + time.Second)
	_, err = keys.FetchPrivateKey(ctx, key.Handle)
	require.ErrorIs(t, err, appErr.ErrKeyExpired)
	_, err = keys.FetchPrivateKey(ctx, key.Handle)
	require.ErrorIs(t, err, appErr.ErrKeyNotFound)
}

func TestKeyIssuer_Failures(t *testing.T) {
	ctx := context.Background()

	_, err := newTestKeyIssuer(newFakeClock()).FetchPrivateKey(ctx, " ")
	require.ErrorIs(t, err, appErr.ErrInvalid)

	weak := NewKeyIssuer(keycache.NewLRU(4, time.Hour), 1024, testKeyTTL, rsakey.PaddingOAEP)
	_, err = weak.Issue(ctx)
	require.ErrorIs(t, err, appErr.ErrKeygenFailed)

	down := NewKeyIssuer(failingCache{}, rsakey.MinBits, testKeyTTL, rsakey.PaddingOAEP)
	_, err = down.Issue(ctx)
	require.ErrorIs(t, err, appErr.ErrDependency)
}
