package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/xxxsen/accountd/internal/keycache"
	"github.com/xxxsen/accountd/internal/model"
	"github.com/xxxsen/accountd/internal/pkg/password"
	"github.com/xxxsen/accountd/internal/pkg/rsakey"
)

func TestMain(m *testing.M) {
	password.Cost = bcrypt.MinCost
	os.Exit(m.Run())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentOtp struct {
	email   string
	code    string
	purpose model.OtpPurpose
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentOtp
	err  error
}

func (n *recordingNotifier) SendOtp(_ context.Context, email, code string, purpose model.OtpPurpose) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentOtp{email: email, code: code, purpose: purpose})
	return nil
}

func (n *recordingNotifier) last() sentOtp {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

type failingCache struct{}

func (failingCache) Put(context.Context, *model.TransportKeypair) error {
	return errors.New("cache down")
}

func (failingCache) Take(context.Context, string) (*model.TransportKeypair, error) {
	return nil, errors.New("cache down")
}

const testKeyTTL = 10 * time.Minute

func newTestKeyIssuer(clock *fakeClock) *KeyIssuer {
	k := NewKeyIssuer(keycache.NewLRU(16, time.Hour), rsakey.MinBits, testKeyTTL, rsakey.PaddingOAEP)
	k.now = clock.Now
	return k
}

func seal(t *testing.T, key *model.TransportKey, plain string) string {
	t.Helper()
	pub, err := rsakey.ParsePublicKey([]byte(key.PublicKey))
	if err != nil {
		t.Fatalf("parse public key: %v", err)
	}
	out, err := rsakey.Encrypt(pub, rsakey.Padding(key.Padding), []byte(plain))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	return out
}
