package service

import (
	"context"
	"crypto/rsa"
	"strings"

	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/rsakey"
)

// CredentialUnsealer recovers passwords the client sealed with a transport
// public key.
type CredentialUnsealer struct {
	keys    *KeyIssuer
	padding rsakey.Padding
}

func NewCredentialUnsealer(keys *KeyIssuer) *CredentialUnsealer {
	return &CredentialUnsealer{keys: keys, padding: keys.Padding()}
}

// Unseal decrypts a base64 ciphertext. Every failure is reported as
// ErrDecryptionFailed without detail.
func (u *CredentialUnsealer) Unseal(ciphertext string, key *rsa.PrivateKey) (string, error) {
	if key == nil || strings.TrimSpace(ciphertext) == "" {
		return "", appErr.ErrDecryptionFailed
	}
	plain, err := rsakey.Decrypt(key, u.padding, ciphertext)
	if err != nil {
		return "", appErr.ErrDecryptionFailed
	}
	return string(plain), nil
}

// UnsealWithHandle consumes the keypair behind handle and decrypts with it.
func (u *CredentialUnsealer) UnsealWithHandle(ctx context.Context, handle, ciphertext string) (string, error) {
	key, err := u.keys.FetchPrivateKey(ctx, handle)
	if err != nil {
		return "", err
	}
	return u.Unseal(ciphertext, key)
}
