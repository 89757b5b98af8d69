// Package rsakey generates and encodes the RSA keypairs used to shield
// passwords between client and server, and performs the matching
// encryption and decryption.
package rsakey

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultBits = 4096
	MinBits     = 2048
)

// Padding selects the RSA encryption scheme. It has to match what the
// client uses when sealing the password.
type Padding string

const (
	PaddingOAEP     Padding = "oaep"
	PaddingPKCS1v15 Padding = "pkcs1v15"
)

var (
	errInvalidPEM     = errors.New("invalid pem block")
	errNotRSA         = errors.New("not an rsa public key")
	errEmptyPlaintext = errors.New("empty plaintext")
)

func ParsePadding(s string) (Padding, error) {
	switch Padding(strings.ToLower(strings.TrimSpace(s))) {
	case "", PaddingOAEP:
		return PaddingOAEP, nil
	case PaddingPKCS1v15:
		return PaddingPKCS1v15, nil
	default:
		return "", fmt.Errorf("unsupported padding %q", s)
	}
}

// Generate creates a keypair and returns its PEM encodings.
func Generate(bits int) (publicPEM, privatePEM []byte, err error) {
	if bits < MinBits {
		return nil, nil, fmt.Errorf("rsa key size %d below minimum %d", bits, MinBits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return publicPEM, privatePEM, nil
}

func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errInvalidPEM
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errInvalidPEM
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errNotRSA
	}
	return key, nil
}

// Encrypt seals plaintext for pub and returns it base64 encoded. This is
// what a client does before sending a password.
func Encrypt(pub *rsa.PublicKey, padding Padding, plaintext []byte) (string, error) {
	var (
		out []byte
		err error
	)
	switch padding {
	case PaddingPKCS1v15:
		out, err = rsa.EncryptPKCS1v15(rand.Reader, pub, plaintext)
	default:
		out, err = rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	}
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Errors carry no ciphertext or key material.
func Decrypt(priv *rsa.PrivateKey, padding Padding, ciphertext string) ([]byte, error) {
	raw, err := decodeBase64(ciphertext)
	if err != nil {
		return nil, err
	}
	var out []byte
	switch padding {
	case PaddingPKCS1v15:
		out, err = rsa.DecryptPKCS1v15(nil, priv, raw)
	default:
		out, err = rsa.DecryptOAEP(sha256.New(), nil, priv, raw, nil)
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errEmptyPlaintext
	}
	return out, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
