package rsakey

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	pubPEM, privPEM, err := Generate(MinBits)
	require.NoError(t, err)
	pub, err := ParsePublicKey(pubPEM)
	require.NoError(t, err)
	priv, err := ParsePrivateKey(privPEM)
	require.NoError(t, err)

	for _, padding := range []Padding{PaddingOAEP, PaddingPKCS1v15} {
		sealed, err := Encrypt(pub, padding, []byte("correct horse battery staple"))
		require.NoError(t, err)
		plain, err := Decrypt(priv, padding, sealed)
		require.NoError(t, err)
		require.Equal(t, "correct horse battery staple", string(plain))
	}
}

func TestDecrypt_RawURLFallback(t *testing.T) {
	pubPEM, privPEM, err := Generate(MinBits)
	require.NoError(t, err)
	pub, _ := ParsePublicKey(pubPEM)
	priv, _ := ParsePrivateKey(privPEM)

	sealed, err := Encrypt(pub, PaddingOAEP, []byte("secret"))
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	plain, err := Decrypt(priv, PaddingOAEP, base64.RawURLEncoding.EncodeToString(raw))
	require.NoError(t, err)
	require.Equal(t, "secret", string(plain))
}

func TestDecrypt_Failures(t *testing.T) {
	pubPEM, privPEM, err := Generate(MinBits)
	require.NoError(t, err)
	_, otherPriv, err := Generate(MinBits)
	require.NoError(t, err)
	pub, _ := ParsePublicKey(pubPEM)
	priv, _ := ParsePrivateKey(privPEM)
	other, _ := ParsePrivateKey(otherPriv)

	sealed, err := Encrypt(pub, PaddingOAEP, []byte("secret"))
	require.NoError(t, err)

	_, err = Decrypt(other, PaddingOAEP, sealed)
	require.Error(t, err)
	_, err = Decrypt(priv, PaddingOAEP, "%%%not base64%%%")
	require.Error(t, err)
}

func TestGenerate_RejectsSmallKeys(t *testing.T) {
	_, _, err := Generate(1024)
	require.Error(t, err)
}

func TestParsePadding(t *testing.T) {
	p, err := ParsePadding("")
	require.NoError(t, err)
	require.Equal(t, PaddingOAEP, p)
	p, err = ParsePadding("PKCS1v15")
	require.NoError(t, err)
	require.Equal(t, PaddingPKCS1v15, p)
	_, err = ParsePadding("none")
	require.Error(t, err)
}

func TestParse_InvalidPEM(t *testing.T) {
	_, err := ParsePrivateKey([]byte("nope"))
	require.Error(t, err)
	_, err = ParsePublicKey([]byte("nope"))
	require.Error(t, err)
}
