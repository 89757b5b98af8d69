package model

// TransportKeypair is the cached half of a short-lived RSA keypair used to
// shield a password in transit. It lives only in the key cache.
type TransportKeypair struct {
	Handle     string `json:"handle"`
	PublicKey  []byte `json:"public_key"`
	PrivateKey []byte `json:"private_key"`
	IssuedAt   int64  `json:"issued_at"`
	ExpiresAt  int64  `json:"expires_at"`
}

// TransportKey is what the client receives.
type TransportKey struct {
	Handle    string `json:"handle"`
	PublicKey string `json:"public_key"`
	Padding   string `json:"padding"`
	ExpiresAt int64  `json:"expires_at"`
}
