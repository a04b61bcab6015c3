package quorum

import "crypto/ed25519"

// Signer abstracts how an Elder's private key material is reached. The
// Quorum Service depends only on this interface, so
// the Keystore can back it with a local on-disk key, an HSM, or a remote
// signer RPC without changing Quorum Service code.
type Signer interface {
	// Sign returns a raw Ed25519 signature over message for elderID.
	// Implementations must never return the underlying private key.
	Sign(elderID string, message []byte) ([]byte, error)
}

// LocalSigner is a Signer backed by keys already loaded into process
// memory (the common case when Keystore and Quorum Service are co-located
// in development; Elders are still addressed by distinct IDs even when
// their keys share a process).
type LocalSigner struct {
	keys map[string]ed25519.PrivateKey
}

// NewLocalSigner builds a LocalSigner over the given elderID -> private key
// map. The caller retains no other reference to these keys once handed off.
func NewLocalSigner(keys map[string]ed25519.PrivateKey) *LocalSigner {
	return &LocalSigner{keys: keys}
}

func (s *LocalSigner) Sign(elderID string, message []byte) ([]byte, error) {
	priv, ok := s.keys[elderID]
	if !ok {
		return nil, errUnknownSigner(elderID)
	}
	return ed25519.Sign(priv, message), nil
}

type unknownSignerError struct{ elderID string }

func (e unknownSignerError) Error() string {
	return "no signing key loaded for " + e.elderID
}

func errUnknownSigner(elderID string) error {
	return unknownSignerError{elderID: elderID}
}
