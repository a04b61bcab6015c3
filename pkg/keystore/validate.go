package keystore

import (
	"bytes"
	"crypto/ed25519"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drperrors"
)

// ValidatePublicKey fail-closed validates an Ed25519 public key before it is
// trusted for verification. Mirrors the reject-wrong-size,
// reject-identity-element idiom of BLS subgroup checks
// (ValidateBLSPublicKeySubgroup) adapted to Ed25519, which has no
// subgroup-cofactor concern but does have a well-known degenerate
// all-zero encoding that must never verify.
func ValidatePublicKey(pub ed25519.PublicKey) error {
	if len(pub) != ed25519.PublicKeySize {
		return drperrors.New(drperrors.InvalidInput, "public key has wrong size")
	}
	if bytes.Equal(pub, make([]byte, ed25519.PublicKeySize)) {
		return drperrors.New(drperrors.InvalidInput, "public key is the degenerate all-zero encoding")
	}
	return nil
}
