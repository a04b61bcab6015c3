package quorum

import (
	"crypto/ed25519"
	"time"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drperrors"
)

// KeyRotator is the subset of Keystore behavior rotation needs: generating
// a fresh keypair for an already-known elder index.
type KeyRotator interface {
	GenerateFresh() (ed25519.PublicKey, ed25519.PrivateKey, error)
}

// RotateElder generates a fresh keypair via rotator, transitions the Elder
// to "rotating", runs a verification probe (sign and self-verify a test
// message), and flips back to "active" on success or "inactive" on
// failure.
func (s *Service) RotateElder(elderID string, rotator KeyRotator, installSigner func(elderID string, priv ed25519.PrivateKey)) error {
	s.mu.Lock()
	elder, ok := s.elders[elderID]
	if !ok {
		s.mu.Unlock()
		return drperrors.New(drperrors.NotFound, "unknown-elder: "+elderID)
	}
	elder.Status = StatusRotating
	s.mu.Unlock()

	pub, priv, err := rotator.GenerateFresh()
	if err != nil {
		s.mu.Lock()
		elder.Status = StatusInactive
		s.mu.Unlock()
		return drperrors.Wrap(drperrors.InfrastructureUnavailable, "rotation key generation failed", err)
	}

	installSigner(elderID, priv)

	probe := []byte("drp-rotation-probe:" + elderID)
	sig := ed25519.Sign(priv, probe)
	if !ed25519.Verify(pub, probe, sig) {
		s.mu.Lock()
		elder.Status = StatusInactive
		s.mu.Unlock()
		return drperrors.New(drperrors.InfrastructureUnavailable, "rotation verification probe failed")
	}

	s.mu.Lock()
	elder.PublicKey = pub
	elder.Status = StatusActive
	elder.LastActivityTS = time.Now().UTC()
	s.mu.Unlock()
	return nil
}

// RevokeElder transitions elderID to "slashed", terminal for this process
// lifetime. The revoked Elder is excluded from future selections; any of
// its signatures in later envelopes is treated as invalid (VerifyQuorum
// enforces this). Revocation never alters historical decision records.
func (s *Service) RevokeElder(elderID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	elder, ok := s.elders[elderID]
	if !ok {
		return drperrors.New(drperrors.NotFound, "unknown-elder: "+elderID)
	}
	elder.Status = StatusSlashed
	s.log.Warn("elder %s revoked: %s", elderID, reason)
	return nil
}
