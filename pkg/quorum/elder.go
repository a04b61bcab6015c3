// Copyright 2025 Decentralized Rights Protocol
//
// Package quorum is the Elder Quorum Service. It uses the Keystore
// and canonical package to produce and verify m-of-n signature sets over
// block headers, and manages committee membership (rotation, revocation).
// Each SingleSignature is a bare ed25519.Sign over the canonical header
// bytes — a plain integer threshold, not a weighted or BLS-aggregated one.
package quorum

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Status is an Elder's membership state. Elders are never destroyed; their
// status flips instead.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusRotating Status = "rotating"
	StatusSlashed  Status = "slashed"
)

// Elder is the committee member record owned by the Quorum Service.
// Private key material never lives here; it lives only in the Keystore.
type Elder struct {
	ElderID        string
	PublicKey      ed25519.PublicKey
	Status         Status
	Reputation     float64
	LastActivityTS time.Time
	Specialization string
}

// Fingerprint is the first 16 hex chars of SHA256(public_key).
func (e Elder) Fingerprint() string {
	sum := sha256.Sum256(e.PublicKey)
	return hex.EncodeToString(sum[:])[:16]
}

// SingleSignature is one Elder's signature over a canonical header.
type SingleSignature struct {
	ElderID         string
	SignerPublicKey ed25519.PublicKey
	SignatureBytes  []byte
	SignedAtTS      time.Time
}

// QuorumEnvelope carries the signatures collected for one sign_block call.
type QuorumEnvelope struct {
	Signatures []SingleSignature
	M          uint
	N          uint
}

// VerifyResult is verify_quorum's structured response.
type VerifyResult struct {
	Valid          bool
	ValidSigners   []string
	RequiredM      uint
	TotalDistinct  int
}
