// Copyright 2025 Decentralized Rights Protocol
//
// Package keystore is durable storage of Elder signing material and
// deterministic key derivation for reproducible development clusters.
// The KeyManager shape (LoadOrGenerateKey / GenerateFromSeed / SaveKey)
// is rebuilt here over crypto/ed25519 since the protocol is a plain
// multi-signature, not BLS.
package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drperrors"
)

// ElderKey is the loaded keypair for one Elder.
type ElderKey struct {
	ElderID    string
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// Store is the Keystore: it owns exclusive write access to the key
// directory; multiple concurrent readers are safe since files are only
// ever replaced via temp-file-rename (readers never observe a torn file).
type Store struct {
	dir       string
	devSecret string
}

// New creates a Store rooted at dir. devSecret, when non-empty, enables
// deterministic derivation via DeriveSeed; leave it empty in production.
func New(dir, devSecret string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, drperrors.Wrap(drperrors.InfrastructureUnavailable, "create keystore dir", err)
	}
	return &Store{dir: dir, devSecret: devSecret}, nil
}

// elderID returns the canonical "elder-{i}" label (dash form), matching the
// id used everywhere Elders are addressed externally. The dash form was
// chosen over the underscore form to match external API identifiers.
func elderID(index int) string {
	return "elder-" + strconv.Itoa(index)
}

func (s *Store) privPath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("elder_%d.priv", index))
}

func (s *Store) pubPath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("elder_%d.pub", index))
}

// DeriveSeed computes SHA256(secret ":" namespace ":" decimal(index)).
// It fails with unsafe-derivation (surfaced here as
// PreconditionFailed) if no development secret is configured, since key
// derivation without a secret is not reproducible and must not silently
// fall back to it.
func (s *Store) DeriveSeed(namespace string, index int) ([32]byte, error) {
	if s.devSecret == "" {
		return [32]byte{}, drperrors.New(drperrors.PreconditionFailed, "unsafe-derivation: DEV_SEED is not configured")
	}
	material := s.devSecret + ":" + namespace + ":" + strconv.Itoa(index)
	return sha256.Sum256([]byte(material)), nil
}

// LoadOrCreateElder loads the keypair for index from disk if present;
// otherwise it generates a new Ed25519 keypair (deterministically from
// DeriveSeed when a development secret is configured, otherwise from
// crypto/rand) and persists it.
func (s *Store) LoadOrCreateElder(namespace string, index int) (ElderKey, error) {
	privPath := s.privPath(index)
	pubPath := s.pubPath(index)

	if fileExists(privPath) && fileExists(pubPath) {
		return s.loadElder(index)
	}
	return s.generateElder(namespace, index)
}

func (s *Store) loadElder(index int) (ElderKey, error) {
	privBytes, err := os.ReadFile(s.privPath(index))
	if err != nil {
		return ElderKey{}, drperrors.Wrap(drperrors.InfrastructureUnavailable, "key-load-error", err)
	}
	pubBytes, err := os.ReadFile(s.pubPath(index))
	if err != nil {
		return ElderKey{}, drperrors.Wrap(drperrors.InfrastructureUnavailable, "key-load-error", err)
	}
	if len(privBytes) != ed25519.PrivateKeySize || len(pubBytes) != ed25519.PublicKeySize {
		return ElderKey{}, drperrors.New(drperrors.InfrastructureUnavailable, "key-load-error: malformed key file")
	}
	return ElderKey{
		ElderID:    elderID(index),
		PublicKey:  ed25519.PublicKey(pubBytes),
		PrivateKey: ed25519.PrivateKey(privBytes),
	}, nil
}

func (s *Store) generateElder(namespace string, index int) (ElderKey, error) {
	var pub ed25519.PublicKey
	var priv ed25519.PrivateKey
	var err error

	if s.devSecret != "" {
		seed, derr := s.DeriveSeed(namespace, index)
		if derr != nil {
			return ElderKey{}, derr
		}
		priv = ed25519.NewKeyFromSeed(seed[:])
		pub = priv.Public().(ed25519.PublicKey)
	} else {
		pub, priv, err = ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return ElderKey{}, drperrors.Wrap(drperrors.InfrastructureUnavailable, "key generation failed", err)
		}
	}

	key := ElderKey{ElderID: elderID(index), PublicKey: pub, PrivateKey: priv}
	if err := s.persist(index, key); err != nil {
		return ElderKey{}, err
	}
	return key, nil
}

// Rotate atomically replaces the stored keypair for index with newKey.
// Writes are atomic via temp-file-rename: a write failure leaves the
// keystore state unchanged (if the public key write fails after the private
// key was replaced, the previous private key is written back).
func (s *Store) Rotate(index int, newKey ElderKey) error {
	oldPriv, readErr := os.ReadFile(s.privPath(index))
	if err := s.persist(index, newKey); err != nil {
		if readErr == nil {
			_ = atomicWrite(s.privPath(index), oldPriv, 0o600)
		}
		return err
	}
	return nil
}

// persist performs the write-then-fsync-then-rename discipline that key
// material requires; a plain os.WriteFile is not atomic under a crash
// mid-write.
func (s *Store) persist(index int, key ElderKey) error {
	if err := atomicWrite(s.privPath(index), key.PrivateKey, 0o600); err != nil {
		return drperrors.Wrap(drperrors.InfrastructureUnavailable, "rotate failed writing private key", err)
	}
	if err := atomicWrite(s.pubPath(index), key.PublicKey, 0o600); err != nil {
		return drperrors.Wrap(drperrors.InfrastructureUnavailable, "rotate failed writing public key", err)
	}
	return nil
}

func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
