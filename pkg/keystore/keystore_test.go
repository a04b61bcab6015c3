package keystore

import (
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drperrors"
)

func TestLoadOrCreateElderGeneratesAndPersists(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	key, err := s.LoadOrCreateElder("drp", 0)
	if err != nil {
		t.Fatalf("LoadOrCreateElder() error = %v", err)
	}
	if key.ElderID != "elder-0" {
		t.Errorf("ElderID = %q, want elder-0", key.ElderID)
	}

	again, err := s.LoadOrCreateElder("drp", 0)
	if err != nil {
		t.Fatalf("second LoadOrCreateElder() error = %v", err)
	}
	if !key.PublicKey.Equal(again.PublicKey) {
		t.Errorf("second load returned a different public key, expected persisted reuse")
	}
}

func TestDeriveSeedDeterministic(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "demo")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	k1, err := s.LoadOrCreateElder("drp", 3)
	if err != nil {
		t.Fatalf("LoadOrCreateElder() error = %v", err)
	}

	dir2 := t.TempDir()
	s2, err := New(dir2, "demo")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	k2, err := s2.LoadOrCreateElder("drp", 3)
	if err != nil {
		t.Fatalf("LoadOrCreateElder() error = %v", err)
	}

	if !k1.PublicKey.Equal(k2.PublicKey) {
		t.Fatalf("same DEV_SEED + namespace + index must derive identical keys across stores")
	}
}

func TestDeriveSeedWithoutSecretFails(t *testing.T) {
	s, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = s.DeriveSeed("drp", 0)
	if err == nil {
		t.Fatal("expected unsafe-derivation error without a configured DEV_SEED")
	}
	if drperrors.KindOf(err) != drperrors.PreconditionFailed {
		t.Errorf("error kind = %v, want PreconditionFailed", drperrors.KindOf(err))
	}
}

func TestRotateReplacesKeyAtomically(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	original, err := s.LoadOrCreateElder("drp", 1)
	if err != nil {
		t.Fatalf("LoadOrCreateElder() error = %v", err)
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	fresh := ElderKey{ElderID: "elder-1", PublicKey: pub, PrivateKey: priv}
	if err := s.Rotate(1, fresh); err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}

	reloaded, err := s.loadElder(1)
	if err != nil {
		t.Fatalf("loadElder() error = %v", err)
	}
	if reloaded.PublicKey.Equal(original.PublicKey) {
		t.Fatalf("rotate did not change the stored public key")
	}
	if !reloaded.PublicKey.Equal(fresh.PublicKey) {
		t.Fatalf("rotate stored an unexpected public key")
	}
}

func TestValidatePublicKeyRejectsZero(t *testing.T) {
	zero := make(ed25519.PublicKey, ed25519.PublicKeySize)
	if err := ValidatePublicKey(zero); err == nil {
		t.Fatal("expected error for all-zero public key")
	}
}

func TestKeyFilesUseExpectedDirectory(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.LoadOrCreateElder("drp", 2); err != nil {
		t.Fatalf("LoadOrCreateElder() error = %v", err)
	}
	if !fileExists(filepath.Join(dir, "elder_2.priv")) {
		t.Error("expected elder_2.priv to exist")
	}
	if !fileExists(filepath.Join(dir, "elder_2.pub")) {
		t.Error("expected elder_2.pub to exist")
	}
}
