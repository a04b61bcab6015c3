// Copyright 2025 Decentralized Rights Protocol
//
// keystore-init provisions Elder signing keys ahead of starting drpd, and
// supports rotating a single Elder's key; it has no revoke option. It never
// prints private key material; it reports only the elder_id, public key
// fingerprint, and (when provisioning) the keystore directory.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/keystore"
)

func main() {
	var (
		dir       = flag.String("dir", ".keystore", "keystore directory")
		devSeed   = flag.String("dev-seed", os.Getenv("DEV_SEED"), "development seed for deterministic derivation (unsafe for production)")
		n         = flag.Int("n", 1, "number of Elder keys to provision")
		rotate    = flag.Int("rotate", -1, "elder index to rotate instead of provisioning fresh keys (-1 disables)")
		namespace = flag.String("namespace", "elder-committee", "derivation namespace")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[keystore-init] ", log.LstdFlags)

	ks, err := keystore.New(*dir, *devSeed)
	if err != nil {
		logger.Fatalf("keystore init failed: %v", err)
	}

	if *rotate >= 0 {
		rotateOne(logger, ks, *rotate)
		return
	}

	for i := 0; i < *n; i++ {
		key, err := ks.LoadOrCreateElder(*namespace, i)
		if err != nil {
			logger.Fatalf("elder %d provisioning failed: %v", i, err)
		}
		fmt.Printf("elder_id=%s fingerprint=%s dir=%s\n", key.ElderID, fingerprint(key.PublicKey), *dir)
	}
}

func rotateOne(logger *log.Logger, ks *keystore.Store, index int) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		logger.Fatalf("key generation failed: %v", err)
	}
	key := keystore.ElderKey{ElderID: fmt.Sprintf("elder-%d", index), PublicKey: pub, PrivateKey: priv}
	if err := ks.Rotate(index, key); err != nil {
		logger.Fatalf("rotate failed: %v", err)
	}
	fmt.Printf("rotated elder_id=%s fingerprint=%s\n", key.ElderID, fingerprint(key.PublicKey))
}

func fingerprint(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:])[:16]
}
