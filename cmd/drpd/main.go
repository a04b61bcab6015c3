// Copyright 2025 Decentralized Rights Protocol
//
// drpd is the core service binary: it loads configuration, provisions or
// loads Elder keys from the Keystore, wires the Quorum Service, Decision
// Ledger, and Oversight state machine, and serves the HTTP+JSON surface.
// Flag parsing, graceful shutdown, and health-status idioms follow the
// same pattern as the rest of this codebase's daemons.
package main

import (
	"context"
	"crypto/ed25519"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/config"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/database"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/keystore"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/ledger"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/oversight"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/quorum"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/server"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	overlayPath := flag.String("config", "", "optional YAML config overlay (env vars take precedence)")
	flag.Parse()

	logger := log.New(os.Stdout, "[drpd] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config load failed: %v", err)
	}
	if *overlayPath != "" {
		if err := cfg.ApplyOverlayFile(*overlayPath); err != nil {
			logger.Fatalf("config overlay failed: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config invalid: %v", err)
	}

	ks, err := keystore.New(cfg.KeystoreDir, cfg.DevSeed)
	if err != nil {
		logger.Fatalf("keystore init failed: %v", err)
	}
	operatorKS, err := keystore.New(cfg.KeystoreDir+"/operator", cfg.DevSeed)
	if err != nil {
		logger.Fatalf("operator keystore init failed: %v", err)
	}

	elders := make([]*quorum.Elder, 0, cfg.ElderCount)
	signerKeys := make(map[string]ed25519.PrivateKey, cfg.ElderCount)
	for i := 0; i < int(cfg.ElderCount); i++ {
		ek, err := ks.LoadOrCreateElder("elder-committee", i)
		if err != nil {
			logger.Fatalf("elder %d provisioning failed: %v", i, err)
		}
		elders = append(elders, &quorum.Elder{
			ElderID:        ek.ElderID,
			PublicKey:      ek.PublicKey,
			Status:         quorum.StatusActive,
			Reputation:     1.0,
			LastActivityTS: time.Now().UTC(),
		})
		signerKeys[ek.ElderID] = ek.PrivateKey
	}
	signer := quorum.NewLocalSigner(signerKeys)

	quorumSvc, err := quorum.NewService(elders, signer, cfg.QuorumM, cfg.ElderCount)
	if err != nil {
		logger.Fatalf("quorum service init failed: %v", err)
	}

	operatorKey, err := operatorKS.LoadOrCreateElder("operator-key", 0)
	if err != nil {
		logger.Fatalf("operator key provisioning failed: %v", err)
	}

	dbCfg := config.LoadDatabaseConfig(cfg)
	dbClient, err := database.NewClient(dbCfg)
	if err != nil {
		logger.Fatalf("database init failed: %v", err)
	}
	defer dbClient.Close()

	ctx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := dbClient.MigrateUp(ctx); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}
	cancelMigrate()

	ledgerRepo := ledger.NewRepository(dbClient)
	ledgerSvc := ledger.NewService(ledgerRepo, operatorKey.PrivateKey, ledger.NullArtifactStore{})

	disputeRepo := oversight.NewRepository(dbClient)
	oversightSvc := oversight.NewService(disputeRepo)

	srv := server.New(quorumSvc, ledgerSvc, oversightSvc, logger)

	httpServer := &http.Server{Addr: *addr, Handler: srv.Handler()}

	go func() {
		logger.Printf("listening on %s (n=%d m=%d)", *addr, cfg.ElderCount, cfg.QuorumM)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}
