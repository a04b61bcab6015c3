// Copyright 2025 Decentralized Rights Protocol
//
// Package server is a thin HTTP+JSON adapter over the core services:
// manual net/http handlers keyed by path (no router library), a shared
// writeJSONError helper, and a *log.Logger per handler group. Auth, rate-
// limiting, and TLS belong to an external transport layer.
package server

import (
	"log"
	"net/http"
	"time"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/ledger"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/oversight"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/quorum"
)

// Server wires the core services to HTTP handlers.
type Server struct {
	quorum    *quorum.Service
	ledger    *ledger.Service
	oversight *oversight.Service
	startedAt time.Time
	logger    *log.Logger
}

// New builds a Server.
func New(q *quorum.Service, l *ledger.Service, o *oversight.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[Server] ", log.LstdFlags)
	}
	return &Server{quorum: q, ledger: l, oversight: o, startedAt: time.Now().UTC(), logger: logger}
}

// Handler returns the configured mux for the service's endpoint surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/elders", s.handleListElders)
	mux.HandleFunc("/v1/agent/assess-activity", s.handleAssessActivity)
	mux.HandleFunc("/v1/elders/sign-block", s.handleSignBlock)
	mux.HandleFunc("/v1/elders/verify-quorum", s.handleVerifyQuorum)
	mux.HandleFunc("/api/ai/decide", s.handleDecide)
	mux.HandleFunc("/api/ai/decision/", s.handleGetDecision)
	mux.HandleFunc("/api/ai/dispute", s.handleCreateDispute)
	mux.HandleFunc("/api/ai/health", s.handleHealth)
	return mux
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
