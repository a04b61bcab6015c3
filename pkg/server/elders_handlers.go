package server

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/canonical"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/quorum"
)

type elderWire struct {
	ElderID        string  `json:"elder_id"`
	PublicKeyB64   string  `json:"public_key_b64"`
	Fingerprint    string  `json:"fingerprint"`
	Status         string  `json:"status"`
	Reputation     float64 `json:"reputation"`
	LastActivityTS string  `json:"last_activity_ts,omitempty"`
	Specialization string  `json:"specialization,omitempty"`
}

type listEldersResponse struct {
	N      uint        `json:"n"`
	M      uint        `json:"m"`
	Elders []elderWire `json:"elders"`
}

// handleListElders serves GET /v1/elders.
func (s *Server) handleListElders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result := s.quorum.ListElders()
	resp := listEldersResponse{N: result.N, M: result.M}
	for _, e := range result.Elders {
		wire := elderWire{
			ElderID:        e.ElderID,
			PublicKeyB64:   base64.StdEncoding.EncodeToString(e.PublicKey),
			Fingerprint:    e.Fingerprint,
			Status:         string(e.Status),
			Reputation:     e.Reputation,
			Specialization: e.Specialization,
		}
		if !e.LastActivityTS.IsZero() {
			wire.LastActivityTS = e.LastActivityTS.Format("2006-01-02T15:04:05Z07:00")
		}
		resp.Elders = append(resp.Elders, wire)
	}
	writeJSON(w, http.StatusOK, resp)
}

type blockHeaderWire struct {
	Index        uint64 `json:"index"`
	Timestamp    uint64 `json:"timestamp"`
	Nonce        uint64 `json:"nonce"`
	Difficulty   uint64 `json:"difficulty"`
	PreviousHash string `json:"previous_hash"`
	MerkleRoot   string `json:"merkle_root"`
	DataHash     string `json:"data_hash"`
	MinerID      string `json:"miner_id"`
}

func (w blockHeaderWire) toHeader() canonical.BlockHeader {
	return canonical.BlockHeader{
		Index:        w.Index,
		Timestamp:    w.Timestamp,
		Nonce:        w.Nonce,
		Difficulty:   w.Difficulty,
		PreviousHash: w.PreviousHash,
		MerkleRoot:   w.MerkleRoot,
		DataHash:     w.DataHash,
		MinerID:      w.MinerID,
	}
}

type signatureWire struct {
	ElderID         string `json:"elder_id"`
	SignerPublicKey string `json:"signer_public_key_b64"`
	Signature       string `json:"signature_hex"`
	SignedAt        string `json:"signed_at"`
}

type signBlockRequest struct {
	Header   blockHeaderWire `json:"header"`
	ElderIDs []string        `json:"elder_ids,omitempty"`
}

type signBlockResponse struct {
	M          uint            `json:"m"`
	N          uint            `json:"n"`
	Signatures []signatureWire `json:"signatures"`
}

// handleSignBlock serves POST /v1/elders/sign-block.
func (s *Server) handleSignBlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req signBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	envelope, err := s.quorum.SignBlock(r.Context(), req.Header.toHeader(), req.ElderIDs)
	if err != nil {
		s.logger.Printf("sign-block failed: %v", err)
		writeJSONError(w, err.Error(), statusFor(err))
		return
	}

	resp := signBlockResponse{M: envelope.M, N: envelope.N}
	for _, sig := range envelope.Signatures {
		resp.Signatures = append(resp.Signatures, signatureWire{
			ElderID:         sig.ElderID,
			SignerPublicKey: base64.StdEncoding.EncodeToString(sig.SignerPublicKey),
			Signature:       hex.EncodeToString(sig.SignatureBytes),
			SignedAt:        sig.SignedAtTS.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type verifyQuorumRequest struct {
	HeaderCanonicalHex string            `json:"header_canonical_hex"`
	Quorum             signBlockResponse `json:"quorum"`
}

type verifyQuorumResponse struct {
	Valid         bool     `json:"valid"`
	ValidSigners  []string `json:"valid_signers"`
	RequiredM     uint     `json:"required_m"`
	TotalDistinct int      `json:"total_distinct"`
}

// handleVerifyQuorum serves POST /v1/elders/verify-quorum.
func (s *Server) handleVerifyQuorum(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req verifyQuorumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	headerBytes, err := hex.DecodeString(req.HeaderCanonicalHex)
	if err != nil {
		writeJSONError(w, "header_canonical_hex is not valid hex", http.StatusBadRequest)
		return
	}

	envelope := quorum.QuorumEnvelope{M: req.Quorum.M, N: req.Quorum.N}
	for _, sig := range req.Quorum.Signatures {
		pub, err := base64.StdEncoding.DecodeString(sig.SignerPublicKey)
		if err != nil {
			writeJSONError(w, "signer_public_key_b64 is not valid base64", http.StatusBadRequest)
			return
		}
		sigBytes, err := hex.DecodeString(sig.Signature)
		if err != nil {
			writeJSONError(w, "signature_hex is not valid hex", http.StatusBadRequest)
			return
		}
		envelope.Signatures = append(envelope.Signatures, quorum.SingleSignature{
			ElderID:         sig.ElderID,
			SignerPublicKey: pub,
			SignatureBytes:  sigBytes,
		})
	}

	result := s.quorum.VerifyQuorum(headerBytes, envelope)
	writeJSON(w, http.StatusOK, verifyQuorumResponse{
		Valid:         result.Valid,
		ValidSigners:  result.ValidSigners,
		RequiredM:     result.RequiredM,
		TotalDistinct: result.TotalDistinct,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
