package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/ledger"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/oversight"
)

type decideRequest struct {
	ModelID         string             `json:"model_id"`
	ModelVersion    string             `json:"model_version"`
	InputType       string             `json:"input_type"`
	InputCommitment string             `json:"input_commitment"`
	Features        map[string]float64 `json:"features,omitempty"`
	Confidence      float64            `json:"confidence"`
	Decision        string             `json:"decision"`
}

type decideResponse struct {
	DecisionID        string  `json:"decision_id"`
	Outcome           string  `json:"outcome"`
	Confidence        float64 `json:"confidence"`
	ExplanationCID    *string `json:"explanation_cid"`
	ExplanationPNGCID *string `json:"explanation_png_cid"`
	ZKProofCID        *string `json:"zk_proof_cid"`
	Signature         string  `json:"signature"`
	Timestamp         string  `json:"timestamp"`
}

// handleDecide serves POST /api/ai/decide.
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := s.ledger.Decide(r.Context(), ledger.DecideInput{
		ModelID:         req.ModelID,
		ModelVersion:    req.ModelVersion,
		InputType:       ledger.InputType(req.InputType),
		InputCommitment: req.InputCommitment,
		Features:        req.Features,
		Confidence:      req.Confidence,
		Decision:        ledger.Outcome(req.Decision),
	})
	if err != nil {
		writeJSONError(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, decideResponse{
		DecisionID:        resp.DecisionID,
		Outcome:           string(resp.Outcome),
		Confidence:        resp.Confidence,
		ExplanationCID:    resp.ExplanationCID,
		ExplanationPNGCID: resp.ExplanationPNGCID,
		ZKProofCID:        resp.ZKProofCID,
		Signature:         resp.Signature,
		Timestamp:         resp.Timestamp,
	})
}

type decisionRecordResponse struct {
	DecisionID        string  `json:"decision_id"`
	ModelID           string  `json:"model_id"`
	ModelVersion      string  `json:"model_version"`
	InputType         string  `json:"input_type"`
	InputCommitment   string  `json:"input_commitment"`
	Outcome           string  `json:"outcome"`
	Confidence        float64 `json:"confidence"`
	ExplanationCID    *string `json:"explanation_cid"`
	ExplanationPNGCID *string `json:"explanation_png_cid"`
	ZKProofCID        *string `json:"zk_proof_cid"`
	ElderPub          string  `json:"elder_pub"`
	Signature         string  `json:"signature"`
	Timestamp         string  `json:"timestamp"`
}

// handleGetDecision serves GET /api/ai/decision/{id}.
func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/ai/decision/")
	rec, err := s.ledger.GetDecision(r.Context(), id)
	if err != nil {
		writeJSONError(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, decisionRecordResponse{
		DecisionID: rec.DecisionID, ModelID: rec.ModelID, ModelVersion: rec.ModelVersion,
		InputType: string(rec.InputType), InputCommitment: rec.InputCommitment,
		Outcome: string(rec.Outcome), Confidence: rec.Confidence,
		ExplanationCID: rec.ExplanationCID, ExplanationPNGCID: rec.ExplanationPNGCID,
		ZKProofCID: rec.ZKProofCID, ElderPub: rec.ElderPub,
		Signature: rec.Signature, Timestamp: rec.Timestamp,
	})
}

type createDisputeRequest struct {
	DecisionID  string `json:"decision_id"`
	Reason      string `json:"reason"`
	Category    string `json:"category,omitempty"`
	SubmitterID string `json:"submitter_id,omitempty"`
}

// handleCreateDispute serves POST /api/ai/dispute.
func (s *Server) handleCreateDispute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	category := oversight.Category(req.Category)
	if category == "" {
		category = oversight.CategoryOther
	}

	d, err := s.oversight.CreateDispute(r.Context(), req.DecisionID, req.Reason, category, req.SubmitterID)
	if err != nil {
		writeJSONError(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "dispute_id": d.DisputeID})
}
