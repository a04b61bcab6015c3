package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/policy"
)

type evidenceWire struct {
	Kind        string   `json:"kind"`
	Description string   `json:"description"`
	Proofs      []string `json:"proofs,omitempty"`
	EnergyKWh   *float64 `json:"energy_kwh,omitempty"`
	GeoHint     string   `json:"geo_hint,omitempty"`
}

type activityClaimRequest struct {
	ActorID   string         `json:"actor_id"`
	Timestamp time.Time      `json:"timestamp"`
	Evidences []evidenceWire `json:"evidences"`
}

type verdictResponse struct {
	Score       float64  `json:"score"`
	Verdict     string   `json:"verdict"`
	Rationale   string   `json:"rationale"`
	Obligations []string `json:"obligations"`
	PolicyTags  []string `json:"policy_tags"`
}

// handleAssessActivity serves POST /v1/agent/assess-activity.
func (s *Server) handleAssessActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req activityClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	claim := policy.Claim{ActorID: req.ActorID, Timestamp: req.Timestamp}
	for _, e := range req.Evidences {
		claim.Evidences = append(claim.Evidences, policy.Evidence{
			Kind: e.Kind, Description: e.Description, Proofs: e.Proofs,
			EnergyKWh: e.EnergyKWh, GeoHint: e.GeoHint,
		})
	}

	verdict := policy.Assess(claim, time.Now())

	tags := make([]string, 0, len(verdict.PolicyTags))
	for tag := range verdict.PolicyTags {
		tags = append(tags, tag)
	}
	sort.Strings(tags) // verdict.PolicyTags is a set; sort for a deterministic response

	writeJSON(w, http.StatusOK, verdictResponse{
		Score:       verdict.Score,
		Verdict:     verdict.Verdict,
		Rationale:   verdict.Rationale,
		Obligations: verdict.Obligations,
		PolicyTags:  tags,
	})
}
