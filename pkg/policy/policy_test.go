package policy

import (
	"testing"
	"time"
)

func float64Ptr(v float64) *float64 { return &v }

func TestAssessEmptyEvidenceRejects(t *testing.T) {
	// Policy reject, empty evidence.
	claim := Claim{ActorID: "did:drp:alice", Timestamp: time.Now(), Evidences: nil}
	v := Assess(claim, time.Now())
	if v.Score != 0.0 || v.Verdict != VerdictReject {
		t.Fatalf("got score=%v verdict=%v, want score=0 verdict=reject", v.Score, v.Verdict)
	}
	if len(v.Obligations) != 1 || v.Obligations[0] != "provide at least one verifiable proof" {
		t.Fatalf("unexpected obligations: %v", v.Obligations)
	}
}

func TestAssessApprove(t *testing.T) {
	// Policy approve.
	now := time.Now()
	claim := Claim{
		ActorID:   "did:drp:alice",
		Timestamp: now,
		Evidences: []Evidence{
			{Kind: "renewable_energy", EnergyKWh: float64Ptr(120), Proofs: []string{"att://m/1"}},
			{Kind: "learning", Proofs: []string{"cred://c/1"}},
		},
	}
	v := Assess(claim, now)
	if v.Score != 1.000 {
		t.Fatalf("score = %v, want 1.000", v.Score)
	}
	if v.Verdict != VerdictApprove {
		t.Fatalf("verdict = %v, want approve", v.Verdict)
	}
	if _, ok := v.PolicyTags["energy_bonus"]; !ok {
		t.Error("expected energy_bonus tag")
	}
	if _, ok := v.PolicyTags["has_proof"]; !ok {
		t.Error("expected has_proof tag")
	}
}

func TestAssessBoundaryThresholds(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		score   float64
		verdict string
	}{
		{"exactly 0.600 approves", 0.600, VerdictApprove},
		{"exactly 0.350 reviews", 0.350, VerdictReview},
		{"just under 0.350 rejects", 0.349, VerdictReject},
		{"just under 0.600 reviews", 0.599, VerdictReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.score); got != tt.verdict {
				t.Errorf("classify(%v) = %v, want %v", tt.score, got, tt.verdict)
			}
		})
	}
	_ = now
}

func TestAssessRecencyPenalty(t *testing.T) {
	now := time.Now()
	old := now.Add(-100 * 24 * time.Hour)
	claim := Claim{
		ActorID:   "did:drp:bob",
		Timestamp: old,
		Evidences: []Evidence{{Kind: "civic_work"}},
	}
	v := Assess(claim, now)
	// weight 0.15 - recency 0.1 = 0.05
	if v.Score != 0.05 {
		t.Fatalf("score = %v, want 0.05", v.Score)
	}
}

func TestAssessDeterministic(t *testing.T) {
	now := time.Now()
	claim := Claim{
		ActorID:   "did:drp:carol",
		Timestamp: now,
		Evidences: []Evidence{{Kind: "healthcare", Proofs: []string{"x"}}},
	}
	v1 := Assess(claim, now)
	v2 := Assess(claim, now)
	if v1.Score != v2.Score || v1.Verdict != v2.Verdict {
		t.Fatal("Assess is not deterministic for identical inputs")
	}
}

func TestAssessGeoHintObligation(t *testing.T) {
	now := time.Now()
	claim := Claim{
		ActorID:   "did:drp:dan",
		Timestamp: now,
		Evidences: []Evidence{{Kind: "other", GeoHint: "EU-West"}},
	}
	v := Assess(claim, now)
	found := false
	for _, o := range v.Obligations {
		if o == "add regional sustainability context if possible" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected geo-hint obligation, got %v", v.Obligations)
	}
}
