// Copyright 2025 Decentralized Rights Protocol
//
// Package policy is a pure, deterministic function from an
// ActivityClaim to a Verdict. No I/O, no state. Mirrors
// PolicyEngine.assess_activity field-for-field.
package policy

import (
	"math"
	"time"
)

const (
	recencyWindow   = 90 * 24 * time.Hour
	recencyPenalty  = 0.1
	approveThreshold = 0.60
	reviewThreshold  = 0.35
	energyBonusCap   = 0.3
	energyDivisor    = 100.0
	proofBonus       = 0.10
)

var kindWeights = map[string]float64{
	"learning":          0.25,
	"renewable_energy":  0.40,
	"healthcare":        0.20,
	"civic_work":        0.15,
}

const defaultKindWeight = 0.05

// Evidence is one typed, free-text-described proof within an ActivityClaim.
type Evidence struct {
	Kind        string
	Description string
	Proofs      []string
	EnergyKWh   *float64
	GeoHint     string
}

// Claim is the input to Assess: an actor's set of evidences.
type Claim struct {
	ActorID   string
	Timestamp time.Time
	Evidences []Evidence
}

// Verdict is the Policy Engine's output.
type Verdict struct {
	Score      float64
	Verdict    string
	Rationale  string
	Obligations []string
	PolicyTags  map[string]struct{}
}

const (
	VerdictApprove = "approve"
	VerdictReview  = "review"
	VerdictReject  = "reject"
)

// Assess runs the deterministic scoring algorithm against
// claim, using now as the server time. Calling Assess twice with identical
// (claim, now) must produce bit-identical output; the final score is
// rounded to three decimal places to eliminate any floating-point drift
// across platforms.
func Assess(claim Claim, now time.Time) Verdict {
	if len(claim.Evidences) == 0 {
		return Verdict{
			Score:       0.0,
			Verdict:     VerdictReject,
			Rationale:   "no evidence",
			Obligations: []string{"provide at least one verifiable proof"},
			PolicyTags:  tagSet("insufficient_evidence"),
		}
	}

	recency := 0.0
	if now.Sub(claim.Timestamp) > recencyWindow {
		recency = recencyPenalty
	}

	tags := map[string]struct{}{}
	hasGeoHint := false
	score := 0.0

	for _, e := range claim.Evidences {
		weight, ok := kindWeights[e.Kind]
		if !ok {
			weight = defaultKindWeight
		}
		partial := weight

		if e.Kind == "renewable_energy" && e.EnergyKWh != nil && *e.EnergyKWh >= 0 {
			bonus := math.Min(*e.EnergyKWh/energyDivisor, energyBonusCap)
			partial += bonus
			tags["energy_bonus"] = struct{}{}
		}
		if len(e.Proofs) > 0 {
			partial += proofBonus
			tags["has_proof"] = struct{}{}
		}
		if e.GeoHint != "" {
			hasGeoHint = true
		}

		score += partial
	}

	score = clamp(score-recency, 0.0, 1.0)
	score = round3(score)

	verdict := classify(score)

	var obligations []string
	if verdict != VerdictApprove {
		obligations = append(obligations, "submit stronger or more recent proofs")
	}
	if hasGeoHint {
		obligations = append(obligations, "add regional sustainability context if possible")
	}

	return Verdict{
		Score:       score,
		Verdict:     verdict,
		Rationale:   rationale(verdict),
		Obligations: obligations,
		PolicyTags:  tags,
	}
}

func classify(score float64) string {
	switch {
	case score >= approveThreshold:
		return VerdictApprove
	case score >= reviewThreshold:
		return VerdictReview
	default:
		return VerdictReject
	}
}

func rationale(verdict string) string {
	switch verdict {
	case VerdictApprove:
		return "evidence weight meets the approval threshold"
	case VerdictReview:
		return "evidence weight falls in the manual review band"
	default:
		return "evidence weight is below the review threshold"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func tagSet(tags ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		m[t] = struct{}{}
	}
	return m
}
