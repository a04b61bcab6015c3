// Copyright 2025 Decentralized Rights Protocol
//
// Package ledger is the Decision Ledger: append-only storage and query of
// DecisionRecords. The repository shape (New*/Insert/Get/List/Aggregate*)
// generalizes the earlier attestation-over-proofs repository to
// Elder-signed activity decisions.
package ledger

// InputType is the kind of upstream input a decision was made over.
type InputType string

const (
	InputImage  InputType = "image"
	InputGPS    InputType = "gps"
	InputText   InputType = "text"
	InputSensor InputType = "sensor"
)

func (t InputType) valid() bool {
	switch t {
	case InputImage, InputGPS, InputText, InputSensor:
		return true
	}
	return false
}

// Outcome is the tagged variant for a decision's result, replacing a
// heterogeneous decision payload with an explicit enumerated type.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeFlagged  Outcome = "flagged"
	OutcomeDenied   Outcome = "denied"
)

func (o Outcome) valid() bool {
	switch o {
	case OutcomeApproved, OutcomeFlagged, OutcomeDenied:
		return true
	}
	return false
}

// DecideInput is the decide operation's request body.
type DecideInput struct {
	ModelID         string
	ModelVersion    string
	InputType       InputType
	InputCommitment string // hex hash of upstream input, never the raw input
	Features        map[string]float64
	Confidence      float64
	Decision        Outcome
}

// FactorContribution is one entry of an explanation artifact's top_factors.
type FactorContribution struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
}

// ExplanationArtifact is the non-sensitive, never-raw-feature explanation
// blob pinned to the artifact store.
type ExplanationArtifact struct {
	Method     string                `json:"method"`
	TopFactors []FactorContribution `json:"top_factors"`
}

// ZKPlaceholder is the explicit non-cryptographic placeholder artifact.
// It is never presented as a real proof.
type ZKPlaceholder struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Threshold  float64 `json:"threshold"`
	Valid      bool    `json:"valid"`
	DecisionID string  `json:"decision_id"`
	Timestamp  string  `json:"ts"`
}

const zkConfidenceThreshold = 0.8

// DecisionRecord is the persisted, immutable-once-written record.
// Signature is computed over the canonical JSON of every other field.
type DecisionRecord struct {
	DecisionID        string
	ModelID           string
	ModelVersion      string
	InputType         InputType
	InputCommitment   string
	Outcome           Outcome
	Confidence        float64
	ExplanationCID    *string
	ExplanationPNGCID *string
	ZKProofCID        *string
	ElderPub          string // hex of the operator signing key
	Signature         string // hex, over canonical JSON of the record minus Signature
	Timestamp         string // ISO-8601 UTC
}

// DecideResponse is the decide operation's result.
type DecideResponse struct {
	DecisionID        string
	Outcome           Outcome
	Confidence        float64
	ExplanationCID    *string
	ExplanationPNGCID *string
	ZKProofCID        *string
	Signature         string
	Timestamp         string
}

// ListFilter narrows list_decisions.
type ListFilter struct {
	ModelID   string
	Outcome   Outcome
	InputType InputType
}

// Stats is aggregate_stats' response.
type Stats struct {
	CountByOutcome map[Outcome]int
	MeanConfidence float64
	Total          int
}
