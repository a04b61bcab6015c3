package ledger

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/database"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drperrors"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drplog"
)

// recordStore is the persistence surface Service depends on; *Repository
// satisfies it against a real database.Client, and tests substitute an
// in-memory double.
type recordStore interface {
	Insert(ctx context.Context, rec *DecisionRecord) error
	Get(ctx context.Context, decisionID string) (*DecisionRecord, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*DecisionRecord, error)
	AggregateStats(ctx context.Context, sinceRFC3339 string) (*Stats, error)
}

// Service is the Decision Ledger's decide/get/list/aggregate surface. The
// operator key used to sign decision records is deliberately distinct from
// any Elder key: it authenticates "this service recorded this decision,"
// not "the committee attested this claim."
type Service struct {
	repo         recordStore
	operatorPriv ed25519.PrivateKey
	operatorPub  ed25519.PublicKey
	store        ArtifactStore
	log          *drplog.Logger
}

// NewService builds the Decision Ledger service.
func NewService(repo recordStore, operatorPriv ed25519.PrivateKey, store ArtifactStore) *Service {
	if store == nil {
		store = NullArtifactStore{}
	}
	return &Service{
		repo:         repo,
		operatorPriv: operatorPriv,
		operatorPub:  operatorPriv.Public().(ed25519.PublicKey),
		store:        store,
		log:          drplog.New("Ledger"),
	}
}

// Decide implements the decision's validate/explain/pin/sign/persist
// procedure.
func (s *Service) Decide(ctx context.Context, input DecideInput) (*DecideResponse, error) {
	if input.Confidence < 0 || input.Confidence > 1 {
		return nil, drperrors.New(drperrors.InvalidInput, "confidence must be in [0,1]")
	}
	if !input.Decision.valid() {
		return nil, drperrors.New(drperrors.InvalidInput, "invalid decision enum: "+string(input.Decision))
	}
	if !input.InputType.valid() {
		return nil, drperrors.New(drperrors.InvalidInput, "invalid input_type: "+string(input.InputType))
	}

	decisionID, err := randomHexID(16)
	if err != nil {
		return nil, drperrors.Wrap(drperrors.InfrastructureUnavailable, "decision_id generation failed", err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339)

	explanation := buildExplanation(input.Features)
	zk := ZKPlaceholder{
		Type:       "confidence_threshold",
		Confidence: input.Confidence,
		Threshold:  zkConfidenceThreshold,
		Valid:      input.Confidence >= zkConfidenceThreshold,
		DecisionID: decisionID,
		Timestamp:  timestamp,
	}

	explanationCID := s.pin(ctx, explanation)
	zkCID := s.pin(ctx, zk)
	// Chart rendering (step 3) is implementation-defined and non-fatal; this
	// core does not render images, so the png CID is always absent.
	var pngCID *string

	rec := DecisionRecord{
		DecisionID:        decisionID,
		ModelID:           input.ModelID,
		ModelVersion:      input.ModelVersion,
		InputType:         input.InputType,
		InputCommitment:   input.InputCommitment,
		Outcome:           input.Decision,
		Confidence:        input.Confidence,
		ExplanationCID:    explanationCID,
		ExplanationPNGCID: pngCID,
		ZKProofCID:        zkCID,
		ElderPub:          hex.EncodeToString(s.operatorPub),
		Timestamp:         timestamp,
	}

	canonicalBytes, err := canonicalRecordBytes(rec)
	if err != nil {
		return nil, drperrors.Wrap(drperrors.InfrastructureUnavailable, "canonicalization failed", err)
	}
	rec.Signature = hex.EncodeToString(ed25519.Sign(s.operatorPriv, canonicalBytes))

	if err := s.repo.Insert(ctx, &rec); err != nil {
		return nil, drperrors.Wrap(drperrors.InfrastructureUnavailable, "db-unavailable", err)
	}

	return &DecideResponse{
		DecisionID:        rec.DecisionID,
		Outcome:           rec.Outcome,
		Confidence:        rec.Confidence,
		ExplanationCID:    rec.ExplanationCID,
		ExplanationPNGCID: rec.ExplanationPNGCID,
		ZKProofCID:        rec.ZKProofCID,
		Signature:         rec.Signature,
		Timestamp:         rec.Timestamp,
	}, nil
}

// GetDecision fetches a record by decision_id. The repository call is
// idempotent and is retried on infrastructure-unavailable failures (three
// backoff attempts via drperrors.RetryIdempotent); a not-found result is
// tagged before it reaches RetryIdempotent so it returns immediately instead
// of burning through the backoff schedule.
func (s *Service) GetDecision(ctx context.Context, decisionID string) (*DecisionRecord, error) {
	if decisionID == "" {
		return nil, drperrors.New(drperrors.InvalidInput, "decision_id is required")
	}
	var rec *DecisionRecord
	err := drperrors.RetryIdempotent(ctx, func(ctx context.Context) error {
		found, err := s.repo.Get(ctx, decisionID)
		if errors.Is(err, database.ErrDecisionNotFound) {
			return drperrors.New(drperrors.NotFound, "decision not found: "+decisionID)
		}
		if err != nil {
			return drperrors.Wrap(drperrors.InfrastructureUnavailable, "db-unavailable", err)
		}
		rec = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListDecisions returns a filtered, paginated page of records, retried via
// RetryIdempotent like GetDecision.
func (s *Service) ListDecisions(ctx context.Context, filter ListFilter, limit, offset int) ([]*DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []*DecisionRecord
	err := drperrors.RetryIdempotent(ctx, func(ctx context.Context) error {
		found, err := s.repo.List(ctx, filter, limit, offset)
		if err != nil {
			return drperrors.Wrap(drperrors.InfrastructureUnavailable, "db-unavailable", err)
		}
		recs = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// AggregateStats computes outcome counts and mean confidence for the
// trailing window ending now, retried via RetryIdempotent like GetDecision.
func (s *Service) AggregateStats(ctx context.Context, window time.Duration) (*Stats, error) {
	since := time.Now().UTC().Add(-window).Format(time.RFC3339)
	var stats *Stats
	err := drperrors.RetryIdempotent(ctx, func(ctx context.Context) error {
		found, err := s.repo.AggregateStats(ctx, since)
		if err != nil {
			return drperrors.Wrap(drperrors.InfrastructureUnavailable, "db-unavailable", err)
		}
		stats = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// pin attempts to pin a JSON-serialized artifact and degrades to a nil CID
// on any failure.
func (s *Service) pin(ctx context.Context, artifact interface{}) *string {
	data, err := json.Marshal(artifact)
	if err != nil {
		s.log.Warn("artifact serialization failed: %v", err)
		return nil
	}
	cid, err := s.store.Pin(ctx, data)
	if err != nil {
		s.log.Warn("artifact pin failed, degrading to null CID: %v", err)
		return nil
	}
	return &cid
}

func buildExplanation(features map[string]float64) ExplanationArtifact {
	if len(features) == 0 {
		return ExplanationArtifact{Method: "top-k-contribution", TopFactors: []FactorContribution{}}
	}
	factors := make([]FactorContribution, 0, len(features))
	for name, contribution := range features {
		factors = append(factors, FactorContribution{Feature: name, Contribution: contribution})
	}
	sort.Slice(factors, func(i, j int) bool {
		return abs(factors[i].Contribution) > abs(factors[j].Contribution)
	})
	if len(factors) > 5 {
		factors = factors[:5]
	}
	return ExplanationArtifact{Method: "top-k-contribution", TopFactors: factors}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func randomHexID(nChars int) (string, error) {
	buf := make([]byte, nChars/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
