package ledger

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/database"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drperrors"
)

// fakeStore is an in-memory recordStore double; no real database.Client is
// exercised here, matching the no-toolchain-execution constraint on tests.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*DecisionRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*DecisionRecord)}
}

func (f *fakeStore) Insert(ctx context.Context, rec *DecisionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.records[rec.DecisionID]; exists {
		return nil // at-most-once, matches ON CONFLICT DO NOTHING
	}
	cp := *rec
	f.records[rec.DecisionID] = &cp
	return nil
}

func (f *fakeStore) Get(ctx context.Context, decisionID string) (*DecisionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[decisionID]
	if !ok {
		return nil, database.ErrDecisionNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*DecisionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*DecisionRecord
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeStore) AggregateStats(ctx context.Context, sinceRFC3339 string) (*Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &Stats{CountByOutcome: make(map[Outcome]int)}
	var sum float64
	for _, rec := range f.records {
		stats.CountByOutcome[rec.Outcome]++
		stats.Total++
		sum += rec.Confidence
	}
	if stats.Total > 0 {
		stats.MeanConfidence = sum / float64(stats.Total)
	}
	return stats, nil
}

// recordingArtifactStore keeps every pinned blob so tests can inspect the
// artifacts Decide produces.
type recordingArtifactStore struct {
	mu    sync.Mutex
	blobs [][]byte
}

func (r *recordingArtifactStore) Pin(ctx context.Context, data []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs = append(r.blobs, data)
	return fmt.Sprintf("cid-%d", len(r.blobs)), nil
}

func testOperatorKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	return priv
}

func TestDecideRejectsOutOfRangeConfidence(t *testing.T) {
	svc := NewService(newFakeStore(), testOperatorKey(t), nil)
	_, err := svc.Decide(context.Background(), DecideInput{
		ModelID: "m1", ModelVersion: "v1", InputType: InputText,
		InputCommitment: "abc", Confidence: 1.5, Decision: OutcomeApproved,
	})
	if err == nil {
		t.Fatal("expected error for confidence > 1")
	}
}

func TestDecideRejectsInvalidOutcome(t *testing.T) {
	svc := NewService(newFakeStore(), testOperatorKey(t), nil)
	_, err := svc.Decide(context.Background(), DecideInput{
		ModelID: "m1", ModelVersion: "v1", InputType: InputText,
		InputCommitment: "abc", Confidence: 0.5, Decision: "maybe",
	})
	if err == nil {
		t.Fatal("expected error for invalid decision enum")
	}
}

func TestDecideProducesSignedRecordAndRoundTrips(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testOperatorKey(t), nil)

	resp, err := svc.Decide(context.Background(), DecideInput{
		ModelID: "activity-scorer", ModelVersion: "1.0", InputType: InputImage,
		InputCommitment: "deadbeef", Confidence: 0.92, Decision: OutcomeApproved,
		Features: map[string]float64{"a": 0.9, "b": -0.5, "c": 0.1},
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(resp.DecisionID) != 16 {
		t.Fatalf("decision_id len = %d, want 16", len(resp.DecisionID))
	}
	if resp.Signature == "" {
		t.Fatal("expected non-empty signature")
	}
	// Null artifact store degrades CIDs to nil without failing the decision.
	if resp.ExplanationCID != nil || resp.ZKProofCID != nil {
		t.Fatalf("expected nil CIDs with no artifact store configured, got %+v/%+v", resp.ExplanationCID, resp.ZKProofCID)
	}

	rec, err := svc.GetDecision(context.Background(), resp.DecisionID)
	if err != nil {
		t.Fatalf("GetDecision: %v", err)
	}
	if rec.Outcome != OutcomeApproved || rec.Confidence != 0.92 {
		t.Fatalf("unexpected round-tripped record: %+v", rec)
	}
}

func TestDecideTwiceProducesDistinctIDs(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testOperatorKey(t), nil)
	input := DecideInput{
		ModelID: "m", ModelVersion: "v", InputType: InputSensor,
		InputCommitment: "x", Confidence: 0.1, Decision: OutcomeDenied,
	}
	r1, err := svc.Decide(context.Background(), input)
	if err != nil {
		t.Fatalf("Decide 1: %v", err)
	}
	r2, err := svc.Decide(context.Background(), input)
	if err != nil {
		t.Fatalf("Decide 2: %v", err)
	}
	if r1.DecisionID == r2.DecisionID {
		t.Fatal("expected distinct decision_ids for repeated calls")
	}
}

func TestBuildExplanationTopFiveByAbsContribution(t *testing.T) {
	features := map[string]float64{
		"a": 0.9, "b": -0.95, "c": 0.1, "d": 0.5, "e": -0.6, "f": 0.05,
	}
	artifact := buildExplanation(features)
	if len(artifact.TopFactors) != 5 {
		t.Fatalf("got %d top_factors, want 5", len(artifact.TopFactors))
	}
	if artifact.TopFactors[0].Feature != "b" {
		t.Fatalf("top factor = %s, want b (|-0.95| largest)", artifact.TopFactors[0].Feature)
	}
}

func TestBuildExplanationEmptyFeatures(t *testing.T) {
	artifact := buildExplanation(nil)
	if len(artifact.TopFactors) != 0 {
		t.Fatalf("expected empty top_factors, got %v", artifact.TopFactors)
	}
}

func TestZKPlaceholderValidityFollowsThreshold(t *testing.T) {
	artifacts := &recordingArtifactStore{}
	svc := NewService(newFakeStore(), testOperatorKey(t), artifacts)
	_, err := svc.Decide(context.Background(), DecideInput{
		ModelID: "m", ModelVersion: "v", InputType: InputGPS,
		InputCommitment: "y", Confidence: 0.79, Decision: OutcomeFlagged,
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	// 0.79 < 0.8 threshold, so the pinned placeholder must report valid=false.
	var zk *ZKPlaceholder
	for _, blob := range artifacts.blobs {
		var candidate ZKPlaceholder
		if json.Unmarshal(blob, &candidate) == nil && candidate.Type == "confidence_threshold" {
			zk = &candidate
		}
	}
	if zk == nil {
		t.Fatal("expected a confidence_threshold artifact to be pinned")
	}
	if zk.Threshold != 0.8 || zk.Valid {
		t.Fatalf("zk placeholder = %+v, want threshold 0.8 and valid=false", *zk)
	}
}

func TestGetDecisionUnknownIDIsNotFound(t *testing.T) {
	svc := NewService(newFakeStore(), testOperatorKey(t), nil)
	_, err := svc.GetDecision(context.Background(), "0000000000000000")
	if drperrors.KindOf(err) != drperrors.NotFound {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestAggregateStatsMeanConfidence(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testOperatorKey(t), nil)
	ctx := context.Background()
	for _, c := range []float64{0.2, 0.4, 0.6} {
		if _, err := svc.Decide(ctx, DecideInput{
			ModelID: "m", ModelVersion: "v", InputType: InputText,
			InputCommitment: "z", Confidence: c, Decision: OutcomeApproved,
		}); err != nil {
			t.Fatalf("Decide: %v", err)
		}
	}
	stats, err := svc.AggregateStats(ctx, time.Hour)
	if err != nil {
		t.Fatalf("AggregateStats: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("Total = %d, want 3", stats.Total)
	}
	if d := stats.MeanConfidence - 0.4; d > 1e-9 || d < -1e-9 {
		t.Fatalf("MeanConfidence = %v, want ~0.4", stats.MeanConfidence)
	}
}
