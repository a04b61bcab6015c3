package oversight

import (
	"context"
	"sync"
	"testing"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/database"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drperrors"
)

type fakeDisputeStore struct {
	mu       sync.Mutex
	disputes map[string]*Dispute
}

func newFakeDisputeStore() *fakeDisputeStore {
	return &fakeDisputeStore{disputes: make(map[string]*Dispute)}
}

func (f *fakeDisputeStore) Insert(ctx context.Context, d *Dispute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.disputes[d.DisputeID] = &cp
	return nil
}

func (f *fakeDisputeStore) Update(ctx context.Context, d *Dispute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.disputes[d.DisputeID] = &cp
	return nil
}

func (f *fakeDisputeStore) Get(ctx context.Context, disputeID string) (*Dispute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.disputes[disputeID]
	if !ok {
		return nil, database.ErrDisputeNotFound
	}
	cp := *d
	cp.Votes = make(map[string]Vote, len(d.Votes))
	for k, v := range d.Votes {
		cp.Votes[k] = v
	}
	cp.Reviewers = append([]string(nil), d.Reviewers...)
	return &cp, nil
}

func TestDisputeOverturnSetsFlags(t *testing.T) {
	// Dispute overturn: category=bias, votes=[overturn, overturn, support].
	ctx := context.Background()
	svc := NewService(newFakeDisputeStore())

	d, err := svc.CreateDispute(ctx, "decision-1", "biased outcome", CategoryBias, "user-1")
	if err != nil {
		t.Fatalf("CreateDispute: %v", err)
	}
	if d.Status != StatusOpen {
		t.Fatalf("status = %v, want open", d.Status)
	}

	if _, err := svc.AssignReviewers(ctx, d.DisputeID, []string{"r1", "r2", "r3"}); err != nil {
		t.Fatalf("AssignReviewers: %v", err)
	}

	if _, _, err := svc.SubmitVote(ctx, d.DisputeID, "r1", VoteOverturnAI); err != nil {
		t.Fatalf("vote r1: %v", err)
	}
	if _, _, err := svc.SubmitVote(ctx, d.DisputeID, "r2", VoteOverturnAI); err != nil {
		t.Fatalf("vote r2: %v", err)
	}
	final, event, err := svc.SubmitVote(ctx, d.DisputeID, "r3", VoteSupportAI)
	if err != nil {
		t.Fatalf("vote r3: %v", err)
	}

	if final.Status != StatusResolved {
		t.Fatalf("status = %v, want resolved", final.Status)
	}
	if final.Resolution == nil || *final.Resolution != VoteOverturnAI {
		t.Fatalf("resolution = %v, want overturn_ai", final.Resolution)
	}
	if event == nil || !event.ModelUpdateRequired || !event.PolicyChangeRequired {
		t.Fatalf("event = %+v, want model_update_required=true, policy_change_required=true", event)
	}
}

func TestDisputeTieFavorsSupportAI(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeDisputeStore())

	d, _ := svc.CreateDispute(ctx, "decision-2", "seems off", CategoryAccuracy, "user-2")
	svc.AssignReviewers(ctx, d.DisputeID, []string{"r1", "r2"})

	svc.SubmitVote(ctx, d.DisputeID, "r1", VoteOverturnAI)
	final, event, err := svc.SubmitVote(ctx, d.DisputeID, "r2", VoteSupportAI)
	if err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}
	if *final.Resolution != VoteSupportAI {
		t.Fatalf("tie resolution = %v, want support_ai", *final.Resolution)
	}
	if event.ModelUpdateRequired {
		t.Fatal("support_ai resolution must not set model_update_required")
	}
}

func TestSubmitVoteRejectsUnassignedReviewer(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeDisputeStore())

	d, _ := svc.CreateDispute(ctx, "decision-3", "reason", CategoryOther, "user-3")
	svc.AssignReviewers(ctx, d.DisputeID, []string{"r1"})

	_, _, err := svc.SubmitVote(ctx, d.DisputeID, "stranger", VoteSupportAI)
	if err == nil {
		t.Fatal("expected error for vote from unassigned reviewer")
	}
}

func TestSubmitVoteRejectsBeforeAssignment(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeDisputeStore())

	d, _ := svc.CreateDispute(ctx, "decision-4", "reason", CategoryOther, "user-4")
	_, _, err := svc.SubmitVote(ctx, d.DisputeID, "r1", VoteSupportAI)
	if err == nil {
		t.Fatal("expected error voting on an open (not yet in_review) dispute")
	}
}

func TestCloseRequiresResolvedState(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeDisputeStore())

	d, _ := svc.CreateDispute(ctx, "decision-5", "reason", CategoryOther, "user-5")
	if _, err := svc.Close(ctx, d.DisputeID); err == nil {
		t.Fatal("expected error closing an open dispute")
	}

	svc.AssignReviewers(ctx, d.DisputeID, []string{"r1"})
	svc.SubmitVote(ctx, d.DisputeID, "r1", VoteSupportAI)
	closed, err := svc.Close(ctx, d.DisputeID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Status != StatusClosed {
		t.Fatalf("status = %v, want closed", closed.Status)
	}
}

func TestAssignReviewersUnknownDisputeIsNotFound(t *testing.T) {
	svc := NewService(newFakeDisputeStore())
	_, err := svc.AssignReviewers(context.Background(), "nonexistent", []string{"r1"})
	if drperrors.KindOf(err) != drperrors.NotFound {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestLaterVoteFromSameReviewerOverwrites(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeDisputeStore())

	d, _ := svc.CreateDispute(ctx, "decision-6", "reason", CategoryOther, "user-6")
	svc.AssignReviewers(ctx, d.DisputeID, []string{"r1", "r2"})

	svc.SubmitVote(ctx, d.DisputeID, "r1", VoteOverturnAI)
	svc.SubmitVote(ctx, d.DisputeID, "r1", VoteSupportAI) // overwrite
	final, _, err := svc.SubmitVote(ctx, d.DisputeID, "r2", VoteSupportAI)
	if err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}
	if *final.Resolution != VoteSupportAI {
		t.Fatalf("resolution = %v, want support_ai after overwrite", *final.Resolution)
	}
}

func TestCreateDisputeProducesDistinctIDs(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeDisputeStore())

	d1, err := svc.CreateDispute(ctx, "decision-7", "reason", CategoryOther, "user-7")
	if err != nil {
		t.Fatalf("CreateDispute 1: %v", err)
	}
	d2, err := svc.CreateDispute(ctx, "decision-7", "reason", CategoryOther, "user-7")
	if err != nil {
		t.Fatalf("CreateDispute 2: %v", err)
	}
	if d1.DisputeID == d2.DisputeID {
		t.Fatal("expected distinct dispute_ids for repeated calls")
	}
}
