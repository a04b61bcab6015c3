package oversight

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/database"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drperrors"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drplog"
)

// disputeStore is the persistence surface Service depends on; *Repository
// satisfies it, tests substitute an in-memory double.
type disputeStore interface {
	Insert(ctx context.Context, d *Dispute) error
	Update(ctx context.Context, d *Dispute) error
	Get(ctx context.Context, disputeID string) (*Dispute, error)
}

// DefaultReviewerCount is the conventional size of a dispute's reviewer
// set. AssignReviewers does not consult it: the caller always names the
// reviewers, and an empty reviewer set is rejected.
const DefaultReviewerCount = 3

// Service drives the dispute state machine.
type Service struct {
	repo disputeStore
	log  *drplog.Logger
}

// NewService builds the Oversight service.
func NewService(repo disputeStore) *Service {
	return &Service{repo: repo, log: drplog.New("Oversight")}
}

// CreateDispute opens a new dispute against decisionID, in status "open".
func (s *Service) CreateDispute(ctx context.Context, decisionID, reason string, category Category, submitterID string) (*Dispute, error) {
	if decisionID == "" {
		return nil, drperrors.New(drperrors.InvalidInput, "decision_id is required")
	}
	if reason == "" {
		return nil, drperrors.New(drperrors.InvalidInput, "reason is required")
	}
	if !category.valid() {
		return nil, drperrors.New(drperrors.InvalidInput, "invalid category: "+string(category))
	}

	d := &Dispute{
		DisputeID:   uuid.NewString(),
		DecisionID:  decisionID,
		Reason:      reason,
		Category:    category,
		SubmitterID: submitterID,
		SubmittedAt: time.Now().UTC(),
		Status:      StatusOpen,
		Votes:       make(map[string]Vote),
	}
	if err := s.repo.Insert(ctx, d); err != nil {
		return nil, drperrors.Wrap(drperrors.InfrastructureUnavailable, "db-unavailable", err)
	}
	return d, nil
}

// AssignReviewers fixes the reviewer set and transitions open -> in_review.
// Any later SubmitVote by a non-member is rejected.
func (s *Service) AssignReviewers(ctx context.Context, disputeID string, reviewerIDs []string) (*Dispute, error) {
	d, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusOpen {
		return nil, drperrors.New(drperrors.PreconditionFailed, "dispute is not open: "+string(d.Status))
	}
	if len(reviewerIDs) == 0 {
		return nil, drperrors.New(drperrors.InvalidInput, "reviewerIDs must be non-empty")
	}

	d.Reviewers = append([]string(nil), reviewerIDs...)
	d.Status = StatusInReview
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, drperrors.Wrap(drperrors.InfrastructureUnavailable, "db-unavailable", err)
	}
	return d, nil
}

// SubmitVote records reviewerID's choice. One vote per reviewer; later
// votes from the same reviewer overwrite. When every assigned reviewer has
// voted, the dispute resolves by majority, ties favoring support_ai.
func (s *Service) SubmitVote(ctx context.Context, disputeID, reviewerID string, choice Vote) (*Dispute, *DisputeResolutionEvent, error) {
	if !choice.valid() {
		return nil, nil, drperrors.New(drperrors.InvalidInput, "invalid vote: "+string(choice))
	}

	d, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, nil, err
	}
	if d.Status != StatusInReview {
		return nil, nil, drperrors.New(drperrors.PreconditionFailed, "dispute is not accepting votes: "+string(d.Status))
	}
	if !isMember(d.Reviewers, reviewerID) {
		return nil, nil, drperrors.New(drperrors.UnauthorizedAction, "reviewer not assigned to dispute: "+reviewerID)
	}

	d.Votes[reviewerID] = choice

	var event *DisputeResolutionEvent
	if allVoted(d.Reviewers, d.Votes) {
		resolution := majority(d.Reviewers, d.Votes)
		now := time.Now().UTC()
		d.Resolution = &resolution
		d.ResolvedAt = &now
		d.Status = StatusResolved
		d.ResolutionNotes = resolutionNotes(resolution)

		if resolution == VoteOverturnAI {
			event = &DisputeResolutionEvent{
				DisputeID:           d.DisputeID,
				DecisionID:          d.DecisionID,
				Resolution:          resolution,
				ModelUpdateRequired: true,
			}
			if d.Category == CategoryBias || d.Category == CategoryFairness {
				event.PolicyChangeRequired = true
			}
		} else {
			event = &DisputeResolutionEvent{DisputeID: d.DisputeID, DecisionID: d.DecisionID, Resolution: resolution}
		}
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, nil, drperrors.Wrap(drperrors.InfrastructureUnavailable, "db-unavailable", err)
	}
	return d, event, nil
}

// Close transitions a resolved dispute to closed, terminal.
func (s *Service) Close(ctx context.Context, disputeID string) (*Dispute, error) {
	d, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusResolved {
		return nil, drperrors.New(drperrors.PreconditionFailed, "dispute is not resolved: "+string(d.Status))
	}
	d.Status = StatusClosed
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, drperrors.Wrap(drperrors.InfrastructureUnavailable, "db-unavailable", err)
	}
	return d, nil
}

// getDispute reads a dispute by id. The repository call is idempotent and is
// retried on infrastructure-unavailable failures via drperrors.RetryIdempotent;
// a not-found result is tagged before it reaches RetryIdempotent so it
// returns immediately instead of burning through the backoff schedule.
func (s *Service) getDispute(ctx context.Context, disputeID string) (*Dispute, error) {
	var d *Dispute
	err := drperrors.RetryIdempotent(ctx, func(ctx context.Context) error {
		found, err := s.repo.Get(ctx, disputeID)
		if errors.Is(err, database.ErrDisputeNotFound) {
			return drperrors.New(drperrors.NotFound, "dispute not found: "+disputeID)
		}
		if err != nil {
			return drperrors.Wrap(drperrors.InfrastructureUnavailable, "db-unavailable", err)
		}
		d = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func isMember(reviewers []string, id string) bool {
	for _, r := range reviewers {
		if r == id {
			return true
		}
	}
	return false
}

func allVoted(reviewers []string, votes map[string]Vote) bool {
	for _, r := range reviewers {
		if _, ok := votes[r]; !ok {
			return false
		}
	}
	return len(reviewers) > 0
}

// majority resolves support_ai vs overturn_ai; abstentions don't count
// toward either side. Ties favor support_ai.
func majority(reviewers []string, votes map[string]Vote) Vote {
	var support, overturn int
	for _, r := range reviewers {
		switch votes[r] {
		case VoteSupportAI:
			support++
		case VoteOverturnAI:
			overturn++
		}
	}
	if overturn > support {
		return VoteOverturnAI
	}
	return VoteSupportAI
}

func resolutionNotes(resolution Vote) string {
	if resolution == VoteOverturnAI {
		return "majority of assigned reviewers voted to overturn the recorded decision"
	}
	return "majority of assigned reviewers voted to support the recorded decision"
}
