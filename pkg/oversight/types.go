// Copyright 2025 Decentralized Rights Protocol
//
// Package oversight is the Dispute & Oversight state machine: a structured
// lifecycle for challenging recorded decisions and recording human-reviewer
// resolutions. The DisputeCase lifecycle and majority-vote resolution logic
// are re-expressed here as an explicit Go state machine rather than ad hoc
// status string mutation.
package oversight

import "time"

// Status is a Dispute's lifecycle state. Transitions are monotonic:
// open -> in_review -> resolved -> closed.
type Status string

const (
	StatusOpen     Status = "open"
	StatusInReview Status = "in_review"
	StatusResolved Status = "resolved"
	StatusClosed   Status = "closed"
)

// Category classifies why a decision is being disputed.
type Category string

const (
	CategoryBias     Category = "bias"
	CategoryAccuracy Category = "accuracy"
	CategoryFairness Category = "fairness"
	CategoryOther    Category = "other"
)

func (c Category) valid() bool {
	switch c {
	case CategoryBias, CategoryAccuracy, CategoryFairness, CategoryOther:
		return true
	}
	return false
}

// Vote is a reviewer's choice on a dispute.
type Vote string

const (
	VoteSupportAI  Vote = "support_ai"
	VoteOverturnAI Vote = "overturn_ai"
	VoteAbstain    Vote = "abstain"
)

func (v Vote) valid() bool {
	switch v {
	case VoteSupportAI, VoteOverturnAI, VoteAbstain:
		return true
	}
	return false
}

// Dispute is a structured challenge to a prior decision, adjudicated by a
// fixed set of human reviewers via majority vote.
type Dispute struct {
	DisputeID       string
	DecisionID      string
	Reason          string
	Category        Category
	SubmitterID     string
	SubmittedAt     time.Time
	Status          Status
	Reviewers       []string          // ordered set, fixed once assigned
	Votes           map[string]Vote   // reviewer_id -> choice
	Resolution      *Vote             // nil until resolved
	ResolvedAt      *time.Time
	ResolutionNotes string
}

// DisputeResolutionEvent is emitted (not executed) when a dispute resolves,
// carrying any follow-up obligations the resolution implies.
type DisputeResolutionEvent struct {
	DisputeID            string
	DecisionID           string
	Resolution           Vote
	ModelUpdateRequired   bool
	PolicyChangeRequired  bool
}
