package oversight

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/database"
)

// Repository is the disputes CRUD surface, following the same
// query-and-scan shape as pkg/ledger's repository (itself grounded on
// pkg/database/repository_attestation.go).
type Repository struct {
	client *database.Client
}

// NewRepository creates a dispute repository.
func NewRepository(client *database.Client) *Repository {
	return &Repository{client: client}
}

var _ disputeStore = (*Repository)(nil)

// Insert persists a newly created dispute.
func (r *Repository) Insert(ctx context.Context, d *Dispute) error {
	reviewers := strings.Join(d.Reviewers, ",")
	votes, err := json.Marshal(d.Votes)
	if err != nil {
		return fmt.Errorf("failed to marshal votes: %w", err)
	}

	query := `
		INSERT INTO disputes (
			dispute_id, decision_id, reason, category, submitter_id,
			submitted_at, status, reviewers, votes, resolution,
			resolved_at, resolution_notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.client.ExecContext(ctx, query,
		d.DisputeID, d.DecisionID, d.Reason, string(d.Category), d.SubmitterID,
		d.SubmittedAt.UTC().Format(time.RFC3339), string(d.Status), reviewers, string(votes),
		resolutionString(d.Resolution), resolvedAtString(d.ResolvedAt), d.ResolutionNotes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dispute: %w", err)
	}
	return nil
}

// Update persists a dispute's mutated state (reviewer assignment, votes,
// resolution). Disputes are few compared to decisions, so a full-row
// update is used rather than a per-field patch.
func (r *Repository) Update(ctx context.Context, d *Dispute) error {
	reviewers := strings.Join(d.Reviewers, ",")
	votes, err := json.Marshal(d.Votes)
	if err != nil {
		return fmt.Errorf("failed to marshal votes: %w", err)
	}

	query := `
		UPDATE disputes SET
			status = $2, reviewers = $3, votes = $4, resolution = $5,
			resolved_at = $6, resolution_notes = $7
		WHERE dispute_id = $1`

	_, err = r.client.ExecContext(ctx, query,
		d.DisputeID, string(d.Status), reviewers, string(votes),
		resolutionString(d.Resolution), resolvedAtString(d.ResolvedAt), d.ResolutionNotes,
	)
	if err != nil {
		return fmt.Errorf("failed to update dispute: %w", err)
	}
	return nil
}

// Get retrieves a dispute by dispute_id.
func (r *Repository) Get(ctx context.Context, disputeID string) (*Dispute, error) {
	query := `
		SELECT dispute_id, decision_id, reason, category, submitter_id,
			submitted_at, status, reviewers, votes, resolution,
			resolved_at, resolution_notes
		FROM disputes
		WHERE dispute_id = $1`

	var (
		d                                        Dispute
		category, status, reviewers, votesJSON   string
		submittedAt                              string
		resolution, resolvedAt                   sql.NullString
	)
	err := r.client.QueryRowContext(ctx, query, disputeID).Scan(
		&d.DisputeID, &d.DecisionID, &d.Reason, &category, &d.SubmitterID,
		&submittedAt, &status, &reviewers, &votesJSON, &resolution,
		&resolvedAt, &d.ResolutionNotes,
	)
	if err == sql.ErrNoRows {
		return nil, database.ErrDisputeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}

	d.Category = Category(category)
	d.Status = Status(status)
	d.SubmittedAt, _ = time.Parse(time.RFC3339, submittedAt)
	if reviewers != "" {
		d.Reviewers = strings.Split(reviewers, ",")
	}
	d.Votes = make(map[string]Vote)
	if votesJSON != "" {
		var raw map[string]string
		if err := json.Unmarshal([]byte(votesJSON), &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal votes: %w", err)
		}
		for k, v := range raw {
			d.Votes[k] = Vote(v)
		}
	}
	if resolution.Valid {
		v := Vote(resolution.String)
		d.Resolution = &v
	}
	if resolvedAt.Valid {
		t, _ := time.Parse(time.RFC3339, resolvedAt.String)
		d.ResolvedAt = &t
	}
	return &d, nil
}

func resolutionString(v *Vote) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}

func resolvedAtString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
