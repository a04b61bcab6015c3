package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/database"
)

// Repository is the decision_records CRUD surface, adapted from
// pkg/database/repository_attestation.go's New*/Create*/Get*/List* shape.
type Repository struct {
	client *database.Client
}

// NewRepository creates a decision repository.
func NewRepository(client *database.Client) *Repository {
	return &Repository{client: client}
}

var _ recordStore = (*Repository)(nil)

// Insert performs an at-most-once, decision_id-keyed insert: a re-insert
// of a finalized record under the same decision_id is a no-op.
func (r *Repository) Insert(ctx context.Context, rec *DecisionRecord) error {
	query := `
		INSERT INTO decision_records (
			decision_id, model_id, model_version, input_type, input_commitment,
			outcome, confidence, explanation_cid, explanation_png_cid,
			zk_proof_cid, elder_pub, signature, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (decision_id) DO NOTHING`

	_, err := r.client.ExecContext(ctx, query,
		rec.DecisionID, rec.ModelID, rec.ModelVersion, string(rec.InputType), rec.InputCommitment,
		string(rec.Outcome), rec.Confidence, rec.ExplanationCID, rec.ExplanationPNGCID,
		rec.ZKProofCID, rec.ElderPub, rec.Signature, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision record: %w", err)
	}
	return nil
}

// Get retrieves a decision by decision_id.
func (r *Repository) Get(ctx context.Context, decisionID string) (*DecisionRecord, error) {
	query := `
		SELECT decision_id, model_id, model_version, input_type, input_commitment,
			outcome, confidence, explanation_cid, explanation_png_cid,
			zk_proof_cid, elder_pub, signature, timestamp
		FROM decision_records
		WHERE decision_id = $1`

	rec := &DecisionRecord{}
	var inputType, outcome string
	err := r.client.QueryRowContext(ctx, query, decisionID).Scan(
		&rec.DecisionID, &rec.ModelID, &rec.ModelVersion, &inputType, &rec.InputCommitment,
		&outcome, &rec.Confidence, &rec.ExplanationCID, &rec.ExplanationPNGCID,
		&rec.ZKProofCID, &rec.ElderPub, &rec.Signature, &rec.Timestamp,
	)
	if err == sql.ErrNoRows {
		return nil, database.ErrDecisionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision record: %w", err)
	}
	rec.InputType = InputType(inputType)
	rec.Outcome = Outcome(outcome)
	return rec, nil
}

// List returns a page of decisions matching filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*DecisionRecord, error) {
	query := `
		SELECT decision_id, model_id, model_version, input_type, input_commitment,
			outcome, confidence, explanation_cid, explanation_png_cid,
			zk_proof_cid, elder_pub, signature, timestamp
		FROM decision_records
		WHERE ($1 = '' OR model_id = $1)
		  AND ($2 = '' OR outcome = $2)
		  AND ($3 = '' OR input_type = $3)
		ORDER BY timestamp DESC
		LIMIT $4 OFFSET $5`

	rows, err := r.client.QueryContext(ctx, query,
		filter.ModelID, string(filter.Outcome), string(filter.InputType), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list decision records: %w", err)
	}
	defer rows.Close()

	var out []*DecisionRecord
	for rows.Next() {
		rec := &DecisionRecord{}
		var inputType, outcome string
		if err := rows.Scan(
			&rec.DecisionID, &rec.ModelID, &rec.ModelVersion, &inputType, &rec.InputCommitment,
			&outcome, &rec.Confidence, &rec.ExplanationCID, &rec.ExplanationPNGCID,
			&rec.ZKProofCID, &rec.ElderPub, &rec.Signature, &rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decision record: %w", err)
		}
		rec.InputType = InputType(inputType)
		rec.Outcome = Outcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AggregateStats computes per-outcome counts and mean confidence for
// records with timestamp >= sinceRFC3339 (ISO-8601 UTC strings compare
// lexicographically in chronological order, so the window is a plain text
// range scan; the cutoff is caller-supplied and inclusive, see SPEC_FULL.md
// §12).
func (r *Repository) AggregateStats(ctx context.Context, sinceRFC3339 string) (*Stats, error) {
	rows, err := r.client.QueryContext(ctx,
		`SELECT outcome, COUNT(*), AVG(confidence) FROM decision_records WHERE timestamp >= $1 GROUP BY outcome`,
		sinceRFC3339)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate decision stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{CountByOutcome: make(map[Outcome]int)}
	var weightedSum float64
	for rows.Next() {
		var outcome string
		var count int
		var mean float64
		if err := rows.Scan(&outcome, &count, &mean); err != nil {
			return nil, fmt.Errorf("failed to scan decision stats: %w", err)
		}
		stats.CountByOutcome[Outcome(outcome)] = count
		stats.Total += count
		weightedSum += mean * float64(count)
	}
	if stats.Total > 0 {
		stats.MeanConfidence = weightedSum / float64(stats.Total)
	}
	return stats, rows.Err()
}
