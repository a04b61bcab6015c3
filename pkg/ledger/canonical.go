package ledger

import (
	"encoding/json"
	"sort"
)

// canonicalRecordBytes produces the sorted-key, no-whitespace JSON of a
// DecisionRecord's fields minus Signature, the bytes the operator key signs.
// Unlike pkg/canonical (which hand-builds bytes to avoid uint64 precision
// loss), every field here is already a string or a float64 well within
// JSON's safe integer range, so stdlib encoding/json plus a sorted map is
// sufficient.
func canonicalRecordBytes(r DecisionRecord) ([]byte, error) {
	fields := map[string]interface{}{
		"decision_id":      r.DecisionID,
		"model_id":         r.ModelID,
		"model_version":    r.ModelVersion,
		"input_type":       string(r.InputType),
		"input_commitment": r.InputCommitment,
		"outcome":          string(r.Outcome),
		"confidence":       r.Confidence,
		"elder_pub":        r.ElderPub,
		"timestamp":        r.Timestamp,
	}
	fields["explanation_cid"] = cidOrNull(r.ExplanationCID)
	fields["explanation_png_cid"] = cidOrNull(r.ExplanationPNGCID)
	fields["zk_proof_cid"] = cidOrNull(r.ZKProofCID)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make(map[string]interface{}, len(fields))
	for _, k := range keys {
		ordered[k] = fields[k]
	}
	return json.Marshal(ordered)
}

func cidOrNull(cid *string) interface{} {
	if cid == nil {
		return nil
	}
	return *cid
}
