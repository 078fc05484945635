package ledger

import (
	"encoding/json"
	"fmt"
)

// Buckets names the rows of the persisted state table, in write order.
var Buckets = []string{"runs", "stages", "generations"}

// EncodeBucket marshals one bucket of snap.
func EncodeBucket(snap Snapshot, bucket string) ([]byte, error) {
	switch bucket {
	case "runs":
		return json.Marshal(snap.Runs)
	case "stages":
		return json.Marshal(snap.Stages)
	case "generations":
		return json.Marshal(snap.Generations)
	}
	return nil, fmt.Errorf("unknown ledger bucket %q", bucket)
}

// DecodeBucket unmarshals payload into the matching field of snap. Unknown
// buckets are ignored so older binaries can read newer databases.
func DecodeBucket(snap *Snapshot, bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var target any
	switch bucket {
	case "runs":
		target = &snap.Runs
	case "stages":
		target = &snap.Stages
	case "generations":
		target = &snap.Generations
	default:
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
