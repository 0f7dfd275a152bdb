package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePointID computes a deterministic identifier for one forecast
// point within a run.
// Formula: SHA256(run_id|entity_name|month_index)
// Returns hex-encoded hash (64 characters).
func ComputePointID(runID string, entityName string, monthIndex int) string {
	data := fmt.Sprintf("%s|%s|%d",
		runID,
		entityName,
		monthIndex,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
