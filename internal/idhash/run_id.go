// Package idhash derives the deterministic identifiers used across
// runs. Hashing the run parameters instead of generating random IDs
// keeps replays addressable: the same inputs always name the same run.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(started_at_ms|model_id|horizon|entity,entity,...)
// Entities are sorted first so request order never changes the
// identity. Returns a base58-encoded hash.
func ComputeRunID(startedAtMs int64, modelID string, horizon int, entities []string) string {
	sorted := append([]string(nil), entities...)
	sort.Strings(sorted)

	data := fmt.Sprintf("%d|%s|%d|%s",
		startedAtMs,
		modelID,
		horizon,
		strings.Join(sorted, ","),
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
