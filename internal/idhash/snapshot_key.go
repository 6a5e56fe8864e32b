package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSnapshotKey computes a deterministic key for one snapshot row.
// Formula: SHA256(dt_report|account_id|server_id|instrument)
// Returns hex-encoded hash (64 characters).
func ComputeSnapshotKey(dtReport, accountID, serverID, instrument string) string {
	data := fmt.Sprintf("%s|%s|%s|%s", dtReport, accountID, serverID, instrument)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeDigest hashes an arbitrary rendered payload, e.g. a CSV snapshot.
func ComputeDigest(payload []byte) string {
	hash := sha256.Sum256(payload)
	return hex.EncodeToString(hash[:])
}
