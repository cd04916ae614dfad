package freeze

import (
	"fmt"
	"time"

	"github.com/clinchain/clinchain/internal/canonical"
	"github.com/google/uuid"
)

// RootDigest is the sentinel previous-digest of the first anchor in a
// document's chain (64 hex zeros).
const RootDigest = "0000000000000000000000000000000000000000000000000000000000000000"

// Anchor is one immutable snapshot record in a document's freeze chain.
// CurrentDigest is reproducible by any verifier from SnapshotData and
// PrevDigest alone; anchors are never mutated or deleted.
type Anchor struct {
	AnchorID      uuid.UUID      `json:"anchor_id"`
	DocumentID    uuid.UUID      `json:"document_id"`
	VersionNumber int            `json:"version_number"`
	SnapshotData  map[string]any `json:"snapshot_data"`
	PrevDigest    string         `json:"prev_digest"`
	CurrentDigest string         `json:"current_digest"`
	CreatedBy     string         `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
}

// AnchorDigest computes digest(canonical(snapshotData) || prevDigest).
func AnchorDigest(snapshotData map[string]any, prevDigest string) (string, error) {
	b, err := canonical.Encode(snapshotData)
	if err != nil {
		return "", fmt.Errorf("encode snapshot data: %w", err)
	}
	return canonical.Digest(append(b, []byte(prevDigest)...)), nil
}
