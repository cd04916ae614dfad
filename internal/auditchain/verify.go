package auditchain

import (
	"context"
	"fmt"
)

const verifyPageSize = 500

// ChainReport is the outcome of a full chain walk. An intact chain and a
// broken chain are both valid outcomes of verification; only storage failures
// surface as errors.
type ChainReport struct {
	Valid   bool   `json:"valid"`
	Entries int    `json:"entries"`
	Detail  string `json:"detail,omitempty"`
}

// VerifyChain walks every stored entry in creation order, recomputes each
// digest and checks the linkage.
//
// The stored chain is a sequence of process segments: the first entry created
// by each process lifetime has an empty PrevEntryDigest. Within a segment
// every entry must reference the digest of its immediate predecessor.
func VerifyChain(ctx context.Context, store EntryStore) (*ChainReport, error) {
	var (
		prevDigest string
		total      int
		offset     int
	)

	for {
		page, err := store.List(ctx, verifyPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("verify chain: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for i, e := range page {
			pos := offset + i
			if e.PrevEntryDigest == "" {
				// Segment root: the first entry of a process lifetime.
				prevDigest = EntryDigest(e)
				total++
				continue
			}
			if e.PrevEntryDigest != prevDigest {
				return &ChainReport{
					Valid:   false,
					Entries: pos,
					Detail: fmt.Sprintf(
						"chain broken at entry %s: prev digest %s does not match predecessor digest %s",
						e.EntryID, e.PrevEntryDigest, prevDigest,
					),
				}, nil
			}
			prevDigest = EntryDigest(e)
			total++
		}
		offset += len(page)
	}

	return &ChainReport{Valid: true, Entries: total}, nil
}
