package auditchain

import "context"

// SubmissionStatus is the lifecycle of one external anchoring attempt. It is
// a projection of the backend call, never part of the entry itself.
type SubmissionStatus string

const (
	StatusPending   SubmissionStatus = "pending"
	StatusSubmitted SubmissionStatus = "submitted"
	StatusConfirmed SubmissionStatus = "confirmed"
	StatusFailed    SubmissionStatus = "failed"
)

// SubmissionResult describes the outcome of one submission attempt.
type SubmissionResult struct {
	EntryID     string           `json:"entry_id"`
	Status      SubmissionStatus `json:"status"`
	TxID        string           `json:"tx_id,omitempty"`
	BlockNumber uint64           `json:"block_number,omitempty"`
	Err         string           `json:"error,omitempty"`
}

// Backend anchors chain entries in an external system of record.
// Implementations live in internal/ledgerback; which one is wired in is a
// startup configuration decision.
//
// Submit reports business-level failures (network down, rejection, timeout)
// through the result's Status and Err fields. The error return is reserved
// for programming mistakes such as a nil entry.
type Backend interface {
	Submit(ctx context.Context, e *Entry) (*SubmissionResult, error)

	// Verify reports whether the backend still attests to entryID under the
	// given transaction reference.
	Verify(ctx context.Context, entryID, txID string) (bool, error)

	// GetStatus polls the confirmation state of a prior submission. Backends
	// with eventual finality may report StatusSubmitted before StatusConfirmed.
	GetStatus(ctx context.Context, txID string) (SubmissionStatus, error)
}
