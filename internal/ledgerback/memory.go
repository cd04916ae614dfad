package ledgerback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/clinchain/clinchain/internal/auditchain"
	"github.com/google/uuid"
)

// ErrUnknownTransaction is returned by GetStatus for a transaction id the
// backend has never issued.
var ErrUnknownTransaction = errors.New("unknown transaction")

type memoryRecord struct {
	txID  string
	block uint64
}

// MemoryBackend is an in-process, thread-safe Backend. Each submitted entry
// receives a locally assigned transaction id and a monotonically increasing
// block number.
type MemoryBackend struct {
	mu        sync.RWMutex
	records   map[string]memoryRecord // entryID → record
	byTx      map[string]string       // txID → entryID
	nextBlock uint64
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]memoryRecord),
		byTx:    make(map[string]string),
	}
}

// Submit implements auditchain.Backend. Resubmitting an entry returns the
// original transaction reference rather than anchoring it twice.
func (b *MemoryBackend) Submit(_ context.Context, e *auditchain.Entry) (*auditchain.SubmissionResult, error) {
	if e == nil {
		return nil, errors.New("submit: nil entry")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := e.EntryID.String()
	rec, ok := b.records[id]
	if !ok {
		b.nextBlock++
		rec = memoryRecord{
			txID:  "mem-" + uuid.New().String(),
			block: b.nextBlock,
		}
		b.records[id] = rec
		b.byTx[rec.txID] = id
	}

	return &auditchain.SubmissionResult{
		EntryID:     id,
		Status:      auditchain.StatusConfirmed,
		TxID:        rec.txID,
		BlockNumber: rec.block,
	}, nil
}

// Verify implements auditchain.Backend.
func (b *MemoryBackend) Verify(_ context.Context, entryID, txID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.records[entryID]
	return ok && rec.txID == txID, nil
}

// GetStatus implements auditchain.Backend.
func (b *MemoryBackend) GetStatus(_ context.Context, txID string) (auditchain.SubmissionStatus, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.byTx[txID]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTransaction, txID)
	}
	return auditchain.StatusConfirmed, nil
}
