package ledgerback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/clinchain/clinchain/internal/auditchain"
	"github.com/clinchain/clinchain/internal/canonical"
	"go.uber.org/zap"
)

// FabricBackend represents a future integration with a permissioned
// Hyperledger Fabric network. Until real connectivity lands it fulfils the
// Backend contract locally: every submission is acknowledged as confirmed
// with a synthesized transaction id derived from the entry and channel, so
// resubmission is idempotent.
//
// TODO(fabric): replace the synthesized acknowledgement with a gateway
// submission once channel and chaincode details are settled; "confirmed"
// must then reflect that network's finality semantics.
type FabricBackend struct {
	channel   string
	chaincode string
	logger    *zap.Logger

	mu        sync.Mutex
	byTx      map[string]string // txID → entryID
	nextBlock uint64
}

// NewFabricBackend creates a FabricBackend for the given channel/chaincode.
func NewFabricBackend(channel, chaincode string, logger *zap.Logger) *FabricBackend {
	return &FabricBackend{
		channel:   channel,
		chaincode: chaincode,
		logger:    logger,
		byTx:      make(map[string]string),
	}
}

// Submit implements auditchain.Backend.
func (b *FabricBackend) Submit(_ context.Context, e *auditchain.Entry) (*auditchain.SubmissionResult, error) {
	if e == nil {
		return nil, errors.New("submit: nil entry")
	}

	id := e.EntryID.String()
	txID := "fab-" + canonical.DigestString(b.channel+"|"+b.chaincode+"|"+id)[:32]

	b.mu.Lock()
	if _, seen := b.byTx[txID]; !seen {
		b.nextBlock++
		b.byTx[txID] = id
	}
	block := b.nextBlock
	b.mu.Unlock()

	b.logger.Debug("fabric stub: entry acknowledged",
		zap.String("entry_id", id),
		zap.String("tx_id", txID),
		zap.String("channel", b.channel),
	)

	return &auditchain.SubmissionResult{
		EntryID:     id,
		Status:      auditchain.StatusConfirmed,
		TxID:        txID,
		BlockNumber: block,
	}, nil
}

// Verify implements auditchain.Backend. The stub attests to exactly the
// transaction ids it has issued.
func (b *FabricBackend) Verify(_ context.Context, entryID, txID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	got, ok := b.byTx[txID]
	return ok && got == entryID, nil
}

// GetStatus implements auditchain.Backend.
func (b *FabricBackend) GetStatus(_ context.Context, txID string) (auditchain.SubmissionStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byTx[txID]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTransaction, txID)
	}
	return auditchain.StatusConfirmed, nil
}
