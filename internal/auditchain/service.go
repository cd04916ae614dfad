// Package auditchain implements the process-wide, append-only audit event
// chain.
//
// Every entry carries the digest of its predecessor, computed at append time,
// so retroactive edits made through the normal write path are detectable by
// VerifyChain. Sensitive caller-supplied values (actor, resource, action
// details) are digested before they touch the entry; the chain anchors the
// fact that something happened without recording what the raw values were.
package auditchain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clinchain/clinchain/internal/canonical"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSubmitTimeout = 10 * time.Second

// Config carries the startup-time settings for the Service.
type Config struct {
	// Mode and Origin are stamped into each entry's metadata.
	Mode   string
	Origin string
	// SubmitTimeout bounds each backend submission. Zero means the default.
	SubmitTimeout time.Duration
}

// Service builds chain-linked audit entries and hands them to the configured
// backend without blocking the caller. The service exclusively owns the
// in-process chain tip for its lifetime, so entries created through one
// Service instance form a single strictly ordered chain.
type Service struct {
	store   EntryStore
	backend Backend
	cfg     Config
	logger  *zap.Logger

	mu  sync.Mutex
	tip string // digest of the most recently created entry; empty before the first

	// qmu serialises create+insert in Queue so a failed insert can roll the
	// tip back before any successor chains onto the unpersisted digest.
	qmu sync.Mutex

	wg sync.WaitGroup // in-flight background submissions

	onSubmission func(*SubmissionResult) // optional observability hook
}

// NewService creates an audit chain service.
func NewService(store EntryStore, backend Backend, cfg Config, logger *zap.Logger) *Service {
	if cfg.SubmitTimeout == 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	if cfg.Mode == "" {
		cfg.Mode = "production"
	}
	if cfg.Origin == "" {
		cfg.Origin = "clinchain"
	}
	return &Service{store: store, backend: backend, cfg: cfg, logger: logger}
}

// SetSubmissionHook configures a callback invoked with the result of every
// background submission. Used for metrics; must not block.
func (s *Service) SetSubmissionHook(fn func(*SubmissionResult)) {
	s.onSubmission = fn
}

// Tip returns the digest of the most recently created entry, or the empty
// string if no entry has been created by this instance.
func (s *Service) Tip() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tip
}

// CreateEntry builds a chain-linked entry from caller-supplied identifiers.
// actorID, resourceID and actionDetails are digested immediately and never
// retained. The entry links to the current chain tip and the tip advances to
// the new entry's digest before the call returns. Pure CPU work, no I/O.
func (s *Service) CreateEntry(eventType EventType, actorID, resourceID string, actionDetails any) (*Entry, error) {
	if !eventType.Valid() {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	actionDigest, err := canonical.DigestValue(actionDetails)
	if err != nil {
		return nil, fmt.Errorf("digest action details: %w", err)
	}

	e := &Entry{
		EntryID: uuid.New(),
		// Microsecond precision, matching what the datastore retains.
		Timestamp:      time.Now().UTC().Truncate(time.Microsecond),
		EventType:      eventType,
		ActorDigest:    canonical.DigestString(actorID),
		ResourceDigest: canonical.DigestString(resourceID),
		ActionDigest:   actionDigest,
		Metadata: Metadata{
			Mode:          s.cfg.Mode,
			SchemaVersion: SchemaVersion,
			Origin:        s.cfg.Origin,
		},
	}

	// Read-then-advance under the lock so no two entries observe the same tip.
	s.mu.Lock()
	e.PrevEntryDigest = s.tip
	s.tip = EntryDigest(e)
	s.mu.Unlock()

	return e, nil
}

// SubmitEntry sends an entry to the configured backend with a bounded timeout.
// Backend failure of any kind is converted into a failed result; callers are
// never blocked on, or crashed by, ledger unavailability.
func (s *Service) SubmitEntry(ctx context.Context, e *Entry) *SubmissionResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SubmitTimeout)
	defer cancel()

	res, err := s.backend.Submit(ctx, e)
	if err != nil {
		return &SubmissionResult{
			EntryID: e.EntryID.String(),
			Status:  StatusFailed,
			Err:     err.Error(),
		}
	}
	return res
}

// Queue is the primary entry point for recording an auditable action. The
// entry is created and persisted on the caller's path; external anchoring is
// dispatched in the background and its outcome is only logged. The returned
// id is usable immediately.
//
// The tip only stays advanced if the entry reached the store. On insert
// failure it is rolled back, so the next persisted entry chains onto the last
// persisted one rather than onto a digest the store never saw.
func (s *Service) Queue(ctx context.Context, eventType EventType, actorID, resourceID string, actionDetails any) (uuid.UUID, error) {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	e, err := s.CreateEntry(eventType, actorID, resourceID, actionDetails)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.store.Insert(ctx, e); err != nil {
		s.mu.Lock()
		s.tip = e.PrevEntryDigest
		s.mu.Unlock()
		return uuid.Nil, fmt.Errorf("insert chain entry: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Detached from the request context: the submission outlives the call.
		res := s.SubmitEntry(context.Background(), e)
		if s.onSubmission != nil {
			s.onSubmission(res)
		}
		if res.Status == StatusFailed {
			s.logger.Warn("ledger submission failed",
				zap.String("entry_id", res.EntryID),
				zap.String("error", res.Err),
			)
			return
		}
		s.logger.Debug("ledger submission accepted",
			zap.String("entry_id", res.EntryID),
			zap.String("status", string(res.Status)),
			zap.String("tx_id", res.TxID),
		)
	}()

	return e.EntryID, nil
}

// Drain blocks until all in-flight background submissions finish or ctx
// expires. Used during shutdown.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain submissions: %w", ctx.Err())
	}
}
