// Package freeze produces verifiable, write-once snapshots of mutable
// research documents.
//
// Each freeze creates one immutable anchor whose digest binds the snapshot
// to the document's previous anchor (or to the sentinel root for a first
// freeze). Verification recomputes the digest from stored data alone and
// walks the linkage, so any retroactive edit to a persisted snapshot is
// detectable.
package freeze

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinchain/clinchain/internal/auditchain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// auditor is the audit-chain hook consumed by the Service. Freeze events are
// recorded best-effort: a failing auditor never fails the freeze.
type auditor interface {
	Queue(ctx context.Context, eventType auditchain.EventType, actorID, resourceID string, actionDetails any) (uuid.UUID, error)
}

// VerifyResult reports the outcome of anchor verification. A broken chain is
// data, not an error.
type VerifyResult struct {
	Valid    bool      `json:"valid"`
	AnchorID uuid.UUID `json:"anchor_id"`
	Detail   string    `json:"detail,omitempty"`
}

// Service implements document freezing and anchor verification. It holds no
// cross-call chain state: the previous anchor is always looked up from the
// store, so multiple service instances sharing one store freeze safely.
type Service struct {
	store  Store
	audit  auditor // may be nil
	logger *zap.Logger
}

// NewService creates a freeze service. audit may be nil to disable audit
// events (tests, tooling).
func NewService(store Store, audit auditor, logger *zap.Logger) *Service {
	return &Service{store: store, audit: audit, logger: logger}
}

// CreateDocument creates a new draft document owned by actorID.
func (s *Service) CreateDocument(ctx context.Context, title, body, actorID string) (*Document, error) {
	now := time.Now().UTC()
	d := &Document{
		ID:        uuid.New(),
		Title:     title,
		Body:      body,
		Version:   1,
		Status:    DocumentDraft,
		CreatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateDocument(ctx, d); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.recordAudit(ctx, auditchain.EventResearchCreated, actorID, d.ID.String(), map[string]any{
		"action":  "document_created",
		"version": d.Version,
	})
	return d, nil
}

// GetDocument returns a document by id.
func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.store.GetDocument(ctx, id)
}

// UpdateDocument replaces a draft document's title and body, bumping its
// version. Frozen documents reject edits with ErrAlreadyFrozen.
func (s *Service) UpdateDocument(ctx context.Context, id uuid.UUID, title, body, actorID string) (*Document, error) {
	d, err := s.store.UpdateDocument(ctx, id, title, body)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, auditchain.EventDataUpload, actorID, d.ID.String(), map[string]any{
		"action":  "document_updated",
		"version": d.Version,
	})
	return d, nil
}

// Freeze captures a point-in-time snapshot of the document and flips it to
// the frozen terminal state. Returns ErrNotFound if the document is absent
// and ErrAlreadyFrozen if it was frozen before or during the call.
func (s *Service) Freeze(ctx context.Context, documentID uuid.UUID, actorID string) (*Anchor, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == DocumentFrozen {
		return nil, ErrAlreadyFrozen
	}

	prevDigest := RootDigest
	switch last, err := s.store.LatestAnchor(ctx, documentID); {
	case err == nil:
		prevDigest = last.CurrentDigest
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("load latest anchor: %w", err)
	}

	now := time.Now().UTC()
	snapshot := map[string]any{
		"document_id": doc.ID.String(),
		"title":       doc.Title,
		"body":        doc.Body,
		"version":     doc.Version,
		"created_by":  doc.CreatedBy,
		"frozen_at":   now.Format(time.RFC3339Nano),
		"frozen_by":   actorID,
	}

	currentDigest, err := AnchorDigest(snapshot, prevDigest)
	if err != nil {
		return nil, err
	}

	anchor := &Anchor{
		AnchorID:      uuid.New(),
		DocumentID:    doc.ID,
		VersionNumber: doc.Version,
		SnapshotData:  snapshot,
		PrevDigest:    prevDigest,
		CurrentDigest: currentDigest,
		CreatedBy:     actorID,
		CreatedAt:     now,
	}

	if err := s.store.CreateAnchor(ctx, anchor, actorID, now); err != nil {
		if errors.Is(err, ErrAlreadyFrozen) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("persist anchor: %w", err)
	}

	s.recordAudit(ctx, auditchain.EventManuscriptGenerated, actorID, doc.ID.String(), map[string]any{
		"action":    "document_frozen",
		"anchor_id": anchor.AnchorID.String(),
		"version":   anchor.VersionNumber,
	})
	return anchor, nil
}

// Verify recomputes an anchor's digest from its stored snapshot and checks
// that its predecessor exists. A digest mismatch and a missing predecessor
// are reported as distinct invalid outcomes.
func (s *Service) Verify(ctx context.Context, anchorID uuid.UUID) (*VerifyResult, error) {
	a, err := s.store.GetAnchor(ctx, anchorID)
	if err != nil {
		return nil, err
	}

	recomputed, err := AnchorDigest(a.SnapshotData, a.PrevDigest)
	if err != nil {
		return nil, err
	}
	if recomputed != a.CurrentDigest {
		return &VerifyResult{
			AnchorID: a.AnchorID,
			Detail: fmt.Sprintf("digest mismatch: stored %s, recomputed %s",
				a.CurrentDigest, recomputed),
		}, nil
	}

	if a.PrevDigest != RootDigest {
		if _, err := s.store.GetAnchorByDigest(ctx, a.PrevDigest); err != nil {
			if errors.Is(err, ErrNotFound) {
				return &VerifyResult{
					AnchorID: a.AnchorID,
					Detail:   fmt.Sprintf("predecessor not found: no anchor with digest %s", a.PrevDigest),
				}, nil
			}
			return nil, err
		}
	}

	return &VerifyResult{Valid: true, AnchorID: a.AnchorID}, nil
}

// Latest returns the highest-version anchor for a document, or ErrNotFound
// if the document has never been frozen.
func (s *Service) Latest(ctx context.Context, documentID uuid.UUID) (*Anchor, error) {
	return s.store.LatestAnchor(ctx, documentID)
}

func (s *Service) recordAudit(ctx context.Context, et auditchain.EventType, actorID, resourceID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Queue(ctx, et, actorID, resourceID, details); err != nil {
		s.logger.Warn("audit event not recorded",
			zap.String("event_type", string(et)),
			zap.Error(err),
		)
	}
}
