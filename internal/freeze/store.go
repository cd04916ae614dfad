package freeze

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a document or anchor does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyFrozen is returned when a freeze or edit targets a document whose
// status is already frozen.
var ErrAlreadyFrozen = errors.New("document already frozen")

// Store is the document/anchor persistence contract consumed by the Service.
//
// CreateAnchor must persist the anchor and flip the document's status to
// frozen as a single atomic unit, serialised per document: two concurrent
// freezes of the same document must not both succeed. Anchor rows are never
// updated or deleted; the document's status fields are the only mutation.
type Store interface {
	CreateDocument(ctx context.Context, d *Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	// UpdateDocument replaces title/body and bumps the version. Returns
	// ErrAlreadyFrozen if the document is frozen.
	UpdateDocument(ctx context.Context, id uuid.UUID, title, body string) (*Document, error)

	CreateAnchor(ctx context.Context, a *Anchor, frozenBy string, frozenAt time.Time) error
	GetAnchor(ctx context.Context, anchorID uuid.UUID) (*Anchor, error)
	// GetAnchorByDigest resolves an anchor by its CurrentDigest; used to walk
	// a chain backwards during verification.
	GetAnchorByDigest(ctx context.Context, digest string) (*Anchor, error)
	// LatestAnchor returns the highest-version anchor for a document, or
	// ErrNotFound if the document has never been frozen.
	LatestAnchor(ctx context.Context, documentID uuid.UUID) (*Anchor, error)
}
