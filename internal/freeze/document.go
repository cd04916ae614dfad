package freeze

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus is the freeze lifecycle of a document. DRAFT → FROZEN is the
// only transition this package performs, and it is one-way.
type DocumentStatus string

const (
	DocumentDraft  DocumentStatus = "draft"
	DocumentFrozen DocumentStatus = "frozen"
)

// Document is a mutable research document (protocol, manuscript, report)
// whose finalized state is captured by snapshot anchors. Status is the only
// field this package ever updates after a freeze.
type Document struct {
	ID        uuid.UUID      `json:"id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Version   int            `json:"version"`
	Status    DocumentStatus `json:"status"`
	CreatedBy string         `json:"created_by"`
	FrozenBy  string         `json:"frozen_by,omitempty"`
	FrozenAt  *time.Time     `json:"frozen_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
