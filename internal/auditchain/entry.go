package auditchain

import (
	"fmt"
	"time"

	"github.com/clinchain/clinchain/internal/canonical"
	"github.com/google/uuid"
)

// SchemaVersion is stamped into every entry's metadata so that future changes
// to the digest discipline can be versioned rather than silently breaking
// old chains.
const SchemaVersion = "1.0"

// EventType classifies an auditable action. The set is closed: entries with
// an unknown type are rejected at creation.
type EventType string

const (
	EventDataUpload          EventType = "data_upload"
	EventClassification      EventType = "classification"
	EventPHIScan             EventType = "phi_scan"
	EventPHIReveal           EventType = "phi_reveal"
	EventApprovalGranted     EventType = "approval_granted"
	EventApprovalDenied      EventType = "approval_denied"
	EventExportRequested     EventType = "export_requested"
	EventExportCompleted     EventType = "export_completed"
	EventManuscriptGenerated EventType = "manuscript_generated"
	EventResearchCreated     EventType = "research_created"
	EventConfigChanged       EventType = "config_changed"
	EventSystem              EventType = "system_event"
)

// Valid reports whether t is a member of the closed event-type set.
func (t EventType) Valid() bool {
	switch t {
	case EventDataUpload, EventClassification, EventPHIScan, EventPHIReveal,
		EventApprovalGranted, EventApprovalDenied, EventExportRequested,
		EventExportCompleted, EventManuscriptGenerated, EventResearchCreated,
		EventConfigChanged, EventSystem:
		return true
	}
	return false
}

// Metadata carries non-chained descriptive tags recorded alongside an entry.
type Metadata struct {
	Mode          string `json:"mode"`
	SchemaVersion string `json:"schema_version"`
	Origin        string `json:"origin"`
}

// Entry is a single audit record in the event chain. The Actor, Resource and
// Action fields hold digests of the caller-supplied values; the raw values are
// never stored, logged, or transmitted. Entries are immutable once created.
type Entry struct {
	EntryID         uuid.UUID `json:"entry_id"`
	Timestamp       time.Time `json:"timestamp"`
	EventType       EventType `json:"event_type"`
	ActorDigest     string    `json:"actor_digest"`
	ResourceDigest  string    `json:"resource_digest"`
	ActionDigest    string    `json:"action_digest"`
	PrevEntryDigest string    `json:"prev_entry_digest,omitempty"`
	Metadata        Metadata  `json:"metadata"`
}

// digestTimeLayout is the timestamp format hashed into the entry digest.
// Fixed-width microseconds: timestamptz keeps microsecond precision, so an
// entry read back from the store digests identically to the one that was
// chained. Finer precision here would break verification after a round trip.
const digestTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// EntryDigest computes the deterministic digest of an entry's chained fields.
// The field order, separator, and timestamp precision are fixed; changing any
// of them invalidates every previously recorded chain.
func EntryDigest(e *Entry) string {
	s := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		e.EntryID, e.Timestamp.UTC().Format(digestTimeLayout), e.EventType,
		e.ActorDigest, e.ResourceDigest, e.ActionDigest, e.PrevEntryDigest,
	)
	return canonical.Digest([]byte(s))
}
