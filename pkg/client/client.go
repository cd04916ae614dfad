// Package client provides a Go client for the clinchain HTTP API: queueing
// audit events, managing documents, and verifying chains and anchors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Entry mirrors the audit chain entry returned by the API.
type Entry struct {
	EntryID         string         `json:"entry_id"`
	Timestamp       time.Time      `json:"timestamp"`
	EventType       string         `json:"event_type"`
	ActorDigest     string         `json:"actor_digest"`
	ResourceDigest  string         `json:"resource_digest"`
	ActionDigest    string         `json:"action_digest"`
	PrevEntryDigest string         `json:"prev_entry_digest,omitempty"`
	Metadata        map[string]any `json:"metadata"`
}

// Document mirrors the document resource.
type Document struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Version   int        `json:"version"`
	Status    string     `json:"status"`
	CreatedBy string     `json:"created_by"`
	FrozenBy  string     `json:"frozen_by,omitempty"`
	FrozenAt  *time.Time `json:"frozen_at,omitempty"`
}

// Anchor mirrors the snapshot anchor resource.
type Anchor struct {
	AnchorID      string         `json:"anchor_id"`
	DocumentID    string         `json:"document_id"`
	VersionNumber int            `json:"version_number"`
	SnapshotData  map[string]any `json:"snapshot_data"`
	PrevDigest    string         `json:"prev_digest"`
	CurrentDigest string         `json:"current_digest"`
	CreatedBy     string         `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
}

// VerifyResult mirrors a verification outcome for an anchor.
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	AnchorID string `json:"anchor_id"`
	Detail   string `json:"detail,omitempty"`
}

// ChainReport mirrors a full-chain verification report.
type ChainReport struct {
	Valid   bool   `json:"valid"`
	Entries int    `json:"entries"`
	Detail  string `json:"detail,omitempty"`
}

// ChainStatus is the chain overview: stored entry count and in-process tip.
type ChainStatus struct {
	Entries int    `json:"entries"`
	Tip     string `json:"tip"`
}

// Client talks to a clinchain service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer service token used for mutating calls.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueueEvent records an audit event and returns the new entry id.
func (c *Client) QueueEvent(ctx context.Context, eventType, actorID, resourceID string, actionDetails any) (string, error) {
	var out struct {
		EntryID string `json:"entry_id"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/audit/events", map[string]any{
		"event_type":     eventType,
		"actor_id":       actorID,
		"resource_id":    resourceID,
		"action_details": actionDetails,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.EntryID, nil
}

// GetEntry fetches a single chain entry.
func (c *Client) GetEntry(ctx context.Context, entryID string) (*Entry, error) {
	var out Entry
	if err := c.do(ctx, http.MethodGet, "/api/v1/audit/entries/"+entryID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChainStatus returns the chain overview.
func (c *Client) ChainStatus(ctx context.Context) (*ChainStatus, error) {
	var out ChainStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/audit/chain", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyChain walks the stored audit chain server-side.
func (c *Client) VerifyChain(ctx context.Context) (*ChainReport, error) {
	var out ChainReport
	if err := c.do(ctx, http.MethodGet, "/api/v1/audit/chain/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDocument creates a draft document.
func (c *Client) CreateDocument(ctx context.Context, title, body string) (*Document, error) {
	var out Document
	err := c.do(ctx, http.MethodPost, "/api/v1/documents", map[string]any{
		"title": title,
		"body":  body,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDocument fetches a document by id.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	var out Document
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDocument replaces a draft document's title and body.
func (c *Client) UpdateDocument(ctx context.Context, id, title, body string) (*Document, error) {
	var out Document
	err := c.do(ctx, http.MethodPatch, "/api/v1/documents/"+id, map[string]any{
		"title": title,
		"body":  body,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Freeze freezes a document and returns its new anchor.
func (c *Client) Freeze(ctx context.Context, documentID string) (*Anchor, error) {
	var out Anchor
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents/"+documentID+"/freeze", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LatestAnchor returns a document's most recent anchor.
func (c *Client) LatestAnchor(ctx context.Context, documentID string) (*Anchor, error) {
	var out Anchor
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents/"+documentID+"/anchors/latest", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyAnchor verifies a snapshot anchor server-side.
func (c *Client) VerifyAnchor(ctx context.Context, anchorID string) (*VerifyResult, error) {
	var out VerifyResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/anchors/"+anchorID+"/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
			if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
				msg = apiErr.Error
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
