package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clinchain/clinchain/pkg/client"
)

var ctx = context.Background()

func TestQueueEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/audit/events" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["event_type"] != "phi_scan" {
			t.Errorf("event_type = %v", body["event_type"])
		}

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"entry_id": "e-1"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithToken("tok"))
	id, err := c.QueueEvent(ctx, "phi_scan", "user-1", "dataset-1", map[string]any{"hits": 0})
	if err != nil {
		t.Fatal(err)
	}
	if id != "e-1" {
		t.Errorf("entry id = %q", id)
	}
}

func TestFreezeAndVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/documents/d-1/freeze":
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"anchor_id":      "a-1",
				"document_id":    "d-1",
				"version_number": 1,
				"prev_digest":    "00",
				"current_digest": "ff",
			})
		case "/api/v1/anchors/a-1/verify":
			json.NewEncoder(w).Encode(map[string]any{"valid": true, "anchor_id": "a-1"}) //nolint:errcheck
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithToken("tok"))

	anchor, err := c.Freeze(ctx, "d-1")
	if err != nil {
		t.Fatal(err)
	}
	if anchor.AnchorID != "a-1" || anchor.VersionNumber != 1 {
		t.Errorf("anchor = %+v", anchor)
	}

	res, err := c.VerifyAnchor(ctx, "a-1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid {
		t.Error("expected valid anchor")
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "document already frozen"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.Freeze(ctx, "d-1")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "document already frozen" {
		t.Errorf("message = %q", apiErr.Message)
	}
}
