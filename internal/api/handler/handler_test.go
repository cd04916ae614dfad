package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clinchain/clinchain/internal/api/handler"
	"github.com/clinchain/clinchain/internal/auditchain"
	"github.com/clinchain/clinchain/internal/freeze"
	"github.com/clinchain/clinchain/internal/identity"
	"github.com/clinchain/clinchain/internal/ledgerback"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	entryStore := auditchain.NewMemoryStore()
	auditSvc := auditchain.NewService(entryStore, ledgerback.NewMemoryBackend(),
		auditchain.Config{Mode: "test", Origin: "handler-test"}, logger)
	freezeSvc := freeze.NewService(freeze.NewMemoryStore(), auditSvc, logger)

	issuer, err := identity.NewTokenIssuer([]byte("test-secret"), "http://test", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, err := issuer.Issue("tester", []string{"write"})
	if err != nil {
		t.Fatal(err)
	}

	router := gin.New()
	v1 := router.Group("/api/v1")
	authed := handler.RequireToken(issuer)
	handler.NewAuditHandler(auditSvc, entryStore, logger).Register(v1, authed)
	handler.NewDocumentHandler(freezeSvc, logger).Register(v1, authed)

	return router, token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestQueueEvent_accepted(t *testing.T) {
	router, token := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/audit/events", token, map[string]any{
		"event_type":     "data_upload",
		"actor_id":       "user-42",
		"resource_id":    "dataset-7",
		"action_details": map[string]any{"rows": 120},
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if decode(t, w)["entry_id"] == "" {
		t.Error("response missing entry_id")
	}
}

func TestQueueEvent_requiresToken(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/v1/audit/events", "", map[string]any{
		"event_type": "data_upload", "actor_id": "a", "resource_id": "r",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestQueueEvent_unknownType(t *testing.T) {
	router, token := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/v1/audit/events", token, map[string]any{
		"event_type": "bogus", "actor_id": "a", "resource_id": "r",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestChainOverviewAndVerify(t *testing.T) {
	router, token := newTestRouter(t)

	for i := 0; i < 3; i++ {
		w := doJSON(t, router, http.MethodPost, "/api/v1/audit/events", token, map[string]any{
			"event_type": "system_event", "actor_id": "sys", "resource_id": "none",
		})
		if w.Code != http.StatusAccepted {
			t.Fatalf("seed event %d: status %d", i, w.Code)
		}
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/audit/chain", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["entries"].(float64) != 3 {
		t.Errorf("entries = %v, want 3", body["entries"])
	}
	if body["tip"] == "" {
		t.Error("missing chain tip")
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/audit/chain/verify", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify status = %d", w.Code)
	}
	if valid, _ := decode(t, w)["valid"].(bool); !valid {
		t.Errorf("chain reported invalid: %s", w.Body.String())
	}
}

func TestDocumentLifecycle(t *testing.T) {
	router, token := newTestRouter(t)

	// Create.
	w := doJSON(t, router, http.MethodPost, "/api/v1/documents", token, map[string]any{
		"title": "Study Protocol", "body": "v1 body",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	docID := decode(t, w)["id"].(string)

	// Freeze.
	w = doJSON(t, router, http.MethodPost, "/api/v1/documents/"+docID+"/freeze", token, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("freeze status = %d, body = %s", w.Code, w.Body.String())
	}
	anchorID := decode(t, w)["anchor_id"].(string)

	// Second freeze conflicts.
	w = doJSON(t, router, http.MethodPost, "/api/v1/documents/"+docID+"/freeze", token, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("second freeze status = %d, want 409", w.Code)
	}

	// Edits against the frozen document are rejected.
	w = doJSON(t, router, http.MethodPatch, "/api/v1/documents/"+docID, token, map[string]any{
		"title": "new", "body": "new",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("update status = %d, want 409", w.Code)
	}

	// Anchor verifies.
	w = doJSON(t, router, http.MethodGet, "/api/v1/anchors/"+anchorID+"/verify", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify status = %d", w.Code)
	}
	if valid, _ := decode(t, w)["valid"].(bool); !valid {
		t.Errorf("anchor invalid: %s", w.Body.String())
	}

	// Latest anchor matches.
	w = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+docID+"/anchors/latest", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("latest status = %d", w.Code)
	}
	if decode(t, w)["anchor_id"].(string) != anchorID {
		t.Error("latest anchor mismatch")
	}
}

func TestFreeze_missingDocument(t *testing.T) {
	router, token := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/v1/documents/00000000-0000-0000-0000-000000000001/freeze", token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetEntry_badID(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/v1/audit/entries/not-a-uuid", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
