package handler

import (
	"net/http"
	"strconv"

	"github.com/clinchain/clinchain/internal/auditchain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditHandler exposes the audit chain over HTTP: queueing events (authed)
// and read-only chain inspection.
type AuditHandler struct {
	svc    *auditchain.Service
	store  auditchain.EntryStore
	logger *zap.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(svc *auditchain.Service, store auditchain.EntryStore, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{svc: svc, store: store, logger: logger}
}

// Register mounts the audit routes. authed guards the mutating routes.
func (h *AuditHandler) Register(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	g := rg.Group("/audit")
	{
		g.POST("/events", authed, h.QueueEvent)
		g.GET("/entries/:id", h.GetEntry)
		g.GET("/entries", h.ListEntries)
		g.GET("/chain", h.Overview)
		g.GET("/chain/verify", h.VerifyChain)
	}
}

type queueEventRequest struct {
	EventType     string `json:"event_type" binding:"required"`
	ActorID       string `json:"actor_id" binding:"required"`
	ResourceID    string `json:"resource_id" binding:"required"`
	ActionDetails any    `json:"action_details"`
}

// QueueEvent handles POST /audit/events. The entry id is returned as soon as
// the entry is recorded locally; external anchoring happens in the background.
func (h *AuditHandler) QueueEvent(c *gin.Context) {
	var req queueEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	et := auditchain.EventType(req.EventType)
	if !et.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
		return
	}

	id, err := h.svc.Queue(c.Request.Context(), et, req.ActorID, req.ResourceID, req.ActionDetails)
	if err != nil {
		h.logger.Error("queue audit event", zap.String("event_type", req.EventType), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record audit event"})
		return
	}

	RecordAuditEntry()
	c.JSON(http.StatusAccepted, gin.H{"entry_id": id})
}

// GetEntry handles GET /audit/entries/:id.
func (h *AuditHandler) GetEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a UUID"})
		return
	}

	entry, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ListEntries handles GET /audit/entries?limit=&offset=.
func (h *AuditHandler) ListEntries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := h.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list chain entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list entries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "limit": limit, "offset": offset})
}

// Overview handles GET /audit/chain — entry count and the in-process tip.
func (h *AuditHandler) Overview(c *gin.Context) {
	count, err := h.store.Count(c.Request.Context())
	if err != nil {
		h.logger.Error("count chain entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query chain"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": count, "tip": h.svc.Tip()})
}

// VerifyChain handles GET /audit/chain/verify — walks the stored chain and
// reports integrity. A broken chain is a 200 with valid=false.
func (h *AuditHandler) VerifyChain(c *gin.Context) {
	report, err := auditchain.VerifyChain(c.Request.Context(), h.store)
	if err != nil {
		h.logger.Error("verify chain", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify chain"})
		return
	}
	if !report.Valid {
		h.logger.Warn("audit chain integrity check failed", zap.String("detail", report.Detail))
	}
	c.JSON(http.StatusOK, report)
}
