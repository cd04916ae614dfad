package handler

import (
	"errors"
	"net/http"

	"github.com/clinchain/clinchain/internal/freeze"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentHandler exposes document lifecycle and freeze-chain endpoints.
type DocumentHandler struct {
	svc    *freeze.Service
	logger *zap.Logger
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(svc *freeze.Service, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, logger: logger}
}

// Register mounts the document and anchor routes. authed guards mutations.
func (h *DocumentHandler) Register(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	d := rg.Group("/documents")
	{
		d.POST("", authed, h.Create)
		d.GET("/:id", h.Get)
		d.PATCH("/:id", authed, h.Update)
		d.POST("/:id/freeze", authed, h.Freeze)
		d.GET("/:id/anchors/latest", h.LatestAnchor)
	}
	rg.GET("/anchors/:id/verify", h.VerifyAnchor)
}

type createDocumentRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}

// Create handles POST /documents.
func (h *DocumentHandler) Create(c *gin.Context) {
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.svc.CreateDocument(c.Request.Context(), req.Title, req.Body, Actor(c))
	if err != nil {
		h.logger.Error("create document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create document"})
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// Get handles GET /documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	doc, err := h.svc.GetDocument(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, freeze.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		h.logger.Error("get document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

type updateDocumentRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}

// Update handles PATCH /documents/:id. Frozen documents return 409.
func (h *DocumentHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.svc.UpdateDocument(c.Request.Context(), id, req.Title, req.Body, Actor(c))
	if err != nil {
		switch {
		case errors.Is(err, freeze.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		case errors.Is(err, freeze.ErrAlreadyFrozen):
			c.JSON(http.StatusConflict, gin.H{"error": "document is frozen and cannot be edited"})
		default:
			h.logger.Error("update document", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update document"})
		}
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Freeze handles POST /documents/:id/freeze.
func (h *DocumentHandler) Freeze(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	anchor, err := h.svc.Freeze(c.Request.Context(), id, Actor(c))
	if err != nil {
		switch {
		case errors.Is(err, freeze.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		case errors.Is(err, freeze.ErrAlreadyFrozen):
			c.JSON(http.StatusConflict, gin.H{"error": "document already frozen"})
		default:
			h.logger.Error("freeze document", zap.String("document_id", id.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to freeze document"})
		}
		return
	}
	RecordFreeze()
	c.JSON(http.StatusCreated, anchor)
}

// LatestAnchor handles GET /documents/:id/anchors/latest.
func (h *DocumentHandler) LatestAnchor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	anchor, err := h.svc.Latest(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, freeze.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document has no anchors"})
			return
		}
		h.logger.Error("latest anchor", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load anchor"})
		return
	}
	c.JSON(http.StatusOK, anchor)
}

// VerifyAnchor handles GET /anchors/:id/verify. Invalid anchors are a 200
// with valid=false; only a missing anchor is a 404.
func (h *DocumentHandler) VerifyAnchor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	res, err := h.svc.Verify(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, freeze.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "anchor not found"})
			return
		}
		h.logger.Error("verify anchor", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify anchor"})
		return
	}
	if !res.Valid {
		h.logger.Warn("anchor verification failed",
			zap.String("anchor_id", res.AnchorID.String()),
			zap.String("detail", res.Detail),
		)
	}
	c.JSON(http.StatusOK, res)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}
