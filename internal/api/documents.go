package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/auditbridge/auditbridge/internal/model"
	"github.com/auditbridge/auditbridge/internal/service/document"
	"github.com/auditbridge/auditbridge/pkg/types"
	"github.com/gin-gonic/gin"
)

func toDocument(d *model.Document) types.Document {
	return types.Document{
		ID:        d.ID,
		Title:     d.Title,
		Body:      d.Body,
		CreatedBy: d.CreatedBy,
		UpdatedBy: d.UpdatedBy,
		OwnerID:   d.OwnerID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func documentID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return 0, false
	}
	return uint(id), true
}

func documentError(c *gin.Context, err error) {
	if errors.Is(err, document.ErrDocumentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// listDocumentsHandler handles GET /api/v0/documents
func (s *Server) listDocumentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := s.documentService.ListDocuments(c.Request.Context())
		if err != nil {
			documentError(c, err)
			return
		}
		resp := make([]types.Document, 0, len(docs))
		for _, d := range docs {
			resp = append(resp, toDocument(d))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// getDocumentHandler handles GET /api/v0/documents/:id
func (s *Server) getDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := documentID(c)
		if !ok {
			return
		}
		doc, err := s.documentService.GetDocument(c.Request.Context(), id)
		if err != nil {
			documentError(c, err)
			return
		}
		c.JSON(http.StatusOK, toDocument(doc))
	}
}

// createDocumentHandler handles POST /api/v0/documents
func (s *Server) createDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.CreateDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
			return
		}
		doc, err := s.documentService.CreateDocument(c.Request.Context(), req.Title, req.Body)
		if err != nil {
			documentError(c, err)
			return
		}
		c.JSON(http.StatusCreated, toDocument(doc))
	}
}

// updateDocumentHandler handles PATCH /api/v0/documents/:id
func (s *Server) updateDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := documentID(c)
		if !ok {
			return
		}
		var req types.UpdateDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
			return
		}
		doc, err := s.documentService.UpdateDocument(c.Request.Context(), id, req.Title, req.Body)
		if err != nil {
			documentError(c, err)
			return
		}
		c.JSON(http.StatusOK, toDocument(doc))
	}
}

// deleteDocumentHandler handles DELETE /api/v0/documents/:id
func (s *Server) deleteDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := documentID(c)
		if !ok {
			return
		}
		if err := s.documentService.DeleteDocument(c.Request.Context(), id); err != nil {
			documentError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// documentHistoryHandler handles GET /api/v0/documents/:id/history
func (s *Server) documentHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := documentID(c)
		if !ok {
			return
		}
		limit, ok := limitParam(c)
		if !ok {
			return
		}
		entries, err := s.documentService.History(c.Request.Context(), id, limit)
		if err != nil {
			documentError(c, err)
			return
		}
		c.JSON(http.StatusOK, toLogEntries(entries))
	}
}
