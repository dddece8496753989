package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/auditbridge/auditbridge/internal/loggable"
	"github.com/auditbridge/auditbridge/internal/model"
	"github.com/auditbridge/auditbridge/pkg/types"
	"github.com/gin-gonic/gin"
)

func toLogEntries(entries []model.LogEntry) types.ListLogEntriesResponse {
	resp := types.ListLogEntriesResponse{Entries: make([]types.LogEntry, 0, len(entries)), Count: len(entries)}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, types.LogEntry{
			ID:          e.ID,
			Action:      e.Action,
			LoggedAt:    e.LoggedAt,
			ObjectClass: e.ObjectClass,
			ObjectID:    e.ObjectID,
			Version:     e.Version,
			Data:        json.RawMessage(e.Data),
			Username:    e.Username,
			IPAddress:   e.IPAddress,
		})
	}
	return resp
}

// limitParam reads the optional "limit" query parameter (1-1000).
func limitParam(c *gin.Context) (int, bool) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter (must be 1-1000)"})
		return 0, false
	}
	return limit, true
}

// listLogEntriesHandler handles GET /api/v0/log-entries
func (s *Server) listLogEntriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := limitParam(c)
		if !ok {
			return
		}
		filters := loggable.Filters{
			ObjectClass: c.Query("object_class"),
			Action:      c.Query("action"),
			Username:    c.Query("username"),
		}
		entries, err := s.logEntries.ListAll(c.Request.Context(), filters, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, toLogEntries(entries))
	}
}
