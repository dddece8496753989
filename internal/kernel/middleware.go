package kernel

import (
	"net/http"

	"github.com/auditbridge/auditbridge/internal/util"
	"github.com/gin-gonic/gin"
)

// Middleware opens the request audit scope and dispatches EventRequest.
// It must run after the middleware that stores the security token on the request.
func Middleware(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		auditCtx := util.NewAuditContext(c.ClientIP(), c.GetHeader("User-Agent"))
		c.Request = c.Request.WithContext(util.SetAuditContext(c.Request.Context(), auditCtx))

		ev := NewRequestEvent(c.Request)
		if err := d.Dispatch(EventRequest, ev); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "request initialization failed"})
			return
		}
		c.Request = ev.Request

		c.Next()
	}
}
