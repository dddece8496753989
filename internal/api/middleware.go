package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/auditbridge/auditbridge/internal/security"
	"github.com/auditbridge/auditbridge/internal/service/auth"
	"github.com/gin-gonic/gin"
)

const bearerValueKey = "bearer_value"

// authenticate is middleware that resolves the bearer token of the request into a security token
// and stores it in the request context for the security context and the request listeners.
// Requests without an Authorization header continue anonymously.
// A bearer value that does not resolve to a valid token is rejected.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			ctx := security.WithToken(c.Request.Context(), security.NewAnonymousToken())
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		value := strings.TrimPrefix(authHeader, "Bearer ")
		if value == "" || value == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}

		token, err := s.authService.Authenticate(c.Request.Context(), value)
		if err != nil {
			if errors.Is(err, auth.ErrTokenNotFound) || errors.Is(err, auth.ErrTokenInvalid) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access token: " + err.Error()})
				return
			}
			s.logger.Error().Err(err).Msg("failed to authenticate request")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to authenticate request"})
			return
		}

		// Store the raw bearer value for logout and switch-user handlers
		c.Set(bearerValueKey, value)
		c.Request = c.Request.WithContext(security.WithToken(c.Request.Context(), token))
		c.Next()
	}
}

// requireGranted is middleware that rejects requests whose token does not satisfy attribute.
// attribute is an IS_AUTHENTICATED_* level or a role name.
// Anonymous requests get 401, authenticated ones 403.
func (s *Server) requireGranted(attribute string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if s.tokens.IsGranted(ctx, attribute) {
			c.Next()
			return
		}
		if !s.tokens.IsGranted(ctx, security.IsAuthenticatedRemembered) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user is not authenticated"})
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user is not authorized to perform this action"})
	}
}

// requestLogger writes one log line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := s.logger.Info()
		if status >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

func bearerValue(c *gin.Context) string {
	return c.GetString(bearerValueKey)
}
