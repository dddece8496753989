package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/auditbridge/auditbridge/internal/model"
	"github.com/auditbridge/auditbridge/internal/security"
	"github.com/auditbridge/auditbridge/internal/service/auth"
	"github.com/auditbridge/auditbridge/pkg/types"
	"github.com/gin-gonic/gin"
)

func toAccessToken(t *model.AccessToken) *types.AccessToken {
	if t == nil {
		return nil
	}
	return &types.AccessToken{Token: t.Value, Level: t.Level, ExpiresAt: t.ExpiresAt}
}

// loginHandler handles POST /api/v0/login
func (s *Server) loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
			return
		}

		session, err := s.authService.Login(c.Request.Context(), req.Username, req.Password, req.RememberMe)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, types.LoginResponse{
			AccessToken:     toAccessToken(session.AccessToken),
			RememberMeToken: toAccessToken(session.RememberMeToken),
		})
	}
}

// logoutHandler handles POST /api/v0/logout
func (s *Server) logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authService.Logout(c.Request.Context(), bearerValue(c)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// whoAmIHandler handles GET /api/v0/whoami
func (s *Server) whoAmIHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.tokens.Token(c.Request.Context())

		resp := types.WhoAmIResponse{
			Username: token.Username(),
			Roles:    []string{},
			Level:    token.Level().String(),
		}
		for _, role := range token.Roles() {
			if _, isMarker := role.(security.SwitchUserRole); isMarker {
				continue
			}
			resp.Roles = append(resp.Roles, role.Role())
		}
		if original, ok := security.OriginalToken(token); ok {
			resp.ImpersonatedBy = original.Username()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// switchUserHandler handles POST /api/v0/switch-user
func (s *Server) switchUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.SwitchUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
			return
		}

		switched, err := s.authService.SwitchUser(c.Request.Context(), bearerValue(c), req.Username)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrSwitchDenied), errors.Is(err, auth.ErrAlreadySwitched):
				c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			case errors.Is(err, auth.ErrUserNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		s.logger.Info().
			Str("user", s.tokens.Token(c.Request.Context()).Username()).
			Str("target", req.Username).
			Msg("switched user")
		c.JSON(http.StatusOK, toAccessToken(switched))
	}
}

// exitSwitchUserHandler handles POST /api/v0/exit-switch-user
func (s *Server) exitSwitchUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		original, err := s.authService.ExitSwitchUser(c.Request.Context(), bearerValue(c))
		if err != nil {
			if errors.Is(err, auth.ErrNotSwitched) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, toAccessToken(original))
	}
}
