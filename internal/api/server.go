// Package api exposes the HTTP surface of auditbridge.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/auditbridge/auditbridge/internal/db"
	"github.com/auditbridge/auditbridge/internal/kernel"
	"github.com/auditbridge/auditbridge/internal/listener"
	"github.com/auditbridge/auditbridge/internal/loggable"
	"github.com/auditbridge/auditbridge/internal/metrics"
	"github.com/auditbridge/auditbridge/internal/orm"
	"github.com/auditbridge/auditbridge/internal/security"
	"github.com/auditbridge/auditbridge/internal/service/auth"
	"github.com/auditbridge/auditbridge/internal/service/document"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ServerOptions contains all the dependencies required to create a new Server.
type ServerOptions struct {
	Database *db.Database
	Logger   zerolog.Logger

	AuthConfig auth.Config
	// RoleHierarchy maps a role to the roles it implies.
	RoleHierarchy map[string][]string
}

// Server represents the auditbridge HTTP server.
type Server struct {
	router *gin.Engine
	logger zerolog.Logger

	tokens     *security.TokenStorage
	dispatcher *kernel.Dispatcher

	authService     *auth.AuthService
	documentService *document.DocumentService
	logEntries      *loggable.Repository
}

// NewServer wires the services, the request listeners and the routes.
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.Database == nil || opts.Database.DB == nil {
		return nil, errors.New("database is required")
	}
	gdb := opts.Database.DB

	tokens := security.NewTokenStorage(opts.RoleHierarchy)

	dispatcher := kernel.NewDispatcher(opts.Logger.With().Str("component", "kernel").Logger())
	dispatcher.AddSubscriber(listener.NewBlameListener(opts.Database.Blameable, tokens, orm.NewEntityManager(gdb)))
	dispatcher.AddSubscriber(listener.NewLoggerListener(opts.Database.Loggable, tokens))

	s := &Server{
		logger:          opts.Logger,
		tokens:          tokens,
		dispatcher:      dispatcher,
		authService:     auth.NewAuthService(gdb, opts.AuthConfig, tokens),
		documentService: document.NewDocumentService(gdb),
		logEntries:      loggable.NewRepository(gdb),
	}
	s.router = s.setupRouter()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("auditbridge server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to run server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(metrics.HTTPMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// the token must be in the request context before the kernel dispatches the request event
	apiV0 := r.Group("/api/v0", s.authenticate(), kernel.Middleware(s.dispatcher))
	{
		apiV0.POST("/login", s.loginHandler())

		authenticated := apiV0.Group("", s.requireGranted(security.IsAuthenticatedRemembered))
		authenticated.GET("/whoami", s.whoAmIHandler())
		authenticated.POST("/logout", s.logoutHandler())

		authenticated.GET("/documents", s.listDocumentsHandler())
		authenticated.GET("/documents/:id", s.getDocumentHandler())
		authenticated.GET("/documents/:id/history", s.documentHistoryHandler())
		authenticated.POST("/documents", s.createDocumentHandler())
		authenticated.PATCH("/documents/:id", s.updateDocumentHandler())
		authenticated.DELETE("/documents/:id", s.deleteDocumentHandler())

		authenticated.POST("/exit-switch-user", s.exitSwitchUserHandler())

		fully := apiV0.Group("", s.requireGranted(security.IsAuthenticatedFully))
		fully.POST("/switch-user", s.requireGranted(security.RoleAllowedToSwitch), s.switchUserHandler())
		fully.GET("/log-entries", s.requireGranted(security.RoleAdmin), s.listLogEntriesHandler())
	}

	return r
}
