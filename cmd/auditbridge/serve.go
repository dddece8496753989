package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/auditbridge/auditbridge/internal/api"
	"github.com/auditbridge/auditbridge/internal/db"
	"github.com/auditbridge/auditbridge/internal/service/auth"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long:  "Migrate the database and serve the API until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, database, err := bootstrap()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.Migrate(database.DB); err != nil {
			return err
		}
		if !cfg.IsDevelopment() {
			gin.SetMode(gin.ReleaseMode)
		}

		server, err := api.NewServer(&api.ServerOptions{
			Database: database,
			Logger:   log,
			AuthConfig: auth.Config{
				AccessTokenTTL: cfg.Auth.AccessTokenTTL,
				RememberMeTTL:  cfg.Auth.RememberMeTTL,
			},
			RoleHierarchy: cfg.Auth.RoleHierarchy,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Start(ctx, cfg.AppAddr)
	},
}
