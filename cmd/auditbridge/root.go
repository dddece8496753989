package main

import (
	"github.com/auditbridge/auditbridge/internal/config"
	"github.com/auditbridge/auditbridge/internal/db"
	"github.com/auditbridge/auditbridge/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "auditbridge",
	Short: "Audit trail server with blameable and loggable tracking",
	Long: `auditbridge records who created, changed and removed every document.
Writes are attributed to the authenticated user, or to the original user when an administrator has switched user.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); AUDITBRIDGE_* environment variables take precedence")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
}

// bootstrap loads the configuration and opens the database.
func bootstrap() (*config.Config, zerolog.Logger, *db.Database, error) {
	v, err := config.New(cfgFile)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	log := logger.New(cfg.AppEnv, cfg.LogLevel)

	database, err := db.Open(cfg, log)
	if err != nil {
		return nil, log, nil, err
	}
	return cfg, log, database, nil
}
