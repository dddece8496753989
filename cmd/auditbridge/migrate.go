package main

import (
	"github.com/auditbridge/auditbridge/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, database, err := bootstrap()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.Migrate(database.DB); err != nil {
			return err
		}
		log.Info().Msg("database migrated")
		return nil
	},
}
