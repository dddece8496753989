package main

import (
	"fmt"
	"strings"

	"github.com/auditbridge/auditbridge/internal/db"
	"github.com/auditbridge/auditbridge/internal/security"
	"github.com/auditbridge/auditbridge/internal/service/auth"
	"github.com/spf13/cobra"
)

var (
	userPassword string
	userRoles    []string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
}

var userCreateCmd = &cobra.Command{
	Use:   "create [username]",
	Short: "Create a user",
	Long:  "Create a user that can log in to the API. Roles default to ROLE_USER.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if userPassword == "" {
			return fmt.Errorf("password is required (use --password flag)")
		}

		cfg, _, database, err := bootstrap()
		if err != nil {
			return err
		}
		defer database.Close()
		if err := db.Migrate(database.DB); err != nil {
			return err
		}

		roles := make([]string, 0, len(userRoles))
		for _, r := range userRoles {
			roles = append(roles, strings.ToUpper(strings.TrimSpace(r)))
		}

		svc := auth.NewAuthService(database.DB, auth.Config{
			AccessTokenTTL: cfg.Auth.AccessTokenTTL,
			RememberMeTTL:  cfg.Auth.RememberMeTTL,
		}, security.NewTokenStorage(cfg.Auth.RoleHierarchy))

		user, err := svc.CreateUser(cmd.Context(), args[0], userPassword, roles)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d) with roles %s\n", user.Username, user.ID, strings.Join(user.GetRoles(), ", "))
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "password of the new user")
	userCreateCmd.Flags().StringSliceVar(&userRoles, "role", nil, "role to grant (repeatable), e.g. ROLE_ADMIN")

	userCmd.AddCommand(userCreateCmd)
}
