/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hireboard/apiserver/config"
	"github.com/hireboard/apiserver/internal/db"
	"github.com/hireboard/apiserver/internal/services"
	"github.com/hireboard/apiserver/internal/store"
	"github.com/hireboard/apiserver/types"
	"github.com/spf13/cobra"
)

var grantAdminEmail string

// grantAdminCmd promotes an existing account to the admin role.
var grantAdminCmd = &cobra.Command{
	Use:   "grant-admin",
	Short: "Grant the admin role to an existing user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(grantAdminEmail) == "" {
			return errors.New("--email is required")
		}
		cfg := config.LoadConfig()

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database failed: %w", err)
		}
		defer conn.Close()

		userService := services.NewUserService(store.NewUserRepository(conn))
		user, err := userService.GrantRole(cmd.Context(), grantAdminEmail, types.RoleAdmin)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %s (%s) is now %s\n", user.Email, user.ID, user.Role)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(grantAdminCmd)
	grantAdminCmd.Flags().StringVar(&grantAdminEmail, "email", "", "email of the account to promote")
}
