/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/hireboard/apiserver/config"
	"github.com/hireboard/apiserver/internal/db"
	"github.com/hireboard/apiserver/internal/server"
	"github.com/hireboard/apiserver/internal/services"
	"github.com/hireboard/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// reconcileCmd recomputes job application counts.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute job application counts from stored applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database failed: %w", err)
		}
		defer conn.Close()

		jobService := services.NewJobService(store.NewJobRepository(conn), nil, server.NewLogger(cfg))
		drifts, err := jobService.Reconcile(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(drifts) == 0 {
			fmt.Fprintln(out, "all application counts are consistent")
			return nil
		}
		for _, drift := range drifts {
			fmt.Fprintf(out, "job %s: %d -> %d\n", drift.JobID, drift.Stored, drift.Actual)
		}
		fmt.Fprintf(out, "repaired %d job(s)\n", len(drifts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
