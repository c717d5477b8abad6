/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/hireboard/apiserver/config"
	"github.com/hireboard/apiserver/internal/mq"
	"github.com/hireboard/apiserver/internal/server"
	"github.com/hireboard/apiserver/internal/worker"
	"github.com/spf13/cobra"
)

// workerCmd consumes application events from the configured broker.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume application events and log notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := server.NewLogger(cfg)

		broker, err := mq.NewFromConfig(cmd.Context(), cfg.MQ)
		if err != nil {
			return fmt.Errorf("init mq failed: %w", err)
		}
		defer broker.Close()

		notifier := worker.NewNotifier(broker, worker.LogSink{Logger: logger}, logger)
		logger.Info("worker started", "backend", cfg.MQ.Backend)
		return notifier.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
