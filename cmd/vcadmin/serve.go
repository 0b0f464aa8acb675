package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/avoronkov/vcadmin/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the registration HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(cfg, logger)
		if err != nil {
			return err
		}

		if err := application.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("server exited with error")
			return err
		}
		logger.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
