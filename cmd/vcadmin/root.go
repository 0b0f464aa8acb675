package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/avoronkov/vcadmin/internal/audit"
	"github.com/avoronkov/vcadmin/internal/config"
	"github.com/avoronkov/vcadmin/internal/events"
	"github.com/avoronkov/vcadmin/internal/log"
	"github.com/avoronkov/vcadmin/internal/premod"
	"github.com/avoronkov/vcadmin/internal/register"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "vcadmin",
	Short:         "Account administration for voice servers speaking the tag=value admin protocol",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file")
}

// loadConfig resolves configuration and builds the logger it asks for.
// A .env file in the working directory is honored for local runs.
func loadConfig() (config.Config, *zerolog.Logger, error) {
	_ = godotenv.Load()

	boot := log.New("info", "console")
	cfg, path, err := config.Load(boot, configPath)
	if err != nil {
		return cfg, boot, err
	}

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return cfg, logger, nil
}

// buildRegistrar assembles the registration stack for one-shot CLI
// commands. The returned cleanup closes the audit store.
func buildRegistrar(cfg config.Config, logger *zerolog.Logger) (*register.Registrar, func(), error) {
	store, err := audit.New(cfg.AuditPath)
	if err != nil {
		return nil, nil, err
	}
	queue := premod.NewQueue(cfg.QueuePath)
	reg := register.New(cfg, queue, store, events.NewBus(), logger)
	return reg, func() { _ = store.Close() }, nil
}
