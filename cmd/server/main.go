package main

import (
	"fmt"
	"log/slog"
	"os"

	"cryptid-vote-backend/config"
	"cryptid-vote-backend/handlers"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const programName = "cryptid-server"

var (
	configFile string
	debug      bool
)

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), "component", programName)
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.SlogLevel()
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: debug,
		Level:     level,
	}))
	slog.SetDefault(logger)
	return logger
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Cryptid voting backend: table API, live tallies and vote notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := newLogger(cfg)
			if _, err := maxprocs.Set(maxprocs.Logger(slogPrintf)); err != nil {
				return err
			}
			logger.Info("starting", "component", programName, "version", handlers.Version, "environment", cfg.Environment)
			return serve(cmd.Context(), cfg, logger)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "D", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error(), "component", programName)
		os.Exit(1)
	}
}
