package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/discogram/discogram/pkg/bridge"
	"github.com/discogram/discogram/pkg/config"
	"github.com/discogram/discogram/pkg/logger"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start relaying until interrupted",
		RunE:  runBridge,
	}
}

func runBridge(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s:\n%w", path, err)
	}

	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	if err := setupLogging(cfg, verbose); err != nil {
		return err
	}
	defer logger.DisableFileLogging()

	b, err := bridge.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.InfoCF("main", "Starting discogram", map[string]interface{}{
		"version": cmd.Root().Version,
		"config":  path,
	})
	if err := b.Run(ctx); err != nil {
		return err
	}
	logger.InfoC("main", "Shutdown complete")
	return nil
}

func setupLogging(cfg *config.Config, verbose bool) error {
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = logger.DEBUG
	}
	logger.SetLevel(level)

	if cfg.Logging.FileEnabled {
		if err := logger.EnableFileLoggingWithRotation(
			cfg.LogFilePath(),
			cfg.Logging.RotationEnabled,
			cfg.Logging.MaxSizeMB,
			cfg.Logging.MaxAgeDays,
		); err != nil {
			return fmt.Errorf("enable file logging: %w", err)
		}
	}
	return nil
}
