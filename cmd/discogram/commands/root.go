// Package commands implements the discogram CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/discogram/discogram/pkg/config"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "discogram",
		Short: "Relay messages between a Discord channel and a Telegram chat",
		Long: `discogram mirrors one Discord channel and one Telegram chat (or forum
topic) into each other: text, replies and attachments.

Examples:
  discogram run --config config.json
  discogram config init
  discogram config check`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "config.json", "path to the config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.LoadConfig(path)
	return cfg, path, err
}
