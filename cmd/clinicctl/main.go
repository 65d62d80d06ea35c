// Command clinicctl runs maintenance tasks against a clinic deployment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/longevaiapp/EVEREST-sub000/config"
	"github.com/longevaiapp/EVEREST-sub000/internal/app"
	"github.com/longevaiapp/EVEREST-sub000/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "clinicctl",
	Short:        "Maintenance tool for the veterinary clinic service",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("CONFIG_FILE"), "config file path")

	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newBoardCommand())
	rootCmd.AddCommand(newTokenCommand())
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, app.NewLogger(cfg.Log), nil
}
