package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/tracelens/internal/config"
	"github.com/kozaktomas/tracelens/internal/logging"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "tracelens",
	Short: "Detect AI-generated images and find near-duplicates",
	Long: `TraceLens analyzes images for signs of synthetic generation, computes a
perceptual fingerprint for each one and looks for near-duplicates in an
in-memory catalog or through an external reverse image search provider.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	level := logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	logging.Configure(level)
}

// loadConfig loads and validates the configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
