package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kozaktomas/tracelens/internal/analysis"
	"github.com/kozaktomas/tracelens/internal/database"
	"github.com/kozaktomas/tracelens/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the TraceLens HTTP API.
Uploaded images are analyzed and their fingerprints kept in memory for the
lifetime of the process; nothing is persisted.

--seed-file preloads the index from a text file with one fingerprint per line
(blank lines and lines starting with # are ignored).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8000, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("seed-file", "", "Preload fingerprints from this file")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" && !cmd.Flags().Changed("port") {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" && !cmd.Flags().Changed("host") {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	index := database.NewFingerprintIndex()
	if seedFile := mustGetString(cmd, "seed-file"); seedFile != "" {
		hashes, err := readSeedFile(seedFile)
		if err != nil {
			return err
		}
		added := index.Seed(hashes)
		log.Info().Str("file", seedFile).Int("added", added).Int("skipped", len(hashes)-added).Msg("loaded seed file")
	}
	service := analysis.NewService(cfg, index)
	if service.ExternalSearchEnabled() {
		log.Info().Str("url", cfg.ReverseSearch.URL).Dur("timeout", cfg.ReverseSearch.Timeout).Msg("external reverse search enabled")
	} else {
		log.Info().Msg("no reverse search API key configured, using local fingerprint index only")
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, service, index, Version, port, host)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error during shutdown")
		}
	}()

	fmt.Printf("Starting TraceLens API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

// readSeedFile returns the fingerprints listed one per line in path.
func readSeedFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	var hashes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hashes = append(hashes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return hashes, nil
}
