// ABOUTME: Entry point for the promptgate MCP stdio bridge
// ABOUTME: Fails fast when the configured credential does not validate

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prompthouse/promptgate/internal/bridge"
	"github.com/prompthouse/promptgate/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

// getConfigPath returns the path to the promptgate config file.
// Priority: PROMPTGATE_CONFIG env var > XDG_CONFIG_HOME/promptgate/config.yaml > ~/.config/promptgate/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PROMPTGATE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "promptgate", "config.yaml")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run resolves the bridge configuration and serves MCP over stdio. stdout
// belongs to the protocol, so logs go to stderr.
func run(ctx context.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	apiURL := os.Getenv("PROMPTGATE_API_URL")
	apiToken := os.Getenv("PROMPTGATE_API_TOKEN")
	timeout := config.DefaultBridgeTimeout

	// Environment variables take precedence; the config file fills the gaps.
	if apiURL == "" || apiToken == "" {
		cfg, err := config.Load(getConfigPath())
		if err == nil {
			if apiURL == "" {
				apiURL = cfg.Bridge.APIBaseURL
			}
			if apiToken == "" {
				apiToken = cfg.Bridge.APIToken
			}
			timeout = cfg.Bridge.Timeout
		}
	}

	if apiURL == "" {
		return fmt.Errorf("no API URL configured: set PROMPTGATE_API_URL or bridge.api_base_url in %s", getConfigPath())
	}
	if apiToken == "" {
		return fmt.Errorf("no API token configured: set PROMPTGATE_API_TOKEN or bridge.api_token in %s", getConfigPath())
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger.Info("starting promptgate-mcp", "version", version, "api_url", apiURL)

	client := bridge.NewClient(apiURL, apiToken, timeout)
	return bridge.New(client, version).Run(ctx)
}
