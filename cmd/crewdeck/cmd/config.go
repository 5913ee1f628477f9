package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configInitLocal bool
	configInitForce bool
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and manage configuration",
	Long: `Display and manage crewdeck configuration.

Examples:
  crewdeck config show     # Show effective config as YAML
  crewdeck config init     # Create a config file with defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	Long: `Create a config file with default settings and documentation.

By default, creates ~/.crewdeck/config.yaml.
Use --local to create ./config.yaml in the current directory.`,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "create config in current directory instead of ~/.crewdeck/")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite existing config file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	os.Stdout.Write(out)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	var configPath string
	if configInitLocal {
		configPath = "config.yaml"
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir := filepath.Join(home, ".crewdeck")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(dir, "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil && !configInitForce {
		return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("Edit this file to customize crewdeck behavior.")
	return nil
}

const defaultConfigYAML = `# crewdeck Configuration
# Copy this file to ~/.crewdeck/config.yaml and modify as needed.
# Every key can also be set via environment, e.g. CREWDECK_SERVER_URL.

# Orchestration server
server:
  # Base URL of the orchestration server
  url: "http://127.0.0.1:8790"

  # Bearer token; also appended to websocket stream URLs
  token: ""

  # REST request timeout
  request_timeout: 15s

  # How often the session list refreshes while attached
  refresh_every: 5s

# Stream reconnection
retry:
  # Reconnect delay schedule; its length caps the attempt count
  delays: [800ms, 1.6s, 3.2s, 6.4s, 12.8s]

  # Cap on consecutive attempts (defaults to the schedule length)
  max_attempts: 5

  # A connection open at least this long resets the attempt counter
  stability_window: 3s

# Terminal pane
terminal:
  scrollback_lines: 5000

# Local chat transcript cache (sqlite)
cache:
  enabled: true
  # dir: /custom/cache/dir

# Activate handoff file for deep links
deep_link:
  enabled: true
  # file: /custom/path/activate

# Logging
logging:
  # debug, info, warn, error
  level: "info"

  # console (human-readable) or json
  format: "console"
`
