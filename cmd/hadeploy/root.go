package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sproutops/hadeploy/internal/config"
	"github.com/sproutops/hadeploy/internal/credentials"
	"github.com/sproutops/hadeploy/internal/hass"
	"github.com/sproutops/hadeploy/internal/publisher"
	"github.com/sproutops/hadeploy/internal/remote"
	"github.com/sproutops/hadeploy/internal/store"
)

var (
	// Global flags
	cfgPath   string
	logLevel  string
	logFormat string
	quiet     bool
	globalCfg *config.Config
	logger    *slog.Logger

	// Global components
	globalStore     *store.Store
	globalAPI       *hass.Client
	globalPublisher *publisher.Publisher
	credsErr        error
)

// initializeComponents initializes the global store, API client, and publisher
func initializeComponents() error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	// Initialize store
	dbPath := globalCfg.History.DBPath
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "hadeploy", "hadeploy.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}
	st, err := store.New(dbPath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	globalStore = st

	// Initialize the API client. Missing credentials only become an error
	// when a command actually needs the restart call.
	envFile := config.ExpandUser(globalCfg.API.EnvFile)
	creds, err := credentials.Load(envFile)
	if err != nil {
		credsErr = err
		logger.Debug("api credentials not loaded", "env_file", envFile, "error", err)
	} else {
		globalAPI = hass.NewClient(creds, logger)
	}

	// Initialize publisher
	tc := globalCfg.Target
	dial := func() (publisher.Transport, error) {
		c, err := remote.Dial(remote.Options{
			Addr:           tc.Addr(),
			User:           tc.User,
			KeyPath:        config.ExpandUser(tc.KeyPath),
			KnownHostsPath: config.ExpandUser(tc.KnownHosts),
			StrictHostKey:  tc.StrictHostKey,
			Timeout:        tc.ConnectTimeout.Std(),
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	var restarter publisher.Restarter
	if globalAPI != nil {
		restarter = globalAPI
	}
	globalPublisher = publisher.New(globalCfg, globalStore, dial, restarter, logger)

	logger.Debug("components initialized", "db_path", dbPath, "target", tc.Addr())
	return nil
}

// requireAPI returns the API client or a useful error when the credentials
// file was missing or incomplete.
func requireAPI() (*hass.Client, error) {
	if globalAPI != nil {
		return globalAPI, nil
	}
	if credsErr != nil {
		return nil, fmt.Errorf("api credentials unavailable: %w", credsErr)
	}
	return nil, fmt.Errorf("api credentials not loaded")
}

// shouldSkipComponentInit checks if a command should skip component initialization
func shouldSkipComponentInit(cmdName string) bool {
	skipInitCmds := map[string]bool{
		"help":    true,
		"version": true,
		"config":  true,
		"show":    true,
		"init":    true,
	}
	return skipInitCmds[cmdName]
}

// closeStore closes the global store connection
func closeStore() {
	if globalStore != nil {
		if err := globalStore.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hadeploy",
		Short: "Publish dashboards and integrations to a Home Assistant host",
		Long: `hadeploy publishes locally maintained Home Assistant artifacts, such as
dashboard configs and custom integrations, to a remote Home Assistant host
over SSH. Existing remote state can be snapshotted before each overwrite,
and the Home Assistant service is restarted through its REST API once the
transfer completes.`,
		Example: `  hadeploy publish
  hadeploy publish --artifact dashboard --dry-run
  hadeploy publish --watch
  hadeploy backup --artifact plants-integration
  hadeploy validate
  hadeploy status`,
		Version: "0.1.0",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logging
			setupLogging()

			// Skip config loading for commands that don't need it
			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			// Load config
			if cfgPath == "" {
				var err error
				cfgPath, err = config.FindConfigFile()
				if err != nil && cmd.Name() != "init" {
					return fmt.Errorf("config file not found: %w", err)
				}
			}

			var err error
			globalCfg, err = config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if !quiet {
				logger.Debug("config loaded", "path", cfgPath, "target", globalCfg.Target.Addr())
			}

			// Initialize components after config is loaded
			if !shouldSkipComponentInit(cmd.Name()) {
				if err := initializeComponents(); err != nil {
					return fmt.Errorf("failed to initialize components: %w", err)
				}
			}

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeStore()
		},
	}

	// Add persistent flags
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	// Add subcommands
	cmd.AddCommand(
		newPublishCmd(),
		newBackupCmd(),
		newRestartCmd(),
		newValidateCmd(),
		newStatusCmd(),
		newConfigCmd(),
	)

	return cmd
}

// setupLogging initializes the slog logger based on flags
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if quiet {
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// shouldSkipConfig checks if a command should skip config loading
func shouldSkipConfig(cmdName string) bool {
	skipConfigCmds := map[string]bool{
		"help":    true,
		"version": true,
		"init":    true,
	}
	return skipConfigCmds[cmdName]
}
