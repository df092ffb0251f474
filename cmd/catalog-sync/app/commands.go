// Package app provides the command line interface of catalog-sync.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pokemnky/catalog-sync/internal/config"
	"github.com/pokemnky/catalog-sync/internal/versions"
)

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "catalog-sync",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Mirror a paginated resource catalog into PostgreSQL",
		Long: `catalog-sync seeds, ingests and refreshes a catalog of upstream resources
in small time-bounded runs, and can mirror sprite images into object storage.`,
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		slog.Error("Error binding debug flag", "error", err)
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newRequeueCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog-sync %s\n", info.String())
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

// envOverrides maps environment keys, read with the CATALOG_SYNC_ prefix, onto config fields
var envOverrides = map[string]func(cfg *config.Config, value string){
	"storage.type":     func(cfg *config.Config, v string) { cfg.Storage.Type = v },
	"upstream.baseurl": func(cfg *config.Config, v string) { cfg.Upstream.BaseURL = v },
	"database.host": func(cfg *config.Config, v string) {
		if cfg.Database != nil {
			cfg.Database.Host = v
		}
	},
	"logging.file": func(cfg *config.Config, v string) { cfg.Logging.File = v },
}

// loadConfig reads --config, or starts from the in-memory defaults when it is empty, then
// applies CATALOG_SYNC_* environment overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg := config.Default()
	if configPath != "" {
		if cfg, err = config.LoadConfig(config.WithConfigPath(configPath)); err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		slog.Info("Loaded configuration", "path", configPath, "storage", cfg.GetStorageType())
	}

	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, apply := range envOverrides {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment override %s: %w", key, err)
		}
		if value := v.GetString(key); value != "" {
			apply(cfg, value)
		}
	}

	return cfg, nil
}
