package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/todomirror/todomirror/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "advanced",
	Short:   "Inspect or create configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default todomirror.toml",
	Long: `Write the default configuration to todomirror.toml in the current
directory, or to --path.

Every key can also be set through the environment, e.g.
TODOMIRROR_REMOTE_BASE_URL or TODOMIRROR_MIRROR_MODE=remote.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"skipConfig": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		force, _ := cmd.Flags().GetBool("force")

		if err := config.WriteDefault(path, force); err != nil {
			return err
		}
		abs, _ := filepath.Abs(path)
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", abs)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if used := loader.ConfigFileUsed(); used != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "# from %s\n", used)
		}

		out := map[string]any{
			"server": map[string]any{
				"addr":            cfg.Server.Addr,
				"read_timeout":    cfg.Server.ReadTimeout.String(),
				"write_timeout":   cfg.Server.WriteTimeout.String(),
				"request_timeout": cfg.Server.RequestTimeout.String(),
			},
			"remote": map[string]any{
				"base_url": cfg.Remote.BaseURL,
				"timeout":  cfg.Remote.Timeout.String(),
			},
			"mirror": map[string]any{
				"path": cfg.Mirror.Path,
				"mode": cfg.Mirror.Mode,
			},
			"log": map[string]any{
				"file":         cfg.Log.File,
				"max_size_mb":  cfg.Log.MaxSizeMB,
				"max_backups":  cfg.Log.MaxBackups,
				"max_age_days": cfg.Log.MaxAgeDays,
			},
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(out)
	},
}

func init() {
	configInitCmd.Flags().String("path", config.FileName, "where to write the config file")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
