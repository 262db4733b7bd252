package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Force a full resync from the remote API",
	Long: `Fetch the full task collection from the remote API and replace the mirror
with it in one transaction.

If the remote returns no records the mirror is left unchanged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Syncing from %s...\n", st.client.BaseURL())
		res, err := st.syncer.ForceResync(cmd.Context())
		if err != nil {
			return err
		}

		if res.Skipped {
			fmt.Fprintln(cmd.OutOrStdout(), "Remote returned no records; mirror left unchanged")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sync complete in %v\n", res.Duration.Round(time.Millisecond))
		fmt.Fprintf(cmd.OutOrStdout(), "   Tasks: %d\n", res.Written)
		fmt.Fprintf(cmd.OutOrStdout(), "   Mirror: %s\n", st.db.Path())
		return nil
	},
}

// statusReport is the machine-readable form of `todomirror status`.
type statusReport struct {
	Database     string         `json:"database" yaml:"database"`
	Remote       string         `json:"remote" yaml:"remote"`
	Mode         string         `json:"mode" yaml:"mode"`
	HasLocalData bool           `json:"hasLocalData" yaml:"hasLocalData"`
	Statistics   *db.Statistics `json:"statistics" yaml:"statistics"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show mirror status and statistics",
	Long: `Display the mirror location and aggregate statistics.

Example usage:
  todomirror status
  todomirror status --format json
  todomirror status --format yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		st, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		has, err := st.syncer.HasLocalData(cmd.Context())
		if err != nil {
			return err
		}
		stats, err := st.syncer.Statistics(cmd.Context())
		if err != nil {
			return err
		}

		report := statusReport{
			Database:     st.db.Path(),
			Remote:       st.client.BaseURL(),
			Mode:         cfg.Mirror.Mode,
			HasLocalData: has,
			Statistics:   stats,
		}

		switch format {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		case "yaml":
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(report)
		case "text", "":
			ui.NewRenderer(cmd.OutOrStdout()).Statistics(report.Database, has, stats)
			return nil
		default:
			return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
		}
	},
}

var clearCmd = &cobra.Command{
	Use:     "clear",
	GroupID: "sync",
	Short:   "Remove every record from the mirror",
	Long: `Empty the local mirror. The next read refills it from the remote API.

Asks for confirmation on a terminal unless --yes is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			if !ui.IsTerminal(cmd.InOrStdin()) {
				return fmt.Errorf("refusing to clear without --yes on a non-interactive terminal")
			}
			confirmed := false
			err := huh.NewConfirm().
				Title("Remove every record from the local mirror?").
				Affirmative("Clear").
				Negative("Cancel").
				Value(&confirmed).
				Run()
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
		}

		st, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		removed, err := st.syncer.Clear(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records\n", removed)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
	clearCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(clearCmd)
}
