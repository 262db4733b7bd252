package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/todomirror/todomirror/internal/mirror/migrate"
	"github.com/todomirror/todomirror/internal/mirror/sync"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "advanced",
	Short:   "Write the mirror as JSONL",
	Long: `Write every mirrored task as one JSON object per line, ordered by id.

Example usage:
  todomirror export                    # to stdout
  todomirror export -o tasks.jsonl`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		st, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if output == "" || output == "-" {
			_, err := migrate.Export(cmd.Context(), st.db, cmd.OutOrStdout())
			return err
		}

		n, err := migrate.ExportFile(cmd.Context(), st.db, output)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d tasks to %s\n", n, output)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "advanced",
	Short:   "Replace the mirror from a JSONL snapshot",
	Long: `Replace the mirror with the records in a JSONL snapshot, using the same
single-transaction resync as a remote fetch. An empty snapshot leaves the
mirror unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := st.syncer.ResyncFrom(cmd.Context(), migrate.FileSource{Path: args[0]}, sync.TriggerImport)
		if err != nil {
			return err
		}
		if res.Skipped {
			fmt.Fprintln(cmd.OutOrStdout(), "Snapshot is empty; mirror left unchanged")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks into %s\n", res.Written, st.db.Path())
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
