package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/todomirror/todomirror/internal/mirror/schema"
	"github.com/todomirror/todomirror/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "read",
	Short:   "List tasks, filling the mirror first if it is empty",
	Long: `List every task, optionally filtered by a case-insensitive title substring.

Example usage:
  todomirror list
  todomirror list --title delectus`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")

		st, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		tasks, _, err := st.tasks(logs.Logger("service"))
		if err != nil {
			return err
		}

		list, err := tasks.ListTasks(cmd.Context(), title)
		if err != nil {
			return err
		}

		ui.NewRenderer(cmd.OutOrStdout()).Tasks(list)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:     "get <id>",
	GroupID: "read",
	Short:   "Show one task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("id must be a positive integer, got %q", args[0])
		}

		st, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		tasks, _, err := st.tasks(logs.Logger("service"))
		if err != nil {
			return err
		}

		task, err := tasks.GetTask(cmd.Context(), id)
		if errors.Is(err, schema.ErrNotFound) {
			return fmt.Errorf("task %d not found", id)
		}
		if err != nil {
			return err
		}

		ui.NewRenderer(cmd.OutOrStdout()).Task(task)
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("title", "t", "", "filter by title substring (case-insensitive)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
}
