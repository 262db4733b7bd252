// Command todomirror mirrors a remote todo API into a local SQLite database and
// serves it over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/todomirror/todomirror/internal/ui"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		ui.NewRenderer(os.Stderr).Error(err)
		os.Exit(1)
	}
}
