package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/todomirror/todomirror/internal/config"
	"github.com/todomirror/todomirror/internal/mirror/api"
	"github.com/todomirror/todomirror/internal/mirror/dashboard"
	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/mirror/metrics"
	"github.com/todomirror/todomirror/web"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "read",
	Short:   "Serve the REST API, dashboard WebSocket and web front end",
	Long: `Start the HTTP server.

Endpoints:
  GET    /todos?title=<substring>   list tasks (case-insensitive title filter)
  GET    /todos/{id}                get one task
  POST   /sync/force                refetch everything from the remote
  GET    /sync/status               mirror status and statistics
  DELETE /sync/clear                empty the mirror
  GET    /sync/statistics           aggregate counts
  GET    /health, /metrics          health check and Prometheus metrics
  GET    /ws                        live dashboard events
  GET    /                          web front end

With mirror.mode = "remote" the /todos endpoints bypass the mirror.

Example usage:
  todomirror serve                  # listen on server.addr (default :8080)
  todomirror serve --addr :9000`,
	Annotations: map[string]string{"daemon": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx := cmd.Context()

		hub := dashboard.NewHub(&dashboard.Config{Logger: logs.Logger("dashboard")})
		defer hub.Stop()

		// st is assigned before any event can fire.
		var st *stack
		events := dashboard.NewHandler(hub, func(ctx context.Context) (*db.Statistics, error) {
			return st.db.GetStatistics(ctx)
		}, logs.Logger("dashboard"))

		st, err := openStack(ctx, events)
		if err != nil {
			return err
		}
		defer st.Close()
		hub.SetWelcome(events.StatsMessage)

		apiLogger := logs.Logger("api")
		tasks, mode, err := st.tasks(apiLogger)
		if err != nil {
			return err
		}

		if count, err := st.db.GetTaskCountContext(ctx); err == nil {
			metrics.SetMirrorRecords(count)
		}

		server := api.NewServer(api.Config{
			Addr:           cfg.Server.Addr,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: cfg.Server.RequestTimeout,
			DatabasePath:   st.db.Path(),
			Mode:           mode,
		}, api.Deps{
			Tasks:     tasks,
			Syncer:    st.syncer,
			Dashboard: hub,
			Static:    web.FS(),
			Logger:    apiLogger,
		})

		configLogger := logs.Logger("config")
		loader.Watch(configLogger, func(next *config.Config) {
			if next.Server.Addr != cfg.Server.Addr || next.Mirror != cfg.Mirror || next.Remote != cfg.Remote {
				configLogger.Println("WARNING: server, remote and mirror settings take effect after a restart")
			}
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "todomirror listening on %s (mode: %s)\n", cfg.Server.Addr, mode)
		fmt.Fprintf(cmd.OutOrStdout(), "Mirror: %s\n", st.db.Path())
		fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop...")

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
