// Package api exposes the task mirror over HTTP.
//
// The read surface (/todos) answers through a service.TaskService. The
// administrative surface (/sync/...) drives a sync.Syncer. The server also
// mounts /health, /metrics, the dashboard WebSocket at /ws, and the embedded
// front end at /.
package api

import (
	"context"
	"encoding/json"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/todomirror/todomirror/internal/mirror/metrics"
	"github.com/todomirror/todomirror/internal/mirror/service"
	"github.com/todomirror/todomirror/internal/mirror/sync"
)

// Config holds API server configuration
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	// DatabasePath is reported by GET /sync/status
	DatabasePath string

	// Mode is reported by GET /health
	Mode service.Mode
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 30 * time.Second,
		Mode:           service.ModeLocal,
	}
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Tasks  service.TaskService
	Syncer sync.Syncer

	// Dashboard is mounted at /ws when set
	Dashboard http.Handler

	// Static is served at / when set
	Static fs.FS

	Logger *log.Logger
}

// Server is the HTTP API server.
type Server struct {
	cfg    Config
	deps   Deps
	mux    *http.ServeMux
	server *http.Server
	logger *log.Logger
}

// NewServer creates a server and registers its routes.
func NewServer(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = service.ModeLocal
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		mux:    http.NewServeMux(),
		logger: deps.Logger,
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return requestID(s.accessLog(cors(s.mux)))
}

func (s *Server) registerRoutes() {
	s.handle("GET /todos", s.handleListTodos)
	s.handle("GET /todos/{id}", s.handleGetTodo)

	s.handle("POST /sync/force", s.handleForceSync)
	s.handle("GET /sync/status", s.handleSyncStatus)
	s.handle("DELETE /sync/clear", s.handleClear)
	s.handle("GET /sync/statistics", s.handleStatistics)

	s.handle("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", metrics.Handler())

	// WebSocket connections outlive the request timeout.
	if s.deps.Dashboard != nil {
		s.mux.Handle("GET /ws", s.deps.Dashboard)
	}
	if s.deps.Static != nil {
		s.mux.Handle("GET /", http.FileServerFS(s.deps.Static))
	}
}

// handle registers fn with per-route metrics and the request timeout.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.mux.Handle(pattern, instrument(pattern, withTimeout(s.cfg.RequestTimeout, fn)))
}

// Start listens and serves until Shutdown. It returns http.ErrServerClosed
// after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Printf("Listening on %s (mode: %s)", s.server.Addr, s.cfg.Mode)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("Shutting down API server")
	return s.server.Shutdown(ctx)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Printf("ERROR: failed to encode JSON response: %v", err)
		}
	}
}

// writeError writes a JSON error response. err may be nil.
func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	body := errorBody{Message: message}
	if err != nil {
		body.Error = err.Error()
	}
	s.writeJSON(w, status, body)
}
