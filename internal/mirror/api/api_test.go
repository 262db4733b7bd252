package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	gosync "sync"
	"testing"
	"testing/fstest"

	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/mirror/remote"
	"github.com/todomirror/todomirror/internal/mirror/schema"
	"github.com/todomirror/todomirror/internal/mirror/service"
	"github.com/todomirror/todomirror/internal/mirror/sync"
)

const scenarioTodos = `[{"id":1,"userId":1,"title":"delectus aut autem","completed":false},{"id":2,"userId":1,"title":"quis ut nam","completed":true}]`

type upstream struct {
	mu     gosync.Mutex
	status int
}

func (u *upstream) fail(status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = status
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.status != 0 {
		w.WriteHeader(u.status)
		return
	}
	_, _ = io.WriteString(w, scenarioTodos)
}

type testEnv struct {
	up  *upstream
	srv *httptest.Server
	db  *db.DB
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	up := &upstream{}
	remoteSrv := httptest.NewServer(up)
	t.Cleanup(remoteSrv.Close)

	quiet := log.New(io.Discard, "", 0)

	client, err := remote.New(remote.Config{BaseURL: remoteSrv.URL, Logger: quiet})
	if err != nil {
		t.Fatalf("remote.New() failed: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "tasks.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}

	syncer := sync.New(database, client, quiet)

	cfg := DefaultConfig()
	cfg.DatabasePath = dbPath
	server := NewServer(cfg, Deps{
		Tasks:  service.NewLocal(database, syncer, quiet),
		Syncer: syncer,
		Static: fstest.MapFS{"index.html": {Data: []byte("<html>todomirror</html>")}},
		Logger: quiet,
	})

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{up: up, srv: srv, db: database}
}

func (e *testEnv) do(t *testing.T, method, path string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.srv.URL+path, nil)
	if err != nil {
		t.Fatalf("NewRequest() failed: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestListTodos(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/todos")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	tasks := decode[[]schema.Task](t, resp)
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}

	resp = env.do(t, http.MethodGet, "/todos?title=DELECTUS")
	tasks = decode[[]schema.Task](t, resp)
	if len(tasks) != 1 || tasks[0].ID != 1 {
		t.Errorf("filtered list = %+v, want only id 1", tasks)
	}

	resp = env.do(t, http.MethodGet, "/todos?title=nothing-matches")
	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("empty filter result = %s, want []", body)
	}
}

func TestGetTodo(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/todos/1", http.StatusOK},
		{"/todos/999", http.StatusNotFound},
		{"/todos/0", http.StatusBadRequest},
		{"/todos/-3", http.StatusBadRequest},
		{"/todos/abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, tt.path)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}

	resp := env.do(t, http.MethodGet, "/todos/2")
	task := decode[schema.Task](t, resp)
	if task.Title != "quis ut nam" || !task.Completed {
		t.Errorf("unexpected task: %+v", task)
	}
}

func TestUpstreamFailure(t *testing.T) {
	env := setupTestServer(t)
	env.up.fail(http.StatusInternalServerError)

	resp := env.do(t, http.MethodGet, "/todos")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	body := decode[errorBody](t, resp)
	if body.Message == "" || body.Error == "" {
		t.Errorf("error body missing fields: %+v", body)
	}

	resp = env.do(t, http.MethodPost, "/sync/force")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("force sync status = %d, want 500", resp.StatusCode)
	}
}

func TestAdministrativeSurface(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/sync/force")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("force sync status = %d, want 200", resp.StatusCode)
	}
	forced := decode[ForceSyncResponse](t, resp)
	if forced.Written != 2 || forced.Timestamp.IsZero() {
		t.Errorf("unexpected force sync body: %+v", forced)
	}

	resp = env.do(t, http.MethodGet, "/sync/status")
	status := decode[StatusResponse](t, resp)
	if !status.HasLocalData || status.Statistics == nil || status.Statistics.Total != 2 {
		t.Errorf("unexpected status: %+v", status)
	}
	if status.Database == "" || len(status.Endpoints) == 0 {
		t.Errorf("status missing database or endpoints: %+v", status)
	}

	resp = env.do(t, http.MethodGet, "/sync/statistics")
	stats := decode[db.Statistics](t, resp)
	if stats.CompletedCount != 1 || stats.PendingCount != 1 || stats.DistinctOwners != 1 {
		t.Errorf("unexpected statistics: %+v", stats)
	}

	resp = env.do(t, http.MethodDelete, "/sync/clear")
	cleared := decode[ClearResponse](t, resp)
	if cleared.Removed != 2 {
		t.Errorf("Removed = %d, want 2", cleared.Removed)
	}

	count, err := env.db.GetTaskCount()
	if err != nil {
		t.Fatalf("GetTaskCount() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count after clear = %d, want 0", count)
	}

	// A read after clear refills the mirror.
	resp = env.do(t, http.MethodGet, "/todos")
	if tasks := decode[[]schema.Task](t, resp); len(tasks) != 2 {
		t.Errorf("got %d tasks after clear, want 2", len(tasks))
	}
}

func TestMiddleware(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/health")
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp2.Body.Close()
	if got := resp2.Header.Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}

	resp = env.do(t, http.MethodOptions, "/sync/clear")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
}

func TestStaticAndMetrics(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/")
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "todomirror") {
		t.Errorf("index body = %q", body)
	}

	env.do(t, http.MethodGet, "/todos")
	resp = env.do(t, http.MethodGet, "/metrics")
	body, _ = io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "todomirror_http_requests_total") {
		t.Error("metrics output missing todomirror_http_requests_total")
	}
}
