package remote

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/todomirror/todomirror/internal/mirror/schema"
)

const twoTodos = `[
	{"id":1,"userId":1,"title":"delectus aut autem","completed":false},
	{"id":2,"userId":1,"title":"quis ut nam facilis et officia qui","completed":false}
]`

// newTestClient starts an upstream that serves handler and returns a client for it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL: srv.URL,
		Logger:  log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return client
}

func TestNew_Defaults(t *testing.T) {
	client, err := New(Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if client.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), DefaultBaseURL)
	}
	if client.http.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.http.Timeout, DefaultTimeout)
	}
}

func TestNew_TrimsSlashAndRejectsBadScheme(t *testing.T) {
	client, err := New(Config{BaseURL: "http://example.test/api/", Timeout: time.Second})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if client.BaseURL() != "http://example.test/api" {
		t.Errorf("BaseURL() = %q", client.BaseURL())
	}

	if _, err := New(Config{BaseURL: "ftp://example.test"}); err == nil {
		t.Error("New() accepted ftp scheme")
	}
}

func TestFetchAll(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/todos" {
			t.Errorf("path = %q, want /todos", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, twoTodos)
	})

	tasks, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(tasks))
	}
	if tasks[0].Title != "delectus aut autem" {
		t.Errorf("tasks[0].Title = %q", tasks[0].Title)
	}
}

func TestFetchAll_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.FetchAll(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("FetchAll() error = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", se.StatusCode)
	}
}

func TestFetchAll_NotFoundIsAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.FetchAll(context.Background())
	if err == nil {
		t.Fatal("FetchAll() succeeded on 404")
	}
	if errors.Is(err, schema.ErrNotFound) {
		t.Error("collection 404 reported as ErrNotFound")
	}
}

func TestFetchAll_BadPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":`)
	})

	if _, err := client.FetchAll(context.Background()); err == nil {
		t.Fatal("FetchAll() succeeded on malformed JSON")
	}
}

func TestFetchAll_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	tasks, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("len(tasks) = %d, want 0", len(tasks))
	}
}

func TestFetchAll_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.FetchAll(ctx); err == nil {
		t.Fatal("FetchAll() succeeded after context deadline")
	}
}

func TestFetchFiltered_CaseInsensitive(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, twoTodos)
	})

	tasks, err := client.FetchFiltered(context.Background(), "DELECTUS")
	if err != nil {
		t.Fatalf("FetchFiltered() failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != 1 {
		t.Errorf("tasks = %+v, want only id 1", tasks)
	}
}

func TestFetchByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/todos/1":
			_, _ = io.WriteString(w, `{"id":1,"userId":1,"title":"delectus aut autem","completed":false}`)
		case "/todos/500":
			http.Error(w, "boom", http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{}`)
		}
	})
	ctx := context.Background()

	task, err := client.FetchByID(ctx, 1)
	if err != nil {
		t.Fatalf("FetchByID(1) failed: %v", err)
	}
	if task.ID != 1 || task.UserID != 1 {
		t.Errorf("FetchByID(1) = %+v", task)
	}

	if _, err := client.FetchByID(ctx, 999); !errors.Is(err, schema.ErrNotFound) {
		t.Errorf("FetchByID(999) error = %v, want ErrNotFound", err)
	}

	_, err = client.FetchByID(ctx, 500)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Errorf("FetchByID(500) error = %v, want 502 StatusError", err)
	}
}
