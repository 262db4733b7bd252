package migrate

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/mirror/schema"
	"github.com/todomirror/todomirror/internal/mirror/sync"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return database
}

var sample = []schema.Task{
	{ID: 2, UserID: 1, Title: "quis ut nam", Completed: true},
	{ID: 1, UserID: 1, Title: "delectus aut autem"},
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)

	if _, err := database.ReplaceAll(ctx, sample); err != nil {
		t.Fatalf("ReplaceAll() failed: %v", err)
	}

	var buf bytes.Buffer
	n, err := Export(ctx, database, &buf)
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Export() wrote %d, want 2", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"id":1`) {
		t.Errorf("first line = %s, want id 1 first", lines[0])
	}
}

func TestReadJSONL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"two records", "{\"id\":1,\"userId\":1,\"title\":\"a\"}\n{\"id\":2,\"userId\":1,\"title\":\"b\"}\n", 2, false},
		{"blank lines", "\n{\"id\":1,\"userId\":1,\"title\":\"a\"}\n\n", 1, false},
		{"empty", "", 0, false},
		{"case-insensitive keys", "{\"ID\":3,\"UserId\":2,\"Title\":\"c\",\"Completed\":true}\n", 1, false},
		{"malformed", "{\"id\":1,\n", 0, true},
		{"invalid id", "{\"id\":0,\"userId\":1,\"title\":\"a\"}\n", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := ReadJSONL(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("ReadJSONL() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadJSONL() failed: %v", err)
			}
			if len(tasks) != tt.want {
				t.Errorf("got %d tasks, want %d", len(tasks), tt.want)
			}
		})
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := setupTestDB(t)
	if _, err := src.ReplaceAll(ctx, sample); err != nil {
		t.Fatalf("ReplaceAll() failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "export", "tasks.jsonl")
	if _, err := ExportFile(ctx, src, path); err != nil {
		t.Fatalf("ExportFile() failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	dst := setupTestDB(t)
	syncer := sync.New(dst, FileSource{Path: "unused"}, log.New(io.Discard, "", 0))

	res, err := syncer.ResyncFrom(ctx, FileSource{Path: path}, sync.TriggerImport)
	if err != nil {
		t.Fatalf("ResyncFrom() failed: %v", err)
	}
	if res.Written != 2 {
		t.Errorf("Written = %d, want 2", res.Written)
	}

	got, err := dst.GetTaskByID(ctx, 2)
	if err != nil {
		t.Fatalf("GetTaskByID() failed: %v", err)
	}
	if got.Title != "quis ut nam" || !got.Completed {
		t.Errorf("imported task = %+v", got)
	}
}

func TestFileSourceMissing(t *testing.T) {
	src := FileSource{Path: filepath.Join(t.TempDir(), "missing.jsonl")}
	if _, err := src.FetchAll(context.Background()); err == nil {
		t.Fatal("FetchAll() expected error for missing file")
	}
}
