// Package migrate moves mirror snapshots in and out of JSONL files.
//
// A snapshot is one JSON task record per line. Export writes the current
// mirror; FileSource reads a snapshot back as a sync.Source so an import goes
// through the same transactional resync as a remote fetch.
package migrate

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/mirror/schema"
)

// Export writes every mirrored task to w, one JSON object per line, ordered by id.
// It returns the number of records written.
func Export(ctx context.Context, database *db.DB, w io.Writer) (int, error) {
	tasks, err := database.ListTasks(ctx, db.ListTasksFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to read mirror: %w", err)
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := range tasks {
		if err := enc.Encode(&tasks[i]); err != nil {
			return i, fmt.Errorf("failed to encode task %d: %w", tasks[i].ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}

	return len(tasks), nil
}

// ExportFile writes the mirror to path, replacing it atomically.
func ExportFile(ctx context.Context, database *db.DB, path string) (int, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	// #nosec G304 - controlled path from CLI
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	n, err := Export(ctx, database, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	return n, nil
}

// ReadJSONL parses a snapshot. Blank lines are skipped; every record is validated.
func ReadJSONL(r io.Reader) ([]schema.Task, error) {
	tasks := []schema.Task{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		task, err := schema.DecodeTask([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("invalid record at line %d: %w", lineNum, err)
		}
		tasks = append(tasks, *task)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return tasks, nil
}

// FileSource is a sync.Source backed by a JSONL snapshot file.
type FileSource struct {
	Path string
}

// FetchAll reads and validates the whole snapshot.
func (s FileSource) FetchAll(ctx context.Context) ([]schema.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// #nosec G304 - controlled path from CLI
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %s does not exist: %w", s.Path, err)
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	return ReadJSONL(f)
}
