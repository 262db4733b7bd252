// Package service provides the read paths behind the /todos endpoints.
//
// Local answers from the SQLite mirror, filling it first when empty.
// Remote answers straight from the upstream API without touching the mirror.
// Both apply the same case-insensitive title filter.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/mirror/remote"
	"github.com/todomirror/todomirror/internal/mirror/schema"
	"github.com/todomirror/todomirror/internal/mirror/sync"
)

// Mode selects which read path serves requests.
type Mode string

const (
	// ModeLocal reads from the mirror (cache-or-fetch)
	ModeLocal Mode = "local"

	// ModeRemote reads from the upstream API on every request
	ModeRemote Mode = "remote"
)

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLocal, ModeRemote:
		return Mode(s), nil
	case "":
		return ModeLocal, nil
	}
	return "", fmt.Errorf("unknown mirror mode %q (want %q or %q)", s, ModeLocal, ModeRemote)
}

// TaskService lists and looks up task records.
//
// GetTask returns an error wrapping schema.ErrNotFound when the task does not
// exist; any other error is a failure.
type TaskService interface {
	ListTasks(ctx context.Context, titleFilter string) ([]schema.Task, error)
	GetTask(ctx context.Context, id int) (*schema.Task, error)
}

// Local serves reads from the mirror, resyncing first when it is empty.
type Local struct {
	db     *db.DB
	syncer sync.Syncer
	logger *log.Logger
}

// NewLocal creates the cache-or-fetch read path.
func NewLocal(database *db.DB, syncer sync.Syncer, logger *log.Logger) *Local {
	if logger == nil {
		logger = log.New(os.Stderr, "[service] ", log.LstdFlags)
	}
	return &Local{db: database, syncer: syncer, logger: logger}
}

// ListTasks returns mirrored tasks whose title contains titleFilter.
// A failed resync aborts the read; no partial result is returned.
func (l *Local) ListTasks(ctx context.Context, titleFilter string) ([]schema.Task, error) {
	if err := l.syncer.EnsureLoaded(ctx); err != nil {
		l.logger.Printf("ERROR: list tasks (title=%q): %v", titleFilter, err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	if titleFilter != "" {
		l.logger.Printf("Applying title filter: %q", titleFilter)
	}
	tasks, err := l.db.ListTasks(ctx, db.ListTasksFilter{Title: titleFilter})
	if err != nil {
		l.logger.Printf("ERROR: list tasks (title=%q): %v", titleFilter, err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	l.logger.Printf("Returning %d tasks from local mirror", len(tasks))
	return tasks, nil
}

// GetTask returns one mirrored task.
func (l *Local) GetTask(ctx context.Context, id int) (*schema.Task, error) {
	if err := l.syncer.EnsureLoaded(ctx); err != nil {
		l.logger.Printf("ERROR: get task %d: %v", id, err)
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}

	task, err := l.db.GetTaskByID(ctx, id)
	if errors.Is(err, schema.ErrNotFound) {
		l.logger.Printf("Task %d not found in local mirror", id)
		return nil, err
	}
	if err != nil {
		l.logger.Printf("ERROR: get task %d: %v", id, err)
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}
	return task, nil
}

// Remote serves reads straight from the upstream API.
type Remote struct {
	client *remote.Client
	logger *log.Logger
}

// NewRemote creates the remote-direct read path.
func NewRemote(client *remote.Client, logger *log.Logger) *Remote {
	if logger == nil {
		logger = log.New(os.Stderr, "[service] ", log.LstdFlags)
	}
	return &Remote{client: client, logger: logger}
}

// ListTasks fetches the upstream collection and filters it by title.
func (r *Remote) ListTasks(ctx context.Context, titleFilter string) ([]schema.Task, error) {
	tasks, err := r.client.FetchFiltered(ctx, titleFilter)
	if err != nil {
		r.logger.Printf("ERROR: list tasks from remote (title=%q): %v", titleFilter, err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask fetches one task from upstream.
func (r *Remote) GetTask(ctx context.Context, id int) (*schema.Task, error) {
	task, err := r.client.FetchByID(ctx, id)
	if errors.Is(err, schema.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		r.logger.Printf("ERROR: get task %d from remote: %v", id, err)
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}
	return task, nil
}
