// Package sync provides the resync policy that keeps the local task mirror
// equal to the last successful fetch from a source.
package sync

import (
	"context"
	"time"

	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/mirror/schema"
)

// Source supplies the full canonical task collection.
//
// The remote API client and the JSONL snapshot reader both implement Source.
type Source interface {
	FetchAll(ctx context.Context) ([]schema.Task, error)
}

// Trigger names what caused a resync. It is used for logging and metrics.
type Trigger string

const (
	// TriggerAuto is a resync started by a read that found the mirror empty
	TriggerAuto Trigger = "auto"

	// TriggerForce is an explicit administrative resync
	TriggerForce Trigger = "force"

	// TriggerImport is a resync from a snapshot file
	TriggerImport Trigger = "import"
)

// Result describes one resync.
type Result struct {
	// Written is the number of records now in the mirror.
	Written int

	// Skipped is true when the source returned no records; the mirror was left as-is.
	Skipped bool

	Duration time.Duration
}

// Observer is notified after mirror-changing operations complete.
type Observer interface {
	OnResync(trigger Trigger, result Result)
	OnClear(removed int)
}

// Syncer keeps the local mirror in step with a Source.
//
// All mirror-changing operations (Resync, ForceResync, ResyncFrom, Clear) are
// serialized: at most one runs at a time per Syncer. The wipe and insert of a
// resync share one transaction, so concurrent readers never observe a
// half-filled mirror.
type Syncer interface {
	// Resync fetches the full source collection and replaces the mirror with it.
	//
	// If the source returns no records the mirror is left untouched, a warning
	// is logged, and Result.Skipped is set. A fetch or storage failure is
	// returned as an error and also leaves the mirror untouched.
	//
	// Example:
	//   res, err := syncer.Resync(ctx)
	Resync(ctx context.Context) (Result, error)

	// ForceResync is Resync with TriggerForce; it always fetches, whatever the
	// current mirror state.
	ForceResync(ctx context.Context) (Result, error)

	// ResyncFrom replaces the mirror from an alternate source, such as a
	// snapshot file, under the same rules as Resync.
	ResyncFrom(ctx context.Context, src Source, trigger Trigger) (Result, error)

	// EnsureLoaded resyncs only if the mirror is empty.
	//
	// Concurrent callers that find the mirror empty share one resync. Emptiness
	// is re-checked after acquiring the write lock, so a resync that completed
	// in the meantime is not repeated. The shared resync is not tied to any
	// caller's context: a canceled caller returns its own ctx.Err() while the
	// others keep waiting for the result.
	EnsureLoaded(ctx context.Context) error

	// HasLocalData reports whether the mirror holds at least one record.
	HasLocalData(ctx context.Context) (bool, error)

	// Clear removes every mirrored record and returns how many were removed.
	Clear(ctx context.Context) (int, error)

	// Statistics aggregates the current mirror content.
	Statistics(ctx context.Context) (*db.Statistics, error)
}
