// Package sync provides the resync policy between the remote todo API and the
// local SQLite mirror.
//
// Overview
//
// The mirror is a read cache. It is never updated record by record: a resync
// fetches the whole source collection and swaps the table content in one
// transaction.
//
//	Remote API (GET /todos)
//	     └── []schema.Task
//	              ↓
//	           Syncer ── serialized by a mutex
//	              ↓
//	     SQLite mirror (DELETE + INSERT in one tx)
//
// Usage
//
// Basic usage:
//
//	database, err := db.Open("data/tasks.db")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
//
//	if err := database.InitSchema(); err != nil {
//	    return err
//	}
//
//	client, err := remote.New(remote.Config{})
//	if err != nil {
//	    return err
//	}
//
//	syncer := sync.New(database, client, nil)
//
//	// Fill the mirror only if it is empty
//	if err := syncer.EnsureLoaded(ctx); err != nil {
//	    return err
//	}
//
//	// Always refetch
//	res, err := syncer.ForceResync(ctx)
//
// Empty Sources
//
// A source that returns zero records never empties the mirror. The resync is
// reported as skipped with a warning and the previous content stays in place.
//
// Error Handling
//
//   - Fetch failures (transport, status, decode, validation) are returned and
//     leave the mirror untouched
//   - Storage failures roll the transaction back and are returned
//   - Nothing is retried
//
// Concurrency
//
// Mirror-changing operations are serialized per Syncer. Reads go straight to
// SQLite; in WAL mode they see the last committed snapshot, so a resync in
// flight is invisible until it commits.
package sync
