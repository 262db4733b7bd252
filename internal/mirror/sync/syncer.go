package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	gosync "sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/mirror/metrics"
)

// syncer implements the Syncer interface.
type syncer struct {
	db        *db.DB
	source    Source
	logger    *log.Logger
	observers []Observer

	// mu serializes every mirror-changing operation.
	mu gosync.Mutex

	// loads collapses concurrent EnsureLoaded calls into one.
	loads singleflight.Group

	// loadTimeout bounds a shared EnsureLoaded resync.
	loadTimeout time.Duration
}

// DefaultLoadTimeout bounds the resync shared by concurrent EnsureLoaded callers.
const DefaultLoadTimeout = 2 * time.Minute

// New creates a new Syncer instance.
//
// The database must be opened and have its schema initialized before being
// passed to this function. If logger is nil, a default logger writing to
// stderr is used.
//
// Example:
//
//	database, err := db.Open("data/tasks.db")
//	if err != nil {
//	    return err
//	}
//	if err := database.InitSchema(); err != nil {
//	    return err
//	}
//	client, _ := remote.New(remote.Config{})
//	syncer := sync.New(database, client, nil)
func New(database *db.DB, source Source, logger *log.Logger, observers ...Observer) Syncer {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &syncer{
		db:          database,
		source:      source,
		logger:      logger,
		observers:   observers,
		loadTimeout: DefaultLoadTimeout,
	}
}

// Resync implements Syncer.Resync.
func (s *syncer) Resync(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resyncLocked(ctx, s.source, TriggerAuto)
}

// ForceResync implements Syncer.ForceResync.
func (s *syncer) ForceResync(ctx context.Context) (Result, error) {
	s.logger.Printf("Forcing resync")

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resyncLocked(ctx, s.source, TriggerForce)
}

// ResyncFrom implements Syncer.ResyncFrom.
func (s *syncer) ResyncFrom(ctx context.Context, src Source, trigger Trigger) (Result, error) {
	if src == nil {
		return Result{}, fmt.Errorf("source cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resyncLocked(ctx, src, trigger)
}

// EnsureLoaded implements Syncer.EnsureLoaded.
func (s *syncer) EnsureLoaded(ctx context.Context) error {
	has, err := s.HasLocalData(ctx)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	// The shared load outlives any single caller; each caller stops waiting
	// on its own cancellation.
	ch := s.loads.DoChan("load", func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()

		s.mu.Lock()
		defer s.mu.Unlock()

		// Another resync may have filled the mirror while we waited.
		count, err := s.db.GetTaskCountContext(loadCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to check mirror: %w", err)
		}
		if count > 0 {
			return nil, nil
		}

		s.logger.Printf("Local mirror is empty, resyncing from source")
		_, err = s.resyncLocked(loadCtx, s.source, TriggerAuto)
		return nil, err
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("failed to load mirror: %w", ctx.Err())
	}
}

// resyncLocked fetches from src and replaces the mirror. Caller holds s.mu.
func (s *syncer) resyncLocked(ctx context.Context, src Source, trigger Trigger) (Result, error) {
	start := time.Now()
	s.logger.Printf("Starting resync (trigger=%s)", trigger)

	tasks, err := src.FetchAll(ctx)
	if err != nil {
		metrics.ObserveResync("error", string(trigger), time.Since(start))
		s.logger.Printf("ERROR: resync fetch failed (trigger=%s): %v", trigger, err)
		return Result{}, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	if len(tasks) == 0 {
		res := Result{Skipped: true, Duration: time.Since(start)}
		metrics.ObserveResync("skipped", string(trigger), res.Duration)
		s.logger.Printf("WARNING: source returned no tasks; mirror left unchanged")
		return res, nil
	}

	written, err := s.db.ReplaceAll(ctx, tasks)
	if err != nil {
		metrics.ObserveResync("error", string(trigger), time.Since(start))
		s.logger.Printf("ERROR: resync write failed (trigger=%s, fetched=%d): %v", trigger, len(tasks), err)
		return Result{}, fmt.Errorf("failed to replace mirror: %w", err)
	}

	res := Result{Written: written, Duration: time.Since(start)}
	metrics.ObserveResync("ok", string(trigger), res.Duration)
	metrics.SetMirrorRecords(written)
	s.logger.Printf("Resync complete: %d tasks written in %v", written, res.Duration.Round(time.Millisecond))

	for _, o := range s.observers {
		o.OnResync(trigger, res)
	}
	return res, nil
}

// HasLocalData implements Syncer.HasLocalData.
func (s *syncer) HasLocalData(ctx context.Context) (bool, error) {
	count, err := s.db.GetTaskCountContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check mirror: %w", err)
	}
	return count > 0, nil
}

// Clear implements Syncer.Clear.
func (s *syncer) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.db.DeleteAll(ctx)
	if err != nil {
		s.logger.Printf("ERROR: failed to clear mirror: %v", err)
		return 0, fmt.Errorf("failed to clear mirror: %w", err)
	}

	metrics.SetMirrorRecords(0)
	s.logger.Printf("Removed %d tasks from local mirror", removed)

	for _, o := range s.observers {
		o.OnClear(removed)
	}
	return removed, nil
}

// Statistics implements Syncer.Statistics.
func (s *syncer) Statistics(ctx context.Context) (*db.Statistics, error) {
	stats, err := s.db.GetStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	return stats, nil
}
