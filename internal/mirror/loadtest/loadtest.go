// Package loadtest measures read latency on the task mirror while forced
// resyncs replace it underneath.
//
// Readers run the cache-or-fetch read path (list with a title filter, point
// lookups) concurrently with a writer issuing forced resyncs. Every list
// result is checked against the full synthetic collection: a reader must see
// either the old snapshot or the new one, never a partial or empty mirror.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sort"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/mirror/schema"
	"github.com/todomirror/todomirror/internal/mirror/service"
	"github.com/todomirror/todomirror/internal/mirror/sync"
)

// Harness is a populated mirror ready for load testing.
type Harness struct {
	DB      *db.DB
	Syncer  sync.Syncer
	Service service.TaskService

	Tasks []schema.Task
}

// Options controls one load run.
type Options struct {
	// Readers is the number of concurrent reader goroutines
	Readers int

	// QueriesPerReader is how many reads each reader performs
	QueriesPerReader int

	// ForceResyncs is how many forced resyncs run alongside the readers
	ForceResyncs int

	// TitleFilter is used for list queries; empty lists everything
	TitleFilter string
}

// DefaultOptions returns a moderate load profile.
func DefaultOptions() Options {
	return Options{
		Readers:          50,
		QueriesPerReader: 100,
		ForceResyncs:     10,
	}
}

// LatencyStats captures latency percentiles for one class of operation.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration // Median
	P95          time.Duration
	P99          time.Duration
	TotalQueries int
	Errors       int
}

// Report is the outcome of a load run.
type Report struct {
	Reads   *LatencyStats
	Resyncs *LatencyStats

	// Inconsistent counts unfiltered list results that did not hold the full collection.
	Inconsistent int
}

// staticSource serves a fixed collection.
type staticSource []schema.Task

func (s staticSource) FetchAll(ctx context.Context) ([]schema.Task, error) {
	out := make([]schema.Task, len(s))
	copy(out, s)
	return out, nil
}

// NewHarness creates a mirror at dbPath and fills it with numTasks synthetic records.
func NewHarness(ctx context.Context, dbPath string, numTasks int, logger *log.Logger) (*Harness, error) {
	if numTasks <= 0 {
		return nil, fmt.Errorf("numTasks must be positive, got %d", numTasks)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	database, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Readers outnumber the default pool.
	database.RawDB().SetMaxOpenConns(150)
	database.RawDB().SetMaxIdleConns(50)
	database.RawDB().SetConnMaxLifetime(10 * time.Minute)

	if err := database.InitSchemaContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	tasks := generateTasks(numTasks)
	syncer := sync.New(database, staticSource(tasks), logger)

	if _, err := syncer.ForceResync(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to populate mirror: %w", err)
	}

	return &Harness{
		DB:      database,
		Syncer:  syncer,
		Service: service.NewLocal(database, syncer, logger),
		Tasks:   tasks,
	}, nil
}

// Close closes the harness database.
func (h *Harness) Close() error {
	if h.DB != nil {
		return h.DB.Close()
	}
	return nil
}

// Run executes the load profile and aggregates latencies.
func (h *Harness) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Readers <= 0 || opts.QueriesPerReader <= 0 {
		return nil, fmt.Errorf("readers and queries per reader must be positive")
	}

	var (
		wg           gosync.WaitGroup
		mu           gosync.Mutex
		reads        []time.Duration
		resyncs      []time.Duration
		readErrors   atomic.Int64
		resyncErrors atomic.Int64
		inconsistent atomic.Int64
	)

	total := len(h.Tasks)

	for i := 0; i < opts.Readers; i++ {
		wg.Add(1)
		go func(reader int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(int64(reader)))
			durations := make([]time.Duration, 0, opts.QueriesPerReader)

			for j := 0; j < opts.QueriesPerReader; j++ {
				if ctx.Err() != nil {
					break
				}

				start := time.Now()
				var err error
				if j%2 == 0 {
					var tasks []schema.Task
					tasks, err = h.Service.ListTasks(ctx, opts.TitleFilter)
					if err == nil && opts.TitleFilter == "" && len(tasks) != total {
						inconsistent.Add(1)
					}
				} else {
					id := h.Tasks[rng.Intn(total)].ID
					_, err = h.Service.GetTask(ctx, id)
				}
				durations = append(durations, time.Since(start))

				if err != nil {
					readErrors.Add(1)
				}
			}

			mu.Lock()
			reads = append(reads, durations...)
			mu.Unlock()
		}(i)
	}

	if opts.ForceResyncs > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for i := 0; i < opts.ForceResyncs; i++ {
				if ctx.Err() != nil {
					return
				}

				start := time.Now()
				_, err := h.Syncer.ForceResync(ctx)
				elapsed := time.Since(start)
				if err != nil {
					resyncErrors.Add(1)
				}

				mu.Lock()
				resyncs = append(resyncs, elapsed)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if len(reads) == 0 {
		return nil, fmt.Errorf("no reads completed")
	}

	report := &Report{
		Reads:        computeLatencyStats(reads),
		Resyncs:      computeLatencyStats(resyncs),
		Inconsistent: int(inconsistent.Load()),
	}
	report.Reads.Errors = int(readErrors.Load())
	report.Resyncs.Errors = int(resyncErrors.Load())

	return report, nil
}

// generateTasks creates count deterministic task records.
func generateTasks(count int) []schema.Task {
	words := []string{"delectus", "quis", "fugiat", "veniam", "laboriosam", "qui", "illo", "autem"}
	tasks := make([]schema.Task, count)

	for i := range tasks {
		tasks[i] = schema.Task{
			ID:        i + 1,
			UserID:    i/20 + 1,
			Title:     fmt.Sprintf("%s %s task %d", words[i%len(words)], words[(i/3)%len(words)], i+1),
			Completed: i%3 == 0,
		}
	}

	return tasks
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return &LatencyStats{
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Mean:         sum / time.Duration(len(durations)),
		P50:          sorted[len(sorted)*50/100],
		P95:          sorted[len(sorted)*95/100],
		P99:          sorted[len(sorted)*99/100],
		TotalQueries: len(durations),
	}
}

// Fprint writes latency statistics to w.
func (s *LatencyStats) Fprint(w io.Writer, title string) {
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintf(w, "  Total:         %d\n", s.TotalQueries)
	fmt.Fprintf(w, "  Errors:        %d\n", s.Errors)
	fmt.Fprintf(w, "  Min:           %v\n", s.Min)
	fmt.Fprintf(w, "  P50 (Median):  %v\n", s.P50)
	fmt.Fprintf(w, "  Mean:          %v\n", s.Mean)
	fmt.Fprintf(w, "  P95:           %v\n", s.P95)
	fmt.Fprintf(w, "  P99:           %v\n", s.P99)
	fmt.Fprintf(w, "  Max:           %v\n", s.Max)
}
