package loadtest

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGenerateTasks(t *testing.T) {
	tasks := generateTasks(100)
	if len(tasks) != 100 {
		t.Fatalf("got %d tasks, want 100", len(tasks))
	}

	seen := make(map[int]bool)
	for _, task := range tasks {
		if err := task.Validate(); err != nil {
			t.Errorf("task %d invalid: %v", task.ID, err)
		}
		if seen[task.ID] {
			t.Errorf("duplicate id %d", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestComputeLatencyStats(t *testing.T) {
	durations := make([]time.Duration, 100)
	for i := range durations {
		durations[i] = time.Duration(100-i) * time.Millisecond
	}

	stats := computeLatencyStats(durations)

	if stats.Min != time.Millisecond {
		t.Errorf("Min = %v, want 1ms", stats.Min)
	}
	if stats.Max != 100*time.Millisecond {
		t.Errorf("Max = %v, want 100ms", stats.Max)
	}
	if stats.P50 != 51*time.Millisecond {
		t.Errorf("P50 = %v, want 51ms", stats.P50)
	}
	if stats.P99 != 100*time.Millisecond {
		t.Errorf("P99 = %v, want 100ms", stats.P99)
	}
	if stats.TotalQueries != 100 {
		t.Errorf("TotalQueries = %d, want 100", stats.TotalQueries)
	}

	if empty := computeLatencyStats(nil); empty.TotalQueries != 0 {
		t.Errorf("empty stats TotalQueries = %d", empty.TotalQueries)
	}
}

func TestRunWithConcurrentResyncs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}

	ctx := context.Background()
	h, err := NewHarness(ctx, filepath.Join(t.TempDir(), "load.db"), 200, nil)
	if err != nil {
		t.Fatalf("NewHarness() failed: %v", err)
	}
	defer h.Close()

	report, err := h.Run(ctx, Options{Readers: 10, QueriesPerReader: 20, ForceResyncs: 5})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if report.Reads.TotalQueries != 200 {
		t.Errorf("reads = %d, want 200", report.Reads.TotalQueries)
	}
	if report.Reads.Errors != 0 {
		t.Errorf("read errors = %d, want 0", report.Reads.Errors)
	}
	if report.Resyncs.TotalQueries != 5 || report.Resyncs.Errors != 0 {
		t.Errorf("resyncs = %+v", report.Resyncs)
	}
	if report.Inconsistent != 0 {
		t.Errorf("readers saw %d partial snapshots", report.Inconsistent)
	}

	var buf bytes.Buffer
	report.Reads.Fprint(&buf, "Reads")
	if !strings.Contains(buf.String(), "P95") {
		t.Errorf("Fprint output missing P95: %s", buf.String())
	}
}

func TestRunRejectsEmptyProfile(t *testing.T) {
	h := &Harness{}
	if _, err := h.Run(context.Background(), Options{}); err == nil {
		t.Fatal("Run() expected error for zero readers")
	}
}
