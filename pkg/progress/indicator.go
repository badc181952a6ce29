package progress

import (
	"fmt"
	"sync"
	"time"
)

// Tracker reports batch progress on the terminal, rate-limited so large
// batches don't drown the output in redraws.
type Tracker struct {
	mu          sync.Mutex
	totalJobs   int
	completed   int
	failed      int
	startTime   time.Time
	lastDisplay time.Time
	displayRate time.Duration
}

// NewTracker creates a tracker for a known number of jobs.
func NewTracker(totalJobs int) *Tracker {
	return &Tracker{
		totalJobs:   totalJobs,
		startTime:   time.Now(),
		displayRate: 500 * time.Millisecond,
	}
}

// JobDone records one finished job and redraws the progress line if
// enough time has passed since the last redraw.
func (t *Tracker) JobDone(jobID string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed++
	if !ok {
		t.failed++
	}

	if time.Since(t.lastDisplay) >= t.displayRate {
		t.display(jobID)
		t.lastDisplay = time.Now()
	}
}

func (t *Tracker) display(jobID string) {
	elapsed := time.Since(t.startTime)
	percentage := float64(t.completed) / float64(t.totalJobs) * 100

	var eta time.Duration
	if t.completed > 0 {
		avg := elapsed / time.Duration(t.completed)
		eta = avg * time.Duration(t.totalJobs-t.completed)
	}

	if len(jobID) > 40 {
		jobID = jobID[:37] + "..."
	}

	fmt.Printf("\033[2K\rProgress: %d/%d (%.1f%%) | Elapsed: %v | ETA: %v | %s",
		t.completed, t.totalJobs, percentage,
		elapsed.Round(time.Second), eta.Round(time.Second), jobID)
}

// Finish terminates the progress line and prints totals.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.startTime)
	fmt.Printf("\033[2K\rCompleted %d jobs in %v", t.completed, elapsed.Round(time.Millisecond))
	if t.failed > 0 {
		fmt.Printf(" (%d failed)", t.failed)
	}
	fmt.Println()
}

// Stats is a point-in-time snapshot of the batch.
type Stats struct {
	TotalJobs     int
	CompletedJobs int
	FailedJobs    int
	Elapsed       time.Duration
	Rate          float64 // jobs per second
}

// GetStats returns the current progress statistics.
func (t *Tracker) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.startTime)
	rate := 0.0
	if elapsed.Seconds() > 0 {
		rate = float64(t.completed) / elapsed.Seconds()
	}

	return Stats{
		TotalJobs:     t.totalJobs,
		CompletedJobs: t.completed,
		FailedJobs:    t.failed,
		Elapsed:       elapsed,
		Rate:          rate,
	}
}
