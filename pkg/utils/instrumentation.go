package utils

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"
)

// PhaseObserver receives the duration of every completed phase
type PhaseObserver func(phase string, duration time.Duration)

// Instrumentation provides timing and progress tracking capabilities
type Instrumentation struct {
	logger   *slog.Logger
	verbose  bool
	observer PhaseObserver
}

// NewInstrumentation creates a new instrumentation instance
func NewInstrumentation(logger *slog.Logger, verbose bool) *Instrumentation {
	return &Instrumentation{
		logger:  logger,
		verbose: verbose,
	}
}

// WithObserver returns a copy that reports phase durations to observer
func (i *Instrumentation) WithObserver(observer PhaseObserver) *Instrumentation {
	cp := *i
	cp.observer = observer
	return &cp
}

// WithAttrs returns a copy whose log records carry the given attributes
func (i *Instrumentation) WithAttrs(args ...any) *Instrumentation {
	cp := *i
	cp.logger = i.logger.With(args...)
	return &cp
}

// TimedOperation wraps a function with timing instrumentation
func (i *Instrumentation) TimedOperation(name string, operation func() error) error {
	start := time.Now()
	i.logger.Debug("Starting operation", "operation", name)

	err := operation()
	duration := time.Since(start)

	if err != nil {
		i.logger.Error("Operation failed", "operation", name, "duration_seconds", duration.Seconds(), "error", err)
	} else {
		i.logger.Debug("Operation completed", "operation", name, "duration_seconds", duration.Seconds())
	}

	return err
}

// ProgressTracker counts finished work items across goroutines
type ProgressTracker struct {
	name       string
	total      int
	processed  int64
	lastUpdate int64 // unix nanos of the last progress line
	startTime  time.Time
	verbose    bool
	logger     *slog.Logger
}

// NewProgressTracker creates a new progress tracker
func (i *Instrumentation) NewProgressTracker(name string, total int) *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		name:       name,
		total:      total,
		lastUpdate: now.UnixNano(),
		startTime:  now,
		verbose:    i.verbose,
		logger:     i.logger,
	}
}

// Update increments the progress and logs at most every few items or seconds
func (pt *ProgressTracker) Update(increment int) {
	newProcessed := atomic.AddInt64(&pt.processed, int64(increment))

	now := time.Now()
	lastUpdateNano := atomic.LoadInt64(&pt.lastUpdate)
	lastUpdate := time.Unix(0, lastUpdateNano)

	if !pt.verbose || (newProcessed%10 != 0 && now.Sub(lastUpdate) <= 2*time.Second) {
		return
	}
	if !atomic.CompareAndSwapInt64(&pt.lastUpdate, lastUpdateNano, now.UnixNano()) {
		return
	}

	elapsed := now.Sub(pt.startTime)
	var eta time.Duration
	if newProcessed > 0 {
		eta = elapsed / time.Duration(newProcessed) * time.Duration(int64(pt.total)-newProcessed)
	}
	pt.logger.Debug("Progress update",
		"operation", pt.name,
		"processed", newProcessed,
		"total", pt.total,
		"percentage", float64(newProcessed)/float64(pt.total)*100,
		"elapsed_seconds", elapsed.Seconds(),
		"eta_seconds", eta.Seconds())
}

// Processed returns the number of items counted so far
func (pt *ProgressTracker) Processed() int {
	return int(atomic.LoadInt64(&pt.processed))
}

// Complete marks the operation as finished
func (pt *ProgressTracker) Complete() {
	pt.logger.Debug("Progress tracking completed",
		"operation", pt.name,
		"processed", atomic.LoadInt64(&pt.processed),
		"total", pt.total,
		"duration_seconds", time.Since(pt.startTime).Seconds())
}

// GetMemoryUsage returns current memory usage in a human-readable format
func GetMemoryUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	allocMB := float64(m.Alloc) / 1024 / 1024
	sysMB := float64(m.Sys) / 1024 / 1024

	return fmt.Sprintf("%.1fMB allocated, %.1fMB system", allocMB, sysMB)
}

// PhaseTracker times the consecutive phases of one operation. It is not safe
// for concurrent use; each iteration owns its own tracker.
type PhaseTracker struct {
	name         string
	currentPhase string
	phaseStart   time.Time
	startTime    time.Time
	durations    map[string]time.Duration
	logger       *slog.Logger
	observer     PhaseObserver
}

// NewPhaseTracker creates a new phase tracker
func (i *Instrumentation) NewPhaseTracker(name string) *PhaseTracker {
	i.logger.Debug("Starting operation", "operation", name)

	return &PhaseTracker{
		name:      name,
		startTime: time.Now(),
		durations: make(map[string]time.Duration),
		logger:    i.logger,
		observer:  i.observer,
	}
}

// StartPhase begins tracking a new phase, ending the current one
func (pt *PhaseTracker) StartPhase(phaseName string) {
	if pt.currentPhase != "" {
		pt.EndPhase()
	}

	pt.currentPhase = phaseName
	pt.phaseStart = time.Now()

	pt.logger.Debug("Starting phase", "phase", phaseName, "parent_operation", pt.name)
}

// EndPhase ends the current phase
func (pt *PhaseTracker) EndPhase() {
	if pt.currentPhase == "" {
		return
	}

	duration := time.Since(pt.phaseStart)
	pt.durations[pt.currentPhase] += duration
	pt.logger.Debug("Phase completed", "phase", pt.currentPhase, "duration_seconds", duration.Seconds(), "parent_operation", pt.name)
	if pt.observer != nil {
		pt.observer(pt.currentPhase, duration)
	}

	pt.currentPhase = ""
}

// Durations returns the accumulated time per completed phase
func (pt *PhaseTracker) Durations() map[string]time.Duration {
	out := make(map[string]time.Duration, len(pt.durations))
	for k, v := range pt.durations {
		out[k] = v
	}
	return out
}

// Complete finishes the entire operation
func (pt *PhaseTracker) Complete(totalItems int) {
	if pt.currentPhase != "" {
		pt.EndPhase()
	}

	pt.logger.Debug("Operation completed",
		"operation", pt.name,
		"items", totalItems,
		"duration_seconds", time.Since(pt.startTime).Seconds(),
		"memory_usage", GetMemoryUsage())
}
