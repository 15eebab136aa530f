// Package profiler - Progress, metric and operation timing tracking for
// frame-by-frame processing loops.
package profiler

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// MetricTracker tracks running statistics for a custom metric.
type MetricTracker struct {
	name  string
	sum   float64
	min   float64
	max   float64
	count int64
}

// Mean returns the average of all recorded values, zero when none were recorded.
func (m *MetricTracker) Mean() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

// Min returns the smallest recorded value.
func (m *MetricTracker) Min() float64 { return m.min }

// Max returns the largest recorded value.
func (m *MetricTracker) Max() float64 { return m.max }

// Count returns how many values were recorded.
func (m *MetricTracker) Count() int64 { return m.count }

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	name      string
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Average returns the mean duration of the operation.
func (t *TimeTracker) Average() time.Duration {
	if t.count == 0 {
		return 0
	}
	return t.totalTime / time.Duration(t.count)
}

// Count returns how many times the operation completed.
func (t *TimeTracker) Count() int64 { return t.count }

// Options configures a Tracker.
type Options struct {
	// Total is the expected number of frames; <= 0 disables percentage reporting.
	Total int
	// Verbose enables progress lines. Metrics and timings are tracked either way.
	Verbose bool
	// Logger receives progress and report lines.
	Logger zerolog.Logger
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// Tracker follows a processing loop. It is not safe for concurrent use: the
// loop that owns it is the only caller.
type Tracker struct {
	total       int
	processed   int
	lastPercent int
	verbose     bool
	log         zerolog.Logger
	now         func() time.Time
	startTime   time.Time

	customMetrics  map[string]*MetricTracker
	operationTimes map[string]*TimeTracker
}

// New creates a tracker and starts its clock.
//
// Arguments:
// - opts: Configuration options for the tracker.
//
// Returns:
// - A configured Tracker instance.
func New(opts Options) *Tracker {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		total:          opts.Total,
		verbose:        opts.Verbose,
		log:            opts.Logger,
		now:            now,
		startTime:      now(),
		customMetrics:  make(map[string]*MetricTracker),
		operationTimes: make(map[string]*TimeTracker),
	}
}

// Advance marks one more frame as processed and, when verbose, logs the
// integer percentage each time it changes.
//
// Returns:
// - int: The number of frames processed so far.
func (t *Tracker) Advance() int {
	t.processed++
	if t.total <= 0 {
		return t.processed
	}

	percent := int(float64(t.processed) / float64(t.total) * 100.0)
	if percent != t.lastPercent {
		t.lastPercent = percent
		if t.verbose {
			t.log.Info().
				Int("percent", percent).
				Int("frames", t.processed).
				Int("total", t.total).
				Msg("progress")
		}
	}
	return t.processed
}

// Processed returns the number of frames processed so far.
func (t *Tracker) Processed() int {
	return t.processed
}

// Percent returns the last reported integer percentage.
func (t *Tracker) Percent() int {
	return t.lastPercent
}

// Elapsed returns the time since the tracker was created.
func (t *Tracker) Elapsed() time.Duration {
	return t.now().Sub(t.startTime)
}

// RecordMetric records a custom metric value.
//
// Arguments:
// - name: The name of the metric
// - value: The metric value to record
func (t *Tracker) RecordMetric(name string, value float64) {
	tracker, exists := t.customMetrics[name]
	if !exists {
		tracker = &MetricTracker{name: name, min: value, max: value}
		t.customMetrics[name] = tracker
	}

	tracker.sum += value
	tracker.count++
	if value < tracker.min {
		tracker.min = value
	}
	if value > tracker.max {
		tracker.max = value
	}
}

// Metric returns the tracker for name, or nil if nothing was recorded.
func (t *Tracker) Metric(name string) *MetricTracker {
	return t.customMetrics[name]
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (t *Tracker) StartOperation(name string) func() {
	start := t.now()
	return func() {
		t.recordOperationTime(name, t.now().Sub(start))
	}
}

// Operation returns the timing tracker for name, or nil if it never ran.
func (t *Tracker) Operation(name string) *TimeTracker {
	return t.operationTimes[name]
}

func (t *Tracker) recordOperationTime(name string, duration time.Duration) {
	tracker, exists := t.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{name: name, minTime: duration, maxTime: duration}
		t.operationTimes[name] = tracker
	}

	tracker.totalTime += duration
	tracker.count++
	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Report logs a summary of the run: frames, elapsed time, metrics and timings.
// Timings are logged at debug level.
func (t *Tracker) Report() {
	elapsed := t.Elapsed()
	event := t.log.Info().
		Int("frames", t.processed).
		Dur("elapsed", elapsed.Truncate(time.Millisecond))
	if seconds := elapsed.Seconds(); seconds > 0 {
		event = event.Float64("fps", float64(t.processed)/seconds)
	}
	event.Msg("run complete")

	for _, name := range sortedKeys(t.customMetrics) {
		m := t.customMetrics[name]
		t.log.Info().
			Str("metric", name).
			Float64("avg", m.Mean()).
			Float64("min", m.min).
			Float64("max", m.max).
			Int64("samples", m.count).
			Msg("metric summary")
	}

	for _, name := range sortedKeys(t.operationTimes) {
		op := t.operationTimes[name]
		t.log.Debug().
			Str("operation", name).
			Dur("avg", op.Average().Truncate(time.Microsecond)).
			Dur("min", op.minTime.Truncate(time.Microsecond)).
			Dur("max", op.maxTime.Truncate(time.Microsecond)).
			Int64("count", op.count).
			Msg("operation timing")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
