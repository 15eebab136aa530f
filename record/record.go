// Package record - Ordered motion intensity records and the sinks that receive them.
package record

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// ErrSinkWrite is returned when a record cannot be written, flushed or closed.
var ErrSinkWrite = errors.New("sink write failure")

// Result is the motion intensity of a single frame.
type Result struct {
	// Timestamp is the position of the frame in the stream, in seconds.
	Timestamp float64 `json:"timestamp"`
	// ChangedPercent is the share of pixels marked as changed, in [0, 100].
	ChangedPercent float64 `json:"changed_percent"`
}

// Sink accepts records in frame arrival order.
//
// Close flushes any buffered output. It is called exactly once by the producer.
type Sink interface {
	Write(r Result) error
	Close() error
}

// writeError tags an underlying failure as ErrSinkWrite while keeping the cause.
type writeError struct {
	cause error
}

func (e *writeError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSinkWrite, e.cause)
}

func (e *writeError) Unwrap() error {
	return e.cause
}

func (e *writeError) Is(target error) bool {
	return target == ErrSinkWrite
}

// AsWriteError marks err as a sink write failure. Nil stays nil and errors
// already matching ErrSinkWrite are returned unchanged.
func AsWriteError(err error) error {
	if err == nil || errors.Is(err, ErrSinkWrite) {
		return err
	}
	return &writeError{cause: err}
}

type tee struct {
	sinks []Sink
}

// Tee returns a Sink that writes every record to all the given sinks in order.
// The first write error aborts the fan-out for that record. Close closes every
// sink and reports the first failure.
func Tee(sinks ...Sink) Sink {
	return &tee{sinks: sinks}
}

func (t *tee) Write(r Result) error {
	for _, s := range t.sinks {
		if err := s.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func (t *tee) Close() error {
	var first error
	for _, s := range t.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Collector is an in-memory Sink.
type Collector struct {
	mu      sync.Mutex
	results []Result
	closed  int
}

// Write appends the record.
func (c *Collector) Write(r Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed > 0 {
		return AsWriteError(errors.New("collector closed"))
	}
	c.results = append(c.results, r)
	return nil
}

// Close marks the collector closed.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// Results returns a copy of the collected records.
func (c *Collector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}

// Closed reports how many times Close was called.
func (c *Collector) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
