// Package metrics provides lightweight, dependency-free counters used to
// observe fetcher cache behavior (hits, misses, in-flight dedup). Only
// Counter and Registry exist: the data processor has no gauges or
// histograms to report.
package metrics

import "sync/atomic"

// Counter is a monotonically increasing counter, safe for concurrent use.
type Counter struct {
	name  string
	value atomic.Int64
}

// NewCounter returns a new, zero-valued Counter.
func NewCounter(name string) *Counter { return &Counter{name: name} }

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Name returns the metric name.
func (c *Counter) Name() string { return c.name }
