// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/dvask/surge/internal/loghist"
)

// Latencies are recorded in microseconds. Seven bits of resolution
// bound the relative bucketing error below 1%; one minute is more than
// any sane request takes, slower ones land in the overflow counter.
const (
	histBits = 7
	histMax  = 60 * 1000 * 1000
)

// LatencySnapshot is a point-in-time summary of recorded latencies.
// All values are microseconds except Count. Min and Max are exact, the
// mean and the percentiles carry the histogram's bucketing error.
type LatencySnapshot struct {
	Count uint64
	Min   int
	Max   int
	Mean  int
	P50   int
	P90   int
	P95   int
	P99   int
	P999  int
}

// LatencyTracker accumulates request latencies in a fixed-size
// logarithmic histogram, so memory use does not grow with the number
// of samples.
type LatencyTracker struct {
	mu       sync.Mutex
	hist     *loghist.Hist
	min, max int
}

// NewLatencyTracker returns an empty tracker.
func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{hist: loghist.New(histBits, histMax)}
}

// Record adds one latency sample.
func (t *LatencyTracker) Record(d time.Duration) {
	us := int(d.Microseconds())
	t.mu.Lock()
	if t.hist.Count() == 0 || us < t.min {
		t.min = us
	}
	if us > t.max {
		t.max = us
	}
	t.hist.Add(us)
	t.mu.Unlock()
}

// Stats returns a summary of all samples recorded since the last
// reset, or nil if there are none.
func (t *LatencyTracker) Stats() *LatencySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *LatencyTracker) snapshotLocked() *LatencySnapshot {
	n := t.hist.Count()
	if n == 0 {
		return nil
	}
	q := t.hist.Quantiles([]float64{0.5, 0.9, 0.95, 0.99, 0.999})
	s := &LatencySnapshot{
		Count: n,
		Min:   t.min,
		Max:   t.max,
		Mean:  t.hist.Average(),
		P50:   q[0],
		P90:   q[1],
		P95:   q[2],
		P99:   q[3],
		P999:  q[4],
	}
	// Quantiles overestimate by up to one bin; the exact extremes are
	// tighter bounds.
	for _, p := range []*int{&s.P50, &s.P90, &s.P95, &s.P99, &s.P999, &s.Mean} {
		if *p < s.Min {
			*p = s.Min
		}
		if *p > s.Max {
			*p = s.Max
		}
	}
	return s
}

// Reset discards all recorded samples.
func (t *LatencyTracker) Reset() {
	t.mu.Lock()
	t.hist.Reset()
	t.min, t.max = 0, 0
	t.mu.Unlock()
}

// Rotate returns the current summary and resets the tracker, so the
// data survives in the snapshot while the counters start over.
func (t *LatencyTracker) Rotate() *LatencySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.snapshotLocked()
	t.hist.Reset()
	t.min, t.max = 0, 0
	return s
}

// ----------------------------------------------------------------------------
// MultiLatencyTracker

// MultiLatencyTracker keeps one LatencyTracker per label, e.g. per
// scenario step or per endpoint. Labels are created on first use.
type MultiLatencyTracker struct {
	mu       sync.Mutex
	trackers map[string]*LatencyTracker
}

// NewMultiLatencyTracker returns an empty tracker collection.
func NewMultiLatencyTracker() *MultiLatencyTracker {
	return &MultiLatencyTracker{trackers: make(map[string]*LatencyTracker)}
}

// Record adds one latency sample under the given label.
func (m *MultiLatencyTracker) Record(label string, d time.Duration) {
	m.mu.Lock()
	t, ok := m.trackers[label]
	if !ok {
		t = NewLatencyTracker()
		m.trackers[label] = t
	}
	m.mu.Unlock()
	t.Record(d)
}

// Stats returns the summary for label, or nil if no sample was ever
// recorded under it.
func (m *MultiLatencyTracker) Stats(label string) *LatencySnapshot {
	m.mu.Lock()
	t := m.trackers[label]
	m.mu.Unlock()
	if t == nil {
		return nil
	}
	return t.Stats()
}

// Labels returns all known labels, sorted.
func (m *MultiLatencyTracker) Labels() []string {
	m.mu.Lock()
	labels := make([]string, 0, len(m.trackers))
	for l := range m.trackers {
		labels = append(labels, l)
	}
	m.mu.Unlock()
	sort.Strings(labels)
	return labels
}

// RotateAll resets every tracker, releasing the accumulated counts.
// The label set is kept.
func (m *MultiLatencyTracker) RotateAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trackers {
		t.Reset()
	}
}
