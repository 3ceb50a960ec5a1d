// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

import (
	"sort"
	"sync"
	"time"
)

// ThroughputSnapshot summarises one label's request series.
type ThroughputSnapshot struct {
	Label      string
	TotalCount uint64
	AvgTimeMS  float64
	RPS        float64
	// Duration is the span between the first and the last recorded
	// sample of this label.
	Duration time.Duration
}

// series is the per-label bookkeeping: a counter, the summed elapsed
// time and the observation window. O(1) memory per label.
type series struct {
	count       uint64
	sum         time.Duration
	first, last time.Time
}

func (s *series) snapshot(label string) *ThroughputSnapshot {
	window := s.last.Sub(s.first)
	rps := float64(s.count)
	if window > 0 {
		rps = float64(s.count) / window.Seconds()
	}
	return &ThroughputSnapshot{
		Label:      label,
		TotalCount: s.count,
		AvgTimeMS:  float64(s.sum.Microseconds()) / float64(s.count) / 1000,
		RPS:        rps,
		Duration:   window,
	}
}

// ThroughputTracker counts requests per label and derives the request
// rate from the observed time window.
type ThroughputTracker struct {
	mu     sync.Mutex
	series map[string]*series
	now    func() time.Time // replaced in tests
}

// NewThroughputTracker returns an empty tracker.
func NewThroughputTracker() *ThroughputTracker {
	return &ThroughputTracker{series: make(map[string]*series), now: time.Now}
}

// Record counts one request under label that took elapsed.
func (t *ThroughputTracker) Record(label string, elapsed time.Duration) {
	now := t.now()
	t.mu.Lock()
	s, ok := t.series[label]
	if !ok {
		s = &series{first: now}
		t.series[label] = s
	}
	s.count++
	s.sum += elapsed
	s.last = now
	t.mu.Unlock()
}

// Stats returns the summary for label, or nil if the label is unknown.
func (t *ThroughputTracker) Stats(label string) *ThroughputSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.series[label]
	if s == nil {
		return nil
	}
	return s.snapshot(label)
}

// AllStats returns the summaries of all labels, sorted by label.
func (t *ThroughputTracker) AllStats() []*ThroughputSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	all := make([]*ThroughputSnapshot, 0, len(t.series))
	for label, s := range t.series {
		all = append(all, s.snapshot(label))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Label < all[j].Label })
	return all
}

// TotalThroughput aggregates all labels into one summary with the
// label "total". The window spans from the earliest first sample to
// the latest last sample. Nil if nothing was recorded.
func (t *ThroughputTracker) TotalThroughput() *ThroughputSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.series) == 0 {
		return nil
	}
	agg := series{}
	for _, s := range t.series {
		if agg.count == 0 || s.first.Before(agg.first) {
			agg.first = s.first
		}
		if s.last.After(agg.last) {
			agg.last = s.last
		}
		agg.count += s.count
		agg.sum += s.sum
	}
	return agg.snapshot("total")
}

// Reset discards all series.
func (t *ThroughputTracker) Reset() {
	t.mu.Lock()
	t.series = make(map[string]*series)
	t.mu.Unlock()
}
