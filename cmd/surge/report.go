// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dvask/surge/stats"
)

// ms renders a microsecond value as milliseconds with one decimal.
func ms(us int) string {
	return fmt.Sprintf("%.1fms", float64(us)/1000)
}

// printReport writes the end-of-test summary: one throughput line per
// outcome label, the aggregate, and one latency line per step.
func printReport(w io.Writer, elapsed time.Duration, latency *stats.MultiLatencyTracker,
	throughput *stats.ThroughputTracker, gate *stats.Gate) {

	fmt.Fprintf(w, "\nTest finished after %s.\n", elapsed.Round(time.Millisecond))

	all := throughput.AllStats()
	if len(all) == 0 {
		fmt.Fprintln(w, "No requests were sent.")
		return
	}
	fmt.Fprintln(w, "\nThroughput:")
	for _, s := range all {
		fmt.Fprintf(w, "  %-18s Total=%d  Avg=%.1fms  RPS=%.1f  Window=%s\n",
			s.Label+":", s.TotalCount, s.AvgTimeMS, s.RPS, s.Duration.Round(time.Millisecond))
	}
	if total := throughput.TotalThroughput(); total != nil {
		fmt.Fprintf(w, "  %-18s Total=%d  Avg=%.1fms  RPS=%.1f  Window=%s\n",
			"all:", total.TotalCount, total.AvgTimeMS, total.RPS,
			total.Duration.Round(time.Millisecond))
	}

	if !gate.Active() {
		fmt.Fprintln(w, "\nLatency tracking was disabled by the memory guard;")
		fmt.Fprintln(w, "percentiles cover only the samples recorded before that point.")
	}
	labels := latency.Labels()
	printed := false
	for _, label := range labels {
		s := latency.Stats(label)
		if s == nil {
			continue
		}
		if !printed {
			fmt.Fprintln(w, "\nLatency:")
			printed = true
		}
		fmt.Fprintf(w, "  %-18s N=%d  Min=%s  Mean=%s  50%%=%s  90%%=%s  95%%=%s  99%%=%s  99.9%%=%s  Max=%s\n",
			label+":", s.Count, ms(s.Min), ms(s.Mean),
			ms(s.P50), ms(s.P90), ms(s.P95), ms(s.P99), ms(s.P999), ms(s.Max))
	}
	if !printed {
		fmt.Fprintln(w, "\nNo latency samples were recorded.")
	}
}
