// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/dvask/surge/stats"
)

func TestPrintReport(t *testing.T) {
	latency := stats.NewMultiLatencyTracker()
	throughput := stats.NewThroughputTracker()
	gate := &stats.Gate{}

	for i := 0; i < 10; i++ {
		latency.Record("login", 40*time.Millisecond)
		throughput.Record("200", 40*time.Millisecond)
	}
	throughput.Record("transport_error", time.Second)

	var b strings.Builder
	printReport(&b, 3*time.Second, latency, throughput, gate)
	out := b.String()

	for _, want := range []string{
		"Throughput:", "200:", "transport_error:", "all:",
		"Latency:", "login:", "N=10", "Min=40.0ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "memory guard") {
		t.Errorf("open gate must not print the guard notice:\n%s", out)
	}
}

func TestPrintReportEmpty(t *testing.T) {
	var b strings.Builder
	printReport(&b, time.Second, stats.NewMultiLatencyTracker(),
		stats.NewThroughputTracker(), &stats.Gate{})
	if !strings.Contains(b.String(), "No requests were sent.") {
		t.Errorf("empty report:\n%s", b.String())
	}
}

func TestPrintReportDisabledTracking(t *testing.T) {
	latency := stats.NewMultiLatencyTracker()
	throughput := stats.NewThroughputTracker()
	gate := &stats.Gate{}
	gate.Disable()
	throughput.Record("200", 10*time.Millisecond)

	var b strings.Builder
	printReport(&b, time.Second, latency, throughput, gate)
	out := b.String()
	if !strings.Contains(out, "memory guard") {
		t.Errorf("closed gate must print the guard notice:\n%s", out)
	}
	if !strings.Contains(out, "No latency samples") {
		t.Errorf("expected the no-samples line:\n%s", out)
	}
}
