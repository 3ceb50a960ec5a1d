// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package worker runs the paced load loop: N identical workers query
// the rate model, execute the scenario, feed the trackers and sleep
// the pacing delay, until the test duration elapses.
package worker

import (
	"math"
	"strconv"
	"time"

	"github.com/dvask/surge/data"
	"github.com/dvask/surge/rate"
	"github.com/dvask/surge/scenario"
)

// StepTiming is one step's name and elapsed time within a scenario
// execution, as reported to the EventSink.
type StepTiming struct {
	Name    string
	Elapsed time.Duration
}

// EventSink receives outcome events for an external metrics collector.
// OnRequest fires once per HTTP request with its status text or error
// category; OnScenario fires once per scenario execution.
// Implementations must be safe for concurrent use.
type EventSink interface {
	OnRequest(label string, elapsed time.Duration)
	OnScenario(name string, elapsed time.Duration, steps []StepTiming)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) OnRequest(string, time.Duration)                {}
func (NopSink) OnScenario(string, time.Duration, []StepTiming) {}

// Snapshot is one immutable work definition: what to run and how fast.
// All workers read the current snapshot each iteration; a configuration
// update swaps in a new one atomically, so a snapshot is never mutated
// after publication.
type Snapshot struct {
	Model    rate.Model
	Scenario *scenario.Scenario
	// Data feeds one row per iteration into the worker's variables.
	// Nil when the scenario is not data-driven.
	Data *data.Source
}

// requestLabel categorizes a step outcome for the throughput tracker
// and the event sink: the HTTP status as text, or an error category.
func requestLabel(sr *scenario.StepResult) string {
	if sr.Error != "" {
		return "transport_error"
	}
	return strconv.Itoa(sr.Status)
}

// pacingDelay converts an aggregate target rate into one worker's
// inter-iteration sleep, assuming all workers are identical:
// round(workers*1000/rate) milliseconds. An unbounded rate means no
// sleep at all.
func pacingDelay(workers int, target float64) time.Duration {
	if math.IsInf(target, 1) {
		return 0
	}
	ms := math.Round(float64(workers) * 1000 / target)
	return time.Duration(ms) * time.Millisecond
}
