// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stats collects per-request latency and per-label throughput
// during a load test. All trackers are safe for concurrent use.
package stats

import "sync/atomic"

// Gate controls whether trackers keep accepting samples. It starts
// open and can only ever be closed: recording resumes in no situation,
// a run with disabled tracking stays that way until the process ends.
// The zero value is an open gate.
type Gate struct {
	closed atomic.Bool
}

// Active reports whether samples should still be recorded.
func (g *Gate) Active() bool { return !g.closed.Load() }

// Disable closes the gate. Calling it again has no effect.
func (g *Gate) Disable() { g.closed.Store(true) }
