// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rate provides the load models which decide, at any elapsed
// instant of a test, how many requests per second the generator as a
// whole should produce. All models are pure functions of time: they
// keep no state and do no I/O, so every worker may query the shared
// model on every iteration without synchronization.
package rate

import (
	"fmt"
	"math"
	"time"
)

// Unlimited is the rate returned by the Concurrent model. The
// scheduler treats it as "no pacing delay at all".
var Unlimited = math.Inf(1)

// Model yields the aggregate target rate in requests per second at a
// given elapsed time. Implementations must be deterministic and free
// of side effects.
type Model interface {
	// Rate returns the aggregate target in requests/second after
	// elapsed of a test lasting total.
	Rate(elapsed, total time.Duration) float64
}

// Validator is implemented by models whose parameters can be invalid.
// Validation failures are fatal at startup only; a validated model
// never fails at runtime.
type Validator interface {
	Validate() error
}

// ----------------------------------------------------------------------------
// Concurrent

// Concurrent is the unpaced model: every worker fires its next request
// as soon as the previous one finished. Throughput is bounded only by
// the worker count and the target's response latency.
type Concurrent struct{}

// Rate implements Model's Rate method.
func (Concurrent) Rate(elapsed, total time.Duration) float64 {
	return Unlimited
}

// ----------------------------------------------------------------------------
// Constant

// Constant holds the aggregate rate at Target for the whole test.
type Constant struct {
	Target float64 // requests per second
}

// Rate implements Model's Rate method.
func (c Constant) Rate(elapsed, total time.Duration) float64 {
	return c.Target
}

// Validate implements Validator's Validate method.
func (c Constant) Validate() error {
	if c.Target < 0 {
		return fmt.Errorf("rate: constant target %g < 0", c.Target)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Ramp

// Ramp interpolates linearly from Min to Max over Duration and holds
// at Max afterwards.
type Ramp struct {
	Min, Max float64       // requests per second
	Duration time.Duration // length of the ramp
}

// Rate implements Model's Rate method.
func (r Ramp) Rate(elapsed, total time.Duration) float64 {
	if r.Duration <= 0 {
		return r.Max
	}
	f := elapsed.Seconds() / r.Duration.Seconds()
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return r.Min + (r.Max-r.Min)*f
}

// Validate implements Validator's Validate method.
func (r Ramp) Validate() error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("rate: ramp bounds %g..%g must be non-negative", r.Min, r.Max)
	}
	if r.Duration < 0 {
		return fmt.Errorf("rate: ramp duration %s < 0", r.Duration)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Daily

// Daily models a day-shaped traffic curve repeating every Cycle.
// The cycle consists of five consecutive phases whose lengths are the
// Ratios multiplied by Cycle:
//
//	1. morning ramp      Min -> Max   (linear)
//	2. peak sustain      Max
//	3. midday decline    Max -> Mid   (linear)
//	4. midday sustain    Mid
//	5. evening decline   Mid -> Min   (linear)
//
// Whatever remains of the cycle (1 - sum of Ratios) is a night sustain
// phase at Min. If the ratios sum to more than 1 the night phase has
// no length and is skipped; the other phases still execute in order.
// That situation is reported by Warnings, not by a runtime failure.
type Daily struct {
	Min, Mid, Max float64       // requests per second
	Cycle         time.Duration // length of one full day cycle
	Ratios        [5]float64    // phase lengths as fractions of Cycle
}

// Rate implements Model's Rate method.
func (d Daily) Rate(elapsed, total time.Duration) float64 {
	cycle := d.Cycle.Seconds()
	if cycle <= 0 {
		return d.Min
	}
	t := math.Mod(elapsed.Seconds(), cycle)

	type phase struct {
		len      float64
		from, to float64
	}
	phases := []phase{
		{d.Ratios[0] * cycle, d.Min, d.Max},
		{d.Ratios[1] * cycle, d.Max, d.Max},
		{d.Ratios[2] * cycle, d.Max, d.Mid},
		{d.Ratios[3] * cycle, d.Mid, d.Mid},
		{d.Ratios[4] * cycle, d.Mid, d.Min},
	}
	for _, p := range phases {
		if p.len <= 0 {
			continue
		}
		if t < p.len {
			return p.from + (p.to-p.from)*(t/p.len)
		}
		t -= p.len
	}
	return d.Min // night
}

// Validate implements Validator's Validate method.
func (d Daily) Validate() error {
	if d.Min < 0 || d.Mid < 0 || d.Max < 0 {
		return fmt.Errorf("rate: daily levels %g/%g/%g must be non-negative",
			d.Min, d.Mid, d.Max)
	}
	if d.Cycle <= 0 {
		return fmt.Errorf("rate: daily cycle %s must be positive", d.Cycle)
	}
	for i, r := range d.Ratios {
		if r < 0 {
			return fmt.Errorf("rate: daily ratio %d is %g < 0", i+1, r)
		}
	}
	return nil
}

// Warnings reports suspicious but non-fatal parameter combinations.
func (d Daily) Warnings() []string {
	sum := 0.0
	for _, r := range d.Ratios {
		sum += r
	}
	var w []string
	if sum > 1 {
		w = append(w, fmt.Sprintf(
			"daily phase ratios sum to %.3f > 1; the night phase is skipped", sum))
	}
	return w
}
