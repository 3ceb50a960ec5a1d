// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package worker

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	xrate "golang.org/x/time/rate"

	"github.com/dvask/surge/memguard"
	"github.com/dvask/surge/scenario"
	"github.com/dvask/surge/stats"
)

// parkInterval is how long a worker sleeps when the model reports a
// rate of zero. Long enough to not busy-loop, bounded anyway by the
// test-duration deadline.
const parkInterval = time.Hour

// Options wires a Runner. Engine, Initial, Gate, Latency and
// Throughput are required; the rest is optional.
type Options struct {
	Workers  int
	Duration time.Duration
	// MaxRPS caps the aggregate request rate across all workers on
	// top of the model's pacing. Zero means no cap.
	MaxRPS float64

	Engine     *scenario.Engine
	Initial    *Snapshot
	Gate       *stats.Gate
	Latency    *stats.MultiLatencyTracker
	Throughput *stats.ThroughputTracker
	Sink       EventSink
	Guard      *memguard.Guard
	// Updates delivers new snapshots, typically from a configuration
	// watcher. Each received snapshot replaces the current one for
	// all workers from their next iteration on.
	Updates <-chan *Snapshot
	Log     zerolog.Logger
}

// Runner owns the worker pool for one load test.
type Runner struct {
	opts Options
	snap atomic.Pointer[Snapshot]

	limiter *xrate.Limiter
	start   time.Time
}

// NewRunner validates opts and returns a Runner ready to Run once.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Workers <= 0 {
		return nil, errors.New("worker: need at least one worker")
	}
	if opts.Duration <= 0 {
		return nil, errors.New("worker: test duration must be positive")
	}
	if opts.Engine == nil || opts.Initial == nil {
		return nil, errors.New("worker: engine and initial snapshot are required")
	}
	if opts.Initial.Model == nil || opts.Initial.Scenario == nil {
		return nil, errors.New("worker: snapshot needs a rate model and a scenario")
	}
	if opts.Gate == nil || opts.Latency == nil || opts.Throughput == nil {
		return nil, errors.New("worker: gate and trackers are required")
	}
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}

	r := &Runner{opts: opts}
	r.snap.Store(opts.Initial)
	if opts.MaxRPS > 0 {
		burst := int(opts.MaxRPS)
		if burst < 1 {
			burst = 1
		}
		r.limiter = xrate.NewLimiter(xrate.Limit(opts.MaxRPS), burst)
	}
	return r, nil
}

// Swap publishes a new snapshot to all workers.
func (r *Runner) Swap(s *Snapshot) {
	if s == nil || s.Model == nil || s.Scenario == nil {
		return
	}
	r.snap.Store(s)
	r.opts.Log.Info().Str("scenario", s.Scenario.Name).Msg("new configuration active")
}

// Run starts the workers, the memory guard and the update listener and
// blocks until the test duration has elapsed (or ctx is cancelled).
// The shared start time is taken here, so all workers measure elapsed
// time against the same origin.
func (r *Runner) Run(ctx context.Context) error {
	r.start = time.Now()
	ctx, cancel := context.WithDeadline(ctx, r.start.Add(r.opts.Duration))
	defer cancel()

	// The guard and the update listener live exactly as long as the
	// workers; auxCancel reaps them once the pool drains.
	auxCtx, auxCancel := context.WithCancel(ctx)
	var aux errgroup.Group
	if r.opts.Guard != nil {
		aux.Go(func() error { return r.opts.Guard.Run(auxCtx) })
	}
	if r.opts.Updates != nil {
		aux.Go(func() error {
			for {
				select {
				case <-auxCtx.Done():
					return nil
				case s, ok := <-r.opts.Updates:
					if !ok {
						return nil
					}
					r.Swap(s)
				}
			}
		})
	}

	var pool errgroup.Group
	for i := 0; i < r.opts.Workers; i++ {
		id := i
		pool.Go(func() error { return r.work(ctx, id) })
	}
	err := pool.Wait()
	auxCancel()
	if auxErr := aux.Wait(); err == nil {
		err = auxErr
	}
	return err
}

// work is one worker's loop. It never returns a non-nil error from a
// failed execution; failures are data for the trackers.
func (r *Runner) work(ctx context.Context, id int) error {
	vars := scenario.NewVars()
	vars.Set("__worker", strconv.Itoa(id))
	session := scenario.NewSessionStore()

	iteration := 0
	for {
		elapsed := time.Since(r.start)
		if elapsed >= r.opts.Duration || ctx.Err() != nil {
			r.opts.Log.Debug().Int("worker", id).Int("iterations", iteration).Msg("worker done")
			return nil
		}

		snap := r.snap.Load()
		target := snap.Model.Rate(elapsed, r.opts.Duration)
		if target == 0 {
			if !sleepCtx(ctx, parkInterval) {
				return nil
			}
			continue
		}
		delay := pacingDelay(r.opts.Workers, target)

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		iteration++
		vars.Set("__iteration", strconv.Itoa(iteration))
		if snap.Data != nil {
			vars.Load(snap.Data.Next())
		}

		res := r.opts.Engine.Execute(ctx, snap.Scenario, vars, session)
		r.report(res)

		if delay > 0 && !sleepCtx(ctx, delay) {
			return nil
		}
	}
}

// report feeds one execution's outcome to the trackers and the sink.
// Latency recording honors the gate; throughput counting does not.
func (r *Runner) report(res *scenario.Result) {
	tracking := r.opts.Gate.Active()
	steps := make([]StepTiming, 0, len(res.Steps))
	for i := range res.Steps {
		sr := &res.Steps[i]
		label := requestLabel(sr)
		r.opts.Throughput.Record(label, sr.Elapsed)
		if tracking {
			r.opts.Latency.Record(sr.Name, sr.Elapsed)
		}
		r.opts.Sink.OnRequest(label, sr.Elapsed)
		steps = append(steps, StepTiming{Name: sr.Name, Elapsed: sr.Elapsed})
	}
	r.opts.Sink.OnScenario(res.Name, res.Elapsed, steps)
}

// sleepCtx sleeps for d or until ctx is done, reporting whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
