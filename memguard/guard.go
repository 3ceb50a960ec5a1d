// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memguard

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvask/surge/stats"
)

// Rotator frees a tracker's accumulated data while keeping it usable.
// *stats.MultiLatencyTracker satisfies it.
type Rotator interface {
	RotateAll()
}

// hysteresis is how many percentage points below the warning threshold
// usage must drop before the excursion latches rearm.
const hysteresis = 10

// Config holds the guard's thresholds, both in percent of the detected
// limit.
type Config struct {
	WarningPercent  float64
	CriticalPercent float64
	Interval        time.Duration
	// AutoDisable makes the warning crossing turn latency tracking
	// off. Without it the guard only logs.
	AutoDisable bool
}

// DefaultConfig is a conservative setup for containerized runs.
var DefaultConfig = Config{
	WarningPercent:  80,
	CriticalPercent: 90,
	Interval:        5 * time.Second,
	AutoDisable:     true,
}

// Guard polls memory usage and reacts to threshold excursions. One
// Guard watches the whole process; run it once.
//
// Disabling tracking is one-way: once the gate is closed it stays
// closed for the rest of the process, even if usage recovers. The
// excursion latches do rearm after usage falls hysteresis points below
// the warning threshold, so a second excursion rotates the histograms
// again.
type Guard struct {
	cfg      Config
	provider Provider
	gate     *stats.Gate
	rotators []Rotator
	log      zerolog.Logger

	limit    uint64
	active   bool
	warning  bool // latched: warning fired this excursion
	critical bool // latched: critical fired this excursion
}

// New returns a Guard. The limit is detected once, here: if the
// provider cannot supply one the guard logs a single notice and every
// later tick is a no-op.
func New(cfg Config, provider Provider, gate *stats.Gate, log zerolog.Logger, rotators ...Rotator) *Guard {
	g := &Guard{cfg: cfg, provider: provider, gate: gate, rotators: rotators, log: log}
	limit, ok := provider.Limit()
	if !ok || limit == 0 {
		g.log.Warn().Msg("no memory limit detectable, memory guard disabled")
		return g
	}
	g.limit = limit
	g.active = true
	g.log.Info().Uint64("limit_bytes", limit).
		Float64("warning_pct", cfg.WarningPercent).
		Float64("critical_pct", cfg.CriticalPercent).
		Msg("memory guard armed")
	return g
}

// Run polls until ctx is cancelled. It always returns nil so an
// errgroup running it alongside the workers is not torn down by the
// guard.
func (g *Guard) Run(ctx context.Context) error {
	if !g.active {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			g.tick()
		}
	}
}

// tick runs one poll of the state machine.
func (g *Guard) tick() {
	if !g.active {
		return
	}
	usage, ok := g.provider.Usage()
	if !ok {
		g.active = false
		g.log.Warn().Msg("memory usage unreadable, memory guard disabled")
		return
	}
	pct := float64(usage) / float64(g.limit) * 100

	if pct >= g.cfg.CriticalPercent && !g.critical {
		g.critical = true
		g.rotateAll()
		g.log.Error().Float64("usage_pct", pct).Msg("memory usage critical")
	}

	if pct >= g.cfg.WarningPercent && !g.warning {
		g.warning = true
		g.log.Warn().Float64("usage_pct", pct).Bool("auto_disable", g.cfg.AutoDisable).
			Msg("memory usage above warning threshold")
		if g.cfg.AutoDisable {
			g.gate.Disable()
			g.rotateAll()
		}
	}

	if pct < g.cfg.WarningPercent-hysteresis && (g.warning || g.critical) {
		// Rearm the latches. The tracking gate stays closed: regaining
		// latency visibility requires a restart.
		g.warning, g.critical = false, false
		g.log.Info().Float64("usage_pct", pct).Msg("memory usage recovered, latches rearmed")
	}
}

func (g *Guard) rotateAll() {
	for _, r := range g.rotators {
		r.RotateAll()
	}
}
