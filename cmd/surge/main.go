// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Surge generates synthetic HTTP load against a target service
// according to a configurable rate curve, executes multi-step user
// journeys and reports latency and throughput statistics.
//
// Usage:
//
//	surge run test.yaml [--target URL] [--workers N] [--duration D]
//	surge check test.yaml
//
// Sending SIGHUP to a running test reloads the configuration file and
// swaps the scenario and the rate model in place; sending SIGINT ends
// the test early but still prints the report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvask/surge/config"
	"github.com/dvask/surge/memguard"
	"github.com/dvask/surge/metrics"
	"github.com/dvask/surge/scenario"
	"github.com/dvask/surge/stats"
	"github.com/dvask/surge/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "surge",
		Short:         "Synthetic HTTP load generator with scripted user journeys",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd(), newCheckCmd())
	return root
}

// runFlags are the command-line overrides on top of the file.
type runFlags struct {
	target   string
	workers  int
	duration time.Duration
	maxRPS   float64
	verbose  bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Run a load test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], flags)
		},
	}
	cmd.Flags().StringVar(&flags.target, "target", "", "override the target base URL")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "override the worker count")
	cmd.Flags().DurationVar(&flags.duration, "duration", 0, "override the test duration")
	cmd.Flags().Float64Var(&flags.maxRPS, "max-rps", 0, "override the aggregate rate cap")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <config.yaml>",
		Short: "Validate a test definition without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			for _, w := range cfg.Warnings() {
				fmt.Fprintln(cmd.OutOrStdout(), "warning:", w)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()
}

func loadConfig(path string, flags runFlags) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if flags.target != "" {
		cfg.Target = flags.target
	}
	if flags.workers > 0 {
		cfg.Workers = flags.workers
	}
	if flags.duration > 0 {
		cfg.Duration = config.Duration(flags.duration)
	}
	if flags.maxRPS > 0 {
		cfg.MaxRPS = flags.maxRPS
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, path string, flags runFlags) error {
	log := newLogger(flags.verbose)

	cfg, err := loadConfig(path, flags)
	if err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}
	snap, err := cfg.Snapshot()
	if err != nil {
		return err
	}

	gate := &stats.Gate{}
	latency := stats.NewMultiLatencyTracker()
	throughput := stats.NewThroughputTracker()
	guard := memguard.New(cfg.GuardConfig(), &memguard.SystemProvider{}, gate,
		log.With().Str("component", "memguard").Logger(), latency)

	var sink worker.EventSink = worker.NopSink{}
	reg := prometheus.NewRegistry()
	if cfg.Metrics != nil && cfg.Metrics.Listen != "" {
		sink = metrics.NewCollector(reg)
	}

	watcher := config.NewWatcher()
	defer watcher.Close()

	runner, err := worker.NewRunner(worker.Options{
		Workers:    cfg.Workers,
		Duration:   cfg.Duration.Std(),
		MaxRPS:     cfg.MaxRPS,
		Engine:     scenario.NewEngine(cfg.Target, nil, log.With().Str("component", "engine").Logger()),
		Initial:    snap,
		Gate:       gate,
		Latency:    latency,
		Throughput: throughput,
		Sink:       sink,
		Guard:      guard,
		Updates:    watcher.Subscribe(),
		Log:        log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// SIGHUP reloads the file and pushes the new work definition to
	// every worker.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for range hup {
			next, err := loadConfig(path, flags)
			if err != nil {
				log.Error().Err(err).Msg("reload failed, keeping current configuration")
				continue
			}
			s, err := next.Snapshot()
			if err != nil {
				log.Error().Err(err).Msg("reload failed, keeping current configuration")
				continue
			}
			watcher.Publish(s)
			log.Info().Str("config", path).Msg("configuration reloaded")
		}
	}()

	if cfg.Metrics != nil && cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, reg); err != nil {
				log.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.Listen).Msg("metrics endpoint up")
	}

	log.Info().
		Str("target", cfg.Target).
		Int("workers", cfg.Workers).
		Dur("duration", cfg.Duration.Std()).
		Str("model", cfg.Load.Model).
		Msg("starting load test")

	started := time.Now()
	if err := runner.Run(ctx); err != nil {
		return err
	}
	printReport(os.Stdout, time.Since(started), latency, throughput, gate)
	return nil
}
