// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dvask/surge/data"
	"github.com/dvask/surge/memguard"
	"github.com/dvask/surge/rate"
	"github.com/dvask/surge/scenario"
	"github.com/dvask/surge/worker"
)

// build constructs the rate model for the selected variant.
func (l *Load) build() (rate.Model, error) {
	switch l.Model {
	case "concurrent":
		return rate.Concurrent{}, nil
	case "rps":
		return rate.Constant{Target: l.Target}, nil
	case "ramp":
		return rate.Ramp{Min: l.Min, Max: l.Max, Duration: l.RampDuration.Std()}, nil
	case "daily":
		d := rate.Daily{
			Min:   l.Min,
			Mid:   l.Mid,
			Max:   l.Max,
			Cycle: l.CycleDuration.Std(),
		}
		if len(l.Ratios) != 5 {
			return nil, &ValidationError{
				Field:  "load.ratios",
				Reason: fmt.Sprintf("need exactly 5 phase ratios, got %d", len(l.Ratios)),
			}
		}
		copy(d.Ratios[:], l.Ratios)
		return d, nil
	}
	return nil, &ValidationError{
		Field:  "load.model",
		Reason: fmt.Sprintf("unknown model %q", l.Model),
	}
}

// RateModel returns the configured load model.
func (c *Config) RateModel() (rate.Model, error) {
	return c.Load.build()
}

// Warnings reports suspicious but non-fatal settings, e.g. daily phase
// ratios summing past 1.
func (c *Config) Warnings() []string {
	model, err := c.Load.build()
	if err != nil {
		return nil
	}
	if d, ok := model.(rate.Daily); ok {
		return d.Warnings()
	}
	return nil
}

// BuildScenario converts the YAML scenario into its runtime form.
func (c *Config) BuildScenario() (*scenario.Scenario, error) {
	if c.Scenario == nil {
		return nil, &ValidationError{Field: "scenario", Reason: "missing"}
	}
	scn := &scenario.Scenario{
		Name:   c.Scenario.Name,
		Weight: c.Scenario.Weight,
	}
	for i, s := range c.Scenario.Steps {
		step := scenario.Step{
			Name: s.Name,
			Request: scenario.RequestConfig{
				Method: s.Method,
				Path:   s.Path,
				Body:   s.Body,
				Header: s.Headers,
			},
			ThinkTime: s.ThinkTime.Std(),
			Cache:     s.Cache,
		}
		for j, ex := range s.Extract {
			parsed, err := parseExtractor(ex.From)
			if err != nil {
				return nil, &ValidationError{
					Field:  fmt.Sprintf("scenario.steps[%d].extract[%d]", i, j),
					Reason: err.Error(),
				}
			}
			step.Extract = append(step.Extract,
				scenario.VariableExtraction{Name: ex.Var, Extractor: parsed})
		}
		step.Assertions = s.Expect.assertions()
		scn.Steps = append(scn.Steps, step)
	}
	return scn, nil
}

// assertions expands the Expect block into the ordered assertion list.
func (e *Expect) assertions() []scenario.Assertion {
	if e == nil {
		return nil
	}
	var as []scenario.Assertion
	if e.Status != 0 {
		as = append(as, scenario.StatusCode{Expect: e.Status})
	}
	for _, text := range e.BodyContains {
		as = append(as, scenario.BodyContains{Text: text})
	}
	for _, expr := range e.JSONExpr {
		as = append(as, &scenario.JSONExpr{Expression: expr})
	}
	for _, name := range e.HeaderPresent {
		as = append(as, scenario.HeaderPresent{Name: name})
	}
	if e.MaxDuration > 0 {
		as = append(as, scenario.ResponseTime{Max: e.MaxDuration.Std()})
	}
	return as
}

// parseExtractor understands three spec forms:
//
//	json:$.a.b[0].c
//	regex:id=(\d+)            (submatch 1; regex:2:... selects another)
//	html:div.cls a@href       (@~text~ or no @attr extracts the text)
func parseExtractor(spec string) (scenario.Extractor, error) {
	kind, rest, ok := strings.Cut(spec, ":")
	if !ok {
		return nil, fmt.Errorf("extractor %q: missing kind prefix", spec)
	}
	switch kind {
	case "json":
		if rest == "" {
			return nil, fmt.Errorf("extractor %q: empty path", spec)
		}
		return scenario.JSONPathExtractor{Path: rest}, nil
	case "regex":
		submatch := 1
		if n, expr, ok := strings.Cut(rest, ":"); ok {
			if v, err := strconv.Atoi(n); err == nil {
				submatch, rest = v, expr
			}
		}
		if rest == "" {
			return nil, fmt.Errorf("extractor %q: empty expression", spec)
		}
		return scenario.BodyExtractor{Regexp: rest, Submatch: submatch}, nil
	case "html":
		sel, attr := rest, "~text~"
		if s, a, ok := strings.Cut(rest, "@"); ok {
			sel, attr = s, a
		}
		if sel == "" {
			return nil, fmt.Errorf("extractor %q: empty selector", spec)
		}
		return scenario.HTMLExtractor{Selector: sel, Attribute: attr}, nil
	}
	return nil, fmt.Errorf("extractor %q: unknown kind %q", spec, kind)
}

// DataSource opens the configured CSV input, or returns nil if the
// test is not data-driven.
func (c *Config) DataSource() (*data.Source, error) {
	if c.Data == nil || c.Data.CSV == "" {
		return nil, nil
	}
	return data.NewSourceFromFile(c.Data.CSV)
}

// Snapshot assembles the worker-facing work definition.
func (c *Config) Snapshot() (*worker.Snapshot, error) {
	model, err := c.RateModel()
	if err != nil {
		return nil, err
	}
	scn, err := c.BuildScenario()
	if err != nil {
		return nil, err
	}
	src, err := c.DataSource()
	if err != nil {
		return nil, err
	}
	return &worker.Snapshot{Model: model, Scenario: scn, Data: src}, nil
}

// GuardConfig returns the memory-guard settings, falling back to the
// defaults for anything unset.
func (c *Config) GuardConfig() memguard.Config {
	cfg := memguard.DefaultConfig
	if c.Guard == nil {
		return cfg
	}
	if c.Guard.WarningPercent > 0 {
		cfg.WarningPercent = c.Guard.WarningPercent
	}
	if c.Guard.CriticalPercent > 0 {
		cfg.CriticalPercent = c.Guard.CriticalPercent
	}
	if c.Guard.Interval > 0 {
		cfg.Interval = time.Duration(c.Guard.Interval)
	}
	if c.Guard.AutoDisable != nil {
		cfg.AutoDisable = *c.Guard.AutoDisable
	}
	return cfg
}
