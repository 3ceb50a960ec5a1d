// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config reads and validates the YAML test definition and
// turns it into the runtime objects the workers consume.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dvask/surge/scenario"
)

// ValidationError reports one invalid configuration field. It is the
// only error type Validate produces; configuration problems are always
// fatal at startup, never at runtime.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Duration wraps time.Duration for YAML fields written as "30s", "5m"
// or "1h30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler's UnmarshalYAML method.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root of the test definition file.
type Config struct {
	Target   string   `yaml:"target"`
	Workers  int      `yaml:"workers"`
	Duration Duration `yaml:"duration"`
	// MaxRPS caps the aggregate rate regardless of the load model.
	// Zero means uncapped.
	MaxRPS float64 `yaml:"max_rps,omitempty"`

	Load     Load      `yaml:"load"`
	Scenario *Scenario `yaml:"scenario"`
	Data     *Data     `yaml:"data,omitempty"`
	Guard    *Guard    `yaml:"guard,omitempty"`
	Metrics  *Metrics  `yaml:"metrics,omitempty"`
}

// Load selects the rate model and its parameters. Only the fields of
// the selected model are read.
type Load struct {
	Model string `yaml:"model"` // concurrent, rps, ramp or daily

	Target float64 `yaml:"target,omitempty"` // rps

	Min          float64  `yaml:"min,omitempty"` // ramp, daily
	Max          float64  `yaml:"max,omitempty"` // ramp, daily
	RampDuration Duration `yaml:"ramp_duration,omitempty"`

	Mid           float64   `yaml:"mid,omitempty"` // daily
	CycleDuration Duration  `yaml:"cycle_duration,omitempty"`
	Ratios        []float64 `yaml:"ratios,omitempty"` // five phase lengths
}

// Scenario is the YAML form of a user journey.
type Scenario struct {
	Name   string `yaml:"name"`
	Weight int    `yaml:"weight,omitempty"`
	Steps  []Step `yaml:"steps"`
}

// Step is the YAML form of one scenario step.
type Step struct {
	Name      string            `yaml:"name"`
	Method    string            `yaml:"method,omitempty"`
	Path      string            `yaml:"path"`
	Body      string            `yaml:"body,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
	Extract   []Extraction      `yaml:"extract,omitempty"`
	Expect    *Expect           `yaml:"expect,omitempty"`
	ThinkTime Duration          `yaml:"think_time,omitempty"`
	Cache     string            `yaml:"cache,omitempty"` // reserved, currently unused
}

// Extraction binds one extracted response value to a variable.
// Extractions run in list order.
type Extraction struct {
	Var  string `yaml:"var"`
	From string `yaml:"from"` // extractor spec, see parseExtractor
}

// Expect lists a step's assertions. They are checked in field order:
// status, body_contains, json_expr, header_present, max_duration.
type Expect struct {
	Status        int      `yaml:"status,omitempty"`
	BodyContains  []string `yaml:"body_contains,omitempty"`
	JSONExpr      []string `yaml:"json_expr,omitempty"`
	HeaderPresent []string `yaml:"header_present,omitempty"`
	MaxDuration   Duration `yaml:"max_duration,omitempty"`
}

// Data names the tabular input feeding per-iteration variables.
type Data struct {
	CSV string `yaml:"csv"`
}

// Guard holds the memory-guard thresholds.
type Guard struct {
	WarningPercent  float64  `yaml:"warning_percent"`
	CriticalPercent float64  `yaml:"critical_percent"`
	Interval        Duration `yaml:"interval,omitempty"`
	AutoDisable     *bool    `yaml:"auto_disable,omitempty"` // default true
}

// Metrics configures the optional Prometheus endpoint.
type Metrics struct {
	Listen string `yaml:"listen"` // e.g. ":9090"
}

// LoadFile parses the file at path. The result is not yet validated.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML document. Unknown fields are an error so typos
// do not silently disable features.
func Parse(b []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

// Validate checks everything that must hold before a test starts.
// The first problem found is returned as a *ValidationError.
func (c *Config) Validate() error {
	if c.Target == "" {
		return &ValidationError{Field: "target", Reason: "missing"}
	}
	if c.Workers <= 0 {
		return &ValidationError{Field: "workers", Reason: "must be positive"}
	}
	if c.Duration <= 0 {
		return &ValidationError{Field: "duration", Reason: "must be positive"}
	}
	if c.MaxRPS < 0 {
		return &ValidationError{Field: "max_rps", Reason: "must be non-negative"}
	}
	if err := c.Load.validate(); err != nil {
		return err
	}
	if c.Scenario == nil {
		return &ValidationError{Field: "scenario", Reason: "missing"}
	}
	if c.Scenario.Name == "" {
		return &ValidationError{Field: "scenario.name", Reason: "missing"}
	}
	if len(c.Scenario.Steps) == 0 {
		return &ValidationError{Field: "scenario.steps", Reason: "need at least one step"}
	}
	for i, s := range c.Scenario.Steps {
		field := fmt.Sprintf("scenario.steps[%d]", i)
		if s.Name == "" {
			return &ValidationError{Field: field + ".name", Reason: "missing"}
		}
		if s.Path == "" {
			return &ValidationError{Field: field + ".path", Reason: "missing"}
		}
		if s.ThinkTime < 0 {
			return &ValidationError{Field: field + ".think_time", Reason: "must be non-negative"}
		}
		for j, ex := range s.Extract {
			exField := fmt.Sprintf("%s.extract[%d]", field, j)
			if ex.Var == "" {
				return &ValidationError{Field: exField + ".var", Reason: "missing"}
			}
			if _, err := parseExtractor(ex.From); err != nil {
				return &ValidationError{Field: exField, Reason: err.Error()}
			}
		}
		for _, a := range s.Expect.assertions() {
			if err := scenario.Prepare(a); err != nil {
				return &ValidationError{Field: field + ".expect", Reason: err.Error()}
			}
		}
	}
	if c.Guard != nil {
		if c.Guard.WarningPercent <= 0 || c.Guard.WarningPercent >= 100 {
			return &ValidationError{Field: "guard.warning_percent", Reason: "must be in (0,100)"}
		}
		if c.Guard.CriticalPercent < c.Guard.WarningPercent {
			return &ValidationError{Field: "guard.critical_percent", Reason: "must be >= warning_percent"}
		}
	}
	return nil
}

func (l *Load) validate() error {
	switch l.Model {
	case "concurrent", "rps", "ramp":
	case "daily":
		if n := len(l.Ratios); n != 5 {
			return &ValidationError{
				Field:  "load.ratios",
				Reason: fmt.Sprintf("need exactly 5 phase ratios, got %d", n),
			}
		}
	case "":
		return &ValidationError{Field: "load.model", Reason: "missing"}
	default:
		return &ValidationError{
			Field:  "load.model",
			Reason: fmt.Sprintf("unknown model %q", l.Model),
		}
	}
	model, err := l.build()
	if err != nil {
		return err
	}
	if v, ok := model.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return &ValidationError{Field: "load", Reason: err.Error()}
		}
	}
	return nil
}
