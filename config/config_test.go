// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvask/surge/rate"
	"github.com/dvask/surge/scenario"
)

const sampleYAML = `
target: https://staging.example.com
workers: 8
duration: 5m
max_rps: 500

load:
  model: ramp
  min: 10
  max: 200
  ramp_duration: 60s

scenario:
  name: checkout
  weight: 3
  steps:
    - name: login
      method: POST
      path: /login
      body: '{"user": "${user}", "pass": "${pass}"}'
      headers:
        Content-Type: application/json
      extract:
        - var: token
          from: json:$.auth.token
        - var: csrf
          from: html:form input[name="_csrf"]@value
      expect:
        status: 200
        json_expr:
          - .auth.token != null
    - name: cart
      path: /cart
      think_time: 500ms
      expect:
        status: 200
        body_contains: [items]
        header_present: [X-Request-Id]
        max_duration: 2s

data:
  csv: users.csv

guard:
  warning_percent: 75
  critical_percent: 85
  interval: 2s

metrics:
  listen: ":9090"
`

func TestParseFull(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "https://staging.example.com", c.Target)
	assert.Equal(t, 8, c.Workers)
	assert.Equal(t, 5*time.Minute, c.Duration.Std())
	assert.Equal(t, 500.0, c.MaxRPS)
	assert.Equal(t, "users.csv", c.Data.CSV)
	assert.Equal(t, ":9090", c.Metrics.Listen)
	require.Len(t, c.Scenario.Steps, 2)
	assert.Equal(t, 500*time.Millisecond, c.Scenario.Steps[1].ThinkTime.Std())
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse([]byte("target: x\nworkrs: 4\n"))
	assert.Error(t, err, "typos must not be swallowed")
}

func TestParseBadDuration(t *testing.T) {
	_, err := Parse([]byte("duration: quick\n"))
	assert.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no target", func(c *Config) { c.Target = "" }, "target"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"zero duration", func(c *Config) { c.Duration = 0 }, "duration"},
		{"negative cap", func(c *Config) { c.MaxRPS = -1 }, "max_rps"},
		{"no model", func(c *Config) { c.Load.Model = "" }, "load.model"},
		{"bad model", func(c *Config) { c.Load.Model = "spiky" }, "load.model"},
		{"negative ramp", func(c *Config) { c.Load.Min = -5 }, "load"},
		{"no scenario", func(c *Config) { c.Scenario = nil }, "scenario"},
		{"no steps", func(c *Config) { c.Scenario.Steps = nil }, "scenario.steps"},
		{"step no path", func(c *Config) { c.Scenario.Steps[0].Path = "" }, "scenario.steps[0].path"},
		{"bad extractor", func(c *Config) {
			c.Scenario.Steps[0].Extract = []Extraction{{Var: "v", From: "xpath://a"}}
		}, "scenario.steps[0].extract[0]"},
		{"unnamed extraction", func(c *Config) {
			c.Scenario.Steps[0].Extract = []Extraction{{From: "json:$.a"}}
		}, "scenario.steps[0].extract[0].var"},
		{"bad json expr", func(c *Config) {
			c.Scenario.Steps[0].Expect.JSONExpr = []string{"((("}
		}, "scenario.steps[0].expect"},
		{"guard bounds", func(c *Config) { c.Guard.WarningPercent = 120 }, "guard.warning_percent"},
		{"guard order", func(c *Config) { c.Guard.CriticalPercent = 50 }, "guard.critical_percent"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Parse([]byte(sampleYAML))
			require.NoError(t, err)
			tc.mutate(c)
			err = c.Validate()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestRateModelVariants(t *testing.T) {
	m, err := (&Load{Model: "concurrent"}).build()
	require.NoError(t, err)
	assert.Equal(t, rate.Concurrent{}, m)

	m, err = (&Load{Model: "rps", Target: 42}).build()
	require.NoError(t, err)
	assert.Equal(t, rate.Constant{Target: 42}, m)

	m, err = (&Load{Model: "ramp", Min: 1, Max: 9, RampDuration: Duration(time.Minute)}).build()
	require.NoError(t, err)
	assert.Equal(t, rate.Ramp{Min: 1, Max: 9, Duration: time.Minute}, m)

	m, err = (&Load{
		Model: "daily", Min: 1, Mid: 5, Max: 10,
		CycleDuration: Duration(24 * time.Hour),
		Ratios:        []float64{0.2, 0.2, 0.2, 0.2, 0.2},
	}).build()
	require.NoError(t, err)
	d, ok := m.(rate.Daily)
	require.True(t, ok)
	assert.Equal(t, [5]float64{0.2, 0.2, 0.2, 0.2, 0.2}, d.Ratios)
}

func TestWarningsOverfullRatios(t *testing.T) {
	c := &Config{Load: Load{
		Model: "daily", Min: 1, Mid: 5, Max: 10,
		CycleDuration: Duration(time.Hour),
		Ratios:        []float64{0.3, 0.3, 0.3, 0.3, 0.3},
	}}
	w := c.Warnings()
	require.Len(t, w, 1)
	assert.Contains(t, w[0], "night phase")

	// Overfull ratios warn but still validate.
	assert.NoError(t, c.Load.validate())
}

func TestParseExtractor(t *testing.T) {
	ex, err := parseExtractor("json:$.a.b[0]")
	require.NoError(t, err)
	assert.Equal(t, scenario.JSONPathExtractor{Path: "$.a.b[0]"}, ex)

	ex, err = parseExtractor(`regex:id=(\d+)`)
	require.NoError(t, err)
	assert.Equal(t, scenario.BodyExtractor{Regexp: `id=(\d+)`, Submatch: 1}, ex)

	ex, err = parseExtractor(`regex:2:(\w+)-(\w+)`)
	require.NoError(t, err)
	assert.Equal(t, scenario.BodyExtractor{Regexp: `(\w+)-(\w+)`, Submatch: 2}, ex)

	ex, err = parseExtractor("html:form input@value")
	require.NoError(t, err)
	assert.Equal(t, scenario.HTMLExtractor{Selector: "form input", Attribute: "value"}, ex)

	ex, err = parseExtractor("html:h1.title")
	require.NoError(t, err)
	assert.Equal(t, scenario.HTMLExtractor{Selector: "h1.title", Attribute: "~text~"}, ex)

	for _, bad := range []string{"", "nokind", "json:", "html:@href", "css:div"} {
		_, err := parseExtractor(bad)
		assert.Error(t, err, "spec %q", bad)
	}
}

func TestBuildScenario(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	scn, err := c.BuildScenario()
	require.NoError(t, err)
	assert.Equal(t, "checkout", scn.Name)
	assert.Equal(t, 3, scn.Weight)
	require.Len(t, scn.Steps, 2)

	login := scn.Steps[0]
	assert.Equal(t, "POST", login.Request.Method)
	// Extractions keep their declaration order.
	require.Len(t, login.Extract, 2)
	assert.Equal(t, "token", login.Extract[0].Name)
	assert.Equal(t, "csrf", login.Extract[1].Name)
	require.Len(t, login.Assertions, 2)
	assert.Equal(t, scenario.StatusCode{Expect: 200}, login.Assertions[0])

	cart := scn.Steps[1]
	require.Len(t, cart.Assertions, 4)
	assert.Equal(t, scenario.StatusCode{Expect: 200}, cart.Assertions[0])
	assert.Equal(t, scenario.BodyContains{Text: "items"}, cart.Assertions[1])
	assert.Equal(t, scenario.HeaderPresent{Name: "X-Request-Id"}, cart.Assertions[2])
	assert.Equal(t, scenario.ResponseTime{Max: 2 * time.Second}, cart.Assertions[3])
	assert.Equal(t, 500*time.Millisecond, cart.ThinkTime)
}

func TestSnapshot(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "users.csv")
	require.NoError(t, os.WriteFile(csv, []byte("user,pass\nalice,s3cret\n"), 0644))

	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	c.Data.CSV = csv

	snap, err := c.Snapshot()
	require.NoError(t, err)
	assert.NotNil(t, snap.Model)
	assert.NotNil(t, snap.Data)
	assert.Equal(t, "checkout", snap.Scenario.Name)
	assert.Equal(t, "alice", snap.Data.Next()["user"])
}

func TestGuardConfig(t *testing.T) {
	c := &Config{}
	assert.Equal(t, 80.0, c.GuardConfig().WarningPercent)

	off := false
	c.Guard = &Guard{WarningPercent: 70, CriticalPercent: 95, AutoDisable: &off}
	got := c.GuardConfig()
	assert.Equal(t, 70.0, got.WarningPercent)
	assert.Equal(t, 95.0, got.CriticalPercent)
	assert.False(t, got.AutoDisable)
	assert.Equal(t, 5*time.Second, got.Interval, "unset interval keeps the default")
}

func TestValidationErrorType(t *testing.T) {
	c := &Config{}
	err := c.Validate()
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "target")
}
