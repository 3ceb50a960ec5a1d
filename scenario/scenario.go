// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scenario executes multi-step user journeys against an HTTP
// target. A Scenario is an ordered list of Steps; each step crafts a
// request from templates, sends it through the worker's session,
// checks assertions against the response and may extract values into
// the variable context for later steps.
package scenario

import (
	"net/http"
	"time"
)

// Scenario is an ordered sequence of steps making up one user journey.
// A Scenario is immutable once constructed and shared read-only across
// all workers.
type Scenario struct {
	// Name identifies the scenario in results and reports.
	Name string

	// Weight is the relative selection probability in multi-scenario
	// mixes. A single-scenario run ignores it.
	Weight int

	// Steps are executed strictly in declaration order.
	Steps []Step
}

// Step is one HTTP interaction within a scenario.
type Step struct {
	// Name identifies the step in results and reports.
	Name string

	// Request describes the HTTP request to craft.
	Request RequestConfig

	// Extract lists variable extractions run against the response of a
	// successful step, in order. A failing extraction leaves its
	// variable unset and never fails the step.
	Extract []VariableExtraction

	// Assertions are checked in order against the response. All must
	// pass for the step to succeed.
	Assertions []Assertion

	// ThinkTime is an optional pause after the step completes, before
	// the next step starts. It emulates human pacing and is not part
	// of the measured request latency.
	ThinkTime time.Duration

	// Cache is an opaque per-step caching directive. Its semantics are
	// not defined yet; the engine carries but ignores it.
	Cache string
}

// RequestConfig is the template from which a step's request is built.
// Method, Path, Body and the header values may contain ${name}
// placeholders which are resolved against the variable context when
// the step executes.
type RequestConfig struct {
	// Method is the HTTP method. Empty means GET.
	Method string

	// Path is appended to the engine's target base URL.
	Path string

	// Body is the raw request body template. Empty means no body.
	Body string

	// Header contains additional request headers.
	Header map[string]string
}

// VariableExtraction binds the value produced by an Extractor to a
// variable name in the context.
type VariableExtraction struct {
	Name      string
	Extractor Extractor
}

// StepResponse captures what a step received. Assertions and
// extractors operate on it; the body has been read completely.
type StepResponse struct {
	Status   int
	Header   http.Header
	BodyStr  string
	Duration time.Duration
}

// ----------------------------------------------------------------------------
// Results

// Result is the immutable outcome of one scenario execution.
type Result struct {
	// Name of the executed scenario.
	Name string

	// Success is true iff every step succeeded.
	Success bool

	// Elapsed is the total wall-clock time of the execution including
	// think times.
	Elapsed time.Duration

	// StepsCompleted counts the steps actually attempted, including a
	// failing one.
	StepsCompleted int

	// FailedStep is the index of the first failed step, or -1.
	FailedStep int

	// Steps holds the per-step outcomes in execution order.
	Steps []StepResult
}

// StepResult is the immutable outcome of one step.
type StepResult struct {
	// Name of the step.
	Name string

	// Success is true iff the send completed without a transport error
	// and every assertion passed.
	Success bool

	// Status is the received HTTP status code, 0 when the request
	// never produced a response.
	Status int

	// Elapsed is the request round-trip time including reading the
	// body, excluding think time.
	Elapsed time.Duration

	// Error holds the transport error text. It stays empty for
	// assertion failures; those are reported in AssertionFailure to
	// keep the two failure categories apart.
	Error string

	// AssertionFailure names the first failing assertion, if any.
	AssertionFailure string
}
