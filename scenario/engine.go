// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenario

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultClientTimeout bounds a single request when the engine's
// client has no timeout of its own.
const DefaultClientTimeout = 10 * time.Second

// Engine executes scenarios against one HTTP target. The engine is
// stateless between executions; all mutable state lives in the Vars
// and SessionStore passed into Execute, so a single Engine is safely
// shared by all workers.
type Engine struct {
	// Target is the base URL the step paths are appended to, e.g.
	// "https://staging.example.com".
	Target string

	// Client is the HTTP client used for all requests. The caller
	// owns its construction (TLS, DNS overrides, timeouts). If nil a
	// plain client with DefaultClientTimeout is used.
	Client *http.Client

	// Log receives per-step debug logging.
	Log zerolog.Logger
}

// NewEngine returns an Engine for the given target base URL.
func NewEngine(target string, client *http.Client, log zerolog.Logger) *Engine {
	if client == nil {
		client = &http.Client{Timeout: DefaultClientTimeout}
	}
	return &Engine{Target: strings.TrimRight(target, "/"), Client: client, Log: log}
}

// Execute runs scn step by step. Placeholders are resolved against
// vars, cookies flow through session, extractions write back into
// vars. The first failing step stops the execution; the returned
// Result records how far it got. Execute never returns an error value:
// failures are data, not exceptions, so the caller's loop goes on.
//
// The context bounds the whole execution: between steps it is checked
// cooperatively, an in-flight request is bounded by the client timeout
// and by ctx through the request itself.
func (e *Engine) Execute(ctx context.Context, scn *Scenario, vars Vars, session *SessionStore) *Result {
	started := time.Now()
	vars.setBuiltins(started)

	result := &Result{
		Name:       scn.Name,
		Success:    true,
		FailedStep: -1,
		Steps:      make([]StepResult, 0, len(scn.Steps)),
	}

	for i := range scn.Steps {
		step := &scn.Steps[i]
		sr := e.executeStep(ctx, step, vars, session)
		result.Steps = append(result.Steps, sr)
		result.StepsCompleted++

		if !sr.Success {
			result.Success = false
			result.FailedStep = i
			break
		}

		if step.ThinkTime > 0 && i < len(scn.Steps)-1 {
			if !sleepCtx(ctx, step.ThinkTime) {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	result.Elapsed = time.Since(started)
	return result
}

// executeStep crafts, sends and checks a single step.
func (e *Engine) executeStep(ctx context.Context, step *Step, vars Vars, session *SessionStore) StepResult {
	sr := StepResult{Name: step.Name}

	method := strings.ToUpper(vars.Substitute(step.Request.Method))
	if method == "" {
		method = http.MethodGet
	}
	url := e.Target + vars.Substitute(step.Request.Path)

	var body io.Reader
	if step.Request.Body != "" {
		body = strings.NewReader(vars.Substitute(step.Request.Body))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		sr.Error = (&TransportError{Step: step.Name, Err: err}).Error()
		return sr
	}
	for k, v := range step.Request.Header {
		req.Header.Set(k, vars.Substitute(v))
	}
	session.Attach(req)

	start := time.Now()
	resp, err := e.Client.Do(req)
	if err != nil {
		sr.Elapsed = time.Since(start)
		sr.Error = (&TransportError{Step: step.Name, Err: err}).Error()
		e.Log.Debug().Str("step", step.Name).Err(err).Msg("transport failure")
		return sr
	}

	bodyBytes, bodyErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	sr.Elapsed = time.Since(start)
	sr.Status = resp.StatusCode

	session.Update(req.URL, resp)

	stepResp := &StepResponse{
		Status:   resp.StatusCode,
		Header:   resp.Header,
		BodyStr:  string(bodyBytes),
		Duration: sr.Elapsed,
	}
	if bodyErr != nil {
		sr.Error = (&TransportError{Step: step.Name, Err: bodyErr}).Error()
		return sr
	}

	// Assertions, in order, fail fast. An assertion failure is not a
	// transport error; the distinction survives into the StepResult.
	for _, a := range step.Assertions {
		if err := a.Check(stepResp); err != nil {
			sr.AssertionFailure = err.Error()
			e.Log.Debug().Str("step", step.Name).Str("assertion", nameOf(a)).
				Err(err).Msg("assertion failed")
			return sr
		}
	}
	sr.Success = true

	// Extractions run only on a successful step. Failures leave the
	// variable unset and are logged, never fatal.
	for _, ex := range step.Extract {
		value, err := ex.Extractor.Extract(stepResp)
		if err != nil {
			e.Log.Debug().Str("step", step.Name).Str("variable", ex.Name).
				Err(&ExtractionError{Variable: ex.Name, Err: err}).
				Msg("extraction skipped")
			continue
		}
		vars.Set(ex.Name, value)
	}

	return sr
}

// sleepCtx sleeps for d or until ctx is done. It reports whether the
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
