// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// errors.go contains the closed error types of the scenario engine.
// Keeping transport failures, assertion failures and extraction
// failures as distinct types lets callers categorize outcomes without
// string matching.

package scenario

import (
	"fmt"
	"time"
)

// TransportError reports that a request never produced a usable
// response: DNS, connect, TLS or timeout failures.
type TransportError struct {
	Step string // step name
	Err  error  // underlying client error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("step %q: transport: %s", e.Step, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AssertionError reports a failed assertion on an otherwise received
// response. It is deliberately not a TransportError: the request
// completed, the response just did not satisfy the check.
type AssertionError struct {
	Assertion string // name of the assertion type
	Reason    string // human readable mismatch description
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Assertion, e.Reason)
}

// ExtractionError reports a failed variable extraction. Extraction
// failures are non-fatal; the engine logs them and leaves the target
// variable unset.
type ExtractionError struct {
	Variable string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %q: %s", e.Variable, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// MalformedAssertion reports an assertion whose parameters cannot
// work, e.g. an unparsable expression. It surfaces at preparation
// time, before any request is sent.
type MalformedAssertion struct {
	Err error
}

func (e MalformedAssertion) Error() string {
	return fmt.Sprintf("malformed assertion: %s", e.Err)
}

func (e MalformedAssertion) Unwrap() error { return e.Err }

// durationMS formats a duration as integral milliseconds for error
// messages.
func durationMS(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
