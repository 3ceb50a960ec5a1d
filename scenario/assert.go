// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// assert.go contains the assertions a step may check against its
// response. Each assertion fails independently; a step succeeds only
// if the send completed and every assertion passed.

package scenario

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nytlabs/gojee"
)

// Assertion is a single logical check on a step's response.
type Assertion interface {
	// Check returns nil if the response satisfies the assertion and an
	// *AssertionError otherwise.
	Check(resp *StepResponse) error
}

// preparable is implemented by assertions which need work done before
// the first check, e.g. expression compilation.
type preparable interface {
	prepare() error
}

// Prepare compiles whatever state an assertion can set up ahead of its
// first check, so malformed expressions surface at configuration time
// instead of mid-test. Assertions without such state pass trivially.
func Prepare(a Assertion) error {
	if p, ok := a.(preparable); ok {
		return p.prepare()
	}
	return nil
}

// ----------------------------------------------------------------------------
// StatusCode

// StatusCode checks the HTTP status code of the response.
type StatusCode struct {
	Expect int
}

// Check implements Assertion's Check method.
func (a StatusCode) Check(resp *StepResponse) error {
	if resp.Status != a.Expect {
		return &AssertionError{
			Assertion: "StatusCode",
			Reason:    fmt.Sprintf("got %d, want %d", resp.Status, a.Expect),
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// BodyContains

// BodyContains checks that the response body contains a substring.
type BodyContains struct {
	Text string
}

// Check implements Assertion's Check method.
func (a BodyContains) Check(resp *StepResponse) error {
	if !strings.Contains(resp.BodyStr, a.Text) {
		return &AssertionError{
			Assertion: "BodyContains",
			Reason:    fmt.Sprintf("body does not contain %q", a.Text),
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// ResponseTime

// ResponseTime checks that the request round-trip stayed below Max.
type ResponseTime struct {
	Max time.Duration
}

// Check implements Assertion's Check method.
func (a ResponseTime) Check(resp *StepResponse) error {
	if resp.Duration > a.Max {
		return &AssertionError{
			Assertion: "ResponseTime",
			Reason: fmt.Sprintf("took %s, limit %s",
				durationMS(resp.Duration), durationMS(a.Max)),
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// HeaderPresent

// HeaderPresent checks that a response header is set to a non-empty
// value.
type HeaderPresent struct {
	Name string
}

// Check implements Assertion's Check method.
func (a HeaderPresent) Check(resp *StepResponse) error {
	if resp.Header.Get(a.Name) == "" {
		return &AssertionError{
			Assertion: "HeaderPresent",
			Reason:    fmt.Sprintf("header %q missing or empty", a.Name),
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// JSONExpr

// JSONExpr checks a JSON response body against a boolean gojee
// expression. Consider this JSON:
//
//	{ "foo": 5, "bar": [ 1, 2, 3 ] }
//
// The following expressions would all pass:
//
//	.foo == 5
//	$len(.bar) > 2
//	(.foo == 9) || (.bar[0] < 7)
type JSONExpr struct {
	// Expression is a boolean gojee expression which must evaluate to
	// true for the assertion to pass.
	Expression string

	tt *jee.TokenTree
}

// prepare compiles the expression.
func (a *JSONExpr) prepare() error {
	if a.Expression == "" {
		return MalformedAssertion{fmt.Errorf("JSONExpr: empty expression")}
	}
	tokens, err := jee.Lexer(a.Expression)
	if err != nil {
		return MalformedAssertion{err}
	}
	a.tt, err = jee.Parser(tokens)
	if err != nil {
		return MalformedAssertion{err}
	}
	return nil
}

// Check implements Assertion's Check method.
func (a *JSONExpr) Check(resp *StepResponse) error {
	if a.tt == nil {
		if err := a.prepare(); err != nil {
			return err
		}
	}

	var bmsg jee.BMsg
	if err := json.Unmarshal([]byte(resp.BodyStr), &bmsg); err != nil {
		return &AssertionError{
			Assertion: "JSONExpr",
			Reason:    fmt.Sprintf("body is not JSON: %s", err),
		}
	}

	result, err := jee.Eval(a.tt, bmsg)
	if err != nil {
		return &AssertionError{Assertion: "JSONExpr", Reason: err.Error()}
	}
	b, ok := result.(bool)
	if !ok {
		return MalformedAssertion{fmt.Errorf("JSONExpr: expected bool, got %T", result)}
	}
	if !b {
		return &AssertionError{
			Assertion: "JSONExpr",
			Reason:    fmt.Sprintf("%s is false", a.Expression),
		}
	}
	return nil
}

// nameOf returns the assertion's type name for reporting.
func nameOf(a Assertion) string {
	switch a.(type) {
	case StatusCode:
		return "StatusCode"
	case BodyContains:
		return "BodyContains"
	case ResponseTime:
		return "ResponseTime"
	case HeaderPresent:
		return "HeaderPresent"
	case *JSONExpr:
		return "JSONExpr"
	}
	return fmt.Sprintf("%T", a)
}
