// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenario

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func respWith(status int, body string) *StepResponse {
	return &StepResponse{
		Status:   status,
		Header:   http.Header{"X-Token": []string{"abc"}},
		BodyStr:  body,
		Duration: 40 * time.Millisecond,
	}
}

func TestStatusCode(t *testing.T) {
	resp := respWith(404, "")
	if err := (StatusCode{Expect: 404}).Check(resp); err != nil {
		t.Errorf("want pass, got %v", err)
	}
	err := (StatusCode{Expect: 200}).Check(resp)
	var ae *AssertionError
	if !errors.As(err, &ae) {
		t.Fatalf("want *AssertionError, got %T", err)
	}
	if ae.Assertion != "StatusCode" {
		t.Errorf("Assertion=%q", ae.Assertion)
	}
}

func TestBodyContains(t *testing.T) {
	resp := respWith(200, `{"ok":true}`)
	if err := (BodyContains{Text: `"ok"`}).Check(resp); err != nil {
		t.Errorf("want pass, got %v", err)
	}
	if err := (BodyContains{Text: "nope"}).Check(resp); err == nil {
		t.Errorf("want failure, got nil")
	}
}

func TestResponseTime(t *testing.T) {
	resp := respWith(200, "")
	if err := (ResponseTime{Max: 100 * time.Millisecond}).Check(resp); err != nil {
		t.Errorf("want pass, got %v", err)
	}
	if err := (ResponseTime{Max: 10 * time.Millisecond}).Check(resp); err == nil {
		t.Errorf("want failure, got nil")
	}
}

func TestHeaderPresent(t *testing.T) {
	resp := respWith(200, "")
	if err := (HeaderPresent{Name: "X-Token"}).Check(resp); err != nil {
		t.Errorf("want pass, got %v", err)
	}
	if err := (HeaderPresent{Name: "X-Missing"}).Check(resp); err == nil {
		t.Errorf("want failure, got nil")
	}
}

func TestJSONExpr(t *testing.T) {
	resp := respWith(200, `{"foo": 5, "bar": [1, 2, 3]}`)
	for i, tc := range []struct {
		expr string
		pass bool
	}{
		{".foo == 5", true},
		{".bar[1] == 2", true},
		{".foo > 9", false},
	} {
		a := &JSONExpr{Expression: tc.expr}
		err := a.Check(resp)
		if tc.pass && err != nil {
			t.Errorf("%d: %q failed: %v", i, tc.expr, err)
		}
		if !tc.pass && err == nil {
			t.Errorf("%d: %q passed, want failure", i, tc.expr)
		}
	}
}

func TestJSONExprMalformed(t *testing.T) {
	a := &JSONExpr{Expression: ""}
	err := a.Check(respWith(200, "{}"))
	var ma MalformedAssertion
	if !errors.As(err, &ma) {
		t.Errorf("want MalformedAssertion, got %T: %v", err, err)
	}
}
