// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenario

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// journeyServer simulates a login-then-fetch journey: POST /login sets
// a session cookie and returns a token, GET /profile requires both.
func journeyServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s-123", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"auth": {"token": "tok-9"}}`)
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sid")
		if err != nil || c.Value != "s-123" {
			http.Error(w, "no session", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok-9" {
			http.Error(w, "no token", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"name": "alice"}`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func testEngine(target string) *Engine {
	return NewEngine(target, nil, zerolog.Nop())
}

func TestExecuteJourney(t *testing.T) {
	srv := journeyServer(t)
	defer srv.Close()

	scn := &Scenario{
		Name: "login-profile",
		Steps: []Step{
			{
				Name:    "login",
				Request: RequestConfig{Method: "POST", Path: "/login"},
				Extract: []VariableExtraction{
					{Name: "token", Extractor: JSONPathExtractor{Path: "$.auth.token"}},
				},
				Assertions: []Assertion{StatusCode{Expect: 200}},
			},
			{
				Name: "profile",
				Request: RequestConfig{
					Method: "GET",
					Path:   "/profile",
					Header: map[string]string{"Authorization": "Bearer ${token}"},
				},
				Assertions: []Assertion{
					StatusCode{Expect: 200},
					BodyContains{Text: "alice"},
				},
			},
		},
	}

	vars := NewVars()
	session := NewSessionStore()
	res := testEngine(srv.URL).Execute(context.Background(), scn, vars, session)

	if !res.Success {
		t.Fatalf("Success=false: %+v", res)
	}
	if res.StepsCompleted != 2 || res.FailedStep != -1 {
		t.Errorf("StepsCompleted=%d FailedStep=%d", res.StepsCompleted, res.FailedStep)
	}
	if got, _ := vars.Lookup("token"); got != "tok-9" {
		t.Errorf("token=%q, want tok-9", got)
	}
	if _, ok := vars.Lookup("__timestamp"); !ok {
		t.Errorf("__timestamp not set")
	}
	for _, sr := range res.Steps {
		if !sr.Success || sr.Status != 200 {
			t.Errorf("step %q: %+v", sr.Name, sr)
		}
	}
}

func TestExecuteAssertionFailFast(t *testing.T) {
	srv := journeyServer(t)
	defer srv.Close()

	scn := &Scenario{
		Name: "fail-fast",
		Steps: []Step{
			{
				Name:       "first",
				Request:    RequestConfig{Path: "/missing"},
				Assertions: []Assertion{StatusCode{Expect: 200}},
			},
			{
				Name:    "never",
				Request: RequestConfig{Path: "/profile"},
			},
		},
	}

	res := testEngine(srv.URL).Execute(context.Background(), scn, NewVars(), NewSessionStore())
	if res.Success {
		t.Fatalf("Success=true, want false")
	}
	if res.StepsCompleted != 1 {
		t.Errorf("StepsCompleted=%d, want 1", res.StepsCompleted)
	}
	if res.FailedStep != 0 {
		t.Errorf("FailedStep=%d, want 0", res.FailedStep)
	}
	sr := res.Steps[0]
	if sr.Status != 404 {
		t.Errorf("Status=%d, want 404", sr.Status)
	}
	// Assertion failures are not transport errors.
	if sr.Error != "" {
		t.Errorf("Error=%q, want empty", sr.Error)
	}
	if sr.AssertionFailure == "" {
		t.Errorf("AssertionFailure empty")
	}
}

func TestExecuteTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	scn := &Scenario{
		Name:  "down",
		Steps: []Step{{Name: "only", Request: RequestConfig{Path: "/"}}},
	}
	res := testEngine(srv.URL).Execute(context.Background(), scn, NewVars(), NewSessionStore())
	if res.Success || res.FailedStep != 0 {
		t.Fatalf("res=%+v", res)
	}
	sr := res.Steps[0]
	if sr.Status != 0 {
		t.Errorf("Status=%d, want 0", sr.Status)
	}
	if sr.Error == "" {
		t.Errorf("Error empty, want transport error text")
	}
}

func TestSessionSurvivesExecutions(t *testing.T) {
	srv := journeyServer(t)
	defer srv.Close()
	engine := testEngine(srv.URL)

	login := &Scenario{
		Name: "login",
		Steps: []Step{{
			Name:    "login",
			Request: RequestConfig{Method: "POST", Path: "/login"},
			Extract: []VariableExtraction{
				{Name: "token", Extractor: JSONPathExtractor{Path: "$.auth.token"}},
			},
		}},
	}
	profile := &Scenario{
		Name: "profile",
		Steps: []Step{{
			Name: "profile",
			Request: RequestConfig{
				Path:   "/profile",
				Header: map[string]string{"Authorization": "Bearer ${token}"},
			},
			Assertions: []Assertion{StatusCode{Expect: 200}},
		}},
	}

	// The worker reuses vars and session across iterations; the cookie
	// and the extracted token must carry over.
	vars := NewVars()
	session := NewSessionStore()
	if res := engine.Execute(context.Background(), login, vars, session); !res.Success {
		t.Fatalf("login failed: %+v", res)
	}
	if res := engine.Execute(context.Background(), profile, vars, session); !res.Success {
		t.Fatalf("profile failed: %+v", res.Steps[0])
	}
}

func TestUnboundPlaceholderSentLiterally(t *testing.T) {
	var seenPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
	}))
	defer srv.Close()

	scn := &Scenario{
		Name:  "literal",
		Steps: []Step{{Name: "s", Request: RequestConfig{Path: "/x/${nope}"}}},
	}
	res := testEngine(srv.URL).Execute(context.Background(), scn, NewVars(), NewSessionStore())
	if !res.Success {
		t.Fatalf("res=%+v", res)
	}
	if seenPath != "/x/${nope}" {
		t.Errorf("path=%q, want /x/${nope}", seenPath)
	}
}

func TestThinkTime(t *testing.T) {
	srv := journeyServer(t)
	defer srv.Close()

	scn := &Scenario{
		Name: "think",
		Steps: []Step{
			{Name: "a", Request: RequestConfig{Path: "/missing"}, ThinkTime: 60 * time.Millisecond},
			{Name: "b", Request: RequestConfig{Path: "/missing"}},
		},
	}
	start := time.Now()
	res := testEngine(srv.URL).Execute(context.Background(), scn, NewVars(), NewSessionStore())
	if !res.Success {
		t.Fatalf("res=%+v", res)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("executed in %s, think time not honored", elapsed)
	}
	// Think time is not request latency.
	if res.Steps[0].Elapsed >= 60*time.Millisecond {
		t.Errorf("step elapsed %s includes think time", res.Steps[0].Elapsed)
	}
}
