// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenario

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// SessionStore carries session artifacts, currently cookies, across
// the steps of an execution and across consecutive executions by the
// same worker. Exactly one SessionStore belongs to one worker for the
// worker's whole lifetime; it is never shared and never accessed
// concurrently, so it needs no locking. The zero value is not usable,
// construct with NewSessionStore.
type SessionStore struct {
	jar *cookiejar.Jar

	// noCopy makes `go vet` flag accidental copies; the store must
	// stay single-owner.
	noCopy noCopy
}

// NewSessionStore returns an empty session store.
func NewSessionStore() *SessionStore {
	jar, err := cookiejar.New(nil)
	if err != nil {
		// cookiejar.New with nil options cannot fail.
		panic(err)
	}
	return &SessionStore{jar: jar}
}

// Attach adds the session's cookies for the request URL to req.
func (s *SessionStore) Attach(req *http.Request) {
	for _, c := range s.jar.Cookies(req.URL) {
		req.AddCookie(c)
	}
}

// Update records the Set-Cookie headers of a response received from u.
func (s *SessionStore) Update(u *url.URL, resp *http.Response) {
	if cookies := resp.Cookies(); len(cookies) > 0 {
		s.jar.SetCookies(u, cookies)
	}
}

// Clear drops all session state, e.g. between simulated users.
func (s *SessionStore) Clear() {
	jar, _ := cookiejar.New(nil)
	s.jar = jar
}

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
