// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"sync"

	"github.com/dvask/surge/worker"
)

// Watcher fans configuration updates out to subscribers as they
// happen, instead of having every consumer re-read and re-compare
// state on a timer. Whoever notices a change (a signal handler, an
// admin endpoint, an external coordinator client) calls Publish once;
// every subscriber gets the new snapshot pushed.
type Watcher struct {
	mu     sync.Mutex
	subs   []chan *worker.Snapshot
	closed bool
}

// NewWatcher returns a Watcher with no subscribers.
func NewWatcher() *Watcher {
	return &Watcher{}
}

// Subscribe registers a new subscriber. The channel has a one-element
// buffer; a subscriber that lags simply sees only the newest update.
func (w *Watcher) Subscribe() <-chan *worker.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan *worker.Snapshot, 1)
	if w.closed {
		close(ch)
		return ch
	}
	w.subs = append(w.subs, ch)
	return ch
}

// Publish pushes s to every subscriber without blocking: if a
// subscriber still holds an undelivered update, that stale one is
// replaced by s.
func (w *Watcher) Publish(s *worker.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	for _, ch := range w.subs {
		select {
		case ch <- s:
		default:
			// Drop the stale update, then deliver the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Close closes all subscriber channels. Publish after Close is a
// no-op.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	for _, ch := range w.subs {
		close(ch)
	}
	w.subs = nil
}
