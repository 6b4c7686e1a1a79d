/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrStopped is returned for work submitted to a stopped Loop.
var ErrStopped = errors.New("scheduler stopped")

// ErrNotSettled is returned by Drain when deferred work keeps re-arming itself.
var ErrNotSettled = errors.New("deferred work did not settle")

// ManualScheduler queues deferred work until the caller runs it. Work deferred
// while a round runs waits for the next round, like work that has to wait for
// the next paint.
type ManualScheduler struct {
	order   []string
	tasks   map[string]func()
	stopped bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[string]func())}
}

// Defer queues fn under key, replacing and re-queuing pending work of that key.
func (s *ManualScheduler) Defer(key string, fn func()) {
	if s.stopped {
		return
	}
	if _, ok := s.tasks[key]; ok {
		s.remove(key)
	}
	s.order = append(s.order, key)
	s.tasks[key] = fn
}

// Cancel drops pending work under key.
func (s *ManualScheduler) Cancel(key string) {
	if _, ok := s.tasks[key]; ok {
		s.remove(key)
		delete(s.tasks, key)
	}
}

// Stop drops all pending work and ignores later Defer calls.
func (s *ManualScheduler) Stop() {
	s.stopped = true
	s.order = nil
	s.tasks = make(map[string]func())
}

// Pending returns the keys of queued work in run order.
func (s *ManualScheduler) Pending() []string {
	return append([]string(nil), s.order...)
}

// RunPending runs the work queued before the call and returns how many tasks ran.
func (s *ManualScheduler) RunPending() int {
	round := s.order
	s.order = nil
	ran := 0
	for _, key := range round {
		fn, ok := s.tasks[key]
		if !ok || s.stopped {
			continue
		}
		delete(s.tasks, key)
		fn()
		ran++
	}
	return ran
}

// Drain runs rounds until nothing is pending. It fails after maxRounds rounds.
func (s *ManualScheduler) Drain(maxRounds int) (rounds int, err error) {
	for len(s.order) > 0 {
		if rounds >= maxRounds {
			return rounds, fmt.Errorf("%w after %d rounds: %v", ErrNotSettled, rounds, s.order)
		}
		s.RunPending()
		rounds++
	}
	return rounds, nil
}

func (s *ManualScheduler) remove(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Loop runs deferred work on a single goroutine after a delay. Deferring a key
// again restarts its timer, so a burst of edits to one page yields one cycle.
// Callers run their own editor calls through Do to stay on the loop goroutine.
type Loop struct {
	delay time.Duration
	tasks chan func()
	quit  chan struct{}
	once  sync.Once

	mu      sync.Mutex
	timers  map[string]*time.Timer
	gen     map[string]uint64
	pending int
	stopped bool
}

// NewLoop starts a loop that runs deferred work delay after the last Defer.
func NewLoop(delay time.Duration) *Loop {
	l := &Loop{
		delay:  delay,
		tasks:  make(chan func(), 64),
		quit:   make(chan struct{}),
		timers: make(map[string]*time.Timer),
		gen:    make(map[string]uint64),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.quit:
			return
		}
	}
}

// Do runs fn on the loop goroutine and waits for it. It must not be called
// from work already running on the loop.
func (l *Loop) Do(fn func()) error {
	done := make(chan struct{})
	if !l.post(func() { defer close(done); fn() }) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-l.quit:
		return ErrStopped
	}
}

func (l *Loop) post(fn func()) bool {
	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Defer schedules fn under key, superseding pending work of that key.
func (l *Loop) Defer(key string, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	if t, ok := l.timers[key]; ok {
		t.Stop()
	} else {
		l.pending++
	}
	l.gen[key]++
	g := l.gen[key]
	l.timers[key] = time.AfterFunc(l.delay, func() {
		l.post(func() {
			if l.claim(key, g) {
				fn()
			}
		})
	})
}

// claim reports whether the generation g of key is still current and retires it.
func (l *Loop) claim(key string, g uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped || l.gen[key] != g {
		return false
	}
	delete(l.timers, key)
	l.pending--
	return true
}

// Cancel drops pending work under key.
func (l *Loop) Cancel(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.timers[key]; ok {
		t.Stop()
		delete(l.timers, key)
		l.gen[key]++
		l.pending--
	}
}

// Stop drops pending work and ends the loop goroutine.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	for k, t := range l.timers {
		t.Stop()
		delete(l.timers, k)
	}
	l.pending = 0
	l.mu.Unlock()
	l.once.Do(func() { close(l.quit) })
}

// Pending reports how many keys have work waiting.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// Settle waits until no deferred work is pending, polling at half the delay.
func (l *Loop) Settle(ctx context.Context) error {
	tick := max(l.delay/2, time.Millisecond)
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		if l.Pending() == 0 {
			// work posted by the last cycle has been claimed; let it finish
			if err := l.Do(func() {}); err != nil {
				return err
			}
			if l.Pending() == 0 {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
