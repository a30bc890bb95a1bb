/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"sync"
	"time"

	"pagebuilder/internal/geom"
)

// Scheduler runs a callback on the next frame.
type Scheduler interface {
	Schedule(fn func()) (cancel func())
}

// FrameInterval approximates one display frame.
const FrameInterval = 16 * time.Millisecond

// TimerScheduler schedules frames on a timer.
type TimerScheduler struct{ interval time.Duration }

func NewTimerScheduler(interval time.Duration) TimerScheduler {
	if interval <= 0 {
		interval = FrameInterval
	}
	return TimerScheduler{interval: interval}
}

func (s TimerScheduler) Schedule(fn func()) func() {
	t := time.AfterFunc(s.interval, fn)
	return func() { t.Stop() }
}

// ManualScheduler queues frames until Flush is called. Tests use it to step
// frames deterministically.
type ManualScheduler struct {
	mu    sync.Mutex
	queue []*manualFrame
}

type manualFrame struct {
	fn        func()
	cancelled bool
}

func (s *ManualScheduler) Schedule(fn func()) func() {
	f := &manualFrame{fn: fn}
	s.mu.Lock()
	s.queue = append(s.queue, f)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		f.cancelled = true
		s.mu.Unlock()
	}
}

// Pending returns the number of frames waiting to run.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.queue {
		if !f.cancelled {
			n++
		}
	}
	return n
}

// Flush runs the queued frames. Frames scheduled while flushing wait for the next call.
func (s *ManualScheduler) Flush() int {
	s.mu.Lock()
	q := s.queue
	s.queue = nil
	s.mu.Unlock()
	ran := 0
	for _, f := range q {
		s.mu.Lock()
		skip := f.cancelled
		s.mu.Unlock()
		if skip {
			continue
		}
		f.fn()
		ran++
	}
	return ran
}

// frameCoalescer keeps at most one scheduled frame and the latest pointer
// sample; samples arriving before the frame runs replace each other.
type frameCoalescer struct {
	sched Scheduler
	apply func(geom.Pt)

	mu      sync.Mutex
	cancel  func()
	latest  geom.Pt
	pending bool
}

func newFrameCoalescer(s Scheduler, apply func(geom.Pt)) *frameCoalescer {
	return &frameCoalescer{sched: s, apply: apply}
}

func (c *frameCoalescer) Push(p geom.Pt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = p
	c.pending = true
	if c.cancel == nil {
		c.cancel = c.sched.Schedule(c.run)
	}
}

func (c *frameCoalescer) run() {
	c.mu.Lock()
	c.cancel = nil
	if !c.pending {
		c.mu.Unlock()
		return
	}
	p := c.latest
	c.pending = false
	c.mu.Unlock()
	c.apply(p)
}

// Flush applies a pending sample now instead of waiting for the frame.
func (c *frameCoalescer) Flush() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if !c.pending {
		c.mu.Unlock()
		return
	}
	p := c.latest
	c.pending = false
	c.mu.Unlock()
	c.apply(p)
}

// Cancel drops any pending sample.
func (c *frameCoalescer) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.pending = false
}
