/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package autosave coalesces bursts of layout edits into debounced saves.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pagebuilder/internal/domain"
	applog "pagebuilder/internal/log"
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("autosave: closed")

// Timer is the part of *time.Timer the saver needs.
type Timer interface{ Stop() bool }

// Options configures a Saver. Zero values pick defaults.
type Options struct {
	Debounce time.Duration // quiet period, default 1.5s
	MaxWait  time.Duration // upper bound for a pending edit, default 10s
	// AfterFunc and Now replace the wall clock in tests.
	AfterFunc func(time.Duration, func()) Timer
	Now       func() time.Time
	Logger    *slog.Logger
}

func (o *Options) defaults() {
	if o.Debounce <= 0 {
		o.Debounce = 1500 * time.Millisecond
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 10 * time.Second
	}
	if o.AfterFunc == nil {
		o.AfterFunc = func(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = applog.WithComponent("autosave")
	}
}

// Saver writes the latest scheduled snapshot of one layout key to a store.
// Saves run one at a time and never block Schedule.
type Saver struct {
	store domain.LayoutStore
	key   string
	opts  Options
	log   *slog.Logger

	saveMu sync.Mutex // serializes store writes

	mu         sync.Mutex
	pending    []byte
	hasPending bool
	since      time.Time // when the oldest unsaved edit arrived
	lastEdit   time.Time
	saving     bool
	newerSince time.Time // first edit that arrived while a save was running
	lastSaved  string
	lastErr    error
	timer      Timer
	saves      int
	closed     bool
}

// New returns a saver for key.
func New(store domain.LayoutStore, key string, opts Options) *Saver {
	opts.defaults()
	return &Saver{store: store, key: key, opts: opts, log: opts.Logger.With(slog.String("key", key))}
}

// Key returns the layout key the saver writes to.
func (s *Saver) Key() string { return s.key }

// MarkSaved records snapshot as already persisted, e.g. right after a load,
// so an unchanged layout is never written back.
func (s *Saver) MarkSaved(snapshot []byte) {
	s.mu.Lock()
	s.lastSaved = string(snapshot)
	s.mu.Unlock()
}

// Schedule makes snapshot the pending content and (re)arms the quiet-period
// timer. Continuous edits are written at the latest MaxWait after the oldest
// unsaved one.
func (s *Saver) Schedule(snapshot []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	now := s.opts.Now()
	s.pending = append([]byte(nil), snapshot...)
	s.lastEdit = now
	if !s.hasPending {
		s.since = now
		s.hasPending = true
	}
	if s.saving && s.newerSince.IsZero() {
		s.newerSince = now
	}
	s.armLocked(now)
}

// armLocked (re)starts the timer for the pending snapshot: a quiet period
// after the last edit, capped by MaxWait after the oldest unsaved one.
func (s *Saver) armLocked(now time.Time) {
	wait := s.opts.Debounce - now.Sub(s.lastEdit)
	if left := s.opts.MaxWait - now.Sub(s.since); left < wait {
		wait = left
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.opts.AfterFunc(max(wait, 0), s.fire)
}

func (s *Saver) fire() {
	if err := s.Flush(context.Background()); err != nil && !errors.Is(err, ErrClosed) {
		s.log.Warn("autosave failed", slog.Any("err", err))
	}
}

// Flush writes the pending snapshot now. Content equal to the last
// successful save is skipped. On failure the snapshot stays pending.
func (s *Saver) Flush(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.hasPending {
		s.mu.Unlock()
		return nil
	}
	snap := s.pending
	if string(snap) == s.lastSaved {
		s.hasPending = false
		s.stopTimerLocked()
		s.mu.Unlock()
		s.log.Debug("autosave skipped, content unchanged")
		return nil
	}
	s.saving = true
	s.newerSince = time.Time{}
	s.mu.Unlock()

	err := s.store.Save(ctx, s.key, snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		s.lastErr = err
		return fmt.Errorf("autosave %s: %w", s.key, err)
	}
	s.lastErr = nil
	s.lastSaved = string(snap)
	s.saves++
	if string(s.pending) == string(snap) {
		s.hasPending = false
		s.stopTimerLocked()
	} else if !s.closed {
		// edits made during the save start a new MaxWait window
		s.since = s.newerSince
		if s.since.IsZero() {
			s.since = s.opts.Now()
		}
		s.armLocked(s.opts.Now())
	}
	s.log.Debug("autosaved", slog.Int("bytes", len(snap)))
	return nil
}

func (s *Saver) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Pending reports whether an unsaved snapshot is waiting.
func (s *Saver) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasPending
}

// LastError returns the error of the most recent save attempt, nil after a
// success.
func (s *Saver) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Saves returns the number of successful writes.
func (s *Saver) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Close flushes the pending snapshot and stops the timer. Later Schedule
// calls are ignored.
func (s *Saver) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.mu.Lock()
	s.closed = true
	s.stopTimerLocked()
	s.mu.Unlock()
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}
