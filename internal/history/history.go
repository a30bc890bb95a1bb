/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	applog "pagebuilder/internal/log"
)

// DefaultMaxDepth is the number of undo entries kept per design.
const DefaultMaxDepth = 50

// Snapshot is one serialized layout state. Blob content is opaque to the manager.
type Snapshot struct {
	DesignID string
	Blob     []byte
	TS       time.Time
}

// Config controls depth and memory caps and coalescing behavior.
type Config struct {
	// MaxDepth limits undo entries per design; the oldest are evicted first.
	MaxDepth int
	// MaxBytes is a soft cap across all designs; oldest entries are pruned when exceeded.
	MaxBytes int
	// Coalesce replaces the top entry instead of pushing when two snapshots of the
	// same design arrive within the window. Zero disables coalescing.
	Coalesce time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

type stacks struct {
	undo []Snapshot
	redo []Snapshot
}

// Manager keeps an independent undo/redo pair per design id.
// By convention the top of the undo stack is the current state, so an undo
// needs at least two entries. It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex

	designs    map[string]*stacks
	totalBytes int
	log        *slog.Logger
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{cfg: cfg, designs: make(map[string]*stacks), log: applog.WithComponent("history")}
}

// PushSnapshot serializes layout and records it as the new current state for
// designID. Byte slices and json.RawMessage are stored as-is. The redo stack
// of the design is cleared.
func (m *Manager) PushSnapshot(designID string, layout any) error {
	var blob []byte
	switch v := layout.(type) {
	case []byte:
		blob = append([]byte(nil), v...)
	case json.RawMessage:
		blob = append([]byte(nil), v...)
	default:
		b, err := json.Marshal(layout)
		if err != nil {
			return fmt.Errorf("history: serialize snapshot: %w", err)
		}
		blob = b
	}
	m.push(Snapshot{DesignID: designID, Blob: blob, TS: m.cfg.Now()})
	return nil
}

func (m *Manager) push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.stacksLocked(s.DesignID)
	if n := len(st.undo); n > 0 && m.cfg.Coalesce > 0 {
		last := st.undo[n-1]
		if s.TS.Sub(last.TS) < m.cfg.Coalesce {
			m.totalBytes += len(s.Blob) - len(last.Blob)
			st.undo[n-1] = s
			m.clearRedoLocked(st)
			m.enforceCapsLocked(s.DesignID)
			return
		}
	}
	st.undo = append(st.undo, s)
	m.totalBytes += len(s.Blob)
	// Any new change invalidates redo for the design
	m.clearRedoLocked(st)
	m.enforceCapsLocked(s.DesignID)
}

// Undo moves the current state to the redo stack and returns the state
// beneath it, which the caller re-applies. It is a no-op with fewer than two entries.
func (m *Manager) Undo(designID string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.designs[designID]
	if st == nil || len(st.undo) < 2 {
		return nil, false
	}
	top := st.undo[len(st.undo)-1]
	st.undo = st.undo[:len(st.undo)-1]
	st.redo = append(st.redo, top)
	return st.undo[len(st.undo)-1].Blob, true
}

// Redo moves the most recently undone state back onto the undo stack and returns it.
func (m *Manager) Redo(designID string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.designs[designID]
	if st == nil || len(st.redo) == 0 {
		return nil, false
	}
	s := st.redo[len(st.redo)-1]
	st.redo = st.redo[:len(st.redo)-1]
	st.undo = append(st.undo, s)
	m.enforceCapsLocked(designID)
	return s.Blob, true
}

// Current returns the top of the undo stack.
func (m *Manager) Current(designID string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.designs[designID]
	if st == nil || len(st.undo) == 0 {
		return nil, false
	}
	return st.undo[len(st.undo)-1].Blob, true
}

// CanUndo and CanRedo report whether the corresponding call would do anything.
func (m *Manager) CanUndo(designID string) bool {
	u, _ := m.Depth(designID)
	return u >= 2
}

func (m *Manager) CanRedo(designID string) bool {
	_, r := m.Depth(designID)
	return r > 0
}

// Depth returns the undo and redo stack sizes for a design.
func (m *Manager) Depth(designID string) (undo, redo int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st := m.designs[designID]; st != nil {
		return len(st.undo), len(st.redo)
	}
	return 0, 0
}

// ResetHistory clears both stacks of a design, e.g. when switching documents.
func (m *Manager) ResetHistory(designID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.designs[designID]
	if st == nil {
		return
	}
	for _, s := range st.undo {
		m.totalBytes -= len(s.Blob)
	}
	for _, s := range st.redo {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.designs, designID)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
	m.log.Debug("history reset", slog.String("design", designID))
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, designs int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	designs = len(m.designs)
	for _, st := range m.designs {
		totalSnapshots += len(st.undo) + len(st.redo)
	}
	return m.totalBytes, designs, totalSnapshots
}

func (m *Manager) stacksLocked(designID string) *stacks {
	st := m.designs[designID]
	if st == nil {
		st = &stacks{}
		m.designs[designID] = st
	}
	return st
}

func (m *Manager) clearRedoLocked(st *stacks) {
	for _, s := range st.redo {
		m.totalBytes -= len(s.Blob)
	}
	st.redo = nil
}

func (m *Manager) enforceCapsLocked(designID string) {
	// Per-design depth cap
	if st := m.designs[designID]; st != nil && len(st.undo) > m.cfg.MaxDepth {
		toDrop := len(st.undo) - m.cfg.MaxDepth
		for i := 0; i < toDrop; i++ {
			m.totalBytes -= len(st.undo[i].Blob)
		}
		st.undo = append([]Snapshot(nil), st.undo[toDrop:]...)
	}
	// Global memory cap: prune the oldest restorable entry across all designs.
	// The current state of a design is never pruned.
	for m.totalBytes > m.cfg.MaxBytes {
		var oldest *stacks
		for _, st := range m.designs {
			if len(st.undo) < 2 {
				continue
			}
			if oldest == nil || st.undo[0].TS.Before(oldest.undo[0].TS) {
				oldest = st
			}
		}
		if oldest == nil {
			break
		}
		m.totalBytes -= len(oldest.undo[0].Blob)
		oldest.undo = oldest.undo[1:]
	}
}
