/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package container

import (
	"errors"
	"fmt"
	"sync"

	"pagebuilder/internal/geom"
)

// ErrNotArranging is returned by Drop when arrange mode is not active.
var ErrNotArranging = errors.New("container: arrange mode not active")

// DropTarget is the region and position a drop at the current pointer would use.
type DropTarget struct {
	NodeID   string
	Position Position
}

// Arranger implements arrange mode: a transient drag-and-drop of whole
// regions on top of a Tree. Escape or Cancel leaves the mode untouched.
type Arranger struct {
	tree *Tree

	mu     sync.Mutex
	active bool
	source string
	rects  Rects
	hover  DropTarget
}

func NewArranger(t *Tree) *Arranger { return &Arranger{tree: t} }

// Start enters arrange mode dragging source. rects is the current layout
// used for hit testing.
func (a *Arranger) Start(source string, rects Rects) error {
	if _, ok := a.tree.Node(source); !ok {
		return fmt.Errorf("arrange %s: %w", source, ErrNotFound)
	}
	if source == a.tree.Root() {
		return fmt.Errorf("arrange %s: %w", source, ErrCycle)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = true
	a.source = source
	a.rects = rects
	a.hover = DropTarget{}
	return nil
}

// Active reports whether arrange mode is on.
func (a *Arranger) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Source returns the region being dragged.
func (a *Arranger) Source() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.source
}

// Hover updates the drop indicator for pointer p and returns it. ok is false
// when p is over no eligible leaf.
func (a *Arranger) Hover(p geom.Pt) (DropTarget, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return DropTarget{}, false
	}
	a.hover = a.targetAtLocked(p)
	return a.hover, a.hover.NodeID != ""
}

func (a *Arranger) targetAtLocked(p geom.Pt) DropTarget {
	for _, id := range a.tree.Leaves() {
		if a.tree.IsWithin(id, a.source) {
			continue
		}
		r, ok := a.rects[id]
		if !ok || !r.Contains(p) {
			continue
		}
		return DropTarget{NodeID: id, Position: DropPosition(r, p)}
	}
	return DropTarget{}
}

// Drop moves the source to the target under p and leaves arrange mode.
// A drop outside any eligible region just ends the mode.
func (a *Arranger) Drop(p geom.Pt) (DropTarget, error) {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return DropTarget{}, ErrNotArranging
	}
	target := a.targetAtLocked(p)
	source := a.source
	a.resetLocked()
	a.mu.Unlock()
	if target.NodeID == "" {
		return DropTarget{}, nil
	}
	return target, a.tree.MoveContainer(source, target.NodeID, target.Position)
}

// Cancel leaves arrange mode without changing the tree.
func (a *Arranger) Cancel() {
	a.mu.Lock()
	a.resetLocked()
	a.mu.Unlock()
}

// HandleKey cancels arrange mode on Escape and reports whether it consumed the key.
func (a *Arranger) HandleKey(key string) bool {
	if key != "Escape" || !a.Active() {
		return false
	}
	a.Cancel()
	return true
}

func (a *Arranger) resetLocked() {
	a.active = false
	a.source = ""
	a.rects = nil
	a.hover = DropTarget{}
}

// DropPosition maps a point over r to a placement: the central half of the
// region means inside, elsewhere the nearest edge wins.
func DropPosition(r geom.Rect, p geom.Pt) Position {
	inner := r.Inset(r.W/4, r.H/4)
	if inner.Contains(p) {
		return Inside
	}
	best, dist := Top, p.Y-r.Y
	if d := r.Y + r.H - p.Y; d < dist {
		best, dist = Bottom, d
	}
	if d := p.X - r.X; d < dist {
		best, dist = Left, d
	}
	if d := r.X + r.W - p.X; d < dist {
		best = Right
	}
	return best
}

// IsWithin reports whether id is anc or lies in the subtree rooted at anc.
func (t *Tree) IsWithin(id, anc string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isAncestorLocked(anc, id)
}
