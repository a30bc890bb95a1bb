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
	"fmt"
	"log/slog"
	"math"
	"strings"

	"pagebuilder/internal/domain"
)

// Position says where a region goes relative to a target.
type Position string

const (
	Top    Position = "top"
	Bottom Position = "bottom"
	Left   Position = "left"
	Right  Position = "right"
	Inside Position = "inside"
)

// ParsePosition parses a position name, case-insensitively.
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Top, Bottom, Left, Right, Inside:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPosition, s)
}

// orientation returns the split orientation an edge position implies and
// whether the new region goes before the target.
func (p Position) orientation() (orient string, before bool) {
	switch p {
	case Top:
		return domain.Horizontal, true
	case Bottom:
		return domain.Horizontal, false
	case Left:
		return domain.Vertical, true
	default:
		return domain.Vertical, false
	}
}

// PlaceContainer inserts a new empty leaf at pos relative to target and
// returns its id.
func (t *Tree) PlaceContainer(target string, pos Position) (string, error) {
	t.mu.Lock()
	if _, ok := t.nodes[target]; !ok {
		t.mu.Unlock()
		return "", fmt.Errorf("place %s: %w", target, ErrNotFound)
	}
	if _, err := ParsePosition(string(pos)); err != nil {
		t.mu.Unlock()
		return "", err
	}
	leaf := &Node{ID: t.newID(), Kind: domain.TypeLeaf}
	t.nodes[leaf.ID] = leaf
	t.placeLocked(leaf.ID, target, pos)
	t.mu.Unlock()

	t.log.Debug("container placed", slog.String("target", target), slog.String("pos", string(pos)), slog.String("node", leaf.ID))
	t.emit(ChangeEvent{Op: "place", Target: target, NodeID: leaf.ID})
	return leaf.ID, nil
}

// MoveContainer relocates the subtree rooted at source to pos relative to
// target. The source's former parent collapses if left with one child.
func (t *Tree) MoveContainer(source, target string, pos Position) error {
	t.mu.Lock()
	src, ok := t.nodes[source]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("move %s: %w", source, ErrNotFound)
	}
	if _, ok := t.nodes[target]; !ok {
		t.mu.Unlock()
		return fmt.Errorf("move to %s: %w", target, ErrNotFound)
	}
	if _, err := ParsePosition(string(pos)); err != nil {
		t.mu.Unlock()
		return err
	}
	if t.isAncestorLocked(source, target) {
		t.mu.Unlock()
		return fmt.Errorf("move %s to %s: %w", source, target, ErrCycle)
	}
	oldParent := src.Parent
	t.detachLocked(source)
	t.placeLocked(source, target, pos)
	if oldParent != "" {
		t.collapseLocked(oldParent)
	}
	t.mu.Unlock()

	t.log.Debug("container moved", slog.String("node", source), slog.String("target", target), slog.String("pos", string(pos)))
	t.emit(ChangeEvent{Op: "move", Target: target, NodeID: source})
	return nil
}

// DeleteContainer removes the subtree rooted at id. The root cannot be deleted.
func (t *Tree) DeleteContainer(id string) error {
	t.mu.Lock()
	n, ok := t.nodes[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	if id == t.root {
		t.mu.Unlock()
		return ErrLastContainer
	}
	parent := n.Parent
	t.detachLocked(id)
	t.dropSubtreeLocked(id)
	if parent != "" {
		t.collapseLocked(parent)
	}
	t.mu.Unlock()

	t.log.Debug("container deleted", slog.String("node", id))
	t.emit(ChangeEvent{Op: "delete", Target: id})
	return nil
}

// SetDynamicHost makes id the only workarea of the tree.
func (t *Tree) SetDynamicHost(id string) error {
	t.mu.Lock()
	n, ok := t.nodes[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("host %s: %w", id, ErrNotFound)
	}
	for _, other := range t.nodes {
		other.Workarea = false
	}
	n.Workarea = true
	t.mu.Unlock()
	t.emit(ChangeEvent{Op: "host", Target: id})
	return nil
}

// SetDesignRef attaches ref to a leaf; an empty ref detaches it.
func (t *Tree) SetDesignRef(id, ref string) error {
	t.mu.Lock()
	n, ok := t.nodes[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("designref %s: %w", id, ErrNotFound)
	}
	if !n.IsLeaf() {
		t.mu.Unlock()
		return fmt.Errorf("designref %s: %w", id, ErrNotLeaf)
	}
	n.DesignRef = ref
	t.mu.Unlock()
	t.emit(ChangeEvent{Op: "designref", Target: id})
	return nil
}

// SetLabel sets the display label of a node.
func (t *Tree) SetLabel(id, label string) error {
	t.mu.Lock()
	n, ok := t.nodes[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("label %s: %w", id, ErrNotFound)
	}
	n.Label = label
	t.mu.Unlock()
	t.emit(ChangeEvent{Op: "label", Target: id})
	return nil
}

// SetSizes sets the flex weights of a split. Non-finite or non-positive
// weights become 1; a slice of all ones is stored as nil.
func (t *Tree) SetSizes(id string, sizes []float64) error {
	t.mu.Lock()
	n, ok := t.nodes[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("sizes %s: %w", id, ErrNotFound)
	}
	if n.IsLeaf() {
		t.mu.Unlock()
		return fmt.Errorf("sizes %s: %w", id, ErrNotSplit)
	}
	if len(sizes) != len(n.Children) {
		t.mu.Unlock()
		return fmt.Errorf("sizes %s: want %d weights, got %d", id, len(n.Children), len(sizes))
	}
	n.Sizes = normalizeSizes(sizes)
	t.mu.Unlock()
	t.emit(ChangeEvent{Op: "sizes", Target: id})
	return nil
}

// SetDefaultWorkarea marks the largest eligible leaf as workarea when the
// tree has none. Leaves holding a design reference are not eligible; ties go
// to the first leaf in depth-first order. It returns the workarea id.
func (t *Tree) SetDefaultWorkarea(m Measurer) (string, bool) {
	t.mu.Lock()
	if id, ok := t.workareaLocked(); ok {
		t.mu.Unlock()
		return id, true
	}
	best, bestArea := "", -1.0
	t.walkLocked(t.root, 0, func(n *Node, _ int) bool {
		if !n.IsLeaf() || n.DesignRef != "" {
			return true
		}
		area := 0.0
		if m != nil {
			if r, ok := m.Measure(n.ID); ok {
				area = r.Area()
			}
		}
		if area > bestArea {
			best, bestArea = n.ID, area
		}
		return true
	})
	if best == "" {
		t.mu.Unlock()
		return "", false
	}
	t.nodes[best].Workarea = true
	t.mu.Unlock()
	t.log.Debug("default workarea assigned", slog.String("node", best))
	t.emit(ChangeEvent{Op: "host", Target: best})
	return best, true
}

// placeLocked attaches the detached node id at pos relative to target.
func (t *Tree) placeLocked(id, target string, pos Position) {
	tn := t.nodes[target]
	n := t.nodes[id]
	if pos == Inside {
		if !tn.IsLeaf() {
			tn.Children = append(tn.Children, id)
			if tn.Sizes != nil {
				tn.Sizes = append(tn.Sizes, 1)
			}
			n.Parent = tn.ID
			return
		}
		// The target leaf becomes a split; its content moves to a new first child.
		keeper := &Node{ID: t.newID(), Kind: domain.TypeLeaf, Parent: tn.ID,
			Workarea: tn.Workarea, DesignRef: tn.DesignRef, Label: tn.Label}
		t.nodes[keeper.ID] = keeper
		tn.Kind = domain.TypeSplit
		tn.Orientation = domain.Vertical
		tn.Workarea, tn.DesignRef, tn.Label = false, "", ""
		tn.Children = []string{keeper.ID, id}
		tn.Sizes = nil
		n.Parent = tn.ID
		return
	}

	orient, before := pos.orientation()
	if p, ok := t.nodes[tn.Parent]; ok && !p.IsLeaf() && p.Orientation == orient {
		idx := indexOf(p.Children, target)
		if !before {
			idx++
		}
		p.Children = insertAt(p.Children, idx, id)
		if p.Sizes != nil {
			p.Sizes = insertAt(p.Sizes, idx, 1)
		}
		n.Parent = p.ID
		return
	}

	wrap := &Node{ID: t.newID(), Kind: domain.TypeSplit, Orientation: orient, Parent: tn.Parent}
	t.nodes[wrap.ID] = wrap
	t.replaceChildLocked(tn.Parent, target, wrap.ID)
	if before {
		wrap.Children = []string{id, target}
	} else {
		wrap.Children = []string{target, id}
	}
	tn.Parent = wrap.ID
	n.Parent = wrap.ID
}

// replaceChildLocked puts repl where old was in parent, keeping its weight.
// An empty parent means old is the root.
func (t *Tree) replaceChildLocked(parent, old, repl string) {
	if parent == "" {
		t.root = repl
		t.nodes[repl].Parent = ""
		return
	}
	p := t.nodes[parent]
	if i := indexOf(p.Children, old); i >= 0 {
		p.Children[i] = repl
	}
	t.nodes[repl].Parent = parent
}

// detachLocked unlinks id from its parent without deleting it.
func (t *Tree) detachLocked(id string) {
	n := t.nodes[id]
	p, ok := t.nodes[n.Parent]
	n.Parent = ""
	if !ok {
		return
	}
	i := indexOf(p.Children, id)
	if i < 0 {
		return
	}
	p.Children = append(p.Children[:i:i], p.Children[i+1:]...)
	if p.Sizes != nil && i < len(p.Sizes) {
		p.Sizes = append(p.Sizes[:i:i], p.Sizes[i+1:]...)
		p.Sizes = normalizeSizes(p.Sizes)
	}
}

func (t *Tree) dropSubtreeLocked(id string) {
	var ids []string
	t.walkLocked(id, 0, func(n *Node, _ int) bool {
		ids = append(ids, n.ID)
		return true
	})
	for _, d := range ids {
		delete(t.nodes, d)
	}
}

// collapseLocked replaces a split left with a single child by that child,
// handing over the split's weight, workarea flag and label. An empty split
// is removed and its own parent checked in turn.
func (t *Tree) collapseLocked(id string) {
	n, ok := t.nodes[id]
	if !ok || n.IsLeaf() {
		return
	}
	switch len(n.Children) {
	case 0:
		if id == t.root {
			n.Kind = domain.TypeLeaf
			n.Orientation = ""
			n.Sizes = nil
			return
		}
		parent := n.Parent
		t.detachLocked(id)
		delete(t.nodes, id)
		t.collapseLocked(parent)
	case 1:
		child := t.nodes[n.Children[0]]
		if n.Workarea {
			child.Workarea = true
		}
		if child.Label == "" {
			child.Label = n.Label
		}
		t.replaceChildLocked(n.Parent, id, child.ID)
		delete(t.nodes, id)
	}
}

func normalizeSizes(sizes []float64) []float64 {
	if len(sizes) == 0 {
		return nil
	}
	out := make([]float64, len(sizes))
	allOne := true
	for i, s := range sizes {
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
			s = 1
		}
		out[i] = s
		if s != 1 {
			allOne = false
		}
	}
	if allOne {
		return nil
	}
	return out
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func insertAt[T any](s []T, i int, v T) []T {
	if i < 0 {
		i = 0
	}
	if i > len(s) {
		i = len(s)
	}
	s = append(s, v)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
