/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package container models the page macro-structure: a tree of leaf regions
// and horizontal/vertical splits, stored as an arena of nodes addressed by id.
// At most one node carries the workarea flag; it hosts the free-form canvas.
package container

import (
	"errors"
	"log/slog"
	"sync"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/geom"
	applog "pagebuilder/internal/log"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("container: node not found")
	ErrInvalidPosition = errors.New("container: invalid position")
	ErrLastContainer   = errors.New("container: cannot remove the last container")
	ErrNotLeaf         = errors.New("container: node is not a leaf")
	ErrNotSplit        = errors.New("container: node is not a split")
	ErrCycle           = errors.New("container: cannot move a node into itself")
)

// Node is one region of the tree. Children and Parent hold node ids.
type Node struct {
	ID          string
	Kind        string // domain.TypeLeaf or domain.TypeSplit
	Orientation string // splits only
	Children    []string
	// Sizes are relative flex weights parallel to Children; nil means 1 each.
	Sizes     []float64
	Parent    string
	Workarea  bool
	DesignRef string
	Label     string
}

func (n *Node) IsLeaf() bool { return n.Kind != domain.TypeSplit }

func (n *Node) clone() Node {
	c := *n
	c.Children = append([]string(nil), n.Children...)
	if n.Sizes != nil {
		c.Sizes = append([]float64(nil), n.Sizes...)
	}
	return c
}

// weight returns the flex weight of child i.
func (n *Node) weight(i int) float64 {
	if i < len(n.Sizes) && n.Sizes[i] > 0 {
		return n.Sizes[i]
	}
	return 1
}

// ChangeEvent describes a completed structural mutation.
type ChangeEvent struct {
	Op     string // place, move, delete, host, designref, label, sizes, load
	Target string
	NodeID string // node created or moved, if any
}

// Option customizes a Tree.
type Option func(*Tree)

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(fn func() string) Option { return func(t *Tree) { t.newID = fn } }

// WithLogger sets the logger used for structural diagnostics.
func WithLogger(l *slog.Logger) Option { return func(t *Tree) { t.log = l } }

// Tree is the split-container arena. All mutators are synchronous and safe
// for concurrent use; observers run after the lock is released.
type Tree struct {
	mu        sync.Mutex
	nodes     map[string]*Node
	root      string
	newID     func() string
	observers map[int]func(ChangeEvent)
	nextObs   int
	log       *slog.Logger
}

// New returns a tree holding a single empty root leaf.
func New(opts ...Option) *Tree {
	t := &Tree{nodes: make(map[string]*Node), observers: make(map[int]func(ChangeEvent))}
	t.newID = uuid.NewString
	for _, o := range opts {
		o(t)
	}
	if t.log == nil {
		t.log = applog.WithComponent("container")
	}
	root := &Node{ID: t.newID(), Kind: domain.TypeLeaf}
	t.nodes[root.ID] = root
	t.root = root.ID
	return t
}

// OnAfterChange registers fn to run after every structural change and
// returns a function that removes it.
func (t *Tree) OnAfterChange(fn func(ChangeEvent)) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}
}

func (t *Tree) emit(ev ChangeEvent) {
	t.mu.Lock()
	fns := make([]func(ChangeEvent), 0, len(t.observers))
	for i := 0; i < t.nextObs; i++ {
		if fn, ok := t.observers[i]; ok {
			fns = append(fns, fn)
		}
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Root returns the id of the root node.
func (t *Tree) Root() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}

// Node returns a copy of the node with the given id.
func (t *Tree) Node(id string) (Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}

// Walk visits nodes depth-first in child order. Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(n Node, depth int) bool) {
	t.mu.Lock()
	var order []Node
	var depths []int
	t.walkLocked(t.root, 0, func(n *Node, d int) bool {
		order = append(order, n.clone())
		depths = append(depths, d)
		return true
	})
	t.mu.Unlock()
	for i, n := range order {
		if !fn(n, depths[i]) {
			return
		}
	}
}

// Leaves returns the leaf ids in depth-first order.
func (t *Tree) Leaves() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	t.walkLocked(t.root, 0, func(n *Node, _ int) bool {
		if n.IsLeaf() {
			out = append(out, n.ID)
		}
		return true
	})
	return out
}

// Workarea returns the id of the workarea node, if any.
func (t *Tree) Workarea() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.workareaLocked()
}

func (t *Tree) workareaLocked() (string, bool) {
	var found string
	t.walkLocked(t.root, 0, func(n *Node, _ int) bool {
		if n.Workarea {
			found = n.ID
			return false
		}
		return true
	})
	return found, found != ""
}

// walkLocked is a depth-first walk guarded by a visited set so a corrupted
// arena cannot loop forever.
func (t *Tree) walkLocked(id string, depth int, fn func(n *Node, depth int) bool) bool {
	visited := make(map[string]bool, len(t.nodes))
	var rec func(id string, depth int) bool
	rec = func(id string, depth int) bool {
		n, ok := t.nodes[id]
		if !ok || visited[id] {
			return true
		}
		visited[id] = true
		if !fn(n, depth) {
			return false
		}
		for _, c := range n.Children {
			if !rec(c, depth+1) {
				return false
			}
		}
		return true
	}
	return rec(id, depth)
}

// isAncestor reports whether anc is id or one of its ancestors.
func (t *Tree) isAncestorLocked(anc, id string) bool {
	for steps := 0; id != "" && steps <= len(t.nodes); steps++ {
		if id == anc {
			return true
		}
		n, ok := t.nodes[id]
		if !ok {
			return false
		}
		id = n.Parent
	}
	return false
}

// Rects maps node ids to their laid-out rectangles. It is the default Measurer.
type Rects map[string]geom.Rect

// Measurer reports the rendered rectangle of a node.
type Measurer interface {
	Measure(id string) (geom.Rect, bool)
}

func (r Rects) Measure(id string) (geom.Rect, bool) {
	v, ok := r[id]
	return v, ok
}

// Layout distributes bounds over the tree according to split orientation and
// flex weights and returns the rectangle of every node.
func (t *Tree) Layout(bounds geom.Rect) Rects {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(Rects, len(t.nodes))
	visited := make(map[string]bool, len(t.nodes))
	var rec func(id string, r geom.Rect)
	rec = func(id string, r geom.Rect) {
		n, ok := t.nodes[id]
		if !ok || visited[id] {
			return
		}
		visited[id] = true
		out[id] = r
		if n.IsLeaf() || len(n.Children) == 0 {
			return
		}
		var total float64
		for i := range n.Children {
			total += n.weight(i)
		}
		offset := 0.0
		for i, c := range n.Children {
			frac := n.weight(i) / total
			var cr geom.Rect
			if n.Orientation == domain.Horizontal {
				h := r.H * frac
				cr = geom.Rect{X: r.X, Y: r.Y + offset, W: r.W, H: h}
				offset += h
			} else {
				w := r.W * frac
				cr = geom.Rect{X: r.X + offset, Y: r.Y, W: w, H: r.H}
				offset += w
			}
			rec(c, cr)
		}
	}
	rec(t.root, bounds)
	return out
}
