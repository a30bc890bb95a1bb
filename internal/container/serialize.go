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
	"encoding/json"
	"fmt"
	"log/slog"

	"pagebuilder/internal/domain"
)

// Serialize flattens the tree into its JSON form. Sizes are only emitted when
// some weight differs from 1.
func (t *Tree) Serialize() domain.NodeJSON {
	t.mu.Lock()
	defer t.mu.Unlock()
	visited := make(map[string]bool, len(t.nodes))
	var rec func(id string) domain.NodeJSON
	rec = func(id string) domain.NodeJSON {
		n := t.nodes[id]
		visited[id] = true
		if n.IsLeaf() {
			return domain.NodeJSON{Type: domain.TypeLeaf, NodeID: n.ID, Workarea: n.Workarea, DesignRef: n.DesignRef, Label: n.Label}
		}
		out := domain.NodeJSON{Type: domain.TypeSplit, Orientation: n.Orientation, NodeID: n.ID, Workarea: n.Workarea, Label: n.Label}
		for _, c := range n.Children {
			if _, ok := t.nodes[c]; !ok || visited[c] {
				continue
			}
			out.Children = append(out.Children, rec(c))
		}
		if s := normalizeSizes(n.Sizes); s != nil && len(s) == len(out.Children) {
			out.Sizes = s
		}
		return out
	}
	return rec(t.root)
}

// Marshal returns the serialized tree as JSON bytes.
func (t *Tree) Marshal() ([]byte, error) {
	return json.Marshal(t.Serialize())
}

// Load replaces the tree content with j. Malformed input is normalized rather
// than rejected: a missing type becomes split when children exist and leaf
// otherwise, unknown orientations become vertical, missing or duplicate ids
// are regenerated, and only the first workarea in depth-first order survives.
func (t *Tree) Load(j domain.NodeJSON) {
	t.mu.Lock()
	nodes := make(map[string]*Node)
	workareaSeen := false
	regenerated := 0
	var build func(j domain.NodeJSON, parent string) string
	build = func(j domain.NodeJSON, parent string) string {
		id := j.NodeID
		if _, dup := nodes[id]; id == "" || dup {
			id = t.newID()
			regenerated++
		}
		n := &Node{ID: id, Parent: parent, Label: j.Label}
		nodes[id] = n
		if j.Workarea && !workareaSeen {
			n.Workarea = true
			workareaSeen = true
		}
		if nodeKind(j) == domain.TypeLeaf {
			n.Kind = domain.TypeLeaf
			n.DesignRef = j.DesignRef
			return id
		}
		n.Kind = domain.TypeSplit
		n.Orientation = j.Orientation
		if n.Orientation != domain.Horizontal && n.Orientation != domain.Vertical {
			n.Orientation = domain.Vertical
		}
		for _, c := range j.Children {
			n.Children = append(n.Children, build(c, id))
		}
		if len(j.Sizes) == len(n.Children) {
			n.Sizes = normalizeSizes(j.Sizes)
		}
		return id
	}
	root := build(j, "")
	t.nodes = nodes
	t.root = root
	t.mu.Unlock()

	if regenerated > 0 {
		t.log.Debug("regenerated node ids on load", slog.Int("count", regenerated))
	}
	t.emit(ChangeEvent{Op: "load", Target: root})
}

func nodeKind(j domain.NodeJSON) string {
	switch j.Type {
	case domain.TypeSplit:
		if len(j.Children) == 0 {
			return domain.TypeLeaf
		}
		return domain.TypeSplit
	case domain.TypeLeaf:
		return domain.TypeLeaf
	default:
		if len(j.Children) > 0 {
			return domain.TypeSplit
		}
		return domain.TypeLeaf
	}
}

// Deserialize builds a new tree from j.
func Deserialize(j domain.NodeJSON, opts ...Option) *Tree {
	t := New(opts...)
	t.Load(j)
	return t
}

// Unmarshal decodes JSON bytes into a new tree.
func Unmarshal(data []byte, opts ...Option) (*Tree, error) {
	var j domain.NodeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("container: decode tree: %w", err)
	}
	return Deserialize(j, opts...), nil
}
