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
	"testing"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/geom"
	applog "pagebuilder/internal/log"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("n%d", n)
	}
}

func newTree() *Tree {
	return New(WithIDGenerator(seqIDs()), WithLogger(applog.Discard()))
}

func mustNode(t *testing.T, tr *Tree, id string) Node {
	t.Helper()
	n, ok := tr.Node(id)
	if !ok {
		t.Fatalf("node %s not found", id)
	}
	return n
}

func countWorkareas(tr *Tree) int {
	c := 0
	tr.Walk(func(n Node, _ int) bool {
		if n.Workarea {
			c++
		}
		return true
	})
	return c
}

func TestPlaceRightThenDelete_Scenario(t *testing.T) {
	tr := newTree()
	root := tr.Root()
	if err := tr.SetDesignRef(root, "design-A"); err != nil {
		t.Fatalf("SetDesignRef: %v", err)
	}
	added, err := tr.PlaceContainer(root, Right)
	if err != nil {
		t.Fatalf("PlaceContainer: %v", err)
	}
	split := mustNode(t, tr, tr.Root())
	if split.Kind != domain.TypeSplit || split.Orientation != domain.Vertical {
		t.Fatalf("root = %+v, want vertical split", split)
	}
	if len(split.Children) != 2 || split.Children[0] != root || split.Children[1] != added {
		t.Fatalf("children = %v, want [%s %s]", split.Children, root, added)
	}
	j := tr.Serialize()
	if j.Type != "split" || j.Orientation != "vertical" || j.Workarea || len(j.Children) != 2 {
		t.Fatalf("serialized = %+v", j)
	}
	if j.Children[0].Type != "leaf" || j.Children[0].DesignRef != "design-A" || j.Sizes != nil {
		t.Fatalf("serialized children = %+v", j.Children)
	}

	if err := tr.DeleteContainer(added); err != nil {
		t.Fatalf("DeleteContainer: %v", err)
	}
	if tr.Root() != root || tr.Len() != 1 {
		t.Fatalf("tree did not collapse back to the original leaf: root=%s len=%d", tr.Root(), tr.Len())
	}
	back := mustNode(t, tr, root)
	if !back.IsLeaf() || back.Parent != "" || back.DesignRef != "design-A" {
		t.Fatalf("collapsed root = %+v", back)
	}
}

func TestPlaceEdgesAndOrientation(t *testing.T) {
	cases := []struct {
		pos    Position
		orient string
		first  bool // new leaf comes first
	}{
		{Top, domain.Horizontal, true},
		{Bottom, domain.Horizontal, false},
		{Left, domain.Vertical, true},
		{Right, domain.Vertical, false},
	}
	for _, c := range cases {
		t.Run(string(c.pos), func(t *testing.T) {
			tr := newTree()
			old := tr.Root()
			added, err := tr.PlaceContainer(old, c.pos)
			if err != nil {
				t.Fatalf("PlaceContainer: %v", err)
			}
			s := mustNode(t, tr, tr.Root())
			if s.Orientation != c.orient {
				t.Fatalf("orientation = %s, want %s", s.Orientation, c.orient)
			}
			want := []string{old, added}
			if c.first {
				want = []string{added, old}
			}
			if s.Children[0] != want[0] || s.Children[1] != want[1] {
				t.Fatalf("children = %v, want %v", s.Children, want)
			}
		})
	}
}

func TestPlaceIntoMatchingParentInsertsSibling(t *testing.T) {
	tr := newTree()
	a := tr.Root()
	b, _ := tr.PlaceContainer(a, Right) // split(vertical)[a b]
	splitID := tr.Root()
	_ = tr.SetSizes(splitID, []float64{2, 1})
	c, err := tr.PlaceContainer(a, Right) // same orientation: insert after a
	if err != nil {
		t.Fatalf("PlaceContainer: %v", err)
	}
	s := mustNode(t, tr, splitID)
	if len(s.Children) != 3 || s.Children[0] != a || s.Children[1] != c || s.Children[2] != b {
		t.Fatalf("children = %v", s.Children)
	}
	if len(s.Sizes) != 3 || s.Sizes[0] != 2 || s.Sizes[1] != 1 || s.Sizes[2] != 1 {
		t.Fatalf("sizes = %v", s.Sizes)
	}
	d, _ := tr.PlaceContainer(b, Left)
	s = mustNode(t, tr, splitID)
	if s.Children[2] != d || s.Children[3] != b {
		t.Fatalf("left insert misplaced: %v", s.Children)
	}
}

func TestPlaceCrossOrientationWraps(t *testing.T) {
	tr := newTree()
	a := tr.Root()
	b, _ := tr.PlaceContainer(a, Right)
	top := tr.Root()
	c, _ := tr.PlaceContainer(b, Bottom)
	s := mustNode(t, tr, top)
	wrapID := s.Children[1]
	w := mustNode(t, tr, wrapID)
	if w.Kind != domain.TypeSplit || w.Orientation != domain.Horizontal || w.Parent != top {
		t.Fatalf("wrapper = %+v", w)
	}
	if w.Children[0] != b || w.Children[1] != c {
		t.Fatalf("wrapper children = %v", w.Children)
	}
	if mustNode(t, tr, b).Parent != wrapID {
		t.Fatalf("b not reparented")
	}
}

func TestPlaceInsideLeafKeepsContentInFirstChild(t *testing.T) {
	tr := newTree()
	root := tr.Root()
	_ = tr.SetDynamicHost(root)
	_ = tr.SetLabel(root, "main")
	added, err := tr.PlaceContainer(root, Inside)
	if err != nil {
		t.Fatalf("PlaceContainer: %v", err)
	}
	r := mustNode(t, tr, root)
	if r.IsLeaf() || r.Workarea || r.Label != "" || len(r.Children) != 2 || r.Children[1] != added {
		t.Fatalf("target after inside = %+v", r)
	}
	keeper := mustNode(t, tr, r.Children[0])
	if !keeper.Workarea || keeper.Label != "main" || keeper.Parent != root {
		t.Fatalf("keeper = %+v", keeper)
	}
	more, _ := tr.PlaceContainer(root, Inside)
	if r = mustNode(t, tr, root); len(r.Children) != 3 || r.Children[2] != more {
		t.Fatalf("inside on split should append: %v", r.Children)
	}
	if countWorkareas(tr) != 1 {
		t.Fatalf("expected exactly one workarea")
	}
}

func TestPlaceErrors(t *testing.T) {
	tr := newTree()
	if _, err := tr.PlaceContainer("missing", Top); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := tr.PlaceContainer(tr.Root(), Position("diagonal")); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("err = %v, want ErrInvalidPosition", err)
	}
	if tr.Len() != 1 {
		t.Fatalf("failed placement must not change the tree")
	}
	if p, err := ParsePosition(" LEFT "); err != nil || p != Left {
		t.Fatalf("ParsePosition = %v, %v", p, err)
	}
}

func TestDeleteRootRefused(t *testing.T) {
	tr := newTree()
	if err := tr.DeleteContainer(tr.Root()); !errors.Is(err, ErrLastContainer) {
		t.Fatalf("err = %v, want ErrLastContainer", err)
	}
}

func TestDeleteCollapseTransfersWorkarea(t *testing.T) {
	tr := newTree()
	a := tr.Root()
	b, _ := tr.PlaceContainer(a, Right)
	top := tr.Root()
	c, _ := tr.PlaceContainer(b, Bottom) // top=[a, W[b c]]
	wrap := mustNode(t, tr, c).Parent
	_ = tr.SetSizes(top, []float64{1, 3})
	if err := tr.SetDynamicHost(wrap); err != nil {
		t.Fatalf("SetDynamicHost: %v", err)
	}
	_ = tr.SetLabel(wrap, "sidebar")
	if err := tr.DeleteContainer(c); err != nil {
		t.Fatalf("DeleteContainer: %v", err)
	}
	if _, ok := tr.Node(wrap); ok {
		t.Fatalf("collapsed parent still present")
	}
	s := mustNode(t, tr, top)
	if s.Children[1] != b {
		t.Fatalf("survivor not promoted into parent slot: %v", s.Children)
	}
	if len(s.Sizes) != 2 || s.Sizes[1] != 3 {
		t.Fatalf("survivor lost the collapsed parent's weight: %v", s.Sizes)
	}
	bn := mustNode(t, tr, b)
	if !bn.Workarea || bn.Label != "sidebar" || bn.Parent != top {
		t.Fatalf("survivor = %+v", bn)
	}
	if countWorkareas(tr) != 1 {
		t.Fatalf("expected one workarea")
	}
}

func TestDeleteSubtreeRemovesDescendants(t *testing.T) {
	tr := newTree()
	a := tr.Root()
	b, _ := tr.PlaceContainer(a, Right)
	_, _ = tr.PlaceContainer(b, Bottom)
	wrap := mustNode(t, tr, b).Parent
	if err := tr.DeleteContainer(wrap); err != nil {
		t.Fatalf("DeleteContainer: %v", err)
	}
	if tr.Len() != 1 || tr.Root() != a {
		t.Fatalf("expected single leaf a, got root=%s len=%d", tr.Root(), tr.Len())
	}
}

func TestSetDynamicHostSingleWorkarea(t *testing.T) {
	tr := newTree()
	ids := []string{tr.Root()}
	for i := 0; i < 4; i++ {
		id, _ := tr.PlaceContainer(ids[len(ids)-1], []Position{Right, Bottom}[i%2])
		ids = append(ids, id)
	}
	var all []string
	tr.Walk(func(n Node, _ int) bool {
		all = append(all, n.ID)
		return true
	})
	for _, id := range append(all, all[2], all[0]) {
		if err := tr.SetDynamicHost(id); err != nil {
			t.Fatalf("SetDynamicHost(%s): %v", id, err)
		}
		if n := countWorkareas(tr); n != 1 {
			t.Fatalf("after host %s: %d workareas", id, n)
		}
		if got, _ := tr.Workarea(); got != id {
			t.Fatalf("Workarea() = %s, want %s", got, id)
		}
	}
	if err := tr.SetDynamicHost("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetDesignRefOnSplitRefused(t *testing.T) {
	tr := newTree()
	_, _ = tr.PlaceContainer(tr.Root(), Top)
	if err := tr.SetDesignRef(tr.Root(), "x"); !errors.Is(err, ErrNotLeaf) {
		t.Fatalf("err = %v, want ErrNotLeaf", err)
	}
}

func TestSetDefaultWorkareaPicksLargestEligibleLeaf(t *testing.T) {
	tr := newTree()
	a := tr.Root()
	b, _ := tr.PlaceContainer(a, Right)
	c, _ := tr.PlaceContainer(b, Right)
	_ = tr.SetSizes(tr.Root(), []float64{3, 1, 2})
	_ = tr.SetDesignRef(a, "header-design") // largest, but not eligible
	rects := tr.Layout(geom.R(0, 0, 600, 400))
	id, ok := tr.SetDefaultWorkarea(rects)
	if !ok || id != c {
		t.Fatalf("SetDefaultWorkarea = %s,%v want %s", id, ok, c)
	}
	// existing workarea is kept
	_ = tr.SetDynamicHost(b)
	if id, _ := tr.SetDefaultWorkarea(rects); id != b {
		t.Fatalf("existing workarea replaced: %s", id)
	}
}

func TestSetDefaultWorkareaTieGoesToFirst(t *testing.T) {
	tr := newTree()
	a := tr.Root()
	_, _ = tr.PlaceContainer(a, Right)
	id, ok := tr.SetDefaultWorkarea(tr.Layout(geom.R(0, 0, 100, 100)))
	if !ok || id != a {
		t.Fatalf("tie should pick first leaf %s, got %s", a, id)
	}
}

func TestLayoutDistributesByWeight(t *testing.T) {
	tr := newTree()
	a := tr.Root()
	b, _ := tr.PlaceContainer(a, Bottom)
	_ = tr.SetSizes(tr.Root(), []float64{1, 3})
	rects := tr.Layout(geom.R(0, 0, 200, 400))
	if rects[a] != geom.R(0, 0, 200, 100) || rects[b] != geom.R(0, 100, 200, 300) {
		t.Fatalf("layout = %+v", rects)
	}
}

func TestMoveContainer(t *testing.T) {
	tr := newTree()
	a := tr.Root()
	b, _ := tr.PlaceContainer(a, Right)
	c, _ := tr.PlaceContainer(b, Right) // root=[a b c]
	top := tr.Root()
	if err := tr.MoveContainer(c, a, Left); err != nil {
		t.Fatalf("MoveContainer: %v", err)
	}
	s := mustNode(t, tr, top)
	if s.Children[0] != c || s.Children[1] != a || s.Children[2] != b {
		t.Fatalf("children after move = %v", s.Children)
	}
	// move b below a: a gets wrapped, old parent keeps two children
	if err := tr.MoveContainer(b, a, Bottom); err != nil {
		t.Fatalf("MoveContainer: %v", err)
	}
	s = mustNode(t, tr, top)
	if len(s.Children) != 2 {
		t.Fatalf("children = %v", s.Children)
	}
	w := mustNode(t, tr, s.Children[1])
	if w.Orientation != domain.Horizontal || w.Children[0] != a || w.Children[1] != b {
		t.Fatalf("wrapper = %+v", w)
	}
}

func TestMoveCollapsesOldParent(t *testing.T) {
	tr := newTree()
	a := tr.Root()
	b, _ := tr.PlaceContainer(a, Right)
	top := tr.Root()
	c, _ := tr.PlaceContainer(b, Bottom) // top=[a, W[b c]]
	wrap := mustNode(t, tr, b).Parent
	_ = tr.SetDynamicHost(wrap)
	if err := tr.MoveContainer(c, a, Top); err != nil {
		t.Fatalf("MoveContainer: %v", err)
	}
	if _, ok := tr.Node(wrap); ok {
		t.Fatalf("old parent should have collapsed")
	}
	bn := mustNode(t, tr, b)
	if !bn.Workarea || bn.Parent != top {
		t.Fatalf("survivor = %+v", bn)
	}
	if countWorkareas(tr) != 1 {
		t.Fatalf("expected exactly one workarea")
	}
}

func TestMoveIntoOwnSubtreeRefused(t *testing.T) {
	tr := newTree()
	a := tr.Root()
	b, _ := tr.PlaceContainer(a, Right)
	c, _ := tr.PlaceContainer(b, Bottom)
	wrap := mustNode(t, tr, b).Parent
	before := tr.Serialize()
	for _, tc := range [][2]string{{wrap, c}, {wrap, wrap}, {tr.Root(), a}} {
		if err := tr.MoveContainer(tc[0], tc[1], Inside); !errors.Is(err, ErrCycle) {
			t.Fatalf("move %s into %s: err = %v, want ErrCycle", tc[0], tc[1], err)
		}
	}
	after := tr.Serialize()
	if len(after.Children) != len(before.Children) {
		t.Fatalf("tree changed on refused move")
	}
}

func TestOnAfterChangeFires(t *testing.T) {
	tr := newTree()
	var ops []string
	unsub := tr.OnAfterChange(func(ev ChangeEvent) { ops = append(ops, ev.Op) })
	id, _ := tr.PlaceContainer(tr.Root(), Top)
	_ = tr.SetDynamicHost(id)
	_ = tr.DeleteContainer(id)
	_, _ = tr.PlaceContainer(tr.Root(), Left) // failing calls do not notify
	_, _ = tr.PlaceContainer("x", Left)
	unsub()
	_ = tr.SetLabel(tr.Root(), "ignored")
	want := []string{"place", "host", "delete", "place"}
	if fmt.Sprint(ops) != fmt.Sprint(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
}
