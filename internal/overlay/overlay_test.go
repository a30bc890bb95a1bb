/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"testing"

	"pagebuilder/internal/canvas"
	"pagebuilder/internal/geom"
	applog "pagebuilder/internal/log"
)

func newGrid(t *testing.T) (*canvas.Grid, *canvas.ManualScheduler) {
	t.Helper()
	sched := &canvas.ManualScheduler{}
	g := canvas.New(canvas.Options{
		Columns: 12, CellHeight: 50, Width: 1200, Height: 800,
		Scheduler: sched, Logger: applog.Discard(),
	})
	t.Cleanup(g.Close)
	return g, sched
}

func TestBoxHiddenWithoutSelection(t *testing.T) {
	g, _ := newGrid(t)
	b := Attach(g)
	defer b.Detach()
	g.AddWidget("x", 1, 1, 2, 2)
	if s := b.State(); s.Visible || s.Interactive() {
		t.Fatalf("state = %+v, want hidden", s)
	}
	if z := b.HitTest(geom.Pt{X: 150, Y: 75}); z != ZoneNone {
		t.Fatalf("HitTest = %v", z)
	}
}

func TestBoxTracksSelectionScrollAndZoom(t *testing.T) {
	g, _ := newGrid(t)
	g.SetViewport(geom.R(20, 10, 600, 400))
	b := Attach(g)
	defer b.Detach()
	var seen int
	b.OnChange(func(State) { seen++ })

	it := g.AddWidget("x", 2, 1, 3, 2)
	if err := g.Select(it.InstanceID); err != nil {
		t.Fatal(err)
	}
	s := b.State()
	if !s.Visible || s.ItemID != it.InstanceID {
		t.Fatalf("state = %+v", s)
	}
	if s.Rect != geom.R(200, 50, 300, 100) || s.Client != geom.R(220, 60, 300, 100) {
		t.Fatalf("rects = %+v / %+v", s.Rect, s.Client)
	}

	g.SetScroll(geom.Pt{X: 30, Y: 20})
	if c := b.State().Client; c.X != 190 || c.Y != 40 {
		t.Fatalf("client after scroll = %+v", c)
	}

	g.SetScale(2, &geom.Pt{})
	s = b.State()
	if s.Scale != 2 || s.Client.W != 600 || s.Client.H != 200 {
		t.Fatalf("client after zoom = %+v", s)
	}
	// the logical rect does not depend on zoom or scroll
	if s.Rect.X != 200 || s.Rect.Y != 50 || s.Rect.W != 300 || s.Rect.H != 100 {
		t.Fatalf("logical rect = %+v", s.Rect)
	}

	before := seen
	b.Refresh()
	b.Refresh()
	if seen != before {
		t.Fatalf("refresh without changes notified observers")
	}

	g.ClearSelection()
	if b.State().Visible {
		t.Fatalf("frame still visible after clearing the selection")
	}
}

func TestBoxZonesAndHitTest(t *testing.T) {
	g, _ := newGrid(t)
	b := Attach(g)
	defer b.Detach()
	it := g.AddWidget("x", 2, 2, 4, 2) // client 200,100 400x100
	_ = g.Select(it.InstanceID)

	zones := b.Zones()
	if len(zones) != 8 {
		t.Fatalf("zones = %d, want 8", len(zones))
	}
	cases := []struct {
		p    geom.Pt
		want Zone
	}{
		{geom.Pt{X: 200, Y: 100}, ZoneNW},
		{geom.Pt{X: 602, Y: 198}, ZoneSE},
		{geom.Pt{X: 400, Y: 97}, ZoneN},
		{geom.Pt{X: 600, Y: 150}, ZoneE},
		{geom.Pt{X: 300, Y: 150}, ZoneBody},
		{geom.Pt{X: 50, Y: 50}, ZoneNone},
	}
	for _, c := range cases {
		if got := b.HitTest(c.p); got != c.want {
			t.Errorf("HitTest(%v) = %v, want %v", c.p, got, c.want)
		}
	}
	if ZoneSW.Edges() != canvas.EdgeBottom|canvas.EdgeLeft || ZoneBody.Edges() != 0 {
		t.Fatalf("edge mapping broken")
	}
}

func TestBoxDisablesAffordancesForLockedItem(t *testing.T) {
	g, _ := newGrid(t)
	b := Attach(g)
	defer b.Detach()
	it := g.AddWidget("x", 0, 0, 2, 2)
	_ = g.Update(it.InstanceID, canvas.Geometry{Locked: canvas.Bool(true)}, false)
	_ = g.Select(it.InstanceID)

	s := b.State()
	if !s.Visible || s.Interactive() {
		t.Fatalf("locked item frame = %+v, want visible and inert", s)
	}
	if len(b.Zones()) != 0 || b.HitTest(geom.Pt{X: 100, Y: 50}) != ZoneNone {
		t.Fatalf("locked item must expose no zones")
	}
	if b.PointerDown(geom.Pt{X: 200, Y: 100}) {
		t.Fatalf("pointer down on locked frame started an interaction")
	}

	_ = g.Update(it.InstanceID, canvas.Geometry{Locked: canvas.Bool(false), NoResize: canvas.Bool(true)}, false)
	s = b.State()
	if !s.Movable || s.Resizable || len(b.Zones()) != 0 {
		t.Fatalf("no-resize frame = %+v", s)
	}
	if b.HitTest(geom.Pt{X: 100, Y: 50}) != ZoneBody {
		t.Fatalf("movable frame body should be hittable")
	}
}

func TestBoxPointerDownResizesFromHandle(t *testing.T) {
	g, sched := newGrid(t)
	b := Attach(g)
	defer b.Detach()
	it := g.AddWidget("x", 2, 2, 2, 2) // client 200,100 200x100
	_ = g.Select(it.InstanceID)

	if !b.PointerDown(geom.Pt{X: 400, Y: 200}) {
		t.Fatalf("pointer down on SE handle did not capture")
	}
	g.PointerMove(geom.Pt{X: 600, Y: 300})
	sched.Flush()
	if s := b.State(); s.Rect.W != 400 || s.Rect.H != 200 {
		t.Fatalf("frame did not follow live resize: %+v", s.Rect)
	}
	g.PointerUp(geom.Pt{X: 600, Y: 300})
	got, _ := g.Item(it.InstanceID)
	if got.W != 4 || got.H != 4 || got.X != 2 || got.Y != 2 {
		t.Fatalf("resized item = %+v", got)
	}
}
