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
	"log/slog"

	"pagebuilder/internal/geom"
)

// Edge is a bitmask of the sides a resize moves.
type Edge uint8

const (
	EdgeLeft Edge = 1 << iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

type interactionKind int

const (
	kindDrag interactionKind = iota
	kindResize
)

// interaction is the state of one pointer-captured drag or resize.
type interaction struct {
	kind    interactionKind
	id      string
	edges   Edge
	start   geom.Pt   // client pointer at pointer-down
	startPx geom.Rect // item pixel rect at pointer-down
	startIt Item
	last    geom.Rect  // latest raw pixel rect
	follow  *geom.Rect // raw rect shown in on-drop mode
	moved   bool
}

func (in *interaction) events() (start, move, stop EventKind) {
	if in.kind == kindResize {
		return EventResizeStart, EventResize, EventResizeStop
	}
	return EventDragStart, EventDrag, EventDragStop
}

// BeginDrag captures the pointer for dragging id from client point p. It
// refuses locked and move-disabled items and selects the item.
func (g *Grid) BeginDrag(id string, p geom.Pt) bool {
	return g.begin(id, kindDrag, 0, p)
}

// BeginResize captures the pointer for resizing id along edges.
func (g *Grid) BeginResize(id string, edges Edge, p geom.Pt) bool {
	if edges == 0 {
		return false
	}
	return g.begin(id, kindResize, edges, p)
}

func (g *Grid) begin(id string, kind interactionKind, edges Edge, p geom.Pt) bool {
	g.mu.Lock()
	it, ok := g.byID[id]
	if !ok || g.inter != nil {
		g.mu.Unlock()
		return false
	}
	if (kind == kindDrag && !it.Movable()) || (kind == kindResize && !it.Resizable()) {
		g.mu.Unlock()
		return false
	}
	px := g.pxLocked(it)
	g.inter = &interaction{kind: kind, id: id, edges: edges, start: p, startPx: px, startIt: it.clone(), last: px}
	selected := g.active != id
	g.active = id
	startEv, _, _ := g.inter.events()
	g.mu.Unlock()

	if selected {
		g.emit(Event{Kind: EventSelect, ItemID: id})
	}
	g.emit(Event{Kind: startEv, ItemID: id})
	return true
}

// Interacting reports whether a drag or resize is in progress.
func (g *Grid) Interacting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inter != nil
}

// PointerMove records a pointer sample. Samples are coalesced so at most one
// update runs per frame, using the latest sample.
func (g *Grid) PointerMove(p geom.Pt) {
	if !g.Interacting() {
		return
	}
	g.frames.Push(p)
}

// applyPointer runs once per frame with the latest pointer sample.
func (g *Grid) applyPointer(p geom.Pt) {
	g.mu.Lock()
	in := g.inter
	if in == nil {
		g.mu.Unlock()
		return
	}
	it, ok := g.byID[in.id]
	if !ok {
		g.inter = nil
		g.mu.Unlock()
		return
	}
	raw := g.rawRectLocked(in, p)
	in.last = raw
	in.moved = true
	if g.opts.Snap == SnapLive {
		g.updateLocked(it, g.snapLocked(in, raw))
		in.follow = nil
	} else {
		r := raw
		in.follow = &r
	}
	_, moveEv, _ := in.events()
	id := in.id
	g.mu.Unlock()
	g.emit(Event{Kind: moveEv, ItemID: id})
}

// rawRectLocked is the unsnapped pixel rect for pointer p.
func (g *Grid) rawRectLocked(in *interaction, p geom.Pt) geom.Rect {
	s := g.scale
	d := geom.Pt{X: (p.X - in.start.X) / s, Y: (p.Y - in.start.Y) / s}
	r := in.startPx
	if in.kind == kindDrag {
		return r.Translate(d)
	}
	minW := float64(max(g.opts.MinW, in.startIt.MinW, 1)) * g.colWLocked()
	minH := float64(max(g.opts.MinH, in.startIt.MinH, 1)) * g.opts.CellHeight
	right, bottom := r.X+r.W, r.Y+r.H
	if in.edges&EdgeLeft != 0 {
		r.X = min(r.X+d.X, right-minW)
		r.W = right - r.X
	}
	if in.edges&EdgeRight != 0 {
		r.W = max(r.W+d.X, minW)
	}
	if in.edges&EdgeTop != 0 {
		r.Y = min(r.Y+d.Y, bottom-minH)
		r.H = bottom - r.Y
	}
	if in.edges&EdgeBottom != 0 {
		r.H = max(r.H+d.Y, minH)
	}
	return r
}

// snapLocked quantizes a raw rect to cells. A drag keeps the size; a resize
// only moves the active edges and respects the minimum size.
func (g *Grid) snapLocked(in *interaction, raw geom.Rect) Geometry {
	cw, ch := g.colWLocked(), g.opts.CellHeight
	st := in.startIt
	if in.kind == kindDrag {
		return Geometry{
			X: Num(float64(geom.SnapToCell(raw.X, cw))),
			Y: Num(float64(geom.SnapToCell(raw.Y, ch))),
		}
	}
	minW := max(g.opts.MinW, st.MinW, 1)
	minH := max(g.opts.MinH, st.MinH, 1)
	l, r, t, b := st.X, st.X+st.W, st.Y, st.Y+st.H
	if in.edges&EdgeLeft != 0 {
		l = min(geom.SnapToCell(raw.X, cw), r-minW)
	}
	if in.edges&EdgeRight != 0 {
		r = max(geom.SnapToCell(raw.X+raw.W, cw), l+minW)
	}
	if in.edges&EdgeTop != 0 {
		t = min(geom.SnapToCell(raw.Y, ch), b-minH)
	}
	if in.edges&EdgeBottom != 0 {
		b = max(geom.SnapToCell(raw.Y+raw.H, ch), t+minH)
	}
	return Cells(l, t, r-l, b-t)
}

// PointerUp releases the pointer: the latest position is snapped and
// committed through the regular update path.
func (g *Grid) PointerUp(p geom.Pt) {
	if !g.Interacting() {
		return
	}
	g.frames.Push(p)
	g.frames.Flush()

	g.mu.Lock()
	in := g.inter
	if in == nil {
		g.mu.Unlock()
		return
	}
	g.inter = nil
	it, ok := g.byID[in.id]
	changed := false
	if ok {
		g.updateLocked(it, g.snapLocked(in, in.last))
		changed = it.X != in.startIt.X || it.Y != in.startIt.Y || it.W != in.startIt.W || it.H != in.startIt.H
	}
	_, _, stopEv := in.events()
	g.mu.Unlock()

	if changed {
		g.log.Debug("widget committed", slog.String("id", in.id), slog.Bool("resize", in.kind == kindResize))
	}
	g.emit(Event{Kind: stopEv, ItemID: in.id})
	if changed {
		g.emit(Event{Kind: EventChange, ItemID: in.id})
	}
}

// CancelInteraction aborts a drag or resize and restores the item to where
// it started. It reports whether anything was cancelled.
func (g *Grid) CancelInteraction() bool {
	g.frames.Cancel()
	g.mu.Lock()
	in := g.inter
	if in == nil {
		g.mu.Unlock()
		return false
	}
	g.inter = nil
	restored := false
	if it, ok := g.byID[in.id]; ok && in.moved && g.opts.Snap == SnapLive {
		g.updateLocked(it, Cells(in.startIt.X, in.startIt.Y, in.startIt.W, in.startIt.H))
		restored = true
	}
	_, _, stopEv := in.events()
	g.mu.Unlock()
	g.emit(Event{Kind: stopEv, ItemID: in.id})
	if restored {
		g.emit(Event{Kind: EventChange, ItemID: in.id})
	}
	return true
}

// HandleKey cancels a running interaction on Escape.
func (g *Grid) HandleKey(key string) bool {
	if key != "Escape" {
		return false
	}
	return g.CancelInteraction()
}
