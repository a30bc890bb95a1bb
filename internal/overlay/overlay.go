/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package overlay keeps one floating selection frame in sync with the active
// grid item and exposes the resize handles around it.
package overlay

import (
	"log/slog"
	"sync"

	"pagebuilder/internal/canvas"
	"pagebuilder/internal/geom"
	applog "pagebuilder/internal/log"
)

// HandleSize is the edge length of a handle in client pixels. Handles keep
// their on-screen size at every zoom level.
const HandleSize = 8

// Zone identifies a part of the frame under the pointer.
type Zone int

const (
	ZoneNone Zone = iota
	ZoneBody
	ZoneN
	ZoneS
	ZoneE
	ZoneW
	ZoneNE
	ZoneNW
	ZoneSE
	ZoneSW
)

var zoneNames = map[Zone]string{
	ZoneNone: "none", ZoneBody: "body",
	ZoneN: "n", ZoneS: "s", ZoneE: "e", ZoneW: "w",
	ZoneNE: "ne", ZoneNW: "nw", ZoneSE: "se", ZoneSW: "sw",
}

func (z Zone) String() string { return zoneNames[z] }

// Edges maps a handle to the sides a resize from it moves.
func (z Zone) Edges() canvas.Edge {
	switch z {
	case ZoneN:
		return canvas.EdgeTop
	case ZoneS:
		return canvas.EdgeBottom
	case ZoneE:
		return canvas.EdgeRight
	case ZoneW:
		return canvas.EdgeLeft
	case ZoneNE:
		return canvas.EdgeTop | canvas.EdgeRight
	case ZoneNW:
		return canvas.EdgeTop | canvas.EdgeLeft
	case ZoneSE:
		return canvas.EdgeBottom | canvas.EdgeRight
	case ZoneSW:
		return canvas.EdgeBottom | canvas.EdgeLeft
	default:
		return 0
	}
}

// HitZone is one handle rectangle in client coordinates.
type HitZone struct {
	Zone Zone
	Rect geom.Rect
}

// State is a snapshot of the frame.
type State struct {
	Visible bool
	ItemID  string
	// Rect is the frame in logical, scale-corrected surface coordinates.
	Rect geom.Rect
	// Client is the frame as drawn on screen.
	Client    geom.Rect
	Scale     float64
	Movable   bool
	Resizable bool
}

// Interactive reports whether the frame offers any affordance.
func (s State) Interactive() bool { return s.Visible && (s.Movable || s.Resizable) }

// Box is the selection frame of one grid.
type Box struct {
	grid *canvas.Grid
	log  *slog.Logger

	mu    sync.Mutex
	state State
	unsub func()

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

// Attach creates a frame following the active item of g. It refreshes on
// every grid notification that can move the item on screen.
func Attach(g *canvas.Grid) *Box {
	b := &Box{grid: g, log: applog.WithComponent("overlay"), observers: make(map[int]func(State))}
	b.unsub = g.Subscribe(b.onGridEvent)
	b.Refresh()
	return b
}

func (b *Box) onGridEvent(ev canvas.Event) {
	switch ev.Kind {
	case canvas.EventChange, canvas.EventLoad, canvas.EventSelect,
		canvas.EventDrag, canvas.EventDragStop, canvas.EventResize, canvas.EventResizeStop,
		canvas.EventZoom, canvas.EventScroll, canvas.EventViewport:
		b.Refresh()
	}
}

// Refresh re-reads the active item's on-screen rect. It is idempotent and
// only notifies observers when the state changes.
func (b *Box) Refresh() {
	next := b.measure()
	b.mu.Lock()
	changed := next != b.state
	b.state = next
	b.mu.Unlock()
	if changed {
		b.emit(next)
	}
}

func (b *Box) measure() State {
	it, ok := b.grid.Selected()
	if !ok {
		return State{}
	}
	client, ok := b.grid.ClientRect(it.InstanceID)
	if !ok {
		return State{}
	}
	scale := b.grid.Scale()
	return State{
		Visible:   true,
		ItemID:    it.InstanceID,
		Rect:      geom.RelativeRect(client, b.grid.Viewport(), b.grid.Scroll(), scale),
		Client:    client,
		Scale:     scale,
		Movable:   it.Movable(),
		Resizable: it.Resizable(),
	}
}

// State returns the current frame.
func (b *Box) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Zones returns the handle rectangles in client coordinates, corners first.
// A frame whose item cannot be resized has no handles but stays visible.
func (b *Box) Zones() []HitZone {
	s := b.State()
	if !s.Visible || !s.Resizable {
		return nil
	}
	c := s.Client
	h := float64(HandleSize)
	at := func(z Zone, x, y float64) HitZone {
		return HitZone{Zone: z, Rect: geom.R(x-h/2, y-h/2, h, h)}
	}
	l, t, r, btm := c.X, c.Y, c.X+c.W, c.Y+c.H
	cx, cy := c.X+c.W/2, c.Y+c.H/2
	return []HitZone{
		at(ZoneNW, l, t), at(ZoneNE, r, t), at(ZoneSW, l, btm), at(ZoneSE, r, btm),
		at(ZoneN, cx, t), at(ZoneS, cx, btm), at(ZoneW, l, cy), at(ZoneE, r, cy),
	}
}

// HitTest returns the zone under client point p. Handles win over the body.
func (b *Box) HitTest(p geom.Pt) Zone {
	for _, z := range b.Zones() {
		if z.Rect.Contains(p) {
			return z.Zone
		}
	}
	s := b.State()
	if s.Visible && s.Movable && s.Client.Contains(p) {
		return ZoneBody
	}
	return ZoneNone
}

// PointerDown starts a resize when p is on a handle, or a drag when it is on
// the frame body. It reports whether the grid captured the pointer.
func (b *Box) PointerDown(p geom.Pt) bool {
	z := b.HitTest(p)
	id := b.State().ItemID
	switch z {
	case ZoneNone:
		return false
	case ZoneBody:
		return b.grid.BeginDrag(id, p)
	default:
		ok := b.grid.BeginResize(id, z.Edges(), p)
		if ok {
			b.log.Debug("resize from handle", slog.String("item", id), slog.String("zone", z.String()))
		}
		return ok
	}
}

// OnChange registers fn for frame changes.
func (b *Box) OnChange(fn func(State)) (unsubscribe func()) {
	b.obsMu.Lock()
	id := b.nextObs
	b.nextObs++
	b.observers[id] = fn
	b.obsMu.Unlock()
	return func() {
		b.obsMu.Lock()
		delete(b.observers, id)
		b.obsMu.Unlock()
	}
}

func (b *Box) emit(s State) {
	b.obsMu.Lock()
	fns := make([]func(State), 0, len(b.observers))
	for i := 0; i < b.nextObs; i++ {
		if fn, ok := b.observers[i]; ok {
			fns = append(fns, fn)
		}
	}
	b.obsMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// Detach stops following the grid.
func (b *Box) Detach() {
	b.mu.Lock()
	unsub := b.unsub
	b.unsub = nil
	b.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
