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

import "pagebuilder/internal/geom"

// EventKind names a grid notification.
type EventKind string

const (
	EventChange      EventKind = "change"
	EventLoad        EventKind = "load"
	EventSelect      EventKind = "select"
	EventDragStart   EventKind = "dragstart"
	EventDrag        EventKind = "drag"
	EventDragStop    EventKind = "dragstop"
	EventResizeStart EventKind = "resizestart"
	EventResize      EventKind = "resize"
	EventResizeStop  EventKind = "resizestop"
	EventZoom        EventKind = "zoom"
	EventScroll      EventKind = "scroll"
	EventViewport    EventKind = "viewport"
)

// Event is delivered to grid observers.
type Event struct {
	Kind   EventKind
	ItemID string
	Scale  float64
	Scroll geom.Pt
}

// Subscribe registers fn for every grid event and returns a function that
// removes it.
func (g *Grid) Subscribe(fn func(Event)) (unsubscribe func()) {
	g.obsMu.Lock()
	id := g.nextObs
	g.nextObs++
	g.observers[id] = fn
	g.obsMu.Unlock()
	return func() {
		g.obsMu.Lock()
		delete(g.observers, id)
		g.obsMu.Unlock()
	}
}

// OnChange registers fn for change events only.
func (g *Grid) OnChange(fn func(Event)) (unsubscribe func()) {
	return g.Subscribe(func(ev Event) {
		if ev.Kind == EventChange {
			fn(ev)
		}
	})
}

func (g *Grid) emit(ev Event) {
	g.mu.Lock()
	ev.Scale = g.scale
	ev.Scroll = g.scroll
	g.mu.Unlock()

	g.obsMu.Lock()
	fns := make([]func(Event), 0, len(g.observers))
	for i := 0; i < g.nextObs; i++ {
		if fn, ok := g.observers[i]; ok {
			fns = append(fns, fn)
		}
	}
	g.obsMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
