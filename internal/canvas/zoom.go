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
	"math"

	"pagebuilder/internal/geom"
)

// WheelZoomStep scales the wheel delta into a zoom factor.
const WheelZoomStep = 0.0015

// Scale returns the current zoom factor.
func (g *Grid) Scale() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale
}

// Scroll returns the current scroll offset of the viewport.
func (g *Grid) Scroll() geom.Pt {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scroll
}

// Viewport returns the client rect of the scroll container.
func (g *Grid) Viewport() geom.Rect {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.viewport
}

// SetViewport updates the client rect of the scroll container, e.g. from a
// resize observer. Repeating the same rect is a no-op.
func (g *Grid) SetViewport(r geom.Rect) {
	g.mu.Lock()
	if r == g.viewport || !geom.Finite(r.W) || !geom.Finite(r.H) || r.W < 0 || r.H < 0 {
		g.mu.Unlock()
		return
	}
	g.viewport = r
	g.scroll = g.clampScrollLocked(g.scroll)
	g.mu.Unlock()
	g.emit(Event{Kind: EventViewport})
}

// SetScroll moves the viewport; the offset is clamped to the content.
func (g *Grid) SetScroll(p geom.Pt) {
	g.mu.Lock()
	next := g.clampScrollLocked(p)
	if next == g.scroll {
		g.mu.Unlock()
		return
	}
	g.scroll = next
	g.mu.Unlock()
	g.emit(Event{Kind: EventScroll})
}

// SetScale sets the zoom factor, clamped to [MinScale, MaxScale]. With an
// anchor (viewport-local point, e.g. the cursor) the content under the anchor
// stays fixed; without one the viewport center stays fixed. NaN is ignored.
func (g *Grid) SetScale(factor float64, anchor *geom.Pt) {
	if math.IsNaN(factor) {
		return
	}
	next := geom.Clamp(factor, MinScale, MaxScale)
	g.mu.Lock()
	prev := g.scale
	if next == prev {
		g.mu.Unlock()
		return
	}
	a := geom.Pt{X: g.viewport.W / 2, Y: g.viewport.H / 2}
	if anchor != nil && geom.Finite(anchor.X) && geom.Finite(anchor.Y) {
		a = *anchor
	}
	content := geom.Pt{X: (g.scroll.X + a.X) / prev, Y: (g.scroll.Y + a.Y) / prev}
	g.scale = next
	g.scroll = g.clampScrollLocked(geom.Pt{X: content.X*next - a.X, Y: content.Y*next - a.Y})
	g.mu.Unlock()
	g.emit(Event{Kind: EventZoom})
}

// Wheel handles a wheel event at client point at. With ctrl held it zooms
// around the pointer, otherwise it scrolls.
func (g *Grid) Wheel(deltaX, deltaY float64, ctrl bool, at geom.Pt) {
	if !geom.Finite(deltaX) || !geom.Finite(deltaY) {
		return
	}
	if ctrl {
		vp := g.Viewport()
		local := at.Sub(vp.Min())
		g.SetScale(g.Scale()*math.Exp(-deltaY*WheelZoomStep), &local)
		return
	}
	g.SetScroll(g.Scroll().Add(geom.Pt{X: deltaX, Y: deltaY}))
}

// ContentSize is the scaled size of the scrollable content.
func (g *Grid) ContentSize() (w, h float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.contentSizeLocked()
}

func (g *Grid) contentSizeLocked() (w, h float64) {
	h = g.opts.Height
	for _, it := range g.items {
		h = max(h, float64(it.Y+it.H)*g.opts.CellHeight)
	}
	return g.opts.Width * g.scale, h * g.scale
}

func (g *Grid) clampScrollLocked(p geom.Pt) geom.Pt {
	cw, ch := g.contentSizeLocked()
	maxX := max(0, cw-g.viewport.W)
	maxY := max(0, ch-g.viewport.H)
	return geom.Pt{X: geom.Clamp(p.X, 0, maxX), Y: geom.Clamp(p.Y, 0, maxY)}
}
