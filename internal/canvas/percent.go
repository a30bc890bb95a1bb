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
	"math"

	"pagebuilder/internal/geom"
)

// Percentages are the persisted truth in percentage mode: every commit
// rewrites all four mirrors from the cells, and a resize rederives the cells
// from the stored percentages. Outside percentage mode the mirrors are kept
// current but cells win.

func (g *Grid) mirrorLocked(it *Item) {
	px := g.pxLocked(it)
	w, h := g.opts.Width, g.opts.Height
	it.XPercent = px.X / w * 100
	it.WPercent = px.W / w * 100
	it.YPercent = px.Y / h * 100
	it.HPercent = px.H / h * 100
}

func (g *Grid) cellsFromPercentLocked(it *Item) {
	cw := g.colWLocked()
	ch := g.opts.CellHeight
	w, h := g.opts.Width, g.opts.Height
	it.X = int(math.Round(it.XPercent / 100 * w / cw))
	it.Y = int(math.Round(it.YPercent / 100 * h / ch))
	if it.WPercent > 0 {
		it.W = int(math.Round(it.WPercent / 100 * w / cw))
	}
	if it.HPercent > 0 {
		it.H = int(math.Round(it.HPercent / 100 * h / ch))
	}
}

// percentToCellsLocked derives cells from the stored percentages. When the
// cells had to be clamped to the grid, the percentages follow the clamped
// cells so the two never disagree.
func (g *Grid) percentToCellsLocked(it *Item) {
	g.cellsFromPercentLocked(it)
	x, y, w, h := it.X, it.Y, it.W, it.H
	g.sanitizeLocked(it)
	if it.X != x || it.Y != y || it.W != w || it.H != h {
		g.mirrorLocked(it)
	}
}

// relayoutLocked brings every item in line with the current pixel size.
func (g *Grid) relayoutLocked() {
	for _, it := range g.items {
		if g.opts.Percentage {
			g.percentToCellsLocked(it)
			continue
		}
		g.sanitizeLocked(it)
		g.mirrorLocked(it)
	}
}

// Resize sets the surface pixel size. It is idempotent: repeated calls with
// the same size change nothing and emit nothing.
func (g *Grid) Resize(width, height float64) {
	g.mu.Lock()
	if !geom.Finite(width) || !geom.Finite(height) || width <= 0 || height <= 0 ||
		(width == g.opts.Width && height == g.opts.Height) {
		g.mu.Unlock()
		return
	}
	g.opts.Width, g.opts.Height = width, height
	g.relayoutLocked()
	g.mu.Unlock()
	g.log.Debug("grid resized", slog.Float64("w", width), slog.Float64("h", height))
	g.emit(Event{Kind: EventViewport})
}

// Size returns the surface pixel size.
func (g *Grid) Size() (width, height float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opts.Width, g.opts.Height
}

// SetPercentage switches percentage mode. Turning it on refreshes the mirrors
// from the current cells.
func (g *Grid) SetPercentage(on bool) {
	g.mu.Lock()
	g.opts.Percentage = on
	for _, it := range g.items {
		g.mirrorLocked(it)
	}
	g.mu.Unlock()
	g.emit(Event{Kind: EventChange})
}
