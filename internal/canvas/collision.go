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
	"sort"
)

func overlaps(a, b *Item) bool {
	return a.X < b.X+b.W && b.X < a.X+a.W && a.Y < b.Y+b.H && b.Y < a.Y+a.H
}

// resolveCollisionsLocked pushes every item overlapping mover down to sit
// directly beneath it, then applies the same push transitively. Items on the
// current push chain are never pushed again and every push strictly
// increases a Y coordinate, so the walk terminates even for cyclic overlap
// graphs. The mover itself never moves.
func (g *Grid) resolveCollisionsLocked(mover *Item) {
	onStack := map[string]bool{mover.InstanceID: true}
	budget := len(g.items)*len(g.items)*8 + 64
	pushed := 0
	var push func(m *Item)
	push = func(m *Item) {
		for _, o := range g.sortedLocked() {
			if budget <= 0 {
				return
			}
			if o == m || o == mover || onStack[o.InstanceID] || !overlaps(m, o) {
				continue
			}
			newY := m.Y + m.H
			if g.opts.Rows > 0 {
				newY = min(newY, g.opts.Rows-o.H)
			}
			if newY <= o.Y {
				continue
			}
			o.Y = newY
			g.mirrorLocked(o)
			budget--
			pushed++
			onStack[o.InstanceID] = true
			push(o)
			delete(onStack, o.InstanceID)
		}
	}
	push(mover)
	if budget <= 0 {
		g.log.Warn("collision chain stopped early", slog.String("mover", mover.InstanceID))
	}

	// settle whatever the chain left behind, top to bottom, so overlaps that
	// predate this change are resolved too
	placed := []*Item{mover}
	for _, o := range g.sortedLocked() {
		if o == mover {
			continue
		}
		y := o.Y
		for moved := true; moved; {
			moved = false
			for _, p := range placed {
				if !overlaps(p, o) {
					continue
				}
				ny := p.Y + p.H
				if g.opts.Rows > 0 && ny+o.H > g.opts.Rows {
					continue
				}
				o.Y = ny
				moved = true
			}
		}
		if o.Y != y {
			g.mirrorLocked(o)
			pushed++
		}
		placed = append(placed, o)
	}
	if pushed > 0 {
		g.log.Debug("pushed overlapping items", slog.String("mover", mover.InstanceID), slog.Int("pushes", pushed))
	}
}

// sortedLocked returns items ordered top to bottom, then left to right.
func (g *Grid) sortedLocked() []*Item {
	out := append([]*Item(nil), g.items...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Overlapping returns pairs of instance ids whose rectangles overlap.
func (g *Grid) Overlapping() [][2]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out [][2]string
	for i := 0; i < len(g.items); i++ {
		for j := i + 1; j < len(g.items); j++ {
			if overlaps(g.items[i], g.items[j]) {
				out = append(out, [2]string{g.items[i].InstanceID, g.items[j].InstanceID})
			}
		}
	}
	return out
}
