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

import "strconv"

// Attribute names of the item surface read by rendering and styling code.
const (
	AttrX        = "gs-x"
	AttrY        = "gs-y"
	AttrW        = "gs-w"
	AttrH        = "gs-h"
	AttrLayer    = "gs-layer"
	AttrLocked   = "gs-locked"
	AttrNoMove   = "gs-no-move"
	AttrNoResize = "gs-no-resize"
	AttrXPercent = "gs-x-percent"
	AttrYPercent = "gs-y-percent"
	AttrWPercent = "gs-w-percent"
	AttrHPercent = "gs-h-percent"
	AttrWidget   = "data-widget-id"
	AttrInstance = "data-instance-id"

	// ScaleProperty is the custom property carrying the zoom factor.
	ScaleProperty = "--canvas-scale"
)

// Attrs renders an item as its attribute map. Flags are only present when set.
func (it Item) Attrs() map[string]string {
	m := map[string]string{
		AttrInstance: it.InstanceID,
		AttrWidget:   it.WidgetID,
		AttrX:        strconv.Itoa(it.X),
		AttrY:        strconv.Itoa(it.Y),
		AttrW:        strconv.Itoa(it.W),
		AttrH:        strconv.Itoa(it.H),
		AttrLayer:    strconv.Itoa(it.Layer),
		AttrXPercent: fmtPct(it.XPercent),
		AttrYPercent: fmtPct(it.YPercent),
		AttrWPercent: fmtPct(it.WPercent),
		AttrHPercent: fmtPct(it.HPercent),
	}
	if it.Locked {
		m[AttrLocked] = "true"
	}
	if it.NoMove {
		m[AttrNoMove] = "true"
	}
	if it.NoResize {
		m[AttrNoResize] = "true"
	}
	return m
}

func fmtPct(v float64) string { return strconv.FormatFloat(roundPct(v), 'f', -1, 64) }

// Attrs returns the attribute map of an item.
func (g *Grid) Attrs(id string) (map[string]string, bool) {
	it, ok := g.Item(id)
	if !ok {
		return nil, false
	}
	return it.Attrs(), true
}

// SurfaceStyle returns the custom properties of the canvas surface.
func (g *Grid) SurfaceStyle() map[string]string {
	return map[string]string{ScaleProperty: strconv.FormatFloat(g.Scale(), 'f', -1, 64)}
}
