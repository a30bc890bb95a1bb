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
	"encoding/json"
	"math"

	"pagebuilder/internal/domain"
)

// Item is one placed widget. Cell coordinates are the live representation;
// the percentage fields mirror them relative to the grid's pixel size.
type Item struct {
	InstanceID string
	WidgetID   string
	Global     bool

	X, Y, W, H int

	XPercent, YPercent, WPercent, HPercent float64

	Layer    int
	Locked   bool
	NoMove   bool
	NoResize bool
	// MinW/MinH override the grid minimum when larger.
	MinW, MinH int

	Code json.RawMessage
}

// Movable reports whether the item accepts drag.
func (it Item) Movable() bool { return !it.Locked && !it.NoMove }

// Resizable reports whether the item accepts resize.
func (it Item) Resizable() bool { return !it.Locked && !it.NoResize }

func (it *Item) clone() Item {
	c := *it
	if it.Code != nil {
		c.Code = append(json.RawMessage(nil), it.Code...)
	}
	return c
}

// Geometry is a partial update; nil fields are left unchanged. Numeric fields
// are floats so corrupt input (NaN, Inf, negatives) can be coerced.
type Geometry struct {
	X, Y, W, H *float64
	Layer      *int
	Locked     *bool
	NoMove     *bool
	NoResize   *bool
}

func Num(v float64) *float64 { return &v }
func Int(v int) *int         { return &v }
func Bool(v bool) *bool      { return &v }

// Cells is the convenience form of a full cell rectangle update.
func Cells(x, y, w, h int) Geometry {
	return Geometry{X: Num(float64(x)), Y: Num(float64(y)), W: Num(float64(w)), H: Num(float64(h))}
}

func (g Geometry) empty() bool {
	return g.X == nil && g.Y == nil && g.W == nil && g.H == nil && g.Layer == nil &&
		g.Locked == nil && g.NoMove == nil && g.NoResize == nil
}

// coerce converts a possibly corrupt float to a non-negative cell count.
func coerce(v float64, def int) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	if v < 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(v))
}

func (g Geometry) applyTo(it *Item) {
	if g.X != nil {
		it.X = coerce(*g.X, 0)
	}
	if g.Y != nil {
		it.Y = coerce(*g.Y, 0)
	}
	if g.W != nil {
		it.W = coerce(*g.W, 1)
	}
	if g.H != nil {
		it.H = coerce(*g.H, 1)
	}
	if g.Layer != nil {
		it.Layer = *g.Layer
	}
	if g.Locked != nil {
		it.Locked = *g.Locked
	}
	if g.NoMove != nil {
		it.NoMove = *g.NoMove
	}
	if g.NoResize != nil {
		it.NoResize = *g.NoResize
	}
}

// ItemFromRecord converts a wire record into an item. Cell fields are used
// when present; percentage-only records get their cells from the grid later.
func ItemFromRecord(r domain.WidgetRecord) Item {
	it := Item{
		InstanceID: r.ID,
		WidgetID:   r.WidgetID,
		Global:     r.Global,
		Layer:      r.Layer,
		Locked:     r.Locked,
		NoMove:     r.NoMove,
		NoResize:   r.NoResize,
		W:          1,
		H:          1,
	}
	if r.Code != nil {
		it.Code = append(json.RawMessage(nil), r.Code...)
	}
	if r.X != nil {
		it.X = coerce(*r.X, 0)
	}
	if r.Y != nil {
		it.Y = coerce(*r.Y, 0)
	}
	if r.W != nil {
		it.W = coerce(*r.W, 1)
	}
	if r.H != nil {
		it.H = coerce(*r.H, 1)
	}
	it.XPercent = pct(r.XPercent)
	it.YPercent = pct(r.YPercent)
	it.WPercent = pct(r.WPercent)
	it.HPercent = pct(r.HPercent)
	return it
}

func pct(p *float64) float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) || *p < 0 {
		return 0
	}
	return *p
}

func hasPercent(r domain.WidgetRecord) bool {
	return r.XPercent != nil || r.YPercent != nil || r.WPercent != nil || r.HPercent != nil
}

// Record converts the item into its wire form. In percentage mode only the
// percentage fields are written, otherwise only the cell fields.
func (it Item) Record(percentage bool) domain.WidgetRecord {
	r := domain.WidgetRecord{
		ID:       it.InstanceID,
		WidgetID: it.WidgetID,
		Global:   it.Global,
		Layer:    it.Layer,
		Locked:   it.Locked,
		NoMove:   it.NoMove,
		NoResize: it.NoResize,
	}
	if it.Code != nil {
		r.Code = append(json.RawMessage(nil), it.Code...)
	}
	if percentage {
		r.XPercent = domain.Num(roundPct(it.XPercent))
		r.YPercent = domain.Num(roundPct(it.YPercent))
		r.WPercent = domain.Num(roundPct(it.WPercent))
		r.HPercent = domain.Num(roundPct(it.HPercent))
		return r
	}
	r.X = domain.Num(float64(it.X))
	r.Y = domain.Num(float64(it.Y))
	r.W = domain.Num(float64(it.W))
	r.H = domain.Num(float64(it.H))
	return r
}

func roundPct(v float64) float64 { return math.Round(v*1e4) / 1e4 }
