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
	"testing"

	"pagebuilder/internal/domain"
)

func percentMode(o *Options) { o.Percentage = true }

func TestPercentageRecordsCarryOnlyPercentages(t *testing.T) {
	g, _, _ := newGrid(t, percentMode)
	g.MakeWidget(Item{InstanceID: "a", WidgetID: "x", X: 3, Y: 4, W: 6, H: 2})
	recs := g.Records()
	r := recs[0]
	if r.X != nil || r.XPercent == nil {
		t.Fatalf("percentage record = %+v", r)
	}
	if *r.XPercent != 25 || *r.YPercent != 25 || *r.WPercent != 50 || *r.HPercent != 12.5 {
		t.Fatalf("percentages = %v %v %v %v", *r.XPercent, *r.YPercent, *r.WPercent, *r.HPercent)
	}
}

func TestPercentageResizeRederivesCells(t *testing.T) {
	g, _, rec := newGrid(t, percentMode)
	g.MakeWidget(Item{InstanceID: "a", WidgetID: "x", X: 0, Y: 4, W: 6, H: 4})
	rec.events = nil
	g.Resize(1200, 1600) // twice as tall: y and h double in cells
	a, _ := g.Item("a")
	if a.Y != 8 || a.H != 8 || a.X != 0 || a.W != 6 {
		t.Fatalf("after resize = %+v", a)
	}
	if a.YPercent != 25 || a.HPercent != 25 {
		t.Fatalf("stored percentages drifted: %v %v", a.YPercent, a.HPercent)
	}
	if rec.count(EventChange) != 0 {
		t.Fatalf("resize must not report a layout change: %v", rec.kinds())
	}
	// resizing back restores the original cells exactly
	g.Resize(1200, 800)
	if a, _ = g.Item("a"); a.Y != 4 || a.H != 4 {
		t.Fatalf("after resize back = %+v", a)
	}
}

func TestCellModeResizeKeepsCells(t *testing.T) {
	g, _, _ := newGrid(t, nil)
	g.MakeWidget(Item{InstanceID: "a", WidgetID: "x", X: 0, Y: 4, W: 6, H: 4})
	g.Resize(1200, 1600)
	a, _ := g.Item("a")
	if a.Y != 4 || a.H != 4 || a.YPercent != 12.5 {
		t.Fatalf("cell mode resize = %+v", a)
	}
}

func TestPercentageLoadUsesSavedGridSize(t *testing.T) {
	g, _, _ := newGrid(t, percentMode)
	recs := []domain.WidgetRecord{{ID: "a", WidgetID: "x",
		XPercent: domain.Num(50), YPercent: domain.Num(10), WPercent: domain.Num(25), HPercent: domain.Num(20)}}
	g.Load(recs, &domain.GridMeta{Width: 600, Height: 400, Columns: 12, Percentage: true})
	a, ok := g.Item("a")
	if !ok {
		t.Fatalf("item not loaded")
	}
	// current grid 1200x800, 100px columns, 50px rows
	if a.X != 6 || a.W != 3 || a.Y != 2 || a.H != 3 {
		t.Fatalf("loaded cells = %+v", a)
	}
	if a.XPercent != 50 || a.HPercent != 20 {
		t.Fatalf("percentages not preserved: %+v", a)
	}
}

func TestSetPercentageRefreshesMirrors(t *testing.T) {
	g, _, _ := newGrid(t, nil)
	g.MakeWidget(Item{InstanceID: "a", WidgetID: "x", X: 6, Y: 0, W: 3, H: 1})
	g.SetPercentage(true)
	r := g.Records()[0]
	if r.XPercent == nil || *r.XPercent != 50 || *r.WPercent != 25 {
		t.Fatalf("record after switching = %+v", r)
	}
	if m := g.Meta(); !m.Percentage || m.Width != 1200 {
		t.Fatalf("meta = %+v", m)
	}
}

func TestPercentageOverflowClampsMirrors(t *testing.T) {
	g, _, _ := newGrid(t, percentMode)
	recs := []domain.WidgetRecord{{ID: "a", WidgetID: "x",
		XPercent: domain.Num(90), YPercent: domain.Num(0), WPercent: domain.Num(50), HPercent: domain.Num(12.5)}}
	g.Load(recs, nil)
	a, _ := g.Item("a")
	if a.X != 6 || a.W != 6 {
		t.Fatalf("cells = x%d w%d, want clamped to x6 w6", a.X, a.W)
	}
	if a.XPercent != 50 || a.WPercent != 50 {
		t.Fatalf("percentages = x%v w%v, want 50/50 after the clamp", a.XPercent, a.WPercent)
	}
	r := g.Records()[0]
	if *r.XPercent+*r.WPercent > 100 {
		t.Fatalf("persisted record overflows the grid: x%v w%v", *r.XPercent, *r.WPercent)
	}
	// a later resize keeps the clamped placement
	g.Resize(2400, 800)
	if a, _ = g.Item("a"); a.X != 6 || a.W != 6 || a.XPercent != 50 {
		t.Fatalf("after resize = %+v", a)
	}
}
