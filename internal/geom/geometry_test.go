/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"
	"testing"
)

func TestRectContainsAndInset(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	in := r.Inset(5, 5)
	if in.X != 15 || in.Y != 25 || in.W != 90 || in.H != 40 {
		t.Fatalf("unexpected inset: %+v", in)
	}
}

func TestRectOverlaps(t *testing.T) {
	a := R(0, 0, 10, 10)
	cases := []struct {
		b    Rect
		want bool
	}{
		{R(5, 5, 10, 10), true},
		{R(10, 0, 5, 5), false}, // touching right edge
		{R(0, 10, 5, 5), false}, // touching bottom edge
		{R(2, 2, 1, 1), true},
		{R(-5, -5, 4, 4), false},
	}
	for _, c := range cases {
		if got := a.Overlaps(c.b); got != c.want {
			t.Fatalf("Overlaps(%+v) = %v, want %v", c.b, got, c.want)
		}
		if got := c.b.Overlaps(a); got != c.want {
			t.Fatalf("Overlaps is not symmetric for %+v", c.b)
		}
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(Pt{1, 1})
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
	inv, ok := m.Invert()
	if !ok {
		t.Fatalf("expected invertible")
	}
	back := inv.Apply(p)
	if math.Abs(back.X-1) > 1e-9 || math.Abs(back.Y-1) > 1e-9 {
		t.Fatalf("inverse did not round trip: %+v", back)
	}
	if _, ok := Scale(0, 1).Invert(); ok {
		t.Fatalf("singular matrix must not invert")
	}
}

func TestSnapToCell_Idempotent(t *testing.T) {
	cell := 37.5
	for _, off := range []float64{0, 12, 18.7, 19, 100, 374.9, 1000} {
		n := SnapToCell(off, cell)
		if again := SnapToCell(CellToPx(n, cell), cell); again != n {
			t.Fatalf("snap not idempotent for %v: %d then %d", off, n, again)
		}
	}
	if SnapToCell(math.NaN(), 10) != 0 || SnapToCell(50, 0) != 0 || SnapToCell(50, math.Inf(1)) != 0 {
		t.Fatalf("degenerate inputs must snap to 0")
	}
	if SnapToCell(14, 10) != 1 || SnapToCell(15, 10) != 2 {
		t.Fatalf("nearest-cell rounding broken")
	}
}

func TestRelativeRect_ScrollAndScale(t *testing.T) {
	container := R(100, 50, 800, 600)
	el := R(300, 150, 100, 40) // client rect at scale 2
	got := RelativeRect(el, container, Pt{20, 10}, 2)
	want := Rect{X: 110, Y: 55, W: 50, H: 20}
	if got != want {
		t.Fatalf("RelativeRect = %+v, want %+v", got, want)
	}
	// invalid scale behaves like 1
	if g := RelativeRect(el, container, Pt{}, 0); g.W != 100 {
		t.Fatalf("zero scale should fall back to 1, got %+v", g)
	}
}

func TestViewTransformMatchesRelativeRect(t *testing.T) {
	origin, scroll, scale := Pt{100, 50}, Pt{20, 10}, 1.5
	logical := R(40, 60, 30, 20)
	client := ViewTransform(origin, scroll, scale).ApplyRect(logical)
	back := RelativeRect(client, Rect{X: origin.X, Y: origin.Y}, scroll, scale)
	if math.Abs(back.X-logical.X) > 1e-9 || math.Abs(back.Y-logical.Y) > 1e-9 || math.Abs(back.W-logical.W) > 1e-9 {
		t.Fatalf("view transform and RelativeRect disagree: %+v vs %+v", back, logical)
	}
}

func TestClampAndRound(t *testing.T) {
	if Clamp(math.NaN(), 1, 5) != 1 || Clamp(9, 1, 5) != 5 || Clamp(3, 1, 5) != 3 {
		t.Fatalf("Clamp broken")
	}
	if ClampInt(-2, 0, 3) != 0 || ClampInt(7, 0, 3) != 3 {
		t.Fatalf("ClampInt broken")
	}
	if FloatRound(1.23456, 2) != 1.23 {
		t.Fatalf("FloatRound broken")
	}
	if R(0, 0, -1, 5).Area() != 0 || R(0, 0, 2, 5).Area() != 10 {
		t.Fatalf("Area broken")
	}
	u := R(0, 0, 1, 1).Union(R(2, 3, 1, 1))
	if u != (Rect{0, 0, 3, 4}) {
		t.Fatalf("Union = %+v", u)
	}
}
