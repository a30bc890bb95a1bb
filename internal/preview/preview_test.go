/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package preview

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"pagebuilder/internal/domain"
	applog "pagebuilder/internal/log"
)

func sampleScene() domain.Scene {
	return domain.Scene{
		Width: 1200, Height: 800,
		Regions: []domain.SceneRegion{
			{NodeID: "top", X: 0, Y: 0, W: 1200, H: 200},
			{NodeID: "main", X: 0, Y: 200, W: 1200, H: 600, Workarea: true},
		},
		Widgets: []domain.SceneWidget{
			{ID: "a", WidgetID: "clock", X: 100, Y: 300, W: 200, H: 100},
			{ID: "b", WidgetID: "note", X: 600, Y: 300, W: 200, H: 100, Locked: true},
		},
	}
}

func TestRender_DrawsRegionsAndWidgets(t *testing.T) {
	st := DefaultStyle()
	img, err := Render(sampleScene(), st, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1200 || b.Dy() != 800 {
		t.Fatalf("bounds = %v", b)
	}
	cases := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"background of plain region", 600, 100, st.Background},
		{"workarea fill", 50, 700, st.WorkareaFill},
		{"widget fill", 200, 350, st.WidgetFill},
		{"widget border", 100, 350, st.WidgetStroke},
		{"locked widget", 700, 350, st.LockedFill},
		{"region border", 0, 500, st.RegionStroke},
	}
	for _, c := range cases {
		if got := img.RGBAAt(c.x, c.y); got != c.want {
			t.Errorf("%s at (%d,%d) = %v, want %v", c.name, c.x, c.y, got, c.want)
		}
	}
}

func TestRender_EmptyScene(t *testing.T) {
	if _, err := Render(domain.Scene{}, DefaultStyle(), 1); !errors.Is(err, ErrEmptyScene) {
		t.Fatalf("err = %v, want ErrEmptyScene", err)
	}
}

func TestRasterizer_CaptureThumbnail(t *testing.T) {
	r := NewRasterizer()
	u, err := r.Capture(sampleScene())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !strings.HasPrefix(u, DataURLPrefix) {
		t.Fatalf("not a png data url: %.40s", u)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(u, DataURLPrefix))
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if cfg.Width != ThumbWidth || cfg.Height != 213 {
		t.Fatalf("thumbnail %dx%d, want %dx213", cfg.Width, cfg.Height, ThumbWidth)
	}
}

func TestRasterizer_SmallSceneKeepsSize(t *testing.T) {
	r := NewRasterizer()
	b, err := r.PNG(domain.Scene{Width: 100, Height: 50})
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Fatalf("size %dx%d, want 100x50", cfg.Width, cfg.Height)
	}
}

func TestRasterizer_FailureIsEmptyString(t *testing.T) {
	r := &Rasterizer{Style: DefaultStyle(), log: applog.Discard()}
	if got := r.CaptureRaster(domain.Scene{Width: 0, Height: 10}); got != "" {
		t.Fatalf("CaptureRaster = %q, want empty", got)
	}
}
