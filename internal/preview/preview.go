/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package preview renders page scenes to wireframe rasters and thumbnail
// data URLs.
package preview

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"

	"pagebuilder/internal/domain"
	applog "pagebuilder/internal/log"
)

const (
	// ThumbWidth is the default thumbnail width in pixels.
	ThumbWidth = 320
	// DataURLPrefix prefixes every URL returned by the Rasterizer.
	DataURLPrefix = "data:image/png;base64,"
	// maxRenderSide bounds the intermediate raster before downsampling.
	maxRenderSide = 4096
)

// ErrEmptyScene is returned when a scene has no drawable area.
var ErrEmptyScene = errors.New("preview: scene has no area")

// Style holds wireframe colors shared by raster and vector outputs.
type Style struct {
	Background   color.RGBA
	RegionStroke color.RGBA
	WorkareaFill color.RGBA
	WidgetStroke color.RGBA
	WidgetFill   color.RGBA
	LockedFill   color.RGBA
	// StrokeWidth is used by vector outputs; rasters always draw 1px.
	StrokeWidth float64
}

// DefaultStyle returns the wireframe palette.
func DefaultStyle() Style {
	return Style{
		Background:   color.RGBA{255, 255, 255, 255},
		RegionStroke: color.RGBA{96, 96, 96, 255},
		WorkareaFill: color.RGBA{232, 240, 254, 255},
		WidgetStroke: color.RGBA{26, 115, 232, 255},
		WidgetFill:   color.RGBA{210, 227, 252, 255},
		LockedFill:   color.RGBA{220, 220, 220, 255},
		StrokeWidth:  1,
	}
}

// Render draws scene at scale into a new image. Regions are drawn first,
// widgets on top in scene order.
func Render(scene domain.Scene, st Style, scale float64) (*image.RGBA, error) {
	if scale <= 0 {
		scale = 1
	}
	pixW := int(math.Round(scene.Width * scale))
	pixH := int(math.Round(scene.Height * scale))
	if pixW <= 0 || pixH <= 0 {
		return nil, ErrEmptyScene
	}
	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: st.Background}, image.Point{}, draw.Src)

	px := func(x, y, w, h float64) (int, int, int, int) {
		x0 := int(math.Round(x * scale))
		y0 := int(math.Round(y * scale))
		return x0, y0, x0 + int(math.Round(w*scale)) - 1, y0 + int(math.Round(h*scale)) - 1
	}
	for _, r := range scene.Regions {
		x0, y0, x1, y1 := px(r.X, r.Y, r.W, r.H)
		if r.Workarea {
			fillRect(img, x0, y0, x1, y1, st.WorkareaFill)
		}
		strokeRect(img, x0, y0, x1, y1, st.RegionStroke)
	}
	for _, w := range scene.Widgets {
		x0, y0, x1, y1 := px(w.X, w.Y, w.W, w.H)
		fill := st.WidgetFill
		if w.Locked {
			fill = st.LockedFill
		}
		fillRect(img, x0, y0, x1, y1, fill)
		strokeRect(img, x0, y0, x1, y1, st.WidgetStroke)
	}
	return img, nil
}

// Rasterizer captures thumbnails of scenes as PNG data URLs.
type Rasterizer struct {
	// Width of the produced thumbnail; scenes narrower than this keep their size.
	Width int
	Style Style
	log   *slog.Logger
}

var _ domain.RasterCapturer = (*Rasterizer)(nil)

// NewRasterizer returns a Rasterizer with ThumbWidth and DefaultStyle.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{Width: ThumbWidth, Style: DefaultStyle(), log: applog.WithComponent("preview")}
}

// Capture renders scene, downsamples it with Catmull-Rom and returns a PNG data URL.
func (r *Rasterizer) Capture(scene domain.Scene) (string, error) {
	b, err := r.PNG(scene)
	if err != nil {
		return "", err
	}
	return DataURLPrefix + base64.StdEncoding.EncodeToString(b), nil
}

// PNG renders the thumbnail and returns the encoded PNG bytes.
func (r *Rasterizer) PNG(scene domain.Scene) ([]byte, error) {
	width := r.Width
	if width <= 0 {
		width = ThumbWidth
	}
	// Render at most twice the target width so the filter has detail to work with.
	scale := 1.0
	if side := math.Max(scene.Width, scene.Height); side > maxRenderSide {
		scale = maxRenderSide / side
	}
	if target := float64(2*width) / scene.Width; scene.Width > 0 && target < scale {
		scale = target
	}
	full, err := Render(scene, r.Style, scale)
	if err != nil {
		return nil, err
	}
	src := full.Bounds()
	tw := min(width, int(math.Round(scene.Width)))
	if tw <= 0 {
		return nil, ErrEmptyScene
	}
	th := max(1, int(math.Round(scene.Height*float64(tw)/scene.Width)))
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), full, src, xdraw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// CaptureRaster implements domain.RasterCapturer. Failures are logged and
// reported as "".
func (r *Rasterizer) CaptureRaster(scene domain.Scene) string {
	u, err := r.Capture(scene)
	if err != nil {
		lg := r.log
		if lg == nil {
			lg = applog.WithComponent("preview")
		}
		lg.Warn("raster capture failed", slog.Any("err", err))
		return ""
	}
	return u
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 || y1 < y0 {
		return
	}
	b := img.Bounds()
	for x := max(x0, b.Min.X); x <= min(x1, b.Max.X-1); x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := max(y0, b.Min.Y); y <= min(y1, b.Max.Y-1); y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	r := image.Rect(x0, y0, x1+1, y1+1).Intersect(img.Bounds())
	draw.Draw(img, r, &image.Uniform{C: col}, image.Point{}, draw.Src)
}
