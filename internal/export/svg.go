/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/preview"
)

// SVGOptions controls SVG export behavior.
// The viewBox matches scene pixels; Scale sets the width/height attributes.
type SVGOptions struct {
	Style  preview.Style
	Scale  float64
	Labels bool
}

// WireframeSVG writes scene as a standalone SVG document to w.
func WireframeSVG(scene domain.Scene, w io.Writer, opt SVGOptions) error {
	if scene.Width <= 0 || scene.Height <= 0 {
		return preview.ErrEmptyScene
	}
	st := styleOrDefault(opt.Style)
	scale := opt.Scale
	if scale <= 0 {
		scale = 1
	}
	pxW := int(math.Round(scene.Width * scale))
	pxH := int(math.Round(scene.Height * scale))

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"0 0 %g %g\">\n", pxW, pxH, scene.Width, scene.Height)
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", scene.Width, scene.Height, svgColor(st.Background))

	rs := svgColor(st.RegionStroke)
	for _, r := range scene.Regions {
		fill := "none"
		if r.Workarea {
			fill = svgColor(st.WorkareaFill)
		}
		wf("  <rect data-node=\"%s\" x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
			escAttr(r.NodeID), r.X, r.Y, r.W, r.H, fill, rs, st.StrokeWidth)
		if l := regionLabel(r); opt.Labels && l != "" {
			wf("  <text x=\"%g\" y=\"%g\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"9\" fill=\"%s\">%s</text>\n", r.X+4, r.Y+12, rs, escText(l))
		}
	}

	ws := svgColor(st.WidgetStroke)
	for _, wd := range scene.Widgets {
		fill := st.WidgetFill
		if wd.Locked {
			fill = st.LockedFill
		}
		wf("  <rect data-widget=\"%s\" x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
			escAttr(wd.ID), wd.X, wd.Y, wd.W, wd.H, svgColor(fill), ws, st.StrokeWidth)
		if opt.Labels {
			wf("  <text x=\"%g\" y=\"%g\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"9\" fill=\"%s\">%s</text>\n", wd.X+4, wd.Y+12, ws, escText(wd.WidgetID))
		}
	}
	wf("</svg>\n")

	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func svgColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func escAttr(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
