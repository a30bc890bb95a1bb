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
	"fmt"
	"image/color"
	"io"

	"github.com/jung-kurt/gofpdf"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/preview"
)

// PDFOptions controls PDF export behavior.
// Units are points (pt): one scene pixel maps to one point, page origin top-left.
// Built-in Helvetica keeps labels vector without embedding fonts.
type PDFOptions struct {
	Style preview.Style // zero value selects preview.DefaultStyle
	Title string
	// Labels prints region labels and widget ids inside their boxes.
	Labels bool
	// Guides draws the page border.
	Guides bool
}

// WireframePDF writes scene as a one-page PDF to w.
func WireframePDF(scene domain.Scene, w io.Writer, opt PDFOptions) error {
	if scene.Width <= 0 || scene.Height <= 0 {
		return preview.ErrEmptyScene
	}
	st := styleOrDefault(opt.Style)
	size := gofpdf.SizeType{Wd: scene.Width, Ht: scene.Height}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size})
	title := opt.Title
	if title == "" {
		title = "Page layout"
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor("pagebuilder", false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 9)
	pdf.AddPageFormat("", size)
	pdf.SetLineWidth(st.StrokeWidth)

	if opt.Guides {
		setDrawColor(pdf, st.RegionStroke)
		pdf.Rect(0, 0, scene.Width, scene.Height, "D")
	}

	for _, r := range scene.Regions {
		setDrawColor(pdf, st.RegionStroke)
		style := "D"
		if r.Workarea {
			setFillColor(pdf, st.WorkareaFill)
			style = "FD"
		}
		pdf.Rect(r.X, r.Y, r.W, r.H, style)
		if opt.Labels {
			if l := regionLabel(r); l != "" {
				pdf.SetTextColor(int(st.RegionStroke.R), int(st.RegionStroke.G), int(st.RegionStroke.B))
				pdf.Text(r.X+4, r.Y+12, l)
			}
		}
	}

	for _, wd := range scene.Widgets {
		fill := st.WidgetFill
		if wd.Locked {
			fill = st.LockedFill
		}
		setFillColor(pdf, fill)
		setDrawColor(pdf, st.WidgetStroke)
		pdf.Rect(wd.X, wd.Y, wd.W, wd.H, "FD")
		if opt.Labels {
			pdf.SetTextColor(int(st.WidgetStroke.R), int(st.WidgetStroke.G), int(st.WidgetStroke.B))
			pdf.Text(wd.X+4, wd.Y+12, wd.WidgetID)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func styleOrDefault(st preview.Style) preview.Style {
	if st == (preview.Style{}) {
		return preview.DefaultStyle()
	}
	if st.StrokeWidth <= 0 {
		st.StrokeWidth = 1
	}
	return st
}

func regionLabel(r domain.SceneRegion) string {
	if r.Label != "" {
		return r.Label
	}
	return r.DesignRef
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
