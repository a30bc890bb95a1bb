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
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/preview"
)

func sampleScene() domain.Scene {
	return domain.Scene{
		Width: 600, Height: 400,
		Regions: []domain.SceneRegion{
			{NodeID: "hdr", X: 0, Y: 0, W: 600, H: 100, Label: "Header"},
			{NodeID: "main", X: 0, Y: 100, W: 600, H: 300, Workarea: true, DesignRef: "main<1>"},
		},
		Widgets: []domain.SceneWidget{
			{ID: "w1", WidgetID: "clock", X: 50, Y: 150, W: 100, H: 50},
			{ID: "w2", WidgetID: "a&b", X: 300, Y: 150, W: 100, H: 50, Locked: true},
		},
	}
}

func TestWireframePDF_WritesDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := WireframePDF(sampleScene(), &buf, PDFOptions{Labels: true, Guides: true}); err != nil {
		t.Fatalf("WireframePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
	if err := WireframePDF(domain.Scene{}, &buf, PDFOptions{}); !errors.Is(err, preview.ErrEmptyScene) {
		t.Fatalf("empty scene err = %v", err)
	}
}

func TestWireframeSVG_EscapesAndMarksWorkarea(t *testing.T) {
	var buf bytes.Buffer
	if err := WireframeSVG(sampleScene(), &buf, SVGOptions{Labels: true, Scale: 2}); err != nil {
		t.Fatalf("WireframeSVG: %v", err)
	}
	s := buf.String()
	for _, want := range []string{
		`width="1200px" height="800px" viewBox="0 0 600 400"`,
		`data-node="main"`,
		`fill="#e8f0fe"`,
		`>a&amp;b</text>`,
		`>main&lt;1&gt;</text>`,
		`data-widget="w2"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	if strings.Count(s, "<rect") != 5 {
		t.Errorf("expected background + 2 regions + 2 widgets, got %d rects", strings.Count(s, "<rect"))
	}
}

func TestWireframePNG_Size(t *testing.T) {
	var buf bytes.Buffer
	if err := WireframePNG(sampleScene(), &buf, PNGOptions{Scale: 0.5}); err != nil {
		t.Fatalf("WireframePNG: %v", err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 300 || cfg.Height != 200 {
		t.Fatalf("png %dx%d, want 300x200", cfg.Width, cfg.Height)
	}
}

func TestBatchExport_Presets(t *testing.T) {
	cases := []struct {
		preset PresetName
		want   []string
	}{
		{PresetWeb, []string{"layout.png", "layout.svg"}},
		{PresetPrint, []string{"layout.pdf", "layout.png"}},
	}
	for _, c := range cases {
		t.Run(string(c.preset), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), string(c.preset))
			paths, err := BatchExport(sampleScene(), BatchOptions{Preset: c.preset, OutDir: dir})
			if err != nil {
				t.Fatalf("BatchExport: %v", err)
			}
			if len(paths) != len(c.want) {
				t.Fatalf("paths = %v", paths)
			}
			for i, p := range paths {
				if filepath.Base(p) != c.want[i] {
					t.Fatalf("path %d = %s, want %s", i, p, c.want[i])
				}
				st, err := os.Stat(p)
				if err != nil || st.Size() == 0 {
					t.Fatalf("missing or empty %s: %v", p, err)
				}
			}
		})
	}
}

func TestWriteFile_FormatFromExtension(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFile(sampleScene(), filepath.Join(dir, "page.SVG"), "", FileOptions{}); err != nil {
		t.Fatalf("WriteFile svg: %v", err)
	}
	if err := WriteFile(sampleScene(), filepath.Join(dir, "page.gif"), "", FileOptions{}); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("gif err = %v, want ErrUnknownFormat", err)
	}
	if _, err := BatchExport(sampleScene(), BatchOptions{OutDir: dir, Formats: []string{"cbz"}}); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("cbz err = %v, want ErrUnknownFormat", err)
	}
}
