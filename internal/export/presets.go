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
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pagebuilder/internal/domain"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// Output formats.
const (
	FormatPDF = "pdf"
	FormatPNG = "png"
	FormatSVG = "svg"
)

// ErrUnknownFormat is returned for formats other than pdf, png and svg.
var ErrUnknownFormat = errors.New("export: unknown format")

// BatchOptions controls a multi-format export of one page.
//
// Files are written as <OutDir>/<Name>.<format>. OutDir defaults to the
// preset name and Name to "layout".
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: pdf, png, svg; empty means preset defaults
	OutDir  string
	Name    string
	Scale   float64 // raster and svg scale; 0 means preset default
	Labels  *bool   // when set, overrides the preset's default for labels
}

// BatchExport writes scene in every requested format and returns the paths written.
func BatchExport(scene domain.Scene, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	outDir := opt.OutDir
	if outDir == "" {
		outDir = string(opt.Preset)
		if outDir == "" {
			outDir = "."
		}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	name := opt.Name
	if name == "" {
		name = "layout"
	}
	labels := presetLabels(opt.Preset)
	if opt.Labels != nil {
		labels = *opt.Labels
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = presetScale(opt.Preset)
	}

	var written []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		out := filepath.Join(outDir, name+"."+f)
		if err := WriteFile(scene, out, f, FileOptions{Scale: scale, Labels: labels, Guides: opt.Preset == PresetPrint}); err != nil {
			return written, fmt.Errorf("%s: %w", f, err)
		}
		written = append(written, out)
	}
	return written, nil
}

// FileOptions are the settings shared by every format in WriteFile.
type FileOptions struct {
	Scale  float64
	Labels bool
	Guides bool
	Title  string
}

// FormatFromPath returns the format implied by the extension of path.
func FormatFromPath(path string) (string, error) {
	f := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch f {
	case FormatPDF, FormatPNG, FormatSVG:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// WriteFile exports scene to path in format. An empty format is taken from the extension.
func WriteFile(scene domain.Scene, path, format string, opt FileOptions) (err error) {
	if format == "" {
		if format, err = FormatFromPath(path); err != nil {
			return err
		}
	}
	var write func(w *bufio.Writer) error
	switch format {
	case FormatPDF:
		write = func(w *bufio.Writer) error {
			return WireframePDF(scene, w, PDFOptions{Title: opt.Title, Labels: opt.Labels, Guides: opt.Guides})
		}
	case FormatPNG:
		write = func(w *bufio.Writer) error { return WireframePNG(scene, w, PNGOptions{Scale: opt.Scale}) }
	case FormatSVG:
		write = func(w *bufio.Writer) error {
			return WireframeSVG(scene, w, SVGOptions{Scale: opt.Scale, Labels: opt.Labels})
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", format, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", format, cerr)
		}
	}()
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return err
	}
	return bw.Flush()
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{FormatPNG, FormatSVG}
	case PresetPrint:
		return []string{FormatPDF, FormatPNG}
	default:
		return []string{FormatPDF}
	}
}

func presetLabels(p PresetName) bool {
	switch p {
	case PresetWeb:
		return false
	default:
		return true
	}
}

func presetScale(p PresetName) float64 {
	if p == PresetPrint {
		return 2
	}
	return 1
}
