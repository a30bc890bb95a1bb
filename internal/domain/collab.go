/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is returned by a LayoutStore when no layout exists for a key.
var ErrNotFound = errors.New("layout not found")

// LayoutStore persists layout JSON by key.
type LayoutStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// WidgetDefinition is the externally owned description of a widget type.
type WidgetDefinition struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata,omitempty"`
	CodeURL  string            `json:"codeUrl,omitempty"`
	// DefaultW/DefaultH are the initial size in cells; zero means 1.
	DefaultW int `json:"defaultW,omitempty"`
	DefaultH int `json:"defaultH,omitempty"`
}

// WidgetResolver resolves widget definitions by id.
type WidgetResolver interface {
	ResolveWidgetDefinition(id string) (WidgetDefinition, bool)
}

// StaticWidgets is a map-backed WidgetResolver.
type StaticWidgets map[string]WidgetDefinition

func (s StaticWidgets) ResolveWidgetDefinition(id string) (WidgetDefinition, bool) {
	d, ok := s[id]
	return d, ok
}

// IDs returns the known widget ids in sorted order.
func (s StaticWidgets) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SceneRegion is a laid-out container leaf in pixel space.
type SceneRegion struct {
	NodeID    string
	X, Y      float64
	W, H      float64
	Workarea  bool
	DesignRef string
	Label     string
}

// SceneWidget is a placed widget in pixel space (page coordinates).
type SceneWidget struct {
	ID       string
	WidgetID string
	X, Y     float64
	W, H     float64
	Locked   bool
}

// Scene is the flattened, render-ready view of a page used for previews and exports.
type Scene struct {
	Width, Height float64
	Regions       []SceneRegion
	Widgets       []SceneWidget
}

// RasterCapturer renders a scene to an image data URL. It is best effort and
// returns "" on failure.
type RasterCapturer interface {
	CaptureRaster(scene Scene) string
}

// PreviewSink stores a captured thumbnail for a layout key.
type PreviewSink interface {
	SavePreview(ctx context.Context, key, dataURL string) error
}
