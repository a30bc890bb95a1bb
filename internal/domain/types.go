/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the persisted layout wire format shared by the canvas,
// the container tree, storage and the HTTP backend. Field names follow the
// JSON produced by existing page designs so stored layouts stay readable.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Node types and orientations of the container tree.
const (
	TypeLeaf  = "leaf"
	TypeSplit = "split"

	// Horizontal stacks children top-to-bottom.
	Horizontal = "horizontal"
	// Vertical places children side-by-side.
	Vertical = "vertical"
)

// WidgetRecord is one placed widget in the free-form canvas.
// Either the cell form (x,y,w,h) or the percentage form is present; when both
// are, the percentage form wins if the grid runs in percentage mode.
type WidgetRecord struct {
	ID       string   `json:"id"`
	WidgetID string   `json:"widgetId"`
	Global   bool     `json:"global,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	W        *float64 `json:"w,omitempty"`
	H        *float64 `json:"h,omitempty"`
	XPercent *float64 `json:"xPercent,omitempty"`
	YPercent *float64 `json:"yPercent,omitempty"`
	WPercent *float64 `json:"wPercent,omitempty"`
	HPercent *float64 `json:"hPercent,omitempty"`
	Layer    int      `json:"layer,omitempty"`
	Locked   bool     `json:"locked,omitempty"`
	NoMove   bool     `json:"noMove,omitempty"`
	NoResize bool     `json:"noResize,omitempty"`
	// Code is the opaque HTML/CSS/JS bundle of the rendering collaborator.
	Code json.RawMessage `json:"code,omitempty"`
}

// NodeJSON is the serialized container tree.
type NodeJSON struct {
	Type        string     `json:"type,omitempty"`
	Orientation string     `json:"orientation,omitempty"`
	NodeID      string     `json:"nodeId,omitempty"`
	Workarea    bool       `json:"workarea"`
	DesignRef   string     `json:"designRef,omitempty"`
	Label       string     `json:"label,omitempty"`
	Children    []NodeJSON `json:"children,omitempty"`
	Sizes       []float64  `json:"sizes,omitempty"`
}

// GridMeta records the pixel size of the grid at save time. Percentage
// layouts need it to reproduce exact placement on load.
type GridMeta struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Columns    int     `json:"columns"`
	Rows       int     `json:"rows,omitempty"`
	Percentage bool    `json:"percentage,omitempty"`
}

// Document is a complete page layout: the structural tree plus the widgets
// placed on the workarea canvas.
type Document struct {
	Containers *NodeJSON      `json:"containers,omitempty"`
	Grid       *GridMeta      `json:"grid,omitempty"`
	Widgets    []WidgetRecord `json:"widgets"`
}

// Shape of a stored payload as detected by DecodeDocument.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeWidgets
	ShapeTree
	ShapeDocument
)

func (s Shape) String() string {
	switch s {
	case ShapeWidgets:
		return "widgets"
	case ShapeTree:
		return "tree"
	case ShapeDocument:
		return "document"
	default:
		return "unknown"
	}
}

var ErrEmptyLayout = errors.New("empty layout payload")

// DecodeDocument accepts a bare widget array, a bare container tree, or a
// full document and returns it as a Document.
func DecodeDocument(data []byte) (Document, Shape, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Document{}, ShapeUnknown, ErrEmptyLayout
	}
	switch data[0] {
	case '[':
		var ws []WidgetRecord
		if err := json.Unmarshal(data, &ws); err != nil {
			return Document{}, ShapeWidgets, fmt.Errorf("decode widgets: %w", err)
		}
		return Document{Widgets: ws}, ShapeWidgets, nil
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return Document{}, ShapeUnknown, fmt.Errorf("decode layout: %w", err)
		}
		if isTree(probe) {
			var n NodeJSON
			if err := json.Unmarshal(data, &n); err != nil {
				return Document{}, ShapeTree, fmt.Errorf("decode tree: %w", err)
			}
			return Document{Containers: &n}, ShapeTree, nil
		}
		var d Document
		if err := json.Unmarshal(data, &d); err != nil {
			return Document{}, ShapeDocument, fmt.Errorf("decode document: %w", err)
		}
		return d, ShapeDocument, nil
	default:
		return Document{}, ShapeUnknown, fmt.Errorf("decode layout: unexpected leading byte %q", data[0])
	}
}

func isTree(probe map[string]json.RawMessage) bool {
	if _, ok := probe["containers"]; ok {
		return false
	}
	if _, ok := probe["widgets"]; ok {
		return false
	}
	for _, k := range []string{"type", "children", "nodeId", "orientation", "workarea"} {
		if _, ok := probe[k]; ok {
			return true
		}
	}
	return false
}

// Num returns a pointer to v, for the optional numeric fields of WidgetRecord.
func Num(v float64) *float64 { return &v }
