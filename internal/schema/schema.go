/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package schema validates stored layouts against the embedded JSON Schema
// (draft-07) and a few structural rules the schema language cannot express.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"pagebuilder/internal/domain"
)

//go:embed schemas/layout.schema.json
var layoutSchema []byte

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("layout does not conform to schema")

var definitionFor = map[domain.Shape]string{
	domain.ShapeWidgets:  "widgets",
	domain.ShapeTree:     "node",
	domain.ShapeDocument: "document",
}

var (
	compileOnce sync.Once
	compiled    map[domain.Shape]*gojsonschema.Schema
	compileErr  error
)

func compile() {
	var root map[string]any
	if err := json.Unmarshal(layoutSchema, &root); err != nil {
		compileErr = fmt.Errorf("parse embedded schema: %w", err)
		return
	}
	compiled = make(map[domain.Shape]*gojsonschema.Schema, len(definitionFor))
	for shape, def := range definitionFor {
		doc := make(map[string]any, len(root)+1)
		for k, v := range root {
			doc[k] = v
		}
		doc["allOf"] = []any{map[string]any{"$ref": "#/definitions/" + def}}
		b, err := json.Marshal(doc)
		if err != nil {
			compileErr = err
			return
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
		if err != nil {
			compileErr = fmt.Errorf("compile %s schema: %w", def, err)
			return
		}
		compiled[shape] = s
	}
}

// Source returns the embedded schema document.
func Source() []byte { return append([]byte(nil), layoutSchema...) }

// Validate checks data, which may be a widget array, a container tree or a
// full document. The returned error wraps ErrInvalid and joins every violation.
func Validate(data []byte) error {
	compileOnce.Do(compile)
	if compileErr != nil {
		return compileErr
	}
	doc, shape, decErr := domain.DecodeDocument(data)
	if shape == domain.ShapeUnknown {
		return fmt.Errorf("%w: %v", ErrInvalid, decErr)
	}
	result, err := compiled[shape].Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var errs []error
	for _, e := range result.Errors() {
		errs = append(errs, errors.New(e.String()))
	}
	if len(errs) == 0 && decErr != nil {
		errs = append(errs, decErr)
	}
	if len(errs) == 0 {
		errs = structural(doc)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w (%s):\n%w", ErrInvalid, shape, errors.Join(errs...))
	}
	return nil
}

// structural reports rules outside the schema: unique ids and sizes that
// match the children of a split.
func structural(doc domain.Document) []error {
	var errs []error
	seen := map[string]bool{}
	for i, w := range doc.Widgets {
		if seen[w.ID] {
			errs = append(errs, fmt.Errorf("widgets.%d.id: duplicate id %q", i, w.ID))
		}
		seen[w.ID] = true
	}
	if doc.Containers != nil {
		nodes := map[string]bool{}
		errs = walkTree(*doc.Containers, "containers", nodes, errs)
	}
	return errs
}

func walkTree(n domain.NodeJSON, at string, nodes map[string]bool, errs []error) []error {
	if n.NodeID != "" {
		if nodes[n.NodeID] {
			errs = append(errs, fmt.Errorf("%s.nodeId: duplicate id %q", at, n.NodeID))
		}
		nodes[n.NodeID] = true
	}
	if len(n.Sizes) > 0 && len(n.Sizes) != len(n.Children) {
		errs = append(errs, fmt.Errorf("%s.sizes: %d sizes for %d children", at, len(n.Sizes), len(n.Children)))
	}
	for i, c := range n.Children {
		errs = walkTree(c, fmt.Sprintf("%s.children.%d", at, i), nodes, errs)
	}
	return errs
}
