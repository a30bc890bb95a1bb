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
	"image/png"
	"io"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/preview"
)

// PNGOptions controls PNG export behavior.
type PNGOptions struct {
	Style preview.Style
	// Scale multiplies scene pixels; 0 means 1.
	Scale float64
}

// WireframePNG renders scene at full size and writes it as PNG to w.
func WireframePNG(scene domain.Scene, w io.Writer, opt PNGOptions) error {
	img, err := preview.Render(scene, styleOrDefault(opt.Style), opt.Scale)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
