/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"
)

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestPreviewsPutGetAndEvict(t *testing.T) {
	s := openStore(t)
	s.SetPreviewCap(100)
	ctx := context.Background()

	for _, w := range []int{100, 200, 300} {
		if err := s.PutPreview(ctx, "home", PreviewKindThumb, w, w, make([]byte, 40)); err != nil {
			t.Fatalf("put %d: %v", w, err)
		}
		time.Sleep(2 * time.Millisecond) // distinct access times
	}
	total, err := s.TotalPreviewBytes(ctx)
	if err != nil || total > 100 {
		t.Fatalf("total = %d, %v; want <= 100", total, err)
	}
	// the oldest variant is gone, the newest two remain
	if b, _ := s.GetPreview(ctx, "home", PreviewKindThumb, 100, 100); b != nil {
		t.Fatalf("oldest preview should have been evicted")
	}
	if b, _ := s.GetPreview(ctx, "home", PreviewKindThumb, 200, 200); b == nil {
		t.Fatalf("200x200 preview missing")
	}
	time.Sleep(2 * time.Millisecond)
	// 200 was just touched, so 300 is now least recently used
	if err := s.PutPreview(ctx, "home", PreviewKindThumb, 400, 400, make([]byte, 40)); err != nil {
		t.Fatalf("put D: %v", err)
	}
	if b, _ := s.GetPreview(ctx, "home", PreviewKindThumb, 300, 300); b != nil {
		t.Fatalf("least recently used preview survived")
	}
	if b, _ := s.GetPreview(ctx, "home", PreviewKindThumb, 200, 200); b == nil {
		t.Fatalf("recently used preview was evicted")
	}
	if err := s.PutPreview(ctx, "home", "bogus", 1, 1, nil); err == nil {
		t.Fatalf("invalid kind accepted")
	}
}

func TestGetOrCreatePreview(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	calls := 0
	gen := func(context.Context) ([]byte, error) { calls++; return []byte("abcd"), nil }
	b, err := s.GetOrCreatePreview(ctx, "k", PreviewKindGeom, 0, 0, gen)
	if err != nil || string(b) != "abcd" {
		t.Fatalf("getOrCreate = %q, %v", b, err)
	}
	if _, err = s.GetOrCreatePreview(ctx, "k", PreviewKindGeom, 0, 0, gen); err != nil {
		t.Fatalf("getOrCreate 2: %v", err)
	}
	if calls != 1 {
		t.Fatalf("generator should be called once, got %d", calls)
	}
}

func TestSavePreviewFromDataURL(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if err := s.SavePreview(ctx, "home", pngDataURL(t, 32, 18)); err != nil {
		t.Fatalf("SavePreview: %v", err)
	}
	b, err := s.GetPreview(ctx, "home", PreviewKindThumb, 32, 18)
	if err != nil || b == nil {
		t.Fatalf("stored preview not found by its decoded size: %v", err)
	}
	latest, err := s.LatestPreview(ctx, "home")
	if err != nil || !bytes.Equal(latest, b) {
		t.Fatalf("LatestPreview mismatch: %v", err)
	}
	for _, bad := range []string{"", "data:text/plain;base64,aGk=", "data:image/png;base64,!!!", "data:image/png;base64,aGVsbG8="} {
		if err := s.SavePreview(ctx, "home", bad); !errors.Is(err, ErrBadDataURL) {
			t.Errorf("SavePreview(%q) = %v, want ErrBadDataURL", bad, err)
		}
	}
}

func TestMaxPreviewsBytesFromEnv(t *testing.T) {
	t.Setenv(EnvPreviewsMaxBytes, "")
	if MaxPreviewsBytesFromEnv() != 64*1024*1024 {
		t.Fatalf("default cap wrong")
	}
	t.Setenv(EnvPreviewsMaxBytes, "2048")
	if MaxPreviewsBytesFromEnv() != 2048 {
		t.Fatalf("env cap ignored")
	}
	t.Setenv(EnvPreviewsMaxBytes, "-1")
	if MaxPreviewsBytesFromEnv() != 64*1024*1024 {
		t.Fatalf("invalid cap should fall back to default")
	}
}
