/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagebuilder/internal/config"
	applog "pagebuilder/internal/log"
)

const sampleLayout = `[{"id":"w1","widgetId":"clock","x":0,"y":0,"w":3,"h":2}]`

func newTestCLI(t *testing.T) (*cli, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Storage.Driver = "file"
	cfg.Storage.Path = filepath.Join(dir, "store")
	cfg.Autosave.Disabled = true
	path := filepath.Join(dir, "home.json")
	if err := os.WriteFile(path, []byte(sampleLayout), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	return &cli{cfg: cfg, out: &out, log: applog.Discard()}, &out, path
}

func TestValidateFile(t *testing.T) {
	c, out, path := newTestCLI(t)
	if err := c.run(context.Background(), []string{"validate", path}); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := out.String(); got != "home: ok (widgets)\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestValidateRejectsBadLayout(t *testing.T) {
	c, _, path := newTestCLI(t)
	if err := os.WriteFile(path, []byte(`[{"id":"w1"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.run(context.Background(), []string{"validate", path}); err == nil {
		t.Fatal("widget without widgetId should fail validation")
	}
}

func TestShowPrintsTreeAndWidgets(t *testing.T) {
	c, out, path := newTestCLI(t)
	if err := c.run(context.Background(), []string{"show", path}); err != nil {
		t.Fatalf("show: %v", err)
	}
	s := out.String()
	for _, want := range []string{"Design: home", "workarea", "Widgets: 1", "w1 (clock)"} {
		if !strings.Contains(s, want) {
			t.Fatalf("show output missing %q:\n%s", want, s)
		}
	}
	if c.flusher != nil {
		t.Fatal("session should be released after the command")
	}
}

func TestPDFAndPreviewWriteFiles(t *testing.T) {
	c, _, path := newTestCLI(t)
	dir := filepath.Dir(path)
	pdf := filepath.Join(dir, "home.pdf")
	png := filepath.Join(dir, "home.png")
	ctx := context.Background()
	if err := c.run(ctx, []string{"pdf", path, pdf}); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if err := c.run(ctx, []string{"preview", path, png}); err != nil {
		t.Fatalf("preview: %v", err)
	}
	b, err := os.ReadFile(pdf)
	if err != nil || !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("pdf not written: %v", err)
	}
	b, err = os.ReadFile(png)
	if err != nil || !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Fatalf("png not written: %v", err)
	}
}

func TestKeysResolveThroughConfiguredStore(t *testing.T) {
	c, out, path := newTestCLI(t)
	ctx := context.Background()
	st, err := openStore(ctx, c.cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if err := st.Save(ctx, "landing", data); err != nil {
		t.Fatal(err)
	}
	if err := c.run(ctx, []string{"list"}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := out.String(); got != "landing\n" {
		t.Fatalf("list output = %q", got)
	}
	out.Reset()
	if err := c.run(ctx, []string{"validate", "landing"}); err != nil {
		t.Fatalf("validate by key: %v", err)
	}
	if err := c.run(ctx, []string{"validate", "bad:key"}); err == nil {
		t.Fatal("invalid key should be rejected")
	}
}

func TestUsageErrors(t *testing.T) {
	c, _, _ := newTestCLI(t)
	for _, args := range [][]string{nil, {"frobnicate"}, {"pdf", "only-one"}} {
		if err := c.run(context.Background(), args); !errors.Is(err, errUsage) {
			t.Fatalf("run(%v) = %v, want usage error", args, err)
		}
	}
}

func TestSignToken(t *testing.T) {
	c, out, _ := newTestCLI(t)
	t.Setenv(EnvAuthSecret, "s3cret")
	if err := c.run(context.Background(), []string{"token", "alice", "2"}); err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok := strings.TrimSpace(out.String()); strings.Count(tok, ".") != 2 {
		t.Fatalf("token = %q", tok)
	}
	if err := c.run(context.Background(), []string{"token", "alice", "-1"}); err == nil {
		t.Fatal("negative lifetime should fail")
	}
}
