/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// jsonLines decodes every non-empty line of b.
func jsonLines(t *testing.T, b []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestJSONWriterCarriesEngineAttrs(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "json", Writer: &buf})

	lg := WithOperation(WithComponent("container"), "place")
	lg.Debug("filtered out")
	lg.Info("container placed", slog.String("node", "n2"), slog.String("pos", "right"))

	lines := jsonLines(t, buf.Bytes())
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1 (debug is below the level): %s", len(lines), buf.String())
	}
	m := lines[0]
	want := map[string]any{
		"app": "pagebuilder", "component": "container", "op": "place",
		"msg": "container placed", "node": "n2", "pos": "right", "level": "INFO",
	}
	for k, v := range want {
		if m[k] != v {
			t.Fatalf("%s = %v, want %v (record %v)", k, m[k], v, m)
		}
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr: %v", m)
	}
}

func TestFileSinkFansOutNextToConsole(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "pagebuilder.log")
	Init(Options{Level: "warn", Format: "console", File: path, Writer: &console})

	WithComponent("autosave").Info("autosaved")
	WithComponent("autosave").Warn("autosave failed", slog.String("key", "home"))

	if out := console.String(); strings.Contains(out, "autosaved") ||
		!strings.Contains(out, "WRN autosave failed") || !strings.Contains(out, "key=home") {
		t.Fatalf("console output = %q", out)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := jsonLines(t, b)
	if len(lines) != 1 || lines[0]["msg"] != "autosave failed" || lines[0]["component"] != "autosave" {
		t.Fatalf("file records = %v", lines)
	}
}

func TestLDefaultsFromEnv(t *testing.T) {
	defaultLoggerMu.Lock()
	prev := defaultLogger
	defaultLogger = nil
	defaultLoggerMu.Unlock()
	t.Cleanup(func() {
		defaultLoggerMu.Lock()
		defaultLogger = prev
		defaultLoggerMu.Unlock()
		if prev != nil {
			slog.SetDefault(prev)
		}
	})
	t.Setenv("PB_LOG_LEVEL", "error")
	if L().Enabled(context.Background(), slog.LevelWarn) {
		t.Fatal("lazily built logger ignored PB_LOG_LEVEL")
	}
}
