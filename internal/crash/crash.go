/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file and a final autosave flush.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "pagebuilder/internal/log"
	"pagebuilder/internal/telemetry"
	"pagebuilder/internal/version"
)

const flushTimeout = 3 * time.Second

// exitFn is swapped by tests.
var exitFn = os.Exit

// Flusher persists pending work. Both session.Session and autosave.Saver qualify.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Recover captures a panic, writes a crash report into dir (the temp dir when
// empty), flushes f and exits with code 2. It must be deferred directly:
//
//	defer crash.Recover(dir, sess)
func Recover(dir string, f Flusher) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(dir, designOf(f), r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if f != nil {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if err := f.Flush(ctx); err != nil {
			l.Error("autosave flush after panic failed", slog.Any("err", err))
		} else {
			l.Info("pending changes flushed after panic")
		}
		cancel()
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func designOf(f Flusher) string {
	if d, ok := f.(interface{ DesignID() string }); ok {
		return d.DesignID()
	}
	return ""
}

func writeReport(dir, design string, panicVal any, stack []byte) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("20060102-150405")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return path, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "PageBuilder Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if design != "" {
		fmt.Fprintf(&buf, "Design: %s\n", design)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if telemetry.UploadCrash(ctx, buf.Bytes()) {
		applog.WithComponent("crash").Info("crash report uploaded")
	}
	return path, nil
}
