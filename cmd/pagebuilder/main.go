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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pagebuilder/internal/autosave"
	"pagebuilder/internal/backend"
	"pagebuilder/internal/canvas"
	"pagebuilder/internal/config"
	"pagebuilder/internal/container"
	"pagebuilder/internal/crash"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/export"
	"pagebuilder/internal/history"
	applog "pagebuilder/internal/log"
	"pagebuilder/internal/schema"
	"pagebuilder/internal/session"
	"pagebuilder/internal/storage"
	"pagebuilder/internal/telemetry"
	"pagebuilder/internal/version"
)

// EnvAuthSecret holds the HMAC secret for serve and token.
const EnvAuthSecret = "PB_AUTH_SECRET"

// errUsage makes run print the usage text and exit 2.
var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintln(w, "PageBuilder")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  pagebuilder version|-v|--version             Show version")
	fmt.Fprintln(w, "  pagebuilder validate <layout>                  Check a layout against the schema")
	fmt.Fprintln(w, "  pagebuilder show <layout>                      Print the region tree and widgets")
	fmt.Fprintln(w, "  pagebuilder list                               List stored layout keys")
	fmt.Fprintln(w, "  pagebuilder preview <layout> <out.png>         Write a thumbnail")
	fmt.Fprintln(w, "  pagebuilder pdf <layout> <out.pdf>             Write a wireframe PDF")
	fmt.Fprintln(w, "  pagebuilder export <layout> <dir> [web|print]  Batch export with a preset")
	fmt.Fprintln(w, "  pagebuilder serve [addr]                       Serve the layout API (default :8080)")
	fmt.Fprintln(w, "  pagebuilder token <subject> [hours]            Sign an API token with PB_AUTH_SECRET")
	fmt.Fprintln(w, "  pagebuilder login <token> | logout             Store or forget the backend token")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "<layout> is a path to a .json file or a key in the configured store.")
}

// cli carries the loaded configuration into the commands.
type cli struct {
	cfg   config.AppConfig
	token string
	out   io.Writer
	log   *slog.Logger
	// flusher is the open session, if any, for crash recovery.
	flusher crash.Flusher
}

func main() {
	cfg, token, err := config.Load()
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("cli")
	if err != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", err))
	}

	c := &cli{cfg: cfg, token: token, out: os.Stdout, log: l}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := c.runRecovered(ctx, os.Args[1:])
	stop()

	tctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	telemetry.Default().Flush(tctx)
	cancel()
	telemetry.Default().Close()
	os.Exit(code)
}

func (c *cli) runRecovered(ctx context.Context, args []string) int {
	dir, _ := config.DataDir()
	defer crash.Recover(dir, c)
	err := c.run(ctx, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		usage(os.Stderr)
		return 2
	default:
		c.log.Error("command failed", slog.Any("err", err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
}

// Flush lets crash.Recover persist the open session.
func (c *cli) Flush(ctx context.Context) error {
	if c.flusher == nil {
		return nil
	}
	return c.flusher.Flush(ctx)
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	c.log.Debug("start", slog.String("cmd", cmd), slog.Int("args", len(rest)))
	telemetry.Event("command", map[string]any{"cmd": cmd})

	need := func(n int) error {
		if len(rest) < n {
			return fmt.Errorf("%s: %w", cmd, errUsage)
		}
		return nil
	}
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(c.out, "PageBuilder")
		fmt.Fprintln(c.out, version.String())
		return nil
	case "help", "-h", "--help":
		usage(c.out)
		return nil
	case "validate":
		if err := need(1); err != nil {
			return err
		}
		return c.validate(ctx, rest[0])
	case "show":
		if err := need(1); err != nil {
			return err
		}
		return c.show(ctx, rest[0])
	case "list":
		return c.list(ctx)
	case "preview":
		if err := need(2); err != nil {
			return err
		}
		return c.preview(ctx, rest[0], rest[1])
	case "pdf":
		if err := need(2); err != nil {
			return err
		}
		return c.pdf(ctx, rest[0], rest[1])
	case "export":
		if err := need(2); err != nil {
			return err
		}
		preset := export.PresetWeb
		if len(rest) > 2 {
			preset = export.PresetName(rest[2])
		}
		return c.export(ctx, rest[0], rest[1], preset)
	case "serve":
		addr := ":8080"
		if len(rest) > 0 {
			addr = rest[0]
		}
		return c.serve(ctx, addr)
	case "token":
		if err := need(1); err != nil {
			return err
		}
		hours := "24"
		if len(rest) > 1 {
			hours = rest[1]
		}
		return c.signToken(rest[0], hours)
	case "login":
		if err := need(1); err != nil {
			return err
		}
		if err := config.Save(c.cfg, rest[0]); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Token stored in the OS keychain.")
		return nil
	case "logout":
		if err := config.DeleteToken(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Token removed.")
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

// sessionOptions maps the configuration onto engine options.
func (c *cli) sessionOptions(store domain.LayoutStore) session.Options {
	cc := c.cfg.Canvas
	opts := session.Options{
		Store: store,
		Grid: canvas.Options{
			Columns:       cc.Columns,
			Rows:          cc.Rows,
			CellHeight:    cc.CellHeight,
			PushOnOverlap: cc.PushOnOverlap,
			Percentage:    cc.Percentage,
			Snap:          canvas.ParseSnapMode(cc.SnapMode),
		},
		History: history.Config{
			MaxDepth: c.cfg.History.MaxDepth,
			MaxBytes: c.cfg.History.MaxBytes,
			Coalesce: c.cfg.History.Coalesce(),
		},
		Validate: schema.Validate,
	}
	if sink, ok := store.(domain.PreviewSink); ok {
		opts.Previews = sink
	}
	if !c.cfg.Autosave.Disabled {
		opts.Autosave = &autosave.Options{Debounce: c.cfg.Autosave.Debounce(), MaxWait: c.cfg.Autosave.MaxWait()}
	}
	return opts
}

// open resolves arg and opens it in a new session. The returned func closes both.
func (c *cli) open(ctx context.Context, arg string) (*session.Session, func(), error) {
	store, key, err := resolve(ctx, c.cfg, c.token, arg)
	if err != nil {
		return nil, nil, err
	}
	s, err := session.New(c.sessionOptions(store))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	closeAll := func() {
		c.flusher = nil
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Close(cctx); err != nil {
			c.log.Warn("session close failed", slog.Any("err", err))
		}
		if err := store.Close(); err != nil {
			c.log.Warn("store close failed", slog.Any("err", err))
		}
	}
	if err := s.Open(ctx, key); err != nil {
		closeAll()
		return nil, nil, err
	}
	c.flusher = s
	return s, closeAll, nil
}

func (c *cli) validate(ctx context.Context, arg string) error {
	store, key, err := resolve(ctx, c.cfg, c.token, arg)
	if err != nil {
		return err
	}
	defer store.Close()
	data, err := store.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := schema.Validate(data); err != nil {
		return err
	}
	_, shape, _ := domain.DecodeDocument(data)
	fmt.Fprintf(c.out, "%s: ok (%s)\n", key, shape)
	return nil
}

func (c *cli) show(ctx context.Context, arg string) error {
	s, done, err := c.open(ctx, arg)
	if err != nil {
		return err
	}
	defer done()
	printScene(c.out, s)
	return nil
}

func printScene(w io.Writer, s *session.Session) {
	fmt.Fprintf(w, "Design: %s\n", s.DesignID())
	fmt.Fprintln(w, "Regions:")
	s.Tree().Walk(func(n container.Node, depth int) bool {
		ind := strings.Repeat("  ", depth+1)
		if n.IsLeaf() {
			var flags []string
			if n.Workarea {
				flags = append(flags, "workarea")
			}
			if n.DesignRef != "" {
				flags = append(flags, "ref="+n.DesignRef)
			}
			if n.Label != "" {
				flags = append(flags, fmt.Sprintf("label=%q", n.Label))
			}
			fmt.Fprintf(w, "%s- %s %s\n", ind, n.ID, strings.Join(flags, " "))
			return true
		}
		fmt.Fprintf(w, "%s+ %s %s %v\n", ind, n.ID, n.Orientation, n.Sizes)
		return true
	})
	sc := s.Scene()
	fmt.Fprintf(w, "Widgets: %d\n", len(sc.Widgets))
	for _, wd := range sc.Widgets {
		lock := ""
		if wd.Locked {
			lock = " locked"
		}
		fmt.Fprintf(w, "  %s (%s) at %.0f,%.0f size %.0fx%.0f%s\n", wd.ID, wd.WidgetID, wd.X, wd.Y, wd.W, wd.H, lock)
	}
}

func (c *cli) list(ctx context.Context) error {
	st, err := openStore(ctx, c.cfg, c.token)
	if err != nil {
		return err
	}
	defer st.Close()
	keys, err := st.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(c.out, k)
	}
	return nil
}

func (c *cli) preview(ctx context.Context, arg, out string) error {
	s, done, err := c.open(ctx, arg)
	if err != nil {
		return err
	}
	defer done()
	u, err := s.CapturePreview(ctx)
	if u == "" {
		return err
	}
	if err != nil {
		c.log.Warn("thumbnail not cached", slog.Any("err", err))
	}
	png, err := storage.DecodeDataURL(u)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Wrote", out)
	return nil
}

func (c *cli) pdf(ctx context.Context, arg, out string) error {
	s, done, err := c.open(ctx, arg)
	if err != nil {
		return err
	}
	defer done()
	opt := export.FileOptions{Title: s.DesignID(), Labels: true, Guides: true}
	if err := export.WriteFile(s.Scene(), out, export.FormatPDF, opt); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Wrote", out)
	return nil
}

func (c *cli) export(ctx context.Context, arg, dir string, preset export.PresetName) error {
	if preset != export.PresetWeb && preset != export.PresetPrint {
		return fmt.Errorf("unknown preset %q", preset)
	}
	s, done, err := c.open(ctx, arg)
	if err != nil {
		return err
	}
	defer done()
	paths, err := export.BatchExport(s.Scene(), export.BatchOptions{Preset: preset, OutDir: dir, Name: s.DesignID()})
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(c.out, "Wrote", p)
	}
	return nil
}

func (c *cli) serve(ctx context.Context, addr string) error {
	store, err := openStore(ctx, c.cfg, c.token)
	if err != nil {
		return err
	}
	defer store.Close()
	secret := os.Getenv(EnvAuthSecret)
	if secret == "" {
		c.log.Warn("no auth secret set, API is open", slog.String("env", EnvAuthSecret))
	}
	return backend.Serve(ctx, addr, store, backend.Options{Secret: secret, Validate: schema.Validate})
}

func (c *cli) signToken(subject, hours string) error {
	d, err := time.ParseDuration(hours + "h")
	if err != nil || d <= 0 {
		return fmt.Errorf("token lifetime %q: want a positive number of hours", hours)
	}
	tok, err := backend.SignToken(os.Getenv(EnvAuthSecret), subject, time.Now().Add(d))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, tok)
	return nil
}
