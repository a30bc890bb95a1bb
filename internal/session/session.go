/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package session binds one grid, one container tree and their helpers into
// an open page builder. Every collaborator is a field of Session, so several
// builders can run side by side.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"pagebuilder/internal/autosave"
	"pagebuilder/internal/canvas"
	"pagebuilder/internal/container"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/geom"
	"pagebuilder/internal/history"
	applog "pagebuilder/internal/log"
	"pagebuilder/internal/overlay"
	"pagebuilder/internal/preview"
	"pagebuilder/internal/schema"
)

var (
	// ErrNotOpen is returned by operations that need an open design.
	ErrNotOpen = errors.New("session: no design open")
	// ErrUnknownWidget is returned by AddWidget for ids the resolver does not know.
	ErrUnknownWidget = errors.New("session: unknown widget definition")
	// ErrCaptureFailed is returned when the raster capturer produced nothing.
	ErrCaptureFailed = errors.New("session: preview capture failed")
)

// Options configures a Session. Store is required.
type Options struct {
	Store    domain.LayoutStore
	Widgets  domain.WidgetResolver
	Capturer domain.RasterCapturer // default preview.NewRasterizer()
	Previews domain.PreviewSink    // optional thumbnail sink

	Grid    canvas.Options
	History history.Config
	// Autosave enables debounced saving; nil disables it.
	Autosave *autosave.Options
	// Validate checks loaded layouts; failures are logged only. Default schema.Validate.
	Validate func([]byte) error

	// PageWidth and PageHeight size the container tree; default 1200x800.
	PageWidth, PageHeight float64
	TreeOptions           []container.Option
	Logger                *slog.Logger
}

// Session is one open page builder.
type Session struct {
	opts Options
	log  *slog.Logger

	grid     *canvas.Grid
	tree     *container.Tree
	box      *overlay.Box
	arranger *container.Arranger
	hist     *history.Manager

	mu       sync.Mutex
	designID string
	saver    *autosave.Saver

	applying atomic.Int32
	unsubs   []func()
}

// New builds the engines and wires their change notifications to history
// and autosave. Nothing is loaded until Open.
func New(opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errors.New("session: layout store is required")
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("session")
	}
	if opts.Capturer == nil {
		opts.Capturer = preview.NewRasterizer()
	}
	if opts.Validate == nil {
		opts.Validate = schema.Validate
	}
	if opts.PageWidth <= 0 || opts.PageHeight <= 0 {
		opts.PageWidth, opts.PageHeight = 1200, 800
	}
	s := &Session{
		opts: opts,
		log:  opts.Logger,
		grid: canvas.New(opts.Grid),
		tree: container.New(opts.TreeOptions...),
		hist: history.NewManager(opts.History),
	}
	s.box = overlay.Attach(s.grid)
	s.arranger = container.NewArranger(s.tree)
	s.unsubs = append(s.unsubs,
		s.grid.OnChange(func(ev canvas.Event) { s.record("grid:" + ev.ItemID) }),
		s.tree.OnAfterChange(func(ev container.ChangeEvent) {
			if s.applying.Load() > 0 {
				return
			}
			if _, ok := s.tree.Workarea(); !ok {
				s.rehost()
			}
			s.syncSurface()
			s.record("tree:" + ev.Op)
		}),
	)
	return s, nil
}

// Grid, Tree, Overlay, Arranger and History expose the session's engines to the host.
func (s *Session) Grid() *canvas.Grid            { return s.grid }
func (s *Session) Tree() *container.Tree         { return s.tree }
func (s *Session) Overlay() *overlay.Box         { return s.box }
func (s *Session) Arranger() *container.Arranger { return s.arranger }
func (s *Session) History() *history.Manager     { return s.hist }

// DesignID returns the open design, or "".
func (s *Session) DesignID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.designID
}

func (s *Session) current() (string, *autosave.Saver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.designID, s.saver
}

func (s *Session) page() geom.Rect { return geom.R(0, 0, s.opts.PageWidth, s.opts.PageHeight) }

// Open loads designID from the store and makes it the current design. A
// missing layout starts a fresh single-region page. The previous design, if
// any, is flushed and its history dropped.
func (s *Session) Open(ctx context.Context, designID string) error {
	lg := applog.WithOperation(s.log, "open").With(slog.String("design", designID))
	prevID, prevSaver := s.current()
	if prevSaver != nil {
		if err := prevSaver.Close(ctx); err != nil {
			lg.Warn("flush previous design failed", slog.String("prev", prevID), slog.Any("err", err))
		}
	}
	if prevID != "" {
		s.hist.ResetHistory(prevID)
	}

	data, err := s.opts.Store.Load(ctx, designID)
	fresh := errors.Is(err, domain.ErrNotFound)
	if err != nil && !fresh {
		return fmt.Errorf("open %s: %w", designID, err)
	}

	var doc domain.Document
	if !fresh {
		if verr := s.opts.Validate(data); verr != nil {
			lg.Warn("stored layout failed validation", slog.Any("err", verr))
		}
		d, shape, derr := domain.DecodeDocument(data)
		if derr != nil {
			return fmt.Errorf("open %s: %w", designID, derr)
		}
		lg.Debug("layout decoded", slog.String("shape", shape.String()), slog.Int("widgets", len(d.Widgets)))
		doc = d
	}
	s.apply(doc)

	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	s.hist.ResetHistory(designID)
	if err := s.hist.PushSnapshot(designID, snap); err != nil {
		return err
	}

	var saver *autosave.Saver
	if s.opts.Autosave != nil {
		saver = autosave.New(s.opts.Store, designID, *s.opts.Autosave)
		if !fresh {
			saver.MarkSaved(snap)
		}
	}
	s.mu.Lock()
	s.designID = designID
	s.saver = saver
	s.mu.Unlock()
	lg.Info("design opened", slog.Bool("fresh", fresh), slog.Int("widgets", s.grid.Len()))
	return nil
}

// apply replaces the tree and the grid with doc without recording history.
func (s *Session) apply(doc domain.Document) {
	s.applying.Add(1)
	defer s.applying.Add(-1)
	s.arranger.Cancel()
	s.grid.CancelInteraction()
	if doc.Containers != nil {
		s.tree.Load(*doc.Containers)
	} else {
		s.tree.Load(domain.NodeJSON{Type: domain.TypeLeaf})
	}
	s.tree.SetDefaultWorkarea(s.tree.Layout(s.page()))
	s.grid.Load(doc.Widgets, doc.Grid)
	s.syncSurface()
}

// rehost runs after an edit removed the workarea: its widgets go with it and
// the largest remaining leaf takes over. The caller records the result once.
func (s *Session) rehost() {
	s.applying.Add(1)
	defer s.applying.Add(-1)
	s.grid.CancelInteraction()
	n := s.grid.Len()
	s.grid.Load(nil, nil)
	id, ok := s.tree.SetDefaultWorkarea(s.tree.Layout(s.page()))
	s.log.Info("workarea deleted", slog.Int("widgets_dropped", n), slog.String("new_workarea", id), slog.Bool("assigned", ok))
}

// syncSurface sizes the grid to the workarea region.
func (s *Session) syncSurface() {
	id, ok := s.tree.Workarea()
	if !ok {
		return
	}
	r, ok := s.tree.Layout(s.page())[id]
	if !ok || r.W <= 0 || r.H <= 0 {
		return
	}
	s.grid.Resize(r.W, r.H)
	s.grid.SetViewport(r)
}

// record pushes the current layout to history and schedules an autosave.
// Identical consecutive states are recorded once.
func (s *Session) record(reason string) {
	if s.applying.Load() > 0 {
		return
	}
	id, saver := s.current()
	if id == "" {
		return
	}
	snap, err := s.Snapshot()
	if err != nil {
		s.log.Warn("snapshot failed", slog.String("reason", reason), slog.Any("err", err))
		return
	}
	if cur, ok := s.hist.Current(id); ok && bytes.Equal(cur, snap) {
		return
	}
	if err := s.hist.PushSnapshot(id, snap); err != nil {
		s.log.Warn("history push failed", slog.Any("err", err))
		return
	}
	s.log.Debug("snapshot recorded", slog.String("reason", reason), slog.Int("bytes", len(snap)))
	if saver != nil {
		saver.Schedule(snap)
	}
}

// CurrentLayout flattens the tree and the grid into the wire document.
func (s *Session) CurrentLayout() domain.Document {
	tree := s.tree.Serialize()
	meta := s.grid.Meta()
	return domain.Document{Containers: &tree, Grid: &meta, Widgets: s.grid.Records()}
}

// Snapshot returns CurrentLayout as JSON.
func (s *Session) Snapshot() ([]byte, error) {
	b, err := json.Marshal(s.CurrentLayout())
	if err != nil {
		return nil, fmt.Errorf("session: marshal layout: %w", err)
	}
	return b, nil
}

// Undo restores the previous state of the open design.
func (s *Session) Undo() bool {
	return s.step(s.hist.Undo)
}

// Redo re-applies the most recently undone state.
func (s *Session) Redo() bool {
	return s.step(s.hist.Redo)
}

func (s *Session) step(fn func(string) ([]byte, bool)) bool {
	id, saver := s.current()
	if id == "" {
		return false
	}
	blob, ok := fn(id)
	if !ok {
		return false
	}
	doc, _, err := domain.DecodeDocument(blob)
	if err != nil {
		s.log.Error("history entry unreadable", slog.Any("err", err))
		return false
	}
	s.apply(doc)
	if saver != nil {
		saver.Schedule(blob)
	}
	return true
}

// AddWidget places a new instance of widgetID at cell (x, y) with the
// definition's default size.
func (s *Session) AddWidget(widgetID string, x, y int) (canvas.Item, error) {
	if s.DesignID() == "" {
		return canvas.Item{}, ErrNotOpen
	}
	if s.opts.Widgets == nil {
		return canvas.Item{}, fmt.Errorf("%w: %q", ErrUnknownWidget, widgetID)
	}
	def, ok := s.opts.Widgets.ResolveWidgetDefinition(widgetID)
	if !ok {
		return canvas.Item{}, fmt.Errorf("%w: %q", ErrUnknownWidget, widgetID)
	}
	w, h := max(def.DefaultW, 1), max(def.DefaultH, 1)
	return s.grid.AddWidget(def.ID, x, y, w, h), nil
}

// StartArrange enters arrange mode for region source using the current page layout.
func (s *Session) StartArrange(source string) error {
	return s.arranger.Start(source, s.tree.Layout(s.page()))
}

// HandleKey forwards a key to arrange mode and the grid. Escape leaves
// arrange mode and cancels any drag or resize.
func (s *Session) HandleKey(key string) bool {
	a := s.arranger.HandleKey(key)
	g := s.grid.HandleKey(key)
	return a || g
}

// Scene returns the page in pixel space: every leaf region and every widget
// offset by the workarea origin, widgets in layer order.
func (s *Session) Scene() domain.Scene {
	page := s.page()
	rects := s.tree.Layout(page)
	sc := domain.Scene{Width: page.W, Height: page.H}
	var origin geom.Pt
	s.tree.Walk(func(n container.Node, _ int) bool {
		if !n.IsLeaf() {
			return true
		}
		r := rects[n.ID]
		sc.Regions = append(sc.Regions, domain.SceneRegion{
			NodeID: n.ID, X: r.X, Y: r.Y, W: r.W, H: r.H,
			Workarea: n.Workarea, DesignRef: n.DesignRef, Label: n.Label,
		})
		if n.Workarea {
			origin = r.Min()
		}
		return true
	})
	items := s.grid.Items()
	sort.SliceStable(items, func(i, j int) bool { return items[i].Layer < items[j].Layer })
	for _, it := range items {
		px, ok := s.grid.PixelRect(it.InstanceID)
		if !ok {
			continue
		}
		px = px.Translate(origin)
		sc.Widgets = append(sc.Widgets, domain.SceneWidget{
			ID: it.InstanceID, WidgetID: it.WidgetID,
			X: px.X, Y: px.Y, W: px.W, H: px.H, Locked: it.Locked,
		})
	}
	return sc
}

// CapturePreview renders a thumbnail of the page and hands it to the preview
// sink, if any. A sink failure is logged and returned with the data URL.
func (s *Session) CapturePreview(ctx context.Context) (string, error) {
	id := s.DesignID()
	if id == "" {
		return "", ErrNotOpen
	}
	u := s.opts.Capturer.CaptureRaster(s.Scene())
	if u == "" {
		return "", ErrCaptureFailed
	}
	if s.opts.Previews == nil {
		return u, nil
	}
	if err := s.opts.Previews.SavePreview(ctx, id, u); err != nil {
		s.log.Warn("preview not stored", slog.String("design", id), slog.Any("err", err))
		return u, err
	}
	return u, nil
}

// Flush writes any pending autosave immediately.
func (s *Session) Flush(ctx context.Context) error {
	_, saver := s.current()
	if saver == nil {
		return nil
	}
	return saver.Flush(ctx)
}

// Save writes the current layout synchronously, bypassing autosave.
func (s *Session) Save(ctx context.Context) error {
	id, saver := s.current()
	if id == "" {
		return ErrNotOpen
	}
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	if err := s.opts.Store.Save(ctx, id, snap); err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}
	if saver != nil {
		saver.MarkSaved(snap)
	}
	return nil
}

// Close flushes autosave and detaches every observer.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	saver := s.saver
	s.saver = nil
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	var err error
	if saver != nil {
		err = saver.Close(ctx)
	}
	for _, u := range unsubs {
		u()
	}
	s.box.Detach()
	s.grid.Close()
	return err
}
