/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package canvas is the free-form widget engine: absolutely positioned items
// on a column grid inside a scrollable, zoomable surface. It handles drag and
// resize with snapping, push-on-overlap collision, percentage coordinates and
// focal-point zoom. Hosts feed it pointer input and read geometry back.
package canvas

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/geom"
	applog "pagebuilder/internal/log"

	"github.com/google/uuid"
)

// ErrNotFound is returned for operations on an unknown instance id.
var ErrNotFound = errors.New("canvas: item not found")

// SnapMode selects when drag/resize positions are quantized to cells.
type SnapMode int

const (
	// SnapLive quantizes continuously while the pointer moves.
	SnapLive SnapMode = iota
	// SnapOnDrop lets the item follow the raw pointer and quantizes on release.
	SnapOnDrop
)

// ParseSnapMode maps "live" and "drop" to a SnapMode.
func ParseSnapMode(s string) SnapMode {
	if s == "drop" || s == "on-drop" {
		return SnapOnDrop
	}
	return SnapLive
}

const (
	MinScale = 0.1
	MaxScale = 5.0
)

// Options configures a Grid. Zero values pick defaults.
type Options struct {
	Columns    int     // default 12
	Rows       int     // 0 means unbounded
	CellHeight float64 // pixels, default 40
	MinW, MinH int     // default 1
	// Width and Height are the surface pixel size; default 1200x800.
	Width, Height float64
	PushOnOverlap bool
	Percentage    bool
	Snap          SnapMode
	Scheduler     Scheduler
	Logger        *slog.Logger
	NewID         func() string
}

func (o *Options) defaults() {
	if o.Columns <= 0 {
		o.Columns = 12
	}
	if o.Rows < 0 {
		o.Rows = 0
	}
	if !geom.Finite(o.CellHeight) || o.CellHeight <= 0 {
		o.CellHeight = 40
	}
	if o.MinW <= 0 {
		o.MinW = 1
	}
	if o.MinH <= 0 {
		o.MinH = 1
	}
	if !geom.Finite(o.Width) || o.Width <= 0 {
		o.Width = 1200
	}
	if !geom.Finite(o.Height) || o.Height <= 0 {
		o.Height = 800
	}
	if o.Scheduler == nil {
		o.Scheduler = NewTimerScheduler(0)
	}
	if o.Logger == nil {
		o.Logger = applog.WithComponent("canvas")
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

// Grid owns the items of one canvas surface. It is safe for concurrent use;
// observers are called after internal locks are released.
type Grid struct {
	mu   sync.Mutex
	opts Options
	log  *slog.Logger

	items  []*Item
	byID   map[string]*Item
	active string

	scale    float64
	scroll   geom.Pt
	viewport geom.Rect // client rect of the scroll container

	inter  *interaction
	frames *frameCoalescer

	obsMu     sync.Mutex
	observers map[int]func(Event)
	nextObs   int
}

// New returns an empty grid.
func New(opts Options) *Grid {
	opts.defaults()
	g := &Grid{
		opts:      opts,
		log:       opts.Logger,
		byID:      make(map[string]*Item),
		scale:     1,
		viewport:  geom.Rect{W: opts.Width, H: opts.Height},
		observers: make(map[int]func(Event)),
	}
	g.frames = newFrameCoalescer(opts.Scheduler, g.applyPointer)
	return g
}

// Options returns the effective options.
func (g *Grid) Options() Options {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opts
}

// ColumnWidth is the pixel width of one column at scale 1.
func (g *Grid) ColumnWidth() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.colWLocked()
}

func (g *Grid) colWLocked() float64 { return g.opts.Width / float64(g.opts.Columns) }

// Len returns the number of items.
func (g *Grid) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.items)
}

// Items returns copies of all items in insertion order.
func (g *Grid) Items() []Item {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Item, len(g.items))
	for i, it := range g.items {
		out[i] = it.clone()
	}
	return out
}

// Item returns a copy of the item with the given instance id.
func (g *Grid) Item(id string) (Item, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	it, ok := g.byID[id]
	if !ok {
		return Item{}, false
	}
	return it.clone(), true
}

// MakeWidget registers an existing item. A missing or duplicate instance id
// is replaced by a fresh one. Geometry is sanitized; in percentage mode an
// item carrying percentages takes its cells from them.
func (g *Grid) MakeWidget(it Item) Item {
	g.mu.Lock()
	out := g.makeLocked(it, it.XPercent != 0 || it.YPercent != 0 || it.WPercent != 0 || it.HPercent != 0)
	g.mu.Unlock()
	g.log.Debug("widget added", slog.String("id", out.InstanceID), slog.String("widget", out.WidgetID))
	g.emit(Event{Kind: EventChange, ItemID: out.InstanceID})
	return out
}

func (g *Grid) makeLocked(it Item, fromPercent bool) Item {
	n := it.clone()
	if _, dup := g.byID[n.InstanceID]; n.InstanceID == "" || dup {
		n.InstanceID = g.opts.NewID()
	}
	if g.opts.Percentage && fromPercent {
		g.percentToCellsLocked(&n)
	} else {
		g.sanitizeLocked(&n)
		g.mirrorLocked(&n)
	}
	g.items = append(g.items, &n)
	g.byID[n.InstanceID] = &n
	if g.opts.PushOnOverlap {
		g.resolveCollisionsLocked(&n)
	}
	return n.clone()
}

// AddWidget creates an item for widgetID at the given cell rectangle.
func (g *Grid) AddWidget(widgetID string, x, y, w, h int) Item {
	return g.MakeWidget(Item{WidgetID: widgetID, X: x, Y: y, W: w, H: h})
}

// Update applies a partial geometry change. Unless silent it emits a change
// event. Corrupt values are coerced; an unknown id is reported.
func (g *Grid) Update(id string, geo Geometry, silent bool) error {
	g.mu.Lock()
	it, ok := g.byID[id]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	g.updateLocked(it, geo)
	g.mu.Unlock()
	if !silent {
		g.emit(Event{Kind: EventChange, ItemID: id})
	}
	return nil
}

func (g *Grid) updateLocked(it *Item, geo Geometry) {
	geo.applyTo(it)
	g.sanitizeLocked(it)
	g.mirrorLocked(it)
	if g.opts.PushOnOverlap {
		g.resolveCollisionsLocked(it)
	}
}

// RemoveWidget detaches an item and clears the selection if it was active.
func (g *Grid) RemoveWidget(id string) error {
	g.mu.Lock()
	if _, ok := g.byID[id]; !ok {
		g.mu.Unlock()
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	delete(g.byID, id)
	for i, it := range g.items {
		if it.InstanceID == id {
			g.items = append(g.items[:i:i], g.items[i+1:]...)
			break
		}
	}
	deselected := g.active == id
	if deselected {
		g.active = ""
	}
	if g.inter != nil && g.inter.id == id {
		g.inter = nil
		g.frames.Cancel()
	}
	g.mu.Unlock()
	if deselected {
		g.emit(Event{Kind: EventSelect})
	}
	g.emit(Event{Kind: EventChange, ItemID: id})
	return nil
}

// BringToFront puts the item on the topmost layer.
func (g *Grid) BringToFront(id string) error {
	g.mu.Lock()
	top := 0
	for _, it := range g.items {
		if it.InstanceID != id && it.Layer >= top {
			top = it.Layer + 1
		}
	}
	g.mu.Unlock()
	return g.Update(id, Geometry{Layer: Int(top)}, false)
}

// Select makes id the single active item; "" clears the selection.
func (g *Grid) Select(id string) error {
	g.mu.Lock()
	if id != "" {
		if _, ok := g.byID[id]; !ok {
			g.mu.Unlock()
			return fmt.Errorf("select %s: %w", id, ErrNotFound)
		}
	}
	changed := g.active != id
	g.active = id
	g.mu.Unlock()
	if changed {
		g.emit(Event{Kind: EventSelect, ItemID: id})
	}
	return nil
}

// ClearSelection deselects the active item.
func (g *Grid) ClearSelection() { _ = g.Select("") }

// Selected returns the active item.
func (g *Grid) Selected() (Item, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if it, ok := g.byID[g.active]; ok {
		return it.clone(), true
	}
	return Item{}, false
}

// Load replaces all items with records, silently, and emits one load event.
// meta, when given, is the grid pixel size the records were saved with.
func (g *Grid) Load(records []domain.WidgetRecord, meta *domain.GridMeta) {
	g.mu.Lock()
	g.items = nil
	g.byID = make(map[string]*Item)
	g.active = ""
	g.inter = nil
	g.frames.Cancel()
	saved := g.opts
	if meta != nil && meta.Width > 0 && meta.Height > 0 {
		// reproduce placement at the saved size, then adapt to the current one
		g.opts.Width, g.opts.Height = meta.Width, meta.Height
	}
	push := g.opts.PushOnOverlap
	g.opts.PushOnOverlap = false
	for _, r := range records {
		g.makeLocked(ItemFromRecord(r), hasPercent(r))
	}
	g.opts.PushOnOverlap = push
	if g.opts.Width != saved.Width || g.opts.Height != saved.Height {
		g.opts.Width, g.opts.Height = saved.Width, saved.Height
		g.relayoutLocked()
	}
	g.mu.Unlock()
	g.emit(Event{Kind: EventLoad})
}

// Records returns the wire form of all items.
func (g *Grid) Records() []domain.WidgetRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.WidgetRecord, 0, len(g.items))
	for _, it := range g.items {
		out = append(out, it.Record(g.opts.Percentage))
	}
	return out
}

// Meta describes the grid for persisted layouts.
func (g *Grid) Meta() domain.GridMeta {
	g.mu.Lock()
	defer g.mu.Unlock()
	return domain.GridMeta{Width: g.opts.Width, Height: g.opts.Height, Columns: g.opts.Columns, Rows: g.opts.Rows, Percentage: g.opts.Percentage}
}

// PixelRect returns the unscaled pixel rectangle of an item relative to the
// surface origin.
func (g *Grid) PixelRect(id string) (geom.Rect, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	it, ok := g.byID[id]
	if !ok {
		return geom.Rect{}, false
	}
	if g.inter != nil && g.inter.id == id && g.inter.follow != nil {
		return *g.inter.follow, true
	}
	return g.pxLocked(it), true
}

func (g *Grid) pxLocked(it *Item) geom.Rect {
	cw := g.colWLocked()
	ch := g.opts.CellHeight
	return geom.Rect{X: float64(it.X) * cw, Y: float64(it.Y) * ch, W: float64(it.W) * cw, H: float64(it.H) * ch}
}

// ClientRect returns the on-screen rectangle of an item: the pixel rect
// transformed by the viewport origin, scroll offset and zoom.
func (g *Grid) ClientRect(id string) (geom.Rect, bool) {
	px, ok := g.PixelRect(id)
	if !ok {
		return geom.Rect{}, false
	}
	g.mu.Lock()
	m := geom.ViewTransform(g.viewport.Min(), g.scroll, g.scale)
	g.mu.Unlock()
	return m.ApplyRect(px), true
}

// sanitizeLocked clamps an item into the grid bounds.
func (g *Grid) sanitizeLocked(it *Item) {
	cols, rows := g.opts.Columns, g.opts.Rows
	minW := max(g.opts.MinW, it.MinW, 1)
	minH := max(g.opts.MinH, it.MinH, 1)
	minW = min(minW, cols)
	if rows > 0 {
		minH = min(minH, rows)
	}
	if it.X < 0 {
		it.X = 0
	}
	if it.Y < 0 {
		it.Y = 0
	}
	it.W = geom.ClampInt(it.W, minW, cols)
	it.X = geom.ClampInt(it.X, 0, cols-it.W)
	if it.H < minH {
		it.H = minH
	}
	if rows > 0 {
		it.H = min(it.H, rows)
		it.Y = geom.ClampInt(it.Y, 0, rows-it.H)
	}
}

// Close stops pending frame callbacks.
func (g *Grid) Close() {
	g.frames.Cancel()
}
