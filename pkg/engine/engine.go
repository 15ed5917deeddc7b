// Package engine keeps the map, histograms, legend and labels in step with
// the stream of evaluated plans and focus commands.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/distopia/districtview/pkg/district"
	"github.com/distopia/districtview/pkg/geo"
	"github.com/distopia/districtview/pkg/metric"
	"github.com/distopia/districtview/pkg/precinct"
	"github.com/distopia/districtview/pkg/projection"
	"github.com/distopia/districtview/pkg/scene2d"
	"github.com/distopia/districtview/pkg/snapshot"
	"github.com/distopia/districtview/pkg/view"
)

// State is the engine's lifecycle position.
type State int

const (
	Uninitialized State = iota
	GeometryReady
	BoundsConfigured
	Live
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case GeometryReady:
		return "geometry_ready"
	case BoundsConfigured:
		return "bounds_configured"
	case Live:
		return "live"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Recorder receives engine events for metrics.
type Recorder interface {
	SnapshotAdmitted(counter int64)
	SnapshotDropped()
	SnapshotRejected()
	RepaintDone(d time.Duration)
	RepaintFailed(reason string)
	StateChanged(s State)
}

type nopRecorder struct{}

func (nopRecorder) SnapshotAdmitted(int64)    {}
func (nopRecorder) SnapshotDropped()          {}
func (nopRecorder) SnapshotRejected()         {}
func (nopRecorder) RepaintDone(time.Duration) {}
func (nopRecorder) RepaintFailed(string)      {}
func (nopRecorder) StateChanged(State)        {}

// Options configures an Engine.
type Options struct {
	Focus           string
	Layout          view.Layout
	Expected        int
	HistogramWidth  float64
	HistogramHeight float64
	Catalog         *metric.Catalog
	Store           *precinct.Store
	Logger          *slog.Logger
	Recorder        Recorder
}

// DefaultOptions returns options for the eight-district HUD.
func DefaultOptions() Options {
	return Options{
		Focus:           "pvi",
		Layout:          view.DefaultLayout(),
		Expected:        district.Expected,
		HistogramWidth:  240,
		HistogramHeight: 160,
	}
}

// Engine is the single writer for every view. All methods are safe for
// concurrent use; events are applied one at a time in arrival order.
type Engine struct {
	mu sync.Mutex

	log     *slog.Logger
	rec     Recorder
	catalog *metric.Catalog

	store      *precinct.Store
	projector  *projection.Projector
	gate       *snapshot.Gate
	aggregator *district.Aggregator

	layout     *view.Layout
	canvas     *scene2d.Canvas
	choropleth *view.Choropleth
	histograms *view.HistogramSet
	legend     *view.Legend
	labels     *view.Labels

	state    State
	focus    string
	last     *snapshot.Snapshot
	painted  int64
	hasPaint bool
	lastErr  error
}

// New creates an engine. Geometry is loaded separately.
func New(opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		opts.Catalog = metric.Default()
	}
	if opts.Store == nil {
		opts.Store = precinct.NewStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Expected <= 0 {
		opts.Expected = district.Expected
	}
	if opts.HistogramWidth <= 0 || opts.HistogramHeight <= 0 {
		opts.HistogramWidth, opts.HistogramHeight = 240, 160
	}
	if err := opts.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	if _, err := opts.Catalog.Lookup(opts.Focus); err != nil {
		return nil, fmt.Errorf("initial focus: %w", err)
	}

	layout := opts.Layout
	e := &Engine{
		log:       opts.Logger,
		rec:       opts.Recorder,
		catalog:   opts.Catalog,
		store:     opts.Store,
		projector: projection.New(),
		gate:      snapshot.NewGate(),
		layout:    &layout,
		canvas:    scene2d.NewCanvas(layout.Width, layout.Height),
		focus:     opts.Focus,
	}
	e.aggregator = district.NewAggregator(e.store, e.projector).WithExpected(opts.Expected)
	e.choropleth = view.NewChoropleth(e.store, e.projector, e.canvas, e.layout)
	e.histograms = view.NewHistogramSet(opts.Expected, opts.HistogramWidth, opts.HistogramHeight)
	e.legend = view.NewLegend(e.canvas, e.layout)
	e.labels = view.NewLabels(e.canvas, e.layout)

	if e.store.Ready() {
		if err := e.geometryLoaded(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// LoadGeometry loads both geometry resources.
func (e *Engine) LoadGeometry(records []precinct.Record, polygons [][][]geo.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.Load(records, polygons); err != nil {
		return fmt.Errorf("loading geometry: %w", err)
	}
	return e.geometryLoaded()
}

// LoadRecords loads the unit records. Polygons may arrive before or after.
func (e *Engine) LoadRecords(records []precinct.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.LoadRecords(records); err != nil {
		return fmt.Errorf("loading records: %w", err)
	}
	return e.geometryLoaded()
}

// LoadPolygons loads the unit boundaries. Records may arrive before or
// after.
func (e *Engine) LoadPolygons(polygons [][][]geo.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.LoadPolygons(polygons); err != nil {
		return fmt.Errorf("loading polygons: %w", err)
	}
	return e.geometryLoaded()
}

// geometryLoaded advances the state once both resources are present and
// paints whatever is known so far. A failed paint is reported through
// Status and the stale notice; the geometry itself is in place.
func (e *Engine) geometryLoaded() error {
	if !e.store.Ready() {
		return nil
	}
	if e.state < GeometryReady {
		e.setState(GeometryReady)
	}
	e.log.Info("geometry_ready", "units", e.store.Len())
	if err := e.configureProjector(); err != nil {
		return err
	}
	e.repaintAfterLayout()
	return nil
}

func (e *Engine) configureProjector() error {
	bounds, err := e.store.Bounds()
	if err != nil {
		return err
	}
	w, h := e.layout.MapSize()
	if err := e.projector.Configure(bounds, w, h, e.layout.Margin); err != nil {
		return fmt.Errorf("configuring projection: %w", err)
	}
	e.choropleth.Invalidate()
	if e.state < BoundsConfigured {
		e.setState(BoundsConfigured)
	}
	e.log.Debug("projection_configured",
		"generation", e.projector.Generation(), "width", w, "height", h)
	return nil
}

// HandleMessage decodes and handles a raw snapshot message. Malformed
// messages never reach the gate.
func (e *Engine) HandleMessage(data []byte) (bool, error) {
	s, err := snapshot.Decode(data)
	if err != nil {
		e.rec.SnapshotRejected()
		e.log.Warn("snapshot_rejected", "error", err)
		return false, err
	}
	return e.HandleSnapshot(s)
}

// HandleSnapshot admits s if it is well formed and newer than every
// earlier snapshot, and repaints from it. It reports whether s was
// admitted. A stale or duplicate snapshot is not an error; a malformed one
// fails with snapshot.ErrMalformed and leaves the gate untouched.
func (e *Engine) HandleSnapshot(s *snapshot.Snapshot) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s != nil {
		if err := s.Validate().Err(); err != nil {
			e.rec.SnapshotRejected()
			e.log.Warn("snapshot_rejected", "counter", s.Counter, "error", err)
			return false, fmt.Errorf("%w: %v", snapshot.ErrMalformed, err)
		}
	}
	if !e.gate.Admit(s) {
		e.rec.SnapshotDropped()
		if s != nil {
			last, _ := e.gate.Last()
			e.log.Debug("snapshot_dropped", "counter", s.Counter, "last", last)
		}
		return false, nil
	}
	e.last = s
	e.rec.SnapshotAdmitted(s.Counter)
	e.log.Debug("snapshot_admitted", "counter", s.Counter, "districts", len(s.Districts))

	if e.state < BoundsConfigured {
		e.log.Info("snapshot_held", "counter", s.Counter, "state", e.state.String())
		return true, nil
	}
	return true, e.paint()
}

// HandleCommand applies a control message.
func (e *Engine) HandleCommand(data []byte) error {
	cmd, err := ParseCommand(data)
	if err != nil {
		e.log.Info("command_ignored", "error", err)
		return err
	}
	return e.SetFocus(cmd.Metric)
}

// SetFocus changes the focused metric and repaints from the last admitted
// snapshot. An unknown metric is returned and leaves the view as it is.
func (e *Engine) SetFocus(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.catalog.Lookup(name); err != nil {
		e.log.Info("focus_rejected", "metric", name, "focus", e.focus)
		return err
	}
	if name == e.focus {
		return nil
	}
	e.log.Info("focus_changed", "from", e.focus, "to", name)
	e.focus = name
	if e.state < BoundsConfigured {
		return nil
	}
	return e.paint()
}

// Resize changes the canvas size and redraws everything. Once the new
// viewport is applied a failed paint shows up in Status only.
func (e *Engine) Resize(width, height float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := *e.layout
	next.Width, next.Height = width, height
	if err := next.Validate(); err != nil {
		return fmt.Errorf("resize to %vx%v: %w", width, height, err)
	}
	*e.layout = next
	e.canvas.Resize(width, height)
	e.log.Info("resized", "width", width, "height", height)

	if e.state < GeometryReady {
		return nil
	}
	if err := e.configureProjector(); err != nil {
		return err
	}
	e.repaintAfterLayout()
	return nil
}

// repaintAfterLayout paints after a projection change. When the plan
// cannot be painted the map is still redrawn with its last fills.
func (e *Engine) repaintAfterLayout() {
	if err := e.paint(); err != nil && !e.choropleth.Drawn() {
		if err := e.choropleth.Repaint(e.store.Units()); err != nil {
			e.log.Warn("map_redraw_failed", "error", err)
		}
	}
}

// paint redraws from the last admitted snapshot, or draws the bare map
// when there is none yet.
func (e *Engine) paint() error {
	if e.last == nil {
		if err := e.choropleth.Repaint(e.store.Units()); err != nil {
			return e.fail(err)
		}
		return nil
	}

	start := time.Now()
	records, desc, err := e.aggregator.Describe(e.last, e.focus, e.catalog)
	if err != nil {
		return e.fail(err)
	}
	if err := e.choropleth.Apply(records, desc); err != nil {
		return e.fail(err)
	}
	if err := e.choropleth.Repaint(e.store.Units()); err != nil {
		return e.fail(err)
	}
	if err := e.histograms.Update(records, desc); err != nil {
		return e.fail(err)
	}
	e.legend.Repaint(desc)
	e.labels.Repaint(desc, records)
	view.ClearNotice(e.canvas)

	e.lastErr = nil
	e.painted, e.hasPaint = e.last.Counter, true
	if e.state != Live {
		e.setState(Live)
	}
	elapsed := time.Since(start)
	e.rec.RepaintDone(elapsed)
	e.log.Debug("repainted", "counter", e.last.Counter, "focus", e.focus, "elapsed", elapsed)
	return nil
}

// fail is the single sink for repaint errors: the last good drawing stays
// in place under a stale notice.
func (e *Engine) fail(err error) error {
	reason := Reason(err)
	e.lastErr = err
	e.rec.RepaintFailed(reason)
	e.log.Warn("repaint_failed", "reason", reason, "focus", e.focus, "error", err)
	view.ShowNotice(e.canvas, e.layout, "stale: "+err.Error())
	return err
}

// Reason classifies a repaint error for logs and metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, district.ErrIncomplete):
		return "incomplete"
	case errors.Is(err, district.ErrMissingMetric):
		return "missing_metric"
	case errors.Is(err, precinct.ErrNotFound):
		return "unknown_precinct"
	case errors.Is(err, projection.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, metric.ErrUnknownMetric):
		return "unknown_metric"
	}
	return "other"
}

func (e *Engine) setState(s State) {
	e.log.Info("state_changed", "from", e.state.String(), "to", s.String())
	e.state = s
	e.rec.StateChanged(s)
}
