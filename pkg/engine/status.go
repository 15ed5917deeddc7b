package engine

import (
	"fmt"
	"io"

	"github.com/distopia/districtview/pkg/scene2d"
	"github.com/distopia/districtview/pkg/view"
)

// Status is a point-in-time summary of the engine.
type Status struct {
	State          string   `json:"state"`
	Focus          string   `json:"focus"`
	Metrics        []string `json:"metrics"`
	Units          int      `json:"units"`
	LastCounter    *int64   `json:"last_counter,omitempty"`
	PaintedCounter *int64   `json:"painted_counter,omitempty"`
	Admitted       uint64   `json:"admitted"`
	Dropped        uint64   `json:"dropped"`
	Stale          bool     `json:"stale"`
	Error          string   `json:"error,omitempty"`
	Generation     uint64   `json:"projection_generation"`
	CanvasVersion  uint64   `json:"canvas_version"`
}

// Status returns the current status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	admitted, dropped := e.gate.Stats()
	st := Status{
		State:         e.state.String(),
		Focus:         e.focus,
		Metrics:       e.catalog.Names(),
		Units:         e.store.Len(),
		Admitted:      admitted,
		Dropped:       dropped,
		Stale:         e.lastErr != nil,
		Generation:    e.projector.Generation(),
		CanvasVersion: e.canvas.Version(),
	}
	if last, ok := e.gate.Last(); ok {
		st.LastCounter = &last
	}
	if e.hasPaint {
		painted := e.painted
		st.PaintedCounter = &painted
	}
	if e.lastErr != nil {
		st.Error = e.lastErr.Error()
	}
	return st
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Focus returns the focused metric.
func (e *Engine) Focus() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focus
}

// Scene returns the serialized canvas.
func (e *Engine) Scene() *scene2d.Scene2D {
	e.mu.Lock()
	defer e.mu.Unlock()
	return scene2d.Assemble2D(e.canvas)
}

// WriteSVG renders the canvas as SVG.
func (e *Engine) WriteSVG(w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canvas.WriteSVG(w)
}

// HistogramSlots returns the number of histogram panels.
func (e *Engine) HistogramSlots() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.histograms.Len()
}

// Histogram returns the bars of one district panel.
func (e *Engine) Histogram(slot int) ([]view.Bar, float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, err := e.histograms.Slot(slot)
	if err != nil {
		return nil, 0, err
	}
	return h.Bars(), h.Maximum(), nil
}

// WriteHistogramSVG renders one district panel as SVG.
func (e *Engine) WriteHistogramSVG(slot int, w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, err := e.histograms.Slot(slot)
	if err != nil {
		return fmt.Errorf("histogram %d: %w", slot, err)
	}
	return h.WriteSVG(w)
}
