package view

import (
	"errors"
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/distopia/districtview/pkg/district"
	"github.com/distopia/districtview/pkg/metric"
)

// ErrNoSlot is returned for a histogram slot that does not exist yet.
var ErrNoSlot = errors.New("no such histogram")

// ErrNoBars is returned when rendering a histogram without data.
var ErrNoBars = errors.New("histogram has no bars")

// Unstyled colors bars whose label has no style entry.
var Unstyled = drawing.Color{R: 160, G: 160, B: 160, A: 255}

// Bar is one bar of a histogram. Height is the value relative to the
// histogram maximum, clamped to [0, 1].
type Bar struct {
	Label  string        `json:"label"`
	Value  float64       `json:"value"`
	Height float64       `json:"height"`
	Fill   drawing.Color `json:"-"`
	Color  string        `json:"color"`
}

// Histogram is the bar panel of a single district.
type Histogram struct {
	slot          int
	width, height float64
	bars          []Bar
	maximum       float64
	updates       int
}

// NewHistogram creates an empty panel.
func NewHistogram(slot int, width, height float64) *Histogram {
	return &Histogram{slot: slot, width: width, height: height, maximum: 1}
}

// Slot returns the district slot the panel shows.
func (h *Histogram) Slot() int {
	return h.slot
}

// Update replaces the bar data. style maps labels to colors; labels
// without an entry are drawn Unstyled. A non-positive maximum is taken
// as 1.
func (h *Histogram) Update(data []float64, labels []string, style map[string]drawing.Color, maximum float64) {
	if maximum <= 0 || math.IsNaN(maximum) || math.IsInf(maximum, 0) {
		maximum = 1
	}
	n := len(data)
	if len(labels) < n {
		n = len(labels)
	}
	bars := make([]Bar, n)
	for i := 0; i < n; i++ {
		fill, ok := style[labels[i]]
		if !ok {
			fill = Unstyled
		}
		bars[i] = Bar{
			Label:  labels[i],
			Value:  data[i],
			Height: clamp01(data[i] / maximum),
			Fill:   fill,
			Color:  metric.Hex(fill),
		}
	}
	h.bars = bars
	h.maximum = maximum
	h.updates++
}

// Bars returns a copy of the current bars.
func (h *Histogram) Bars() []Bar {
	return append([]Bar(nil), h.bars...)
}

// Maximum returns the value drawn at full panel height.
func (h *Histogram) Maximum() float64 {
	return h.maximum
}

// Updates counts calls to Update since construction.
func (h *Histogram) Updates() int {
	return h.updates
}

// BarHeights returns the pixel height of every bar.
func (h *Histogram) BarHeights() []float64 {
	out := make([]float64, len(h.bars))
	for i, b := range h.bars {
		out[i] = b.Height * h.height
	}
	return out
}

// WriteSVG renders the panel as a go-chart bar chart.
func (h *Histogram) WriteSVG(w io.Writer) error {
	if len(h.bars) == 0 {
		return fmt.Errorf("%w: slot %d", ErrNoBars, h.slot)
	}
	values := make([]chart.Value, len(h.bars))
	for i, b := range h.bars {
		values[i] = chart.Value{
			Label: b.Label,
			// Clamp so that an overflowing bar stays inside the fixed range.
			Value: math.Min(b.Value, h.maximum),
			Style: chart.Style{FillColor: b.Fill, StrokeColor: b.Fill, StrokeWidth: 1},
		}
	}

	barWidth := int(h.width) / (2 * len(values))
	if barWidth < 4 {
		barWidth = 4
	}
	bc := chart.BarChart{
		Title:      fmt.Sprintf("%d", h.slot),
		Width:      int(h.width),
		Height:     int(h.height),
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 8, Right: 8, Bottom: 8}},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: h.maximum}},
		Bars:       values,
	}
	if err := bc.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("rendering histogram %d: %w", h.slot, err)
	}
	return nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// HistogramSet holds one panel per district slot. Panels are created on
// the first complete update and only updated afterwards.
type HistogramSet struct {
	slots         []*Histogram
	size          int
	width, height float64
}

// NewHistogramSet creates a set of n slots with the given panel size.
func NewHistogramSet(n int, width, height float64) *HistogramSet {
	return &HistogramSet{size: n, width: width, height: height}
}

// Ready reports whether the panels have been created.
func (s *HistogramSet) Ready() bool {
	return s.slots != nil
}

// Len returns the number of slots.
func (s *HistogramSet) Len() int {
	return s.size
}

// Slot returns the panel for district slot i.
func (s *HistogramSet) Slot(i int) (*Histogram, error) {
	if s.slots == nil || i < 0 || i >= len(s.slots) {
		return nil, fmt.Errorf("%w: %d", ErrNoSlot, i)
	}
	return s.slots[i], nil
}

// Update pushes each district's series into its panel. Categorical series
// take their colors from the descriptor's histogram style, others from
// the descriptor scale so that bars match the map encoding.
func (s *HistogramSet) Update(districts []district.Focused, desc metric.Descriptor) error {
	if len(districts) < s.size {
		return fmt.Errorf("%w: %d districts for %d histograms", district.ErrIncomplete, len(districts), s.size)
	}
	if s.slots == nil {
		s.slots = make([]*Histogram, s.size)
		for i := range s.slots {
			s.slots[i] = NewHistogram(i, s.width, s.height)
		}
	}
	for i, h := range s.slots {
		d := districts[i]
		maximum := desc.HistogramMaximum(d.ScalarMaximum)
		style := make(map[string]drawing.Color, len(d.Labels))
		for j, label := range d.Labels {
			if c, ok := desc.CategoryColor(label); ok {
				style[label] = c
			} else if j < len(d.Data) {
				style[label] = desc.Scale(d.Data[j], maximum)
			}
		}
		h.Update(d.Data, d.Labels, style, maximum)
	}
	return nil
}
