package view

import (
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/distopia/districtview/pkg/metric"
	"github.com/distopia/districtview/pkg/scene2d"
)

// TextColor is used for every label the views draw.
var TextColor = drawing.ColorBlack

// Legend draws the color key for the focused metric.
type Legend struct {
	canvas *scene2d.Canvas
	layout *Layout
}

// NewLegend creates the legend view.
func NewLegend(canvas *scene2d.Canvas, layout *Layout) *Legend {
	return &Legend{canvas: canvas, layout: layout}
}

// Repaint replaces the legend with the key for desc: evenly spaced
// swatches from the first to the last domain stop and the two extreme
// values with their unit label.
func (l *Legend) Repaint(desc metric.Descriptor) {
	c := l.canvas
	c.Clear(scene2d.LayerLegend)
	c.SetOffset(scene2d.LayerLegend, l.layout.LegendOrigin())

	n := l.layout.Swatches
	key := l.layout.LegendHeight
	side := key - 40
	if side <= 0 {
		side = key / 2
	}
	lo, hi := desc.DomainMin(), desc.DomainMax()
	step := (hi - lo) / float64(n-1)
	for i := 0; i < n; i++ {
		c.AddRect(scene2d.LayerLegend, scene2d.Rect{
			X:      float64(i) * key,
			Y:      20,
			Width:  side,
			Height: side,
			Fill:   desc.Scale(lo+float64(i)*step, hi),
			Stroke: Outline,
		})
	}
	c.AddText(scene2d.LayerLegend, scene2d.Text{
		X:     0,
		Y:     key - 8,
		Body:  extremeLabel(lo, desc.Label),
		Size:  l.layout.LabelSize,
		Color: TextColor,
	})
	c.AddText(scene2d.LayerLegend, scene2d.Text{
		X:     float64(n-1) * key,
		Y:     key - 8,
		Body:  extremeLabel(hi, desc.Label),
		Size:  l.layout.LabelSize,
		Color: TextColor,
	})
}

// Swatches returns the fills of the drawn swatches in order.
func (l *Legend) Swatches() []drawing.Color {
	rects := l.canvas.Rects(scene2d.LayerLegend)
	out := make([]drawing.Color, len(rects))
	for i, r := range rects {
		out[i] = r.Fill
	}
	return out
}

func extremeLabel(v float64, unit string) string {
	return strings.TrimSpace(strconv.FormatFloat(v, 'f', -1, 64) + " " + unit)
}
