package scene2d

import (
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/distopia/districtview/pkg/geo"
)

const defaultFontSize = 12

// WriteSVG paints every layer of the canvas onto a go-chart vector
// renderer and writes the resulting SVG document.
func (c *Canvas) WriteSVG(w io.Writer) error {
	width, height := c.Size()
	r, err := chart.SVG(int(math.Ceil(width)), int(math.Ceil(height)))
	if err != nil {
		return fmt.Errorf("creating svg renderer: %w", err)
	}
	if font, err := chart.GetDefaultFont(); err == nil {
		r.SetFont(font)
	}

	for _, l := range Layers {
		off := c.Offset(l)
		for _, p := range c.Polygons(l) {
			drawPolygon(r, off, p)
		}
		for _, rc := range c.Rects(l) {
			drawRect(r, off, rc)
		}
		for _, t := range c.Texts(l) {
			drawText(r, off, t)
		}
	}

	if err := r.Save(w); err != nil {
		return fmt.Errorf("writing svg: %w", err)
	}
	return nil
}

func drawPolygon(r chart.Renderer, off geo.Point, p Polygon) {
	if len(p.Points) < 3 {
		return
	}
	r.SetFillColor(p.Fill)
	r.SetStrokeColor(p.Stroke)
	r.SetStrokeWidth(p.StrokeWidth)
	first := p.Points[0].Add(off)
	r.MoveTo(px(first.X), px(first.Y))
	for _, pt := range p.Points[1:] {
		q := pt.Add(off)
		r.LineTo(px(q.X), px(q.Y))
	}
	r.Close()
	r.FillStroke()
}

func drawRect(r chart.Renderer, off geo.Point, rc Rect) {
	x0, y0 := px(rc.X+off.X), px(rc.Y+off.Y)
	x1, y1 := px(rc.X+rc.Width+off.X), px(rc.Y+rc.Height+off.Y)
	r.SetFillColor(rc.Fill)
	r.SetStrokeColor(rc.Stroke)
	r.SetStrokeWidth(1)
	r.MoveTo(x0, y0)
	r.LineTo(x1, y0)
	r.LineTo(x1, y1)
	r.LineTo(x0, y1)
	r.Close()
	r.FillStroke()
}

func drawText(r chart.Renderer, off geo.Point, t Text) {
	size := t.Size
	if size <= 0 {
		size = defaultFontSize
	}
	r.SetFontColor(t.Color)
	r.SetFontSize(size)
	x := t.X + off.X
	// The vector renderer has no text-anchor, so approximate the width.
	approx := 0.55 * size * float64(len([]rune(t.Body)))
	switch t.Anchor {
	case AnchorMiddle:
		x -= approx / 2
	case AnchorEnd:
		x -= approx
	}
	r.Text(t.Body, px(x), px(t.Y+off.Y))
}

func px(v float64) int {
	return int(math.Round(v))
}
