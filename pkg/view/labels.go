package view

import (
	"strconv"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/distopia/districtview/pkg/district"
	"github.com/distopia/districtview/pkg/metric"
	"github.com/distopia/districtview/pkg/scene2d"
)

// Labels draws the metric heading and the district index labels.
type Labels struct {
	canvas *scene2d.Canvas
	layout *Layout
}

// NewLabels creates the label view.
func NewLabels(canvas *scene2d.Canvas, layout *Layout) *Labels {
	return &Labels{canvas: canvas, layout: layout}
}

// Repaint replaces the heading and puts each district's index at the
// center of its screen-space bounding box.
func (l *Labels) Repaint(desc metric.Descriptor, districts []district.Focused) {
	c := l.canvas
	c.Clear(scene2d.LayerLabels)

	title := desc.Title
	if title == "" {
		title = desc.Name
	}
	at := l.layout.TitleAt()
	c.AddText(scene2d.LayerLabels, scene2d.Text{
		X:      at.X,
		Y:      at.Y,
		Body:   title,
		Size:   l.layout.TitleSize,
		Color:  TextColor,
		Anchor: scene2d.AnchorMiddle,
	})

	origin := l.layout.MapOrigin()
	for _, d := range districts {
		p := d.LabelAt.Add(origin)
		c.AddText(scene2d.LayerLabels, scene2d.Text{
			X:      p.X,
			Y:      p.Y,
			Body:   strconv.Itoa(d.Index),
			Size:   l.layout.LabelSize,
			Color:  TextColor,
			Anchor: scene2d.AnchorMiddle,
		})
	}
}

// NoticeColor is the color of the stale-view banner.
var NoticeColor = drawing.Color{R: 208, G: 2, B: 27, A: 255}

// ShowNotice replaces the notice banner. The rest of the canvas is left
// as it was last painted.
func ShowNotice(c *scene2d.Canvas, layout *Layout, text string) {
	c.Clear(scene2d.LayerNotice)
	c.AddText(scene2d.LayerNotice, scene2d.Text{
		X:     layout.Margin / 2,
		Y:     layout.TitleHeight + layout.LabelSize + 4,
		Body:  text,
		Size:  layout.LabelSize,
		Color: NoticeColor,
	})
}

// ClearNotice removes the notice banner.
func ClearNotice(c *scene2d.Canvas) {
	c.Clear(scene2d.LayerNotice)
}
