package scene2d

import (
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/distopia/districtview/pkg/geo"
)

// Assemble2D converts the retained canvas into a serializable scene. Every
// layer is emitted, in paint order, even when empty.
func Assemble2D(c *Canvas) *Scene2D {
	sc := &Scene2D{
		Metadata: assembleMetadata(c),
		Layers:   make([]Layer2D, 0, len(Layers)),
	}
	for _, l := range Layers {
		sc.Layers = append(sc.Layers, assembleLayer(c, l))
	}
	return sc
}

func assembleMetadata(c *Canvas) Metadata {
	w, h := c.Size()
	md := Metadata{
		Width:       w,
		Height:      h,
		Version:     c.Version(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if notices := c.Texts(LayerNotice); len(notices) > 0 {
		md.Stale = true
		md.Notice = notices[0].Body
	}
	return md
}

func assembleLayer(c *Canvas, l Layer) Layer2D {
	off := c.Offset(l)
	out := Layer2D{
		Name:     l.String(),
		Offset:   [2]float64{off.X, off.Y},
		Polygons: assemblePolygons(c.Polygons(l)),
		Rects:    assembleRects(c.Rects(l)),
		Texts:    assembleTexts(c.Texts(l)),
	}
	return out
}

func assemblePolygons(polys []Polygon) []Polygon2D {
	result := make([]Polygon2D, 0, len(polys))
	for _, p := range polys {
		result = append(result, Polygon2D{
			Key:    p.Key,
			Points: pointsToCoords(p.Points),
			Fill:   colorHex(p.Fill),
			Stroke: colorHex(p.Stroke),
		})
	}
	return result
}

func assembleRects(rects []Rect) []Rect2D {
	result := make([]Rect2D, 0, len(rects))
	for _, r := range rects {
		result = append(result, Rect2D{
			X:      r.X,
			Y:      r.Y,
			Width:  r.Width,
			Height: r.Height,
			Fill:   colorHex(r.Fill),
		})
	}
	return result
}

func assembleTexts(texts []Text) []Text2D {
	result := make([]Text2D, 0, len(texts))
	for _, t := range texts {
		result = append(result, Text2D{
			X:      t.X,
			Y:      t.Y,
			Text:   t.Body,
			Size:   t.Size,
			Color:  colorHex(t.Color),
			Anchor: string(t.Anchor),
		})
	}
	return result
}

// pointsToCoords converts a []geo.Point to a [][2]float64 coordinate list.
func pointsToCoords(pts []geo.Point) [][2]float64 {
	coords := make([][2]float64, len(pts))
	for i, pt := range pts {
		coords[i] = [2]float64{pt.X, pt.Y}
	}
	return coords
}

// colorHex renders a color as #rrggbb, or "none" when fully transparent.
func colorHex(c drawing.Color) string {
	if c.A == 0 {
		return "none"
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
