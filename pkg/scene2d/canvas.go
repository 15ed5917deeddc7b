package scene2d

import (
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/distopia/districtview/pkg/geo"
)

// ErrNoPrimitive is returned when a keyed primitive does not exist.
var ErrNoPrimitive = errors.New("no such primitive")

// Layer identifies a drawing layer. Layers are painted in declaration
// order, so later layers draw on top.
type Layer int

const (
	LayerMap Layer = iota
	LayerLabels
	LayerLegend
	LayerNotice
	layerCount
)

// Layers lists every layer in paint order.
var Layers = []Layer{LayerMap, LayerLabels, LayerLegend, LayerNotice}

func (l Layer) String() string {
	switch l {
	case LayerMap:
		return "map"
	case LayerLabels:
		return "labels"
	case LayerLegend:
		return "legend"
	case LayerNotice:
		return "notice"
	}
	return fmt.Sprintf("layer(%d)", int(l))
}

// Anchor is the horizontal alignment of a text primitive.
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorMiddle Anchor = "middle"
	AnchorEnd    Anchor = "end"
)

// Polygon is a closed, filled outline addressed by key.
type Polygon struct {
	Key         int
	Points      []geo.Point
	Fill        drawing.Color
	Stroke      drawing.Color
	StrokeWidth float64
}

// Rect is an axis-aligned filled rectangle.
type Rect struct {
	X, Y, Width, Height float64
	Fill                drawing.Color
	Stroke              drawing.Color
}

// Text is a single line of text positioned at its baseline.
type Text struct {
	X, Y   float64
	Body   string
	Size   float64
	Color  drawing.Color
	Anchor Anchor
}

// Counts is the number of primitives on a layer.
type Counts struct {
	Polygons int
	Rects    int
	Texts    int
}

type layer struct {
	offset   geo.Point
	polygons []*Polygon
	byKey    map[int]*Polygon
	rects    []Rect
	texts    []Text
}

func newLayer() *layer {
	return &layer{byKey: make(map[int]*Polygon)}
}

// Canvas is a retained-mode drawing surface. Primitives stay in place
// until their layer is cleared, so callers can update polygon fills
// without rebuilding the scene. A Canvas is not safe for concurrent use.
type Canvas struct {
	width, height float64
	layers        [layerCount]*layer
	version       uint64
}

// NewCanvas creates an empty canvas of the given size.
func NewCanvas(width, height float64) *Canvas {
	c := &Canvas{width: width, height: height}
	for i := range c.layers {
		c.layers[i] = newLayer()
	}
	return c
}

// Size returns the canvas dimensions.
func (c *Canvas) Size() (width, height float64) {
	return c.width, c.height
}

// Resize changes the canvas dimensions. Existing primitives are kept;
// callers that depend on the size redraw them.
func (c *Canvas) Resize(width, height float64) {
	if width == c.width && height == c.height {
		return
	}
	c.width, c.height = width, height
	c.version++
}

// Version increases on every change to the canvas contents.
func (c *Canvas) Version() uint64 {
	return c.version
}

// Clear removes every primitive from a layer and resets its offset.
func (c *Canvas) Clear(l Layer) {
	ly := c.layer(l)
	if len(ly.polygons) == 0 && len(ly.rects) == 0 && len(ly.texts) == 0 && ly.offset == (geo.Point{}) {
		return
	}
	c.layers[l] = newLayer()
	c.version++
}

// SetOffset translates every primitive of a layer.
func (c *Canvas) SetOffset(l Layer, offset geo.Point) {
	ly := c.layer(l)
	if ly.offset == offset {
		return
	}
	ly.offset = offset
	c.version++
}

// Offset returns the translation of a layer.
func (c *Canvas) Offset(l Layer) geo.Point {
	return c.layer(l).offset
}

// AddPolygon appends a polygon. A polygon with the same key on the same
// layer is replaced.
func (c *Canvas) AddPolygon(l Layer, p Polygon) {
	ly := c.layer(l)
	p.Points = append([]geo.Point(nil), p.Points...)
	if old, ok := ly.byKey[p.Key]; ok {
		*old = p
	} else {
		np := &p
		ly.polygons = append(ly.polygons, np)
		ly.byKey[p.Key] = np
	}
	c.version++
}

// SetFill rebinds the fill of an existing polygon.
func (c *Canvas) SetFill(l Layer, key int, fill drawing.Color) error {
	p, ok := c.layer(l).byKey[key]
	if !ok {
		return fmt.Errorf("%w: %s polygon %d", ErrNoPrimitive, l, key)
	}
	if p.Fill == fill {
		return nil
	}
	p.Fill = fill
	c.version++
	return nil
}

// Fill returns the fill of a polygon.
func (c *Canvas) Fill(l Layer, key int) (drawing.Color, bool) {
	p, ok := c.layer(l).byKey[key]
	if !ok {
		return drawing.Color{}, false
	}
	return p.Fill, true
}

// AddRect appends a rectangle.
func (c *Canvas) AddRect(l Layer, r Rect) {
	ly := c.layer(l)
	ly.rects = append(ly.rects, r)
	c.version++
}

// AddText appends a text primitive.
func (c *Canvas) AddText(l Layer, t Text) {
	ly := c.layer(l)
	if t.Anchor == "" {
		t.Anchor = AnchorStart
	}
	ly.texts = append(ly.texts, t)
	c.version++
}

// Count returns the number of primitives on a layer.
func (c *Canvas) Count(l Layer) Counts {
	ly := c.layer(l)
	return Counts{Polygons: len(ly.polygons), Rects: len(ly.rects), Texts: len(ly.texts)}
}

// Polygons returns copies of a layer's polygons in draw order.
func (c *Canvas) Polygons(l Layer) []Polygon {
	ly := c.layer(l)
	out := make([]Polygon, len(ly.polygons))
	for i, p := range ly.polygons {
		out[i] = *p
	}
	return out
}

// Rects returns a layer's rectangles in draw order.
func (c *Canvas) Rects(l Layer) []Rect {
	return append([]Rect(nil), c.layer(l).rects...)
}

// Texts returns a layer's texts in draw order.
func (c *Canvas) Texts(l Layer) []Text {
	return append([]Text(nil), c.layer(l).texts...)
}

func (c *Canvas) layer(l Layer) *layer {
	if l < 0 || l >= layerCount {
		panic(fmt.Sprintf("scene2d: invalid %s", l))
	}
	return c.layers[l]
}
