package view

import (
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/distopia/districtview/pkg/district"
	"github.com/distopia/districtview/pkg/geo"
	"github.com/distopia/districtview/pkg/metric"
	"github.com/distopia/districtview/pkg/precinct"
	"github.com/distopia/districtview/pkg/projection"
	"github.com/distopia/districtview/pkg/scene2d"
)

// Outline is the stroke drawn around every unit.
var Outline = drawing.Color{R: 90, G: 90, B: 90, A: 255}

// Choropleth colors every unit by the scalar value of the district that
// owns it.
type Choropleth struct {
	store     *precinct.Store
	projector *projection.Projector
	canvas    *scene2d.Canvas
	layout    *Layout

	drawn      bool
	generation uint64
}

// NewChoropleth creates the map view. layout is read on every full
// redraw, so the owner may change it in place and call Invalidate.
func NewChoropleth(store *precinct.Store, projector *projection.Projector, canvas *scene2d.Canvas, layout *Layout) *Choropleth {
	return &Choropleth{store: store, projector: projector, canvas: canvas, layout: layout}
}

// Apply sets the fill of every unit of every district. Units that belong
// to no district lose their fill and draw as metric.Neutral.
func (c *Choropleth) Apply(districts []district.Focused, desc metric.Descriptor) error {
	owned := make(map[int]bool)
	for _, d := range districts {
		for _, id := range d.Precincts {
			owned[id] = true
		}
	}
	for _, u := range c.store.Units() {
		if owned[u.ID] || !u.Filled() {
			continue
		}
		u.Fill = drawing.Color{}
		if err := c.store.Set(u.ID, u); err != nil {
			return fmt.Errorf("clearing unit %d: %w", u.ID, err)
		}
	}

	for _, d := range districts {
		fill := desc.Scale(d.ScalarValue, d.ScalarMaximum)
		for _, id := range d.Precincts {
			u, err := c.store.Get(id)
			if err != nil {
				return fmt.Errorf("applying %s to district %d: %w", desc.Name, d.Index, err)
			}
			u.Fill = fill
			if err := c.store.Set(id, u); err != nil {
				return fmt.Errorf("applying %s to district %d: %w", desc.Name, d.Index, err)
			}
		}
	}
	return nil
}

// Repaint brings the map layer in line with units. The first call for a
// projector generation rebuilds every polygon; later calls only rebind
// fills.
func (c *Choropleth) Repaint(units []precinct.Unit) error {
	if c.drawn && c.generation == c.projector.Generation() {
		err := c.rebind(units)
		if err == nil || !errors.Is(err, scene2d.ErrNoPrimitive) {
			return err
		}
		// The unit set changed under us; fall through to a full redraw.
	}
	return c.redraw(units)
}

// Invalidate forces the next Repaint to rebuild every polygon.
func (c *Choropleth) Invalidate() {
	c.drawn = false
}

// Drawn reports whether the polygons exist for the current projection.
func (c *Choropleth) Drawn() bool {
	return c.drawn && c.generation == c.projector.Generation()
}

func (c *Choropleth) redraw(units []precinct.Unit) error {
	projected := make([][]geo.Point, len(units))
	for i, u := range units {
		pts, err := c.projector.ProjectAll(u.Boundary)
		if err != nil {
			return err
		}
		projected[i] = pts
	}

	c.canvas.Clear(scene2d.LayerMap)
	c.canvas.SetOffset(scene2d.LayerMap, c.layout.MapOrigin())
	for i, u := range units {
		c.canvas.AddPolygon(scene2d.LayerMap, scene2d.Polygon{
			Key:         u.ID,
			Points:      projected[i],
			Fill:        fillOf(u),
			Stroke:      Outline,
			StrokeWidth: 0.5,
		})
	}
	c.drawn = true
	c.generation = c.projector.Generation()
	return nil
}

func (c *Choropleth) rebind(units []precinct.Unit) error {
	for _, u := range units {
		if err := c.canvas.SetFill(scene2d.LayerMap, u.ID, fillOf(u)); err != nil {
			return err
		}
	}
	return nil
}

func fillOf(u precinct.Unit) drawing.Color {
	if !u.Filled() {
		return metric.Neutral
	}
	return u.Fill
}
