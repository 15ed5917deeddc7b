// Package projection maps geographic coordinates into screen space.
package projection

import (
	"errors"
	"fmt"

	"github.com/distopia/districtview/pkg/geo"
)

// ErrNotConfigured is returned when projecting before Configure.
var ErrNotConfigured = errors.New("projector not configured")

// DefaultMargin is the screen-space padding around the map.
const DefaultMargin = 20

// linear maps [d0, d1] onto [r0, r1]. A degenerate domain maps every
// value to the range midpoint.
type linear struct {
	d0, d1, r0, r1 float64
}

func (l linear) apply(v float64) float64 {
	if l.d1 == l.d0 {
		return (l.r0 + l.r1) / 2
	}
	return l.r0 + (v-l.d0)/(l.d1-l.d0)*(l.r1-l.r0)
}

// Viewport is the screen area the map is drawn into.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Margin float64 `json:"margin"`
}

// Projector holds two independent axis maps. X runs from the west edge to
// the east edge left to right; Y is inverted because map Y grows
// northward and screen Y grows downward.
type Projector struct {
	x, y       linear
	bounds     geo.Bounds
	viewport   Viewport
	configured bool
	generation uint64
}

// New returns an unconfigured projector.
func New() *Projector {
	return &Projector{}
}

// Configure sets up the axis maps for the given map bounds and viewport.
// Every call invalidates previously projected coordinates and bumps the
// generation.
func (p *Projector) Configure(bounds geo.Bounds, width, height, margin float64) error {
	if margin < 0 {
		return fmt.Errorf("negative margin %v", margin)
	}
	if width-2*margin <= 0 || height-2*margin <= 0 {
		return fmt.Errorf("viewport %vx%v leaves no drawable area with margin %v", width, height, margin)
	}
	if bounds.MaxX < bounds.MinX || bounds.MaxY < bounds.MinY {
		return fmt.Errorf("inverted bounds %+v", bounds)
	}

	p.x = linear{d0: bounds.MinX, d1: bounds.MaxX, r0: margin, r1: width - margin}
	p.y = linear{d0: bounds.MinY, d1: bounds.MaxY, r0: height - margin, r1: margin}
	p.bounds = bounds
	p.viewport = Viewport{Width: width, Height: height, Margin: margin}
	p.configured = true
	p.generation++
	return nil
}

// Configured reports whether Configure has succeeded at least once.
func (p *Projector) Configured() bool {
	return p.configured
}

// Generation identifies the current configuration. It is zero before the
// first Configure.
func (p *Projector) Generation() uint64 {
	return p.generation
}

// Viewport returns the configured viewport.
func (p *Projector) Viewport() Viewport {
	return p.viewport
}

// Project maps a geographic point to screen space.
func (p *Projector) Project(pt geo.Point) (geo.Point, error) {
	if !p.configured {
		return geo.Point{}, ErrNotConfigured
	}
	return geo.Point{X: p.x.apply(pt.X), Y: p.y.apply(pt.Y)}, nil
}

// ProjectAll maps every point of a boundary.
func (p *Projector) ProjectAll(pts []geo.Point) ([]geo.Point, error) {
	if !p.configured {
		return nil, ErrNotConfigured
	}
	out := make([]geo.Point, len(pts))
	for i, pt := range pts {
		out[i] = geo.Point{X: p.x.apply(pt.X), Y: p.y.apply(pt.Y)}
	}
	return out, nil
}

// ProjectBounds maps a geographic box to the screen box it covers. The
// inverted Y axis swaps which corner ends up on top.
func (p *Projector) ProjectBounds(b geo.Bounds) (geo.Bounds, error) {
	lo, hi := b.Corners()
	a, err := p.Project(lo)
	if err != nil {
		return geo.Bounds{}, err
	}
	c, err := p.Project(hi)
	if err != nil {
		return geo.Bounds{}, err
	}
	return geo.BoundsOf([]geo.Point{a, c}), nil
}
