package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Polygon is a closed polygon defined by its vertices in order. The
// closing edge from the last vertex back to the first is implicit.
type Polygon struct {
	Vertices []Point
}

// NewPolygon creates a polygon from a list of vertices.
func NewPolygon(pts ...Point) Polygon {
	return Polygon{Vertices: pts}
}

// IsEmpty returns true if the polygon has fewer than 3 vertices.
func (p Polygon) IsEmpty() bool {
	return len(p.Vertices) < 3
}

// SignedArea returns the signed area using the shoelace formula.
// Positive for counterclockwise winding, negative for clockwise.
func (p Polygon) SignedArea() float64 {
	n := len(p.Vertices)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += p.Vertices[i].X * p.Vertices[j].Y
		area -= p.Vertices[j].X * p.Vertices[i].Y
	}
	return area / 2
}

// Area returns the unsigned area of the polygon.
func (p Polygon) Area() float64 {
	return math.Abs(p.SignedArea())
}

// Ring converts the polygon to an orb.Ring.
func (p Polygon) Ring() orb.Ring {
	r := make(orb.Ring, len(p.Vertices))
	for i, v := range p.Vertices {
		r[i] = v.Orb()
	}
	return r
}

// Simplify returns a Douglas-Peucker simplification of the polygon.
// The original is returned when tolerance is not positive or when the
// result would no longer be a polygon.
func (p Polygon) Simplify(tolerance float64) Polygon {
	if tolerance <= 0 || p.IsEmpty() {
		return p
	}
	g := simplify.DouglasPeucker(tolerance).Simplify(p.Ring().Clone())
	r, ok := g.(orb.Ring)
	if !ok {
		return p
	}
	out := make([]Point, 0, len(r))
	for _, v := range r {
		out = append(out, FromOrb(v))
	}
	// A closed ring repeats its first vertex.
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	if len(out) < 3 {
		return p
	}
	return Polygon{Vertices: out}
}
