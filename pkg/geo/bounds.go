package geo

import "github.com/paulmach/orb"

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// BoundsOf returns the bounding box of pts. The zero Bounds is returned
// for an empty slice.
func BoundsOf(pts []Point) Bounds {
	if len(pts) == 0 {
		return Bounds{}
	}
	b := orb.Bound{Min: pts[0].Orb(), Max: pts[0].Orb()}
	for _, p := range pts[1:] {
		b = b.Extend(p.Orb())
	}
	return FromBound(b)
}

// FromBound converts an orb.Bound.
func FromBound(b orb.Bound) Bounds {
	return Bounds{MinX: b.Min.X(), MinY: b.Min.Y(), MaxX: b.Max.X(), MaxY: b.Max.Y()}
}

// Bound converts b to an orb.Bound.
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
}

// Union returns the smallest box containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return FromBound(b.Bound().Union(o.Bound()))
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Point {
	return FromOrb(b.Bound().Center())
}

// Corners returns the min and max corners.
func (b Bounds) Corners() (Point, Point) {
	return Point{b.MinX, b.MinY}, Point{b.MaxX, b.MaxY}
}
