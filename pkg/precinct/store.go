// Package precinct owns the geographic units of a jurisdiction: their
// boundaries, bounding boxes and current fill.
package precinct

import (
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/distopia/districtview/pkg/geo"
)

var (
	// ErrNotFound is returned for an id outside the loaded units.
	ErrNotFound = errors.New("precinct not found")
	// ErrNotReady is returned while records or polygons are still missing.
	ErrNotReady = errors.New("geometry not loaded")
	// ErrInvalidGeometry is returned for polygon data that cannot form units.
	ErrInvalidGeometry = errors.New("invalid geometry")
)

// Record is the metadata half of a unit, as delivered by the records
// resource.
type Record struct {
	SourceID int
	Name     string
}

// Unit is one geographic unit (a precinct or county).
type Unit struct {
	ID       int           `json:"id"`
	SourceID int           `json:"source_id"`
	Name     string        `json:"name"`
	Boundary []geo.Point   `json:"boundary"`
	BBox     geo.Bounds    `json:"bbox"`
	Fill     drawing.Color `json:"-"`
}

// Filled reports whether a fill has been assigned. The zero color is
// fully transparent and means unset.
func (u Unit) Filled() bool {
	return u.Fill.A != 0
}

// Store indexes units by their position in the records resource.
// Records and polygons are fetched independently and may arrive in any
// order; polygons received first are held until the records are loaded.
type Store struct {
	simplify float64

	records  []Record
	polygons [][][]geo.Point
	units    []Unit
	bounds   geo.Bounds
	ready    bool
}

// Option configures a Store.
type Option func(*Store)

// WithSimplify enables Douglas-Peucker simplification of every boundary
// at load time.
func WithSimplify(tolerance float64) Option {
	return func(s *Store) {
		s.simplify = tolerance
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load sets both resources at once.
func (s *Store) Load(records []Record, polygons [][][]geo.Point) error {
	if err := s.LoadRecords(records); err != nil {
		return err
	}
	return s.LoadPolygons(polygons)
}

// LoadRecords sets the records resource.
func (s *Store) LoadRecords(records []Record) error {
	s.records = append([]Record(nil), records...)
	return s.build()
}

// LoadPolygons sets the polygons resource. Each entry is a list of rings;
// the first ring is the unit boundary.
func (s *Store) LoadPolygons(polygons [][][]geo.Point) error {
	for i, rings := range polygons {
		if len(rings) == 0 || len(rings[0]) < 3 {
			return fmt.Errorf("%w: polygon %d has fewer than 3 boundary points", ErrInvalidGeometry, i)
		}
		for j, p := range rings[0] {
			if !p.IsFinite() {
				return fmt.Errorf("%w: polygon %d point %d is not finite", ErrInvalidGeometry, i, j)
			}
		}
	}
	s.polygons = polygons
	return s.build()
}

// build materializes units once both resources are present. Rebuilding
// from identical input yields identical units and keeps existing fills.
func (s *Store) build() error {
	if s.records == nil || s.polygons == nil {
		return nil
	}
	if len(s.records) != len(s.polygons) {
		return fmt.Errorf("%w: %d records but %d polygons", ErrInvalidGeometry, len(s.records), len(s.polygons))
	}

	units := make([]Unit, len(s.records))
	var bounds geo.Bounds
	for i, rec := range s.records {
		boundary := geo.NewPolygon(s.polygons[i][0]...).Simplify(s.simplify).Vertices
		bbox := geo.BoundsOf(boundary)
		units[i] = Unit{
			ID:       i,
			SourceID: rec.SourceID,
			Name:     rec.Name,
			Boundary: boundary,
			BBox:     bbox,
		}
		if i < len(s.units) && sameGeometry(s.units[i], units[i]) {
			units[i].Fill = s.units[i].Fill
		}
		if i == 0 {
			bounds = bbox
		} else {
			bounds = bounds.Union(bbox)
		}
	}

	s.units = units
	s.bounds = bounds
	s.ready = len(units) > 0
	return nil
}

func sameGeometry(a, b Unit) bool {
	if a.SourceID != b.SourceID || len(a.Boundary) != len(b.Boundary) {
		return false
	}
	for i := range a.Boundary {
		if a.Boundary[i] != b.Boundary[i] {
			return false
		}
	}
	return true
}

// Ready reports whether both resources have been loaded.
func (s *Store) Ready() bool {
	return s.ready
}

// Len returns the number of units.
func (s *Store) Len() int {
	return len(s.units)
}

// Bounds returns the bounding box over all boundary points.
func (s *Store) Bounds() (geo.Bounds, error) {
	if !s.ready {
		return geo.Bounds{}, ErrNotReady
	}
	return s.bounds, nil
}

// Get returns the unit with the given id.
func (s *Store) Get(id int) (Unit, error) {
	if id < 0 || id >= len(s.units) {
		return Unit{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.units[id], nil
}

// Set replaces the unit with the given id. It never allocates new ids;
// callers Get the unit first and write back the modified copy.
func (s *Store) Set(id int, u Unit) error {
	if id < 0 || id >= len(s.units) {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	u.ID = id
	s.units[id] = u
	return nil
}

// Units returns a copy of all units in id order.
func (s *Store) Units() []Unit {
	return append([]Unit(nil), s.units...)
}
