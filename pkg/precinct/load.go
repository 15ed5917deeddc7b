package precinct

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/distopia/districtview/pkg/geo"
)

// ParseRecords decodes the records resource: a JSON array of rows where
// column 0 is the unit id and column 3 its display name.
func ParseRecords(data []byte) ([]Record, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing records JSON: %w", err)
	}
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		if len(row) < 4 {
			return nil, fmt.Errorf("record %d: expected at least 4 columns, got %d", i, len(row))
		}
		var id float64
		if err := json.Unmarshal(row[0], &id); err != nil {
			return nil, fmt.Errorf("record %d: id: %w", i, err)
		}
		var name string
		if err := json.Unmarshal(row[3], &name); err != nil {
			return nil, fmt.Errorf("record %d: name: %w", i, err)
		}
		records = append(records, Record{SourceID: int(id), Name: name})
	}
	return records, nil
}

// ParsePolygons decodes the polygons resource: one entry per record, each
// a list of rings of [x, y] pairs.
func ParsePolygons(data []byte) ([][][]geo.Point, error) {
	var raw [][][][2]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing polygons JSON: %w", err)
	}
	polygons := make([][][]geo.Point, len(raw))
	for i, rings := range raw {
		polygons[i] = make([][]geo.Point, len(rings))
		for j, ring := range rings {
			pts := make([]geo.Point, len(ring))
			for k, c := range ring {
				pts[k] = geo.Pt(c[0], c[1])
			}
			polygons[i][j] = pts
		}
	}
	return polygons, nil
}

// ReadRecordsFile reads and parses a records file.
func ReadRecordsFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records file: %w", err)
	}
	return ParseRecords(data)
}

// ReadPolygonsFile reads and parses a polygons file.
func ReadPolygonsFile(path string) ([][][]geo.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading polygons file: %w", err)
	}
	return ParsePolygons(data)
}

// ParseGeoJSON converts a FeatureCollection into both resources at once.
// Features must be Polygon or MultiPolygon; for a MultiPolygon the largest
// member is used as the boundary. The name comes from the "name" property
// and the source id from the "id" property, defaulting to the position.
func ParseGeoJSON(data []byte) ([]Record, [][][]geo.Point, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing GeoJSON: %w", err)
	}

	records := make([]Record, 0, len(fc.Features))
	polygons := make([][][]geo.Point, 0, len(fc.Features))
	for i, f := range fc.Features {
		var poly orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			poly = g
		case orb.MultiPolygon:
			poly = largestPolygon(g)
		default:
			return nil, nil, fmt.Errorf("%w: feature %d has unsupported geometry %T", ErrInvalidGeometry, i, f.Geometry)
		}

		rings := make([][]geo.Point, 0, len(poly))
		for _, r := range poly {
			pts := make([]geo.Point, 0, len(r))
			for _, p := range r {
				pts = append(pts, geo.FromOrb(p))
			}
			// GeoJSON rings repeat the first position at the end.
			if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
				pts = pts[:len(pts)-1]
			}
			rings = append(rings, pts)
		}

		records = append(records, Record{
			SourceID: int(f.Properties.MustFloat64("id", float64(i))),
			Name:     f.Properties.MustString("name", fmt.Sprintf("unit %d", i)),
		})
		polygons = append(polygons, rings)
	}
	return records, polygons, nil
}

// ReadGeoJSONFile reads and parses a GeoJSON FeatureCollection file.
func ReadGeoJSONFile(path string) ([]Record, [][][]geo.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading GeoJSON file: %w", err)
	}
	return ParseGeoJSON(data)
}

func largestPolygon(mp orb.MultiPolygon) orb.Polygon {
	var best orb.Polygon
	bestArea := -1.0
	for _, p := range mp {
		if len(p) == 0 {
			continue
		}
		area := geo.NewPolygon(ringPoints(p[0])...).Area()
		if area > bestArea {
			best, bestArea = p, area
		}
	}
	return best
}

func ringPoints(r orb.Ring) []geo.Point {
	pts := make([]geo.Point, len(r))
	for i, p := range r {
		pts[i] = geo.FromOrb(p)
	}
	return pts
}
