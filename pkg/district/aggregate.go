// Package district joins a snapshot with the loaded geometry and the metric
// catalog to produce per-district display records for the focused metric.
package district

import (
	"errors"
	"fmt"

	"github.com/distopia/districtview/pkg/geo"
	"github.com/distopia/districtview/pkg/metric"
	"github.com/distopia/districtview/pkg/precinct"
	"github.com/distopia/districtview/pkg/projection"
	"github.com/distopia/districtview/pkg/snapshot"
)

// Expected is the number of districts in a complete plan.
const Expected = 8

var (
	// ErrIncomplete is returned for a snapshot with fewer districts than
	// a complete plan.
	ErrIncomplete = errors.New("incomplete plan")
	// ErrMissingMetric is returned when a district lacks the focused metric.
	ErrMissingMetric = errors.New("district missing metric")
)

// Focused is one district's values for the focused metric, together with
// where it sits on screen.
type Focused struct {
	Index         int        `json:"index"`
	Precincts     []int      `json:"precincts"`
	Name          string     `json:"name"`
	Labels        []string   `json:"labels"`
	Data          []float64  `json:"data"`
	ScalarValue   float64    `json:"scalar_value"`
	ScalarMaximum float64    `json:"scalar_maximum"`
	ScreenBounds  geo.Bounds `json:"screen_bounds"`
	LabelAt       geo.Point  `json:"label_at"`
}

// Aggregator produces Focused records. It reads the store and projector
// but never mutates them.
type Aggregator struct {
	store     *precinct.Store
	projector *projection.Projector
	expected  int
}

// NewAggregator creates an aggregator expecting district.Expected
// districts per plan.
func NewAggregator(store *precinct.Store, projector *projection.Projector) *Aggregator {
	return &Aggregator{store: store, projector: projector, expected: Expected}
}

// WithExpected overrides the number of districts a complete plan carries.
func (a *Aggregator) WithExpected(n int) *Aggregator {
	a.expected = n
	return a
}

// Aggregate returns one record per district in snapshot order. Every
// check runs before anything is returned, so an error means no partial
// output.
func (a *Aggregator) Aggregate(s *snapshot.Snapshot, focus string) ([]Focused, error) {
	if len(s.Districts) < a.expected {
		return nil, fmt.Errorf("%w: %d of %d districts", ErrIncomplete, len(s.Districts), a.expected)
	}
	if !a.projector.Configured() {
		return nil, projection.ErrNotConfigured
	}

	out := make([]Focused, 0, len(s.Districts))
	for i, d := range s.Districts {
		sample, ok := d.Metric(focus)
		if !ok {
			return nil, fmt.Errorf("%w: district %d has no %q", ErrMissingMetric, i, focus)
		}

		var geoBox geo.Bounds
		for j, id := range d.Precincts {
			u, err := a.store.Get(id)
			if err != nil {
				return nil, fmt.Errorf("district %d: %w", i, err)
			}
			if j == 0 {
				geoBox = u.BBox
			} else {
				geoBox = geoBox.Union(u.BBox)
			}
		}
		screen, err := a.projector.ProjectBounds(geoBox)
		if err != nil {
			return nil, err
		}

		out = append(out, Focused{
			Index:         i,
			Precincts:     append([]int(nil), d.Precincts...),
			Name:          sample.Name,
			Labels:        sample.Labels,
			Data:          sample.Data,
			ScalarValue:   sample.ScalarValue,
			ScalarMaximum: sample.ScalarMaximum,
			ScreenBounds:  screen,
			LabelAt:       screen.Center(),
		})
	}
	return out, nil
}

// Describe looks up the descriptor for the focused metric and aggregates
// in one step, which is what every repaint needs.
func (a *Aggregator) Describe(s *snapshot.Snapshot, focus string, catalog *metric.Catalog) ([]Focused, metric.Descriptor, error) {
	desc, err := catalog.Lookup(focus)
	if err != nil {
		return nil, metric.Descriptor{}, err
	}
	records, err := a.Aggregate(s, focus)
	if err != nil {
		return nil, metric.Descriptor{}, err
	}
	return records, desc, nil
}
