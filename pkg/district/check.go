package district

import (
	"fmt"

	"github.com/distopia/districtview/pkg/metric"
	"github.com/distopia/districtview/pkg/precinct"
	"github.com/distopia/districtview/pkg/snapshot"
	"github.com/distopia/districtview/pkg/validation"
)

// CheckOptions controls the cross-reference checks.
type CheckOptions struct {
	// Expected is the number of districts in a complete plan.
	Expected int
	// Focus, when set, must be present in every district.
	Focus string
}

// Check validates a snapshot against the loaded geometry and the metric
// catalog. It reports everything Aggregate would reject plus plan-wide
// coverage findings that the view tolerates.
func Check(s *snapshot.Snapshot, store *precinct.Store, catalog *metric.Catalog, opts CheckOptions) *validation.Report {
	r := s.Validate()

	expected := opts.Expected
	if expected <= 0 {
		expected = Expected
	}
	if len(s.Districts) < expected {
		r.AddError(validation.Result{
			Level:       validation.LevelCoverage,
			Message:     "plan has fewer districts than expected",
			Path:        "districts",
			ActualValue: len(s.Districts),
			Expected:    fmt.Sprintf("%d districts", expected),
		})
	}

	owner := make(map[int]int)
	unknown := make(map[string]bool)
	for i, d := range s.Districts {
		path := fmt.Sprintf("districts[%d]", i)
		for j, id := range d.Precincts {
			if _, err := store.Get(id); err != nil {
				r.AddError(validation.Result{
					Level:       validation.LevelReference,
					Message:     "precinct id does not exist in the loaded geometry",
					Path:        fmt.Sprintf("%s.precincts[%d]", path, j),
					ActualValue: id,
					Expected:    fmt.Sprintf("0..%d", store.Len()-1),
				})
				continue
			}
			if prev, dup := owner[id]; dup && prev != i {
				r.AddWarning(validation.Result{
					Level:       validation.LevelCoverage,
					Message:     fmt.Sprintf("precinct also assigned to district %d", prev),
					Path:        fmt.Sprintf("%s.precincts[%d]", path, j),
					ActualValue: id,
				})
				continue
			}
			owner[id] = i
		}

		for j, m := range d.Metrics {
			if m.Name != "" && !catalog.Has(m.Name) && !unknown[m.Name] {
				unknown[m.Name] = true
				r.AddWarning(validation.Result{
					Level:       validation.LevelReference,
					Message:     "metric has no descriptor and cannot be focused",
					Path:        fmt.Sprintf("%s.metrics[%d].name", path, j),
					ActualValue: m.Name,
					Suggestions: catalog.Names(),
				})
			}
		}

		if opts.Focus != "" {
			if _, ok := d.Metric(opts.Focus); !ok {
				r.AddError(validation.Result{
					Level:    validation.LevelReference,
					Message:  fmt.Sprintf("district has no %q sample", opts.Focus),
					Path:     path + ".metrics",
					Expected: opts.Focus,
				})
			}
		}
	}

	if store.Ready() {
		var uncovered []int
		for id := 0; id < store.Len(); id++ {
			if _, ok := owner[id]; !ok {
				uncovered = append(uncovered, id)
			}
		}
		if len(uncovered) > 0 {
			r.AddInfo(validation.Result{
				Level:       validation.LevelCoverage,
				Message:     fmt.Sprintf("%d of %d precincts are not assigned to any district", len(uncovered), store.Len()),
				Path:        "districts",
				ActualValue: uncovered,
			})
		}
	}
	return r
}
