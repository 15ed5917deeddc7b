package district

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/distopia/districtview/pkg/geo"
	"github.com/distopia/districtview/pkg/metric"
	"github.com/distopia/districtview/pkg/precinct"
	"github.com/distopia/districtview/pkg/projection"
	"github.com/distopia/districtview/pkg/snapshot"
)

// fixture lays out 16 unit squares in a 8x2 grid: district i owns the
// column x = i.
func fixture(t *testing.T) (*precinct.Store, *projection.Projector) {
	t.Helper()
	var records []precinct.Record
	var polygons [][][]geo.Point
	for col := 0; col < 8; col++ {
		for row := 0; row < 2; row++ {
			x, y := float64(col), float64(row)
			records = append(records, precinct.Record{SourceID: col*2 + row, Name: fmt.Sprintf("P%d-%d", col, row)})
			polygons = append(polygons, [][]geo.Point{{geo.Pt(x, y), geo.Pt(x+1, y), geo.Pt(x+1, y+1), geo.Pt(x, y+1)}})
		}
	}
	store := precinct.NewStore()
	if err := store.Load(records, polygons); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	proj := projection.New()
	b, _ := store.Bounds()
	if err := proj.Configure(b, 800, 200, 0); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	return store, proj
}

func plan(counter int64, districts int) *snapshot.Snapshot {
	s := &snapshot.Snapshot{Counter: counter}
	for i := 0; i < districts; i++ {
		s.Districts = append(s.Districts, snapshot.DistrictRecord{
			Precincts: []int{i * 2, i*2 + 1},
			Metrics: []snapshot.MetricSample{
				{Name: "age", Labels: []string{"young", "old"}, Data: []float64{float64(i), 1}, ScalarValue: 30 + float64(i), ScalarMaximum: 1},
				{Name: "pvi", Labels: []string{"pvi"}, Data: []float64{0}, ScalarValue: -0.5, ScalarMaximum: 1},
			},
		})
	}
	return s
}

func TestAggregateCompletePlan(t *testing.T) {
	store, proj := fixture(t)
	got, err := NewAggregator(store, proj).Aggregate(plan(1, 8), "age")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("got %d records, want 8", len(got))
	}
	for i, f := range got {
		if f.Index != i {
			t.Errorf("record %d has index %d", i, f.Index)
		}
		if f.ScalarValue != 30+float64(i) {
			t.Errorf("record %d scalar = %v, want %v", i, f.ScalarValue, 30+float64(i))
		}
		if !reflect.DeepEqual(f.Precincts, []int{i * 2, i*2 + 1}) {
			t.Errorf("record %d precincts = %v", i, f.Precincts)
		}
	}
}

func TestAggregateScreenBoundsFromUnitBoxes(t *testing.T) {
	store, proj := fixture(t)
	got, err := NewAggregator(store, proj).Aggregate(plan(1, 8), "age")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	// Column 2 spans x in [2,3], y in [0,2]; the viewport is 100px per
	// column and 100px per row.
	want := geo.Bounds{MinX: 200, MinY: 0, MaxX: 300, MaxY: 200}
	sb := got[2].ScreenBounds
	if math.Abs(sb.MinX-want.MinX) > 1e-9 || math.Abs(sb.MaxX-want.MaxX) > 1e-9 ||
		math.Abs(sb.MinY-want.MinY) > 1e-9 || math.Abs(sb.MaxY-want.MaxY) > 1e-9 {
		t.Errorf("screen bounds = %+v, want %+v", sb, want)
	}
	if got[2].LabelAt != geo.Pt(250, 100) {
		t.Errorf("label at %v, want (250,100)", got[2].LabelAt)
	}
}

func TestAggregateIncomplete(t *testing.T) {
	store, proj := fixture(t)
	got, err := NewAggregator(store, proj).Aggregate(plan(1, 7), "age")
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("error = %v, want ErrIncomplete", err)
	}
	if got != nil {
		t.Errorf("got %d records on error", len(got))
	}
}

func TestAggregateWithExpected(t *testing.T) {
	store, proj := fixture(t)
	got, err := NewAggregator(store, proj).WithExpected(3).Aggregate(plan(1, 3), "age")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d records, want 3", len(got))
	}
}

func TestAggregateMissingMetric(t *testing.T) {
	store, proj := fixture(t)
	s := plan(1, 8)
	s.Districts[5].Metrics = s.Districts[5].Metrics[1:]
	_, err := NewAggregator(store, proj).Aggregate(s, "age")
	if !errors.Is(err, ErrMissingMetric) {
		t.Fatalf("error = %v, want ErrMissingMetric", err)
	}
}

func TestAggregateUnknownPrecinct(t *testing.T) {
	store, proj := fixture(t)
	s := plan(1, 8)
	s.Districts[3].Precincts = append(s.Districts[3].Precincts, 99)
	_, err := NewAggregator(store, proj).Aggregate(s, "age")
	if !errors.Is(err, precinct.ErrNotFound) {
		t.Fatalf("error = %v, want precinct.ErrNotFound", err)
	}
}

func TestAggregateNotConfigured(t *testing.T) {
	store, _ := fixture(t)
	_, err := NewAggregator(store, projection.New()).Aggregate(plan(1, 8), "age")
	if !errors.Is(err, projection.ErrNotConfigured) {
		t.Fatalf("error = %v, want projection.ErrNotConfigured", err)
	}
}

func TestAggregateIsRepeatable(t *testing.T) {
	store, proj := fixture(t)
	agg := NewAggregator(store, proj)
	a, _ := agg.Aggregate(plan(4, 8), "pvi")
	b, _ := agg.Aggregate(plan(4, 8), "pvi")
	if !reflect.DeepEqual(a, b) {
		t.Error("aggregating the same snapshot twice gave different output")
	}
}

func TestDescribeUnknownMetric(t *testing.T) {
	store, proj := fixture(t)
	_, _, err := NewAggregator(store, proj).Describe(plan(1, 8), "shoe_size", metric.Default())
	if !errors.Is(err, metric.ErrUnknownMetric) {
		t.Fatalf("error = %v, want metric.ErrUnknownMetric", err)
	}
}

func TestCheck(t *testing.T) {
	store, _ := fixture(t)
	s := plan(1, 7)
	s.Districts[0].Precincts = []int{0, 1, 42}
	s.Districts[1].Precincts = []int{1, 2, 3}
	s.Districts[2].Metrics = append(s.Districts[2].Metrics, snapshot.MetricSample{Name: "shoe_size"})

	r := Check(s, store, metric.Default(), CheckOptions{Focus: "age"})
	if r.Valid {
		t.Fatal("expected an invalid report")
	}

	paths := map[string]bool{}
	for _, e := range r.Errors {
		paths[e.Path] = true
	}
	for _, want := range []string{"districts", "districts[0].precincts[2]"} {
		if !paths[want] {
			t.Errorf("missing error at %s; errors = %+v", want, r.Errors)
		}
	}

	var dup, unknown bool
	for _, w := range r.Warnings {
		switch w.Path {
		case "districts[1].precincts[0]":
			dup = true
		case "districts[2].metrics[2].name":
			unknown = true
		}
	}
	if !dup {
		t.Error("expected a warning for the doubly assigned precinct")
	}
	if !unknown {
		t.Error("expected a warning for the unknown metric")
	}
	// Precincts 14 and 15 belong to the missing eighth district.
	if len(r.Info) != 1 {
		t.Errorf("info = %+v, want one uncovered-precinct finding", r.Info)
	}
}

func TestCheckCompletePlanIsValid(t *testing.T) {
	store, _ := fixture(t)
	r := Check(plan(1, 8), store, metric.Default(), CheckOptions{Focus: "pvi"})
	if !r.Valid {
		t.Errorf("expected valid report, got %+v", r.Errors)
	}
	if len(r.Info) != 0 {
		t.Errorf("info = %+v, want none for a full cover", r.Info)
	}
}
