package snapshot

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

const validMessage = `{
	"counter": 4,
	"districts": [
		{"precincts": [0, 1], "metrics": [
			{"name": "age", "labels": ["0-17", "18-64", "65+"], "data": [10, 60, 30], "scalar_value": 38.5, "scalar_maximum": 1},
			{"name": "population", "labels": ["total"], "data": [120000], "scalar_value": 120000, "scalar_maximum": 3000000}
		]},
		{"precincts": [2], "metrics": [
			{"name": "age", "labels": ["0-17", "18-64", "65+"], "data": [20, 50, 30], "scalar_value": 41, "scalar_maximum": 1}
		]}
	]
}`

func TestDecode(t *testing.T) {
	s, err := Decode([]byte(validMessage))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if s.Counter != 4 {
		t.Errorf("counter = %d, want 4", s.Counter)
	}
	if len(s.Districts) != 2 {
		t.Fatalf("districts = %d, want 2", len(s.Districts))
	}
	pop, ok := s.Districts[0].Metric("population")
	if !ok {
		t.Fatal("population sample missing")
	}
	if pop.ScalarMaximum != 3000000 {
		t.Errorf("scalar_maximum = %v, want 3000000", pop.ScalarMaximum)
	}
	if _, ok := s.Districts[1].Metric("population"); ok {
		t.Error("district 1 unexpectedly has a population sample")
	}
}

func TestDecodeRejectsShapeMismatch(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"counter": `,
		"missing counter":   `{"districts": [{"precincts": [0], "metrics": []}]}`,
		"missing districts": `{"counter": 1}`,
		"no districts":      `{"counter": 1, "districts": []}`,
		"empty precincts":   `{"counter": 1, "districts": [{"precincts": [], "metrics": []}]}`,
		"negative precinct": `{"counter": 1, "districts": [{"precincts": [-3], "metrics": []}]}`,
		"string counter":    `{"counter": "7", "districts": [{"precincts": [0], "metrics": []}]}`,
		"label mismatch": `{"counter": 1, "districts": [{"precincts": [0], "metrics": [
			{"name": "age", "labels": ["a", "b"], "data": [1], "scalar_value": 1, "scalar_maximum": 1}]}]}`,
		"unnamed metric": `{"counter": 1, "districts": [{"precincts": [0], "metrics": [
			{"name": "", "labels": [], "data": [], "scalar_value": 1, "scalar_maximum": 1}]}]}`,
		"district not object": `{"counter": 1, "districts": [[0, 1]]}`,
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(msg)); !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestValidateReportsPaths(t *testing.T) {
	s := &Snapshot{Counter: 1, Districts: []DistrictRecord{
		{Precincts: []int{0}},
		{Precincts: nil, Metrics: []MetricSample{{Name: "age", Labels: []string{"x"}}}},
	}}
	r := s.Validate()
	if r.Valid {
		t.Fatal("expected invalid report")
	}
	var paths []string
	for _, e := range r.Errors {
		paths = append(paths, e.Path)
	}
	joined := strings.Join(paths, ",")
	for _, want := range []string{"districts[1].precincts", "districts[1].metrics[0].data"} {
		if !strings.Contains(joined, want) {
			t.Errorf("errors %v do not include %s", paths, want)
		}
	}
	if len(r.Warnings) != 1 || r.Warnings[0].Path != "districts[0].metrics" {
		t.Errorf("warnings = %+v, want one for districts[0].metrics", r.Warnings)
	}
}

func TestGateAdmitsStrictlyIncreasing(t *testing.T) {
	g := NewGate()
	if _, ok := g.Last(); ok {
		t.Error("new gate reports an admitted counter")
	}
	feed := []int64{1, 3, 2, 5, 5, 4, 6}
	var admitted []int64
	for _, c := range feed {
		if g.Admit(&Snapshot{Counter: c}) {
			admitted = append(admitted, c)
		}
	}
	want := []int64{1, 3, 5, 6}
	if fmt.Sprint(admitted) != fmt.Sprint(want) {
		t.Errorf("admitted = %v, want %v", admitted, want)
	}
	last, ok := g.Last()
	if !ok || last != 6 {
		t.Errorf("Last = %d/%v, want 6/true", last, ok)
	}
	a, d := g.Stats()
	if a != 4 || d != 3 {
		t.Errorf("stats = %d admitted / %d dropped, want 4 / 3", a, d)
	}
}

func TestGateAdmitsNegativeAndZeroFirstCounter(t *testing.T) {
	g := NewGate()
	if !g.Admit(&Snapshot{Counter: -10}) {
		t.Error("first snapshot must be admitted regardless of counter")
	}
	if !g.Admit(&Snapshot{Counter: 0}) {
		t.Error("0 after -10 must be admitted")
	}
	if g.Admit(nil) {
		t.Error("nil snapshot must not be admitted")
	}
}

func TestGateRandomSequencesStayMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		g := NewGate()
		prev := int64(-1 << 62)
		for i := 0; i < 200; i++ {
			c := rng.Int63n(100)
			if g.Admit(&Snapshot{Counter: c}) {
				if c <= prev {
					t.Fatalf("run %d: admitted %d after %d", run, c, prev)
				}
				prev = c
			}
		}
	}
}
