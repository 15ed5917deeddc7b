// Package snapshot defines the evaluated-plan messages published by the
// upstream planner, their ingestion checks and the freshness gate.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/distopia/districtview/pkg/validation"
)

// ErrMalformed is returned for a message that does not match the snapshot
// schema.
var ErrMalformed = errors.New("malformed snapshot")

// Snapshot is one evaluated districting plan.
type Snapshot struct {
	Counter   int64            `json:"counter"`
	Districts []DistrictRecord `json:"districts"`
}

// DistrictRecord is one district of a plan.
type DistrictRecord struct {
	Precincts []int          `json:"precincts"`
	Metrics   []MetricSample `json:"metrics"`
}

// MetricSample is the evaluation of one metric for one district.
type MetricSample struct {
	Name          string    `json:"name"`
	Labels        []string  `json:"labels"`
	Data          []float64 `json:"data"`
	ScalarValue   float64   `json:"scalar_value"`
	ScalarMaximum float64   `json:"scalar_maximum"`
}

// Metric returns the sample with the given name.
func (d DistrictRecord) Metric(name string) (MetricSample, bool) {
	for _, m := range d.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return MetricSample{}, false
}

// wire mirrors Snapshot with pointer fields so that missing keys can be
// told apart from zero values.
type wire struct {
	Counter   *int64             `json:"counter"`
	Districts *[]json.RawMessage `json:"districts"`
}

// Decode parses and validates a snapshot message.
func Decode(data []byte) (*Snapshot, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Counter == nil {
		return nil, fmt.Errorf("%w: missing counter", ErrMalformed)
	}
	if w.Districts == nil {
		return nil, fmt.Errorf("%w: missing districts", ErrMalformed)
	}

	s := &Snapshot{Counter: *w.Counter, Districts: make([]DistrictRecord, len(*w.Districts))}
	for i, raw := range *w.Districts {
		if err := json.Unmarshal(raw, &s.Districts[i]); err != nil {
			return nil, fmt.Errorf("%w: districts[%d]: %v", ErrMalformed, i, err)
		}
	}

	if err := s.Validate().Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s, nil
}

// Validate checks the shape of the snapshot. Cross-references against
// geometry and the metric catalog are checked by the district package.
func (s *Snapshot) Validate() *validation.Report {
	r := validation.NewReport()

	if len(s.Districts) == 0 {
		r.AddError(validation.Result{
			Level:    validation.LevelSchema,
			Message:  "snapshot has no districts",
			Path:     "districts",
			Expected: "at least one district",
		})
	}

	for i, d := range s.Districts {
		path := fmt.Sprintf("districts[%d]", i)
		if len(d.Precincts) == 0 {
			r.AddError(validation.Result{
				Level:    validation.LevelSchema,
				Message:  "district has no precincts",
				Path:     path + ".precincts",
				Expected: "non-empty list of precinct ids",
			})
		}
		for j, p := range d.Precincts {
			if p < 0 {
				r.AddError(validation.Result{
					Level:       validation.LevelSchema,
					Message:     "negative precinct id",
					Path:        fmt.Sprintf("%s.precincts[%d]", path, j),
					ActualValue: p,
					Expected:    ">= 0",
				})
			}
		}
		if len(d.Metrics) == 0 {
			r.AddWarning(validation.Result{
				Level:   validation.LevelSchema,
				Message: "district carries no metrics",
				Path:    path + ".metrics",
			})
		}
		for j, m := range d.Metrics {
			validateSample(r, fmt.Sprintf("%s.metrics[%d]", path, j), m)
		}
	}
	return r
}

func validateSample(r *validation.Report, path string, m MetricSample) {
	if m.Name == "" {
		r.AddError(validation.Result{
			Level:    validation.LevelSchema,
			Message:  "metric name is empty",
			Path:     path + ".name",
			Expected: "a metric name",
		})
	}
	if len(m.Labels) != len(m.Data) {
		r.AddError(validation.Result{
			Level:       validation.LevelSchema,
			Message:     fmt.Sprintf("%d labels for %d data values", len(m.Labels), len(m.Data)),
			Path:        path + ".data",
			ActualValue: len(m.Data),
			Expected:    fmt.Sprintf("%d values", len(m.Labels)),
		})
	}
	for k, v := range m.Data {
		if !finite(v) {
			r.AddError(validation.Result{
				Level:   validation.LevelSchema,
				Message: "data value is not a finite number",
				Path:    fmt.Sprintf("%s.data[%d]", path, k),
			})
		}
	}
	if !finite(m.ScalarValue) || !finite(m.ScalarMaximum) {
		r.AddError(validation.Result{
			Level:   validation.LevelSchema,
			Message: "scalar value or maximum is not a finite number",
			Path:    path,
		})
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
