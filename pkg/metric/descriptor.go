// Package metric is the registry of district metrics: their value domains,
// color scales, labels and histogram styling.
package metric

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	// ErrUnknownMetric is returned when a metric name has no descriptor.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrInvalidDescriptor is returned for a descriptor that cannot form a scale.
	ErrInvalidDescriptor = errors.New("invalid metric descriptor")
)

// Neutral is the fill used for units that have no value.
var Neutral = drawing.ColorWhite

// Descriptor describes how one metric is encoded visually.
type Descriptor struct {
	Name string
	// Title is the heading shown while the metric is focused.
	Title string
	// Label is the unit suffix used in legend text.
	Label string
	// Domain holds the scale stops in increasing order, e.g. [-1, 0, 1].
	Domain []float64
	// Colors holds one color per domain stop.
	Colors []drawing.Color
	// HistogramStyle maps category labels to bar colors.
	HistogramStyle map[string]drawing.Color
	// FixedMaximum overrides the histogram ceiling when positive.
	FixedMaximum float64
	// Normalized marks scalar values that are fractions of their maximum
	// and must be rescaled onto the domain before coloring.
	Normalized bool
}

// Validate checks that the descriptor forms a usable scale.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
	}
	if len(d.Domain) < 2 {
		return fmt.Errorf("%w: %s: domain needs at least 2 stops", ErrInvalidDescriptor, d.Name)
	}
	if len(d.Colors) != len(d.Domain) {
		return fmt.Errorf("%w: %s: %d colors for %d domain stops", ErrInvalidDescriptor, d.Name, len(d.Colors), len(d.Domain))
	}
	for i := 1; i < len(d.Domain); i++ {
		if !(d.Domain[i] > d.Domain[i-1]) {
			return fmt.Errorf("%w: %s: domain must be strictly increasing", ErrInvalidDescriptor, d.Name)
		}
	}
	if d.FixedMaximum < 0 {
		return fmt.Errorf("%w: %s: negative fixed maximum", ErrInvalidDescriptor, d.Name)
	}
	return nil
}

// DomainMin returns the first domain stop.
func (d Descriptor) DomainMin() float64 {
	return d.Domain[0]
}

// DomainMax returns the last domain stop.
func (d Descriptor) DomainMax() float64 {
	return d.Domain[len(d.Domain)-1]
}

// Scale maps a value to a color. For normalized metrics the value is first
// taken as a fraction of maximum and rescaled so that value == maximum
// lands on the domain maximum. Values outside the domain clamp to the
// nearest end color.
func (d Descriptor) Scale(value, maximum float64) drawing.Color {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Neutral
	}
	v := value
	if d.Normalized && maximum > 0 {
		v = value / maximum * d.DomainMax()
	}

	last := len(d.Domain) - 1
	if v <= d.Domain[0] {
		return d.Colors[0]
	}
	if v >= d.Domain[last] {
		return d.Colors[last]
	}
	for i := 0; i < last; i++ {
		lo, hi := d.Domain[i], d.Domain[i+1]
		if v <= hi {
			return Lerp(d.Colors[i], d.Colors[i+1], (v-lo)/(hi-lo))
		}
	}
	return d.Colors[last]
}

// HistogramMaximum returns the bar ceiling for a sample with the given
// scalar maximum.
func (d Descriptor) HistogramMaximum(sampleMaximum float64) float64 {
	if d.FixedMaximum > 0 {
		return d.FixedMaximum
	}
	if sampleMaximum > 0 {
		return sampleMaximum
	}
	return 1
}

// CategoryColor returns the histogram color for a category label.
func (d Descriptor) CategoryColor(label string) (drawing.Color, bool) {
	c, ok := d.HistogramStyle[label]
	return c, ok
}

// Lerp interpolates between two colors in RGB space.
func Lerp(a, b drawing.Color, t float64) drawing.Color {
	t = math.Max(0, math.Min(1, t))
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// ParseColor parses "#rrggbb", "rrggbb", "#rgb" or a handful of names.
func ParseColor(s string) (drawing.Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "white":
		return drawing.ColorWhite, nil
	case "black":
		return drawing.ColorBlack, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 3 {
		return drawing.Color{}, fmt.Errorf("invalid color %q", s)
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return drawing.Color{}, fmt.Errorf("invalid color %q", s)
		}
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	return drawing.ColorFromHex(hex), nil
}

// Hex formats a color as "#rrggbb".
func Hex(c drawing.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func mustColor(s string) drawing.Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}
