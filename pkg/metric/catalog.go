package metric

import (
	"fmt"
	"os"
	"sort"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"gopkg.in/yaml.v3"
)

// Catalog is an immutable set of descriptors keyed by metric name.
type Catalog struct {
	byName map[string]Descriptor
	names  []string
}

// NewCatalog validates and indexes the given descriptors. A later
// descriptor with the same name replaces an earlier one.
func NewCatalog(descs ...Descriptor) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.byName[d.Name]; !exists {
			c.names = append(c.names, d.Name)
		}
		c.byName[d.Name] = d
	}
	return c, nil
}

// Lookup returns the descriptor for name.
func (c *Catalog) Lookup(name string) (Descriptor, error) {
	d, ok := c.byName[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return d, nil
}

// Has reports whether name is registered.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Names returns the registered metric names in registration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Merge returns a new catalog with the descriptors of other added to, or
// replacing, those of c.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	out := &Catalog{byName: make(map[string]Descriptor, len(c.byName)+len(other.byName))}
	for _, src := range []*Catalog{c, other} {
		for _, name := range src.names {
			if _, exists := out.byName[name]; !exists {
				out.names = append(out.names, name)
			}
			out.byName[name] = src.byName[name]
		}
	}
	return out
}

// Default returns the built-in catalog for the Wisconsin HUD metrics.
func Default() *Catalog {
	red, white, blue := mustColor("#D0021B"), mustColor("white"), mustColor("#4A90E2")
	c, err := NewCatalog(
		Descriptor{
			Name: "age", Title: "Median Age per District", Label: "yrs",
			Domain: []float64{20, 60}, Colors: []drawing.Color{white, mustColor("#6A3D9A")},
		},
		Descriptor{
			Name: "education", Title: "% of Population with a Bachelor's Degree per District", Label: "%",
			Domain: []float64{0, 100}, Colors: []drawing.Color{white, mustColor("#1F78B4")},
			Normalized: true,
		},
		Descriptor{
			Name: "income", Title: "Median Income per District", Label: "k$",
			Domain: []float64{0, 100}, Colors: []drawing.Color{white, mustColor("#008000")},
			Normalized: true,
		},
		Descriptor{
			Name: "occupation", Title: "% Employed per District", Label: "%",
			Domain: []float64{0, 100}, Colors: []drawing.Color{white, mustColor("#FF7F00")},
			Normalized: true,
		},
		Descriptor{
			Name: "population", Title: "Population per District", Label: "people",
			Domain: []float64{0, 3000000}, Colors: []drawing.Color{white, mustColor("#33A02C")},
			FixedMaximum: 3000000, Normalized: true,
		},
		Descriptor{
			Name: "projected_votes", Title: "Partisan Lean per District", Label: "lean",
			Domain: []float64{-1, 0, 1}, Colors: []drawing.Color{red, white, blue},
			Normalized: true,
		},
		Descriptor{
			Name: "pvi", Title: "Partisan Voting Index per District", Label: "pvi",
			Domain: []float64{-1, 0, 1}, Colors: []drawing.Color{red, white, blue},
			Normalized: true,
		},
		Descriptor{
			Name: "race", Title: "% Minority population per District", Label: "%",
			Domain: []float64{0, 100}, Colors: []drawing.Color{white, mustColor("#B15928")},
			Normalized: true,
			HistogramStyle: map[string]drawing.Color{
				"white":    mustColor("#A6CEE3"),
				"black":    mustColor("#1F78B4"),
				"hispanic": mustColor("#B2DF8A"),
				"asian":    mustColor("#33A02C"),
				"native":   mustColor("#FB9A99"),
				"other":    mustColor("#E31A1C"),
			},
		},
		Descriptor{
			Name: "sex", Title: "% Female population per District", Label: "%",
			Domain: []float64{0, 100}, Colors: []drawing.Color{mustColor("#1F78B4"), mustColor("#E31A1C")},
			Normalized: true,
			HistogramStyle: map[string]drawing.Color{
				"male":   mustColor("#1F78B4"),
				"female": mustColor("#E31A1C"),
			},
		},
		Descriptor{
			Name: "votes", Title: "Democratic Vote Share per District", Label: "%",
			Domain: []float64{0, 50, 100}, Colors: []drawing.Color{red, white, blue},
			Normalized: true,
			HistogramStyle: map[string]drawing.Color{
				"republican": red,
				"democrat":   blue,
			},
		},
		Descriptor{
			Name: "wasted_votes", Title: "% Wasted Votes per District", Label: "%",
			Domain: []float64{0, 100}, Colors: []drawing.Color{white, mustColor("#E31A1C")},
			Normalized: true,
		},
		Descriptor{
			Name: "compactness", Title: "Compactness per District", Label: "",
			Domain: []float64{0, 1}, Colors: []drawing.Color{mustColor("#E31A1C"), white},
			Normalized: true,
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// catalogFile is the YAML shape of a catalog file.
type catalogFile struct {
	Metrics []descriptorFile `yaml:"metrics"`
}

type descriptorFile struct {
	Name           string            `yaml:"name"`
	Title          string            `yaml:"title"`
	Label          string            `yaml:"label"`
	Domain         []float64         `yaml:"domain"`
	Colors         []string          `yaml:"colors"`
	HistogramStyle map[string]string `yaml:"histogram_style"`
	FixedMaximum   float64           `yaml:"fixed_maximum"`
	Normalized     bool              `yaml:"normalized"`
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}

	descs := make([]Descriptor, 0, len(f.Metrics))
	for _, m := range f.Metrics {
		d := Descriptor{
			Name:         m.Name,
			Title:        m.Title,
			Label:        m.Label,
			Domain:       m.Domain,
			FixedMaximum: m.FixedMaximum,
			Normalized:   m.Normalized,
		}
		for _, s := range m.Colors {
			c, err := ParseColor(s)
			if err != nil {
				return nil, fmt.Errorf("metric %s: %w", m.Name, err)
			}
			d.Colors = append(d.Colors, c)
		}
		if len(m.HistogramStyle) > 0 {
			d.HistogramStyle = make(map[string]drawing.Color, len(m.HistogramStyle))
			keys := make([]string, 0, len(m.HistogramStyle))
			for k := range m.HistogramStyle {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				c, err := ParseColor(m.HistogramStyle[k])
				if err != nil {
					return nil, fmt.Errorf("metric %s histogram style %s: %w", m.Name, k, err)
				}
				d.HistogramStyle[k] = c
			}
		}
		descs = append(descs, d)
	}
	return NewCatalog(descs...)
}

// LoadCatalog reads a YAML catalog file and merges it over the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	return Default().Merge(c), nil
}
