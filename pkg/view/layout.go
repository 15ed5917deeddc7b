// Package view paints the focused metric onto the canvas: the choropleth
// map, the per-district histograms, the legend and the text labels. Every
// view derives its colors from the same metric descriptor so the encodings
// stay consistent across them.
package view

import (
	"fmt"

	"github.com/distopia/districtview/pkg/geo"
)

// Layout places the map, title band and legend strip on the canvas.
//
//	+---------------------------+  0
//	|        title band         |
//	+---------------------------+  TitleHeight
//	|                           |
//	|            map            |
//	|                           |
//	+---------------------------+  Height - LegendHeight
//	|  legend strip             |
//	+---------------------------+  Height
type Layout struct {
	Width        float64 `yaml:"width" json:"width"`
	Height       float64 `yaml:"height" json:"height"`
	Margin       float64 `yaml:"margin" json:"margin"`
	TitleHeight  float64 `yaml:"title_height" json:"title_height"`
	LegendHeight float64 `yaml:"legend_height" json:"legend_height"`
	LegendOffset float64 `yaml:"legend_offset" json:"legend_offset"`
	Swatches     int     `yaml:"swatches" json:"swatches"`
	TitleSize    float64 `yaml:"title_size" json:"title_size"`
	LabelSize    float64 `yaml:"label_size" json:"label_size"`
}

// DefaultLayout returns the layout used by the HUD display.
func DefaultLayout() Layout {
	return Layout{
		Width:        960,
		Height:       720,
		Margin:       20,
		TitleHeight:  48,
		LegendHeight: 60,
		LegendOffset: 120,
		Swatches:     6,
		TitleSize:    24,
		LabelSize:    14,
	}
}

// Validate checks that every area has room to draw.
func (l Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("layout size %vx%v must be positive", l.Width, l.Height)
	}
	if l.TitleHeight < 0 || l.LegendHeight < 0 || l.Margin < 0 {
		return fmt.Errorf("layout bands and margin must not be negative")
	}
	if _, h := l.MapSize(); h-2*l.Margin <= 0 {
		return fmt.Errorf("layout leaves no room for the map (height %v, title %v, legend %v, margin %v)",
			l.Height, l.TitleHeight, l.LegendHeight, l.Margin)
	}
	if l.Width-2*l.Margin <= 0 {
		return fmt.Errorf("layout width %v leaves no room for margin %v", l.Width, l.Margin)
	}
	if l.Swatches < 2 {
		return fmt.Errorf("legend needs at least 2 swatches, got %d", l.Swatches)
	}
	return nil
}

// MapOrigin is where projected map coordinates start on the canvas.
func (l Layout) MapOrigin() geo.Point {
	return geo.Pt(0, l.TitleHeight)
}

// MapSize is the viewport handed to the projector.
func (l Layout) MapSize() (width, height float64) {
	return l.Width, l.Height - l.TitleHeight - l.LegendHeight
}

// LegendOrigin is the translation of the legend strip.
func (l Layout) LegendOrigin() geo.Point {
	return geo.Pt(l.LegendOffset, l.Height-l.LegendHeight)
}

// TitleAt is the anchor of the heading text.
func (l Layout) TitleAt() geo.Point {
	return geo.Pt(l.Width/2, l.TitleHeight/2+l.TitleSize/3)
}
