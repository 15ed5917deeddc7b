package scene2d

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/distopia/districtview/pkg/geo"
)

var red = drawing.Color{R: 208, G: 2, B: 27, A: 255}

func square(key int, x, y float64) Polygon {
	return Polygon{
		Key:    key,
		Points: []geo.Point{geo.Pt(x, y), geo.Pt(x+10, y), geo.Pt(x+10, y+10), geo.Pt(x, y+10)},
		Fill:   drawing.ColorWhite,
		Stroke: drawing.ColorBlack,
	}
}

func testCanvas(t *testing.T) *Canvas {
	t.Helper()
	c := NewCanvas(200, 100)
	c.AddPolygon(LayerMap, square(0, 0, 0))
	c.AddPolygon(LayerMap, square(1, 10, 0))
	c.AddText(LayerLabels, Text{X: 100, Y: 20, Body: "Median Age per District", Anchor: AnchorMiddle})
	c.SetOffset(LayerLegend, geo.Pt(120, 0))
	c.AddRect(LayerLegend, Rect{X: 0, Y: 20, Width: 20, Height: 20, Fill: red})
	return c
}

func TestCanvasCounts(t *testing.T) {
	c := testCanvas(t)
	if got := c.Count(LayerMap); got != (Counts{Polygons: 2}) {
		t.Errorf("map counts = %+v, want 2 polygons", got)
	}
	if got := c.Count(LayerLegend); got != (Counts{Rects: 1}) {
		t.Errorf("legend counts = %+v, want 1 rect", got)
	}
	c.Clear(LayerMap)
	if got := c.Count(LayerMap); got != (Counts{}) {
		t.Errorf("after Clear map counts = %+v, want empty", got)
	}
}

func TestCanvasPolygonKeyReplaces(t *testing.T) {
	c := NewCanvas(10, 10)
	c.AddPolygon(LayerMap, square(7, 0, 0))
	p := square(7, 5, 5)
	p.Fill = red
	c.AddPolygon(LayerMap, p)
	if n := c.Count(LayerMap).Polygons; n != 1 {
		t.Fatalf("polygons = %d, want 1", n)
	}
	if got, _ := c.Fill(LayerMap, 7); got != red {
		t.Errorf("fill = %v, want %v", got, red)
	}
}

func TestCanvasSetFill(t *testing.T) {
	c := testCanvas(t)
	v := c.Version()
	if err := c.SetFill(LayerMap, 1, red); err != nil {
		t.Fatalf("SetFill failed: %v", err)
	}
	if c.Version() == v {
		t.Error("version unchanged after a fill change")
	}
	if got, ok := c.Fill(LayerMap, 1); !ok || got != red {
		t.Errorf("fill = %v/%v, want %v", got, ok, red)
	}

	v = c.Version()
	if err := c.SetFill(LayerMap, 1, red); err != nil {
		t.Fatalf("SetFill failed: %v", err)
	}
	if c.Version() != v {
		t.Error("rebinding the same fill bumped the version")
	}

	if err := c.SetFill(LayerMap, 99, red); !errors.Is(err, ErrNoPrimitive) {
		t.Errorf("SetFill(99) error = %v, want ErrNoPrimitive", err)
	}
}

func TestCanvasClearEmptyLayerKeepsVersion(t *testing.T) {
	c := NewCanvas(10, 10)
	v := c.Version()
	c.Clear(LayerLegend)
	c.Resize(10, 10)
	if c.Version() != v {
		t.Error("no-op Clear or Resize bumped the version")
	}
}

func TestAssemble2D(t *testing.T) {
	sc := Assemble2D(testCanvas(t))
	if len(sc.Layers) != len(Layers) {
		t.Fatalf("layers = %d, want %d", len(sc.Layers), len(Layers))
	}
	if sc.Layers[0].Name != "map" || len(sc.Layers[0].Polygons) != 2 {
		t.Errorf("map layer = %+v", sc.Layers[0])
	}
	if got := sc.Layers[0].Polygons[0].Fill; got != "#ffffff" {
		t.Errorf("polygon fill = %q, want #ffffff", got)
	}
	legend := sc.Layers[2]
	if legend.Offset != [2]float64{120, 0} {
		t.Errorf("legend offset = %v, want [120 0]", legend.Offset)
	}
	if legend.Rects[0].Fill != "#d0021b" {
		t.Errorf("rect fill = %q, want #d0021b", legend.Rects[0].Fill)
	}
	if sc.Metadata.Stale {
		t.Error("scene without notice reported stale")
	}
	if sc.Metadata.GeneratedAt == "" {
		t.Error("generated_at is empty")
	}
}

func TestAssemble2DNotice(t *testing.T) {
	c := testCanvas(t)
	c.AddText(LayerNotice, Text{X: 4, Y: 16, Body: "stale: incomplete plan"})
	sc := Assemble2D(c)
	if !sc.Metadata.Stale || sc.Metadata.Notice != "stale: incomplete plan" {
		t.Errorf("metadata = %+v, want stale with notice", sc.Metadata)
	}
}

func TestAssemble2DJSON(t *testing.T) {
	data, err := json.Marshal(Assemble2D(testCanvas(t)))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	layers, ok := back["layers"].([]any)
	if !ok || len(layers) != len(Layers) {
		t.Errorf("layers field = %v", back["layers"])
	}
	// Empty layers serialize as [] rather than null.
	notice := layers[3].(map[string]any)
	if _, ok := notice["texts"].([]any); !ok {
		t.Errorf("notice texts = %v, want []", notice["texts"])
	}
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := testCanvas(t).WriteSVG(&buf); err != nil {
		t.Fatalf("WriteSVG failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<svg") {
		t.Fatalf("output is not an svg document: %.80q", out)
	}
	if !strings.Contains(out, "Median Age per District") {
		t.Error("title text missing from svg")
	}
	if n := strings.Count(out, "<path"); n < 3 {
		t.Errorf("svg has %d paths, want at least 3", n)
	}
}
