package scene2d

// Scene2D is the serialized form of a canvas, consumed by browser renderers
// that draw the view themselves.
type Scene2D struct {
	Metadata Metadata  `json:"metadata"`
	Layers   []Layer2D `json:"layers"`
}

// Metadata holds canvas-level summary data.
type Metadata struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Version     uint64  `json:"version"`
	Stale       bool    `json:"stale"`
	Notice      string  `json:"notice,omitempty"`
	GeneratedAt string  `json:"generated_at"`
}

// Layer2D is one drawing layer.
type Layer2D struct {
	Name     string      `json:"name"`
	Offset   [2]float64  `json:"offset"`
	Polygons []Polygon2D `json:"polygons"`
	Rects    []Rect2D    `json:"rects"`
	Texts    []Text2D    `json:"texts"`
}

// Polygon2D is a filled outline, keyed by unit id on the map layer.
type Polygon2D struct {
	Key    int          `json:"key"`
	Points [][2]float64 `json:"points"`
	Fill   string       `json:"fill"`
	Stroke string       `json:"stroke"`
}

// Rect2D is a filled rectangle.
type Rect2D struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Fill   string  `json:"fill"`
}

// Text2D is a single line of text.
type Text2D struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Text   string  `json:"text"`
	Size   float64 `json:"size"`
	Color  string  `json:"color"`
	Anchor string  `json:"anchor"`
}
