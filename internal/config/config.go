// Package config loads the districtview service settings from a YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/distopia/districtview/pkg/view"
)

// Transport kinds.
const (
	TransportNone      = "none"
	TransportRosBridge = "rosbridge"
	TransportRedis     = "redis"
)

// Config holds every setting of the serve command.
type Config struct {
	Port      int         `yaml:"port"`
	Focus     string      `yaml:"focus"`
	Catalog   string      `yaml:"catalog"`
	Layout    view.Layout `yaml:"layout"`
	Geometry  Geometry    `yaml:"geometry"`
	Histogram Histogram   `yaml:"histogram"`
	Transport string      `yaml:"transport"`
	RosBridge RosBridge   `yaml:"rosbridge"`
	Redis     Redis       `yaml:"redis"`
}

// Geometry names the precinct resources. Either Records and Polygons or
// GeoJSON must be set.
type Geometry struct {
	Records  string  `yaml:"records"`
	Polygons string  `yaml:"polygons"`
	GeoJSON  string  `yaml:"geojson"`
	Simplify float64 `yaml:"simplify"`
}

// Histogram is the size of one district panel.
type Histogram struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// RosBridge configures the websocket transport.
type RosBridge struct {
	URL          string        `yaml:"url"`
	DataTopic    string        `yaml:"data_topic"`
	ControlTopic string        `yaml:"control_topic"`
	MaxBackoff   time.Duration `yaml:"max_backoff"`
}

// Redis configures the pub/sub transport.
type Redis struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	DataChannel    string `yaml:"data_channel"`
	ControlChannel string `yaml:"control_channel"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:      8080,
		Focus:     "pvi",
		Layout:    view.DefaultLayout(),
		Histogram: Histogram{Width: 240, Height: 160},
		Transport: TransportNone,
		RosBridge: RosBridge{
			URL:          "ws://localhost:9090",
			DataTopic:    "/evaluated_designs",
			ControlTopic: "/tuio_control",
			MaxBackoff:   60 * time.Second,
		},
		Redis: Redis{
			Addr:           "localhost:6379",
			DataChannel:    "districtview:designs",
			ControlChannel: "districtview:control",
		},
	}
}

// Load reads path over the defaults, applies environment overrides
// (optionally from .env) and validates the result. An empty path skips the
// file. Relative geometry and catalog paths resolve against the file's
// directory.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config YAML: %w", err)
		}
		cfg.resolve(filepath.Dir(path))
	}

	_ = godotenv.Load() // ignore missing file
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) resolve(dir string) {
	for _, p := range []*string{&c.Geometry.Records, &c.Geometry.Polygons, &c.Geometry.GeoJSON, &c.Catalog} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %s", key, v)
		}
		*dst = n
		return nil
	}

	if err := num("DISTRICTVIEW_PORT", &c.Port); err != nil {
		return err
	}
	str("DISTRICTVIEW_FOCUS", &c.Focus)
	str("DISTRICTVIEW_TRANSPORT", &c.Transport)
	str("DISTRICTVIEW_CATALOG", &c.Catalog)
	str("DISTRICTVIEW_RECORDS", &c.Geometry.Records)
	str("DISTRICTVIEW_POLYGONS", &c.Geometry.Polygons)
	str("DISTRICTVIEW_GEOJSON", &c.Geometry.GeoJSON)
	str("ROSBRIDGE_URL", &c.RosBridge.URL)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	return num("REDIS_DB", &c.Redis.DB)
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Focus == "" {
		errs = append(errs, errors.New("focus is required"))
	}
	if err := c.Layout.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Histogram.Width <= 0 || c.Histogram.Height <= 0 {
		errs = append(errs, fmt.Errorf("histogram size %vx%v must be positive", c.Histogram.Width, c.Histogram.Height))
	}
	if c.Geometry.Simplify < 0 {
		errs = append(errs, fmt.Errorf("simplify tolerance %v must not be negative", c.Geometry.Simplify))
	}
	g := c.Geometry
	if g.GeoJSON == "" && (g.Records == "") != (g.Polygons == "") {
		errs = append(errs, errors.New("geometry needs both records and polygons"))
	}
	if g.GeoJSON != "" && (g.Records != "" || g.Polygons != "") {
		errs = append(errs, errors.New("geometry sets both geojson and records/polygons"))
	}

	switch c.Transport {
	case TransportNone, "":
	case TransportRosBridge:
		if c.RosBridge.URL == "" || c.RosBridge.DataTopic == "" {
			errs = append(errs, errors.New("rosbridge needs url and data_topic"))
		}
		if c.RosBridge.MaxBackoff <= 0 {
			errs = append(errs, errors.New("rosbridge max_backoff must be positive"))
		}
	case TransportRedis:
		if c.Redis.Addr == "" || c.Redis.DataChannel == "" {
			errs = append(errs, errors.New("redis needs addr and data_channel"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// HasGeometry reports whether any geometry source is configured.
func (c Config) HasGeometry() bool {
	return c.Geometry.GeoJSON != "" || c.Geometry.Records != ""
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
