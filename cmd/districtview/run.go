package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/distopia/districtview/internal/config"
	"github.com/distopia/districtview/internal/logger"
	"github.com/distopia/districtview/internal/metrics"
	"github.com/distopia/districtview/internal/server"
	"github.com/distopia/districtview/internal/transport"
	"github.com/distopia/districtview/pkg/district"
	"github.com/distopia/districtview/pkg/engine"
	"github.com/distopia/districtview/pkg/geo"
	"github.com/distopia/districtview/pkg/metric"
	"github.com/distopia/districtview/pkg/precinct"
	"github.com/distopia/districtview/pkg/snapshot"
	"github.com/distopia/districtview/pkg/validation"
)

type geometryFlags struct {
	records  string
	polygons string
	geojson  string
	simplify float64
}

func (g geometryFlags) config() config.Geometry {
	return config.Geometry{Records: g.records, Polygons: g.polygons, GeoJSON: g.geojson, Simplify: g.simplify}
}

// loadGeometry reads whichever geometry source g names.
func loadGeometry(g config.Geometry) ([]precinct.Record, [][][]geo.Point, error) {
	if g.GeoJSON != "" {
		return precinct.ReadGeoJSONFile(g.GeoJSON)
	}
	if g.Records == "" || g.Polygons == "" {
		return nil, nil, errors.New("geometry needs --geojson or both --records and --polygons")
	}
	records, err := precinct.ReadRecordsFile(g.Records)
	if err != nil {
		return nil, nil, err
	}
	polygons, err := precinct.ReadPolygonsFile(g.Polygons)
	if err != nil {
		return nil, nil, err
	}
	return records, polygons, nil
}

func loadCatalog(path string) (*metric.Catalog, error) {
	if path == "" {
		return metric.Default(), nil
	}
	return metric.LoadCatalog(path)
}

type serveOverrides struct {
	port      int
	transport string
}

func runServe(ctx context.Context, configPath string, over serveOverrides) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if over.port > 0 {
		cfg.Port = over.port
	}
	if over.transport != "" {
		cfg.Transport = over.transport
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.FromEnv()
	catalog, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}
	m := metrics.New()

	opts := engine.DefaultOptions()
	opts.Focus = cfg.Focus
	opts.Layout = cfg.Layout
	opts.HistogramWidth, opts.HistogramHeight = cfg.Histogram.Width, cfg.Histogram.Height
	opts.Catalog = catalog
	opts.Store = precinct.NewStore(precinct.WithSimplify(cfg.Geometry.Simplify))
	opts.Logger = log
	opts.Recorder = m
	eng, err := engine.New(opts)
	if err != nil {
		return err
	}

	if cfg.HasGeometry() {
		records, polygons, err := loadGeometry(cfg.Geometry)
		if err != nil {
			return err
		}
		if err := eng.LoadGeometry(records, polygons); err != nil {
			return err
		}
	} else {
		log.Warn("no_geometry", "hint", "snapshots are held until geometry is configured")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	running := 0
	if run := transportFor(cfg, eng, log, m); run != nil {
		running++
		go func() { errCh <- run(ctx) }()
	}
	srv := server.New(cfg.ListenAddr(), eng, m, log)
	running++
	go func() { errCh <- srv.Run(ctx) }()

	var firstErr error
	for ; running > 0; running-- {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			stop()
		}
	}
	log.Info("shut_down")
	return firstErr
}

func transportFor(cfg config.Config, eng *engine.Engine, log *slog.Logger, m *metrics.Metrics) func(context.Context) error {
	switch cfg.Transport {
	case config.TransportRosBridge:
		rb := transport.NewRosBridge(transport.RosBridgeConfig{
			URL:          cfg.RosBridge.URL,
			DataTopic:    cfg.RosBridge.DataTopic,
			ControlTopic: cfg.RosBridge.ControlTopic,
			MaxBackoff:   cfg.RosBridge.MaxBackoff,
		}, eng, log, m)
		return rb.Run
	case config.TransportRedis:
		client := transport.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		sub := transport.NewRedisSubscriber(client, cfg.Redis.DataChannel, cfg.Redis.ControlChannel, eng, log, m)
		return func(ctx context.Context) error {
			defer client.Close()
			return sub.Run(ctx)
		}
	}
	return nil
}

type renderOptions struct {
	geometry  geometryFlags
	snapshot  string
	metric    string
	catalog   string
	width     float64
	height    float64
	format    string
	histogram int
	output    string
}

func runRender(opts renderOptions) error {
	catalog, err := loadCatalog(opts.catalog)
	if err != nil {
		return err
	}
	eopts := engine.DefaultOptions()
	eopts.Focus = opts.metric
	eopts.Catalog = catalog
	eopts.Store = precinct.NewStore(precinct.WithSimplify(opts.geometry.simplify))
	if opts.width > 0 {
		eopts.Layout.Width = opts.width
	}
	if opts.height > 0 {
		eopts.Layout.Height = opts.height
	}
	eng, err := engine.New(eopts)
	if err != nil {
		return err
	}

	records, polygons, err := loadGeometry(opts.geometry.config())
	if err != nil {
		return err
	}
	if err := eng.LoadGeometry(records, polygons); err != nil {
		return err
	}

	var paintErr error
	if opts.snapshot != "" {
		data, err := os.ReadFile(opts.snapshot)
		if err != nil {
			return fmt.Errorf("reading snapshot file: %w", err)
		}
		if _, err := eng.HandleMessage(data); err != nil {
			if errors.Is(err, snapshot.ErrMalformed) {
				return err
			}
			// the stale drawing is still written
			paintErr = err
		}
	}

	out := io.Writer(os.Stdout)
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch {
	case opts.histogram >= 0:
		err = eng.WriteHistogramSVG(opts.histogram, out)
	case opts.format == "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(eng.Scene())
	case opts.format == "svg":
		err = eng.WriteSVG(out)
	default:
		err = fmt.Errorf("unknown format %q", opts.format)
	}
	if err != nil {
		return err
	}
	if paintErr != nil {
		return fmt.Errorf("rendered stale view: %w", paintErr)
	}
	return nil
}

type validateOptions struct {
	geometry geometryFlags
	catalog  string
	focus    string
	expected int
}

func runValidate(opts validateOptions, paths []string) error {
	catalog, err := loadCatalog(opts.catalog)
	if err != nil {
		return err
	}
	store := precinct.NewStore()
	records, polygons, err := loadGeometry(opts.geometry.config())
	if err != nil {
		return err
	}
	if err := store.Load(records, polygons); err != nil {
		return fmt.Errorf("loading geometry: %w", err)
	}

	total := validation.NewReport()
	for _, path := range paths {
		report, err := validateFile(path, store, catalog, district.CheckOptions{
			Expected: opts.expected,
			Focus:    opts.focus,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", path)
		printValidationReport(report)
		fmt.Println()
		total.Merge(report)
	}
	if len(paths) > 1 {
		fmt.Printf("Total: %d snapshots (%s)\n", len(paths), total.Summary)
	}

	if !total.Valid {
		os.Exit(1)
	}
	return nil
}

// validateFile decodes loosely so that shape problems are reported rather
// than returned.
func validateFile(path string, store *precinct.Store, catalog *metric.Catalog, opts district.CheckOptions) (*validation.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	var s snapshot.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return district.Check(&s, store, catalog, opts), nil
}

type publishOptions struct {
	addr     string
	password string
	channel  string
	interval time.Duration
}

func runPublish(ctx context.Context, opts publishOptions, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := transport.OpenRedis(opts.addr, opts.password, 0)
	defer client.Close()

	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading snapshot file: %w", err)
		}
		if _, err := snapshot.Decode(data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := transport.Publish(ctx, client, opts.channel, data); err != nil {
			return err
		}
		fmt.Printf("published %s to %s\n", path, opts.channel)
		if opts.interval > 0 && i < len(paths)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.interval):
			}
		}
	}
	return nil
}
