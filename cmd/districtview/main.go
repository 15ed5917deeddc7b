package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "districtview",
		Short:        "Live choropleth and histogram views of evaluated districting plans",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(publishCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
		transport  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load geometry, subscribe to the plan stream and serve the views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath, serveOverrides{
				port:      port,
				transport: transport,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (overrides config)")
	cmd.Flags().StringVar(&transport, "transport", "", "none, rosbridge or redis (overrides config)")
	return cmd
}

func renderCmd() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one snapshot to SVG or scene JSON",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runRender(opts)
		},
	}

	addGeometryFlags(cmd, &opts.geometry)
	cmd.Flags().StringVarP(&opts.snapshot, "snapshot", "s", "", "snapshot JSON file")
	cmd.Flags().StringVarP(&opts.metric, "metric", "m", "pvi", "metric to focus")
	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "metric catalog YAML file")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "canvas width")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "canvas height")
	cmd.Flags().StringVar(&opts.format, "format", "svg", "svg or json")
	cmd.Flags().IntVar(&opts.histogram, "histogram", -1, "render this district's histogram instead of the map")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func validateCmd() *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate [snapshot.json...]",
		Short: "Check snapshots against the geometry and metric catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(opts, args)
		},
	}

	addGeometryFlags(cmd, &opts.geometry)
	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "metric catalog YAML file")
	cmd.Flags().StringVarP(&opts.focus, "metric", "m", "", "metric every district must carry")
	cmd.Flags().IntVar(&opts.expected, "districts", 0, "districts in a complete plan (default 8)")
	return cmd
}

func publishCmd() *cobra.Command {
	var opts publishOptions

	cmd := &cobra.Command{
		Use:   "publish [snapshot.json...]",
		Short: "Publish recorded snapshots on a redis channel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "redis", "localhost:6379", "redis address")
	cmd.Flags().StringVar(&opts.password, "redis-password", "", "redis password")
	cmd.Flags().StringVar(&opts.channel, "channel", "districtview:designs", "channel to publish on")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "pause between snapshots")
	return cmd
}

func addGeometryFlags(cmd *cobra.Command, g *geometryFlags) {
	cmd.Flags().StringVar(&g.records, "records", "", "precinct records JSON file")
	cmd.Flags().StringVar(&g.polygons, "polygons", "", "precinct polygons JSON file")
	cmd.Flags().StringVar(&g.geojson, "geojson", "", "precinct GeoJSON FeatureCollection")
	cmd.Flags().Float64Var(&g.simplify, "simplify", 0, "boundary simplification tolerance")
	cmd.MarkFlagsRequiredTogether("records", "polygons")
	cmd.MarkFlagsMutuallyExclusive("geojson", "records")
}
