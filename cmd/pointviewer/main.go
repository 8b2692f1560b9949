// Command pointviewer views, builds and inspects point cloud octrees.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"point-viewer/config"
	"point-viewer/io"
	"point-viewer/logging"
	"point-viewer/octree"
)

const (
	flagConfig      = "config"
	flagCacheSize   = "cache-size"
	flagLogLevel    = "log-level"
	flagMetricsAddr = "metrics-addr"
	flagMaxDepth    = "max-depth"
	flagNodePoints  = "max-points-per-node"
	flagResolution  = "resolution"
	flagHeightMap   = "height-map"
)

func main() {
	app := &cli.App{
		Name:  "pointviewer",
		Usage: "view and build point cloud octrees",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
			},
			&cli.StringFlag{
				Name:  flagCacheSize,
				Usage: "memory budget for resident nodes, e.g. 2000MB",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  flagMetricsAddr,
				Usage: "serve prometheus metrics on this address",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "view",
				Usage:     "open an octree in a window",
				ArgsUsage: "<octree>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagHeightMap,
						Usage: "YAML height map drawn under the points",
					},
				},
				Action: viewAction,
			},
			{
				Name:      "build",
				Usage:     "build an on-disk octree from a point file or generator",
				ArgsUsage: "<input> <outdir>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagMaxDepth,
						Value: octree.DefaultBuildOptions().MaxDepth,
						Usage: "deepest octree level",
					},
					&cli.IntFlag{
						Name:  flagNodePoints,
						Value: octree.DefaultBuildOptions().MaxPointsPerNode,
						Usage: "points kept by each inner node",
					},
					&cli.Float64Flag{
						Name:  flagResolution,
						Value: float64(octree.DefaultBuildOptions().Resolution),
						Usage: "largest acceptable quantization step in world units",
					},
				},
				Action: buildAction,
			},
			{
				Name:      "heightmap",
				Usage:     "rasterize a point file or generator into a YAML height map",
				ArgsUsage: "<input> <out.yaml>",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  flagResolution,
						Value: 1,
						Usage: "cell size in world units",
					},
				},
				Action: heightMapAction,
			},
			{
				Name:      "info",
				Usage:     "print per-level statistics of an octree",
				ArgsUsage: "<octree>",
				Action:    infoAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration, applies flag overrides and builds the
// logger. It starts the metrics server when an address is configured.
func setup(c *cli.Context) (config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return cfg, nil, err
	}
	if c.IsSet(flagCacheSize) {
		cfg.CacheSize = c.String(flagCacheSize)
	}
	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	}
	if c.IsSet(flagMetricsAddr) {
		cfg.MetricsAddr = c.String(flagMetricsAddr)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	logger, err := logging.NewLogger("pointviewer", cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr, logger)
	}
	return cfg, logger, nil
}

func serveMetrics(addr string, logger *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infow("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server stopped", "error", err)
		}
	}()
}

// newRegistry knows the generated and point-file octree sources. Anything
// else is opened as an on-disk octree directory.
func newRegistry(logger *zap.SugaredLogger, opts octree.BuildOptions) *octree.Registry {
	return octree.NewRegistry(logger.Named("octree")).
		Register("gen:", octree.GeneratedFactory(opts)).
		Register("las:", octree.PointsFactory(io.ReadLAS, opts)).
		Register("xyz:", octree.PointsFactory(io.ReadXYZ, opts))
}

// openInput opens point files by extension and everything else through the
// registry.
func openInput(reg *octree.Registry, arg string, opts octree.BuildOptions) (octree.Octree, error) {
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".las", ".xyz", ".txt", ".pts":
		return octree.PointsFactory(io.ReadPoints, opts)(arg)
	}
	return reg.Open(arg)
}

func requireArgs(c *cli.Context, n int) error {
	if c.Args().Len() != n {
		return errors.Errorf("%s expects %d argument(s): %s", c.Command.Name, n, c.Command.ArgsUsage)
	}
	return nil
}

func humanBytes(n int64) string {
	return units.BytesSize(float64(n))
}
