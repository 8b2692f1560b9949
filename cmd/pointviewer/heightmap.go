package main

import (
	"strings"

	"github.com/urfave/cli/v2"

	"point-viewer/heightmap"
	"point-viewer/io"
	"point-viewer/octree"
)

func heightMapAction(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	_, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	input, out := c.Args().Get(0), c.Args().Get(1)
	var points []octree.Point
	if arg, ok := strings.CutPrefix(input, "gen:"); ok {
		points, err = octree.GenerateFromArg(arg, octree.DefaultBuildOptions().Seed)
	} else {
		points, err = io.ReadPoints(input)
	}
	if err != nil {
		return err
	}

	grid, err := heightmap.FromPoints(points, float32(c.Float64(flagResolution)))
	if err != nil {
		return err
	}
	if err := heightmap.Save(out, grid); err != nil {
		return err
	}
	logger.Infow("wrote height map", "input", input, "out", out,
		"size", grid.Size, "resolution", grid.Resolution, "points", len(points))
	return nil
}
