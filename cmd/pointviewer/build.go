package main

import (
	"time"

	"github.com/urfave/cli/v2"

	"point-viewer/octree"
)

func buildAction(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	_, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	opts := octree.DefaultBuildOptions()
	opts.MaxDepth = c.Int(flagMaxDepth)
	opts.MaxPointsPerNode = c.Int(flagNodePoints)
	opts.Resolution = float32(c.Float64(flagResolution))

	input, outDir := c.Args().Get(0), c.Args().Get(1)
	start := time.Now()
	tree, err := openInput(newRegistry(logger, opts), input, opts)
	if err != nil {
		return err
	}
	logger.Infow("built octree", "input", input, "nodes", len(tree.Nodes()), "elapsed", time.Since(start))

	if err := octree.WriteDisk(c.Context, outDir, tree, opts.Resolution); err != nil {
		return err
	}
	logger.Infow("wrote octree", "dir", outDir, "elapsed", time.Since(start))
	return nil
}
