package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"point-viewer/core"
	"point-viewer/heightmap"
	"point-viewer/internal/opengl"
	"point-viewer/octree"
	"point-viewer/renderer"
)

// idleWait bounds how long an idle frame blocks waiting for input.
const idleWait = 100 * time.Millisecond

func viewAction(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	opts, err := cfg.ViewerOptions()
	if err != nil {
		return err
	}
	cacheMB, err := cfg.CacheSizeMB()
	if err != nil {
		return err
	}

	arg := c.Args().First()
	buildOpts := octree.DefaultBuildOptions()
	tree, err := openInput(newRegistry(logger, buildOpts), arg, buildOpts)
	if err != nil {
		return err
	}
	logger.Infow("loaded octree", "source", arg, "nodes", len(tree.Nodes()),
		"cache_mb", cacheMB, "max_nodes_in_memory", opts.MaxNodesInMemory)

	winCfg := opengl.DefaultWindowConfig()
	winCfg.Width = cfg.Window.Width
	winCfg.Height = cfg.Window.Height
	winCfg.Title = fmt.Sprintf("Point Viewer - %s", arg)
	win, err := opengl.NewWindow(winCfg)
	if err != nil {
		return err
	}
	defer win.Destroy()

	drawer, err := opengl.NewPointDrawer()
	if err != nil {
		return err
	}
	defer drawer.Delete()
	boxes, err := opengl.NewBoxDrawer()
	if err != nil {
		return err
	}
	defer boxes.Delete()

	viewer := renderer.NewViewer(tree, drawer, boxes, win.Width, win.Height, opts, logger.Named("viewer"))
	defer viewer.Close()

	if c.IsSet(flagHeightMap) {
		cfg.HeightMapPath = c.String(flagHeightMap)
	}
	if cfg.HeightMapPath != "" {
		grid, err := heightmap.Load(cfg.HeightMapPath)
		if err != nil {
			return err
		}
		terrain, err := opengl.NewHeightMapDrawer()
		if err != nil {
			return err
		}
		defer terrain.Delete()
		if err := viewer.SetHeightMap(grid, terrain); err != nil {
			return err
		}
	}

	for !viewer.Done() {
		var in core.Input
		if viewer.Idle() {
			in = win.WaitInput(idleWait)
		} else {
			in = win.PollInput()
		}
		viewer.Frame(in, win)
	}
	logger.Info("viewer closed")
	return nil
}
