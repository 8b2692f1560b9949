package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"point-viewer/octree"
)

func infoAction(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	_, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	arg := c.Args().First()
	opts := octree.DefaultBuildOptions()
	tree, err := openInput(newRegistry(logger, opts), arg, opts)
	if err != nil {
		return err
	}
	root := tree.RootCube()
	fmt.Fprintf(c.App.Writer, "%s\nroot min %v, edge length %g\n", arg, root.Min, root.EdgeLength)
	if r, ok := tree.(interface{ Resolution() float32 }); ok {
		fmt.Fprintf(c.App.Writer, "resolution %g\n", r.Resolution())
	}
	fmt.Fprintln(c.App.Writer, levelTable(octree.Summarize(tree)))
	return nil
}

func levelTable(stats []octree.LevelStats) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Level", "Nodes", "Points", "Size"})
	var nodes int
	var points, size int64
	for _, s := range stats {
		t.AppendRow(table.Row{s.Level, s.Nodes, s.Points, humanBytes(s.Bytes)})
		nodes += s.Nodes
		points += s.Points
		size += s.Bytes
	}
	t.AppendFooter(table.Row{"Total", nodes, points, humanBytes(size)})
	return t.Render()
}
