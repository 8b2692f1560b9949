package octree

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	// MetaFileName is the index file of an on-disk octree.
	MetaFileName = "meta.yaml"
	// DiskFormatVersion is the layout version written by WriteDisk.
	DiskFormatVersion = 1

	positionsExt = ".xyz"
	colorsExt    = ".rgb"
)

type diskCube struct {
	Min        [3]float32 `yaml:"min"`
	EdgeLength float32    `yaml:"edge_length"`
}

type diskNode struct {
	ID        string `yaml:"id"`
	NumPoints int64  `yaml:"num_points"`
	Encoding  string `yaml:"encoding"`
}

type diskMeta struct {
	Version      int        `yaml:"version"`
	BoundingCube diskCube   `yaml:"bounding_cube"`
	Resolution   float32    `yaml:"resolution"`
	Nodes        []diskNode `yaml:"nodes"`
}

// DiskOctree reads node payloads lazily from a directory written by WriteDisk.
type DiskOctree struct {
	dir           string
	root          Cube
	resolution    float32
	nodes         map[NodeID]NodeMeta
	minScreenSize float32
}

// OpenDisk loads the index of the octree stored in dir.
func OpenDisk(dir string) (*DiskOctree, error) {
	f, err := os.Open(filepath.Join(dir, MetaFileName))
	if err != nil {
		return nil, errors.Wrapf(err, "open octree %q", dir)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var meta diskMeta
	if err := decoder.Decode(&meta); err != nil {
		return nil, errors.Wrapf(err, "decode %s in %q", MetaFileName, dir)
	}
	if meta.Version != DiskFormatVersion {
		return nil, errors.Errorf("octree %q has version %d, want %d", dir, meta.Version, DiskFormatVersion)
	}
	if meta.BoundingCube.EdgeLength <= 0 {
		return nil, errors.Errorf("octree %q has non-positive edge length %v", dir, meta.BoundingCube.EdgeLength)
	}

	root := Cube{Min: mgl32.Vec3(meta.BoundingCube.Min), EdgeLength: meta.BoundingCube.EdgeLength}
	t := &DiskOctree{
		dir:           dir,
		root:          root,
		resolution:    meta.Resolution,
		nodes:         make(map[NodeID]NodeMeta, len(meta.Nodes)),
		minScreenSize: DefaultMinScreenSize,
	}
	for _, n := range meta.Nodes {
		id, err := ParseNodeID(n.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "octree %q", dir)
		}
		enc, err := ParsePositionEncoding(n.Encoding)
		if err != nil {
			return nil, errors.Wrapf(err, "octree %q node %s", dir, id)
		}
		t.nodes[id] = NodeMeta{
			NumPoints:        n.NumPoints,
			PositionEncoding: enc,
			BoundingCube:     CubeForNode(root, id),
		}
	}
	return t, nil
}

func (t *DiskOctree) SetMinScreenSize(px float32) {
	t.minScreenSize = px
}

func (t *DiskOctree) RootCube() Cube      { return t.root }
func (t *DiskOctree) Resolution() float32 { return t.resolution }

func (t *DiskOctree) Nodes() map[NodeID]NodeMeta {
	out := make(map[NodeID]NodeMeta, len(t.nodes))
	for id, m := range t.nodes {
		out[id] = m
	}
	return out
}

func (t *DiskOctree) VisibleNodes(worldToClip mgl32.Mat4, width, height int, useLOD bool) []VisibleNode {
	return collectVisible(func(id NodeID) (NodeMeta, bool) {
		m, ok := t.nodes[id]
		return m, ok
	}, worldToClip, width, height, useLOD, t.minScreenSize)
}

// NodeData reads the payload of id from disk. Only the requested prefix of
// the node is returned.
func (t *DiskOctree) NodeData(id NodeID, levelOfDetail int) (*NodeData, error) {
	meta, ok := t.nodes[id]
	if !ok {
		return nil, errors.Wrapf(ErrNodeNotFound, "node %s", id)
	}
	positions, err := t.readNodeFile(id, positionsExt)
	if err != nil {
		return nil, err
	}
	colors, err := t.readNodeFile(id, colorsExt)
	if err != nil {
		return nil, err
	}
	data := &NodeData{Meta: meta, Positions: positions, Colors: colors}
	if err := data.Validate(); err != nil {
		return nil, errors.Wrapf(err, "node %s", id)
	}
	return data.Prefix(meta.NumPointsForLevelOfDetail(levelOfDetail)), nil
}

func (t *DiskOctree) readNodeFile(id NodeID, ext string) ([]byte, error) {
	path := filepath.Join(t.dir, id.String()+ext)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(ErrNodeNotFound, "node %s: missing %s", id, filepath.Base(path))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read node %s", id)
	}
	return b, nil
}

// WriteDisk stores every node of src in dir. Node files are written in
// parallel; the index is written last so a partial write is never opened.
func WriteDisk(ctx context.Context, dir string, src Octree, resolution float32) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %q", dir)
	}

	nodes := src.Nodes()
	ids := make([]NodeID, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b NodeID) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := src.NodeData(id, AllPointsLOD)
			if err != nil {
				return err
			}
			base := filepath.Join(dir, id.String())
			return multierr.Append(
				os.WriteFile(base+positionsExt, data.Positions, 0o644),
				os.WriteFile(base+colorsExt, data.Colors, 0o644),
			)
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrapf(err, "write nodes to %q", dir)
	}

	root := src.RootCube()
	meta := diskMeta{
		Version:      DiskFormatVersion,
		BoundingCube: diskCube{Min: root.Min, EdgeLength: root.EdgeLength},
		Resolution:   resolution,
		Nodes:        make([]diskNode, 0, len(ids)),
	}
	for _, id := range ids {
		m := nodes[id]
		meta.Nodes = append(meta.Nodes, diskNode{
			ID:        id.String(),
			NumPoints: m.NumPoints,
			Encoding:  m.PositionEncoding.String(),
		})
	}
	out, err := yaml.Marshal(&meta)
	if err != nil {
		return errors.Wrap(err, "encode octree index")
	}
	tmp := filepath.Join(dir, MetaFileName+".tmp")
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return errors.Wrapf(err, "write %q", tmp)
	}
	return errors.Wrap(os.Rename(tmp, filepath.Join(dir, MetaFileName)), "publish octree index")
}
