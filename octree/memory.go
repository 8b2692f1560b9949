package octree

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// BuildOptions controls how points are distributed over octree nodes.
type BuildOptions struct {
	// MaxPointsPerNode is the sample size an inner node keeps.
	MaxPointsPerNode int
	// MaxDepth stops subdivision; nodes at this level keep all their points.
	MaxDepth int
	// Resolution is the largest acceptable quantization step in world units.
	Resolution float32
	// Seed makes the subsampling reproducible.
	Seed uint64
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		MaxPointsPerNode: 20000,
		MaxDepth:         12,
		Resolution:       0.001,
		Seed:             1,
	}
}

// MemoryOctree keeps all node payloads in memory.
type MemoryOctree struct {
	root          Cube
	resolution    float32
	nodes         map[NodeID]*NodeData
	minScreenSize float32
}

// NewMemoryOctree returns an empty octree over root.
func NewMemoryOctree(root Cube) *MemoryOctree {
	return &MemoryOctree{
		root:          root,
		nodes:         make(map[NodeID]*NodeData),
		minScreenSize: DefaultMinScreenSize,
	}
}

// Build distributes points over a new octree. Every node keeps a uniform
// random sample of the points inside its cube that no ancestor kept.
func Build(points []Point, opts BuildOptions) (*MemoryOctree, error) {
	if opts.MaxPointsPerNode <= 0 {
		return nil, errors.Errorf("max points per node must be positive, got %d", opts.MaxPointsPerNode)
	}
	if opts.MaxDepth < 0 || opts.MaxDepth > MaxLevel {
		return nil, errors.Errorf("max depth must be in [0, %d], got %d", MaxLevel, opts.MaxDepth)
	}
	if opts.Resolution <= 0 {
		return nil, errors.Errorf("resolution must be positive, got %v", opts.Resolution)
	}

	t := NewMemoryOctree(BoundingCube(points))
	t.resolution = opts.Resolution

	shuffled := make([]Point, len(points))
	copy(shuffled, points)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	t.split(RootID, t.root, shuffled, opts)
	return t, nil
}

func (t *MemoryOctree) split(id NodeID, cube Cube, points []Point, opts BuildOptions) {
	if len(points) == 0 {
		return
	}
	keep, rest := points, []Point(nil)
	if len(points) > opts.MaxPointsPerNode && id.Level() < opts.MaxDepth {
		keep, rest = points[:opts.MaxPointsPerNode], points[opts.MaxPointsPerNode:]
	}

	enc := EncodingForResolution(cube.EdgeLength, opts.Resolution)
	t.nodes[id] = &NodeData{
		Meta: NodeMeta{
			NumPoints:        int64(len(keep)),
			PositionEncoding: enc,
			BoundingCube:     cube,
		},
		Positions: EncodePositions(keep, cube, enc),
		Colors:    EncodeColors(keep),
	}

	var buckets [8][]Point
	for _, p := range rest {
		octant := cube.ChildIndexOf(p.Position)
		buckets[octant] = append(buckets[octant], p)
	}
	for octant, bucket := range buckets {
		t.split(id.Child(octant), cube.Child(octant), bucket, opts)
	}
}

// Insert stores data for id, replacing any previous payload.
func (t *MemoryOctree) Insert(id NodeID, data *NodeData) {
	t.nodes[id] = data
}

// Remove drops id from the octree.
func (t *MemoryOctree) Remove(id NodeID) {
	delete(t.nodes, id)
}

// SetMinScreenSize changes the projected size below which nodes are culled.
func (t *MemoryOctree) SetMinScreenSize(px float32) {
	t.minScreenSize = px
}

func (t *MemoryOctree) RootCube() Cube      { return t.root }
func (t *MemoryOctree) Resolution() float32 { return t.resolution }

func (t *MemoryOctree) Nodes() map[NodeID]NodeMeta {
	out := make(map[NodeID]NodeMeta, len(t.nodes))
	for id, d := range t.nodes {
		out[id] = d.Meta
	}
	return out
}

func (t *MemoryOctree) VisibleNodes(worldToClip mgl32.Mat4, width, height int, useLOD bool) []VisibleNode {
	return collectVisible(func(id NodeID) (NodeMeta, bool) {
		d, ok := t.nodes[id]
		if !ok {
			return NodeMeta{}, false
		}
		return d.Meta, true
	}, worldToClip, width, height, useLOD, t.minScreenSize)
}

// NodeData returns the stored payload. The returned buffers are shared and
// must not be modified.
func (t *MemoryOctree) NodeData(id NodeID, levelOfDetail int) (*NodeData, error) {
	d, ok := t.nodes[id]
	if !ok {
		return nil, errors.Wrapf(ErrNodeNotFound, "node %s", id)
	}
	return d.Prefix(d.Meta.NumPointsForLevelOfDetail(levelOfDetail)), nil
}
