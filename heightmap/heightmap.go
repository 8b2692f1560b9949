// Package heightmap holds square ground height grids and turns them into
// triangle meshes.
package heightmap

import (
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"point-viewer/octree"
)

// NoData marks cells without a height. Cells touching one are not
// triangulated.
const NoData float32 = -1e9

// Grid is a square height field. Cell (x, y) sits at
// Origin + (x, y) * Resolution in world XY.
type Grid struct {
	OriginX    float32 `yaml:"origin_x"`
	OriginY    float32 `yaml:"origin_y"`
	Resolution float32 `yaml:"resolution_m"`
	Size       int     `yaml:"size"`
	// Heights is row-major, Size rows of Size values.
	Heights []float32 `yaml:"heights,flow"`
}

func (g *Grid) Validate() error {
	switch {
	case g.Size < 2:
		return errors.Errorf("height map size must be at least 2, got %d", g.Size)
	case g.Resolution <= 0:
		return errors.Errorf("height map resolution must be positive, got %v", g.Resolution)
	case len(g.Heights) != g.Size*g.Size:
		return errors.Errorf("height map has %d values, want %d", len(g.Heights), g.Size*g.Size)
	}
	return nil
}

// Height returns the height of cell (x, y), or NoData outside the grid.
func (g *Grid) Height(x, y int) float32 {
	if x < 0 || y < 0 || x >= g.Size || y >= g.Size {
		return NoData
	}
	return g.Heights[x+y*g.Size]
}

func (g *Grid) WorldPos(x, y int) mgl32.Vec3 {
	return mgl32.Vec3{
		g.OriginX + float32(x)*g.Resolution,
		g.OriginY + float32(y)*g.Resolution,
		g.Height(x, y),
	}
}

// EdgeLength is the world extent of the grid along X and Y.
func (g *Grid) EdgeLength() float32 {
	return float32(g.Size-1) * g.Resolution
}

// Bounds returns the box spanned by the grid and its valid heights. A grid
// without data is flat at zero.
func (g *Grid) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	lo, hi := float32(math.MaxFloat32), NoData
	for _, h := range g.Heights {
		if h == NoData {
			continue
		}
		lo, hi = min(lo, h), max(hi, h)
	}
	if hi == NoData {
		lo, hi = 0, 0
	}
	edge := g.EdgeLength()
	return mgl32.Vec3{g.OriginX, g.OriginY, lo}, mgl32.Vec3{g.OriginX + edge, g.OriginY + edge, hi}
}

// FromPoints rasterizes points into a grid keeping the highest point per
// cell.
func FromPoints(points []octree.Point, resolution float32) (*Grid, error) {
	if len(points) == 0 {
		return nil, errors.New("cannot build a height map from zero points")
	}
	if resolution <= 0 {
		return nil, errors.Errorf("height map resolution must be positive, got %v", resolution)
	}
	minX, minY := float32(math.MaxFloat32), float32(math.MaxFloat32)
	maxX, maxY := -float32(math.MaxFloat32), -float32(math.MaxFloat32)
	for _, p := range points {
		minX, minY = min(minX, p.Position.X()), min(minY, p.Position.Y())
		maxX, maxY = max(maxX, p.Position.X()), max(maxY, p.Position.Y())
	}
	extent := max(maxX-minX, maxY-minY)
	size := int(math.Ceil(float64(extent/resolution))) + 1
	size = max(size, 2)

	g := &Grid{
		OriginX:    minX,
		OriginY:    minY,
		Resolution: resolution,
		Size:       size,
		Heights:    make([]float32, size*size),
	}
	for i := range g.Heights {
		g.Heights[i] = NoData
	}
	for _, p := range points {
		x := int(math.Round(float64((p.Position.X() - minX) / resolution)))
		y := int(math.Round(float64((p.Position.Y() - minY) / resolution)))
		x, y = min(x, size-1), min(y, size-1)
		i := x + y*size
		g.Heights[i] = max(g.Heights[i], p.Position.Z())
	}
	return g, nil
}

// Load reads a grid from a YAML file. Unknown keys are an error.
func Load(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open height map")
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var g Grid
	if err := decoder.Decode(&g); err != nil {
		return nil, errors.Wrapf(err, "failed to parse height map %s", path)
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return &g, nil
}

func Save(path string, g *Grid) error {
	out, err := yaml.Marshal(g)
	if err != nil {
		return errors.Wrap(err, "failed to encode height map")
	}
	return errors.Wrap(os.WriteFile(path, out, 0o644), "failed to write height map")
}
