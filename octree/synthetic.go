package octree

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// SyntheticKinds lists the shapes Generate understands.
var SyntheticKinds = []string{"terrain", "sphere", "cube"}

// Generate produces n points of a procedural shape, deterministically for a seed.
func Generate(kind string, n int, seed uint64) ([]Point, error) {
	if n <= 0 {
		return nil, errors.Errorf("point count must be positive, got %d", n)
	}
	rng := rand.New(rand.NewPCG(seed, seed+1))
	points := make([]Point, n)
	switch kind {
	case "terrain":
		// 200m x 200m height field with rolling hills, colored by height.
		for i := range points {
			x := rng.Float32()*200 - 100
			y := rng.Float32()*200 - 100
			z := 6*float32(math.Sin(float64(x)/17)*math.Cos(float64(y)/23)) +
				2*float32(math.Sin(float64(x+y)/5))
			t := (z + 8) / 16
			points[i] = Point{
				Position: mgl32.Vec3{x, y, z},
				Color:    [3]uint8{uint8(60 + 150*t), uint8(120 + 100*(1-t)), uint8(40 + 60*t)},
			}
		}
	case "sphere":
		for i := range points {
			// Uniform on the sphere surface.
			z := rng.Float64()*2 - 1
			phi := rng.Float64() * 2 * math.Pi
			r := math.Sqrt(1 - z*z)
			n := mgl32.Vec3{float32(r * math.Cos(phi)), float32(r * math.Sin(phi)), float32(z)}
			points[i] = Point{
				Position: n.Mul(50),
				Color:    [3]uint8{uint8(127.5 * (n[0] + 1)), uint8(127.5 * (n[1] + 1)), uint8(127.5 * (n[2] + 1))},
			}
		}
	case "cube":
		for i := range points {
			p := mgl32.Vec3{rng.Float32(), rng.Float32(), rng.Float32()}
			points[i] = Point{
				Position: p.Mul(100),
				Color:    [3]uint8{uint8(255 * p[0]), uint8(255 * p[1]), uint8(255 * p[2])},
			}
		}
	default:
		return nil, errors.Errorf("unknown synthetic kind %q, want one of %v", kind, SyntheticKinds)
	}
	return points, nil
}
