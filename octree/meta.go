package octree

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// AllPointsLOD requests a node's data at full resolution.
const AllPointsLOD = 1

// PositionEncoding is the on-wire format of a node's point positions.
// Positions are always relative to the node's bounding cube and normalized to [0,1].
type PositionEncoding int

const (
	Uint8 PositionEncoding = iota
	Uint16
	Float32
)

func (e PositionEncoding) String() string {
	switch e {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Float32:
		return "float32"
	default:
		return "unknown"
	}
}

// BytesPerPoint is the size of one encoded position.
func (e PositionEncoding) BytesPerPoint() int {
	switch e {
	case Uint8:
		return 3
	case Uint16:
		return 6
	default:
		return 12
	}
}

// ParsePositionEncoding is the inverse of PositionEncoding.String.
func ParsePositionEncoding(s string) (PositionEncoding, error) {
	switch s {
	case "uint8":
		return Uint8, nil
	case "uint16":
		return Uint16, nil
	case "float32":
		return Float32, nil
	}
	return 0, errors.Errorf("unknown position encoding %q", s)
}

// EncodingForResolution picks the smallest encoding whose quantization step
// over edgeLength is no coarser than resolution.
func EncodingForResolution(edgeLength, resolution float32) PositionEncoding {
	switch {
	case edgeLength/math.MaxUint8 <= resolution:
		return Uint8
	case edgeLength/math.MaxUint16 <= resolution:
		return Uint16
	default:
		return Float32
	}
}

// ColorBytesPerPoint is the size of one packed RGB color.
const ColorBytesPerPoint = 3

// NodeMeta describes a node without its payload.
type NodeMeta struct {
	NumPoints        int64
	PositionEncoding PositionEncoding
	BoundingCube     Cube
}

// NumPointsForLevelOfDetail returns how many points to use when only every
// lod-th point is wanted.
func (m NodeMeta) NumPointsForLevelOfDetail(lod int) int64 {
	if lod <= 1 {
		return m.NumPoints
	}
	return (m.NumPoints + int64(lod) - 1) / int64(lod)
}

// NodeData is the raw payload of one node.
type NodeData struct {
	Meta      NodeMeta
	Positions []byte
	Colors    []byte
}

// Validate checks that the payload sizes match the meta.
func (d *NodeData) Validate() error {
	n := d.Meta.NumPoints
	if want := n * int64(d.Meta.PositionEncoding.BytesPerPoint()); int64(len(d.Positions)) != want {
		return errors.Errorf("position buffer has %d bytes, want %d for %d %s points",
			len(d.Positions), want, n, d.Meta.PositionEncoding)
	}
	if want := n * ColorBytesPerPoint; int64(len(d.Colors)) != want {
		return errors.Errorf("color buffer has %d bytes, want %d for %d points", len(d.Colors), want, n)
	}
	return nil
}

// Prefix returns a copy of d truncated to its first n points.
func (d *NodeData) Prefix(n int64) *NodeData {
	if n >= d.Meta.NumPoints {
		return d
	}
	meta := d.Meta
	meta.NumPoints = n
	return &NodeData{
		Meta:      meta,
		Positions: d.Positions[:n*int64(meta.PositionEncoding.BytesPerPoint())],
		Colors:    d.Colors[:n*ColorBytesPerPoint],
	}
}

// Point is a single colored point in world space.
type Point struct {
	Position mgl32.Vec3
	Color    [3]uint8
}

// EncodePositions writes points relative to cube in the given encoding.
func EncodePositions(points []Point, cube Cube, enc PositionEncoding) []byte {
	stride := enc.BytesPerPoint()
	out := make([]byte, len(points)*stride)
	for i, p := range points {
		buf := out[i*stride : (i+1)*stride]
		for axis := 0; axis < 3; axis++ {
			v := (p.Position[axis] - cube.Min[axis]) / cube.EdgeLength
			v = mgl32.Clamp(v, 0, 1)
			switch enc {
			case Uint8:
				buf[axis] = uint8(math.Round(float64(v) * math.MaxUint8))
			case Uint16:
				binary.LittleEndian.PutUint16(buf[axis*2:], uint16(math.Round(float64(v)*math.MaxUint16)))
			default:
				binary.LittleEndian.PutUint32(buf[axis*4:], math.Float32bits(v))
			}
		}
	}
	return out
}

// DecodePosition returns the world-space position of point i.
func DecodePosition(positions []byte, i int, cube Cube, enc PositionEncoding) mgl32.Vec3 {
	stride := enc.BytesPerPoint()
	buf := positions[i*stride : (i+1)*stride]
	var out mgl32.Vec3
	for axis := 0; axis < 3; axis++ {
		var v float32
		switch enc {
		case Uint8:
			v = float32(buf[axis]) / math.MaxUint8
		case Uint16:
			v = float32(binary.LittleEndian.Uint16(buf[axis*2:])) / math.MaxUint16
		default:
			v = math.Float32frombits(binary.LittleEndian.Uint32(buf[axis*4:]))
		}
		out[axis] = cube.Min[axis] + v*cube.EdgeLength
	}
	return out
}

// EncodeColors packs point colors as RGB bytes.
func EncodeColors(points []Point) []byte {
	out := make([]byte, 0, len(points)*ColorBytesPerPoint)
	for _, p := range points {
		out = append(out, p.Color[0], p.Color[1], p.Color[2])
	}
	return out
}
