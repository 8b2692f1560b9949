package nodecache

import (
	"math/rand/v2"

	"github.com/pkg/errors"

	"point-viewer/octree"
)

// ErrMalformedNode is returned when a node payload does not match its meta.
var ErrMalformedNode = errors.New("nodecache: malformed node data")

// shuffle returns a copy of data with its points in uniformly random order.
// Positions and colors are permuted identically so that any prefix of the
// result is a uniform subsample of the node.
func shuffle(data *octree.NodeData, rng *rand.Rand) (*octree.NodeData, error) {
	if err := data.Validate(); err != nil {
		return nil, errors.Wrap(ErrMalformedNode, err.Error())
	}
	order := rng.Perm(int(data.Meta.NumPoints))
	return &octree.NodeData{
		Meta:      data.Meta,
		Positions: reshuffle(order, data.Positions, data.Meta.PositionEncoding.BytesPerPoint()),
		Colors:    reshuffle(order, data.Colors, octree.ColorBytesPerPoint),
	}, nil
}

// reshuffle gathers the stride-sized records of old in the given order.
func reshuffle(order []int, old []byte, stride int) []byte {
	out := make([]byte, 0, len(old))
	for _, i := range order {
		out = append(out, old[i*stride:(i+1)*stride]...)
	}
	return out
}
