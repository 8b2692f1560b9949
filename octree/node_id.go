package octree

import (
	"strings"

	"github.com/pkg/errors"
)

// MaxLevel is the deepest level a NodeID can address (3 bits per level in a uint64).
const MaxLevel = 21

// NodeID addresses one node of the octree. The root is level 0; every level
// below it appends one octant (0-7) to the index.
type NodeID struct {
	level uint8
	index uint64
}

// RootID is the id of the root node.
var RootID = NodeID{}

// NewNodeID builds an id from a level and the packed octant path.
func NewNodeID(level int, index uint64) NodeID {
	return NodeID{level: uint8(level), index: index}
}

func (id NodeID) Level() int    { return int(id.level) }
func (id NodeID) Index() uint64 { return id.index }

// Child returns the id of the given octant below id.
func (id NodeID) Child(octant int) NodeID {
	return NodeID{level: id.level + 1, index: id.index<<3 | uint64(octant&7)}
}

// Parent returns the parent id. The root is its own parent.
func (id NodeID) Parent() NodeID {
	if id.level == 0 {
		return id
	}
	return NodeID{level: id.level - 1, index: id.index >> 3}
}

// Octant returns the octant of id within its parent.
func (id NodeID) Octant() int {
	return int(id.index & 7)
}

// Less orders ids by level, then by index.
func (id NodeID) Less(other NodeID) bool {
	if id.level != other.level {
		return id.level < other.level
	}
	return id.index < other.index
}

// String returns the "r" prefixed octant path, e.g. "r047".
func (id NodeID) String() string {
	var sb strings.Builder
	sb.Grow(int(id.level) + 1)
	sb.WriteByte('r')
	for l := int(id.level) - 1; l >= 0; l-- {
		sb.WriteByte(byte('0' + (id.index>>(3*uint(l)))&7))
	}
	return sb.String()
}

// ParseNodeID parses the output of NodeID.String.
func ParseNodeID(s string) (NodeID, error) {
	if !strings.HasPrefix(s, "r") {
		return NodeID{}, errors.Errorf("invalid node id %q: missing 'r' prefix", s)
	}
	path := s[1:]
	if len(path) > MaxLevel {
		return NodeID{}, errors.Errorf("invalid node id %q: deeper than %d levels", s, MaxLevel)
	}
	var index uint64
	for _, c := range path {
		if c < '0' || c > '7' {
			return NodeID{}, errors.Errorf("invalid node id %q: octant %q out of range", s, c)
		}
		index = index<<3 | uint64(c-'0')
	}
	return NodeID{level: uint8(len(path)), index: index}, nil
}
