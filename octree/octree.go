// Package octree holds the point-cloud octree data model and the sources the
// viewer streams nodes from.
package octree

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ErrNodeNotFound is returned when a source has no data for a node.
var ErrNodeNotFound = errors.New("octree: node not found")

// VisibleNode is one node inside the current view frustum.
type VisibleNode struct {
	ID           NodeID
	BoundingCube Cube
	// LevelOfDetail is the suggested subsampling factor: draw every k-th point.
	LevelOfDetail int
	// ScreenSize is the projected extent in pixels.
	ScreenSize float32
}

// VisibleNodeProvider computes the set of nodes inside a camera frustum.
type VisibleNodeProvider interface {
	VisibleNodes(worldToClip mgl32.Mat4, width, height int, useLOD bool) []VisibleNode
}

// NodeDataProvider returns the payload of a node.
type NodeDataProvider interface {
	NodeData(id NodeID, levelOfDetail int) (*NodeData, error)
}

// Octree is a complete point-cloud source.
type Octree interface {
	VisibleNodeProvider
	NodeDataProvider
	RootCube() Cube
	// Nodes returns the metadata of every node, keyed by id.
	Nodes() map[NodeID]NodeMeta
}
