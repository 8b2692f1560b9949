// Package lod picks how deep into the octree the viewer may draw this frame.
//
// The number of visible nodes with level <= d grows monotonically with d, so
// the deepest admissible level is found by bisection over [0, maxLevel).
package lod

import (
	"time"

	"github.com/samber/lo"

	"point-viewer/octree"
)

const (
	// MaxDepthSentinel bounds the search while the camera rests. It is deeper
	// than any octree, so every visible node is a candidate.
	MaxDepthSentinel = 256

	// MovingWindow is how long after the last camera motion the viewer still
	// counts as moving.
	MovingWindow = 150 * time.Millisecond
)

// Result is the filtered visible set and the level it was cut at.
type Result struct {
	Nodes []octree.VisibleNode
	Level int
}

// MaxLevel returns the exclusive upper bound of the depth search.
func MaxLevel(moving bool, maxLevelMoving int) int {
	if moving {
		return maxLevelMoving
	}
	return MaxDepthSentinel
}

// Resolve returns the visible nodes up to the deepest level below maxLevel
// whose node count stays under budget. Input order is preserved. When even the
// root level does not fit, the level-0 nodes are returned anyway.
func Resolve(visible []octree.VisibleNode, budget, maxLevel int) Result {
	low, high := 0, maxLevel
	for high-low > 1 {
		mid := (low + high) / 2
		if countUpTo(visible, mid) >= budget {
			high = mid
		} else {
			low = mid
		}
	}
	return Result{Nodes: filterUpTo(visible, low), Level: low}
}

// ResolveLinear is Resolve done the slow way, one level at a time.
func ResolveLinear(visible []octree.VisibleNode, budget, maxLevel int) Result {
	level := 0
	for d := maxLevel - 1; d > 0; d-- {
		if countUpTo(visible, d) < budget {
			level = d
			break
		}
	}
	return Result{Nodes: filterUpTo(visible, level), Level: level}
}

func countUpTo(visible []octree.VisibleNode, level int) int {
	return lo.CountBy(visible, func(v octree.VisibleNode) bool { return v.ID.Level() <= level })
}

func filterUpTo(visible []octree.VisibleNode, level int) []octree.VisibleNode {
	return lo.Filter(visible, func(v octree.VisibleNode, _ int) bool { return v.ID.Level() <= level })
}
