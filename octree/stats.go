package octree

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// LevelStats summarizes the nodes of one octree level.
type LevelStats struct {
	Level  int
	Nodes  int
	Points int64
	// Bytes is the payload size of positions and colors.
	Bytes int64
}

// Summarize returns per-level node and point counts, ordered by level.
func Summarize(t Octree) []LevelStats {
	byLevel := make(map[int]*LevelStats)
	for id, meta := range t.Nodes() {
		s, ok := byLevel[id.Level()]
		if !ok {
			s = &LevelStats{Level: id.Level()}
			byLevel[id.Level()] = s
		}
		s.Nodes++
		s.Points += meta.NumPoints
		s.Bytes += meta.NumPoints * int64(meta.PositionEncoding.BytesPerPoint()+ColorBytesPerPoint)
	}
	out := lo.Map(lo.Values(byLevel), func(s *LevelStats, _ int) LevelStats { return *s })
	slices.SortFunc(out, func(a, b LevelStats) int { return cmp.Compare(a.Level, b.Level) })
	return out
}
