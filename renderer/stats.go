package renderer

import (
	"time"

	units "github.com/docker/go-units"
	"go.uber.org/zap"

	"point-viewer/metrics"
)

// FrameStats describes one call to Viewer.Frame.
type FrameStats struct {
	Drawn  bool
	Moving bool

	VisibleNodes  int
	SelectedNodes int
	DisplayLevel  int
	NodesDrawn    int
	PointsDrawn   int64
	Loaded        int

	ResidentNodes int
	ResidentBytes int64
	QueuedNodes   int
}

const statsInterval = time.Second

// statsLogger logs a frame rate summary once per interval.
type statsLogger struct {
	logger  *zap.SugaredLogger
	frames  int
	lastLog time.Time
}

func newStatsLogger(logger *zap.SugaredLogger, now time.Time) *statsLogger {
	return &statsLogger{logger: logger, lastLog: now}
}

func (s *statsLogger) record(st FrameStats, now time.Time, frameTime time.Duration) {
	metrics.FrameDuration.Observe(frameTime.Seconds())
	metrics.FrameStats.WithLabelValues("points_drawn").Set(float64(st.PointsDrawn))
	metrics.FrameStats.WithLabelValues("nodes_drawn").Set(float64(st.NodesDrawn))
	metrics.FrameStats.WithLabelValues("visible_nodes").Set(float64(st.VisibleNodes))
	metrics.FrameStats.WithLabelValues("display_level").Set(float64(st.DisplayLevel))

	s.frames++
	elapsed := now.Sub(s.lastLog)
	if elapsed < statsInterval {
		return
	}
	s.logger.Infow("frame stats",
		"fps", float64(s.frames)/elapsed.Seconds(),
		"points_drawn", st.PointsDrawn,
		"nodes_drawn", st.NodesDrawn,
		"visible_nodes", st.VisibleNodes,
		"display_level", st.DisplayLevel,
		"resident_nodes", st.ResidentNodes,
		"queued_nodes", st.QueuedNodes,
		"cache", units.BytesSize(float64(st.ResidentBytes)),
	)
	s.frames = 0
	s.lastLog = now
}
