package renderer

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"point-viewer/core"
	"point-viewer/heightmap"
	"point-viewer/lod"
	"point-viewer/nodecache"
	"point-viewer/octree"
	"point-viewer/scene"
)

const (
	// RedrawWindow is how long the viewer keeps redrawing after the last
	// input, motion or load.
	RedrawWindow = time.Second

	DefaultLoadsPerFrame  = 10
	DefaultPointSize      = 2.0
	DefaultGamma          = 1.5
	DefaultMaxLevelMoving = 8

	minPointSize = 0.1
	minGamma     = 0.1
)

// NodeDrawer uploads node data and draws resident views.
type NodeDrawer interface {
	nodecache.Uploader
	SetWorldToGL(m mgl32.Mat4)
	Draw(view nodecache.View, lod int, pointSize, gamma float32) int64
}

// OutlineDrawer draws box edges.
type OutlineDrawer interface {
	DrawOutline(cube octree.Cube, worldToGL mgl32.Mat4, color core.Color)
	DrawBox(lo, hi mgl32.Vec3, worldToGL mgl32.Mat4, color core.Color)
}

// HeightMapDrawer holds one uploaded height map mesh and draws it.
type HeightMapDrawer interface {
	SetMesh(mesh heightmap.Mesh) error
	DrawHeightMap(worldToCamera, worldToGL mgl32.Mat4, color core.Color, wireframe bool)
}

// Surface is the framebuffer a frame is drawn to.
type Surface interface {
	Clear()
	SetViewport(width, height int)
	Present()
}

type Options struct {
	// MaxNodesInMemory caps both the resolved visible set and the cache.
	MaxNodesInMemory int
	LoadsPerFrame    int
	PointSize        float32
	Gamma            float32
	MaxLevelMoving   int
	UseLevelOfDetail bool
	ShowOctreeNodes  bool
	ShowPoints       bool
	ShowHeightMap    bool
	Wireframe        bool
	UseVertexNormals bool
	// ViewpointPath is where F5 saves and F9 loads the camera pose.
	ViewpointPath string
	// CheckInvariants makes the cache panic on inconsistent bookkeeping.
	CheckInvariants bool
	Clock           clock.Clock
}

func DefaultOptions() Options {
	return Options{
		MaxNodesInMemory: 10000,
		LoadsPerFrame:    DefaultLoadsPerFrame,
		PointSize:        DefaultPointSize,
		Gamma:            DefaultGamma,
		MaxLevelMoving:   DefaultMaxLevelMoving,
		ShowPoints:       true,
		ShowHeightMap:    true,
		ViewpointPath:    "viewpoint.json",
	}
}

// Viewer is the per-frame driver. It owns the camera, the current visible set,
// the display toggles and the node cache. It is not safe for concurrent use.
type Viewer struct {
	tree     octree.Octree
	cache    *nodecache.Cache
	camera   *scene.Camera
	drawer   NodeDrawer
	outlines OutlineDrawer
	terrain  HeightMapDrawer
	ground   *heightmap.Grid
	clock    clock.Clock
	logger   *zap.SugaredLogger
	opts     Options

	worldToGL    mgl32.Mat4
	visible      []octree.VisibleNode
	visibleStale bool
	forceLoad    bool
	quit         bool
	lastMotion   time.Time
	lastActivity time.Time
	stats        *statsLogger
}

// NewViewer frames the camera on the octree's root cube. outlines may be nil.
func NewViewer(
	tree octree.Octree,
	drawer NodeDrawer,
	outlines OutlineDrawer,
	width, height int,
	opts Options,
	logger *zap.SugaredLogger,
) *Viewer {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	var cacheOpts []nodecache.Option
	if opts.CheckInvariants {
		cacheOpts = append(cacheOpts, nodecache.WithInvariantChecks())
	}
	now := opts.Clock.Now()
	v := &Viewer{
		tree:         tree,
		cache:        nodecache.New(drawer, opts.MaxNodesInMemory, logger.Named("cache"), cacheOpts...),
		camera:       scene.NewCamera(width, height),
		drawer:       drawer,
		outlines:     outlines,
		clock:        opts.Clock,
		logger:       logger,
		opts:         opts,
		visibleStale: true,
		lastMotion:   now,
		lastActivity: now,
		stats:        newStatsLogger(logger, now),
	}
	root := tree.RootCube()
	v.camera.Frame(root.Center(), root.EdgeLength)
	return v
}

func (v *Viewer) Camera() *scene.Camera         { return v.camera }
func (v *Viewer) Cache() *nodecache.Cache       { return v.cache }
func (v *Viewer) Visible() []octree.VisibleNode { return v.visible }
func (v *Viewer) Options() Options              { return v.opts }

// Done reports whether the user asked to quit.
func (v *Viewer) Done() bool { return v.quit }

// Moving reports whether the camera moved within the last lod.MovingWindow.
// A new viewer counts as moving.
func (v *Viewer) Moving() bool { return v.isMoving(v.clock.Now()) }

// SetHeightMap triangulates grid, uploads it to drawer and draws it from the
// next frame on.
func (v *Viewer) SetHeightMap(grid *heightmap.Grid, drawer HeightMapDrawer) error {
	if err := grid.Validate(); err != nil {
		return err
	}
	v.ground, v.terrain = grid, drawer
	if err := v.uploadHeightMap(); err != nil {
		v.ground, v.terrain = nil, nil
		return err
	}
	v.lastActivity = v.clock.Now()
	return nil
}

func (v *Viewer) uploadHeightMap() error {
	mesh := v.ground.Triangulate(v.opts.UseVertexNormals)
	if err := v.terrain.SetMesh(mesh); err != nil {
		return errors.Wrap(err, "failed to upload height map")
	}
	v.logger.Infow("height map ready",
		"size", v.ground.Size,
		"triangles", mesh.NumTriangles(),
		"vertex_normals", v.opts.UseVertexNormals,
	)
	return nil
}

// Idle reports whether the next frame would neither draw nor load, so the
// caller may block waiting for input.
func (v *Viewer) Idle() bool {
	return !v.needsDrawing(v.clock.Now()) && v.cache.QueueLen() == 0 && !v.forceLoad
}

// Close releases every resident node view.
func (v *Viewer) Close() {
	v.cache.Close()
}

// Frame runs one iteration of the render loop against surface.
func (v *Viewer) Frame(in core.Input, surface Surface) FrameStats {
	start := v.clock.Now()
	v.applyInput(in, surface, start)

	if v.camera.Update() {
		v.lastMotion = start
		v.lastActivity = start
		v.visibleStale = true
	}
	if v.visibleStale {
		v.worldToGL = v.camera.GetViewProjectionMatrix()
		v.drawer.SetWorldToGL(v.worldToGL)
		v.visible = v.tree.VisibleNodes(v.worldToGL, v.camera.Width, v.camera.Height, v.opts.UseLevelOfDetail)
		v.cache.ResetLoadQueue()
		v.visibleStale = false
	}

	moving := v.isMoving(start)
	drawing := v.needsDrawing(start)
	if drawing {
		surface.Clear()
	}

	res := lod.Resolve(v.visible, v.opts.MaxNodesInMemory, lod.MaxLevel(moving, v.opts.MaxLevelMoving))
	stats := FrameStats{
		Drawn:         drawing,
		Moving:        moving,
		VisibleNodes:  len(v.visible),
		SelectedNodes: len(res.Nodes),
		DisplayLevel:  res.Level,
	}
	if v.opts.ShowPoints {
		v.drawPoints(res.Nodes, drawing, &stats)
	}
	if drawing && v.opts.ShowHeightMap {
		v.drawHeightMap()
	}

	maxLoads := v.opts.LoadsPerFrame
	if v.forceLoad {
		v.requestVisible(res.Nodes)
		maxLoads = nodecache.Unlimited
		v.forceLoad = false
	}
	stats.Loaded = v.cache.Pump(v.tree, maxLoads)
	if stats.Loaded > 0 {
		v.lastActivity = v.clock.Now()
	}
	if drawing {
		surface.Present()
	}

	stats.ResidentNodes = v.cache.Len()
	stats.ResidentBytes = v.cache.UsedBytes()
	stats.QueuedNodes = v.cache.QueueLen()
	v.stats.record(stats, v.clock.Now(), v.clock.Since(start))
	return stats
}

// drawPoints requests every selected node and draws those already resident.
func (v *Viewer) drawPoints(nodes []octree.VisibleNode, drawing bool, stats *FrameStats) {
	for _, node := range nodes {
		view, ok := v.cache.GetOrRequest(node.ID)
		if !drawing || !ok {
			continue
		}
		levelOfDetail := octree.AllPointsLOD
		if v.opts.UseLevelOfDetail {
			levelOfDetail = node.LevelOfDetail
		}
		stats.PointsDrawn += v.drawer.Draw(view, levelOfDetail, v.opts.PointSize, v.opts.Gamma)
		stats.NodesDrawn++
		if v.opts.ShowOctreeNodes && v.outlines != nil {
			v.outlines.DrawOutline(view.Meta().BoundingCube, v.worldToGL, core.ColorYellow)
		}
	}
}

func (v *Viewer) drawHeightMap() {
	if v.ground == nil {
		return
	}
	v.terrain.DrawHeightMap(v.camera.GetViewMatrix(), v.worldToGL, core.ColorYellow, v.opts.Wireframe)
	if v.outlines != nil {
		low, high := v.ground.Bounds()
		v.outlines.DrawBox(low, high, v.worldToGL, core.ColorYellow)
	}
}

// requestVisible queues the visible nodes beyond the selection, in visible
// order, up to the cache room the selection leaves. The selection has already
// been requested this frame, so loading never pushes it out of the cache.
func (v *Viewer) requestVisible(selected []octree.VisibleNode) {
	inSelection := lo.SliceToMap(selected, func(n octree.VisibleNode) (octree.NodeID, bool) {
		return n.ID, true
	})
	extra := lo.FilterMap(v.visible, func(n octree.VisibleNode, _ int) (octree.NodeID, bool) {
		return n.ID, !inSelection[n.ID]
	})
	resident := lo.CountBy(v.visible, func(n octree.VisibleNode) bool {
		return v.cache.Resident(n.ID)
	})

	room := nodecache.Unlimited
	if capacity := v.cache.Capacity(); capacity > 0 {
		room = max(0, capacity-resident-v.cache.QueueLen())
	}
	added := v.cache.RequestAll(extra, room)
	v.logger.Infow("force loading visible nodes",
		"visible", len(v.visible),
		"selected", len(selected),
		"queued", v.cache.QueueLen(),
		"extra", added,
	)
}

func (v *Viewer) isMoving(now time.Time) bool {
	return now.Sub(v.lastMotion) < lod.MovingWindow
}

func (v *Viewer) needsDrawing(now time.Time) bool {
	return now.Sub(v.lastActivity) < RedrawWindow
}

func (v *Viewer) applyInput(in core.Input, surface Surface, now time.Time) {
	if in.CloseRequested || in.WasPressed(core.KeyEscape) {
		v.quit = true
	}
	if in.Active() {
		v.lastActivity = now
	}

	v.camera.MoveForward = in.IsHeld(core.KeyW)
	v.camera.MoveBackward = in.IsHeld(core.KeyS)
	v.camera.MoveLeft = in.IsHeld(core.KeyA)
	v.camera.MoveRight = in.IsHeld(core.KeyD)
	v.camera.MoveUp = in.IsHeld(core.KeyQ)
	v.camera.MoveDown = in.IsHeld(core.KeyZ)

	if in.Resized && in.Width > 0 && in.Height > 0 {
		v.camera.SetSize(in.Width, in.Height)
		surface.SetViewport(in.Width, in.Height)
	}
	if in.DragX != 0 || in.DragY != 0 {
		v.camera.MouseDrag(in.DragX, in.DragY)
	}
	if in.Scroll != 0 {
		v.camera.MouseWheel(in.Scroll)
	}

	for _, key := range in.Pressed {
		v.handleKey(key)
	}
}

func (v *Viewer) handleKey(key core.Key) {
	switch key {
	case core.KeyF:
		v.forceLoad = true
	case core.KeyO:
		v.opts.ShowOctreeNodes = !v.opts.ShowOctreeNodes
	case core.Key5:
		v.opts.ShowPoints = !v.opts.ShowPoints
	case core.Key6:
		v.opts.ShowHeightMap = !v.opts.ShowHeightMap
	case core.KeyY:
		v.opts.Wireframe = !v.opts.Wireframe
	case core.KeyT:
		v.opts.UseVertexNormals = !v.opts.UseVertexNormals
		if v.ground == nil {
			return
		}
		if err := v.uploadHeightMap(); err != nil {
			v.logger.Errorw("failed to reload height map", "error", err)
		}
	case core.KeyL:
		v.opts.UseLevelOfDetail = !v.opts.UseLevelOfDetail
		v.visibleStale = true
		v.logger.Infow("level of detail hints", "enabled", v.opts.UseLevelOfDetail)
	case core.Key1:
		v.opts.MaxLevelMoving = max(1, v.opts.MaxLevelMoving-1)
		v.logger.Infow("max level while moving", "level", v.opts.MaxLevelMoving)
	case core.Key2:
		v.opts.MaxLevelMoving++
		v.logger.Infow("max level while moving", "level", v.opts.MaxLevelMoving)
	case core.Key7:
		v.opts.Gamma = max(minGamma, v.opts.Gamma-0.1)
	case core.Key8:
		v.opts.Gamma += 0.1
	case core.Key9:
		v.opts.PointSize = max(minPointSize, v.opts.PointSize-0.1)
	case core.Key0:
		v.opts.PointSize += 0.1
	case core.KeyF5:
		if err := scene.SaveViewpoint(v.opts.ViewpointPath, v.camera.Viewpoint()); err != nil {
			v.logger.Errorw("failed to save viewpoint", "path", v.opts.ViewpointPath, "error", err)
			return
		}
		v.logger.Infow("saved viewpoint", "path", v.opts.ViewpointPath)
	case core.KeyF9:
		vp, err := scene.LoadViewpoint(v.opts.ViewpointPath)
		if err != nil {
			v.logger.Errorw("failed to load viewpoint", "path", v.opts.ViewpointPath, "error", err)
			return
		}
		v.camera.SetViewpoint(vp)
		v.logger.Infow("loaded viewpoint", "path", v.opts.ViewpointPath)
	}
}
