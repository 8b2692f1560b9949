package renderer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"

	"point-viewer/core"
	"point-viewer/heightmap"
	"point-viewer/lod"
	"point-viewer/nodecache"
	"point-viewer/octree"
)

type fakeView struct {
	meta octree.NodeMeta
}

func (v *fakeView) Meta() octree.NodeMeta { return v.meta }
func (v *fakeView) Release()              {}

type fakeDrawer struct {
	uploads   int
	lods      []int
	pointSize float32
	gamma     float32
	worldToGL mgl32.Mat4
}

func (d *fakeDrawer) Upload(data *octree.NodeData) (nodecache.View, error) {
	d.uploads++
	return &fakeView{meta: data.Meta}, nil
}

func (d *fakeDrawer) SetWorldToGL(m mgl32.Mat4) { d.worldToGL = m }

func (d *fakeDrawer) Draw(view nodecache.View, lod int, pointSize, gamma float32) int64 {
	d.lods = append(d.lods, lod)
	d.pointSize, d.gamma = pointSize, gamma
	return view.Meta().NumPointsForLevelOfDetail(lod)
}

type fakeOutlines struct {
	cubes  []octree.Cube
	colors []core.Color
	boxes  [][2]mgl32.Vec3
}

func (o *fakeOutlines) DrawOutline(cube octree.Cube, _ mgl32.Mat4, color core.Color) {
	o.cubes = append(o.cubes, cube)
	o.colors = append(o.colors, color)
}

func (o *fakeOutlines) DrawBox(lo, hi mgl32.Vec3, _ mgl32.Mat4, _ core.Color) {
	o.boxes = append(o.boxes, [2]mgl32.Vec3{lo, hi})
}

type fakeHeightMap struct {
	meshes        []heightmap.Mesh
	draws         int
	wireframe     bool
	worldToCamera mgl32.Mat4
	err           error
}

func (d *fakeHeightMap) SetMesh(mesh heightmap.Mesh) error {
	if d.err != nil {
		return d.err
	}
	d.meshes = append(d.meshes, mesh)
	return nil
}

func (d *fakeHeightMap) DrawHeightMap(worldToCamera, _ mgl32.Mat4, _ core.Color, wireframe bool) {
	d.draws++
	d.worldToCamera = worldToCamera
	d.wireframe = wireframe
}

type fakeSurface struct {
	clears, presents int
	width, height    int
}

func (s *fakeSurface) Clear()                        { s.clears++ }
func (s *fakeSurface) Present()                      { s.presents++ }
func (s *fakeSurface) SetViewport(width, height int) { s.width, s.height = width, height }

// missingTree fails to load one node.
type missingTree struct {
	octree.Octree
	missing octree.NodeID
}

func (t missingTree) NodeData(id octree.NodeID, lod int) (*octree.NodeData, error) {
	if id == t.missing {
		return nil, errors.Wrapf(octree.ErrNodeNotFound, "node %s", id)
	}
	return t.Octree.NodeData(id, lod)
}

type harness struct {
	viewer   *Viewer
	drawer   *fakeDrawer
	outlines *fakeOutlines
	surface  *fakeSurface
	clock    *clock.Mock
}

func testTree(t *testing.T) *octree.MemoryOctree {
	t.Helper()
	points, err := octree.Generate("cube", 20000, 1)
	test.That(t, err, test.ShouldBeNil)
	opts := octree.DefaultBuildOptions()
	opts.MaxPointsPerNode = 1000
	opts.MaxDepth = 4
	tree, err := octree.Build(points, opts)
	test.That(t, err, test.ShouldBeNil)
	return tree
}

func newHarness(t *testing.T, tree octree.Octree, opts Options, logger *zap.SugaredLogger) *harness {
	t.Helper()
	h := &harness{
		drawer:   &fakeDrawer{},
		outlines: &fakeOutlines{},
		surface:  &fakeSurface{},
		clock:    clock.NewMock(),
	}
	opts.Clock = h.clock
	opts.CheckInvariants = true
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	h.viewer = NewViewer(tree, h.drawer, h.outlines, 800, 600, opts, logger)
	return h
}

func (h *harness) frame(in core.Input) FrameStats {
	h.clock.Add(16 * time.Millisecond)
	return h.viewer.Frame(in, h.surface)
}

// settle runs idle frames until the load queue drains.
func (h *harness) settle(t *testing.T) FrameStats {
	t.Helper()
	var st FrameStats
	for i := 0; i < 200; i++ {
		st = h.frame(core.Input{})
		if st.QueuedNodes == 0 && st.Loaded == 0 {
			return st
		}
	}
	t.Fatal("load queue never drained")
	return st
}

func press(keys ...core.Key) core.Input {
	return core.Input{Pressed: keys}
}

func TestFramesLoadThenDraw(t *testing.T) {
	h := newHarness(t, testTree(t), DefaultOptions(), nil)

	first := h.frame(core.Input{Width: 800, Height: 600, Resized: true})
	test.That(t, h.surface.width, test.ShouldEqual, 800)
	test.That(t, first.Drawn, test.ShouldBeTrue)
	test.That(t, first.Moving, test.ShouldBeTrue)
	test.That(t, first.VisibleNodes, test.ShouldBeGreaterThan, 10)
	test.That(t, first.NodesDrawn, test.ShouldEqual, 0)
	test.That(t, first.Loaded, test.ShouldEqual, DefaultLoadsPerFrame)
	test.That(t, first.QueuedNodes, test.ShouldEqual, first.SelectedNodes-DefaultLoadsPerFrame)

	second := h.frame(core.Input{})
	test.That(t, second.NodesDrawn, test.ShouldEqual, DefaultLoadsPerFrame)
	test.That(t, second.PointsDrawn, test.ShouldBeGreaterThan, 0)

	h.settle(t)
	h.clock.Add(lod.MovingWindow)
	st := h.frame(core.Input{})
	test.That(t, st.Moving, test.ShouldBeFalse)
	test.That(t, st.NodesDrawn, test.ShouldEqual, st.SelectedNodes)
	test.That(t, st.ResidentNodes, test.ShouldEqual, st.SelectedNodes)
	test.That(t, h.drawer.pointSize, test.ShouldEqual, float32(DefaultPointSize))
	test.That(t, h.drawer.gamma, test.ShouldEqual, float32(DefaultGamma))
	test.That(t, h.surface.presents, test.ShouldEqual, h.surface.clears)
	test.That(t, h.outlines.cubes, test.ShouldBeEmpty)
}

func TestIdleFramesSkipDrawing(t *testing.T) {
	h := newHarness(t, testTree(t), DefaultOptions(), nil)
	h.settle(t)

	h.clock.Add(2 * RedrawWindow)
	test.That(t, h.viewer.Idle(), test.ShouldBeTrue)
	clears := h.surface.clears
	st := h.frame(core.Input{})
	test.That(t, st.Drawn, test.ShouldBeFalse)
	test.That(t, st.NodesDrawn, test.ShouldEqual, 0)
	test.That(t, h.surface.clears, test.ShouldEqual, clears)

	st = h.frame(press(core.KeyO))
	test.That(t, st.Drawn, test.ShouldBeTrue)
	test.That(t, h.viewer.Idle(), test.ShouldBeFalse)
}

func TestForceLoad(t *testing.T) {
	h := newHarness(t, testTree(t), DefaultOptions(), nil)
	st := h.frame(press(core.KeyF))
	test.That(t, st.Loaded, test.ShouldEqual, st.VisibleNodes)
	test.That(t, st.QueuedNodes, test.ShouldEqual, 0)
	test.That(t, h.viewer.Cache().Len(), test.ShouldEqual, st.VisibleNodes)

	// Back to the per-frame cap afterwards.
	h.frame(core.Input{DragX: 40})
	st = h.frame(core.Input{})
	test.That(t, st.Loaded, test.ShouldBeLessThanOrEqualTo, DefaultLoadsPerFrame)
}

func TestForceLoadKeepsSelectionWithinCapacity(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxNodesInMemory = 20

	t.Run("cold cache", func(t *testing.T) {
		h := newHarness(t, testTree(t), opts, nil)
		st := h.frame(press(core.KeyF))
		test.That(t, st.VisibleNodes, test.ShouldBeGreaterThan, opts.MaxNodesInMemory)
		test.That(t, st.Loaded, test.ShouldEqual, opts.MaxNodesInMemory)
		test.That(t, st.ResidentNodes, test.ShouldEqual, opts.MaxNodesInMemory)
		test.That(t, st.QueuedNodes, test.ShouldEqual, 0)

		next := h.frame(core.Input{})
		test.That(t, next.SelectedNodes, test.ShouldEqual, st.SelectedNodes)
		test.That(t, next.NodesDrawn, test.ShouldEqual, next.SelectedNodes)
		test.That(t, next.Loaded, test.ShouldEqual, 0)
	})

	t.Run("settled", func(t *testing.T) {
		h := newHarness(t, testTree(t), opts, nil)
		h.settle(t)
		h.clock.Add(lod.MovingWindow)
		before := h.settle(t)
		test.That(t, before.VisibleNodes, test.ShouldBeGreaterThan, opts.MaxNodesInMemory)
		test.That(t, before.SelectedNodes, test.ShouldBeGreaterThan, 0)

		st := h.frame(press(core.KeyF))
		test.That(t, st.NodesDrawn, test.ShouldEqual, before.SelectedNodes)
		test.That(t, st.ResidentNodes, test.ShouldBeLessThanOrEqualTo, opts.MaxNodesInMemory)

		next := h.frame(core.Input{})
		test.That(t, next.SelectedNodes, test.ShouldEqual, before.SelectedNodes)
		test.That(t, next.NodesDrawn, test.ShouldEqual, next.SelectedNodes)
		test.That(t, next.Loaded, test.ShouldEqual, 0)
	})
}

func TestBudgetCapsSelection(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxNodesInMemory = 6
	h := newHarness(t, testTree(t), opts, nil)

	for i := 0; i < 20; i++ {
		// Wiggle back and forth so the cloud stays in view.
		st := h.frame(core.Input{DragX: float64(1 - 2*(i%2))})
		test.That(t, st.SelectedNodes, test.ShouldBeLessThan, 6)
		test.That(t, st.ResidentNodes, test.ShouldBeLessThanOrEqualTo, 6)
	}
	st := h.settle(t)
	test.That(t, st.SelectedNodes, test.ShouldBeGreaterThan, 0)
	test.That(t, st.VisibleNodes, test.ShouldBeGreaterThan, st.SelectedNodes)
}

func TestMovingLimitsDepth(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxLevelMoving = 1
	h := newHarness(t, testTree(t), opts, nil)

	st := h.frame(core.Input{DragX: 3})
	test.That(t, st.Moving, test.ShouldBeTrue)
	test.That(t, st.DisplayLevel, test.ShouldEqual, 0)
	test.That(t, st.SelectedNodes, test.ShouldEqual, 1)

	h.clock.Add(200 * time.Millisecond)
	st = h.frame(core.Input{})
	test.That(t, st.Moving, test.ShouldBeFalse)
	test.That(t, st.DisplayLevel, test.ShouldBeGreaterThan, 0)
	test.That(t, st.SelectedNodes, test.ShouldEqual, st.VisibleNodes)
}

func TestDisplayKeys(t *testing.T) {
	h := newHarness(t, testTree(t), DefaultOptions(), nil)
	h.settle(t)

	h.frame(press(core.Key1, core.Key1))
	test.That(t, h.viewer.Options().MaxLevelMoving, test.ShouldEqual, DefaultMaxLevelMoving-2)
	for i := 0; i < 20; i++ {
		h.frame(press(core.Key1))
	}
	test.That(t, h.viewer.Options().MaxLevelMoving, test.ShouldEqual, 1)
	h.frame(press(core.Key2))
	test.That(t, h.viewer.Options().MaxLevelMoving, test.ShouldEqual, 2)

	h.frame(press(core.Key0, core.Key8))
	test.That(t, float64(h.drawer.pointSize), test.ShouldAlmostEqual, 2.1, 1e-5)
	test.That(t, float64(h.drawer.gamma), test.ShouldAlmostEqual, 1.6, 1e-5)
	for i := 0; i < 40; i++ {
		h.frame(press(core.Key9, core.Key7))
	}
	test.That(t, float64(h.drawer.pointSize), test.ShouldAlmostEqual, 0.1, 1e-5)
	test.That(t, float64(h.drawer.gamma), test.ShouldAlmostEqual, 0.1, 1e-5)

	st := h.frame(press(core.KeyO))
	test.That(t, h.outlines.cubes, test.ShouldHaveLength, st.NodesDrawn)
	for _, c := range h.outlines.colors {
		test.That(t, c, test.ShouldResemble, core.ColorYellow)
	}

	h.frame(press(core.KeyL))
	test.That(t, h.viewer.Options().UseLevelOfDetail, test.ShouldBeTrue)
	for _, n := range h.viewer.Visible() {
		test.That(t, n.LevelOfDetail, test.ShouldBeGreaterThanOrEqualTo, 1)
	}
}

func TestNewViewerCountsAsMoving(t *testing.T) {
	h := newHarness(t, testTree(t), DefaultOptions(), nil)
	test.That(t, h.viewer.Moving(), test.ShouldBeTrue)
	h.clock.Add(lod.MovingWindow)
	test.That(t, h.viewer.Moving(), test.ShouldBeFalse)
}

func TestHeightMap(t *testing.T) {
	h := newHarness(t, testTree(t), DefaultOptions(), nil)
	h.settle(t)
	h.clock.Add(lod.MovingWindow)
	h.settle(t)

	grid := &heightmap.Grid{OriginX: -1, OriginY: -1, Resolution: 1, Size: 3, Heights: []float32{
		0, 0, 0,
		0, 1, 0,
		0, 0, 0,
	}}
	terrain := &fakeHeightMap{}
	test.That(t, h.viewer.SetHeightMap(grid, terrain), test.ShouldBeNil)
	test.That(t, terrain.meshes, test.ShouldHaveLength, 1)
	test.That(t, terrain.meshes[0].NumTriangles(), test.ShouldEqual, 8)

	st := h.frame(core.Input{})
	test.That(t, st.Drawn, test.ShouldBeTrue)
	test.That(t, st.NodesDrawn, test.ShouldEqual, st.SelectedNodes)
	test.That(t, terrain.draws, test.ShouldEqual, 1)
	test.That(t, terrain.wireframe, test.ShouldBeFalse)
	test.That(t, terrain.worldToCamera, test.ShouldResemble, h.viewer.Camera().GetViewMatrix())
	test.That(t, h.outlines.boxes, test.ShouldResemble, [][2]mgl32.Vec3{{{-1, -1, 0}, {1, 1, 1}}})

	h.frame(press(core.KeyY))
	test.That(t, terrain.wireframe, test.ShouldBeTrue)

	st = h.frame(press(core.Key5))
	test.That(t, h.viewer.Options().ShowPoints, test.ShouldBeFalse)
	test.That(t, st.NodesDrawn, test.ShouldEqual, 0)
	test.That(t, terrain.draws, test.ShouldEqual, 3)
	st = h.frame(press(core.Key5))
	test.That(t, st.NodesDrawn, test.ShouldEqual, st.SelectedNodes)

	st = h.frame(press(core.Key6))
	test.That(t, h.viewer.Options().ShowHeightMap, test.ShouldBeFalse)
	test.That(t, st.NodesDrawn, test.ShouldEqual, st.SelectedNodes)
	test.That(t, terrain.draws, test.ShouldEqual, 4)
	test.That(t, h.outlines.boxes, test.ShouldHaveLength, 4)

	h.frame(press(core.KeyT))
	test.That(t, h.viewer.Options().UseVertexNormals, test.ShouldBeTrue)
	test.That(t, terrain.meshes, test.ShouldHaveLength, 2)
	test.That(t, terrain.meshes[1].Positions, test.ShouldResemble, terrain.meshes[0].Positions)
	test.That(t, terrain.meshes[1].Normals, test.ShouldNotResemble, terrain.meshes[0].Normals)
}

func TestHeightMapErrors(t *testing.T) {
	h := newHarness(t, testTree(t), DefaultOptions(), nil)

	bad := &heightmap.Grid{Resolution: 1, Size: 3, Heights: []float32{0}}
	test.That(t, h.viewer.SetHeightMap(bad, &fakeHeightMap{}), test.ShouldNotBeNil)

	grid := &heightmap.Grid{Resolution: 1, Size: 2, Heights: make([]float32, 4)}
	broken := &fakeHeightMap{err: errors.New("out of memory")}
	test.That(t, h.viewer.SetHeightMap(grid, broken), test.ShouldNotBeNil)

	h.frame(press(core.KeyT))
	test.That(t, broken.draws, test.ShouldEqual, 0)
	test.That(t, h.outlines.boxes, test.ShouldBeEmpty)
}

func TestQuit(t *testing.T) {
	h := newHarness(t, testTree(t), DefaultOptions(), nil)
	h.frame(core.Input{})
	test.That(t, h.viewer.Done(), test.ShouldBeFalse)
	h.frame(press(core.KeyEscape))
	test.That(t, h.viewer.Done(), test.ShouldBeTrue)

	h = newHarness(t, testTree(t), DefaultOptions(), nil)
	h.frame(core.Input{CloseRequested: true})
	test.That(t, h.viewer.Done(), test.ShouldBeTrue)
}

func TestViewpointKeys(t *testing.T) {
	opts := DefaultOptions()
	opts.ViewpointPath = filepath.Join(t.TempDir(), "viewpoint.json")
	h := newHarness(t, testTree(t), opts, nil)
	h.frame(core.Input{})

	saved := h.viewer.Camera().Position()
	h.frame(press(core.KeyF5))
	_, err := os.Stat(opts.ViewpointPath)
	test.That(t, err, test.ShouldBeNil)

	h.frame(core.Input{Held: map[core.Key]bool{core.KeyW: true}})
	test.That(t, h.viewer.Camera().Position(), test.ShouldNotResemble, saved)

	st := h.frame(press(core.KeyF9))
	test.That(t, st.Moving, test.ShouldBeTrue)
	test.That(t, h.viewer.Camera().Position(), test.ShouldResemble, saved)
}

func TestMissingNodesDoNotStopTheViewer(t *testing.T) {
	tree := testTree(t)
	obs, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(t, missingTree{Octree: tree, missing: octree.RootID}, DefaultOptions(), zap.New(obs).Sugar())

	st := h.settle(t)
	test.That(t, logs.FilterMessage("skipping missing node").Len(), test.ShouldBeGreaterThanOrEqualTo, 1)
	test.That(t, st.NodesDrawn, test.ShouldEqual, st.SelectedNodes-1)
	_, ok := h.viewer.Cache().Get(octree.RootID)
	test.That(t, ok, test.ShouldBeFalse)

	h.viewer.Close()
	test.That(t, h.viewer.Cache().Len(), test.ShouldEqual, 0)
}
