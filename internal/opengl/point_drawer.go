package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"point-viewer/nodecache"
	"point-viewer/octree"
)

// NodeView is one node's points resident in GPU memory.
type NodeView struct {
	meta      octree.NodeMeta
	vao       *VertexArray
	positions *Buffer
	colors    *Buffer
}

func (v *NodeView) Meta() octree.NodeMeta { return v.meta }

func (v *NodeView) Release() {
	if v.vao == nil {
		return
	}
	v.positions.Delete()
	v.colors.Delete()
	v.vao.Delete()
	v.vao = nil
}

// PointDrawer uploads node data and draws it as GL points.
type PointDrawer struct {
	program   *Program
	worldToGL mgl32.Mat4
}

func NewPointDrawer() (*PointDrawer, error) {
	prog, err := NewProgram(pointVertSrc, pointFragSrc)
	if err != nil {
		return nil, errors.Wrap(err, "point shader")
	}
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	return &PointDrawer{program: prog, worldToGL: mgl32.Ident4()}, nil
}

func (d *PointDrawer) SetWorldToGL(m mgl32.Mat4) {
	d.worldToGL = m
}

// Upload copies the node's positions and colors into a new vertex array.
func (d *PointDrawer) Upload(data *octree.NodeData) (nodecache.View, error) {
	if data.Meta.NumPoints == 0 {
		return nil, errors.New("cannot upload an empty node")
	}
	xtype, normalized, err := positionAttribute(data.Meta.PositionEncoding)
	if err != nil {
		return nil, err
	}

	view := &NodeView{meta: data.Meta, vao: NewVertexArray()}
	view.vao.Bind()

	view.positions = NewBuffer(gl.ARRAY_BUFFER, len(data.Positions), gl.Ptr(data.Positions))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, xtype, normalized, 0, nil)

	view.colors = NewBuffer(gl.ARRAY_BUFFER, len(data.Colors), gl.Ptr(data.Colors))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.UNSIGNED_BYTE, false, 0, nil)

	view.vao.Unbind()
	return view, nil
}

func positionAttribute(enc octree.PositionEncoding) (uint32, bool, error) {
	switch enc {
	case octree.Uint8:
		return gl.UNSIGNED_BYTE, true, nil
	case octree.Uint16:
		return gl.UNSIGNED_SHORT, true, nil
	case octree.Float32:
		return gl.FLOAT, false, nil
	default:
		return 0, false, errors.Errorf("unsupported position encoding %v", enc)
	}
}

// Draw renders the first NumPointsForLevelOfDetail(lod) points of the view
// and returns how many were drawn.
func (d *PointDrawer) Draw(v nodecache.View, lod int, pointSize, gamma float32) int64 {
	view, ok := v.(*NodeView)
	if !ok || view.vao == nil {
		return 0
	}
	n := view.meta.NumPointsForLevelOfDetail(lod)
	cube := view.meta.BoundingCube

	d.program.Use()
	gl.UniformMatrix4fv(d.program.Uniform("world_to_gl"), 1, false, &d.worldToGL[0])
	gl.Uniform3fv(d.program.Uniform("node_min"), 1, &cube.Min[0])
	gl.Uniform1f(d.program.Uniform("edge_length"), cube.EdgeLength)
	gl.Uniform1f(d.program.Uniform("size"), pointSize)
	gl.Uniform1f(d.program.Uniform("gamma"), gamma)

	view.vao.Bind()
	gl.DrawArrays(gl.POINTS, 0, int32(n))
	view.vao.Unbind()
	return n
}

func (d *PointDrawer) Delete() {
	d.program.Delete()
}
