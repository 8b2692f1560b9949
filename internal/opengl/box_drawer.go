package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"point-viewer/core"
	"point-viewer/octree"
)

// Unit box from -1 to 1 on every axis.
var boxCorners = [8 * 3]float32{
	-1, -1, 1,
	1, -1, 1,
	1, 1, 1,
	-1, 1, 1,
	-1, -1, -1,
	1, -1, -1,
	1, 1, -1,
	-1, 1, -1,
}

var boxEdges = [24]uint32{
	0, 1, 1, 2, 2, 3, 3, 0,
	4, 5, 5, 6, 6, 7, 7, 4,
	1, 5, 6, 2,
	4, 0, 3, 7,
}

// BoxDrawer draws cube outlines as GL lines.
type BoxDrawer struct {
	program *Program
	vao     *VertexArray
	corners *Buffer
	edges   *Buffer
}

func NewBoxDrawer() (*BoxDrawer, error) {
	prog, err := NewProgram(outlineVertSrc, outlineFragSrc)
	if err != nil {
		return nil, errors.Wrap(err, "outline shader")
	}
	d := &BoxDrawer{program: prog, vao: NewVertexArray()}
	d.vao.Bind()
	d.corners = NewBuffer(gl.ARRAY_BUFFER, len(boxCorners)*4, gl.Ptr(&boxCorners[0]))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	d.edges = NewBuffer(gl.ELEMENT_ARRAY_BUFFER, len(boxEdges)*4, gl.Ptr(&boxEdges[0]))
	d.vao.Unbind()
	return d, nil
}

// DrawOutline draws the twelve edges of cube.
func (d *BoxDrawer) DrawOutline(cube octree.Cube, worldToGL mgl32.Mat4, color core.Color) {
	half := cube.EdgeLength / 2
	center := cube.Center()
	transform := worldToGL.
		Mul4(mgl32.Translate3D(center[0], center[1], center[2])).
		Mul4(mgl32.Scale3D(half, half, half))
	d.draw(transform, color)
}

// DrawBox draws the edges of the axis aligned box from lo to hi.
func (d *BoxDrawer) DrawBox(lo, hi mgl32.Vec3, worldToGL mgl32.Mat4, color core.Color) {
	center := lo.Add(hi).Mul(0.5)
	half := hi.Sub(lo).Mul(0.5)
	transform := worldToGL.
		Mul4(mgl32.Translate3D(center[0], center[1], center[2])).
		Mul4(mgl32.Scale3D(half[0], half[1], half[2]))
	d.draw(transform, color)
}

func (d *BoxDrawer) draw(transform mgl32.Mat4, color core.Color) {
	rgba := color.Vec4()
	d.program.Use()
	gl.UniformMatrix4fv(d.program.Uniform("transform"), 1, false, &transform[0])
	gl.Uniform4fv(d.program.Uniform("color"), 1, &rgba[0])

	d.vao.Bind()
	gl.DrawElements(gl.LINES, int32(len(boxEdges)), gl.UNSIGNED_INT, nil)
	d.vao.Unbind()
}

func (d *BoxDrawer) Delete() {
	d.corners.Delete()
	d.edges.Delete()
	d.vao.Delete()
	d.program.Delete()
}
