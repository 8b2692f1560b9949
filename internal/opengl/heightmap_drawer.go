package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"point-viewer/core"
	"point-viewer/heightmap"
)

// HeightMapDrawer draws a triangulated height map, filled or as wireframe.
type HeightMapDrawer struct {
	program   *Program
	vao       *VertexArray
	positions *Buffer
	normals   *Buffer
	vertices  int32
}

func NewHeightMapDrawer() (*HeightMapDrawer, error) {
	prog, err := NewProgram(heightMapVertSrc, heightMapFragSrc)
	if err != nil {
		return nil, errors.Wrap(err, "height map shader")
	}
	return &HeightMapDrawer{program: prog}, nil
}

// SetMesh replaces the uploaded mesh.
func (d *HeightMapDrawer) SetMesh(mesh heightmap.Mesh) error {
	if len(mesh.Positions) != len(mesh.Normals) {
		return errors.Errorf("mesh has %d positions but %d normals", len(mesh.Positions), len(mesh.Normals))
	}
	d.release()
	if len(mesh.Positions) == 0 {
		return nil
	}

	d.vao = NewVertexArray()
	d.vao.Bind()
	d.positions = NewBuffer(gl.ARRAY_BUFFER, len(mesh.Positions)*3*4, gl.Ptr(&mesh.Positions[0][0]))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	d.normals = NewBuffer(gl.ARRAY_BUFFER, len(mesh.Normals)*3*4, gl.Ptr(&mesh.Normals[0][0]))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 3*4, nil)
	d.vao.Unbind()

	d.vertices = int32(len(mesh.Positions))
	return nil
}

func (d *HeightMapDrawer) DrawHeightMap(worldToCamera, worldToGL mgl32.Mat4, color core.Color, wireframe bool) {
	if d.vao == nil {
		return
	}
	rgba := color.Vec4()

	d.program.Use()
	gl.UniformMatrix4fv(d.program.Uniform("transform"), 1, false, &worldToGL[0])
	gl.UniformMatrix4fv(d.program.Uniform("model_view"), 1, false, &worldToCamera[0])
	gl.Uniform4fv(d.program.Uniform("color"), 1, &rgba[0])

	if wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	}
	d.vao.Bind()
	gl.DrawArrays(gl.TRIANGLES, 0, d.vertices)
	d.vao.Unbind()
	if wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

func (d *HeightMapDrawer) release() {
	if d.vao == nil {
		return
	}
	d.positions.Delete()
	d.normals.Delete()
	d.vao.Delete()
	d.vao = nil
	d.vertices = 0
}

func (d *HeightMapDrawer) Delete() {
	d.release()
	d.program.Delete()
}
