package heightmap

import "github.com/go-gl/mathgl/mgl32"

// Mesh is an unindexed triangle list with one normal per vertex.
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
}

func (m Mesh) NumTriangles() int { return len(m.Positions) / 3 }

// Triangulate splits every cell whose four corners have data into two
// triangles. With vertexNormals the normals of the triangles sharing a grid
// vertex are averaged; otherwise each triangle is flat shaded.
func (g *Grid) Triangulate(vertexNormals bool) Mesh {
	var mesh Mesh
	// Grid vertex of each emitted mesh vertex, for the averaging pass.
	var corners []int
	for y := 0; y+1 < g.Size; y++ {
		for x := 0; x+1 < g.Size; x++ {
			if g.Height(x, y) == NoData || g.Height(x+1, y) == NoData ||
				g.Height(x, y+1) == NoData || g.Height(x+1, y+1) == NoData {
				continue
			}
			i00, i10, i01, i11 := x+y*g.Size, x+1+y*g.Size, x+(y+1)*g.Size, x+1+(y+1)*g.Size
			v00, v10, v01, v11 := g.WorldPos(x, y), g.WorldPos(x+1, y), g.WorldPos(x, y+1), g.WorldPos(x+1, y+1)

			mesh.addTriangle(v00, v10, v11)
			mesh.addTriangle(v00, v11, v01)
			corners = append(corners, i00, i10, i11, i00, i11, i01)
		}
	}
	if !vertexNormals {
		return mesh
	}

	sums := make(map[int]mgl32.Vec3)
	for i, c := range corners {
		sums[c] = sums[c].Add(mesh.Normals[i])
	}
	for i, c := range corners {
		mesh.Normals[i] = sums[c].Normalize()
	}
	return mesh
}

func (m *Mesh) addTriangle(v0, v1, v2 mgl32.Vec3) {
	n := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
	m.Positions = append(m.Positions, v0, v1, v2)
	m.Normals = append(m.Normals, n, n, n)
}
