// Package mesh assembles decoded vertices and triangle indices into an
// indexed mesh.
package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/pointbake/internal/pointcloud/atlas"
	"github.com/banshee-data/pointbake/internal/pointcloud/decode"
)

// colorScale converts stored color bytes to unit floats. It matches the
// divisor used when float colors were scaled up on decode.
const colorScale = 256

// Mesh is an indexed triangle mesh. VertexColors is nil or parallel to
// Vertices.
type Mesh struct {
	Vertices     [][3]float64
	VertexColors [][3]float32
	Triangles    [][3]uint32
}

// IndexError reports a triangle referencing a vertex that does not exist.
type IndexError struct {
	Triangle int
	Index    uint32
	Vertices int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("mesh: triangle %d references vertex %d, mesh has %d vertices",
		e.Triangle, e.Index, e.Vertices)
}

// Assemble builds a mesh from positions, optional colors and triangles.
// Indices are not checked; call Validate when the source is untrusted.
func Assemble(positions [][3]float64, colors [][3]float32, tris decode.TriangleBuffer) *Mesh {
	m := &Mesh{
		Vertices:  positions,
		Triangles: [][3]uint32(tris),
	}
	if len(colors) > 0 {
		m.VertexColors = colors
	}
	return m
}

// FromAtlas builds a mesh whose vertices are the atlas points in record
// order. Padding cells are not included.
func FromAtlas(a *atlas.PointAtlas, tris decode.TriangleBuffer) *Mesh {
	if a.Empty() {
		return Assemble(nil, nil, tris)
	}
	var colors [][3]float32
	if a.HasColor {
		colors = make([][3]float32, a.PointCount)
		for i := range colors {
			c := a.Colors[i]
			colors[i] = [3]float32{
				float32(c[0]) / colorScale,
				float32(c[1]) / colorScale,
				float32(c[2]) / colorScale,
			}
		}
	}
	return Assemble(a.Positions64(), colors, tris)
}

// HasColor reports whether the mesh carries per-vertex colors.
func (m *Mesh) HasColor() bool {
	return len(m.VertexColors) > 0
}

// Validate returns an *IndexError for the first out-of-range triangle index,
// or an error when colors are not parallel to vertices.
func (m *Mesh) Validate() error {
	if m.HasColor() && len(m.VertexColors) != len(m.Vertices) {
		return fmt.Errorf("mesh: %d vertex colors for %d vertices", len(m.VertexColors), len(m.Vertices))
	}
	n := len(m.Vertices)
	for t, tri := range m.Triangles {
		for _, v := range tri {
			if uint64(v) >= uint64(n) {
				return &IndexError{Triangle: t, Index: v, Vertices: n}
			}
		}
	}
	return nil
}

// Bounds returns the per-axis minimum and maximum vertex coordinates.
// ok is false for a mesh with no vertices.
func (m *Mesh) Bounds() (lo, hi [3]float64, ok bool) {
	if len(m.Vertices) == 0 {
		return lo, hi, false
	}
	axis := make([]float64, len(m.Vertices))
	for d := 0; d < 3; d++ {
		for i, v := range m.Vertices {
			axis[i] = v[d]
		}
		lo[d] = floats.Min(axis)
		hi[d] = floats.Max(axis)
	}
	return lo, hi, true
}

type vertexKey struct {
	pos   [3]uint64
	color [3]uint32
}

func keyOf(p [3]float64, c [3]float32) vertexKey {
	return vertexKey{
		pos:   [3]uint64{math.Float64bits(p[0]), math.Float64bits(p[1]), math.Float64bits(p[2])},
		color: [3]uint32{math.Float32bits(c[0]), math.Float32bits(c[1]), math.Float32bits(c[2])},
	}
}

// Compact returns a new mesh without unreferenced vertices and with exact
// duplicates (same position bits and color bits) merged. Surviving vertices
// keep their first-reference order. The receiver is not modified.
func (m *Mesh) Compact() (*Mesh, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	color := m.HasColor()
	remap := make(map[uint32]uint32, len(m.Vertices))
	seen := make(map[vertexKey]uint32, len(m.Vertices))

	out := &Mesh{Triangles: make([][3]uint32, len(m.Triangles))}
	for t, tri := range m.Triangles {
		for k, v := range tri {
			idx, ok := remap[v]
			if !ok {
				var c [3]float32
				if color {
					c = m.VertexColors[v]
				}
				key := keyOf(m.Vertices[v], c)
				idx, ok = seen[key]
				if !ok {
					idx = uint32(len(out.Vertices))
					seen[key] = idx
					out.Vertices = append(out.Vertices, m.Vertices[v])
					if color {
						out.VertexColors = append(out.VertexColors, c)
					}
				}
				remap[v] = idx
			}
			out.Triangles[t][k] = idx
		}
	}
	return out, nil
}
