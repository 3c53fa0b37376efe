// Package testutil provides shared test fixtures for packed point and
// triangle buffers.
//
// Fixtures are built through the same scalar encoder the decoder reads
// with, so a fixture and a decode always agree on byte layout.
package testutil

import (
	"encoding/binary"
	"testing"

	"github.com/banshee-data/pointbake/internal/pointcloud/scalar"
	"github.com/banshee-data/pointbake/internal/pointcloud/schema"
)

// Point is one fixture record. Fields not present in the schema are ignored.
type Point struct {
	X, Y, Z          float64
	Red, Green, Blue float64
	Extra            map[string]float64
}

func (p Point) value(name string) float64 {
	switch name {
	case "X":
		return p.X
	case "Y":
		return p.Y
	case "Z":
		return p.Z
	case "Red":
		return p.Red
	case "Green":
		return p.Green
	case "Blue":
		return p.Blue
	}
	return p.Extra[name]
}

// XYZ returns position-only dimensions of the given interpretation.
func XYZ(interp string) []schema.Dimension {
	w := width(interp)
	return []schema.Dimension{
		{Name: "X", Interpretation: interp, Width: w},
		{Name: "Y", Interpretation: interp, Width: w},
		{Name: "Z", Interpretation: interp, Width: w},
	}
}

// XYZRGB returns position dimensions followed by color dimensions.
func XYZRGB(posInterp, colorInterp string) []schema.Dimension {
	w := width(colorInterp)
	return append(XYZ(posInterp),
		schema.Dimension{Name: "Red", Interpretation: colorInterp, Width: w},
		schema.Dimension{Name: "Green", Interpretation: colorInterp, Width: w},
		schema.Dimension{Name: "Blue", Interpretation: colorInterp, Width: w},
	)
}

func width(interp string) uint32 {
	id, err := schema.ParseInterpretation(interp)
	if err != nil {
		panic(err)
	}
	w, err := id.Width()
	if err != nil {
		panic(err)
	}
	return w
}

// MustResolve resolves dims or fails the test.
func MustResolve(t testing.TB, dims []schema.Dimension) *schema.RecordSchema {
	t.Helper()
	s, err := schema.Resolve(dims)
	if err != nil {
		t.Fatalf("resolve schema: %v", err)
	}
	return s
}

// PackPoints encodes points as consecutive records of s.
func PackPoints(t testing.TB, s *schema.RecordSchema, points []Point) []byte {
	t.Helper()
	buf := make([]byte, len(points)*int(s.Stride))
	for i, p := range points {
		base := i * int(s.Stride)
		for _, f := range s.Fields {
			if err := scalar.Encode(buf, f.Type, base+int(f.Offset), p.value(f.Name)); err != nil {
				t.Fatalf("pack point %d field %s: %v", i, f.Name, err)
			}
		}
	}
	return buf
}

// SequentialPoints returns n points whose coordinates encode their index,
// which makes misplaced records easy to spot.
func SequentialPoints(n int) []Point {
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{
			X:     float64(i),
			Y:     float64(i) + 0.5,
			Z:     -float64(i),
			Red:   float64(i % 256),
			Green: float64((i * 7) % 256),
			Blue:  float64((i * 13) % 256),
		}
	}
	return points
}

// PackTriangles encodes triangles as little-endian uint32 triples.
func PackTriangles(tris [][3]uint32) []byte {
	buf := make([]byte, 12*len(tris))
	for i, tri := range tris {
		for j, v := range tri {
			binary.LittleEndian.PutUint32(buf[12*i+4*j:], v)
		}
	}
	return buf
}
