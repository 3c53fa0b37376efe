package bake

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pointbake/internal/config"
	"github.com/banshee-data/pointbake/internal/pointcloud/decode"
	"github.com/banshee-data/pointbake/internal/pointcloud/schema"
	"github.com/banshee-data/pointbake/internal/testutil"
)

func newView(t *testing.T, n int, tris [][3]uint32) *MemoryView {
	t.Helper()
	dims := testutil.XYZRGB("float", "uint8")
	s := testutil.MustResolve(t, dims)
	return &MemoryView{
		Name:      "test",
		Fields:    dims,
		Count:     uint64(n),
		Points:    testutil.PackPoints(t, s, testutil.SequentialPoints(n)),
		Triangles: testutil.PackTriangles(tris),
	}
}

func TestBakePointCloud(t *testing.T) {
	v := newView(t, 5, nil)

	a, err := NewBaker(nil).BakePointCloud(v)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), a.Width)
	assert.Equal(t, uint32(5), a.PointCount)
	assert.True(t, a.HasColor)
	assert.Equal(t, [4]float32{4, 4.5, -4, 0}, a.Positions[4])
	assert.Zero(t, a.Positions[5])
}

func TestBakePointCloudRepeatPadding(t *testing.T) {
	v := newView(t, 5, nil)
	cfg := config.EmptyBakeConfig()
	on := true
	cfg.RepeatPadding = &on

	a, err := NewBaker(cfg).BakePointCloud(v)
	require.NoError(t, err)
	for i := 5; i < a.Cells(); i++ {
		assert.NotZero(t, a.Colors[i][3], "padding cell %d left empty", i)
	}
}

func TestBakePointCloudErrors(t *testing.T) {
	v := newView(t, 2, nil)
	v.Fields = append([]schema.Dimension{}, v.Fields...)
	v.Fields[4].Interpretation = "string"

	_, err := NewBaker(nil).BakePointCloud(v)
	var ute *schema.UnsupportedTypeError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "Green", ute.Field)

	strict := "strict"
	v = newView(t, 3, nil)
	v.Points = v.Points[:len(v.Points)-2]
	_, err = NewBaker(&config.BakeConfig{Tolerance: &strict}).BakePointCloud(v)
	var te *decode.TruncatedError
	assert.ErrorAs(t, err, &te)

	// Lenient keeps the two complete records.
	a, err := NewBaker(nil).BakePointCloud(v)
	require.NoError(t, err)
	assert.Equal(t, float32(1), a.Positions[1][0])
	assert.Zero(t, a.Positions[2])
}

func TestBakeTriangles(t *testing.T) {
	v := newView(t, 3, [][3]uint32{{0, 1, 2}, {2, 1, 0}})
	tris, err := NewBaker(nil).BakeTriangles(v)
	require.NoError(t, err)
	assert.Equal(t, decode.TriangleBuffer{{0, 1, 2}, {2, 1, 0}}, tris)

	v.Triangles = nil
	tris, err = NewBaker(nil).BakeTriangles(v)
	require.NoError(t, err)
	assert.Empty(t, tris)
}

func TestBakeMesh(t *testing.T) {
	v := newView(t, 3, [][3]uint32{{0, 1, 2}})
	m, err := NewBaker(nil).BakeMesh(v)
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	assert.Len(t, m.Vertices, 3)
	assert.Equal(t, [3]float64{2, 2.5, -2}, m.Vertices[2])
	assert.Equal(t, [3]float32{1.0 / 256, 7.0 / 256, 13.0 / 256}, m.VertexColors[1])

	v.Triangles = nil
	_, err = NewBaker(nil).BakeMesh(v)
	assert.ErrorIs(t, err, ErrNoMesh)
}

func TestBakeMeshIgnoresRepeatPadding(t *testing.T) {
	v := newView(t, 2, [][3]uint32{{0, 1, 1}})
	on := true
	m, err := NewBaker(&config.BakeConfig{RepeatPadding: &on}).BakeMesh(v)
	require.NoError(t, err)
	assert.Len(t, m.Vertices, 2)
}

func TestBakeMeshFromAtlas(t *testing.T) {
	v := newView(t, 5, [][3]uint32{{0, 1, 4}})
	on := true
	b := NewBaker(&config.BakeConfig{RepeatPadding: &on})

	a, err := b.BakePointCloud(v)
	require.NoError(t, err)
	require.Equal(t, uint32(3), a.Width)

	got, err := b.BakeMeshFromAtlas(v, a)
	require.NoError(t, err)
	want, err := NewBaker(nil).BakeMesh(v)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Len(t, got.Vertices, 5)

	other := newView(t, 4, [][3]uint32{{0, 1, 2}})
	_, err = b.BakeMeshFromAtlas(other, a)
	assert.ErrorContains(t, err, "provider has 4")

	other.Triangles = nil
	_, err = b.BakeMeshFromAtlas(other, a)
	assert.ErrorIs(t, err, ErrNoMesh)
}

func TestAsyncBakes(t *testing.T) {
	v := newView(t, 10, [][3]uint32{{0, 1, 2}})
	b := NewBaker(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	af := b.BakePointCloudAsync(v)
	mf := b.BakeMeshAsync(v)

	a, err := af.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), a.PointCount)

	m, err := mf.Wait(ctx)
	require.NoError(t, err)
	assert.Len(t, m.Triangles, 1)

	v.Triangles = nil
	_, err = b.BakeMeshAsync(v).Wait(ctx)
	assert.ErrorIs(t, err, ErrNoMesh)
}

func TestFutureWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	f := Go(func() (int, error) {
		<-release
		return 42, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Wait(ctx)
	assert.True(t, errors.Is(err, context.Canceled))

	close(release)
	<-f.Done()
	got, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestDumpRoundTrip(t *testing.T) {
	dir := t.TempDir()
	v := newView(t, 4, [][3]uint32{{0, 1, 2}, {1, 2, 3}})
	require.NoError(t, WriteDump(dir, v))

	got, err := LoadDump(dir)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestLoadDumpMeshBytesLimit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.bin"), make([]byte, 12), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.bin"), make([]byte, 30), 0o644))
	manifest := `{
  "point_count": 1,
  "fields": [
    {"name": "X", "interpretation": "float", "size": 4},
    {"name": "Y", "interpretation": "float", "size": 4},
    {"name": "Z", "interpretation": "float", "size": 4}
  ],
  "points_file": "p.bin",
  "mesh_file": "m.bin",
  "mesh_bytes": 24
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0o644))

	v, err := LoadDump(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), v.Name)
	assert.Equal(t, uint64(24), v.MeshByteSize())

	tris, err := NewBaker(nil).BakeTriangles(v)
	require.NoError(t, err)
	assert.Len(t, tris, 2)
}

func TestLoadDumpErrors(t *testing.T) {
	_, err := LoadDump(t.TempDir())
	assert.ErrorContains(t, err, "manifest")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile),
		[]byte(`{"point_count": 1, "points_file": "../escape.bin"}`), 0o644))
	_, err = LoadDump(dir)
	assert.ErrorContains(t, err, "relative")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile),
		[]byte(`{"point_count": 3}`), 0o644))
	_, err = LoadDump(dir)
	assert.ErrorContains(t, err, "points_file")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.bin"), make([]byte, 12), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile),
		[]byte(`{"mesh_file": "m.bin", "mesh_bytes": 36}`), 0o644))
	_, err = LoadDump(dir)
	assert.ErrorContains(t, err, "mesh bytes")
}
