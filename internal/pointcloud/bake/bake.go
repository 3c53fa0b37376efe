// Package bake drives a full decode of one Provider: schema resolution,
// point and triangle decode, optional padding fill and mesh assembly.
package bake

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/pointbake/internal/config"
	"github.com/banshee-data/pointbake/internal/monitoring"
	"github.com/banshee-data/pointbake/internal/pointcloud/atlas"
	"github.com/banshee-data/pointbake/internal/pointcloud/decode"
	"github.com/banshee-data/pointbake/internal/pointcloud/mesh"
	"github.com/banshee-data/pointbake/internal/pointcloud/schema"
)

// ErrNoMesh is returned by BakeMesh when the provider has no triangle data.
var ErrNoMesh = errors.New("bake: no mesh found")

// Baker runs bakes with one configuration. It holds no per-bake state and
// is safe for concurrent use.
type Baker struct {
	cfg  *config.BakeConfig
	opts decode.Options
}

// NewBaker returns a Baker for cfg. A nil cfg uses defaults.
func NewBaker(cfg *config.BakeConfig) *Baker {
	if cfg == nil {
		cfg = config.EmptyBakeConfig()
	}
	return &Baker{cfg: cfg, opts: cfg.ToDecodeOptions()}
}

// Options returns the decode options the baker passes to the decoder.
func (b *Baker) Options() decode.Options {
	return b.opts
}

// BakePointCloud decodes the provider's points into an atlas.
func (b *Baker) BakePointCloud(p Provider) (*atlas.PointAtlas, error) {
	s, err := schema.Resolve(p.FieldSchema())
	if err != nil {
		return nil, fmt.Errorf("bake: resolve schema: %w", err)
	}

	a, stats, err := decode.DecodePoints(p.RawPointBytes(), s, p.RecordCount(), b.opts)
	if err != nil {
		return nil, fmt.Errorf("bake: decode points: %w", err)
	}
	monitoring.Logf("bake: %d/%d points decoded into %dx%d atlas (skipped %d, color=%v)",
		stats.Decoded, stats.Records, a.Width, a.Height, stats.Skipped, stats.HasColor)

	if b.cfg.GetRepeatPadding() {
		a = a.WithRepeatedPadding()
	}
	return a, nil
}

// BakeTriangles decodes the provider's triangle stream. An empty stream
// gives an empty buffer and no error.
func (b *Baker) BakeTriangles(p Provider) (decode.TriangleBuffer, error) {
	raw := p.RawTriangleBytes()
	if n := p.MeshByteSize(); n < uint64(len(raw)) {
		raw = raw[:n]
	}
	tris, err := decode.DecodeTriangles(raw, b.opts)
	if err != nil {
		return nil, fmt.Errorf("bake: decode triangles: %w", err)
	}
	monitoring.Debugf("bake: %d triangles from %d bytes", len(tris), len(raw))
	return tris, nil
}

// BakeMesh decodes points and triangles and assembles them. Returns
// ErrNoMesh when the provider reports zero mesh bytes.
func (b *Baker) BakeMesh(p Provider) (*mesh.Mesh, error) {
	if p.MeshByteSize() == 0 {
		return nil, ErrNoMesh
	}
	s, err := schema.Resolve(p.FieldSchema())
	if err != nil {
		return nil, fmt.Errorf("bake: resolve schema: %w", err)
	}
	a, _, err := decode.DecodePoints(p.RawPointBytes(), s, p.RecordCount(), b.opts)
	if err != nil {
		return nil, fmt.Errorf("bake: decode points: %w", err)
	}
	return b.BakeMeshFromAtlas(p, a)
}

// BakeMeshFromAtlas decodes only the triangle stream and takes vertices
// from an atlas already baked from the same provider. Padding cells are
// never vertices, so a repeat-padded atlas gives the same mesh.
func (b *Baker) BakeMeshFromAtlas(p Provider, a *atlas.PointAtlas) (*mesh.Mesh, error) {
	if p.MeshByteSize() == 0 {
		return nil, ErrNoMesh
	}
	if uint64(a.PointCount) != p.RecordCount() {
		return nil, fmt.Errorf("bake: atlas holds %d points, provider has %d", a.PointCount, p.RecordCount())
	}
	tris, err := b.BakeTriangles(p)
	if err != nil {
		return nil, err
	}

	m := mesh.FromAtlas(a, tris)
	monitoring.Logf("bake: mesh with %d vertices, %d triangles", len(m.Vertices), len(m.Triangles))
	return m, nil
}

// BakePointCloudAsync runs BakePointCloud on its own goroutine.
func (b *Baker) BakePointCloudAsync(p Provider) *Future[*atlas.PointAtlas] {
	return Go(func() (*atlas.PointAtlas, error) { return b.BakePointCloud(p) })
}

// BakeMeshAsync runs BakeMesh on its own goroutine.
func (b *Baker) BakeMeshAsync(p Provider) *Future[*mesh.Mesh] {
	return Go(func() (*mesh.Mesh, error) { return b.BakeMesh(p) })
}

// Future is the pending result of a bake running on another goroutine.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go starts fn and returns a Future for its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the bake finishes or ctx is done. A cancelled ctx only
// stops the wait; the bake keeps running and a later Wait still sees it.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
