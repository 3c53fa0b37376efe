// Package decode turns packed point and triangle buffers into structured
// arrays. Work is split into fixed-size chunks over disjoint index ranges
// and run on a bounded worker pool; every entry point blocks until all
// chunks have finished, so callers never observe a half-written result.
package decode

import (
	"fmt"
	"runtime"
	"strings"
)

// Tolerance selects what happens when a record runs past the end of the buffer.
type Tolerance int

const (
	// Lenient skips truncated records and leaves their slots zeroed.
	Lenient Tolerance = iota
	// Strict fails the whole decode before any chunk runs.
	Strict
)

func (t Tolerance) String() string {
	switch t {
	case Lenient:
		return "lenient"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("Tolerance(%d)", int(t))
	}
}

// ParseTolerance accepts "lenient" or "strict" (case-insensitive).
func ParseTolerance(s string) (Tolerance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lenient", "":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return Lenient, fmt.Errorf("decode: unknown tolerance %q (want lenient or strict)", s)
	}
}

// Default chunk sizes. Chunk size only affects scheduling granularity.
const (
	DefaultChunkSize         = 4096
	DefaultTriangleChunkSize = 1000
)

// Options tunes a decode. The zero value is usable.
type Options struct {
	// ChunkSize is the number of point records per task.
	ChunkSize int
	// TriangleChunkSize is the number of triangles per task; 1 gives one
	// triangle per task.
	TriangleChunkSize int
	// Workers bounds concurrent tasks; <= 0 means GOMAXPROCS.
	Workers int
	// Tolerance selects lenient or strict handling of truncated input.
	Tolerance Tolerance
}

// DefaultOptions returns lenient options with the default chunk sizes.
func DefaultOptions() Options {
	return Options{
		ChunkSize:         DefaultChunkSize,
		TriangleChunkSize: DefaultTriangleChunkSize,
	}
}

func (o Options) pointChunk() int {
	if o.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return o.ChunkSize
}

func (o Options) triangleChunk() int {
	if o.TriangleChunkSize <= 0 {
		return DefaultTriangleChunkSize
	}
	return o.TriangleChunkSize
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}
