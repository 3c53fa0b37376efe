package bake

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/pointbake/internal/pointcloud/schema"
)

// Provider supplies one source's raw point and mesh data.
type Provider interface {
	FieldSchema() []schema.Dimension
	RecordCount() uint64
	RawPointBytes() []byte
	MeshByteSize() uint64
	RawTriangleBytes() []byte
}

// MemoryView is a Provider backed by in-memory buffers.
type MemoryView struct {
	Name      string
	Fields    []schema.Dimension
	Count     uint64
	Points    []byte
	Triangles []byte
}

func (v *MemoryView) FieldSchema() []schema.Dimension { return v.Fields }
func (v *MemoryView) RecordCount() uint64             { return v.Count }
func (v *MemoryView) RawPointBytes() []byte           { return v.Points }
func (v *MemoryView) MeshByteSize() uint64            { return uint64(len(v.Triangles)) }
func (v *MemoryView) RawTriangleBytes() []byte        { return v.Triangles }

// ManifestFile is the manifest name inside a dump directory.
const ManifestFile = "view.json"

// Manifest describes a dump directory: the field layout plus the files
// holding the raw buffers.
type Manifest struct {
	Name       string             `json:"name"`
	PointCount uint64             `json:"point_count"`
	Fields     []schema.Dimension `json:"fields"`
	PointsFile string             `json:"points_file"`
	MeshFile   string             `json:"mesh_file,omitempty"`
	MeshBytes  *uint64            `json:"mesh_bytes,omitempty"`
}

// LoadDump reads a dump directory into a MemoryView. Paths in the manifest
// are relative to dir. When mesh_bytes is set, only that many bytes of the
// mesh file are used.
func LoadDump(dir string) (*MemoryView, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.PointsFile == "" && m.PointCount > 0 {
		return nil, fmt.Errorf("manifest declares %d points but no points_file", m.PointCount)
	}

	v := &MemoryView{Name: m.Name, Fields: m.Fields, Count: m.PointCount}
	if m.Name == "" {
		v.Name = filepath.Base(filepath.Clean(dir))
	}

	if m.PointsFile != "" {
		if v.Points, err = readDumpFile(dir, m.PointsFile); err != nil {
			return nil, err
		}
	}
	if m.MeshFile != "" {
		if v.Triangles, err = readDumpFile(dir, m.MeshFile); err != nil {
			return nil, err
		}
	}
	if m.MeshBytes != nil {
		n := *m.MeshBytes
		if n > uint64(len(v.Triangles)) {
			return nil, fmt.Errorf("manifest declares %d mesh bytes, %s holds %d", n, m.MeshFile, len(v.Triangles))
		}
		v.Triangles = v.Triangles[:n]
	}
	return v, nil
}

func readDumpFile(dir, name string) ([]byte, error) {
	if filepath.IsAbs(name) || !filepath.IsLocal(name) {
		return nil, fmt.Errorf("dump file %q must be relative to the dump directory", name)
	}
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return b, nil
}

// WriteDump writes v to dir in the layout LoadDump reads.
func WriteDump(dir string, v *MemoryView) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dump dir: %w", err)
	}
	m := Manifest{
		Name:       v.Name,
		PointCount: v.Count,
		Fields:     v.Fields,
		PointsFile: "points.bin",
	}
	if err := os.WriteFile(filepath.Join(dir, m.PointsFile), v.Points, 0o644); err != nil {
		return fmt.Errorf("failed to write points: %w", err)
	}
	if len(v.Triangles) > 0 {
		m.MeshFile = "mesh.bin"
		n := uint64(len(v.Triangles))
		m.MeshBytes = &n
		if err := os.WriteFile(filepath.Join(dir, m.MeshFile), v.Triangles, 0o644); err != nil {
			return fmt.Errorf("failed to write mesh: %w", err)
		}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
