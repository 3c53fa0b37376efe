package db

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pointbake/internal/pointcloud/atlas"
	"github.com/banshee-data/pointbake/internal/pointcloud/decode"
)

// ErrNotFound is returned when an atlas or its triangles are not cached.
var ErrNotFound = errors.New("db: not found")

// AtlasRecord is the metadata row for a cached atlas.
type AtlasRecord struct {
	AtlasID    string `json:"atlas_id"`
	Name       string `json:"name"`
	Width      uint32 `json:"width"`
	Height     uint32 `json:"height"`
	PointCount uint32 `json:"point_count"`
	HasColor   bool   `json:"has_color"`
	CreatedAt  int64  `json:"created_at"`
}

// AtlasStore persists atlases and their triangle buffers.
type AtlasStore struct {
	db *sql.DB
}

// NewAtlasStore creates a new AtlasStore.
func NewAtlasStore(db *DB) *AtlasStore {
	return &AtlasStore{db: db.DB}
}

// SaveAtlas stores a under a new UUID and returns the ID.
func (s *AtlasStore) SaveAtlas(name string, a *atlas.PointAtlas) (string, error) {
	if a == nil {
		return "", errors.New("db: nil atlas")
	}
	id := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO atlases (
			atlas_id, name, width, height, point_count, has_color,
			positions, colors, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, a.Width, a.Height, a.PointCount, a.HasColor,
		encodePositions(a.Positions), encodeColors(a.Colors), time.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("insert atlas: %w", err)
	}
	return id, nil
}

// GetAtlas loads the atlas stored under id.
func (s *AtlasStore) GetAtlas(id string) (*atlas.PointAtlas, error) {
	var (
		a         atlas.PointAtlas
		pos, cols []byte
	)
	err := s.db.QueryRow(`
		SELECT width, height, point_count, has_color, positions, colors
		FROM atlases
		WHERE atlas_id = ?`, id,
	).Scan(&a.Width, &a.Height, &a.PointCount, &a.HasColor, &pos, &cols)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("atlas %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scan atlas: %w", err)
	}

	cells := a.Cells()
	if a.Positions, err = decodePositions(pos, cells); err != nil {
		return nil, fmt.Errorf("atlas %s: %w", id, err)
	}
	if a.Colors, err = decodeColors(cols, cells); err != nil {
		return nil, fmt.Errorf("atlas %s: %w", id, err)
	}
	return &a, nil
}

// ListAtlases returns metadata for every cached atlas, newest first.
func (s *AtlasStore) ListAtlases() ([]*AtlasRecord, error) {
	rows, err := s.db.Query(`
		SELECT atlas_id, name, width, height, point_count, has_color, created_at
		FROM atlases
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query atlases: %w", err)
	}
	defer rows.Close()

	var out []*AtlasRecord
	for rows.Next() {
		var r AtlasRecord
		if err := rows.Scan(&r.AtlasID, &r.Name, &r.Width, &r.Height, &r.PointCount, &r.HasColor, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan atlas row: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// DeleteAtlas removes an atlas and any triangles stored with it.
func (s *AtlasStore) DeleteAtlas(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM atlas_triangles WHERE atlas_id = ?`, id); err != nil {
		return fmt.Errorf("delete triangles: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM atlases WHERE atlas_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete atlas: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("atlas %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// SaveTriangles stores tris for atlasID, replacing any previous buffer.
func (s *AtlasStore) SaveTriangles(atlasID string, tris decode.TriangleBuffer) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO atlas_triangles (atlas_id, triangle_count, indices, created_at)
		VALUES (?, ?, ?, ?)`,
		atlasID, len(tris), encodeTriangles(tris), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert triangles: %w", err)
	}
	return nil
}

// GetTriangles loads the triangle buffer stored for atlasID.
func (s *AtlasStore) GetTriangles(atlasID string) (decode.TriangleBuffer, error) {
	var (
		count int
		blob  []byte
	)
	err := s.db.QueryRow(`
		SELECT triangle_count, indices FROM atlas_triangles WHERE atlas_id = ?`, atlasID,
	).Scan(&count, &blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("triangles for %s: %w", atlasID, ErrNotFound)
		}
		return nil, fmt.Errorf("scan triangles: %w", err)
	}
	if len(blob) != count*decode.TriangleSize {
		return nil, fmt.Errorf("triangles for %s: blob holds %d bytes, want %d", atlasID, len(blob), count*decode.TriangleSize)
	}
	return decode.DecodeTriangles(blob, decode.DefaultOptions())
}

func encodePositions(p [][4]float32) []byte {
	buf := make([]byte, 0, 16*len(p))
	for _, v := range p {
		for _, f := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return buf
}

func decodePositions(b []byte, cells int) ([][4]float32, error) {
	if len(b) != 16*cells {
		return nil, fmt.Errorf("positions blob holds %d bytes, want %d", len(b), 16*cells)
	}
	out := make([][4]float32, cells)
	for i := range out {
		for j := range out[i] {
			out[i][j] = math.Float32frombits(binary.LittleEndian.Uint32(b[16*i+4*j:]))
		}
	}
	return out, nil
}

func encodeColors(c [][4]uint8) []byte {
	buf := make([]byte, 0, 4*len(c))
	for _, v := range c {
		buf = append(buf, v[:]...)
	}
	return buf
}

func decodeColors(b []byte, cells int) ([][4]uint8, error) {
	if len(b) != 4*cells {
		return nil, fmt.Errorf("colors blob holds %d bytes, want %d", len(b), 4*cells)
	}
	out := make([][4]uint8, cells)
	for i := range out {
		copy(out[i][:], b[4*i:4*i+4])
	}
	return out, nil
}

func encodeTriangles(t decode.TriangleBuffer) []byte {
	buf := make([]byte, 0, decode.TriangleSize*len(t))
	for _, v := range t.Flat() {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return buf
}
