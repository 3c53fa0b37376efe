package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/pointbake/internal/pointcloud/decode"
)

// DefaultConfigPath is the path to the canonical bake defaults file.
const DefaultConfigPath = "config/bake.defaults.json"

// BakeConfig holds the tunables for a bake run. Every field is optional;
// the Get* methods supply defaults for anything left unset.
type BakeConfig struct {
	// Decode params
	ChunkSize         *int    `json:"chunk_size,omitempty"`
	TriangleChunkSize *int    `json:"triangle_chunk_size,omitempty"`
	Workers           *int    `json:"workers,omitempty"`
	Tolerance         *string `json:"tolerance,omitempty"` // "lenient" or "strict"

	// Atlas params
	RepeatPadding *bool `json:"repeat_padding,omitempty"`

	// Export params
	WebPExtended      *bool    `json:"webp_extended,omitempty"`
	ThumbnailSize     *int     `json:"thumbnail_size,omitempty"`
	PreviewSizeInches *float64 `json:"preview_size_inches,omitempty"`

	// WaitTimeout bounds how long callers wait on an async bake.
	WaitTimeout *string `json:"wait_timeout,omitempty"` // duration string like "5m"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyBakeConfig returns a BakeConfig with all fields set to nil.
func EmptyBakeConfig() *BakeConfig {
	return &BakeConfig{}
}

// LoadBakeConfig loads a BakeConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Omitted fields
// stay nil and fall back to defaults, so partial configs are safe.
func LoadBakeConfig(path string) (*BakeConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyBakeConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *BakeConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/pointcloud/bake/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadBakeConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *BakeConfig) Validate() error {
	if c.ChunkSize != nil && *c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive, got %d", *c.ChunkSize)
	}
	if c.TriangleChunkSize != nil && *c.TriangleChunkSize < 1 {
		return fmt.Errorf("triangle_chunk_size must be positive, got %d", *c.TriangleChunkSize)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.Tolerance != nil {
		if _, err := decode.ParseTolerance(*c.Tolerance); err != nil {
			return err
		}
	}
	if c.ThumbnailSize != nil && *c.ThumbnailSize < 0 {
		return fmt.Errorf("thumbnail_size must be non-negative, got %d", *c.ThumbnailSize)
	}
	if c.PreviewSizeInches != nil && *c.PreviewSizeInches <= 0 {
		return fmt.Errorf("preview_size_inches must be positive, got %f", *c.PreviewSizeInches)
	}
	if c.WaitTimeout != nil && *c.WaitTimeout != "" {
		if _, err := time.ParseDuration(*c.WaitTimeout); err != nil {
			return fmt.Errorf("invalid wait_timeout '%s': %w", *c.WaitTimeout, err)
		}
	}
	return nil
}

// GetChunkSize returns the chunk_size value or the default.
func (c *BakeConfig) GetChunkSize() int {
	if c.ChunkSize == nil {
		return decode.DefaultChunkSize
	}
	return *c.ChunkSize
}

// GetTriangleChunkSize returns the triangle_chunk_size value or the default.
func (c *BakeConfig) GetTriangleChunkSize() int {
	if c.TriangleChunkSize == nil {
		return decode.DefaultTriangleChunkSize
	}
	return *c.TriangleChunkSize
}

// GetWorkers returns the workers value or 0, meaning one per CPU.
func (c *BakeConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetTolerance returns the parsed tolerance, lenient when unset or invalid.
func (c *BakeConfig) GetTolerance() decode.Tolerance {
	if c.Tolerance == nil {
		return decode.Lenient
	}
	t, err := decode.ParseTolerance(*c.Tolerance)
	if err != nil {
		return decode.Lenient
	}
	return t
}

// GetRepeatPadding returns the repeat_padding value or the default.
func (c *BakeConfig) GetRepeatPadding() bool {
	if c.RepeatPadding == nil {
		return false // default: padding texels stay zero
	}
	return *c.RepeatPadding
}

// GetWebPExtended returns the webp_extended value or the default.
func (c *BakeConfig) GetWebPExtended() bool {
	if c.WebPExtended == nil {
		return false
	}
	return *c.WebPExtended
}

// GetThumbnailSize returns the thumbnail_size value or the default.
func (c *BakeConfig) GetThumbnailSize() int {
	if c.ThumbnailSize == nil {
		return 256
	}
	return *c.ThumbnailSize
}

// GetPreviewSizeInches returns the preview_size_inches value or the default.
func (c *BakeConfig) GetPreviewSizeInches() float64 {
	if c.PreviewSizeInches == nil {
		return 6
	}
	return *c.PreviewSizeInches
}

// GetWaitTimeout parses and returns the WaitTimeout as a time.Duration.
func (c *BakeConfig) GetWaitTimeout() time.Duration {
	if c.WaitTimeout == nil || *c.WaitTimeout == "" {
		return 10 * time.Minute // default
	}
	d, err := time.ParseDuration(*c.WaitTimeout)
	if err != nil {
		return 10 * time.Minute // default on parse error
	}
	return d
}

// ToDecodeOptions converts the decode params into decode.Options.
func (c *BakeConfig) ToDecodeOptions() decode.Options {
	return decode.Options{
		ChunkSize:         c.GetChunkSize(),
		TriangleChunkSize: c.GetTriangleChunkSize(),
		Workers:           c.GetWorkers(),
		Tolerance:         c.GetTolerance(),
	}
}
