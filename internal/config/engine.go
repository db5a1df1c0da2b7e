package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultsJSON is the canonical engine defaults file. It is the single source
// of truth for the values the Get* accessors fall back to.
//
//go:embed engine.defaults.json
var defaultsJSON []byte

// Backing store kinds.
const (
	BackingStoreFile   = "file"
	BackingStoreBadger = "badger"
)

// Compression kinds for block-oriented backing stores.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

// Q conventions.
const (
	QConventionInelastic       = "Inelastic"
	QConventionCrystallography = "Crystallography"
)

// EngineConfig is the root configuration for the event/histogram engine.
// Every field is optional; the Get* accessors supply the default for any
// field left unset, so partial configs are safe.
type EngineConfig struct {
	// Box controller
	SplitThreshold    *int `json:"split_threshold,omitempty" yaml:"split_threshold,omitempty"`
	SplitInto         *int `json:"split_into,omitempty" yaml:"split_into,omitempty"`
	MaxRecursionDepth *int `json:"max_recursion_depth,omitempty" yaml:"max_recursion_depth,omitempty"`
	MinRecursionDepth *int `json:"min_recursion_depth,omitempty" yaml:"min_recursion_depth,omitempty"`

	// Disk-backed paging
	WriteBufferEvents *int    `json:"write_buffer_events,omitempty" yaml:"write_buffer_events,omitempty"`
	BackingStore      *string `json:"backing_store,omitempty" yaml:"backing_store,omitempty"`
	Compression       *string `json:"compression,omitempty" yaml:"compression,omitempty"`
	FlushInterval     *string `json:"flush_interval,omitempty" yaml:"flush_interval,omitempty"` // duration string like "30s"

	// Conversion
	ChunkSize   *int    `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	Workers     *int    `json:"workers,omitempty" yaml:"workers,omitempty"`
	QConvention *string `json:"q_convention,omitempty" yaml:"q_convention,omitempty"`
}

// Helper functions to create pointers
func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

// EmptyEngineConfig returns an EngineConfig with all fields set to nil.
func EmptyEngineConfig() *EngineConfig {
	return &EngineConfig{}
}

// DefaultEngineConfig returns the embedded defaults with every field set.
func DefaultEngineConfig() *EngineConfig {
	cfg := EmptyEngineConfig()
	if err := json.Unmarshal(defaultsJSON, cfg); err != nil {
		panic("config: embedded engine.defaults.json is invalid: " + err.Error())
	}
	return cfg
}

// LoadEngineConfig loads an EngineConfig from a .json, .yaml or .yml file.
// Fields omitted from the file fall back to the defaults through the Get*
// accessors.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyEngineConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *EngineConfig) Validate() error {
	if c.SplitThreshold != nil && *c.SplitThreshold < 1 {
		return fmt.Errorf("split_threshold must be at least 1, got %d", *c.SplitThreshold)
	}
	if c.SplitInto != nil && *c.SplitInto < 2 {
		return fmt.Errorf("split_into must be at least 2, got %d", *c.SplitInto)
	}
	if c.MaxRecursionDepth != nil && *c.MaxRecursionDepth < 0 {
		return fmt.Errorf("max_recursion_depth must be non-negative, got %d", *c.MaxRecursionDepth)
	}
	if c.MinRecursionDepth != nil && *c.MinRecursionDepth < 0 {
		return fmt.Errorf("min_recursion_depth must be non-negative, got %d", *c.MinRecursionDepth)
	}
	if c.GetMinRecursionDepth() > c.GetMaxRecursionDepth() {
		return fmt.Errorf("min_recursion_depth (%d) exceeds max_recursion_depth (%d)",
			c.GetMinRecursionDepth(), c.GetMaxRecursionDepth())
	}
	if c.WriteBufferEvents != nil && *c.WriteBufferEvents < 0 {
		return fmt.Errorf("write_buffer_events must be non-negative, got %d", *c.WriteBufferEvents)
	}
	if c.ChunkSize != nil && *c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be at least 1, got %d", *c.ChunkSize)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.BackingStore != nil {
		switch *c.BackingStore {
		case BackingStoreFile, BackingStoreBadger:
		default:
			return fmt.Errorf("backing_store must be %q or %q, got %q", BackingStoreFile, BackingStoreBadger, *c.BackingStore)
		}
	}
	if c.Compression != nil {
		switch *c.Compression {
		case CompressionNone, CompressionZstd, CompressionLZ4:
		default:
			return fmt.Errorf("unknown compression %q", *c.Compression)
		}
	}
	if c.QConvention != nil {
		switch *c.QConvention {
		case QConventionInelastic, QConventionCrystallography:
		default:
			return fmt.Errorf("q_convention must be %q or %q, got %q", QConventionInelastic, QConventionCrystallography, *c.QConvention)
		}
	}
	if c.FlushInterval != nil && *c.FlushInterval != "" {
		if _, err := time.ParseDuration(*c.FlushInterval); err != nil {
			return fmt.Errorf("invalid flush_interval '%s': %w", *c.FlushInterval, err)
		}
	}
	return nil
}

// GetSplitThreshold returns the split_threshold value or the default.
func (c *EngineConfig) GetSplitThreshold() int {
	if c.SplitThreshold == nil {
		return 1000
	}
	return *c.SplitThreshold
}

// GetSplitInto returns the split_into value or the default.
func (c *EngineConfig) GetSplitInto() int {
	if c.SplitInto == nil {
		return 5
	}
	return *c.SplitInto
}

// GetMaxRecursionDepth returns the max_recursion_depth value or the default.
func (c *EngineConfig) GetMaxRecursionDepth() int {
	if c.MaxRecursionDepth == nil {
		return 20
	}
	return *c.MaxRecursionDepth
}

// GetMinRecursionDepth returns the min_recursion_depth value or the default.
func (c *EngineConfig) GetMinRecursionDepth() int {
	if c.MinRecursionDepth == nil {
		return 0
	}
	return *c.MinRecursionDepth
}

// GetWriteBufferEvents returns the write_buffer_events value or the default.
func (c *EngineConfig) GetWriteBufferEvents() int {
	if c.WriteBufferEvents == nil {
		return 1000000
	}
	return *c.WriteBufferEvents
}

// GetBackingStore returns the backing_store value or the default.
func (c *EngineConfig) GetBackingStore() string {
	if c.BackingStore == nil || *c.BackingStore == "" {
		return BackingStoreFile
	}
	return *c.BackingStore
}

// GetCompression returns the compression value or the default.
func (c *EngineConfig) GetCompression() string {
	if c.Compression == nil || *c.Compression == "" {
		return CompressionNone
	}
	return *c.Compression
}

// GetFlushInterval parses and returns the FlushInterval as a time.Duration.
func (c *EngineConfig) GetFlushInterval() time.Duration {
	if c.FlushInterval == nil || *c.FlushInterval == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.FlushInterval)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	return d
}

// GetChunkSize returns the chunk_size value or the default.
func (c *EngineConfig) GetChunkSize() int {
	if c.ChunkSize == nil {
		return 10000
	}
	return *c.ChunkSize
}

// GetWorkers returns the worker count, resolving 0 to GOMAXPROCS.
func (c *EngineConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// GetQConvention returns the q_convention value or the default.
func (c *EngineConfig) GetQConvention() string {
	if c.QConvention == nil || *c.QConvention == "" {
		return QConventionInelastic
	}
	return *c.QConvention
}
