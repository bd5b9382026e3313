// Package config loads plyexport settings from defaults, a YAML or TOML
// file, and command-line flags, in increasing priority.
package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-ply/internal/logger"
	"github.com/Faultbox/midgard-ply/internal/rsmscene"
	"github.com/Faultbox/midgard-ply/pkg/ply"
)

// Config holds all settings.
type Config struct {
	Export  ExportConfig  `yaml:"export" toml:"export"`
	Data    DataConfig    `yaml:"data" toml:"data"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// ExportConfig controls what is written and how models are posed.
type ExportConfig struct {
	Output        string   `yaml:"output" toml:"output"` // "-" is stdout
	Binary        bool     `yaml:"binary" toml:"binary"`
	LittleEndian  bool     `yaml:"little_endian" toml:"little_endian"`
	Exclude       []string `yaml:"exclude" toml:"exclude"` // normal, uv, color, index
	AnimTimeMs    float32  `yaml:"anim_time_ms" toml:"anim_time_ms"`
	FlipY         bool     `yaml:"flip_y" toml:"flip_y"`
	ForceTwoSided bool     `yaml:"two_sided" toml:"two_sided"`
	Ground        bool     `yaml:"ground" toml:"ground"` // include world ground meshes
	Watch         bool     `yaml:"watch" toml:"watch"`
	DebounceMs    int      `yaml:"debounce_ms" toml:"debounce_ms"`
}

// DataConfig holds where model files are read from.
type DataConfig struct {
	GRFPaths  []string `yaml:"grf_paths" toml:"grf_paths"`   // searched after ModelDirs
	ModelDirs []string `yaml:"model_dirs" toml:"model_dirs"` // data roots on disk
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	LogFile    string `yaml:"log_file" toml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			FlipY:      true,
			DebounceMs: 200,
		},
		Data: DataConfig{
			ModelDirs: []string{"."},
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// Validate checks values that the flag and file decoders cannot.
func (c *Config) Validate() error {
	if _, err := ply.ParseProperties(c.Export.Exclude); err != nil {
		return fmt.Errorf("export.exclude: %w", err)
	}
	if c.Export.DebounceMs < 0 {
		return fmt.Errorf("export.debounce_ms: must not be negative, got %d", c.Export.DebounceMs)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}

// ExportOptions converts the export section to exporter options.
func (c *Config) ExportOptions(log *zap.Logger) (ply.Options, error) {
	exclude, err := ply.ParseProperties(c.Export.Exclude)
	if err != nil {
		return ply.Options{}, err
	}
	return ply.Options{
		Binary:       c.Export.Binary,
		LittleEndian: c.Export.LittleEndian,
		Exclude:      exclude,
		Logger:       log,
	}, nil
}

// BuildOptions converts the export section to model build options.
func (c *Config) BuildOptions(log *zap.Logger) rsmscene.BuildOptions {
	return rsmscene.BuildOptions{
		AnimTimeMs:    c.Export.AnimTimeMs,
		FlipY:         c.Export.FlipY,
		ForceTwoSided: c.Export.ForceTwoSided,
		Ground:        c.Export.Ground,
		Logger:        log,
	}
}

// LogFileConfig converts the logging section to rotated file settings.
func (c *Config) LogFileConfig() logger.FileConfig {
	if c.Logging.LogFile == "" {
		return logger.FileConfig{}
	}
	fc := logger.DefaultFileConfig(c.Logging.LogFile)
	if c.Logging.MaxSizeMB > 0 {
		fc.MaxSizeMB = c.Logging.MaxSizeMB
	}
	if c.Logging.MaxBackups > 0 {
		fc.MaxBackups = c.Logging.MaxBackups
	}
	return fc
}
