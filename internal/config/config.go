package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pipeline configuration
type Config struct {
	Pool     PoolConfig     `yaml:"pool"`
	Audio    AudioConfig    `yaml:"audio"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Filter   FilterConfig   `yaml:"filter"`
	Merge    MergeConfig    `yaml:"merge"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PoolConfig contains worker pool configuration
type PoolConfig struct {
	Workers int `yaml:"workers"`
}

// AudioConfig contains audio format parameters
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// ChunkingConfig contains chunk splitting parameters
type ChunkingConfig struct {
	ChunkDuration float64 `yaml:"chunk_duration"` // seconds
	WorkDir       string  `yaml:"work_dir"`       // empty uses the system temp dir
}

// FilterConfig contains noise filter configuration
type FilterConfig struct {
	ModelPath   string  `yaml:"model_path"`
	Attenuation float32 `yaml:"attenuation"`
	WindowSize  int     `yaml:"window_size"` // samples
}

// MergeConfig contains merge step configuration
type MergeConfig struct {
	FFmpegBinary string `yaml:"ffmpeg_binary"`
	Policy       string `yaml:"policy"`  // "require-all" or "best-effort"
	Timeout      int    `yaml:"timeout"` // seconds
}

// Merge policies
const (
	MergeRequireAll = "require-all"
	MergeBestEffort = "best-effort"
)

// HTTPConfig contains the status/metrics HTTP server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns a configuration with sensible defaults for all sections
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Workers: runtime.NumCPU(),
		},
		Audio: AudioConfig{
			SampleRate: 48000,
			Channels:   1,
			BitDepth:   16,
		},
		Chunking: ChunkingConfig{
			ChunkDuration: 60.0,
		},
		Filter: FilterConfig{
			Attenuation: 0.1,
			WindowSize:  480, // 10ms at 48kHz
		},
		Merge: MergeConfig{
			FFmpegBinary: "ffmpeg",
			Policy:       MergeRequireAll,
			Timeout:      300,
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Pool.Validate(); err != nil {
		return fmt.Errorf("pool config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking config: %w", err)
	}

	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("filter config: %w", err)
	}

	if err := c.Merge.Validate(); err != nil {
		return fmt.Errorf("merge config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate checks pool configuration
func (p *PoolConfig) Validate() error {
	if p.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", p.Workers)
	}

	return nil
}

// Validate checks audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	return nil
}

// Validate checks chunking configuration
func (c *ChunkingConfig) Validate() error {
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("chunk_duration must be positive, got %f", c.ChunkDuration)
	}

	return nil
}

// Validate checks filter configuration
func (f *FilterConfig) Validate() error {
	if f.Attenuation < 0 || f.Attenuation > 1 {
		return fmt.Errorf("attenuation must be between 0 and 1, got %f", f.Attenuation)
	}

	if f.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", f.WindowSize)
	}

	return nil
}

// Validate checks merge configuration
func (m *MergeConfig) Validate() error {
	if m.Policy != MergeRequireAll && m.Policy != MergeBestEffort {
		return fmt.Errorf("policy must be %q or %q, got %q", MergeRequireAll, MergeBestEffort, m.Policy)
	}

	if m.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", m.Timeout)
	}

	return nil
}

// Validate checks HTTP configuration
func (h *HTTPConfig) Validate() error {
	if !h.Enabled {
		return nil
	}

	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	return nil
}

// Validate checks logging configuration
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error; got %q", l.Level)
	}

	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", l.Format)
	}

	return nil
}

// GetChunkDuration returns the chunk duration as a time.Duration
func (c *ChunkingConfig) GetChunkDuration() time.Duration {
	return time.Duration(c.ChunkDuration * float64(time.Second))
}

// GetTimeoutDuration returns the merge timeout as a time.Duration
func (m *MergeConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(m.Timeout) * time.Second
}
