package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Audio        AudioConfig        `yaml:"audio"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Window       WindowConfig       `yaml:"window"`
	Stream       StreamConfig       `yaml:"stream"`
	Recognition  RecognitionConfig  `yaml:"recognition"`
	Debug        DebugConfig        `yaml:"debug"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           int    `yaml:"port"`
	Address        string `yaml:"address"`
	MaxUploadMB    int    `yaml:"max_upload_mb"`
	SessionTimeout int    `yaml:"session_timeout"` // seconds
}

// AudioConfig contains the expected PCM format of incoming audio
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// SegmentationConfig contains silence-based segmentation parameters
type SegmentationConfig struct {
	MinSilenceMs       int     `yaml:"min_silence_ms"`
	SilenceThresholdDB float64 `yaml:"silence_threshold_db"`
	KeepSilenceMs      int     `yaml:"keep_silence_ms"`
	MinSegmentMs       int     `yaml:"min_segment_ms"`
}

// WindowConfig contains fixed-window chunking parameters
type WindowConfig struct {
	ChunkDurationMs int `yaml:"chunk_duration_ms"`
	OverlapMs       int `yaml:"overlap_ms"`
}

// StreamConfig contains live streaming buffer parameters
type StreamConfig struct {
	MinProcessMs       int `yaml:"min_process_ms"`
	ContextRetentionMs int `yaml:"context_retention_ms"`
}

// RecognitionConfig contains recognition API configuration
type RecognitionConfig struct {
	Endpoint        string `yaml:"endpoint"`
	APIKey          string `yaml:"api_key"`
	Timeout         int    `yaml:"timeout"` // seconds
	MaxConcurrent   int    `yaml:"max_concurrent"`
	DefaultLanguage string `yaml:"default_language"`
}

// DebugConfig contains debugging options
type DebugConfig struct {
	DumpDir string `yaml:"dump_dir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration. Load applies the file on
// top of it, so omitted keys keep these values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			Address:        "0.0.0.0",
			MaxUploadMB:    64,
			SessionTimeout: 60,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			BitDepth:   16,
		},
		Segmentation: SegmentationConfig{
			MinSilenceMs:       1000,
			SilenceThresholdDB: -40,
			KeepSilenceMs:      500,
			MinSegmentMs:       500,
		},
		Window: WindowConfig{
			ChunkDurationMs: 30000,
			OverlapMs:       2000,
		},
		Stream: StreamConfig{
			MinProcessMs:       5000,
			ContextRetentionMs: 2500,
		},
		Recognition: RecognitionConfig{
			Endpoint:        "http://localhost:9000/recognize",
			Timeout:         30,
			MaxConcurrent:   10,
			DefaultLanguage: "de-DE",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file over the defaults
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
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Segmentation.Validate(); err != nil {
		return fmt.Errorf("segmentation config: %w", err)
	}

	if err := c.Window.Validate(); err != nil {
		return fmt.Errorf("window config: %w", err)
	}

	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream config: %w", err)
	}

	if err := c.Recognition.Validate(); err != nil {
		return fmt.Errorf("recognition config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if s.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be at least 1, got %d", s.MaxUploadMB)
	}

	if s.SessionTimeout < 1 {
		return fmt.Errorf("session_timeout must be at least 1 second, got %d", s.SessionTimeout)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 {
		return fmt.Errorf("sample_rate must be at least 8000 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	return nil
}

// Validate validates segmentation configuration
func (s *SegmentationConfig) Validate() error {
	if s.MinSilenceMs < 1 {
		return fmt.Errorf("min_silence_ms must be at least 1, got %d", s.MinSilenceMs)
	}

	if s.SilenceThresholdDB >= 0 {
		return fmt.Errorf("silence_threshold_db must be negative, got %f", s.SilenceThresholdDB)
	}

	if s.KeepSilenceMs < 0 {
		return fmt.Errorf("keep_silence_ms cannot be negative, got %d", s.KeepSilenceMs)
	}

	if s.MinSegmentMs < 0 {
		return fmt.Errorf("min_segment_ms cannot be negative, got %d", s.MinSegmentMs)
	}

	return nil
}

// Validate validates window configuration
func (w *WindowConfig) Validate() error {
	if w.ChunkDurationMs < 1 {
		return fmt.Errorf("chunk_duration_ms must be positive, got %d", w.ChunkDurationMs)
	}

	if w.OverlapMs < 0 {
		return fmt.Errorf("overlap_ms cannot be negative, got %d", w.OverlapMs)
	}

	if w.OverlapMs >= w.ChunkDurationMs {
		return fmt.Errorf("overlap_ms (%d) must be less than chunk_duration_ms (%d)",
			w.OverlapMs, w.ChunkDurationMs)
	}

	return nil
}

// Validate validates stream configuration
func (s *StreamConfig) Validate() error {
	if s.MinProcessMs < 1 {
		return fmt.Errorf("min_process_ms must be positive, got %d", s.MinProcessMs)
	}

	if s.ContextRetentionMs < 0 {
		return fmt.Errorf("context_retention_ms cannot be negative, got %d", s.ContextRetentionMs)
	}

	if s.ContextRetentionMs >= s.MinProcessMs {
		return fmt.Errorf("context_retention_ms (%d) must be less than min_process_ms (%d)",
			s.ContextRetentionMs, s.MinProcessMs)
	}

	return nil
}

// Validate validates recognition configuration
func (r *RecognitionConfig) Validate() error {
	if r.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if r.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", r.Timeout)
	}

	if r.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", r.MaxConcurrent)
	}

	if r.DefaultLanguage == "" {
		return fmt.Errorf("default_language cannot be empty")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetSessionTimeout returns the session timeout as a time.Duration
func (s *ServerConfig) GetSessionTimeout() time.Duration {
	return time.Duration(s.SessionTimeout) * time.Second
}

// GetMinSilence returns the minimum silence duration as a time.Duration
func (s *SegmentationConfig) GetMinSilence() time.Duration {
	return time.Duration(s.MinSilenceMs) * time.Millisecond
}

// GetKeepSilence returns the kept silence padding as a time.Duration
func (s *SegmentationConfig) GetKeepSilence() time.Duration {
	return time.Duration(s.KeepSilenceMs) * time.Millisecond
}

// GetMinSegment returns the minimum segment duration as a time.Duration
func (s *SegmentationConfig) GetMinSegment() time.Duration {
	return time.Duration(s.MinSegmentMs) * time.Millisecond
}

// GetChunkDuration returns the window duration as a time.Duration
func (w *WindowConfig) GetChunkDuration() time.Duration {
	return time.Duration(w.ChunkDurationMs) * time.Millisecond
}

// GetOverlap returns the window overlap as a time.Duration
func (w *WindowConfig) GetOverlap() time.Duration {
	return time.Duration(w.OverlapMs) * time.Millisecond
}

// GetMinProcess returns the stream emission threshold as a time.Duration
func (s *StreamConfig) GetMinProcess() time.Duration {
	return time.Duration(s.MinProcessMs) * time.Millisecond
}

// GetContextRetention returns the retained context window as a time.Duration
func (s *StreamConfig) GetContextRetention() time.Duration {
	return time.Duration(s.ContextRetentionMs) * time.Millisecond
}

// GetTimeout returns the recognition timeout as a time.Duration
func (r *RecognitionConfig) GetTimeout() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}
