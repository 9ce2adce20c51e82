package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures the composition and export configuration for a project.
type Config struct {
	Version   int             `yaml:"version"`
	Video     VideoConfig     `yaml:"video"`
	Audio     AudioConfig     `yaml:"audio"`
	Timeline  TimelineConfig  `yaml:"timeline"`
	Keyframes KeyframeConfig  `yaml:"keyframes"`
	Overlay   OverlayConfig   `yaml:"overlay"`
	Export    ExportConfig    `yaml:"export"`
	Tools     ToolsConfig     `yaml:"tools"`
	Log       LogConfig       `yaml:"log"`
}

// VideoConfig is the output canvas. Sources are letterboxed into it.
type VideoConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// AudioConfig describes audio encoding parameters.
type AudioConfig struct {
	ACodec      string         `yaml:"acodec"`
	BitrateKbps int            `yaml:"bitrate_kbps"`
	SampleRate  int            `yaml:"sample_rate"`
	Channels    int            `yaml:"channels"`
	Loudnorm    LoudnormConfig `yaml:"loudnorm"`
}

// LoudnormConfig enables EBU R128 normalization at export. Off by default:
// audiomix.Normalize only applies a flat gain.
type LoudnormConfig struct {
	Enabled        *bool    `yaml:"enabled,omitempty"`
	IntegratedLUFS *float64 `yaml:"integrated_lufs,omitempty"`
	TruePeak       *float64 `yaml:"true_peak_db,omitempty"`
	LRA            *float64 `yaml:"lra_db,omitempty"`
}

// EnabledValue returns the effective enabled flag.
func (l LoudnormConfig) EnabledValue() bool {
	return l.Enabled != nil && *l.Enabled
}

// IntegratedLUFSValue returns the integrated loudness target.
func (l LoudnormConfig) IntegratedLUFSValue() float64 {
	if l.IntegratedLUFS == nil {
		return -16
	}
	return *l.IntegratedLUFS
}

// TruePeakValue returns the true peak ceiling in dBTP.
func (l LoudnormConfig) TruePeakValue() float64 {
	if l.TruePeak == nil {
		return -1.5
	}
	return *l.TruePeak
}

// LRAValue returns the loudness range target.
func (l LoudnormConfig) LRAValue() float64 {
	if l.LRA == nil {
		return 11
	}
	return *l.LRA
}

// TimelineConfig holds composer defaults.
type TimelineConfig struct {
	TransitionMS int `yaml:"transition_ms"`
}

// KeyframeConfig tunes the keyframe locator.
type KeyframeConfig struct {
	FallbackIntervalMS int `yaml:"fallback_interval_ms"`
	EpsilonMS          int `yaml:"epsilon_ms"`
}

// OverlayConfig styles rendered text overlays.
type OverlayConfig struct {
	Opacity  float64 `yaml:"opacity"`
	FontSize float64 `yaml:"font_size"`
	FontFile string  `yaml:"font_file,omitempty"`

	// CaptionMinConfidence drops transcript captions below this score.
	CaptionMinConfidence float64 `yaml:"caption_min_confidence,omitempty"`
}

// ExportConfig selects output container and encoder presets.
type ExportConfig struct {
	DefaultPreset string                  `yaml:"default_preset"`
	Presets       map[string]PresetConfig `yaml:"presets,omitempty"`
}

// PresetConfig is a named bundle of encoder parameters.
type PresetConfig struct {
	VideoCodec       string `yaml:"video_codec"`
	CRF              int    `yaml:"crf"`
	Speed            string `yaml:"speed"`
	MaxHeight        int    `yaml:"max_height,omitempty"`
	VideoBitrate     string `yaml:"video_bitrate,omitempty"`
	AudioBitrateKbps int    `yaml:"audio_bitrate_kbps,omitempty"`
}

// ToolsConfig pins external executables.
type ToolsConfig struct {
	FFmpeg         string `yaml:"ffmpeg,omitempty"`
	FFprobe        string `yaml:"ffprobe,omitempty"`
	MinimumVersion string `yaml:"minimum_version,omitempty"`
}

// LogConfig controls the structured log file.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Video: VideoConfig{
			Width:  1920,
			Height: 1080,
			FPS:    30,
		},
		Audio: AudioConfig{
			ACodec:      "aac",
			BitrateKbps: 192,
			SampleRate:  48000,
			Channels:    2,
		},
		Timeline: TimelineConfig{
			TransitionMS: 500,
		},
		Keyframes: KeyframeConfig{
			FallbackIntervalMS: 500,
			EpsilonMS:          1,
		},
		Overlay: OverlayConfig{
			Opacity:  0.8,
			FontSize: 24,
		},
		Export: ExportConfig{
			DefaultPreset: "highest",
			Presets:       DefaultPresets(),
		},
		Tools: ToolsConfig{
			MinimumVersion: "4.4",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPresets returns the built-in highest/balanced/low presets.
func DefaultPresets() map[string]PresetConfig {
	return map[string]PresetConfig{
		"highest": {
			VideoCodec:       "libx264",
			CRF:              18,
			Speed:            "slow",
			AudioBitrateKbps: 256,
		},
		"balanced": {
			VideoCodec:       "libx264",
			CRF:              23,
			Speed:            "medium",
			MaxHeight:        1080,
			AudioBitrateKbps: 192,
		},
		"low": {
			VideoCodec:       "libx264",
			CRF:              28,
			Speed:            "veryfast",
			MaxHeight:        480,
			AudioBitrateKbps: 96,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	// Presets from the file replace or extend the defaults by name.
	cfg.Export.Presets = nil
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.Video.Width == 0 {
		c.Video.Width = defaults.Video.Width
	}
	if c.Video.Height == 0 {
		c.Video.Height = defaults.Video.Height
	}
	if c.Video.FPS <= 0 {
		c.Video.FPS = defaults.Video.FPS
	}
	if c.Audio.ACodec == "" {
		c.Audio.ACodec = defaults.Audio.ACodec
	}
	if c.Audio.BitrateKbps == 0 {
		c.Audio.BitrateKbps = defaults.Audio.BitrateKbps
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = defaults.Audio.SampleRate
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = defaults.Audio.Channels
	}
	if c.Timeline.TransitionMS < 0 {
		c.Timeline.TransitionMS = 0
	}
	if c.Keyframes.FallbackIntervalMS <= 0 {
		c.Keyframes.FallbackIntervalMS = defaults.Keyframes.FallbackIntervalMS
	}
	if c.Keyframes.EpsilonMS <= 0 {
		c.Keyframes.EpsilonMS = defaults.Keyframes.EpsilonMS
	}
	if c.Overlay.Opacity <= 0 || c.Overlay.Opacity > 1 {
		c.Overlay.Opacity = defaults.Overlay.Opacity
	}
	if c.Overlay.FontSize <= 0 {
		c.Overlay.FontSize = defaults.Overlay.FontSize
	}
	if c.Export.Presets == nil {
		c.Export.Presets = map[string]PresetConfig{}
	}
	for name, preset := range defaults.Export.Presets {
		if _, ok := c.Export.Presets[name]; !ok {
			c.Export.Presets[name] = preset
		}
	}
	for name, preset := range c.Export.Presets {
		if strings.TrimSpace(preset.VideoCodec) == "" {
			preset.VideoCodec = "libx264"
		}
		if preset.AudioBitrateKbps <= 0 {
			preset.AudioBitrateKbps = c.Audio.BitrateKbps
		}
		c.Export.Presets[name] = preset
	}
	if strings.TrimSpace(c.Export.DefaultPreset) == "" {
		c.Export.DefaultPreset = defaults.Export.DefaultPreset
	}
	if c.Tools.MinimumVersion == "" {
		c.Tools.MinimumVersion = defaults.Tools.MinimumVersion
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// Preset looks up a preset by case-insensitive name.
func (c Config) Preset(name string) (PresetConfig, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = strings.ToLower(c.Export.DefaultPreset)
	}
	for key, preset := range c.Export.Presets {
		if strings.ToLower(key) == name {
			return preset, true
		}
	}
	return PresetConfig{}, false
}

// PresetNames returns the configured preset names sorted.
func (c Config) PresetNames() []string {
	names := make([]string, 0, len(c.Export.Presets))
	for name := range c.Export.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}
