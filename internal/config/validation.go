package config

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

var knownSpeeds = map[string]bool{
	"ultrafast": true, "superfast": true, "veryfast": true, "faster": true,
	"fast": true, "medium": true, "slow": true, "slower": true, "veryslow": true,
}

var knownLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate runs all validations against the config and returns structured
// results. An empty slice means the config is usable as-is.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateCanvas()...)
	results = append(results, c.validatePresets()...)
	results = append(results, c.validateAudio()...)
	results = append(results, c.validateLog()...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validateCanvas() []ValidationResult {
	var results []ValidationResult
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("video canvas %dx%d must be positive", c.Video.Width, c.Video.Height),
		})
	} else if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("video canvas %dx%d must have even dimensions for yuv420p", c.Video.Width, c.Video.Height),
		})
	}
	if c.Video.FPS != 0 && c.Video.FPS != 30 {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: fmt.Sprintf("video fps %d differs from the composition frame cadence of 30", c.Video.FPS),
		})
	}
	return results
}

func (c Config) validatePresets() []ValidationResult {
	var results []ValidationResult
	if _, ok := c.Preset(c.Export.DefaultPreset); !ok {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("default preset %q is not defined (known presets: %s)", c.Export.DefaultPreset, strings.Join(c.PresetNames(), ", ")),
		})
	}

	names := c.PresetNames()
	sort.Strings(names)
	for _, name := range names {
		preset := c.Export.Presets[name]
		if preset.CRF < 0 || preset.CRF > 51 {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("preset %q: crf %d out of range 0-51", name, preset.CRF),
			})
		}
		if preset.Speed != "" && !knownSpeeds[preset.Speed] {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("preset %q: unknown encoder speed %q", name, preset.Speed),
			})
		}
		if preset.MaxHeight < 0 {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("preset %q: max_height must be >= 0", name),
			})
		}
		if preset.MaxHeight%2 != 0 {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("preset %q: odd max_height %d is rounded down", name, preset.MaxHeight),
			})
		}
	}
	return results
}

func (c Config) validateAudio() []ValidationResult {
	var results []ValidationResult
	if c.Audio.Channels < 1 || c.Audio.Channels > 8 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("audio channels %d out of range 1-8", c.Audio.Channels),
		})
	}
	if c.Audio.Loudnorm.EnabledValue() {
		lufs := c.Audio.Loudnorm.IntegratedLUFSValue()
		if lufs < -70 || lufs > -5 {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("loudnorm integrated_lufs %.1f out of range -70..-5", lufs),
			})
		}
		if tp := c.Audio.Loudnorm.TruePeakValue(); tp < -9 || tp > 0 {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("loudnorm true_peak_db %.1f out of range -9..0", tp),
			})
		}
	}
	return results
}

func (c Config) validateLog() []ValidationResult {
	if knownLevels[strings.ToLower(c.Log.Level)] {
		return nil
	}
	return []ValidationResult{{
		Level:   "warning",
		Message: fmt.Sprintf("log level %q not recognised, using info", c.Log.Level),
	}}
}
