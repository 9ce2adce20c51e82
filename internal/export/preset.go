package export

import (
	"strings"

	"splicer/internal/config"
)

// Built-in preset names.
const (
	PresetHighest  = "highest"
	PresetBalanced = "balanced"
	PresetLow      = "low"
)

// Preset is a resolved quality profile.
type Preset struct {
	Name             string
	VideoCodec       string
	CRF              int
	Speed            string
	MaxHeight        int
	VideoBitrate     string
	AudioBitrateKbps int
}

// ResolvePreset looks up name in cfg. An empty name selects the configured
// default.
func ResolvePreset(cfg config.Config, name string) (Preset, error) {
	pc, ok := cfg.Preset(name)
	if !ok {
		return Preset{}, &SessionError{
			Preset: name,
			Reason: "unknown preset (available: " + strings.Join(cfg.PresetNames(), ", ") + ")",
		}
	}
	if strings.TrimSpace(name) == "" {
		name = cfg.Export.DefaultPreset
	}
	p := Preset{
		Name:             strings.ToLower(strings.TrimSpace(name)),
		VideoCodec:       pc.VideoCodec,
		CRF:              pc.CRF,
		Speed:            pc.Speed,
		MaxHeight:        pc.MaxHeight,
		VideoBitrate:     pc.VideoBitrate,
		AudioBitrateKbps: pc.AudioBitrateKbps,
	}
	if p.VideoCodec == "" {
		p.VideoCodec = "libx264"
	}
	if p.AudioBitrateKbps <= 0 {
		p.AudioBitrateKbps = cfg.Audio.BitrateKbps
	}
	return p, nil
}

// canvas scales width x height down to the preset's MaxHeight, keeping the
// aspect ratio and even dimensions.
func (p Preset) canvas(width, height int) (int, int) {
	if p.MaxHeight <= 0 || height <= p.MaxHeight {
		return width, height
	}
	w := width * p.MaxHeight / height
	return even(w), even(p.MaxHeight)
}

func even(v int) int {
	if v%2 != 0 {
		v--
	}
	if v < 2 {
		v = 2
	}
	return v
}
