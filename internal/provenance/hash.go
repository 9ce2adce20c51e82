package provenance

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"splicer/internal/config"
)

// renderConfigInput is the canonical structure hashed for config changes
// that alter rendered output.
type renderConfigInput struct {
	Video  config.VideoConfig   `json:"video"`
	Audio  config.AudioConfig   `json:"audio"`
	Preset config.PresetConfig  `json:"preset"`
	Over   config.OverlayConfig `json:"overlay"`
}

// ConfigHash returns a deterministic hash of the output-relevant config for
// the named preset.
func ConfigHash(cfg config.Config, preset string) string {
	p, _ := cfg.Preset(preset)
	return HashJSON(renderConfigInput{
		Video:  cfg.Video,
		Audio:  cfg.Audio,
		Preset: p,
		Over:   cfg.Overlay,
	})
}

// HashJSON returns "sha256:<hex>" of v's JSON encoding. Map keys are encoded
// in sorted order, so equal values hash equally.
func HashJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("sha256:error-%v", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("sha256:%x", sum)
}
