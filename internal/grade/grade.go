// Package grade applies a whole-picture color adjustment to a composition
// and renders it as ffmpeg eq, hue and colorchannelmixer filters.
package grade

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"splicer/internal/timeline"
)

// ErrNoVideo is returned when grading a composition without video lanes.
var ErrNoVideo = errors.New("composition has no video to grade")

// Parameter bounds accepted by ffmpeg's eq filter.
const (
	MinBrightness, MaxBrightness = -1.0, 1.0
	MinContrast, MaxContrast     = -1000.0, 1000.0
	MinSaturation, MaxSaturation = 0.0, 3.0
	MinGamma, MaxGamma           = 0.1, 10.0
)

// Channel mixes for the tones, rows r, g, b without alpha.
var toneMixes = map[timeline.Tone]string{
	timeline.ToneSepia: "rr=.393:rg=.769:rb=.189:gr=.349:gg=.686:gb=.168:br=.272:bg=.534:bb=.131",
	timeline.ToneMono:  "rr=.3:rg=.4:rb=.3:gr=.3:gg=.4:gb=.3:br=.3:bg=.4:bb=.3",
}

// ParseTone maps a plan value to a Tone.
func ParseTone(value string) (timeline.Tone, error) {
	switch tone := timeline.Tone(strings.ToLower(strings.TrimSpace(value))); tone {
	case timeline.ToneNone, timeline.ToneSepia, timeline.ToneMono:
		return tone, nil
	}
	return timeline.ToneNone, fmt.Errorf("unknown tone %q (want sepia or mono)", value)
}

// Validate checks every parameter against the filter bounds.
func Validate(g timeline.Grade) error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"brightness", g.Brightness, MinBrightness, MaxBrightness},
		{"contrast", g.Contrast, MinContrast, MaxContrast},
		{"saturation", g.Saturation, MinSaturation, MaxSaturation},
		{"gamma", g.Gamma, MinGamma, MaxGamma},
	}
	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%s %s out of range [%s, %s]", c.name, formatFloat(c.value), formatFloat(c.min), formatFloat(c.max))
		}
	}
	if _, ok := toneMixes[g.Tone]; !ok && g.Tone != timeline.ToneNone {
		return fmt.Errorf("unknown tone %q", g.Tone)
	}
	return nil
}

// Apply sets comp's grade. A neutral grade clears it.
func Apply(comp *timeline.Composition, g timeline.Grade) error {
	if comp == nil || !comp.HasVideo() {
		return ErrNoVideo
	}
	if err := Validate(g); err != nil {
		return err
	}
	if g.Neutral() {
		comp.Grade = nil
		return nil
	}
	comp.Grade = &g
	return nil
}

// Chain returns the comma-joined ffmpeg filters for g, or "" when g is
// neutral. Only parameters that differ from neutral are emitted.
func Chain(g timeline.Grade) string {
	neutral := timeline.NeutralGrade()
	var eq []string
	if g.Brightness != neutral.Brightness {
		eq = append(eq, "brightness="+formatFloat(g.Brightness))
	}
	if g.Contrast != neutral.Contrast {
		eq = append(eq, "contrast="+formatFloat(g.Contrast))
	}
	if g.Saturation != neutral.Saturation {
		eq = append(eq, "saturation="+formatFloat(g.Saturation))
	}
	if g.Gamma != neutral.Gamma {
		eq = append(eq, "gamma="+formatFloat(g.Gamma))
	}

	var filters []string
	if len(eq) > 0 {
		filters = append(filters, "eq="+strings.Join(eq, ":"))
	}
	if g.Hue != neutral.Hue {
		filters = append(filters, "hue=h="+formatFloat(g.Hue))
	}
	if mix, ok := toneMixes[g.Tone]; ok {
		filters = append(filters, "colorchannelmixer="+mix)
	}
	return strings.Join(filters, ",")
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
