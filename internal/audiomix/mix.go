// Package audiomix applies volume automation to a composition's audio track.
package audiomix

import (
	"fmt"
	"strconv"
	"strings"

	"splicer/internal/config"
	"splicer/internal/timecode"
	"splicer/internal/timeline"
)

// FullScale is the unity volume level.
const FullScale = 1.0

// Normalize sets a flat full-scale volume from time zero. A composition
// without audio is left unchanged. Loudness-based normalization happens at
// export when audio.loudnorm is enabled.
func Normalize(comp *timeline.Composition) {
	if comp == nil || !comp.HasAudio() {
		return
	}
	for i, p := range comp.AudioMix.Points {
		if p.At.IsZero() {
			comp.AudioMix.Points[i].Level = FullScale
			return
		}
	}
	comp.AudioMix.Points = append([]timeline.VolumePoint{{At: timecode.Zero, Level: FullScale}}, comp.AudioMix.Points...)
}

// Ramp adds a linear volume ramp from one level to another over rng.
func Ramp(comp *timeline.Composition, rng timecode.Range, from, to float64) error {
	if comp == nil || !comp.HasAudio() {
		return nil
	}
	if rng.Duration.IsNegative() {
		return fmt.Errorf("%w: volume ramp %s", timecode.ErrInvalidTimeRange, rng)
	}
	if from < 0 || to < 0 {
		return fmt.Errorf("volume ramp %s: negative level", rng)
	}
	clipped, ok := rng.Intersect(comp.Range())
	if !ok {
		return nil
	}
	comp.AudioMix.Ramps = append(comp.AudioMix.Ramps, timeline.Ramp{From: from, To: to, Range: clipped})
	return nil
}

// DuckTransitions lowers the volume to level across every transition window:
// down over the first half and back up over the second.
func DuckTransitions(comp *timeline.Composition, level float64) error {
	if comp == nil || !comp.HasAudio() {
		return nil
	}
	if level < 0 || level > FullScale {
		return fmt.Errorf("duck level %s out of range [0, 1]", strconv.FormatFloat(level, 'f', -1, 64))
	}
	for _, tr := range comp.Transitions {
		half := tr.Range.Duration.Mul(1, 2)
		down := timecode.Range{Start: tr.Range.Start, Duration: half}
		up := timecode.Range{Start: down.End(), Duration: tr.Range.Duration.Sub(half)}
		if err := Ramp(comp, down, FullScale, level); err != nil {
			return err
		}
		if err := Ramp(comp, up, level, FullScale); err != nil {
			return err
		}
	}
	return nil
}

// LoudnormFilter returns the ffmpeg loudnorm filter for cfg, or "" when
// loudness normalization is disabled.
func LoudnormFilter(cfg config.LoudnormConfig) string {
	if !cfg.EnabledValue() {
		return ""
	}
	params := []string{
		"I=" + formatFloat(cfg.IntegratedLUFSValue()),
		"TP=" + formatFloat(cfg.TruePeakValue()),
		"LRA=" + formatFloat(cfg.LRAValue()),
	}
	return "loudnorm=" + strings.Join(params, ":")
}

// VolumeExpression builds an ffmpeg volume expression in t (seconds) for the
// mix. Ramps take precedence over points inside their range. It returns ""
// for an empty mix.
func VolumeExpression(mix timeline.AudioMix) string {
	if mix.Empty() {
		return ""
	}
	expr := formatFloat(FullScale)
	for _, p := range mix.Points {
		expr = fmt.Sprintf("if(gte(t,%s),%s,%s)", seconds(p.At), formatFloat(p.Level), expr)
	}
	for _, r := range mix.Ramps {
		if r.Range.IsEmpty() {
			continue
		}
		start := seconds(r.Range.Start)
		end := seconds(r.Range.End())
		level := formatFloat(r.From)
		if !r.Flat() {
			level = fmt.Sprintf("%s+(%s)*(t-%s)/%s",
				formatFloat(r.From), formatFloat(r.To-r.From), start, seconds(r.Range.Duration))
		}
		expr = fmt.Sprintf("if(between(t,%s,%s),%s,%s)", start, end, level, expr)
	}
	return expr
}

func seconds(t timecode.Time) string {
	return t.Decimal(6)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
