// Package timeline assembles segments into a Composition.
//
// Clips are placed back to back on a cursor. Video is spread over an arena of
// lanes so that during a cross-fade the outgoing and incoming clips sit on
// different lanes; the outgoing clip holds its last frame for the length of
// the fade. Transitions therefore never shorten the timeline: a Composition
// lasts exactly the sum of its clip durations.
package timeline

import (
	"errors"
	"fmt"
	"image"

	"splicer/internal/media"
	"splicer/internal/segment"
	"splicer/internal/timecode"
)

var (
	// ErrEmptyTimeline is returned when no usable segment was supplied.
	ErrEmptyTimeline = errors.New("empty timeline")

	// FrameDuration is the composition frame cadence, 30 frames per second.
	FrameDuration = timecode.New(1, 30)

	// DefaultTransition is the cross-fade length used by DefaultOptions.
	DefaultTransition = timecode.New(1, 2)
)

// Ramp linearly interpolates a parameter from From to To over Range.
type Ramp struct {
	From  float64
	To    float64
	Range timecode.Range
}

// At evaluates the ramp at t, clamping outside Range.
func (r Ramp) At(t timecode.Time) float64 {
	if r.Range.Duration.Sign() <= 0 || !r.Range.Start.Less(t) {
		return r.From
	}
	if !t.Less(r.Range.End()) {
		return r.To
	}
	frac := t.Sub(r.Range.Start).Seconds() / r.Range.Duration.Seconds()
	return r.From + (r.To-r.From)*frac
}

// Flat reports a constant ramp.
func (r Ramp) Flat() bool { return r.From == r.To }

// Clip places one segment on the composition timeline.
type Clip struct {
	SegmentID string
	Lane      int
	Start     timecode.Time
	Duration  timecode.Time
	// Hold extends the clip on its lane by freezing the last frame. It is
	// set to the length of the fade into the next clip.
	Hold  timecode.Time
	Video segment.TrackRef
	Audio segment.TrackRef
}

// Range is the clip's own content on the composition timeline.
func (c Clip) Range() timecode.Range {
	return timecode.Range{Start: c.Start, Duration: c.Duration}
}

// LaneRange is the span the clip occupies on its lane, including Hold.
func (c Clip) LaneRange() timecode.Range {
	return timecode.Range{Start: c.Start, Duration: c.Duration.Add(c.Hold)}
}

// Lane is one composition video track. Clips holds indices into
// Composition.Clips in time order.
type Lane struct {
	Index int
	Clips []int
}

// AudioPlacement positions a clip's audio on the single audio track.
type AudioPlacement struct {
	Clip  int
	Range timecode.Range
}

// AudioTrack is the composition's audio track.
type AudioTrack struct {
	Placements []AudioPlacement
}

// VolumePoint sets a flat volume from At onward.
type VolumePoint struct {
	At    timecode.Time
	Level float64
}

// AudioMix holds volume automation for the audio track.
type AudioMix struct {
	Points []VolumePoint
	Ramps  []Ramp
}

// Empty reports whether no automation has been applied.
func (m AudioMix) Empty() bool { return len(m.Points) == 0 && len(m.Ramps) == 0 }

// Transition is a cross-fade between two consecutive clips.
type Transition struct {
	Range    timecode.Range
	Outgoing int
	Incoming int
}

// Overlay is a still image composited above all lanes over Range.
type Overlay struct {
	ID      string
	Label   string
	Image   image.Image
	Range   timecode.Range
	Opacity float64
}

// Tone is a channel-mixing look applied after the other grade adjustments.
type Tone string

const (
	ToneNone  Tone = ""
	ToneSepia Tone = "sepia"
	ToneMono  Tone = "mono"
)

// Grade is a color adjustment over the whole composed picture. Brightness
// and Hue are neutral at zero; Contrast, Saturation and Gamma at one.
type Grade struct {
	Brightness float64
	Contrast   float64
	Saturation float64
	Gamma      float64
	// Hue rotates the color wheel, in degrees.
	Hue  float64
	Tone Tone
}

// NeutralGrade leaves every pixel unchanged.
func NeutralGrade() Grade {
	return Grade{Contrast: 1, Saturation: 1, Gamma: 1}
}

// Neutral reports whether g leaves every pixel unchanged.
func (g Grade) Neutral() bool {
	return g == NeutralGrade()
}

// Composition is an editable timeline. It owns its clips and automation but
// not the source files its clips refer to.
type Composition struct {
	ID          string
	Lanes       []Lane
	Audio       *AudioTrack
	Clips       []Clip
	Transitions []Transition
	Overlays    []Overlay
	AudioMix    AudioMix
	// Grade, when set, colors the whole picture from zero to Duration.
	Grade         *Grade
	FrameDuration timecode.Time
	Width         int
	Height        int
	Warnings      []string
}

// Duration is the end of the last clip.
func (c *Composition) Duration() timecode.Time {
	if len(c.Clips) == 0 {
		return timecode.Zero
	}
	last := c.Clips[len(c.Clips)-1]
	return last.Range().End()
}

// Range is [0, Duration).
func (c *Composition) Range() timecode.Range {
	return timecode.Range{Start: timecode.Zero, Duration: c.Duration()}
}

// HasVideo reports whether at least one video lane exists.
func (c *Composition) HasVideo() bool { return len(c.Lanes) > 0 }

// HasAudio reports whether the composition carries an audio track.
func (c *Composition) HasAudio() bool { return c.Audio != nil }

// SourceLocators lists distinct source files in first-use order.
func (c *Composition) SourceLocators() []string {
	seen := map[string]bool{}
	var out []string
	for _, clip := range c.Clips {
		for _, ref := range []segment.TrackRef{clip.Video, clip.Audio} {
			if ref.SourceLocator == "" || seen[ref.SourceLocator] {
				continue
			}
			seen[ref.SourceLocator] = true
			out = append(out, ref.SourceLocator)
		}
	}
	return out
}

// Check verifies structural invariants: clips are contiguous from zero,
// clips sharing a lane never overlap, and every transition window lies inside
// its incoming clip.
func (c *Composition) Check() error {
	cursor := timecode.Zero
	for i, clip := range c.Clips {
		if !clip.Start.Equal(cursor) {
			return fmt.Errorf("clip %d starts at %s, want %s", i, clip.Start, cursor)
		}
		if clip.Video.Kind != media.KindVideo || clip.Audio.Kind != media.KindAudio {
			return fmt.Errorf("clip %d lacks paired tracks", i)
		}
		cursor = cursor.Add(clip.Duration)
	}
	for _, lane := range c.Lanes {
		for j := 1; j < len(lane.Clips); j++ {
			prev := c.Clips[lane.Clips[j-1]].LaneRange()
			cur := c.Clips[lane.Clips[j]].LaneRange()
			if prev.Overlaps(cur) {
				return fmt.Errorf("lane %d: clips %d and %d overlap", lane.Index, lane.Clips[j-1], lane.Clips[j])
			}
		}
	}
	for i, tr := range c.Transitions {
		in := c.Clips[tr.Incoming]
		if !tr.Range.Start.Equal(in.Start) || in.Duration.Less(tr.Range.Duration) {
			return fmt.Errorf("transition %d %s outside incoming clip %s", i, tr.Range, in.Range())
		}
		if c.Clips[tr.Outgoing].Lane == in.Lane {
			return fmt.Errorf("transition %d shares lane %d", i, in.Lane)
		}
	}
	return nil
}
