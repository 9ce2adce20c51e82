package media

import (
	"fmt"

	"splicer/internal/timecode"
)

// Kind distinguishes the media carried by a track.
type Kind int

const (
	KindVideo Kind = iota
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps an ffprobe codec_type to a Kind.
func ParseKind(codecType string) (Kind, bool) {
	switch codecType {
	case "video":
		return KindVideo, true
	case "audio":
		return KindAudio, true
	default:
		return 0, false
	}
}

// Track is one elementary stream of an Asset. Range is expressed on the
// asset's presentation timeline.
type Track struct {
	ID       int
	Index    int
	Kind     Kind
	Codec    string
	TimeBase timecode.Time
	Range    timecode.Range

	// Video only. FrameRate is frames per second as a rational.
	FrameRate timecode.Time
	Width     int
	Height    int

	// Audio only.
	SampleRate int
	Channels   int
}

// Duration is the track's presentation length.
func (t Track) Duration() timecode.Time { return t.Range.Duration }

// FrameDuration returns one frame interval, or zero when the rate is unknown.
func (t Track) FrameDuration() timecode.Time {
	if t.FrameRate.Sign() <= 0 {
		return timecode.Zero
	}
	return timecode.New(t.FrameRate.Scale(), t.FrameRate.Value())
}
