package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"splicer/internal/timecode"
)

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams json.RawMessage `json:"streams"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	StartTime  string `json:"start_time"`
}

// streamHeader is the part of a stream entry needed at open time.
type streamHeader struct {
	Index       int            `json:"index"`
	CodecType   string         `json:"codec_type"`
	Disposition map[string]int `json:"disposition"`
}

type ffprobeStream struct {
	Index        int               `json:"index"`
	ID           string            `json:"id"`
	CodecName    string            `json:"codec_name"`
	CodecType    string            `json:"codec_type"`
	TimeBase     string            `json:"time_base"`
	RFrameRate   string            `json:"r_frame_rate"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	SampleRate   string            `json:"sample_rate"`
	Channels     int               `json:"channels"`
	StartPTS     *int64            `json:"start_pts"`
	StartTime    string            `json:"start_time"`
	DurationTS   *int64            `json:"duration_ts"`
	Duration     string            `json:"duration"`
	Tags         map[string]string `json:"tags"`
}

// usable reports whether a stream header counts as a media track. Cover art
// is carried as a single-frame video stream and is ignored.
func (h streamHeader) usable() (Kind, bool) {
	kind, ok := ParseKind(h.CodecType)
	if !ok {
		return 0, false
	}
	if kind == KindVideo && h.Disposition["attached_pic"] == 1 {
		return 0, false
	}
	return kind, true
}

func parseTimeBase(value string) (timecode.Time, error) {
	tb, err := timecode.ParseDecimal(value)
	if err != nil {
		return timecode.Time{}, err
	}
	if tb.Sign() <= 0 {
		return timecode.Time{}, fmt.Errorf("non-positive time base %q", value)
	}
	return tb, nil
}

// parseRate parses "30000/1001". "0/0" means unknown and yields zero.
func parseRate(value string) timecode.Time {
	value = strings.TrimSpace(value)
	if value == "" || value == "0/0" {
		return timecode.Zero
	}
	rate, err := timecode.ParseDecimal(value)
	if err != nil || rate.Sign() <= 0 {
		return timecode.Zero
	}
	return rate
}

// streamRange returns the exact presentation range of a stream, falling back
// to the container duration when the stream carries none (Matroska).
func streamRange(s ffprobeStream, tb timecode.Time, formatDuration timecode.Time) (timecode.Range, error) {
	start := timecode.Zero
	switch {
	case s.StartPTS != nil:
		start = tb.Mul(*s.StartPTS, 1)
	case s.StartTime != "" && s.StartTime != "N/A":
		parsed, err := timecode.ParseDecimal(s.StartTime)
		if err != nil {
			return timecode.Range{}, fmt.Errorf("start_time: %w", err)
		}
		start = parsed
	}

	var duration timecode.Time
	switch {
	case s.DurationTS != nil:
		duration = tb.Mul(*s.DurationTS, 1)
	case s.Duration != "" && s.Duration != "N/A":
		parsed, err := timecode.ParseDecimal(s.Duration)
		if err != nil {
			return timecode.Range{}, fmt.Errorf("duration: %w", err)
		}
		duration = parsed
	case s.Tags["DURATION"] != "":
		parsed, err := parseTagDuration(s.Tags["DURATION"])
		if err != nil {
			return timecode.Range{}, fmt.Errorf("DURATION tag: %w", err)
		}
		duration = parsed
	default:
		duration = formatDuration.Sub(start)
		if duration.IsNegative() {
			duration = timecode.Zero
		}
	}
	rng, err := timecode.NewRange(start, duration)
	if err != nil {
		return timecode.Range{}, err
	}
	return rng, nil
}

// parseTagDuration reads Matroska "00:01:02.500000000" durations, which carry
// nanosecond digits.
func parseTagDuration(value string) (timecode.Time, error) {
	return timecode.ParseClock(value)
}

func (s ffprobeStream) toTrack(formatDuration timecode.Time) (Track, error) {
	kind, ok := ParseKind(s.CodecType)
	if !ok {
		return Track{}, fmt.Errorf("unsupported codec_type %q", s.CodecType)
	}
	tb, err := parseTimeBase(s.TimeBase)
	if err != nil {
		return Track{}, fmt.Errorf("time_base: %w", err)
	}
	rng, err := streamRange(s, tb, formatDuration)
	if err != nil {
		return Track{}, err
	}

	track := Track{
		ID:       streamID(s),
		Index:    s.Index,
		Kind:     kind,
		Codec:    s.CodecName,
		TimeBase: tb,
		Range:    rng,
	}
	switch kind {
	case KindVideo:
		if s.Width <= 0 || s.Height <= 0 {
			return Track{}, errors.New("video stream without dimensions")
		}
		track.Width = s.Width
		track.Height = s.Height
		track.FrameRate = parseRate(s.AvgFrameRate)
		if track.FrameRate.IsZero() {
			track.FrameRate = parseRate(s.RFrameRate)
		}
	case KindAudio:
		if s.SampleRate != "" {
			rate, err := strconv.Atoi(s.SampleRate)
			if err != nil {
				return Track{}, fmt.Errorf("sample_rate: %w", err)
			}
			track.SampleRate = rate
		}
		track.Channels = s.Channels
	}
	return track, nil
}

// streamID returns the container track id ("0x1" in mp4/mov), or index+1 when
// the container does not expose one.
func streamID(s ffprobeStream) int {
	if s.ID != "" {
		if v, err := strconv.ParseInt(s.ID, 0, 64); err == nil {
			return int(v)
		}
	}
	return s.Index + 1
}
