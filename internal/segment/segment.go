// Package segment trims assets into independent, origin-zero segments.
//
// Extraction is a metadata operation: a Segment records which stream of which
// source file covers which source range. Nothing is decoded or transcoded
// until export.
package segment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"splicer/internal/media"
	"splicer/internal/timecode"
)

var (
	// ErrInvalidSegmentRange is matched by *RangeError.
	ErrInvalidSegmentRange = errors.New("invalid segment range")
	// ErrMissingTrack is returned when an asset lacks a video or audio track.
	ErrMissingTrack = errors.New("missing track")
)

// RangeError reports a requested range that does not fit inside the asset.
type RangeError struct {
	Locator  string
	Range    timecode.Range
	Duration timecode.Time
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range %s outside %s (duration %s)", e.Range, e.Locator, e.Duration)
}

func (e *RangeError) Is(target error) bool { return target == ErrInvalidSegmentRange }

// MissingTrackError names the absent track kind.
type MissingTrackError struct {
	Locator string
	Kind    media.Kind
}

func (e *MissingTrackError) Error() string {
	return fmt.Sprintf("%s has no %s track", e.Locator, e.Kind)
}

func (e *MissingTrackError) Is(target error) bool { return target == ErrMissingTrack }

// TrackRef is a range of one source stream.
type TrackRef struct {
	SourceLocator    string
	SourceTrackIndex int
	Kind             media.Kind
	Codec            string
	TimeBase         timecode.Time
	// SourceRange is on the source asset's timeline.
	SourceRange timecode.Range

	FrameRate timecode.Time
	Width     int
	Height    int

	SampleRate int
	Channels   int
}

// Range is the ref's extent on the segment's own timeline, which starts at 0.
func (r TrackRef) Range() timecode.Range {
	return timecode.Range{Start: timecode.Zero, Duration: r.SourceRange.Duration}
}

// Segment is an independent sub-asset. It holds no reference to the Asset it
// was cut from.
type Segment struct {
	ID       string
	Duration timecode.Time
	Tracks   []TrackRef
}

// Track returns the first track ref of kind.
func (s Segment) Track(kind media.Kind) (TrackRef, bool) {
	for _, t := range s.Tracks {
		if t.Kind == kind {
			return t, true
		}
	}
	return TrackRef{}, false
}

// Video returns the segment's video ref.
func (s Segment) Video() (TrackRef, bool) { return s.Track(media.KindVideo) }

// Audio returns the segment's audio ref.
func (s Segment) Audio() (TrackRef, bool) { return s.Track(media.KindAudio) }

// Range is [0, Duration).
func (s Segment) Range() timecode.Range {
	return timecode.Range{Start: timecode.Zero, Duration: s.Duration}
}

// Extract copies rng of the asset's first video and first audio track into a
// new Segment. rng must lie within [0, asset.Duration].
func Extract(ctx context.Context, asset *media.Asset, rng timecode.Range) (Segment, error) {
	video, ok, err := asset.FirstTrack(ctx, media.KindVideo)
	if err != nil {
		return Segment{}, err
	}
	if !ok {
		return Segment{}, &MissingTrackError{Locator: asset.Locator, Kind: media.KindVideo}
	}
	audio, ok, err := asset.FirstTrack(ctx, media.KindAudio)
	if err != nil {
		return Segment{}, err
	}
	if !ok {
		return Segment{}, &MissingTrackError{Locator: asset.Locator, Kind: media.KindAudio}
	}

	if rng.Start.IsNegative() || rng.Duration.IsNegative() || asset.Duration.Less(rng.End()) {
		return Segment{}, &RangeError{Locator: asset.Locator, Range: rng, Duration: asset.Duration}
	}

	return Segment{
		ID:       uuid.NewString(),
		Duration: rng.Duration,
		Tracks: []TrackRef{
			refFor(asset.Locator, video, rng),
			refFor(asset.Locator, audio, rng),
		},
	}, nil
}

func refFor(locator string, track media.Track, rng timecode.Range) TrackRef {
	return TrackRef{
		SourceLocator:    locator,
		SourceTrackIndex: track.Index,
		Kind:             track.Kind,
		Codec:            track.Codec,
		TimeBase:         track.TimeBase,
		SourceRange:      rng,
		FrameRate:        track.FrameRate,
		Width:            track.Width,
		Height:           track.Height,
		SampleRate:       track.SampleRate,
		Channels:         track.Channels,
	}
}
