package timeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"splicer/internal/logx"
	"splicer/internal/segment"
	"splicer/internal/timecode"
)

// Options configures Combine.
type Options struct {
	// Transition is the cross-fade length between consecutive segments.
	// Zero disables transitions.
	Transition timecode.Time
	// Width and Height size the output canvas.
	Width  int
	Height int
	Logger *zap.Logger
}

// DefaultOptions uses a half-second cross-fade on a 1920x1080 canvas.
func DefaultOptions() Options {
	return Options{Transition: DefaultTransition, Width: 1920, Height: 1080}
}

// Combine places segments one after another in the given order. Every
// segment after the first fades in over the transition length, starting at
// its own start time. Segments without both a video and an audio track are
// skipped with a warning. Zero-length segments are kept as empty clips that
// neither fade in nor out.
func Combine(ctx context.Context, segments []segment.Segment, opts Options) (*Composition, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyTimeline
	}
	if opts.Transition.IsNegative() {
		return nil, fmt.Errorf("%w: transition %s is negative", timecode.ErrInvalidTimeRange, opts.Transition)
	}
	logger := logx.OrNop(opts.Logger)

	comp := &Composition{
		ID:            uuid.NewString(),
		FrameDuration: FrameDuration,
		Width:         opts.Width,
		Height:        opts.Height,
	}
	if comp.Width <= 0 || comp.Height <= 0 {
		comp.Width, comp.Height = 1920, 1080
	}

	cursor := timecode.Zero
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		video, hasVideo := seg.Video()
		audio, hasAudio := seg.Audio()
		if !hasVideo || !hasAudio {
			comp.warn(logger, "segment skipped: missing video or audio track", i, seg)
			continue
		}

		clip := Clip{
			SegmentID: seg.ID,
			Start:     cursor,
			Duration:  seg.Duration,
			Hold:      timecode.Zero,
			Video:     video,
			Audio:     audio,
		}
		index := len(comp.Clips)

		var window timecode.Time
		if index > 0 && opts.Transition.Sign() > 0 && seg.Duration.Sign() > 0 && comp.Clips[index-1].Duration.Sign() > 0 {
			window = opts.Transition
			if seg.Duration.Less(window) {
				window = seg.Duration
				comp.warn(logger, fmt.Sprintf("transition clamped to %s: segment shorter than %s", window, opts.Transition), i, seg)
			}
			// The outgoing clip freezes on its last frame while this one fades in.
			comp.Clips[index-1].Hold = window
		}

		clip.Lane = comp.freeLane(cursor)
		comp.Clips = append(comp.Clips, clip)
		comp.placeOnLane(index)
		if comp.Audio == nil {
			comp.Audio = &AudioTrack{}
		}
		comp.Audio.Placements = append(comp.Audio.Placements, AudioPlacement{Clip: index, Range: clip.Range()})

		if window.Sign() > 0 {
			comp.Transitions = append(comp.Transitions, Transition{
				Range:    timecode.Range{Start: cursor, Duration: window},
				Outgoing: index - 1,
				Incoming: index,
			})
		}
		cursor = cursor.Add(seg.Duration)
	}

	if len(comp.Clips) == 0 {
		return nil, fmt.Errorf("%w: all %d segments were skipped", ErrEmptyTimeline, len(segments))
	}

	logger.Debug("combined segments",
		zap.String("composition", comp.ID),
		zap.Int("clips", len(comp.Clips)),
		zap.Int("lanes", len(comp.Lanes)),
		zap.Int("transitions", len(comp.Transitions)),
		zap.Stringer("duration", comp.Duration()),
	)
	return comp, nil
}

// freeLane returns the lowest lane whose last clip, hold included, has ended
// by at, allocating a new lane when all are busy.
func (c *Composition) freeLane(at timecode.Time) int {
	for _, lane := range c.Lanes {
		if len(lane.Clips) == 0 {
			return lane.Index
		}
		last := c.Clips[lane.Clips[len(lane.Clips)-1]]
		// The previous clip's Hold may have been extended after it was
		// placed, so compare against its current lane range.
		if last.LaneRange().End().LessEq(at) {
			return lane.Index
		}
	}
	return len(c.Lanes)
}

func (c *Composition) placeOnLane(clip int) {
	lane := c.Clips[clip].Lane
	for len(c.Lanes) <= lane {
		c.Lanes = append(c.Lanes, Lane{Index: len(c.Lanes)})
	}
	c.Lanes[lane].Clips = append(c.Lanes[lane].Clips, clip)
}

func (c *Composition) warn(logger *zap.Logger, msg string, index int, seg segment.Segment) {
	c.Warnings = append(c.Warnings, fmt.Sprintf("segment %d (%s): %s", index, seg.ID, msg))
	logger.Warn(msg,
		zap.Int("segment_index", index),
		zap.String("segment", seg.ID),
		zap.Stringer("duration", seg.Duration),
	)
}
