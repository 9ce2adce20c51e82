package timeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"splicer/internal/media"
	"splicer/internal/segment"
	"splicer/internal/timecode"
)

func makeSegment(id string, start, duration timecode.Time) segment.Segment {
	rng := timecode.MustRange(start, duration)
	return segment.Segment{
		ID:       id,
		Duration: duration,
		Tracks: []segment.TrackRef{
			{SourceLocator: "/media/" + id + ".mp4", Kind: media.KindVideo, SourceRange: rng, Width: 1280, Height: 720},
			{SourceLocator: "/media/" + id + ".mp4", SourceTrackIndex: 1, Kind: media.KindAudio, SourceRange: rng, SampleRate: 48000, Channels: 2},
		},
	}
}

func secs(n int64) timecode.Time { return timecode.FromSeconds(n) }

func TestCombineEmpty(t *testing.T) {
	_, err := Combine(context.Background(), nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyTimeline)
}

func TestCombineSingleSegment(t *testing.T) {
	s := makeSegment("a", secs(0), timecode.New(1001, 300))
	comp, err := Combine(context.Background(), []segment.Segment{s}, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, comp.Duration().Equal(s.Duration))
	assert.Empty(t, comp.TransitionInstructions())
	assert.Len(t, comp.Lanes, 1)
	assert.True(t, comp.FrameDuration.Equal(timecode.New(1, 30)))
	assert.NotEmpty(t, comp.ID)
	require.NoError(t, comp.Check())
}

func TestCombineTwoSegmentsOneTransition(t *testing.T) {
	s1 := makeSegment("a", secs(0), timecode.New(37, 10))
	s2 := makeSegment("b", secs(1), timecode.New(21, 10))
	opts := DefaultOptions()
	opts.Transition = timecode.New(3, 10)

	comp, err := Combine(context.Background(), []segment.Segment{s1, s2}, opts)
	require.NoError(t, err)
	require.NoError(t, comp.Check())

	transitions := comp.TransitionInstructions()
	require.Len(t, transitions, 1)
	tr := transitions[0]
	assert.True(t, tr.Range.Start.Equal(s1.Duration))
	assert.True(t, tr.Range.Duration.Equal(opts.Transition))
	assert.True(t, comp.Duration().Equal(s1.Duration.Add(s2.Duration)))

	require.Len(t, tr.Layers, 2)
	out, in := tr.Layers[0], tr.Layers[1]
	assert.NotEqual(t, out.Lane, in.Lane, "fading clips sit on separate lanes")
	assert.Equal(t, 1.0, out.Opacity.From)
	assert.Equal(t, 0.0, out.Opacity.To)
	assert.Equal(t, 0.0, in.Opacity.From)
	assert.Equal(t, 1.0, in.Opacity.To)

	assert.True(t, comp.Clips[0].Hold.Equal(opts.Transition))
	assert.True(t, comp.Clips[1].Hold.IsZero())
}

func TestCombineEndToEndTenSecondAsset(t *testing.T) {
	seg := makeSegment("clip", secs(2), secs(5))
	comp, err := Combine(context.Background(), []segment.Segment{seg, seg}, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, comp.Duration().Equal(secs(10)))
	transitions := comp.TransitionInstructions()
	require.Len(t, transitions, 1)
	assert.True(t, transitions[0].Range.Start.Equal(secs(5)))
	assert.True(t, transitions[0].Range.End().Equal(timecode.New(11, 2)))
}

func TestCombineLanesAlternateAndReuse(t *testing.T) {
	segs := []segment.Segment{
		makeSegment("a", secs(0), secs(3)),
		makeSegment("b", secs(0), secs(3)),
		makeSegment("c", secs(0), secs(3)),
		makeSegment("d", secs(0), secs(3)),
	}
	comp, err := Combine(context.Background(), segs, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, comp.Check())

	require.Len(t, comp.Lanes, 2)
	lanes := []int{}
	for _, c := range comp.Clips {
		lanes = append(lanes, c.Lane)
	}
	assert.Equal(t, []int{0, 1, 0, 1}, lanes)
	assert.Equal(t, []int{0, 2}, comp.Lanes[0].Clips)
	assert.Len(t, comp.Transitions, 3)
	assert.True(t, comp.Duration().Equal(secs(12)))
}

func TestCombineWithoutTransitionsUsesOneLane(t *testing.T) {
	segs := []segment.Segment{makeSegment("a", secs(0), secs(2)), makeSegment("b", secs(0), secs(2))}
	opts := DefaultOptions()
	opts.Transition = timecode.Zero

	comp, err := Combine(context.Background(), segs, opts)
	require.NoError(t, err)
	assert.Len(t, comp.Lanes, 1)
	assert.Empty(t, comp.TransitionInstructions())
	assert.True(t, comp.Clips[0].Hold.IsZero())
}

func TestCombineSkipsIncompleteSegments(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	good := makeSegment("good", secs(0), secs(4))
	noAudio := good
	noAudio.ID = "silent"
	noAudio.Tracks = noAudio.Tracks[:1]
	noVideo := good
	noVideo.ID = "blind"
	noVideo.Tracks = noVideo.Tracks[1:]

	opts := DefaultOptions()
	opts.Logger = zap.New(core)
	comp, err := Combine(context.Background(), []segment.Segment{noAudio, good, noVideo, good}, opts)
	require.NoError(t, err)

	assert.Len(t, comp.Clips, 2)
	assert.Len(t, comp.Warnings, 2)
	assert.Equal(t, 2, logs.FilterMessageSnippet("segment skipped").Len())
	require.Len(t, comp.Transitions, 1)
	assert.True(t, comp.Transitions[0].Range.Start.Equal(secs(4)))
}

func TestCombineAllSkippedIsEmpty(t *testing.T) {
	bad := makeSegment("bad", secs(0), secs(1))
	bad.Tracks = nil
	_, err := Combine(context.Background(), []segment.Segment{bad}, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyTimeline)
}

func TestCombineClampsTransitionToIncoming(t *testing.T) {
	segs := []segment.Segment{makeSegment("a", secs(0), secs(3)), makeSegment("b", secs(0), timecode.New(1, 5))}
	comp, err := Combine(context.Background(), segs, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, comp.Check())

	require.Len(t, comp.Transitions, 1)
	assert.True(t, comp.Transitions[0].Range.Duration.Equal(timecode.New(1, 5)))
	assert.Len(t, comp.Warnings, 1)
	assert.Contains(t, comp.Warnings[0], "clamped")
}

func TestCombineKeepsCallerOrder(t *testing.T) {
	segs := []segment.Segment{
		makeSegment("z", secs(0), secs(1)),
		makeSegment("a", secs(0), secs(2)),
		makeSegment("m", secs(0), secs(3)),
	}
	comp, err := Combine(context.Background(), segs, DefaultOptions())
	require.NoError(t, err)
	ids := []string{}
	for _, c := range comp.Clips {
		ids = append(ids, c.SegmentID)
	}
	assert.Equal(t, []string{"z", "a", "m"}, ids)
	assert.Equal(t, []string{"/media/z.mp4", "/media/a.mp4", "/media/m.mp4"}, comp.SourceLocators())
}

func TestCombineRejectsNegativeTransition(t *testing.T) {
	opts := DefaultOptions()
	opts.Transition = timecode.FromMillis(-1)
	_, err := Combine(context.Background(), []segment.Segment{makeSegment("a", secs(0), secs(1))}, opts)
	assert.ErrorIs(t, err, timecode.ErrInvalidTimeRange)
}

func TestCombineHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Combine(ctx, []segment.Segment{makeSegment("a", secs(0), secs(1))}, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCombineZeroLengthSegment(t *testing.T) {
	empty := makeSegment("empty", secs(2), timecode.Zero)
	comp, err := Combine(context.Background(), []segment.Segment{empty}, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, comp.Check())
	require.Len(t, comp.Clips, 1)
	assert.True(t, comp.Duration().IsZero())
	assert.Empty(t, comp.Warnings)
	assert.Empty(t, comp.Instructions())
}

func TestCombineZeroLengthSegmentBetweenClips(t *testing.T) {
	segs := []segment.Segment{
		makeSegment("a", secs(0), secs(3)),
		makeSegment("empty", secs(5), timecode.Zero),
		makeSegment("b", secs(0), secs(2)),
	}
	comp, err := Combine(context.Background(), segs, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, comp.Check())

	require.Len(t, comp.Clips, 3)
	assert.True(t, comp.Duration().Equal(secs(5)))
	assert.Empty(t, comp.Transitions, "no fade into or out of an empty clip")
	assert.True(t, comp.Clips[1].Start.Equal(secs(3)))
	for _, c := range comp.Clips {
		assert.True(t, c.Hold.IsZero())
	}
	assert.Len(t, comp.Lanes, 1)
}
