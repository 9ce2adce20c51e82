package segment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splicer/internal/media"
	"splicer/internal/runner"
	"splicer/internal/runner/runnertest"
	"splicer/internal/timecode"
)

const tenSecondAsset = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080,
     "avg_frame_rate": "30/1", "time_base": "1/15360", "start_pts": 0, "duration_ts": 153600},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "44100", "channels": 2,
     "time_base": "1/44100", "start_pts": 0, "duration_ts": 441000}
  ],
  "format": {"format_name": "mov,mp4", "duration": "10.000000"}
}`

const videoOnlyAsset = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 640, "height": 480,
     "avg_frame_rate": "25/1", "time_base": "1/12800", "start_pts": 0, "duration_ts": 64000}
  ],
  "format": {"format_name": "mov,mp4", "duration": "5.000000"}
}`

func openFixture(t *testing.T, probe string) *media.Asset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	fake := &runnertest.Fake{Handler: func(context.Context, runnertest.Call, runner.Options) (runner.Result, error) {
		return runner.Result{Stdout: []byte(probe)}, nil
	}}
	catalog := media.NewCatalog(fake, "ffprobe", nil)
	t.Cleanup(func() { catalog.Close() })
	asset, err := catalog.Open(context.Background(), path)
	require.NoError(t, err)
	return asset
}

func TestExtractCopiesExactRange(t *testing.T) {
	asset := openFixture(t, tenSecondAsset)
	rng, err := timecode.RangeFromTo(timecode.FromSeconds(2), timecode.FromSeconds(7))
	require.NoError(t, err)

	seg, err := Extract(context.Background(), asset, rng)
	require.NoError(t, err)
	assert.NotEmpty(t, seg.ID)
	assert.True(t, seg.Duration.Equal(timecode.FromSeconds(5)))

	video, ok := seg.Video()
	require.True(t, ok)
	assert.Equal(t, asset.Locator, video.SourceLocator)
	assert.Equal(t, 0, video.SourceTrackIndex)
	assert.True(t, video.SourceRange.Equal(rng))
	assert.True(t, video.Range().Start.IsZero())
	assert.True(t, video.Range().Duration.Equal(rng.Duration))

	audio, ok := seg.Audio()
	require.True(t, ok)
	assert.Equal(t, 1, audio.SourceTrackIndex)
	assert.Equal(t, 44100, audio.SampleRate)
	assert.True(t, audio.Range().Duration.Equal(rng.Duration))
}

func TestExtractDurationsAreExactForAwkwardRanges(t *testing.T) {
	asset := openFixture(t, tenSecondAsset)
	ranges := []timecode.Range{
		timecode.MustRange(timecode.New(1001, 30000), timecode.New(1001, 3000)),
		timecode.MustRange(timecode.New(1, 3), timecode.New(1, 7)),
		timecode.MustRange(timecode.Zero, timecode.FromSeconds(10)),
		timecode.MustRange(timecode.FromSeconds(4), timecode.Zero),
	}
	for _, rng := range ranges {
		seg, err := Extract(context.Background(), asset, rng)
		require.NoError(t, err, rng.String())
		assert.True(t, seg.Duration.Equal(rng.Duration), rng.String())
		for _, ref := range seg.Tracks {
			assert.True(t, ref.Range().Duration.Equal(rng.Duration))
		}
	}
}

func TestExtractRejectsOutOfBounds(t *testing.T) {
	asset := openFixture(t, tenSecondAsset)
	cases := []timecode.Range{
		timecode.MustRange(timecode.FromSeconds(-1), timecode.FromSeconds(2)),
		timecode.MustRange(timecode.FromSeconds(9), timecode.New(10001, 10000)),
	}
	for _, rng := range cases {
		_, err := Extract(context.Background(), asset, rng)
		require.Error(t, err, rng.String())
		assert.ErrorIs(t, err, ErrInvalidSegmentRange)
		var rangeErr *RangeError
		require.ErrorAs(t, err, &rangeErr)
		assert.True(t, rangeErr.Duration.Equal(timecode.FromSeconds(10)))
	}
}

func TestExtractRequiresAudio(t *testing.T) {
	asset := openFixture(t, videoOnlyAsset)
	_, err := Extract(context.Background(), asset, timecode.MustRange(timecode.Zero, timecode.FromSeconds(1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingTrack)
	var missing *MissingTrackError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, media.KindAudio, missing.Kind)
}

func TestSegmentsAreIndependentOfAsset(t *testing.T) {
	asset := openFixture(t, tenSecondAsset)
	seg, err := Extract(context.Background(), asset, timecode.MustRange(timecode.FromSeconds(1), timecode.FromSeconds(2)))
	require.NoError(t, err)
	require.NoError(t, asset.Close())

	video, ok := seg.Video()
	require.True(t, ok)
	assert.Equal(t, 1920, video.Width)
	assert.True(t, seg.Range().Duration.Equal(timecode.FromSeconds(2)))
}
