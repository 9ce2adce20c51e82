package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splicer/internal/runner"
	"splicer/internal/runner/runnertest"
	"splicer/internal/timecode"
)

const probeMP4 = `{
  "streams": [
    {
      "index": 0, "id": "0x1", "codec_name": "h264", "codec_type": "video",
      "width": 1280, "height": 720,
      "r_frame_rate": "30000/1001", "avg_frame_rate": "30000/1001",
      "time_base": "1/30000", "start_pts": 0, "start_time": "0.000000",
      "duration_ts": 300300, "duration": "10.010000"
    },
    {
      "index": 1, "id": "0x2", "codec_name": "aac", "codec_type": "audio",
      "sample_rate": "48000", "channels": 2,
      "time_base": "1/48000", "start_pts": 0, "start_time": "0.000000",
      "duration_ts": 480480, "duration": "10.010000"
    },
    {
      "index": 2, "codec_name": "mjpeg", "codec_type": "video",
      "width": 300, "height": 300, "time_base": "1/90000",
      "disposition": {"attached_pic": 1}
    },
    {
      "index": 3, "codec_name": "bin_data", "codec_type": "data", "time_base": "1/1000"
    }
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "10.010000", "start_time": "0.000000"}
}`

const probeMKV = `{
  "streams": [
    {
      "index": 0, "codec_name": "h264", "codec_type": "video",
      "width": 1920, "height": 1080, "r_frame_rate": "25/1", "avg_frame_rate": "0/0",
      "time_base": "1/1000", "start_pts": 0, "start_time": "0.000000",
      "tags": {"DURATION": "00:00:04.520000000"}
    }
  ],
  "format": {"format_name": "matroska,webm", "duration": "4.520000"}
}`

const probeDataOnly = `{
  "streams": [{"index": 0, "codec_type": "data", "time_base": "1/1000"}],
  "format": {"format_name": "mpegts", "duration": "3.000000"}
}`

func writeMedia(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("not really media"), 0o644))
	return path
}

func probeFake(outputs map[string]string) *runnertest.Fake {
	return &runnertest.Fake{Handler: func(_ context.Context, call runnertest.Call, _ runner.Options) (runner.Result, error) {
		target := call.Args[len(call.Args)-1]
		out, ok := outputs[filepath.Base(target)]
		if !ok {
			return runner.Result{Stderr: []byte("Invalid data found when processing input\n")}, errors.New("exit status 1")
		}
		return runner.Result{Stdout: []byte(out)}, nil
	}}
}

func TestOpenProbesTracksExactly(t *testing.T) {
	path := writeMedia(t, "clip.mp4")
	fake := probeFake(map[string]string{"clip.mp4": probeMP4})
	catalog := NewCatalog(fake, "/usr/bin/ffprobe", nil)
	defer catalog.Close()

	asset, err := catalog.Open(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, asset.Duration.Equal(timecode.New(1001, 100)))

	video, err := asset.Tracks(context.Background(), KindVideo)
	require.NoError(t, err)
	require.Len(t, video, 1, "attached picture is not a track")
	assert.Equal(t, 1, video[0].ID)
	assert.Equal(t, "h264", video[0].Codec)
	assert.Equal(t, 1280, video[0].Width)
	assert.True(t, video[0].Range.Duration.Equal(timecode.New(1001, 100)))
	assert.True(t, video[0].FrameRate.Equal(timecode.New(30000, 1001)))
	assert.True(t, video[0].FrameDuration().Equal(timecode.New(1001, 30000)))

	audio, err := asset.Tracks(context.Background(), KindAudio)
	require.NoError(t, err)
	require.Len(t, audio, 1)
	assert.Equal(t, 48000, audio[0].SampleRate)
	assert.Equal(t, 2, audio[0].Channels)

	call := fake.CallsTo("ffprobe")[0]
	assert.True(t, call.HasArg("-show_streams"))
	assert.True(t, call.HasPair("-print_format", "json"))
}

func TestOpenReturnsSameAssetForSameLocator(t *testing.T) {
	path := writeMedia(t, "clip.mp4")
	fake := probeFake(map[string]string{"clip.mp4": probeMP4})
	catalog := NewCatalog(fake, "ffprobe", nil)
	defer catalog.Close()

	a, err := catalog.Open(context.Background(), path)
	require.NoError(t, err)
	b, err := catalog.Open(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Len(t, fake.Calls(), 1)
	assert.Equal(t, 1, catalog.Len())
}

func TestOpenFailsWithoutMediaTracks(t *testing.T) {
	path := writeMedia(t, "data.ts")
	catalog := NewCatalog(probeFake(map[string]string{"data.ts": probeDataOnly}), "ffprobe", nil)

	_, err := catalog.Open(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssetLoadFailed)
	var loadErr *AssetLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Reason, "no video or audio")
}

func TestOpenFailsOnUnreadableFile(t *testing.T) {
	catalog := NewCatalog(probeFake(nil), "ffprobe", nil)

	_, err := catalog.Open(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	assert.ErrorIs(t, err, ErrAssetLoadFailed)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenCarriesProbeDiagnostic(t *testing.T) {
	path := writeMedia(t, "garbage.mp4")
	catalog := NewCatalog(probeFake(nil), "ffprobe", nil)

	_, err := catalog.Open(context.Background(), path)
	require.ErrorIs(t, err, ErrAssetLoadFailed)
	assert.Contains(t, err.Error(), "Invalid data found")
	assert.Equal(t, 0, catalog.Len())
}

func TestTracksFallBackToDurationTag(t *testing.T) {
	path := writeMedia(t, "clip.mkv")
	catalog := NewCatalog(probeFake(map[string]string{"clip.mkv": probeMKV}), "ffprobe", nil)
	defer catalog.Close()

	asset, err := catalog.Open(context.Background(), path)
	require.NoError(t, err)

	track, ok, err := asset.FirstTrack(context.Background(), KindVideo)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, track.Range.Duration.Equal(timecode.New(452, 100)))
	assert.True(t, track.FrameRate.Equal(timecode.FromSeconds(25)), "avg_frame_rate 0/0 falls back to r_frame_rate")

	_, ok, err = asset.FirstTrack(context.Background(), KindAudio)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTracksReportsUnreadableStream(t *testing.T) {
	broken := `{"streams":[{"index":0,"codec_type":"video","width":640,"height":480,"time_base":"bogus"}],"format":{"duration":"1.0"}}`
	path := writeMedia(t, "broken.mp4")
	catalog := NewCatalog(probeFake(map[string]string{"broken.mp4": broken}), "ffprobe", nil)
	defer catalog.Close()

	asset, err := catalog.Open(context.Background(), path)
	require.NoError(t, err)

	_, err = asset.Tracks(context.Background(), KindVideo)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTrackLoadFailed)
	var trackErr *TrackLoadError
	require.ErrorAs(t, err, &trackErr)
	assert.Equal(t, 0, trackErr.Index)
}

func TestReleaseClosesHandle(t *testing.T) {
	path := writeMedia(t, "clip.mp4")
	fake := probeFake(map[string]string{"clip.mp4": probeMP4})
	catalog := NewCatalog(fake, "ffprobe", nil)

	asset, err := catalog.Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, asset.Close())
	assert.True(t, asset.Closed())
	assert.Equal(t, 0, catalog.Len())

	_, err = asset.Tracks(context.Background(), KindVideo)
	assert.ErrorIs(t, err, ErrAssetClosed)

	reopened, err := catalog.Open(context.Background(), path)
	require.NoError(t, err)
	assert.NotSame(t, asset, reopened)
	assert.Len(t, fake.Calls(), 2)

	require.NoError(t, catalog.Close())
	assert.True(t, reopened.Closed())
}
