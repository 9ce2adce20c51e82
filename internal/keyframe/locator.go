package keyframe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"splicer/internal/logx"
	"splicer/internal/media"
	"splicer/internal/runner"
	"splicer/internal/timecode"
)

// Options tunes a Locator. Zero values use the package defaults.
type Options struct {
	Interval timecode.Time
	Epsilon  timecode.Time
	// Progress, when set, receives the running packet count of a scan.
	Progress func(packets int)
}

// Locator scans tracks for keyframes and answers cut-point queries. Scans
// are cached per (asset, stream).
type Locator struct {
	runner  runner.Runner
	ffprobe string
	logger  *zap.Logger
	opts    Options

	mu    sync.Mutex
	cache map[scanKey]Set
}

type scanKey struct {
	locator string
	index   int
}

// NewLocator builds a Locator that reads packet flags with ffprobe.
func NewLocator(r runner.Runner, ffprobe string, logger *zap.Logger, opts Options) *Locator {
	if r == nil {
		r = runner.Exec{}
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	if opts.Interval.Sign() <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Epsilon.Sign() <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	return &Locator{
		runner:  r,
		ffprobe: ffprobe,
		logger:  logx.OrNop(logger),
		opts:    opts,
		cache:   map[scanKey]Set{},
	}
}

// Scan returns the keyframe set of track. A track whose packets carry no
// keyframe flags gets an inferred set and a logged warning.
func (l *Locator) Scan(ctx context.Context, asset *media.Asset, track media.Track) (Set, error) {
	key := scanKey{locator: asset.Locator, index: track.Index}
	l.mu.Lock()
	if set, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return set, nil
	}
	l.mu.Unlock()

	if track.Kind != media.KindVideo {
		return Set{}, fmt.Errorf("keyframe scan: track %d is %s, not video", track.Index, track.Kind)
	}

	collector := &packetCollector{timeBase: track.TimeBase, origin: track.Range.Start, progress: l.opts.Progress}
	args := []string{
		"-v", "error",
		"-select_streams", strconv.Itoa(track.Index),
		"-show_entries", "packet=pts,dts,flags",
		"-of", "csv=p=0",
		asset.Locator,
	}
	res, err := l.runner.Run(ctx, l.ffprobe, args, runner.Options{Stdout: collector})
	if err != nil {
		if ctx.Err() != nil {
			return Set{}, ctx.Err()
		}
		return Set{}, &media.TrackLoadError{
			Locator: asset.Locator,
			Index:   track.Index,
			Reason:  "packet scan: " + strings.TrimSpace(string(firstLine(res.Stderr))),
			Err:     err,
		}
	}
	collector.flush()

	set := NewSet(collector.keyframes)
	if set.Len() == 0 {
		set = Inferred(track.Range.Duration, l.opts.Interval)
		l.logger.Warn("no keyframe flags in packet data, inferring keyframes",
			zap.String("locator", asset.Locator),
			zap.Int("stream", track.Index),
			zap.Int("packets", collector.packets),
			zap.Stringer("interval", l.opts.Interval),
			zap.Int("inferred", set.Len()),
		)
	} else {
		l.logger.Debug("scanned keyframes",
			zap.String("locator", asset.Locator),
			zap.Int("stream", track.Index),
			zap.Int("packets", collector.packets),
			zap.Int("keyframes", set.Len()),
		)
	}
	set.Epsilon = l.opts.Epsilon
	set.Packets = collector.packets

	l.mu.Lock()
	l.cache[key] = set
	l.mu.Unlock()
	return set, nil
}

// Nearest scans track if needed and applies Set.Nearest.
func (l *Locator) Nearest(ctx context.Context, asset *media.Asset, track media.Track, around timecode.Time, dir Direction) (timecode.Time, error) {
	set, err := l.Scan(ctx, asset, track)
	if err != nil {
		return timecode.Time{}, err
	}
	return set.Nearest(around, dir), nil
}

// ErrUnalignable is returned when snapping moves a range start past its end.
var ErrUnalignable = errors.New("range cannot be keyframe aligned")

// Align snaps rng.Start to a keyframe of the asset's first video track and
// keeps rng.End, so the result starts on an independently decodable frame.
func (l *Locator) Align(ctx context.Context, asset *media.Asset, rng timecode.Range, dir Direction) (timecode.Range, error) {
	track, ok, err := asset.FirstTrack(ctx, media.KindVideo)
	if err != nil {
		return timecode.Range{}, err
	}
	if !ok {
		return rng, nil
	}
	set, err := l.Scan(ctx, asset, track)
	if err != nil {
		return timecode.Range{}, err
	}
	start := timecode.Max(set.Snap(rng.Start, dir), timecode.Zero)
	end := rng.End()
	aligned, err := timecode.RangeFromTo(start, end)
	if err != nil {
		return timecode.Range{}, fmt.Errorf("%w: start %s snaps to %s after end %s", ErrUnalignable, rng.Start, start, end)
	}
	if !start.Equal(rng.Start) {
		l.logger.Debug("aligned range start",
			zap.String("locator", asset.Locator),
			zap.Stringer("requested", rng),
			zap.Stringer("aligned", aligned),
		)
	}
	return aligned, nil
}

// packetCollector parses `pts,dts,flags` lines as ffprobe streams them and
// keeps only keyframe instants, measured from the stream start so they match
// the zero-based asset timeline that input seeking uses.
type packetCollector struct {
	timeBase  timecode.Time
	origin    timecode.Time
	partial   []byte
	packets   int
	keyframes []timecode.Time
	progress  func(int)
}

func (c *packetCollector) Write(p []byte) (int, error) {
	data := append(c.partial, p...)
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		c.parseLine(string(data[:idx]))
		data = data[idx+1:]
	}
	c.partial = append(c.partial[:0], data...)
	if c.progress != nil {
		c.progress(c.packets)
	}
	return len(p), nil
}

func (c *packetCollector) flush() {
	if len(c.partial) > 0 {
		c.parseLine(string(c.partial))
		c.partial = c.partial[:0]
	}
	if c.progress != nil {
		c.progress(c.packets)
	}
}

func (c *packetCollector) parseLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	fields := strings.Split(line, ",")
	if len(fields) < 3 {
		return
	}
	c.packets++
	// K: keyframe, neither dependent on other samples nor a non-sync sample.
	if !strings.Contains(fields[2], "K") {
		return
	}
	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		ts, err = strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return
		}
	}
	at := timecode.Max(c.timeBase.Mul(ts, 1).Sub(c.origin), timecode.Zero)
	c.keyframes = append(c.keyframes, at)
}

func firstLine(b []byte) []byte {
	if idx := bytes.IndexByte(b, '\n'); idx >= 0 {
		return b[:idx]
	}
	return b
}
