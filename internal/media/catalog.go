// Package media opens source containers and exposes their tracks.
//
// Probing is delegated to ffprobe through a runner.Runner. A Catalog holds one
// read-only file handle per opened locator; Segments and Compositions built
// from an Asset copy the metadata they need and never hold the handle.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"splicer/internal/logx"
	"splicer/internal/runner"
	"splicer/internal/timecode"
)

// Catalog opens and owns Assets.
type Catalog struct {
	runner  runner.Runner
	ffprobe string
	logger  *zap.Logger

	mu     sync.Mutex
	assets map[string]*Asset
}

// NewCatalog builds a Catalog probing with the ffprobe executable at path.
func NewCatalog(r runner.Runner, ffprobe string, logger *zap.Logger) *Catalog {
	if r == nil {
		r = runner.Exec{}
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return &Catalog{
		runner:  r,
		ffprobe: ffprobe,
		logger:  logx.OrNop(logger),
		assets:  map[string]*Asset{},
	}
}

// Open returns the Asset for locator, opening and probing it on first use.
// Opening the same locator twice returns the same Asset.
func (c *Catalog) Open(ctx context.Context, locator string) (*Asset, error) {
	abs, err := filepath.Abs(locator)
	if err != nil {
		return nil, &AssetLoadError{Locator: locator, Reason: "resolve path", Err: err}
	}

	c.mu.Lock()
	if existing, ok := c.assets[abs]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.mu.Unlock()

	asset, err := c.open(ctx, abs)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.assets[abs]; ok {
		// Lost a race with a concurrent Open of the same file.
		_ = asset.file.Close()
		return existing, nil
	}
	c.assets[abs] = asset
	return asset, nil
}

func (c *Catalog) open(ctx context.Context, locator string) (*Asset, error) {
	file, err := os.Open(locator)
	if err != nil {
		return nil, &AssetLoadError{Locator: locator, Reason: "open", Err: err}
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &AssetLoadError{Locator: locator, Reason: "stat", Err: err}
	}
	if info.IsDir() {
		file.Close()
		return nil, &AssetLoadError{Locator: locator, Reason: "is a directory"}
	}

	args := []string{
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-print_format", "json",
		locator,
	}
	res, err := c.runner.Run(ctx, c.ffprobe, args, runner.Options{})
	if err != nil {
		file.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &AssetLoadError{Locator: locator, Reason: "ffprobe: " + firstLine(res.Stderr), Err: err}
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(res.Stdout, &parsed); err != nil {
		file.Close()
		return nil, &AssetLoadError{Locator: locator, Reason: "decode ffprobe output", Err: err}
	}

	var headers []streamHeader
	if len(parsed.Streams) > 0 {
		if err := json.Unmarshal(parsed.Streams, &headers); err != nil {
			file.Close()
			return nil, &AssetLoadError{Locator: locator, Reason: "decode stream list", Err: err}
		}
	}
	counts := map[Kind]int{}
	for _, h := range headers {
		if kind, ok := h.usable(); ok {
			counts[kind]++
		}
	}
	if counts[KindVideo]+counts[KindAudio] == 0 {
		file.Close()
		return nil, &AssetLoadError{Locator: locator, Reason: "no video or audio tracks"}
	}

	duration := timecode.Zero
	if parsed.Format.Duration != "" && parsed.Format.Duration != "N/A" {
		duration, err = timecode.ParseDecimal(parsed.Format.Duration)
		if err != nil || duration.IsNegative() {
			file.Close()
			return nil, &AssetLoadError{Locator: locator, Reason: fmt.Sprintf("invalid duration %q", parsed.Format.Duration), Err: err}
		}
	}

	c.logger.Debug("probed asset",
		zap.String("locator", locator),
		zap.String("format", parsed.Format.FormatName),
		zap.Stringer("duration", duration),
		zap.Int("video_tracks", counts[KindVideo]),
		zap.Int("audio_tracks", counts[KindAudio]),
	)

	return &Asset{
		Locator:  locator,
		Format:   parsed.Format.FormatName,
		Duration: duration,
		Size:     info.Size(),
		catalog:  c,
		file:     file,
		streams:  append(json.RawMessage(nil), parsed.Streams...),
		headers:  headers,
		tracks:   map[Kind][]Track{},
	}, nil
}

// Release closes asset and forgets it. Later Opens probe the file again.
func (c *Catalog) Release(asset *Asset) error {
	if asset == nil {
		return nil
	}
	c.mu.Lock()
	if current, ok := c.assets[asset.Locator]; ok && current == asset {
		delete(c.assets, asset.Locator)
	}
	c.mu.Unlock()
	return asset.closeFile()
}

// Close releases every open asset.
func (c *Catalog) Close() error {
	c.mu.Lock()
	assets := c.assets
	c.assets = map[string]*Asset{}
	c.mu.Unlock()

	var errs []error
	for _, asset := range assets {
		if err := asset.closeFile(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len reports how many assets are open.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.assets)
}

// Runner exposes the runner assets were probed with, for packet scans.
func (c *Catalog) Runner() runner.Runner { return c.runner }

// FFprobe is the probe executable path.
func (c *Catalog) FFprobe() string { return c.ffprobe }

// Asset is an opened, read-only media container.
type Asset struct {
	Locator  string
	Format   string
	Duration timecode.Time
	Size     int64

	catalog *Catalog
	streams json.RawMessage
	headers []streamHeader

	mu     sync.Mutex
	file   *os.File
	closed bool
	loaded bool
	tracks map[Kind][]Track
}

// Tracks returns the asset's tracks of kind in stream order. Stream metadata
// is decoded on first call and cached.
func (a *Asset) Tracks(ctx context.Context, kind Kind) ([]Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrAssetClosed
	}
	if !a.loaded {
		if err := a.loadTracks(); err != nil {
			return nil, err
		}
		a.loaded = true
	}
	return append([]Track(nil), a.tracks[kind]...), nil
}

// FirstTrack returns the first track of kind, or false when there is none.
func (a *Asset) FirstTrack(ctx context.Context, kind Kind) (Track, bool, error) {
	tracks, err := a.Tracks(ctx, kind)
	if err != nil {
		return Track{}, false, err
	}
	if len(tracks) == 0 {
		return Track{}, false, nil
	}
	return tracks[0], true, nil
}

func (a *Asset) loadTracks() error {
	var streams []json.RawMessage
	if err := json.Unmarshal(a.streams, &streams); err != nil {
		return &TrackLoadError{Locator: a.Locator, Index: -1, Reason: "decode stream list", Err: err}
	}
	loaded := map[Kind][]Track{}
	for i, raw := range streams {
		if i < len(a.headers) {
			if _, ok := a.headers[i].usable(); !ok {
				continue
			}
		}
		var s ffprobeStream
		if err := json.Unmarshal(raw, &s); err != nil {
			return &TrackLoadError{Locator: a.Locator, Index: i, Reason: "decode stream", Err: err}
		}
		track, err := s.toTrack(a.Duration)
		if err != nil {
			return &TrackLoadError{Locator: a.Locator, Index: s.Index, Reason: "unreadable stream", Err: err}
		}
		loaded[track.Kind] = append(loaded[track.Kind], track)
	}
	if a.Duration.IsZero() {
		// Container without a duration: use the longest track.
		for _, tracks := range loaded {
			for _, t := range tracks {
				a.Duration = timecode.Max(a.Duration, t.Range.End())
			}
		}
	}
	a.tracks = loaded
	a.catalog.logger.Debug("loaded tracks",
		zap.String("locator", a.Locator),
		zap.Int("video", len(loaded[KindVideo])),
		zap.Int("audio", len(loaded[KindAudio])),
	)
	return nil
}

// Close releases the asset through its catalog.
func (a *Asset) Close() error {
	if a.catalog == nil {
		return a.closeFile()
	}
	return a.catalog.Release(a)
}

// Closed reports whether the handle has been released.
func (a *Asset) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Asset) closeFile() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.file == nil {
		return nil
	}
	return a.file.Close()
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	if len(b) == 0 {
		return "failed"
	}
	return string(b)
}
