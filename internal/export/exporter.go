// Package export renders a composition to a single mp4 with ffmpeg.
package export

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"splicer/internal/config"
	"splicer/internal/runner"
	"splicer/internal/timeline"
)

// Exporter drives ffmpeg for compositions. It holds no per-export state, so
// one Exporter can serve concurrent exports of different compositions.
type Exporter struct {
	Runner runner.Runner
	FFmpeg string
	Config config.Config
	Logger *zap.Logger
	// OverlayDir receives rasterized overlay PNGs. Empty means a temporary
	// directory per export.
	OverlayDir string
	// Stderr, when set, also receives ffmpeg's diagnostic output.
	Stderr io.Writer
}

// New returns an Exporter using ffmpeg at path.
func New(r runner.Runner, ffmpeg string, cfg config.Config, logger *zap.Logger) *Exporter {
	if r == nil {
		r = runner.Exec{}
	}
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{Runner: r, FFmpeg: ffmpeg, Config: cfg, Logger: logger}
}

// Plan resolves the preset and returns the ffmpeg invocation Export would
// run, without touching the filesystem.
func (e *Exporter) Plan(comp *timeline.Composition, output, preset string) (Plan, error) {
	p, err := ResolvePreset(e.Config, preset)
	if err != nil {
		return Plan{}, err
	}
	return buildPlan(comp, e.Config, p, output, overlayPaths(e.overlayDir(), comp))
}

// Export renders comp to output. onProgress sees non-decreasing fractions in
// [0, 1]; 1 is reported only after the finished file is in place. A failed
// or cancelled export removes whatever it wrote.
func (e *Exporter) Export(ctx context.Context, comp *timeline.Composition, output, preset string, onProgress ProgressFunc) (err error) {
	logger := e.logger()
	p, err := ResolvePreset(e.Config, preset)
	if err != nil {
		return err
	}
	if comp == nil || len(comp.Clips) == 0 {
		return &SessionError{Preset: p.Name, Reason: "composition is empty"}
	}
	if err := comp.Check(); err != nil {
		return &SessionError{Preset: p.Name, Reason: err.Error()}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrExportCancelled, err)
	}

	output, err = filepath.Abs(output)
	if err != nil {
		return &SessionError{Preset: p.Name, Reason: err.Error()}
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return &SessionError{Preset: p.Name, Reason: fmt.Sprintf("ensure output directory: %v", err)}
	}

	overlayDir := e.overlayDir()
	if overlayDir == "" {
		overlayDir, err = os.MkdirTemp("", "splicer-overlays-")
		if err != nil {
			return &SessionError{Preset: p.Name, Reason: fmt.Sprintf("overlay directory: %v", err)}
		}
		defer os.RemoveAll(overlayDir)
	}
	images, err := writeOverlays(overlayDir, comp)
	if err != nil {
		return &SessionError{Preset: p.Name, Reason: err.Error()}
	}
	if e.OverlayDir != "" {
		defer removeAll(images)
	}

	partial := partialPath(output)
	plan, err := buildPlan(comp, e.Config, p, partial, images)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = os.Remove(partial)
		}
	}()

	progress := newProgressWriter(plan.Duration.Duration().Microseconds(), onProgress)
	progress.start()

	logger.Info("export started",
		zap.String("composition", comp.ID),
		zap.String("output", output),
		zap.String("preset", p.Name),
		zap.Int("clips", len(comp.Clips)),
		zap.Int("overlays", len(comp.Overlays)),
		zap.Stringer("duration", plan.Duration),
	)
	started := time.Now()

	opts := runner.Options{Stdout: progress, Stderr: e.Stderr}
	res, runErr := e.Runner.Run(ctx, e.FFmpeg, plan.Args, opts)
	if runErr != nil {
		if ctx.Err() != nil {
			logger.Warn("export cancelled", zap.String("output", output), zap.Error(ctx.Err()))
			return fmt.Errorf("%w: %w", ErrExportCancelled, ctx.Err())
		}
		exportErr := &Error{Output: output, Reason: string(res.Stderr), Err: runErr}
		logger.Error("export failed", zap.String("output", output), zap.Error(exportErr))
		return exportErr
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrExportCancelled, ctx.Err())
	}

	if _, statErr := os.Stat(partial); statErr != nil {
		return &Error{Output: output, Reason: "encoder exited without writing output", Err: statErr}
	}
	if renameErr := os.Rename(partial, output); renameErr != nil {
		return &Error{Output: output, Reason: renameErr.Error(), Err: renameErr}
	}

	if onProgress != nil {
		onProgress(1)
	}
	logger.Info("export finished",
		zap.String("output", output),
		zap.Duration("elapsed", time.Since(started)),
		zap.Bool("progress_end", progress.Finished()),
	)
	return nil
}

func (e *Exporter) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Exporter) overlayDir() string {
	return strings.TrimSpace(e.OverlayDir)
}

// partialPath is the file ffmpeg writes before the final rename. It keeps the
// extension so the muxer is chosen the same way.
func partialPath(output string) string {
	dir, base := filepath.Split(output)
	return filepath.Join(dir, ".partial-"+base)
}

func overlayPaths(dir string, comp *timeline.Composition) []string {
	if comp == nil {
		return nil
	}
	if dir == "" {
		dir = os.TempDir()
	}
	out := make([]string, len(comp.Overlays))
	for i, ov := range comp.Overlays {
		out[i] = filepath.Join(dir, overlayName(i, ov))
	}
	return out
}

func overlayName(i int, ov timeline.Overlay) string {
	id := ov.ID
	if id == "" {
		id = fmt.Sprintf("%03d", i)
	}
	return "overlay-" + id + ".png"
}

func writeOverlays(dir string, comp *timeline.Composition) ([]string, error) {
	paths := overlayPaths(dir, comp)
	if len(paths) > 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure overlay directory: %w", err)
		}
	}
	for i, ov := range comp.Overlays {
		if ov.Image == nil {
			removeAll(paths[:i])
			return nil, fmt.Errorf("overlay %d has no image", i)
		}
		if err := writePNG(paths[i], ov); err != nil {
			removeAll(paths[:i])
			return nil, err
		}
	}
	return paths, nil
}

func writePNG(path string, ov timeline.Overlay) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create overlay image: %w", err)
	}
	if err := png.Encode(f, ov.Image); err != nil {
		f.Close()
		return fmt.Errorf("encode overlay image: %w", err)
	}
	return f.Close()
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
