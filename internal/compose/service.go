// Package compose runs an edit plan end to end: open and align sources, cut
// segments, build the timeline, layer overlays and audio automation, then
// export with a provenance record.
package compose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"splicer/internal/audiomix"
	"splicer/internal/config"
	"splicer/internal/export"
	"splicer/internal/grade"
	"splicer/internal/keyframe"
	"splicer/internal/logx"
	"splicer/internal/media"
	"splicer/internal/overlay"
	"splicer/internal/provenance"
	"splicer/internal/segment"
	"splicer/internal/timecode"
	"splicer/internal/timeline"
	"splicer/pkg/editplan"
)

// Row statuses reported per clip.
const (
	StatusPending   = "pending"
	StatusProbing   = "probing"
	StatusAligned   = "aligned"
	StatusExtracted = "extracted"
	StatusError     = "error"
)

// Reporter receives per-clip updates and export progress.
type Reporter interface {
	Clip(key string, fields map[string]string)
	Progress(fraction float64)
}

// Service wires the engine components together for one project.
type Service struct {
	Config   config.Config
	Catalog  *media.Catalog
	Locator  *keyframe.Locator
	Exporter *export.Exporter
	Renderer *overlay.Renderer
	// Store records exports and enables skip detection. Optional.
	Store  *provenance.Store
	Logger *zap.Logger
	// Concurrency bounds parallel source probing. Zero means 2.
	Concurrency int
}

// Options controls a single Run.
type Options struct {
	Output   string
	Preset   string
	Force    bool
	DryRun   bool
	Reporter Reporter
}

// ClipResult describes how one plan clip was prepared.
type ClipResult struct {
	Index     int            `json:"index"`
	Source    string         `json:"source"`
	Requested timecode.Range `json:"requested"`
	Aligned   timecode.Range `json:"aligned"`
	Snapped   bool           `json:"snapped"`
	Err       error          `json:"-"`
}

// Result summarizes a Run.
type Result struct {
	CompositionID string        `json:"composition_id,omitempty"`
	RecordID      string        `json:"record_id,omitempty"`
	Output        string        `json:"output"`
	Preset        string        `json:"preset"`
	Duration      timecode.Time `json:"duration"`
	Clips         []ClipResult  `json:"clips,omitempty"`
	Overlays      int           `json:"overlays"`
	Captions      int           `json:"captions"`
	Warnings      []string      `json:"warnings,omitempty"`
	Skipped       bool          `json:"skipped"`
	Reason        string        `json:"reason,omitempty"`
	Args          []string      `json:"args,omitempty"`
	Elapsed       time.Duration `json:"elapsed_ns"`
}

// Run composes plan and exports it unless the previous export of the same
// output is still current.
func (s *Service) Run(ctx context.Context, plan *editplan.Plan, opts Options) (Result, error) {
	started := time.Now()
	logger := logx.OrNop(s.Logger)
	rep := reporterOrNop(opts.Reporter)

	if plan == nil {
		return Result{}, errors.New("compose: nil plan")
	}
	presetName := firstNonEmpty(opts.Preset, plan.Preset, s.Config.Export.DefaultPreset)
	preset, err := export.ResolvePreset(s.Config, presetName)
	if err != nil {
		return Result{}, err
	}
	output := opts.Output
	if output == "" {
		return Result{}, errors.New("compose: no output path")
	}
	res := Result{Output: output, Preset: preset.Name}

	planHash := PlanHash(plan)
	configHash := provenance.ConfigHash(s.Config, preset.Name)
	if s.Store != nil && !opts.DryRun {
		decision, err := s.Store.Decide(ctx, output, planHash, configHash, opts.Force)
		if err != nil {
			return res, fmt.Errorf("check previous exports: %w", err)
		}
		logger.Info("export decision",
			zap.String("output", output),
			zap.String("action", decision.Action),
			zap.String("reason", decision.Reason),
		)
		res.Reason = decision.Reason
		if decision.Action == provenance.ActionSkip {
			res.Skipped = true
			if decision.Prior != nil {
				res.RecordID = decision.Prior.ID
				res.CompositionID = decision.Prior.CompositionID
			}
			res.Elapsed = time.Since(started)
			return res, nil
		}
	}

	comp, build, err := s.Build(ctx, plan, rep)
	res.Clips = build.Clips
	res.Overlays = build.Overlays
	res.Captions = build.Captions
	if err != nil {
		return res, err
	}
	res.CompositionID = comp.ID
	res.Duration = comp.Duration()
	res.Warnings = append(res.Warnings, comp.Warnings...)

	if opts.DryRun {
		p, err := s.Exporter.Plan(comp, output, preset.Name)
		if err != nil {
			return res, err
		}
		res.Args = p.Args
		res.Elapsed = time.Since(started)
		return res, nil
	}

	var recordID string
	if s.Store != nil {
		rec := &provenance.Record{
			CompositionID: comp.ID,
			PlanHash:      planHash,
			ConfigHash:    configHash,
			Output:        output,
			Preset:        preset.Name,
			Sources:       comp.SourceLocators(),
			DurationS:     comp.Duration().Seconds(),
		}
		if err := s.Store.Begin(ctx, rec); err != nil {
			return res, fmt.Errorf("record export: %w", err)
		}
		recordID = rec.ID
		res.RecordID = rec.ID
	}

	exportErr := s.Exporter.Export(ctx, comp, output, preset.Name, rep.Progress)

	if s.Store != nil {
		status := provenance.StatusSucceeded
		switch {
		case errors.Is(exportErr, export.ErrExportCancelled):
			status = provenance.StatusCancelled
		case exportErr != nil:
			status = provenance.StatusFailed
		}
		// The run context may already be cancelled; the record must still close.
		if err := s.Store.Finish(context.WithoutCancel(ctx), recordID, status, exportErr); err != nil {
			logger.Warn("finish provenance record", zap.String("id", recordID), zap.Error(err))
		}
	}
	res.Elapsed = time.Since(started)
	return res, exportErr
}

// BuildResult counts what Build layered onto the timeline.
type BuildResult struct {
	Clips    []ClipResult
	Overlays int
	Captions int
}

// Build turns plan into a composition without exporting it.
func (s *Service) Build(ctx context.Context, plan *editplan.Plan, rep Reporter) (*timeline.Composition, BuildResult, error) {
	logger := logx.OrNop(s.Logger)
	rep = reporterOrNop(rep)

	segments, clips, err := s.prepareClips(ctx, plan.Clips, rep)
	out := BuildResult{Clips: clips}
	if err != nil {
		return nil, out, err
	}

	transition := timecode.FromMillis(int64(s.Config.Timeline.TransitionMS))
	if plan.Transition != nil {
		transition = *plan.Transition
	}
	comp, err := timeline.Combine(ctx, segments, timeline.Options{
		Transition: transition,
		Width:      s.Config.Video.Width,
		Height:     s.Config.Video.Height,
		Logger:     logger,
	})
	if err != nil {
		return nil, out, fmt.Errorf("combine segments: %w", err)
	}

	renderer := s.Renderer
	if renderer == nil {
		renderer, err = overlay.NewRenderer(s.Config.Overlay.FontSize, s.Config.Overlay.FontFile)
		if err != nil {
			return nil, out, err
		}
	}

	size := image.Pt(comp.Width, comp.Height)
	for _, ov := range plan.Overlays {
		rng, ok := ov.Range.Intersect(comp.Range())
		if !ok {
			comp.Warnings = append(comp.Warnings, fmt.Sprintf("overlay %d (%q) lies outside the timeline", ov.Index, ov.Text))
			continue
		}
		img, err := renderer.RenderText(ov.Text, size)
		if err != nil {
			return nil, out, fmt.Errorf("overlay %d: %w", ov.Index, err)
		}
		if err := overlay.InsertWithOpacity(img, comp, rng, s.Config.Overlay.Opacity, ov.Text); err != nil {
			return nil, out, fmt.Errorf("overlay %d: %w", ov.Index, err)
		}
		out.Overlays++
	}

	if len(plan.Captions) > 0 {
		captions := make([]overlay.Caption, len(plan.Captions))
		for i, c := range plan.Captions {
			captions[i] = overlay.Caption{Range: c.Range, Text: c.Text, Confidence: c.Confidence}
		}
		n, err := overlay.InsertCaptions(renderer, comp, captions, overlay.CaptionOptions{
			MinConfidence: s.Config.Overlay.CaptionMinConfidence,
			Opacity:       s.Config.Overlay.Opacity,
		})
		out.Captions = n
		if err != nil {
			return nil, out, fmt.Errorf("captions: %w", err)
		}
	}

	if plan.Normalize {
		audiomix.Normalize(comp)
	}
	if plan.DuckTransitions != nil {
		if err := audiomix.DuckTransitions(comp, *plan.DuckTransitions); err != nil {
			return nil, out, err
		}
	}

	if plan.Grade != nil {
		if err := grade.Apply(comp, *plan.Grade); err != nil {
			return nil, out, fmt.Errorf("filters: %w", err)
		}
	}

	logger.Info("composition built",
		zap.String("composition", comp.ID),
		zap.Int("clips", len(comp.Clips)),
		zap.Int("overlays", len(comp.Overlays)),
		zap.Stringer("duration", comp.Duration()),
	)
	return comp, out, nil
}

// prepareClips opens, aligns and cuts every clip with bounded concurrency.
// Segments come back in plan order.
func (s *Service) prepareClips(ctx context.Context, clips []editplan.Clip, rep Reporter) ([]segment.Segment, []ClipResult, error) {
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}

	segments := make([]segment.Segment, len(clips))
	results := make([]ClipResult, len(clips))

	var (
		wg     sync.WaitGroup
		sem    = make(chan struct{}, concurrency)
		mu     sync.Mutex
		assets = map[*media.Asset]struct{}{}
	)

	for i, clip := range clips {
		rep.Clip(ClipKey(clip.Index), map[string]string{"STATUS": StatusPending})
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			seg, result, asset := s.prepareClip(ctx, clip, rep)
			if asset != nil {
				mu.Lock()
				assets[asset] = struct{}{}
				mu.Unlock()
			}
			segments[i] = seg
			results[i] = result
		}()
	}
	wg.Wait()

	// Segments no longer reference their assets.
	for asset := range assets {
		if err := s.Catalog.Release(asset); err != nil {
			logx.OrNop(s.Logger).Warn("release asset", zap.String("locator", asset.Locator), zap.Error(err))
		}
	}

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	if len(errs) > 0 {
		return nil, results, errors.Join(errs...)
	}
	return segments, results, nil
}

func (s *Service) prepareClip(ctx context.Context, clip editplan.Clip, rep Reporter) (segment.Segment, ClipResult, *media.Asset) {
	key := ClipKey(clip.Index)
	result := ClipResult{Index: clip.Index, Source: clip.Source, Requested: clip.Range, Aligned: clip.Range}
	var asset *media.Asset
	fail := func(err error) (segment.Segment, ClipResult, *media.Asset) {
		result.Err = fmt.Errorf("clip %d (%s): %w", clip.Index, clip.Source, err)
		rep.Clip(key, map[string]string{"STATUS": StatusError, "DETAIL": err.Error()})
		return segment.Segment{}, result, asset
	}

	rep.Clip(key, map[string]string{"STATUS": StatusProbing})
	asset, err := s.Catalog.Open(ctx, clip.Path)
	if err != nil {
		return fail(err)
	}

	rng := clip.Range
	if clip.Snap != editplan.SnapNone && s.Locator != nil {
		dir := keyframe.DirectionAny
		if clip.Snap == editplan.SnapForward {
			dir = keyframe.DirectionForward
		}
		aligned, err := s.Locator.Align(ctx, asset, rng, dir)
		if err != nil {
			return fail(err)
		}
		result.Snapped = !aligned.Start.Equal(rng.Start)
		rng = aligned
		result.Aligned = rng
		rep.Clip(key, map[string]string{"STATUS": StatusAligned, "RANGE": rng.String()})
	}

	seg, err := segment.Extract(ctx, asset, rng)
	if err != nil {
		return fail(err)
	}
	rep.Clip(key, map[string]string{
		"STATUS":   StatusExtracted,
		"RANGE":    rng.String(),
		"DURATION": seg.Duration.Decimal(3),
	})
	return seg, result, asset
}

// ClipKey is the reporter row key for a plan clip.
func ClipKey(index int) string {
	return fmt.Sprintf("%03d", index)
}

type sourceStamp struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// PlanHash hashes the plan together with the size and modification time of
// every source it references, so editing a source file invalidates exports.
func PlanHash(plan *editplan.Plan) string {
	stamps := make([]sourceStamp, 0, len(plan.Clips))
	seen := map[string]bool{}
	for _, clip := range plan.Clips {
		if clip.Path == "" || seen[clip.Path] {
			continue
		}
		seen[clip.Path] = true
		stamp := sourceStamp{Path: clip.Path}
		if info, err := os.Stat(clip.Path); err == nil {
			stamp.Size = info.Size()
			stamp.ModTime = info.ModTime().UTC()
		}
		stamps = append(stamps, stamp)
	}
	return provenance.HashJSON(struct {
		Plan    *editplan.Plan `json:"plan"`
		Sources []sourceStamp  `json:"sources"`
	}{plan, stamps})
}

type nopReporter struct{}

func (nopReporter) Clip(string, map[string]string) {}
func (nopReporter) Progress(float64)               {}

func reporterOrNop(r Reporter) Reporter {
	if r == nil {
		return nopReporter{}
	}
	return r
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
