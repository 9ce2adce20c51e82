// Package editplan loads YAML edit plans: which source ranges to splice, in
// what order, and what to layer on top.
package editplan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"splicer/internal/grade"
	"splicer/internal/timecode"
	"splicer/internal/timeline"
)

// SnapMode selects how a clip start is aligned to a keyframe.
type SnapMode string

const (
	SnapNone    SnapMode = "none"
	SnapNearest SnapMode = "nearest"
	SnapForward SnapMode = "forward"
)

// Plan is a validated edit plan with source paths resolved against the
// plan's directory.
type Plan struct {
	Path       string
	Sources    map[string]string
	Clips      []Clip
	Transition *timecode.Time
	Overlays   []Overlay
	Captions   []Caption
	Normalize  bool
	// DuckTransitions is the volume level during transitions; nil disables.
	DuckTransitions *float64
	// Grade colors the whole picture; nil when the plan has no filters.
	Grade  *timeline.Grade
	Preset string
	Output string
}

// Clip is one source range in timeline order.
type Clip struct {
	Index  int
	Source string
	Path   string
	Range  timecode.Range
	Snap   SnapMode
}

// Overlay is timed title text.
type Overlay struct {
	Index int
	Text  string
	Range timecode.Range
}

// Caption is one transcript segment.
type Caption struct {
	Range      timecode.Range
	Text       string
	Confidence float64
}

type rawPlan struct {
	Sources         map[string]string `yaml:"sources"`
	Clips           []rawClip         `yaml:"clips"`
	Transition      any               `yaml:"transition"`
	Overlays        []rawOverlay      `yaml:"overlays"`
	Captions        rawCaptions       `yaml:"captions"`
	Normalize       bool              `yaml:"normalize"`
	DuckTransitions *float64          `yaml:"duck_transitions"`
	Filters         *rawFilters       `yaml:"filters"`
	Preset          string            `yaml:"preset"`
	Output          string            `yaml:"output"`
}

type rawClip struct {
	Source   string `yaml:"source"`
	Start    any    `yaml:"start"`
	End      any    `yaml:"end"`
	Duration any    `yaml:"duration"`
	Snap     string `yaml:"snap"`
}

type rawOverlay struct {
	Text     string `yaml:"text"`
	Start    any    `yaml:"start"`
	Duration any    `yaml:"duration"`
}

// rawFilters leaves unset parameters neutral.
type rawFilters struct {
	Brightness *float64 `yaml:"brightness"`
	Contrast   *float64 `yaml:"contrast"`
	Saturation *float64 `yaml:"saturation"`
	Gamma      *float64 `yaml:"gamma"`
	Hue        *float64 `yaml:"hue"`
	Tone       string   `yaml:"tone"`
}

type rawCaptions struct {
	File     string       `yaml:"file"`
	Segments []rawCaption `yaml:"segments"`
}

// rawCaption uses the transcript service's field names.
type rawCaption struct {
	StartTime  any     `yaml:"start_time"`
	EndTime    any     `yaml:"end_time"`
	Text       string  `yaml:"text"`
	Confidence float64 `yaml:"confidence"`
}

// Load reads and validates the plan at path. On validation failure it
// returns the partially built plan together with ValidationErrors.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("plan file is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve plan path: %w", err)
	}
	return Parse(data, filepath.Dir(abs), abs)
}

// Parse decodes a plan document. Relative paths resolve against baseDir.
func Parse(data []byte, baseDir, path string) (*Plan, error) {
	var raw rawPlan
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	var errs ValidationErrors
	plan := &Plan{
		Path:            path,
		Sources:         make(map[string]string, len(raw.Sources)),
		Normalize:       raw.Normalize,
		DuckTransitions: raw.DuckTransitions,
		Preset:          strings.TrimSpace(raw.Preset),
		Output:          strings.TrimSpace(raw.Output),
	}

	for name, p := range raw.Sources {
		name = strings.TrimSpace(name)
		p = strings.TrimSpace(p)
		if name == "" || p == "" {
			errs = append(errs, ValidationError{Section: "sources", Field: name, Message: "name and path are required"})
			continue
		}
		plan.Sources[name] = resolvePath(baseDir, p)
	}

	if len(raw.Clips) == 0 {
		errs = append(errs, ValidationError{Section: "clips", Message: "at least one clip is required"})
	}
	for i, rc := range raw.Clips {
		clip, clipErrs := parseClip(rc, i+1, plan.Sources)
		errs = append(errs, clipErrs...)
		plan.Clips = append(plan.Clips, clip)
	}

	if raw.Transition != nil {
		d, err := parseTime(raw.Transition)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{Section: "transition", Message: err.Error()})
		case d.IsNegative():
			errs = append(errs, ValidationError{Section: "transition", Message: "must not be negative"})
		default:
			plan.Transition = &d
		}
	}

	for i, ro := range raw.Overlays {
		ov, ovErrs := parseOverlay(ro, i+1)
		errs = append(errs, ovErrs...)
		plan.Overlays = append(plan.Overlays, ov)
	}

	captions := raw.Captions.Segments
	if file := strings.TrimSpace(raw.Captions.File); file != "" {
		loaded, err := readCaptionFile(resolvePath(baseDir, file))
		if err != nil {
			errs = append(errs, ValidationError{Section: "captions", Field: "file", Message: err.Error()})
		}
		captions = append(captions, loaded...)
	}
	for i, rc := range captions {
		c, err := parseCaption(rc)
		if err != nil {
			errs = append(errs, ValidationError{Section: "captions", Index: i + 1, Message: err.Error()})
			continue
		}
		plan.Captions = append(plan.Captions, c)
	}

	if d := plan.DuckTransitions; d != nil && (*d < 0 || *d > 1) {
		errs = append(errs, ValidationError{Section: "duck_transitions", Message: "must be between 0 and 1"})
	}

	if raw.Filters != nil {
		g, err := parseFilters(*raw.Filters)
		if err != nil {
			errs = append(errs, ValidationError{Section: "filters", Message: err.Error()})
		} else if !g.Neutral() {
			plan.Grade = &g
		}
	}

	if len(errs) > 0 {
		return plan, errs
	}
	return plan, nil
}

func parseClip(rc rawClip, index int, sources map[string]string) (Clip, []ValidationError) {
	var errs []ValidationError
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Section: "clip", Index: index, Field: field, Message: msg})
	}

	clip := Clip{Index: index, Source: strings.TrimSpace(rc.Source), Snap: SnapNone}
	if clip.Source == "" {
		add("source", "source is required")
	} else if p, ok := sources[clip.Source]; ok {
		clip.Path = p
	} else {
		add("source", fmt.Sprintf("unknown source %q", clip.Source))
	}

	start := timecode.Zero
	if rc.Start != nil {
		t, err := parseTime(rc.Start)
		if err != nil {
			add("start", err.Error())
		} else {
			start = t
		}
	}

	var duration timecode.Time
	switch {
	case rc.End != nil && rc.Duration != nil:
		add("end", "set either end or duration, not both")
	case rc.End != nil:
		end, err := parseTime(rc.End)
		if err != nil {
			add("end", err.Error())
			break
		}
		if !start.Less(end) {
			add("end", "end must be after start")
			break
		}
		duration = end.Sub(start)
	case rc.Duration != nil:
		d, err := parseTime(rc.Duration)
		if err != nil {
			add("duration", err.Error())
			break
		}
		if d.Sign() <= 0 {
			add("duration", "duration must be greater than 0")
			break
		}
		duration = d
	default:
		add("end", "end or duration is required")
	}
	clip.Range = timecode.Range{Start: start, Duration: duration}

	switch SnapMode(strings.ToLower(strings.TrimSpace(rc.Snap))) {
	case "", SnapNone:
		clip.Snap = SnapNone
	case SnapNearest:
		clip.Snap = SnapNearest
	case SnapForward:
		clip.Snap = SnapForward
	default:
		add("snap", fmt.Sprintf("unknown snap mode %q (want none, nearest or forward)", rc.Snap))
	}
	return clip, errs
}

func parseOverlay(ro rawOverlay, index int) (Overlay, []ValidationError) {
	var errs []ValidationError
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Section: "overlay", Index: index, Field: field, Message: msg})
	}
	ov := Overlay{Index: index, Text: strings.TrimSpace(ro.Text)}
	if ov.Text == "" {
		add("text", "text is required")
	}
	start := timecode.Zero
	if ro.Start != nil {
		t, err := parseTime(ro.Start)
		if err != nil {
			add("start", err.Error())
		} else {
			start = t
		}
	}
	if ro.Duration == nil {
		add("duration", "duration is required")
		return ov, errs
	}
	d, err := parseTime(ro.Duration)
	if err != nil {
		add("duration", err.Error())
		return ov, errs
	}
	if d.Sign() <= 0 {
		add("duration", "duration must be greater than 0")
		return ov, errs
	}
	ov.Range = timecode.Range{Start: start, Duration: d}
	return ov, errs
}

func parseFilters(rf rawFilters) (timeline.Grade, error) {
	g := timeline.NeutralGrade()
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&g.Brightness, rf.Brightness)
	set(&g.Contrast, rf.Contrast)
	set(&g.Saturation, rf.Saturation)
	set(&g.Gamma, rf.Gamma)
	set(&g.Hue, rf.Hue)
	tone, err := grade.ParseTone(rf.Tone)
	if err != nil {
		return g, err
	}
	g.Tone = tone
	return g, grade.Validate(g)
}

func parseCaption(rc rawCaption) (Caption, error) {
	if rc.StartTime == nil || rc.EndTime == nil {
		return Caption{}, errors.New("start_time and end_time are required")
	}
	start, err := parseTime(rc.StartTime)
	if err != nil {
		return Caption{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := parseTime(rc.EndTime)
	if err != nil {
		return Caption{}, fmt.Errorf("end_time: %w", err)
	}
	rng, err := timecode.RangeFromTo(start, end)
	if err != nil {
		return Caption{}, err
	}
	return Caption{Range: rng, Text: rc.Text, Confidence: rc.Confidence}, nil
}

// parseTime accepts YAML numbers and clock strings ("1:02.5").
func parseTime(v any) (timecode.Time, error) {
	return timecode.ParseClock(scalarToString(v))
}

// scalarToString converts a YAML scalar value to its string representation.
// yaml.v3 follows YAML 1.2, so "1:40" is already a string.
func scalarToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func resolvePath(base, p string) string {
	if strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	if filepath.IsAbs(p) || base == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
