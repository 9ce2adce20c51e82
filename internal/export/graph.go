package export

import (
	"fmt"
	"strconv"
	"strings"

	"splicer/internal/audiomix"
	"splicer/internal/config"
	"splicer/internal/grade"
	"splicer/internal/timecode"
	"splicer/internal/timeline"
)

// Plan is a fully resolved ffmpeg invocation for one composition.
type Plan struct {
	Args     []string
	Output   string
	Preset   Preset
	Width    int
	Height   int
	Duration timecode.Time
	// Overlays maps each overlay index to the PNG path the graph reads.
	Overlays []string
}

// graphInputs tracks ffmpeg input arguments in input-index order.
type graphInputs struct {
	args  []string
	count int
}

func (g *graphInputs) add(args ...string) int {
	g.args = append(g.args, args...)
	g.count++
	return g.count - 1
}

// buildPlan assembles ffmpeg arguments for comp. overlayPaths holds one PNG
// per comp.Overlays entry.
func buildPlan(comp *timeline.Composition, cfg config.Config, preset Preset, output string, overlayPaths []string) (Plan, error) {
	if comp == nil || len(comp.Clips) == 0 {
		return Plan{}, &SessionError{Preset: preset.Name, Reason: "composition is empty"}
	}
	clips := renderedClips(comp)
	if len(clips) == 0 {
		return Plan{}, &SessionError{Preset: preset.Name, Reason: "composition has zero duration"}
	}
	if strings.TrimSpace(output) == "" {
		return Plan{}, &SessionError{Preset: preset.Name, Reason: "output path is empty"}
	}
	if len(overlayPaths) != len(comp.Overlays) {
		return Plan{}, &SessionError{Preset: preset.Name, Reason: "overlay images not prepared"}
	}
	width, height := comp.Width, comp.Height
	if width <= 0 || height <= 0 {
		width, height = cfg.Video.Width, cfg.Video.Height
	}
	if width <= 0 || height <= 0 {
		return Plan{}, &SessionError{Preset: preset.Name, Reason: "invalid canvas dimensions"}
	}
	width, height = preset.canvas(width, height)
	fps := cfg.Video.FPS
	if fps <= 0 {
		fps = 30
	}

	var (
		inputs graphInputs
		chains []string
	)

	holds := make(map[int]timecode.Time, len(comp.Transitions))
	for _, tr := range comp.Transitions {
		holds[tr.Outgoing] = tr.Range.Duration
	}

	clipInputs := make(map[int]int, len(clips))
	for _, i := range clips {
		clip := comp.Clips[i]
		src := clip.Video.SourceRange
		idx := inputs.add(
			"-ss", seconds(src.Start),
			"-t", seconds(clip.Duration),
			"-i", clip.Video.SourceLocator,
		)
		clipInputs[i] = idx
		chains = append(chains, videoChain(idx, clip, holds[i], width, height, fps, i))
	}

	chains = append(chains, joinVideo(comp, clips)...)
	videoOut := "vjoin"

	for i, ov := range comp.Overlays {
		idx := inputs.add(
			"-loop", "1",
			"-t", seconds(comp.Duration()),
			"-i", overlayPaths[i],
		)
		label := fmt.Sprintf("ov%d", i)
		chains = append(chains, fmt.Sprintf(
			"[%d:v]format=rgba,scale=w=%d:h=%d,colorchannelmixer=aa=%s[%s]",
			idx, width, height, formatFloat(clampUnit(ov.Opacity)), label))
		next := fmt.Sprintf("vov%d", i)
		enable := fmt.Sprintf("between(t,%s,%s)", seconds(ov.Range.Start), seconds(ov.Range.End()))
		chains = append(chains, fmt.Sprintf(
			"[%s][%s]overlay=x=0:y=0:enable='%s'[%s]",
			videoOut, label, escapeFilterValue(enable), next))
		videoOut = next
	}
	final := "format=yuv420p"
	if comp.Grade != nil {
		if chain := grade.Chain(*comp.Grade); chain != "" {
			final = chain + "," + final
		}
	}
	chains = append(chains, fmt.Sprintf("[%s]%s[vout]", videoOut, final))

	hasAudio := comp.HasAudio()
	if hasAudio {
		chains = append(chains, audioChains(comp, clips, clipInputs, cfg)...)
	}

	args := []string{"-hide_banner", "-nostdin", "-y"}
	args = append(args, inputs.args...)
	args = append(args,
		"-filter_complex", strings.Join(chains, ";"),
		"-map", "[vout]",
	)
	if hasAudio {
		args = append(args, "-map", "[aout]")
	}
	args = append(args, "-c:v", preset.VideoCodec)
	if preset.Speed != "" {
		args = append(args, "-preset", preset.Speed)
	}
	if preset.VideoBitrate != "" {
		args = append(args, "-b:v", preset.VideoBitrate)
	} else {
		args = append(args, "-crf", strconv.Itoa(preset.CRF))
	}
	args = append(args, "-pix_fmt", "yuv420p", "-r", strconv.Itoa(fps))

	if hasAudio {
		acodec := strings.TrimSpace(cfg.Audio.ACodec)
		if acodec == "" {
			acodec = "aac"
		}
		args = append(args, "-c:a", acodec)
		if preset.AudioBitrateKbps > 0 {
			args = append(args, "-b:a", fmt.Sprintf("%dk", preset.AudioBitrateKbps))
		}
		if cfg.Audio.SampleRate > 0 {
			args = append(args, "-ar", strconv.Itoa(cfg.Audio.SampleRate))
		}
		if cfg.Audio.Channels > 0 {
			args = append(args, "-ac", strconv.Itoa(cfg.Audio.Channels))
		}
	}

	args = append(args,
		"-t", seconds(comp.Duration()),
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		output,
	)

	return Plan{
		Args:     args,
		Output:   output,
		Preset:   preset,
		Width:    width,
		Height:   height,
		Duration: comp.Duration(),
		Overlays: overlayPaths,
	}, nil
}

// videoChain conforms one clip to the canvas and freezes its last frame for
// the length of the fade into the next clip.
func videoChain(input int, clip timeline.Clip, hold timecode.Time, width, height, fps, index int) string {
	filters := []string{
		fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=1:flags=lanczos", width, height),
		fmt.Sprintf("pad=w=%d:h=%d:x=(ow-iw)/2:y=(oh-ih)/2:color=black", width, height),
		"setsar=1",
		fmt.Sprintf("fps=%d", fps),
		"format=yuv420p",
		"trim=duration=" + seconds(clip.Duration),
		"setpts=PTS-STARTPTS",
	}
	if hold.Sign() > 0 {
		filters = append(filters, "tpad=stop_mode=clone:stop_duration="+seconds(hold))
	}
	filters = append(filters, "settb=AVTB")
	return fmt.Sprintf("[%d:%d]%s[v%d]", input, clip.Video.SourceTrackIndex, strings.Join(filters, ","), index)
}

// renderedClips lists the indices of clips that carry frames. Zero-length
// clips occupy no time and have no transitions, so the graph leaves them out.
func renderedClips(comp *timeline.Composition) []int {
	var out []int
	for i, clip := range comp.Clips {
		if clip.Duration.Sign() > 0 {
			out = append(out, i)
		}
	}
	return out
}

// joinVideo chains the rendered clips in order: xfade where a transition
// starts at the junction, concat otherwise. The result is labelled vjoin.
func joinVideo(comp *timeline.Composition, clips []int) []string {
	incoming := make(map[int]timeline.Transition, len(comp.Transitions))
	for _, tr := range comp.Transitions {
		incoming[tr.Incoming] = tr
	}

	if len(clips) == 1 {
		return []string{fmt.Sprintf("[v%d]null[vjoin]", clips[0])}
	}

	var chains []string
	acc := fmt.Sprintf("v%d", clips[0])
	for n, i := range clips[1:] {
		out := fmt.Sprintf("x%d", i)
		if n == len(clips)-2 {
			out = "vjoin"
		}
		if tr, ok := incoming[i]; ok && tr.Range.Duration.Sign() > 0 {
			chains = append(chains, fmt.Sprintf(
				"[%s][v%d]xfade=transition=fade:duration=%s:offset=%s[%s]",
				acc, i, seconds(tr.Range.Duration), seconds(tr.Range.Start), out))
		} else {
			chains = append(chains, fmt.Sprintf("[%s][v%d]concat=n=2:v=1:a=0[%s]", acc, i, out))
		}
		acc = out
	}
	return chains
}

// audioChains trims each clip's audio, concatenates them and applies the
// volume automation and loudness filter.
func audioChains(comp *timeline.Composition, clips []int, clipInputs map[int]int, cfg config.Config) []string {
	var (
		chains []string
		labels strings.Builder
	)
	for _, i := range clips {
		clip := comp.Clips[i]
		filters := []string{
			"atrim=duration=" + seconds(clip.Duration),
			"asetpts=PTS-STARTPTS",
		}
		if cfg.Audio.SampleRate > 0 {
			filters = append(filters, fmt.Sprintf("aresample=%d", cfg.Audio.SampleRate))
		}
		filters = append(filters, "aformat=sample_fmts=fltp:channel_layouts="+channelLayout(cfg.Audio.Channels))
		chains = append(chains, fmt.Sprintf("[%d:%d]%s[a%d]", clipInputs[i], clip.Audio.SourceTrackIndex, strings.Join(filters, ","), i))
		fmt.Fprintf(&labels, "[a%d]", i)
	}

	post := []string{fmt.Sprintf("concat=n=%d:v=0:a=1", len(clips))}
	if expr := audiomix.VolumeExpression(comp.AudioMix); expr != "" {
		post = append(post, fmt.Sprintf("volume='%s':eval=frame", escapeFilterValue(expr)))
	}
	if loudnorm := audiomix.LoudnormFilter(cfg.Audio.Loudnorm); loudnorm != "" {
		post = append(post, loudnorm)
		if cfg.Audio.SampleRate > 0 {
			post = append(post, fmt.Sprintf("aresample=%d", cfg.Audio.SampleRate))
		}
	}
	chains = append(chains, labels.String()+strings.Join(post, ",")+"[aout]")
	return chains
}

func channelLayout(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 0, 2:
		return "stereo"
	default:
		return strconv.Itoa(channels) + "c"
	}
}

func seconds(t timecode.Time) string {
	return t.Decimal(6)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// escapeFilterValue escapes characters that separate filter options. Values
// are wrapped in single quotes by the caller.
func escapeFilterValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, ":", `\:`)
	value = strings.ReplaceAll(value, ",", `\,`)
	value = strings.ReplaceAll(value, "'", `\'`)
	return value
}
