package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"splicer/internal/media"
	"splicer/internal/timecode"
	"splicer/internal/tui"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Show the tracks of a media file",
		Args:  cobra.ExactArgs(1),
		RunE:  runProbe,
	}
}

type probeTrack struct {
	Index      int            `json:"index"`
	Kind       string         `json:"kind"`
	Codec      string         `json:"codec"`
	Range      timecode.Range `json:"range"`
	TimeBase   string         `json:"time_base"`
	FrameRate  string         `json:"frame_rate,omitempty"`
	Width      int            `json:"width,omitempty"`
	Height     int            `json:"height,omitempty"`
	SampleRate int            `json:"sample_rate,omitempty"`
	Channels   int            `json:"channels,omitempty"`
}

type probeOutput struct {
	Locator  string        `json:"locator"`
	Duration timecode.Time `json:"duration"`
	Tracks   []probeTrack  `json:"tracks"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment("probe", true)
	if err != nil {
		return err
	}
	defer env.Close()

	status := newScanStatus(cmd)
	defer status.Stop()
	status.Inspecting(args[0])

	catalog := media.NewCatalog(env.runner, env.tools.FFprobe, env.logger)
	defer catalog.Close()

	asset, err := catalog.Open(cmd.Context(), env.paths.Resolve(args[0]))
	if err != nil {
		return err
	}

	out := probeOutput{Locator: asset.Locator, Duration: asset.Duration}
	for _, kind := range []media.Kind{media.KindVideo, media.KindAudio} {
		tracks, err := asset.Tracks(cmd.Context(), kind)
		if err != nil {
			return err
		}
		for _, tr := range tracks {
			pt := probeTrack{
				Index:      tr.Index,
				Kind:       tr.Kind.String(),
				Codec:      tr.Codec,
				Range:      tr.Range,
				TimeBase:   tr.TimeBase.Rational(),
				Width:      tr.Width,
				Height:     tr.Height,
				SampleRate: tr.SampleRate,
				Channels:   tr.Channels,
			}
			if tr.FrameRate.Sign() > 0 {
				pt.FrameRate = tr.FrameRate.Rational()
			}
			out.Tracks = append(out.Tracks, pt)
		}
	}
	status.Streams(len(out.Tracks))
	status.Stop()

	if outputJSON {
		return writeJSON(cmd, out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s  (%ss)\n", out.Locator, out.Duration.Decimal(3))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tKIND\tCODEC\tSTART\tDURATION\tDETAIL")
	for _, tr := range out.Tracks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			tr.Index, tr.Kind, tr.Codec,
			tr.Range.Start.Decimal(3), tr.Range.Duration.Decimal(3), trackDetail(tr))
	}
	return tw.Flush()
}

func trackDetail(tr probeTrack) string {
	var parts []string
	if tr.Width > 0 && tr.Height > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", tr.Width, tr.Height))
	}
	if tr.FrameRate != "" {
		parts = append(parts, tr.FrameRate+" fps")
	}
	if tr.SampleRate > 0 {
		parts = append(parts, fmt.Sprintf("%d Hz", tr.SampleRate))
	}
	if tr.Channels > 0 {
		parts = append(parts, fmt.Sprintf("%d ch", tr.Channels))
	}
	parts = append(parts, "tb "+tr.TimeBase)
	return strings.Join(parts, ", ")
}

// newScanStatus reports inspect and keyframe stages on stderr. JSON output
// gets a status that discards everything.
func newScanStatus(cmd *cobra.Command) *tui.ScanStatus {
	if outputJSON {
		return tui.NewScanStatus(io.Discard, false)
	}
	w := cmd.ErrOrStderr()
	return tui.NewScanStatus(w, tui.Interactive(w))
}
