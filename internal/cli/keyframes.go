package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"splicer/internal/keyframe"
	"splicer/internal/media"
	"splicer/internal/timecode"
)

var (
	keyframesAt      string
	keyframesForward bool
)

func newKeyframesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyframes <file>",
		Short: "List keyframes of the first video track, or find the one nearest a time",
		Args:  cobra.ExactArgs(1),
		RunE:  runKeyframes,
	}
	cmd.Flags().StringVar(&keyframesAt, "at", "", "Report the keyframe nearest this time (seconds or clock)")
	cmd.Flags().BoolVar(&keyframesForward, "forward", false, "Only consider keyframes at or after --at")
	return cmd
}

type keyframesOutput struct {
	Locator   string          `json:"locator"`
	Stream    int             `json:"stream"`
	Inferred  bool            `json:"inferred"`
	Keyframes []timecode.Time `json:"keyframes,omitempty"`
	At        *timecode.Time  `json:"at,omitempty"`
	Nearest   *timecode.Time  `json:"nearest,omitempty"`
	Direction string          `json:"direction,omitempty"`
}

func runKeyframes(cmd *cobra.Command, args []string) error {
	var at *timecode.Time
	if strings.TrimSpace(keyframesAt) != "" {
		t, err := timecode.ParseClock(keyframesAt)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		at = &t
	} else if keyframesForward {
		return errors.New("--forward requires --at")
	}

	env, err := loadEnvironment("keyframes", true)
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
	videos, err := asset.Tracks(cmd.Context(), media.KindVideo)
	if err != nil {
		return err
	}
	audios, err := asset.Tracks(cmd.Context(), media.KindAudio)
	if err != nil {
		return err
	}
	status.Streams(len(videos) + len(audios))
	if len(videos) == 0 {
		return fmt.Errorf("%s has no video track", asset.Locator)
	}
	track := videos[0]

	status.Scanning(args[0], track.Index)
	opts := keyframeOptions(env)
	opts.Progress = status.Packets
	locator := keyframe.NewLocator(env.runner, env.tools.FFprobe, env.logger, opts)
	set, err := locator.Scan(cmd.Context(), asset, track)
	if err != nil {
		return err
	}
	status.Stop()

	out := keyframesOutput{Locator: asset.Locator, Stream: track.Index, Inferred: set.Inferred}
	if at != nil {
		dir := keyframe.DirectionAny
		if keyframesForward {
			dir = keyframe.DirectionForward
		}
		nearest := set.Nearest(*at, dir)
		out.At, out.Nearest, out.Direction = at, &nearest, dir.String()
	} else {
		out.Keyframes = set.Times
	}

	if outputJSON {
		return writeJSON(cmd, out)
	}

	w := cmd.OutOrStdout()
	if out.Inferred {
		fmt.Fprintf(w, "note: stream %d carries no keyframe flags; showing inferred positions\n", out.Stream)
	}
	if out.Nearest != nil {
		fmt.Fprintf(w, "%s (%s) -> %s\n", out.At.Decimal(3), out.Direction, out.Nearest.Decimal(6))
		return nil
	}
	for _, t := range out.Keyframes {
		fmt.Fprintln(w, t.Decimal(6))
	}
	fmt.Fprintf(w, "%d keyframes\n", len(out.Keyframes))
	return nil
}

func keyframeOptions(env *environment) keyframe.Options {
	return keyframe.Options{
		Interval: timecode.FromMillis(int64(env.config.Keyframes.FallbackIntervalMS)),
		Epsilon:  timecode.FromMillis(int64(env.config.Keyframes.EpsilonMS)),
	}
}
