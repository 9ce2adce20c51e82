package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"splicer/internal/compose"
	"splicer/internal/export"
	"splicer/internal/keyframe"
	"splicer/internal/media"
	"splicer/internal/overlay"
	"splicer/internal/provenance"
	"splicer/internal/tui"
	"splicer/pkg/editplan"
)

var (
	composePreset     string
	composeOutput     string
	composeForce      bool
	composeNoProgress bool
	composeDryRun     bool
)

func newComposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose [plan.yaml]",
		Short: "Build the edit plan's timeline and export it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCompose,
	}
	cmd.Flags().StringVar(&composePreset, "preset", "", "Export preset (highest, balanced, low or a configured name)")
	cmd.Flags().StringVarP(&composeOutput, "output", "o", "", "Output file; bare names land in exports/")
	cmd.Flags().BoolVar(&composeForce, "force", false, "Export even when the previous export is up to date")
	cmd.Flags().BoolVar(&composeNoProgress, "no-progress", false, "Disable the interactive progress display")
	cmd.Flags().BoolVar(&composeDryRun, "dry-run", false, "Print the ffmpeg invocation without exporting")
	return cmd
}

var composeColumns = []tui.Column{
	{Header: "CLIP", Width: 4},
	{Header: "SOURCE", Width: 16},
	{Header: "STATUS", Width: 10},
	{Header: "RANGE", Width: 24},
	{Header: "DURATION", Width: 8},
	{Header: "DETAIL", Width: 40},
}

func runCompose(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment("compose", true)
	if err != nil {
		return err
	}
	defer env.Close()

	pp := env.paths
	if len(args) > 0 {
		pp = pp.WithPlan(args[0])
	}
	plan, err := editplan.Load(pp.PlanFile)
	if err != nil {
		var verrs editplan.ValidationErrors
		if errors.As(err, &verrs) {
			return writePlanIssues(cmd, pp.PlanFile, verrs)
		}
		return err
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		return err
	}

	output := pp.OutputPath(firstNonEmpty(composeOutput, plan.Output, defaultOutputName(pp.PlanFile)))

	store, err := provenance.Open(pp.ProvenanceFile, env.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newComposeService(env, store)
	if err != nil {
		return err
	}
	opts := compose.Options{
		Output: output,
		Preset: composePreset,
		Force:  composeForce,
		DryRun: composeDryRun,
	}

	env.logger.Info("compose",
		zap.String("plan", pp.PlanFile),
		zap.String("output", output),
		zap.Int("clips", len(plan.Clips)),
		zap.Bool("dry_run", composeDryRun),
	)

	var res compose.Result
	switch tui.DetectMode(cmd.OutOrStdout(), composeNoProgress || composeDryRun, outputJSON) {
	case tui.ModeJSON:
		res, err = svc.Run(cmd.Context(), plan, opts)
		if err != nil {
			return err
		}
		return writeJSON(cmd, res)
	case tui.ModeTUI:
		model := tui.NewProgressModel(fmt.Sprintf("splicer compose: %s", filepath.Base(pp.PlanFile)), composeColumns)
		for _, clip := range plan.Clips {
			model.AddRow(compose.ClipKey(clip.Index), []string{
				compose.ClipKey(clip.Index), clip.Source, compose.StatusPending, clip.Range.String(), "", "",
			})
		}
		err = tui.RunWithWork(cmd.Context(), cmd.OutOrStdout(), model, func(ctx context.Context, r tui.Reporter) error {
			var runErr error
			opts.Reporter = r
			res, runErr = svc.Run(ctx, plan, opts)
			return runErr
		})
	default:
		opts.Reporter = tui.NewPlainReporter(cmd.ErrOrStderr(), 10)
		res, err = svc.Run(cmd.Context(), plan, opts)
	}
	if err != nil {
		if errors.Is(err, export.ErrExportCancelled) {
			cmd.PrintErrln("export cancelled")
		}
		return err
	}

	writeComposeSummary(cmd, res)
	return nil
}

func newComposeService(env *environment, store *provenance.Store) (*compose.Service, error) {
	renderer, err := overlay.NewRenderer(env.config.Overlay.FontSize, env.config.Overlay.FontFile)
	if err != nil {
		return nil, err
	}
	exporter := export.New(env.runner, env.tools.FFmpeg, env.config, env.logger)
	exporter.OverlayDir = env.paths.OverlaysDir
	return &compose.Service{
		Config:   env.config,
		Catalog:  media.NewCatalog(env.runner, env.tools.FFprobe, env.logger),
		Locator:  keyframe.NewLocator(env.runner, env.tools.FFprobe, env.logger, keyframeOptions(env)),
		Exporter: exporter,
		Renderer: renderer,
		Store:    store,
		Logger:   env.logger,
	}, nil
}

func writeComposeSummary(cmd *cobra.Command, res compose.Result) {
	w := cmd.OutOrStdout()
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	switch {
	case res.Skipped:
		fmt.Fprintf(w, "%s is %s (preset %s); use --force to export again\n", res.Output, res.Reason, res.Preset)
	case len(res.Args) > 0:
		fmt.Fprintln(w, "ffmpeg "+quoteArgs(res.Args))
	default:
		fmt.Fprintf(w, "Exported %s (%ss, preset %s, %d clips, %d overlays, %d captions) in %s\n",
			res.Output, res.Duration.Decimal(3), res.Preset,
			len(res.Clips), res.Overlays, res.Captions, res.Elapsed.Round(10*time.Millisecond))
	}
}

func writePlanIssues(cmd *cobra.Command, planPath string, verrs editplan.ValidationErrors) error {
	if outputJSON {
		if err := writeJSON(cmd, map[string]any{"plan": planPath, "errors": verrs.Issues()}); err != nil {
			return err
		}
		return verrs
	}
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "%s has %d problem(s):\n", planPath, len(verrs))
	for _, issue := range verrs.Issues() {
		fmt.Fprintf(w, "  - %s\n", issue.Error())
	}
	return fmt.Errorf("invalid edit plan %s", filepath.Base(planPath))
}

func defaultOutputName(planPath string) string {
	base := strings.TrimSuffix(filepath.Base(planPath), filepath.Ext(planPath))
	return base + ".mp4"
}

func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t'\";[]()=,\\") {
			quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
