package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"splicer/internal/config"
	"splicer/internal/paths"
	"splicer/internal/provenance"
	"splicer/internal/tools"
	"splicer/pkg/editplan"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, config, edit plan and export history",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	cfg, cfgErr := config.Load(pp.ConfigFile)
	checks := []healthCheck{checkConfig(cfg, cfgErr)}
	if cfgErr != nil {
		cfg = config.Default()
		cfg.ApplyDefaults()
	}
	checks = append(checks, checkTools(cmd, cfg))
	checks = append(checks, checkPlan(pp))
	checks = append(checks, checkHistory(cmd, pp))

	return writeDoctorResult(cmd, pp.Root, checks)
}

func checkTools(cmd *cobra.Command, cfg config.Config) healthCheck {
	statuses, err := tools.Detect(cmd.Context(), cfg.Tools, newRunner())
	if err != nil {
		return healthCheck{Name: "Tools", Status: "error", Summary: err.Error()}
	}

	var satisfied int
	var info, problems []string
	for _, st := range statuses {
		if st.Satisfied {
			satisfied++
			label := st.Tool
			if st.Version != "" {
				label += " " + st.Version
			}
			info = append(info, label)
			continue
		}
		problems = append(problems, fmt.Sprintf("%s: %s", st.Tool, st.Error))
	}

	if satisfied == len(statuses) {
		return healthCheck{Name: "Tools", Status: "ok", Summary: joinComma(info)}
	}
	return healthCheck{
		Name:    "Tools",
		Status:  "error",
		Summary: fmt.Sprintf("%d of %d tools satisfied; %s", satisfied, len(statuses), strings.Join(problems, "; ")),
	}
}

func checkConfig(cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	var warnings, errs []string
	for _, v := range cfg.Validate() {
		switch v.Level {
		case "warning":
			warnings = append(warnings, v.Message)
		case "error":
			errs = append(errs, v.Message)
		}
	}

	summary := fmt.Sprintf("%dx%d@%d, presets: %s", cfg.Video.Width, cfg.Video.Height, cfg.Video.FPS, joinComma(cfg.PresetNames()))
	if len(errs) > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors: %s", summary, len(errs), strings.Join(errs, "; "))}
	}
	if len(warnings) > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings: %s", summary, len(warnings), strings.Join(warnings, "; "))}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

func checkPlan(pp paths.ProjectPaths) healthCheck {
	exists, err := paths.FileExists(pp.PlanFile)
	if err != nil {
		return healthCheck{Name: "Plan", Status: "error", Summary: err.Error()}
	}
	if !exists {
		return healthCheck{Name: "Plan", Status: "warning", Summary: "no plan.yaml; run splicer init"}
	}
	plan, err := editplan.Load(pp.PlanFile)
	if err != nil {
		return healthCheck{Name: "Plan", Status: "error", Summary: err.Error()}
	}

	missing := 0
	for _, path := range plan.Sources {
		if ok, _ := paths.FileExists(path); !ok {
			missing++
		}
	}
	summary := fmt.Sprintf("%d clips, %d sources, %d overlays, %d captions",
		len(plan.Clips), len(plan.Sources), len(plan.Overlays), len(plan.Captions))
	if missing > 0 {
		return healthCheck{Name: "Plan", Status: "error", Summary: fmt.Sprintf("%s; %d source files missing", summary, missing)}
	}
	return healthCheck{Name: "Plan", Status: "ok", Summary: summary}
}

func checkHistory(cmd *cobra.Command, pp paths.ProjectPaths) healthCheck {
	exists, err := paths.FileExists(pp.ProvenanceFile)
	if err != nil {
		return healthCheck{Name: "History", Status: "warning", Summary: err.Error()}
	}
	if !exists {
		return healthCheck{Name: "History", Status: "ok", Summary: "no exports yet"}
	}
	store, err := provenance.Open(pp.ProvenanceFile, nil)
	if err != nil {
		return healthCheck{Name: "History", Status: "error", Summary: err.Error()}
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), 0)
	if err != nil {
		return healthCheck{Name: "History", Status: "error", Summary: err.Error()}
	}
	counts := map[provenance.Status]int{}
	for _, rec := range records {
		counts[rec.Status]++
	}
	summary := fmt.Sprintf("%d exports (%d succeeded, %d failed, %d cancelled)",
		len(records), counts[provenance.StatusSucceeded], counts[provenance.StatusFailed], counts[provenance.StatusCancelled])
	if len(records) > 0 && records[0].Status == provenance.StatusFailed {
		return healthCheck{Name: "History", Status: "warning", Summary: summary + "; last export failed: " + records[0].Error}
	}
	return healthCheck{Name: "History", Status: "ok", Summary: summary}
}

func writeDoctorResult(cmd *cobra.Command, projectRoot string, checks []healthCheck) error {
	if outputJSON {
		return writeJSON(cmd, checks)
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("PROJECT HEALTH:")+" "+projectRoot)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-12s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}
	return nil
}

func joinComma(items []string) string {
	return strings.Join(items, ", ")
}
