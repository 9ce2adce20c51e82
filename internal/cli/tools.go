package cli

import (
	"errors"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"splicer/internal/tools"
)

var toolsStrict bool

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Show how ffmpeg and ffprobe resolve, and whether they qualify",
		RunE:  runTools,
	}
	cmd.Flags().BoolVar(&toolsStrict, "strict", false, "Fail when a required tool is missing or outdated")
	return cmd
}

func runTools(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	statuses, err := tools.Detect(cmd.Context(), cfg.Tools, newRunner())
	if err != nil {
		return err
	}

	if outputJSON {
		if err := writeJSON(cmd, statuses); err != nil {
			return err
		}
	} else {
		printStatusTable(cmd, statuses)
	}

	if toolsStrict {
		var problems []string
		for _, st := range statuses {
			if !st.Satisfied {
				problems = append(problems, st.Tool+": "+st.Error)
			}
		}
		if len(problems) > 0 {
			return errors.New(strings.Join(problems, "; "))
		}
	}
	return nil
}

func printStatusTable(cmd *cobra.Command, statuses []tools.Status) {
	if len(statuses) == 0 {
		cmd.Println("(no tool statuses)")
		return
	}

	rows := make([]tools.Status, len(statuses))
	copy(rows, statuses)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Tool < rows[j].Tool
	})

	cmd.Printf("%-10s %-8s %-12s %-7s %s\n", "Tool", "Source", "Version", "OK", "Path")
	for _, st := range rows {
		ok := "no"
		if st.Satisfied {
			ok = "yes"
		}
		path := st.Path
		if path == "" {
			path = "(missing)"
		}
		cmd.Printf("%-10s %-8s %-12s %-7s %s\n", st.Tool, st.Source, st.Version, ok, path)
		if st.Error != "" {
			cmd.Printf("  error: %s\n", st.Error)
		}
		for _, note := range st.Notes {
			cmd.Printf("  note: %s\n", note)
		}
	}
}
