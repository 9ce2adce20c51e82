package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"splicer/internal/provenance"
	"splicer/internal/tui"
)

var historyLimit int

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded exports, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum records to show (0 for all)")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	env, err := loadEnvironment("history", false)
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := provenance.Open(env.paths.ProvenanceFile, env.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if outputJSON {
		if records == nil {
			records = []provenance.Record{}
		}
		return writeJSON(cmd, records)
	}

	if len(records) == 0 {
		cmd.Println("No exports recorded yet.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tPRESET\tDURATION\tELAPSED\tOUTPUT")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3fs\t%s\t%s\n",
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Status,
			rec.Preset,
			rec.DurationS,
			tui.NonEmptyOrDash(elapsed(rec)),
			rec.Output,
		)
	}
	return tw.Flush()
}

func elapsed(rec provenance.Record) string {
	if rec.FinishedAt == nil {
		return ""
	}
	return rec.FinishedAt.Sub(rec.StartedAt).Round(time.Second / 10).String()
}
