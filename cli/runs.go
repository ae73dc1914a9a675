// cli/runs.go
package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyterat/deepstate-map-data/models"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs from the database run log",
		Long: `Prints the most recent rows of the run log kept in the configured database,
newest first: when the run finished, the snapshot date, the outcome, the
appended record id and the archive size. Skipped and failed runs show their
error message.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return NewExitError(ExitCommandError, "--limit must be positive")
			}
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			store, err := openMirror(cmd.Context(), cfg, rootOpts.Logger())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return WrapExitError(ExitFatal, "cannot read run log", err)
			}
			writeRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func writeRuns(w io.Writer, runs []models.RunEntry) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs logged")
		return
	}
	for _, r := range runs {
		record := "-"
		if r.RecordID != nil {
			record = strconv.Itoa(*r.RecordID)
		}
		fmt.Fprintf(w, "%s  %s  %-9s  record=%s  records=%d\n",
			r.RunAt.UTC().Format(time.RFC3339), r.SnapshotDate, r.Outcome, record, r.ArchiveRecords)
		if r.Message != "" {
			fmt.Fprintf(w, "    %s\n", r.Message)
		}
	}
}
