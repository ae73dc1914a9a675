// cli/update.go
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cyterat/deepstate-map-data/models"
	"github.com/cyterat/deepstate-map-data/services"
)

// NewUpdateCommand creates the update command: fetch, then consolidate.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Fetch today's geometry and append it to the archive if it changed",
		Long: `Runs fetch and consolidate in one go and feeds the configured sinks
(database mirror, S3 bucket, Pushgateway). This is what the daily schedule runs.

Exit codes: 0 appended or unchanged, 1 skipped, 2 archive corrupt or unwritable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			day, err := runDate(date)
			if err != nil {
				return err
			}

			u, cleanup := newUpdater(cmd.Context(), cfg, rootOpts.Logger())
			defer cleanup()

			res, err := u.Update(cmd.Context(), day)
			if err != nil {
				return runError("update "+res.Outcome, err)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "snapshot date YYYY-MM-DD (default: today, UTC)")
	return cmd
}

// NewConsolidateCommand creates the consolidate command.
func NewConsolidateCommand(rootOpts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Append the stored snapshot for a day to the archive",
		Long: `Reads <data_dir>/deepstatemap_data_YYYY-MM-DD.geojson and appends its geometry
to the archive when it differs from the last record. A missing snapshot skips
the run and leaves the archive untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			day, err := runDate(date)
			if err != nil {
				return err
			}

			u, cleanup := newUpdater(cmd.Context(), cfg, rootOpts.Logger())
			defer cleanup()

			res, err := u.Consolidate(cmd.Context(), day)
			if err != nil {
				return runError("consolidate "+res.Outcome, err)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "snapshot date YYYY-MM-DD (default: today, UTC)")
	return cmd
}

func printResult(w io.Writer, res *services.RunResult) {
	rec := res.Consolidation.Record
	if res.Consolidation.Appended {
		fmt.Fprintf(w, "appended record %d (%s), archive has %d records\n",
			rec.ID, models.FormatDate(rec.Date), res.Consolidation.Total)
		return
	}
	fmt.Fprintf(w, "geometry unchanged since record %d (%s), archive has %d records\n",
		rec.ID, models.FormatDate(rec.Date), res.Consolidation.Total)
}
