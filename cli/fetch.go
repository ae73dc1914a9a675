// cli/fetch.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyterat/deepstate-map-data/scraper"
)

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download today's geometry into a dated snapshot file",
		Long: `Downloads the current map from the source, keeps the configured occupied
territory polygons, validates them and writes
<data_dir>/deepstatemap_data_YYYY-MM-DD.geojson. An existing snapshot for the
day is left as it is.`,
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

			f := scraper.NewFetcher(cfg, rootOpts.Logger())
			snap, path, err := f.FetchAndStore(cmd.Context(), day)
			if err != nil {
				return runError("fetch failed", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d polygons)\n", path, len(snap.Geometry))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "snapshot date YYYY-MM-DD (default: today, UTC)")
	return cmd
}
