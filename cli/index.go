// cli/index.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyterat/deepstate-map-data/archive"
	"github.com/cyterat/deepstate-map-data/report"
)

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Write the per-record CSV history index",
		Long: `Writes one CSV row per archive record with its id, date, polygon, ring and
point counts and geodesic area in square kilometres.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if output == "" {
				output = cfg.Storage.Index
			}

			a, err := archive.Load(cfg.Storage.Archive)
			if err != nil {
				return WrapExitError(ExitFatal, "cannot read archive", err)
			}
			if err := report.WriteIndexFile(output, a); err != nil {
				return WrapExitError(ExitFatal, "cannot write index", err)
			}
			rootOpts.Logger().Info("history index written", "path", output, "rows", a.Len())
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "index file path (default: storage.index)")
	return cmd
}
