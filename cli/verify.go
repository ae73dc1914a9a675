// cli/verify.go
package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cyterat/deepstate-map-data/archive"
	"github.com/cyterat/deepstate-map-data/models"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	var checkMirror bool

	cmd := &cobra.Command{
		Use:   "verify [archive]",
		Short: "Check the archive's ids, dates and geometries",
		Long: `Loads the archive (default: the configured one) and reports every record that
breaks the archive rules: ids counting up from 0, strictly increasing dates,
no two consecutive identical geometries, and valid EPSG:4326 multipolygons.
With --db, every mirrored record is also compared with the archive.

Exit codes: 0 clean, 1 violations found, 2 archive unreadable.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			path := cfg.Storage.Archive
			if len(args) == 1 {
				path = args[0]
			}

			a, err := archive.Load(path)
			if err != nil {
				return WrapExitError(ExitFatal, "cannot verify archive", err)
			}
			violations := a.Verify()
			if checkMirror {
				store, err := openMirror(cmd.Context(), cfg, rootOpts.Logger())
				if err != nil {
					return err
				}
				defer store.Close()
				mirrorViolations, err := store.VerifyMirror(cmd.Context(), a)
				if err != nil {
					return WrapExitError(ExitFatal, "cannot read database mirror", err)
				}
				violations = append(violations, mirrorViolations...)
			}
			writeVerifyReport(cmd.OutOrStdout(), path, a, violations)
			if len(violations) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("archive has %d violations", len(violations)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkMirror, "db", false, "also compare the configured database mirror with the archive")
	return cmd
}

func writeVerifyReport(w io.Writer, path string, a *archive.Archive, violations []archive.Violation) {
	fmt.Fprintf(w, "archive: %s\n", filepath.Base(path))
	fmt.Fprintf(w, "records: %d\n", a.Len())
	if a.Len() > 0 {
		first, last := a.Records[0], a.Records[a.Len()-1]
		fmt.Fprintf(w, "first: %d %s\n", first.ID, models.FormatDate(first.Date))
		fmt.Fprintf(w, "last: %d %s\n", last.ID, models.FormatDate(last.Date))
	}
	fmt.Fprintf(w, "violations: %d\n", len(violations))
	for _, v := range violations {
		fmt.Fprintf(w, "  %s\n", v)
	}
}
