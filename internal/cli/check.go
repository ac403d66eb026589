package cli

import (
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	flags := &importFlagValues{dryRun: true}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the source file without touching the database",
		Long: `Parse and validate the source file exactly as run would, report every
rejected row and a per-reason summary, then stop before connecting.

Equivalent to "csvimport run --dry-run".

Examples:
  csvimport check -f sample_data.csv
  csvimport check -f export.tsv --delimiter tab --fail-on-empty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, flags)
		},
	}

	registerSourceFlags(cmd, flags)
	return cmd
}
