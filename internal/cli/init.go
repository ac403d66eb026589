package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/config"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a commented csvimport.yaml",
		Long: `Write a csvimport.yaml template into dir (default: current directory).
An existing file is kept unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			path, err := config.WriteTemplate(dir, force)
			if err != nil {
				return fmt.Errorf("%w: %w", err, csvimport.ErrInvalidConfig)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing csvimport.yaml")
	return cmd
}
