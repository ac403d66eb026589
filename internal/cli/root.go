package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "csvimport",
		Short: "Load a delimited sales file into a relational table",
		Long: `csvimport reads a delimited text file, validates every row and loads the
valid rows into a database table in a single transaction, creating the table
if it does not exist.

Rows that fail validation are logged with their line number and skipped.
Nothing is written when no row is valid.

Configuration precedence: flags > environment > csvimport.yaml > defaults.
A .env file in the working directory is loaded first.

Exit Codes:
  0  - Success (also when no row was valid, unless --fail-on-empty)
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Database connection failed
  12 - Destination table could not be created
  13 - Insert failed, nothing was imported
  14 - Source file not found
  15 - Source file could not be read or parsed
  16 - No valid rows (only with --fail-on-empty)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	root.PersistentFlags().String("config", "",
		"Path to csvimport.yaml, or the directory containing it\n"+
			"(default: ./csvimport.yaml when present)")

	root.AddCommand(newRunCmd(), newCheckCmd(), newInitCmd(), newVersionCmd())
	return root
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}

	err := rootCmd.Execute()
	if err != nil && !isReported(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

// getConfigFlag safely retrieves the config flag value
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return ""
	}
	return path
}

// reportedError marks an error that has already been written to the log sink.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

func isReported(err error) bool {
	_, ok := err.(*reportedError)
	return ok
}
