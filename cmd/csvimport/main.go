package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/cli"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(csvimport.ExitPanic)
		}
	}()

	if os.Getenv("CSVIMPORT_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(csvimport.ExitCodeForError(err))
	}
}
