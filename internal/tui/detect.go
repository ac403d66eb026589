package tui

import (
	"os"

	"golang.org/x/term"
)

// Mode represents how csvimport renders operator-facing output.
type Mode int

const (
	// ModePlain is used for CI/CD pipelines, scheduled jobs and redirected output.
	ModePlain Mode = iota
	// ModeStyled is used when a human is watching the terminal.
	ModeStyled
)

// DetectMode determines whether output written to f should be styled.
//
// Returns ModePlain if:
//   - CSVIMPORT_PLAIN=1 is set
//   - CI is set (common CI/CD convention)
//   - NO_COLOR is set (accessibility/automation indicator)
//   - f is not a terminal (redirected to a file or pipe)
//
// Returns ModeStyled otherwise.
func DetectMode(f *os.File) Mode {
	if os.Getenv("CSVIMPORT_PLAIN") == "1" {
		return ModePlain
	}
	if os.Getenv("CI") != "" {
		return ModePlain
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModePlain
	}

	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return ModePlain
	}

	return ModeStyled
}

// IsStyled is a convenience function that returns true if output to f should be styled.
func IsStyled(f *os.File) bool {
	return DetectMode(f) == ModeStyled
}
