package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
)

// Outcome is the headline of a finished run.
type Outcome int

const (
	OutcomeImported Outcome = iota
	OutcomeValidated
	OutcomeNothingToImport
	OutcomeFailed
)

// OutcomeOf classifies a run from its error.
func OutcomeOf(result csvimport.ImportResult, err error) Outcome {
	switch {
	case err == nil && result.DryRun:
		return OutcomeValidated
	case err == nil:
		return OutcomeImported
	case errors.Is(err, csvimport.ErrNoValidRows):
		return OutcomeNothingToImport
	default:
		return OutcomeFailed
	}
}

// RenderSummary renders the end-of-run summary. Styling is applied only when
// styled is true; the plain form is stable for scripts and log scrapers.
func RenderSummary(result csvimport.ImportResult, err error, styled bool) string {
	outcome := OutcomeOf(result, err)

	var headline string
	switch outcome {
	case OutcomeImported:
		headline = fmt.Sprintf("%s Imported %d of %d rows into %s", SymbolCheck, result.Inserted, result.Total, result.Table)
	case OutcomeValidated:
		headline = fmt.Sprintf("%s Dry run: %d of %d rows would be imported into %s", SymbolCheck, result.Accepted, result.Total, result.Table)
	case OutcomeNothingToImport:
		headline = fmt.Sprintf("%s No valid rows in %s, nothing imported", SymbolWarning, result.Source)
	default:
		headline = fmt.Sprintf("%s Import failed: %v", SymbolCross, err)
	}

	lines := []string{
		summaryLine("Source", result.Source, styled),
		summaryLine("Rows", fmt.Sprintf("%d read, %d accepted, %d rejected", result.Total, result.Accepted, result.Rejected), styled),
	}
	if reasons := reasonBreakdown(result); reasons != "" {
		lines = append(lines, summaryLine("Rejected", reasons, styled))
	}
	lines = append(lines,
		summaryLine("Duration", result.Duration.Round(time.Millisecond).String(), styled),
		summaryLine("Run ID", result.RunID.String(), styled),
	)

	if !styled {
		return headline + "\n" + strings.Join(lines, "\n") + "\n"
	}

	switch outcome {
	case OutcomeImported, OutcomeValidated:
		headline = SuccessStyle.Render(headline)
	case OutcomeNothingToImport:
		headline = WarningStyle.Render(headline)
	default:
		headline = ErrorStyle.Render(headline)
	}
	body := TitleStyle.Render("csvimport") + "\n" + headline + "\n\n" + strings.Join(lines, "\n")
	return BoxStyle.Render(body) + "\n"
}

func summaryLine(label, value string, styled bool) string {
	if !styled {
		return fmt.Sprintf("  %-9s %s", label+":", value)
	}
	return LabelStyle.Render(label) + " " + value
}

func reasonBreakdown(result csvimport.ImportResult) string {
	counts := result.RejectionsByReason()
	if len(counts) == 0 {
		return ""
	}

	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)

	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = fmt.Sprintf("%s %d", r, counts[csvimport.RejectReason(r)])
	}
	return strings.Join(parts, ", ")
}
