package triage

import (
	"fmt"
	"strings"
)

// maxReportLength bounds how much of the raw tenant report is echoed into
// the landlord/vendor-facing summary, counted in characters, not bytes.
const maxReportLength = 180

// BuildSummary composes the human-readable issue description shown to
// landlords and vendors. Deterministic for a given report and category.
func BuildSummary(report string, category Category) string {
	truncated := report
	if runes := []rune(report); len(runes) > maxReportLength {
		truncated = string(runes[:maxReportLength]) + "..."
	}
	return fmt.Sprintf(
		"%s issue. Tenant report: %s Started: %s. Severity: %s.",
		titleCase(string(category)),
		truncated,
		ExtractOnset(report),
		ExtractSeverity(report),
	)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
