// Package triage turns a free-text tenant report into a category, severity,
// onset phrase and cost estimate. Everything here is pure: no storage, no
// clock, no network.
package triage

import (
	"strings"
)

// Category is the closed set of maintenance issue categories.
type Category string

const (
	CategoryHeating    Category = "heating"
	CategoryPlumbing   Category = "plumbing"
	CategoryElectrical Category = "electrical"
	CategoryOther      Category = "other"
)

// Severity is the three-tier urgency classification of a report.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// categoryKeywords is scanned in priority order: the first category with any
// substring match wins, so a report mentioning both a leak and an outlet is
// plumbing, not electrical.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryHeating, []string{"heater", "heat", "furnace", "thermostat", "ac"}},
	{CategoryPlumbing, []string{"leak", "pipe", "sink", "toilet", "faucet", "drain"}},
	{CategoryElectrical, []string{"outlet", "breaker", "electric", "power", "light"}},
}

var (
	highKeywords   = []string{"urgent", "emergency", "asap", "flood", "sparking", "gas", "no heat"}
	mediumKeywords = []string{"leak", "not working", "broken", "stopped", "no hot water"}
)

// onsetPhrases is ordered; the first phrase found in the report is returned.
var onsetPhrases = []string{"today", "yesterday", "this morning", "last night", "last week"}

// Classify maps a free-text report to an issue category. Empty or
// unrecognized text falls through to CategoryOther.
func Classify(report string) Category {
	normalized := strings.ToLower(report)
	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(normalized, keyword) {
				return entry.category
			}
		}
	}
	return CategoryOther
}

// ExtractSeverity derives the urgency tier from a report. High beats Medium
// beats Low; the first matching tier wins regardless of keyword count.
func ExtractSeverity(report string) Severity {
	lowered := strings.ToLower(report)
	if containsAny(lowered, highKeywords) {
		return SeverityHigh
	}
	if containsAny(lowered, mediumKeywords) {
		return SeverityMedium
	}
	return SeverityLow
}

// ExtractOnset returns a short phrase describing when the problem started,
// or "Unknown" when the report gives no temporal hint.
func ExtractOnset(report string) string {
	lowered := strings.ToLower(report)
	for _, phrase := range onsetPhrases {
		if strings.Contains(lowered, phrase) {
			return phrase
		}
	}
	if strings.Contains(lowered, "since") {
		return "since reported"
	}
	if strings.Contains(lowered, "for ") && strings.Contains(lowered, " day") {
		return "for a few days"
	}
	return "Unknown"
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
