package core

import "strings"

// Severity classifies the tone of a raw review comment. It selects how
// gentle the empathetic rephrasing should be.
type Severity string

const (
	SeverityHarsh    Severity = "harsh"
	SeverityModerate Severity = "moderate"
	SeverityNeutral  Severity = "neutral"
)

var (
	harshIndicators    = []string{"bad", "wrong", "terrible", "awful", "stupid", "inefficient"}
	moderateIndicators = []string{"should", "could", "consider", "might"}
)

// DetectSeverity classifies a comment by scanning for indicator words.
// Harsh indicators win over moderate ones; anything else is neutral.
func DetectSeverity(text string) Severity {
	lower := strings.ToLower(text)

	for _, word := range harshIndicators {
		if strings.Contains(lower, word) {
			return SeverityHarsh
		}
	}
	for _, word := range moderateIndicators {
		if strings.Contains(lower, word) {
			return SeverityModerate
		}
	}
	return SeverityNeutral
}
