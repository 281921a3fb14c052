package report

import "github.com/sevigo/code-mentor/internal/core"

// ReportTitle is the fixed title of every rendered report.
const ReportTitle = "Empathetic Code Review Report"

// FallbackSummary closes the report when summary derivation is unavailable.
const FallbackSummary = "Great work on submitting your code for review! The feedback provided will help you write even better code in the future. Keep up the excellent learning attitude!"

// reportFooter is the fixed last line of every rendered report.
const reportFooter = "*Remember: Every piece of feedback is an opportunity to grow. Keep coding and keep learning!* 🚀"

// FallbackSection replaces a section whose derivation failed. The report
// still contains one section per comment, so a transient model failure
// never changes the shape of the output.
func FallbackSection(comment core.ReviewComment) core.ReportSection {
	return core.ReportSection{
		Comment:       comment,
		Severity:      core.DetectSeverity(comment.Text),
		Rephrasing:    "Thanks for sharing your code! There's an opportunity to improve this section.",
		Rationale:     "Code improvements help with maintainability and performance.",
		Suggestion:    "Consider refactoring this section for better clarity.",
		SuggestedCode: "# Improved version would go here",
	}
}
