// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import "time"

// DefaultLanguage tags fenced code blocks when the caller does not say what
// language the snippet is written in.
const DefaultLanguage = "python"

// ReviewComment is a single piece of raw reviewer feedback.
type ReviewComment struct {
	Text string `json:"text"`
}

// CodeSnippet is the code under review. The language is only used to tag
// fenced code blocks in the rendered report.
type CodeSnippet struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

// FenceLanguage returns the language tag for Markdown code fences.
func (s CodeSnippet) FenceLanguage() string {
	if s.Language == "" {
		return DefaultLanguage
	}
	return s.Language
}

// ReportSection is the empathetic rendering of one review comment. Exactly
// one section exists per input comment, in input order.
type ReportSection struct {
	Comment       ReviewComment
	Severity      Severity
	Rephrasing    string   // encouraging restatement of the original comment
	Rationale     string   // the underlying engineering principle
	Suggestion    string   // concrete improvement advice
	SuggestedCode string   // code example demonstrating the fix
	Resources     []string // deduplicated reference links, first-seen order
}

// Report is the fully assembled review document: the snippet under review,
// one section per comment, and a closing summary.
type Report struct {
	Title    string
	Snippet  CodeSnippet
	Sections []ReportSection
	Summary  string
}

// Report lifecycle states as stored in the database.
const (
	ReportStatusPending   = "pending"
	ReportStatusRunning   = "running"
	ReportStatusCompleted = "completed"
	ReportStatusFailed    = "failed"
)

// StoredReport is a generated report persisted in the database. Content
// holds the rendered Markdown once generation completes.
type StoredReport struct {
	ID           int64
	ReportID     string
	Status       string
	Language     string
	CommentCount int
	Content      string
	FailReason   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
