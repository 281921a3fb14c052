package core

import (
	"fmt"

	"github.com/google/uuid"
)

// ReviewRequest is the external shape of a review submission, shared by the
// HTTP API and the CLI input file format.
type ReviewRequest struct {
	CodeSnippet    string   `json:"code_snippet"`
	ReviewComments []string `json:"review_comments"`
	Language       string   `json:"language,omitempty"`
}

// Snippet converts the raw request fields into the internal snippet type.
func (r *ReviewRequest) Snippet() CodeSnippet {
	return CodeSnippet{Code: r.CodeSnippet, Language: r.Language}
}

// Comments converts the raw comment strings into the internal comment type,
// preserving input order.
func (r *ReviewRequest) Comments() []ReviewComment {
	comments := make([]ReviewComment, len(r.ReviewComments))
	for i, text := range r.ReviewComments {
		comments[i] = ReviewComment{Text: text}
	}
	return comments
}

// ReviewEvent is the unit of work queued for asynchronous report
// generation. ReportID identifies the stored report the job will fill in.
type ReviewEvent struct {
	ReportID string
	Snippet  CodeSnippet
	Comments []ReviewComment
}

// EventFromRequest transforms a raw review submission into the internal
// event representation and assigns it a fresh report ID. It acts as an
// anti-corruption layer between the external request shape and the job
// pipeline. Empty snippets and empty comment lists are valid input; they
// produce a report with zero analysis sections.
func EventFromRequest(req *ReviewRequest) (*ReviewEvent, error) {
	if req == nil {
		return nil, fmt.Errorf("review request cannot be nil")
	}

	return &ReviewEvent{
		ReportID: uuid.NewString(),
		Snippet:  req.Snippet(),
		Comments: req.Comments(),
	}, nil
}
