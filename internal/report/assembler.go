// Package report assembles and renders empathetic code review reports.
// Field derivation is delegated to a core.Deriver, so the assembly and
// layout logic stays independent of how the empathetic text is produced.
package report

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/code-mentor/internal/core"
)

// DefaultMaxConcurrent bounds how many sections are derived in parallel
// for a single report.
const DefaultMaxConcurrent = 4

// Assembler builds a Report from a code snippet and an ordered list of raw
// review comments.
type Assembler struct {
	deriver       core.Deriver
	maxConcurrent int
	logger        *slog.Logger
}

// NewAssembler creates an Assembler. If maxConcurrent is 0 or negative, it
// defaults to DefaultMaxConcurrent.
func NewAssembler(deriver core.Deriver, maxConcurrent int, logger *slog.Logger) *Assembler {
	if deriver == nil {
		panic("deriver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Assembler{
		deriver:       deriver,
		maxConcurrent: maxConcurrent,
		logger:        logger,
	}
}

// Assemble produces exactly one section per comment, in input order. Both
// the snippet and the comment list may be empty; an empty comment list
// yields a report with zero sections and only the snippet and summary.
//
// Assemble never fails. Sections are independent of each other, so they are
// derived concurrently and written into an index-addressed slice that
// preserves the input order. When the deriver errors on a comment, that
// section degrades to fixed encouraging text instead of being dropped; a
// failed summary degrades to FallbackSummary.
func (a *Assembler) Assemble(ctx context.Context, snippet core.CodeSnippet, comments []core.ReviewComment) *core.Report {
	sections := make([]core.ReportSection, len(comments))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, a.maxConcurrent)

	for i, comment := range comments {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				sections[i] = FallbackSection(comment)
				return nil
			}

			sections[i] = a.deriveSection(gctx, snippet, comment)
			return nil
		})
	}
	// Workers never return errors; failures degrade to fallback sections.
	_ = g.Wait()

	report := &core.Report{
		Title:    ReportTitle,
		Snippet:  snippet,
		Sections: sections,
	}
	report.Summary = a.summarize(ctx, snippet, sections)
	return report
}

// deriveSection runs the deriver for one comment and normalizes the result.
func (a *Assembler) deriveSection(ctx context.Context, snippet core.CodeSnippet, comment core.ReviewComment) core.ReportSection {
	derived, err := a.deriver.DeriveSection(ctx, snippet, comment)
	if err != nil || derived == nil {
		a.logger.Warn("section derivation failed, using fallback",
			"comment", comment.Text,
			"error", err,
		)
		return FallbackSection(comment)
	}

	section := *derived
	section.Comment = comment
	if section.Severity == "" {
		section.Severity = core.DetectSeverity(comment.Text)
	}
	return section
}

// summarize asks the deriver for the closing summary and falls back to the
// fixed encouraging text when it fails or comes back blank.
func (a *Assembler) summarize(ctx context.Context, snippet core.CodeSnippet, sections []core.ReportSection) string {
	summary, err := a.deriver.Summarize(ctx, snippet, sections)
	if err != nil {
		a.logger.Warn("summary derivation failed, using fallback", "error", err)
		return FallbackSummary
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return FallbackSummary
	}
	return summary
}
