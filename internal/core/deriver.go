package core

import "context"

// Deriver turns one raw review comment into the empathetic fields of a
// ReportSection. Implementations may call a language model or apply local
// rules; the report assembler does not care which. A deriver must treat
// every comment independently so sections can be derived concurrently.
type Deriver interface {
	// DeriveSection produces the four empathetic fields for a single
	// comment. The returned section's Comment and Severity fields may be
	// left empty; the assembler fills them in.
	DeriveSection(ctx context.Context, snippet CodeSnippet, comment ReviewComment) (*ReportSection, error)

	// Summarize produces the closing summary for a finished set of sections.
	Summarize(ctx context.Context, snippet CodeSnippet, sections []ReportSection) (string, error)
}

// Analyzer answers a free-form question about a code snippet.
type Analyzer interface {
	Analyze(ctx context.Context, snippet CodeSnippet, question string) (string, error)
}
