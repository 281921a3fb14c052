package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-mentor/internal/core"
)

// stubDeriver produces deterministic sections derived from the comment text
// and can be told to fail for specific comments.
type stubDeriver struct {
	failOn      map[string]bool
	failSummary bool
	delay       time.Duration
	calls       atomic.Int64
}

func (d *stubDeriver) DeriveSection(_ context.Context, _ core.CodeSnippet, comment core.ReviewComment) (*core.ReportSection, error) {
	d.calls.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.failOn[comment.Text] {
		return nil, fmt.Errorf("model unavailable")
	}
	return &core.ReportSection{
		Rephrasing:    "Rephrased: " + comment.Text,
		Rationale:     "Principle behind: " + comment.Text,
		Suggestion:    "Try a cleaner approach.",
		SuggestedCode: "pass",
	}, nil
}

func (d *stubDeriver) Summarize(_ context.Context, _ core.CodeSnippet, sections []core.ReportSection) (string, error) {
	if d.failSummary {
		return "", fmt.Errorf("model unavailable")
	}
	return fmt.Sprintf("Summary over %d sections.", len(sections)), nil
}

func testAssembler(d core.Deriver, maxConcurrent int) *Assembler {
	return NewAssembler(d, maxConcurrent, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func comments(texts ...string) []core.ReviewComment {
	out := make([]core.ReviewComment, len(texts))
	for i, text := range texts {
		out[i] = core.ReviewComment{Text: text}
	}
	return out
}

func TestAssembleSectionCountMatchesComments(t *testing.T) {
	tests := []struct {
		name     string
		comments []core.ReviewComment
	}{
		{"no comments", nil},
		{"empty slice", comments()},
		{"single comment", comments("bad name")},
		{"three comments", comments(
			"This is inefficient. Don't loop twice conceptually.",
			"Variable 'u' is a bad name.",
			"Boolean comparison '== True' is redundant.",
		)},
	}

	a := testAssembler(&stubDeriver{}, 2)
	snippet := core.CodeSnippet{Code: "def get_active_users(users): ..."}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := a.Assemble(context.Background(), snippet, tt.comments)
			require.NotNil(t, rep)
			assert.Len(t, rep.Sections, len(tt.comments))
		})
	}
}

func TestAssembleKeepsInputOrder(t *testing.T) {
	// Enough comments and concurrency that an ordering bug would surface.
	var texts []string
	for i := 0; i < 40; i++ {
		texts = append(texts, fmt.Sprintf("comment %02d", i))
	}

	d := &stubDeriver{delay: time.Millisecond}
	a := testAssembler(d, 8)

	rep := a.Assemble(context.Background(), core.CodeSnippet{Code: "x = 1"}, comments(texts...))

	require.Len(t, rep.Sections, len(texts))
	for i, section := range rep.Sections {
		assert.Equal(t, texts[i], section.Comment.Text)
		assert.Equal(t, "Rephrased: "+texts[i], section.Rephrasing)
	}
	assert.Equal(t, int64(len(texts)), d.calls.Load())
}

func TestAssembleEmptyInputs(t *testing.T) {
	a := testAssembler(&stubDeriver{}, 1)

	rep := a.Assemble(context.Background(), core.CodeSnippet{}, nil)

	require.NotNil(t, rep)
	assert.Empty(t, rep.Sections)
	assert.Equal(t, ReportTitle, rep.Title)
	assert.NotEmpty(t, rep.Summary)

	rendered := Render(rep)
	assert.Contains(t, rendered, "## Overall Summary")
	assert.NotContains(t, rendered, "### Analysis of Comment")
}

func TestAssembleSingleComment(t *testing.T) {
	a := testAssembler(&stubDeriver{}, 1)

	rep := a.Assemble(context.Background(), core.CodeSnippet{Code: "def f(): pass"}, comments("bad name"))

	require.Len(t, rep.Sections, 1)
	assert.Equal(t, "bad name", rep.Sections[0].Comment.Text)
	assert.Equal(t, core.SeverityHarsh, rep.Sections[0].Severity)
}

func TestAssembleFallbackOnDeriverError(t *testing.T) {
	d := &stubDeriver{failOn: map[string]bool{"broken": true}}
	a := testAssembler(d, 2)

	rep := a.Assemble(context.Background(), core.CodeSnippet{Code: "x = 1"}, comments("fine", "broken", "also fine"))

	require.Len(t, rep.Sections, 3)
	assert.Equal(t, "Rephrased: fine", rep.Sections[0].Rephrasing)
	assert.Equal(t, FallbackSection(core.ReviewComment{Text: "broken"}).Rephrasing, rep.Sections[1].Rephrasing)
	assert.Equal(t, "broken", rep.Sections[1].Comment.Text)
	assert.Equal(t, "Rephrased: also fine", rep.Sections[2].Rephrasing)
}

func TestAssembleSummaryFallback(t *testing.T) {
	a := testAssembler(&stubDeriver{failSummary: true}, 1)

	rep := a.Assemble(context.Background(), core.CodeSnippet{Code: "x = 1"}, comments("fine"))

	assert.Equal(t, FallbackSummary, rep.Summary)
}

func TestAssembleDeterministicWithDeterministicDeriver(t *testing.T) {
	texts := []string{
		"This is inefficient. Don't loop twice conceptually.",
		"Variable 'u' is a bad name.",
		"Boolean comparison '== True' is redundant.",
	}
	snippet := core.CodeSnippet{Code: "def get_active_users(users):\n    return users"}

	a := testAssembler(&stubDeriver{delay: time.Millisecond}, 3)

	first := Render(a.Assemble(context.Background(), snippet, comments(texts...)))
	second := Render(a.Assemble(context.Background(), snippet, comments(texts...)))

	if first != second {
		t.Fatalf("expected byte-identical renders, got diverging output:\n%s\n---\n%s", first, second)
	}
}

func TestAssembleCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := testAssembler(&stubDeriver{}, 2)
	rep := a.Assemble(ctx, core.CodeSnippet{Code: "x = 1"}, comments("one", "two"))

	// Cancellation must not change the report shape.
	require.Len(t, rep.Sections, 2)
	for i, want := range []string{"one", "two"} {
		assert.Equal(t, want, rep.Sections[i].Comment.Text)
	}
	assert.False(t, strings.TrimSpace(rep.Summary) == "")
}
