package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/sevigo/goframe/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-mentor/internal/core"
	"github.com/sevigo/code-mentor/internal/knowledge"
)

// fakeModel returns canned responses per call, in order.
type fakeModel struct {
	responses []string
	err       error
	prompts   []string
}

func (f *fakeModel) Call(_ context.Context, prompt string, _ ...llms.CallOption) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	idx := len(f.prompts) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRephraser(t *testing.T, model Model) *Rephraser {
	t.Helper()
	pm, err := NewPromptManager()
	require.NoError(t, err)

	// No embedder: the index uses keyword retrieval, which is deterministic.
	index := knowledge.NewIndex(context.Background(), nil, knowledge.DefaultCorpus(), testLogger())
	return NewRephraser(model, pm, index, DefaultProvider, testLogger())
}

func TestRephraser_DeriveSection(t *testing.T) {
	model := &fakeModel{responses: []string{
		`{"positive_rephrasing": "Great start on the filter logic!",
		  "the_why": "List comprehensions are optimized at the C level.",
		  "suggested_improvement": "Use a list comprehension here.",
		  "code_example": "active = [u for u in users if u.active]"}`,
	}}
	r := newTestRephraser(t, model)

	snippet := core.CodeSnippet{Code: "def get_active(users):\n    pass"}
	comment := core.ReviewComment{Text: "This loop is inefficient, use a list comprehension"}

	section, err := r.DeriveSection(context.Background(), snippet, comment)
	require.NoError(t, err)

	assert.Equal(t, comment, section.Comment)
	assert.Equal(t, core.SeverityHarsh, section.Severity) // "inefficient" is a harsh indicator
	assert.Equal(t, "Great start on the filter logic!", section.Rephrasing)
	assert.Equal(t, "List comprehensions are optimized at the C level.", section.Rationale)
	assert.Equal(t, "active = [u for u in users if u.active]", section.SuggestedCode)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], comment.Text)
	assert.Contains(t, model.prompts[0], "def get_active(users):")
}

func TestRephraser_DeriveSectionSeverityGuidance(t *testing.T) {
	model := &fakeModel{responses: []string{
		`{"positive_rephrasing": "r", "the_why": "w", "suggested_improvement": "s", "code_example": ""}`,
	}}
	r := newTestRephraser(t, model)

	_, err := r.DeriveSection(context.Background(),
		core.CodeSnippet{Code: "x = 1"},
		core.ReviewComment{Text: "you could consider a constant here"})
	require.NoError(t, err)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], severityGuidance[core.SeverityModerate])
}

func TestRephraser_DeriveSectionModelFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("model exploded")}
	r := newTestRephraser(t, model)

	_, err := r.DeriveSection(context.Background(),
		core.CodeSnippet{Code: "x = 1"},
		core.ReviewComment{Text: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model call failed")
}

func TestRephraser_Summarize(t *testing.T) {
	model := &fakeModel{responses: []string{"  You did great, keep going!  "}}
	r := newTestRephraser(t, model)

	summary, err := r.Summarize(context.Background(), core.CodeSnippet{}, make([]core.ReportSection, 3))
	require.NoError(t, err)
	assert.Equal(t, "You did great, keep going!", summary)
	assert.Contains(t, model.prompts[0], "3 review points")
}

func TestRephraser_Analyze(t *testing.T) {
	model := &fakeModel{responses: []string{"The function never returns."}}
	r := newTestRephraser(t, model)

	answer, err := r.Analyze(context.Background(),
		core.CodeSnippet{Code: "def f(): pass", Language: "python"},
		"What does f return?")
	require.NoError(t, err)
	assert.Equal(t, "The function never returns.", answer)
	assert.Contains(t, model.prompts[0], "What does f return?")
}

func TestResourceLinksDeduplication(t *testing.T) {
	matches := []knowledge.Match{
		{Item: knowledge.Item{Resource: "https://pep8.org"}},
		{Item: knowledge.Item{Resource: "https://docs.python.org"}},
		{Item: knowledge.Item{Resource: "https://pep8.org"}},
		{Item: knowledge.Item{Resource: ""}},
	}

	links := resourceLinks(matches)
	assert.Equal(t, []string{"https://pep8.org", "https://docs.python.org"}, links)
}

func TestKnowledgeContextFormatting(t *testing.T) {
	matches := []knowledge.Match{
		{Item: knowledge.Item{Category: "readability", Content: "Name things well."}},
		{Item: knowledge.Item{Category: "performance", Content: "Measure first."}},
	}

	ctx := knowledgeContext(matches)
	assert.Equal(t, "1. [readability] Name things well.\n2. [performance] Measure first.", ctx)

	assert.Empty(t, knowledgeContext(nil))
}
