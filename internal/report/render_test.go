package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-mentor/internal/core"
)

func sampleReport() *core.Report {
	return &core.Report{
		Title: ReportTitle,
		Snippet: core.CodeSnippet{
			Code: "def get_active_users(users):\n    results = []\n    for u in users:\n        if u.is_active == True:\n            results.append(u)\n    return results",
		},
		Sections: []core.ReportSection{
			{
				Comment:       core.ReviewComment{Text: "Variable 'u' is a bad name."},
				Severity:      core.SeverityHarsh,
				Rephrasing:    "Nice clean loop! Naming the loop variable more descriptively would make it even better.",
				Rationale:     "Meaningful names make code self-documenting.",
				Suggestion:    "Rename 'u' to 'user'.",
				SuggestedCode: "for user in users:\n    ...",
				Resources:     []string{"https://pep8.org/#naming-conventions"},
			},
			{
				Comment:    core.ReviewComment{Text: "Boolean comparison '== True' is redundant."},
				Severity:   core.SeverityNeutral,
				Rephrasing: "Good eye for explicitness! Python lets you lean on truthiness directly here.",
				Rationale:  "Comparing to True is redundant; the value is already a boolean.",
				Suggestion: "Drop the comparison.",
			},
		},
		Summary: "Two small polish items; the logic itself is solid.",
	}
}

func TestRenderLayout(t *testing.T) {
	rendered := Render(sampleReport())

	// Blocks appear in the documented order.
	wantInOrder := []string{
		"# Empathetic Code Review Report",
		"## Code Under Review",
		"```python",
		"### Analysis of Comment 1: \"Variable 'u' is a bad name.\"",
		"**Positive Rephrasing:**",
		"**The 'Why':**",
		"**Suggested Improvement:**",
		"**Additional Resources:**",
		"- [https://pep8.org/#naming-conventions](https://pep8.org/#naming-conventions)",
		"### Analysis of Comment 2: \"Boolean comparison '== True' is redundant.\"",
		"## Overall Summary",
		"Two small polish items; the logic itself is solid.",
		"*Remember: Every piece of feedback is an opportunity to grow. Keep coding and keep learning!* 🚀",
	}

	pos := 0
	for _, want := range wantInOrder {
		idx := strings.Index(rendered[pos:], want)
		require.GreaterOrEqual(t, idx, 0, "missing or out of order: %q", want)
		pos += idx + len(want)
	}

	// One separator per section.
	assert.Equal(t, 2, strings.Count(rendered, "\n---\n"))
}

func TestRenderIsIdempotent(t *testing.T) {
	rep := sampleReport()

	first := Render(rep)
	second := Render(rep)

	if first != second {
		t.Fatal("rendering the same report twice must yield byte-identical text")
	}
}

func TestRenderSectionWithoutCode(t *testing.T) {
	rep := sampleReport()
	rendered := Render(rep)

	// The second section has no suggested code, so exactly two fences open:
	// the snippet and the first section's example.
	assert.Equal(t, 2, strings.Count(rendered, "```python\n"))
}

func TestRenderEmptyReport(t *testing.T) {
	rep := &core.Report{Summary: FallbackSummary}
	rendered := Render(rep)

	assert.Contains(t, rendered, "# Empathetic Code Review Report")
	assert.Contains(t, rendered, "## Code Under Review")
	assert.Contains(t, rendered, FallbackSummary)
	assert.NotContains(t, rendered, "### Analysis of Comment")
	assert.True(t, strings.HasSuffix(rendered, "🚀"))
}

func TestRenderUsesSnippetLanguageForFences(t *testing.T) {
	rep := &core.Report{
		Snippet: core.CodeSnippet{Code: `fmt.Println("hi")`, Language: "go"},
		Sections: []core.ReportSection{
			{
				Comment:       core.ReviewComment{Text: "use a logger"},
				Rephrasing:    "Printing works; a logger scales better.",
				Rationale:     "Structured logs are searchable.",
				Suggestion:    "Swap in slog.",
				SuggestedCode: `slog.Info("hi")`,
			},
		},
		Summary: "Looks good.",
	}

	rendered := Render(rep)
	assert.Equal(t, 2, strings.Count(rendered, "```go\n"))
	assert.NotContains(t, rendered, "```python")
}

func TestFallbackSectionShape(t *testing.T) {
	section := FallbackSection(core.ReviewComment{Text: "This is terrible."})

	assert.Equal(t, "This is terrible.", section.Comment.Text)
	assert.Equal(t, core.SeverityHarsh, section.Severity)
	assert.NotEmpty(t, section.Rephrasing)
	assert.NotEmpty(t, section.Rationale)
	assert.NotEmpty(t, section.Suggestion)
	assert.NotEmpty(t, section.SuggestedCode)
}
