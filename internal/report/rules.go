package report

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sevigo/code-mentor/internal/core"
	"github.com/sevigo/code-mentor/internal/knowledge"
)

// RuleDeriver is a deterministic, model-free core.Deriver. It rephrases
// comments from fixed per-severity templates and pulls rationale from the
// knowledge corpus via keyword retrieval. It exists so reports can be
// generated offline and so the pipeline stays testable without a model.
type RuleDeriver struct {
	index *knowledge.Index
}

// NewRuleDeriver creates a rule-based deriver. The index may be nil, which
// drops rationale retrieval but keeps derivation working.
func NewRuleDeriver(index *knowledge.Index) *RuleDeriver {
	return &RuleDeriver{index: index}
}

var ruleRephrasings = map[core.Severity]string{
	core.SeverityHarsh:    "You've built a working solution here, which is a great starting point! One area worth revisiting: %s",
	core.SeverityModerate: "Nice progress on this code! A suggestion to make it even better: %s",
	core.SeverityNeutral:  "Thanks for sharing this code! A note from the review: %s",
}

// DeriveSection produces a section from fixed templates and corpus lookups.
// It never fails: missing knowledge degrades to generic rationale text.
func (d *RuleDeriver) DeriveSection(ctx context.Context, snippet core.CodeSnippet, comment core.ReviewComment) (*core.ReportSection, error) {
	severity := core.DetectSeverity(comment.Text)

	section := &core.ReportSection{
		Comment:       comment,
		Severity:      severity,
		Rephrasing:    fmt.Sprintf(ruleRephrasings[severity], softenComment(comment.Text)),
		Rationale:     "Addressing review feedback like this improves maintainability and helps the whole team read the code with confidence.",
		Suggestion:    "Take another look at the highlighted part of the snippet with this feedback in mind.",
		SuggestedCode: "# Improved version would go here",
	}

	if d.index != nil {
		matches := d.index.Search(ctx, comment.Text+" "+snippet.Code, knowledge.DefaultTopK)
		if len(matches) > 0 {
			best := matches[0].Item
			section.Rationale = best.Content
			section.Suggestion = fmt.Sprintf("Apply the %s guidance above to the highlighted part of the snippet.",
				strings.ReplaceAll(best.Category, "_", " "))
			for _, m := range matches {
				if m.Item.Resource != "" && !slices.Contains(section.Resources, m.Item.Resource) {
					section.Resources = append(section.Resources, m.Item.Resource)
				}
			}
		}
	}

	return section, nil
}

// Summarize produces a deterministic closing summary.
func (d *RuleDeriver) Summarize(_ context.Context, _ core.CodeSnippet, sections []core.ReportSection) (string, error) {
	if len(sections) == 0 {
		return "No review comments were submitted for this code. Keep sharing your work for feedback!", nil
	}
	return fmt.Sprintf("This review covered %d point(s) of feedback. Each one is a chance to sharpen the code and your craft. Great work engaging with the review process!", len(sections)), nil
}

// softenComment lowercases the leading rune and trims trailing punctuation
// so the comment reads naturally inside the rephrasing sentence.
func softenComment(text string) string {
	text = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text), ".!"))
	if text == "" {
		return "(no comment text)"
	}
	runes := []rune(text)
	runes[0] = []rune(strings.ToLower(string(runes[0])))[0]
	return string(runes) + "."
}
