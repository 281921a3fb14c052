package report

import (
	"fmt"
	"strings"

	"github.com/sevigo/code-mentor/internal/core"
)

// Render serializes a report into its fixed Markdown layout: title, the
// code under review, one analysis block per section in order, the overall
// summary, and the fixed footer. The output depends only on the report
// contents, so rendering the same report twice yields byte-identical text.
func Render(r *core.Report) string {
	var b strings.Builder

	title := r.Title
	if title == "" {
		title = ReportTitle
	}
	lang := r.Snippet.FenceLanguage()

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "## Code Under Review\n\n```%s\n%s\n```\n\n", lang, r.Snippet.Code)

	for i, section := range r.Sections {
		fmt.Fprintf(&b, "### Analysis of Comment %d: \"%s\"\n\n", i+1, section.Comment.Text)
		fmt.Fprintf(&b, "**Positive Rephrasing:** %s\n\n", section.Rephrasing)
		fmt.Fprintf(&b, "**The 'Why':** %s\n\n", section.Rationale)
		fmt.Fprintf(&b, "**Suggested Improvement:**\n%s\n\n", section.Suggestion)

		if section.SuggestedCode != "" {
			fmt.Fprintf(&b, "```%s\n%s\n```\n\n", lang, section.SuggestedCode)
		}

		if len(section.Resources) > 0 {
			b.WriteString("**Additional Resources:**\n")
			for _, link := range section.Resources {
				fmt.Fprintf(&b, "- [%s](%s)\n", link, link)
			}
			b.WriteString("\n")
		}

		b.WriteString("---\n\n")
	}

	fmt.Fprintf(&b, "## Overall Summary\n\n%s\n\n", r.Summary)
	b.WriteString(reportFooter)

	return b.String()
}
