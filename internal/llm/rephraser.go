package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sevigo/goframe/llms"

	"github.com/sevigo/code-mentor/internal/core"
	"github.com/sevigo/code-mentor/internal/knowledge"
)

// generationTimeout is the hard ceiling for a single model call. Local
// Ollama models can be slow on first load.
const generationTimeout = 3 * time.Minute

// Model is the subset of the goframe model API the rephraser needs. Any
// llms.Model satisfies it.
type Model interface {
	Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error)
}

// severityGuidance maps the detected tone of the original comment to the
// rephrasing instruction passed to the model.
var severityGuidance = map[core.Severity]string{
	core.SeverityHarsh:    "The original comment was harsh. Be extra gentle and encouraging; lead with what the author did well before touching the problem.",
	core.SeverityModerate: "The original comment was moderately critical. Be supportive and constructive.",
	core.SeverityNeutral:  "The original comment was neutral. Be friendly and informative.",
}

// Rephraser derives empathetic report sections by prompting a language
// model. It implements core.Deriver and core.Analyzer.
type Rephraser struct {
	model     Model
	promptMgr *PromptManager
	index     *knowledge.Index
	provider  ModelProvider
	logger    *slog.Logger
}

// NewRephraser creates a Rephraser. The knowledge index may be nil, which
// disables retrieval; sections are then derived without best-practice
// context.
func NewRephraser(model Model, promptMgr *PromptManager, index *knowledge.Index, provider ModelProvider, logger *slog.Logger) *Rephraser {
	if model == nil {
		panic("model cannot be nil")
	}
	if promptMgr == nil {
		panic("prompt manager cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Rephraser{
		model:     model,
		promptMgr: promptMgr,
		index:     index,
		provider:  provider,
		logger:    logger,
	}
}

// rephrasePromptData feeds the rephrase template.
type rephrasePromptData struct {
	Language         string
	Code             string
	Comment          string
	SeverityGuidance string
	KnowledgeContext string
}

// DeriveSection turns one raw review comment into the four empathetic
// fields. Retrieval, prompt rendering, the model call (with retry), and
// response parsing all happen here; the caller only sees a section or an
// error.
func (r *Rephraser) DeriveSection(ctx context.Context, snippet core.CodeSnippet, comment core.ReviewComment) (*core.ReportSection, error) {
	severity := core.DetectSeverity(comment.Text)
	matches := r.retrieve(ctx, comment.Text, snippet.Code)

	prompt, err := r.promptMgr.Render(RephrasePrompt, r.provider, rephrasePromptData{
		Language:         snippet.FenceLanguage(),
		Code:             snippet.Code,
		Comment:          comment.Text,
		SeverityGuidance: severityGuidance[severity],
		KnowledgeContext: knowledgeContext(matches),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render rephrase prompt: %w", err)
	}

	raw, err := r.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	parsed, err := ParseSectionResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	return &core.ReportSection{
		Comment:       comment,
		Severity:      severity,
		Rephrasing:    strings.TrimSpace(parsed.PositiveRephrasing),
		Rationale:     strings.TrimSpace(parsed.TheWhy),
		Suggestion:    strings.TrimSpace(parsed.SuggestedImprovement),
		SuggestedCode: strings.TrimRight(parsed.CodeExample, "\n"),
		Resources:     resourceLinks(matches),
	}, nil
}

// summaryPromptData feeds the summary template.
type summaryPromptData struct {
	CommentCount int
}

// Summarize produces the closing report summary.
func (r *Rephraser) Summarize(ctx context.Context, _ core.CodeSnippet, sections []core.ReportSection) (string, error) {
	prompt, err := r.promptMgr.Render(SummaryPrompt, r.provider, summaryPromptData{
		CommentCount: len(sections),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render summary prompt: %w", err)
	}

	summary, err := r.generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// analyzePromptData feeds the analyze template.
type analyzePromptData struct {
	Language string
	Code     string
	Question string
}

// Analyze answers a free-form question about a code snippet.
func (r *Rephraser) Analyze(ctx context.Context, snippet core.CodeSnippet, question string) (string, error) {
	prompt, err := r.promptMgr.Render(AnalyzePrompt, r.provider, analyzePromptData{
		Language: snippet.FenceLanguage(),
		Code:     snippet.Code,
		Question: question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render analyze prompt: %w", err)
	}

	answer, err := r.generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// generate wraps the model call with a hard timeout and bounded retry.
func (r *Rephraser) generate(ctx context.Context, prompt string) (string, error) {
	var response string

	err := retryWithBackoff(ctx, llmRetryConfig(), r.logger, func() error {
		callCtx, cancel := context.WithTimeout(ctx, generationTimeout)
		defer cancel()

		resp, err := r.model.Call(callCtx, prompt)
		if err != nil {
			return err
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", err
	}
	return response, nil
}

// retrieve looks up best-practice context for a comment. A nil index means
// retrieval is disabled; failures degrade to no context, never to an error.
func (r *Rephraser) retrieve(ctx context.Context, commentText, code string) []knowledge.Match {
	if r.index == nil {
		return nil
	}
	query := commentText + " " + code
	matches := r.index.Search(ctx, query, knowledge.DefaultTopK)
	r.logger.Debug("knowledge retrieval finished", "comment", commentText, "matches", len(matches))
	return matches
}

// knowledgeContext formats retrieved corpus items for prompt injection.
func knowledgeContext(matches []knowledge.Match) string {
	if len(matches) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, m.Item.Category, m.Item.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// resourceLinks extracts the resource URLs of the retrieved items, dropping
// duplicates and keeping first-seen order.
func resourceLinks(matches []knowledge.Match) []string {
	var links []string
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		link := strings.TrimSpace(m.Item.Resource)
		if link == "" {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}
	return links
}
