package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/sevigo/code-mentor/internal/config"
	"github.com/sevigo/code-mentor/internal/core"
	"github.com/sevigo/code-mentor/internal/knowledge"
	"github.com/sevigo/code-mentor/internal/llm"
	"github.com/sevigo/code-mentor/internal/logger"
	"github.com/sevigo/code-mentor/internal/report"
)

// reviewPipeline holds everything the terminal needs to turn a snippet and
// a set of comments into a rendered report. It is built once at startup
// and shared by all review commands.
type reviewPipeline struct {
	cfg       *config.Config
	assembler *report.Assembler
}

// initializePipelineCmd builds the review pipeline in the background so the
// UI stays responsive during startup. Logging goes to io.Discard; slog
// output on stdout would corrupt the alternate screen. When the language
// model cannot be created the pipeline degrades to the rule-based deriver
// instead of failing, so the terminal works with no services running.
func initializePipelineCmd() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		cfg, err := config.LoadConfig()
		if err != nil {
			return pipelineReadyMsg{err: fmt.Errorf("failed to load configuration: %w", err)}
		}
		log := logger.NewLogger(cfg.LoggerConfig, io.Discard)

		var index *knowledge.Index
		if !cfg.DisableRetrieval {
			corpus := knowledge.DefaultCorpus()
			if cfg.KnowledgeCorpusPath != "" {
				if loaded, loadErr := knowledge.LoadCorpus(cfg.KnowledgeCorpusPath); loadErr == nil {
					corpus = loaded
				}
			}
			index = knowledge.NewIndex(ctx, nil, corpus, log)
		}

		var (
			deriver core.Deriver
			offline bool
		)
		model, err := llm.NewModel(ctx, cfg, log)
		if err != nil {
			deriver = report.NewRuleDeriver(index)
			offline = true
		} else {
			promptMgr, promptErr := llm.NewPromptManager()
			if promptErr != nil {
				return pipelineReadyMsg{err: fmt.Errorf("failed to load prompts: %w", promptErr)}
			}
			deriver = llm.NewRephraser(model, promptMgr, index, llm.Provider(cfg), log)
		}

		return pipelineReadyMsg{
			pipeline: &reviewPipeline{
				cfg:       cfg,
				assembler: report.NewAssembler(deriver, cfg.MaxWorkers, log),
			},
			offline: offline,
		}
	}
}

// generateReviewCmd runs the full assembly and renders the Markdown for the
// viewport. width is the viewport width at the time the review started.
func generateReviewCmd(p *reviewPipeline, snippet core.CodeSnippet, comments []core.ReviewComment, width int) tea.Cmd {
	return func() tea.Msg {
		assembled := p.assembler.Assemble(context.Background(), snippet, comments)
		markdown := report.Render(assembled)

		rendered := markdown
		if renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		); err == nil {
			if pretty, renderErr := renderer.Render(markdown); renderErr == nil {
				rendered = pretty
			}
		}

		return reviewDoneMsg{
			markdown: markdown,
			rendered: rendered,
			sections: len(assembled.Sections),
		}
	}
}

func saveReportCmd(path, markdown string) tea.Cmd {
	return func() tea.Msg {
		if err := os.WriteFile(path, []byte(markdown), 0o600); err != nil {
			return reportSavedMsg{err: fmt.Errorf("failed to write report to %s: %w", path, err)}
		}
		return reportSavedMsg{path: path}
	}
}
