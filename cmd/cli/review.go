package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/code-mentor/internal/config"
	"github.com/sevigo/code-mentor/internal/core"
	"github.com/sevigo/code-mentor/internal/knowledge"
	"github.com/sevigo/code-mentor/internal/llm"
	"github.com/sevigo/code-mentor/internal/logger"
	"github.com/sevigo/code-mentor/internal/report"
)

var (
	verbose     bool
	offline     bool
	inputFile   string
	snippetFile string
	comments    []string
	language    string
	outFile     string
)

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Generate an empathetic review report for a code snippet",
	Long: `Generate an empathetic review report for a code snippet.

Input comes either from a JSON file with {"code_snippet": "...",
"review_comments": ["..."]} or from --snippet-file plus repeated
--comment flags. The rendered Markdown report goes to stdout or --out.

Examples:
  mentor-cli review --input review.json
  mentor-cli review --snippet-file main.py -c "bad variable name" -c "no docstring"
  mentor-cli review --input review.json --offline --out report.md`,
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output with timing information")
	reviewCmd.Flags().BoolVar(&offline, "offline", false, "Use the rule-based deriver instead of a language model")
	reviewCmd.Flags().StringVarP(&inputFile, "input", "i", "", "JSON file with code_snippet and review_comments")
	reviewCmd.Flags().StringVarP(&snippetFile, "snippet-file", "s", "", "File containing the code snippet under review")
	reviewCmd.Flags().StringArrayVarP(&comments, "comment", "c", nil, "Review comment (repeatable)")
	reviewCmd.Flags().StringVar(&language, "lang", "", "Language tag for code fences (defaults to python)")
	reviewCmd.Flags().StringVarP(&outFile, "out", "o", "", "Write the rendered report to this file instead of stdout")
	rootCmd.AddCommand(reviewCmd)
}

// stepTimer tracks timing for verbose output
type stepTimer struct {
	stepNum    int
	totalSteps int
	start      time.Time
	verbose    bool
}

func newStepTimer(totalSteps int, verbose bool) *stepTimer {
	return &stepTimer{
		stepNum:    0,
		totalSteps: totalSteps,
		verbose:    verbose,
	}
}

func (t *stepTimer) step(name string) {
	t.stepNum++
	t.start = time.Now()
	if t.verbose {
		titleColor.Printf("\nStep %d/%d: %s...\n", t.stepNum, t.totalSteps, name)
	}
}

func (t *stepTimer) done(details ...string) {
	if t.verbose {
		elapsed := time.Since(t.start).Round(time.Millisecond)
		successColor.Printf("   done (%s)\n", elapsed)
		for _, d := range details {
			dimColor.Printf("   %s\n", d)
		}
	}
}

func runReview(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	timer := newStepTimer(4, verbose)
	overallStart := time.Now()

	if verbose {
		titleColor.Println("Code-Mentor - Review Report")
	}

	// 1. Load input
	timer.step("Loading review input")
	req, err := loadReviewRequest()
	if err != nil {
		return err
	}
	timer.done(fmt.Sprintf("%d comment(s)", len(req.ReviewComments)))

	// 2. Load configuration
	timer.step("Loading configuration")
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.NewLogger(cfg.LoggerConfig, os.Stderr)
	timer.done(fmt.Sprintf("provider: %s, model: %s", cfg.LLMProvider, cfg.GeneratorModelName))

	// 3. Build the derivation pipeline
	timer.step("Building derivation pipeline")
	deriver, err := buildDeriver(ctx, cfg, log)
	if err != nil {
		return err
	}
	assembler := report.NewAssembler(deriver, cfg.MaxWorkers, log)
	timer.done(deriverDescription())

	// 4. Assemble and render
	timer.step("Generating report")
	assembled := assembler.Assemble(ctx, req.Snippet(), req.Comments())
	content := report.Render(assembled)
	timer.done(fmt.Sprintf("%d section(s)", len(assembled.Sections)))

	if verbose {
		dimColor.Printf("\nTotal time: %s\n\n", time.Since(overallStart).Round(time.Millisecond))
	}

	if outFile != "" {
		if err := os.WriteFile(outFile, []byte(content), 0o600); err != nil {
			return fmt.Errorf("failed to write report to %s: %w", outFile, err)
		}
		successColor.Printf("Report written to %s\n", outFile)
		return nil
	}

	fmt.Print(content)
	return nil
}

// loadReviewRequest merges the input file and flag-based input. An input
// file wins for the snippet; --comment flags are appended after the file's
// comments so both can be combined.
func loadReviewRequest() (*core.ReviewRequest, error) {
	req := &core.ReviewRequest{Language: language}

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		if err := json.Unmarshal(data, req); err != nil {
			return nil, fmt.Errorf("failed to parse input file %s: %w", inputFile, err)
		}
		if language != "" {
			req.Language = language
		}
	}

	if snippetFile != "" {
		data, err := os.ReadFile(snippetFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read snippet file: %w", err)
		}
		req.CodeSnippet = string(data)
	}

	req.ReviewComments = append(req.ReviewComments, comments...)

	if req.CodeSnippet == "" && len(req.ReviewComments) == 0 && inputFile == "" {
		return nil, fmt.Errorf("no input provided: use --input or --snippet-file/--comment")
	}
	return req, nil
}

// buildDeriver picks the rule-based deriver for offline mode and the
// model-backed rephraser otherwise. The CLI never embeds the corpus; the
// keyword index is fast and needs no running services.
func buildDeriver(ctx context.Context, cfg *config.Config, log *slog.Logger) (core.Deriver, error) {
	index, err := buildCorpusIndex(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if offline {
		return report.NewRuleDeriver(index), nil
	}

	model, err := llm.NewModel(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create model (try --offline): %w", err)
	}
	promptMgr, err := llm.NewPromptManager()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	return llm.NewRephraser(model, promptMgr, index, llm.Provider(cfg), log), nil
}

func buildCorpusIndex(ctx context.Context, cfg *config.Config, log *slog.Logger) (*knowledge.Index, error) {
	if cfg.DisableRetrieval {
		return nil, nil
	}
	corpus := knowledge.DefaultCorpus()
	if cfg.KnowledgeCorpusPath != "" {
		loaded, err := knowledge.LoadCorpus(cfg.KnowledgeCorpusPath)
		if err != nil && len(loaded) == 0 {
			return nil, fmt.Errorf("failed to load knowledge corpus: %w", err)
		}
		corpus = loaded
	}
	return knowledge.NewIndex(ctx, nil, corpus, log), nil
}

func deriverDescription() string {
	if offline {
		return "deriver: rule-based (offline)"
	}
	return "deriver: model-backed"
}
