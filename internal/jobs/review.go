package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sevigo/code-mentor/internal/config"
	"github.com/sevigo/code-mentor/internal/core"
	"github.com/sevigo/code-mentor/internal/report"
	"github.com/sevigo/code-mentor/internal/storage"
	"github.com/sevigo/code-mentor/internal/util"
)

// Assembler builds a report from a snippet and its review comments. The
// report package's Assembler satisfies this.
type Assembler interface {
	Assemble(ctx context.Context, snippet core.CodeSnippet, comments []core.ReviewComment) *core.Report
}

// ReviewJob is a background job that generates an empathetic review report
// and persists the result.
type ReviewJob struct {
	cfg       *config.Config
	assembler Assembler
	store     storage.Store
	logger    *slog.Logger
}

// NewReviewJob creates a new ReviewJob with config, assembler, store, and logger.
func NewReviewJob(cfg *config.Config, assembler Assembler, store storage.Store, logger *slog.Logger) core.Job {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if assembler == nil {
		panic("assembler cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ReviewJob{cfg: cfg, assembler: assembler, store: store, logger: logger}
}

// Run executes the report generation job for a queued review event. The
// stored report moves from pending to running to completed; any failure
// after the running transition marks it failed with a reason.
func (j *ReviewJob) Run(ctx context.Context, event *core.ReviewEvent) error {
	if err := ValidateEvent(event); err != nil {
		j.logger.Error("event validation failed", "error", err)
		return fmt.Errorf("event validation failed: %w", err)
	}

	j.logger.Info("starting report job", "report_id", event.ReportID, "comments", len(event.Comments))

	if err := j.store.UpdateReportStatus(ctx, event.ReportID, core.ReportStatusRunning, ""); err != nil {
		return fmt.Errorf("failed to mark report running: %w", err)
	}

	// Assemble never fails; failed derivations degrade to fallback sections.
	assembled := j.assembler.Assemble(ctx, event.Snippet, event.Comments)
	content := report.Render(assembled)

	if err := j.store.SetReportContent(ctx, event.ReportID, content); err != nil {
		j.markFailed(ctx, event.ReportID, "failed to persist report content")
		return fmt.Errorf("failed to persist report content: %w", err)
	}

	if err := j.writeArtifact(event.ReportID, content); err != nil {
		j.markFailed(ctx, event.ReportID, "failed to write report artifact")
		return fmt.Errorf("failed to write report artifact: %w", err)
	}

	if err := j.store.UpdateReportStatus(ctx, event.ReportID, core.ReportStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to mark report completed: %w", err)
	}

	j.logger.Info("report job completed successfully", "report_id", event.ReportID)
	return nil
}

// writeArtifact stores the rendered Markdown on disk next to reports from
// other models, named <report-id>_<model>.md.
func (j *ReviewJob) writeArtifact(reportID, content string) error {
	if j.cfg.ReportsDir == "" {
		return nil
	}
	if err := os.MkdirAll(j.cfg.ReportsDir, 0o750); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	fileName := fmt.Sprintf("%s_%s.md", reportID, util.SanitizeModelForFilename(j.cfg.GeneratorModelName))
	path := filepath.Join(j.cfg.ReportsDir, fileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	j.logger.Info("report artifact written", "path", path)
	return nil
}

// markFailed records the failure reason; a logging-only best effort since
// the job error is what the caller sees.
func (j *ReviewJob) markFailed(ctx context.Context, reportID, reason string) {
	if err := j.store.UpdateReportStatus(ctx, reportID, core.ReportStatusFailed, reason); err != nil {
		j.logger.Error("failed to mark report as failed", "report_id", reportID, "error", err)
	}
}
