// Package handler provides the HTTP handlers for the Code-Mentor API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/code-mentor/internal/core"
	"github.com/sevigo/code-mentor/internal/report"
	"github.com/sevigo/code-mentor/internal/storage"
)

// Assembler builds a report from a snippet and its review comments.
type Assembler interface {
	Assemble(ctx context.Context, snippet core.CodeSnippet, comments []core.ReviewComment) *core.Report
}

// ReviewHandler serves the synchronous review and analyze endpoints and the
// asynchronous report endpoints.
type ReviewHandler struct {
	assembler  Assembler
	analyzer   core.Analyzer
	dispatcher core.JobDispatcher
	store      storage.Store
	logger     *slog.Logger
}

// NewReviewHandler creates a handler with all its collaborators.
func NewReviewHandler(assembler Assembler, analyzer core.Analyzer, dispatcher core.JobDispatcher, store storage.Store, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		assembler:  assembler,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
	}
}

// reviewResponse is the payload of the synchronous review endpoint.
type reviewResponse struct {
	MarkdownReport string `json:"markdown_report"`
	Success        bool   `json:"success"`
	Message        string `json:"message"`
}

// Review handles POST /api/v1/review: it assembles and renders a report in
// the request cycle. Empty comment lists are valid and produce a report
// with zero analysis sections.
func (h *ReviewHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req core.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("malformed review request", "error", err)
		writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	assembled := h.assembler.Assemble(r.Context(), req.Snippet(), req.Comments())
	content := report.Render(assembled)

	writeJSON(w, http.StatusOK, reviewResponse{
		MarkdownReport: content,
		Success:        true,
		Message:        "Review report generated successfully",
	})
}

// analyzeRequest is the payload of the analyze endpoint.
type analyzeRequest struct {
	CodeSnippet string `json:"code_snippet"`
	Query       string `json:"query"`
	Language    string `json:"language,omitempty"`
}

type analyzeResponse struct {
	Analysis string `json:"analysis"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// Analyze handles POST /api/v1/analyze: a single free-form question about a
// code snippet, answered synchronously.
func (h *ReviewHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("malformed analyze request", "error", err)
		writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	snippet := core.CodeSnippet{Code: req.CodeSnippet, Language: req.Language}
	analysis, err := h.analyzer.Analyze(r.Context(), snippet, req.Query)
	if err != nil {
		h.logger.Error("analysis failed", "error", err)
		writeError(w, http.StatusBadGateway, "analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Analysis: analysis,
		Success:  true,
		Message:  "Analysis completed successfully",
	})
}

// submitResponse acknowledges an asynchronous report submission.
type submitResponse struct {
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
}

// SubmitReport handles POST /api/v1/reports: it records a pending report
// and queues the generation job. A full queue yields 503 so clients can
// back off.
func (h *ReviewHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req core.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("malformed report request", "error", err)
		writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	event, err := core.EventFromRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored := &core.StoredReport{
		ReportID:     event.ReportID,
		Status:       core.ReportStatusPending,
		Language:     event.Snippet.FenceLanguage(),
		CommentCount: len(event.Comments),
	}
	if err := h.store.SaveReport(r.Context(), stored); err != nil {
		h.logger.Error("failed to save pending report", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record report")
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), event); err != nil {
		h.logger.Warn("report queue is full", "report_id", event.ReportID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "report queue is full, try again later")
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{
		ReportID: event.ReportID,
		Status:   core.ReportStatusPending,
	})
}

// storedReportResponse is the wire shape of a persisted report.
type storedReportResponse struct {
	ReportID     string    `json:"report_id"`
	Status       string    `json:"status"`
	Language     string    `json:"language"`
	CommentCount int       `json:"comment_count"`
	Content      string    `json:"content,omitempty"`
	FailReason   string    `json:"fail_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GetReport handles GET /api/v1/reports/{id}.
func (h *ReviewHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "id")

	stored, err := h.store.GetReportByID(r.Context(), reportID)
	if err != nil {
		if errors.Is(err, storage.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		h.logger.Error("failed to load report", "report_id", reportID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	writeJSON(w, http.StatusOK, storedReportResponse{
		ReportID:     stored.ReportID,
		Status:       stored.Status,
		Language:     stored.Language,
		CommentCount: stored.CommentCount,
		Content:      stored.Content,
		FailReason:   stored.FailReason,
		CreatedAt:    stored.CreatedAt,
		UpdatedAt:    stored.UpdatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}
