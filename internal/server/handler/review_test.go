package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-mentor/internal/core"
	"github.com/sevigo/code-mentor/internal/storage"
)

type stubAssembler struct{}

func (stubAssembler) Assemble(_ context.Context, snippet core.CodeSnippet, comments []core.ReviewComment) *core.Report {
	sections := make([]core.ReportSection, len(comments))
	for i, c := range comments {
		sections[i] = core.ReportSection{Comment: c, Rephrasing: "encouraging words"}
	}
	return &core.Report{Snippet: snippet, Sections: sections, Summary: "well done"}
}

type stubAnalyzer struct {
	answer string
	err    error
}

func (s stubAnalyzer) Analyze(_ context.Context, _ core.CodeSnippet, _ string) (string, error) {
	return s.answer, s.err
}

type stubDispatcher struct {
	dispatched []*core.ReviewEvent
	full       bool
}

func (s *stubDispatcher) Dispatch(_ context.Context, event *core.ReviewEvent) error {
	if s.full {
		return errors.New("job queue is full")
	}
	s.dispatched = append(s.dispatched, event)
	return nil
}

type stubStore struct {
	saved   []*core.StoredReport
	reports map[string]*core.StoredReport
}

func newStubStore() *stubStore {
	return &stubStore{reports: make(map[string]*core.StoredReport)}
}

func (s *stubStore) SaveReport(_ context.Context, report *core.StoredReport) error {
	s.saved = append(s.saved, report)
	s.reports[report.ReportID] = report
	return nil
}

func (s *stubStore) GetReportByID(_ context.Context, reportID string) (*core.StoredReport, error) {
	r, ok := s.reports[reportID]
	if !ok {
		return nil, storage.ErrReportNotFound
	}
	return r, nil
}

func (s *stubStore) ListRecentReports(_ context.Context, _ int) ([]*core.StoredReport, error) {
	return nil, nil
}

func (s *stubStore) UpdateReportStatus(_ context.Context, _, _, _ string) error { return nil }
func (s *stubStore) SetReportContent(_ context.Context, _, _ string) error      { return nil }

func newTestHandler(dispatcher *stubDispatcher, store *stubStore) *ReviewHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewReviewHandler(stubAssembler{}, stubAnalyzer{answer: "looks fine"}, dispatcher, store, logger)
}

func newTestRouter(h *ReviewHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/review", h.Review)
	r.Post("/api/v1/analyze", h.Analyze)
	r.Post("/api/v1/reports", h.SubmitReport)
	r.Get("/api/v1/reports/{id}", h.GetReport)
	return r
}

func TestReview_Synchronous(t *testing.T) {
	router := newTestRouter(newTestHandler(&stubDispatcher{}, newStubStore()))

	body := `{"code_snippet": "def f(): pass", "review_comments": ["bad name", "no docstring"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/review", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		MarkdownReport string `json:"markdown_report"`
		Success        bool   `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.MarkdownReport, "## Code Under Review")
	assert.Contains(t, resp.MarkdownReport, `### Analysis of Comment 1: "bad name"`)
	assert.Contains(t, resp.MarkdownReport, `### Analysis of Comment 2: "no docstring"`)
}

func TestReview_EmptyCommentsIsValid(t *testing.T) {
	router := newTestRouter(newTestHandler(&stubDispatcher{}, newStubStore()))

	body := `{"code_snippet": "", "review_comments": []}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/review", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		MarkdownReport string `json:"markdown_report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotContains(t, resp.MarkdownReport, "### Analysis of Comment")
	assert.Contains(t, resp.MarkdownReport, "## Overall Summary")
}

func TestReview_MalformedJSON(t *testing.T) {
	router := newTestRouter(newTestHandler(&stubDispatcher{}, newStubStore()))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/review", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze(t *testing.T) {
	router := newTestRouter(newTestHandler(&stubDispatcher{}, newStubStore()))

	body := `{"code_snippet": "def f(): pass", "query": "is this fine?"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Analysis string `json:"analysis"`
		Success  bool   `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "looks fine", resp.Analysis)
}

func TestSubmitReport_Accepted(t *testing.T) {
	dispatcher := &stubDispatcher{}
	store := newStubStore()
	router := newTestRouter(newTestHandler(dispatcher, store))

	body := `{"code_snippet": "x = 1", "review_comments": ["bad"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		ReportID string `json:"report_id"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ReportID)
	assert.Equal(t, core.ReportStatusPending, resp.Status)

	// Pending record saved before the job was queued.
	require.Len(t, store.saved, 1)
	assert.Equal(t, resp.ReportID, store.saved[0].ReportID)
	require.Len(t, dispatcher.dispatched, 1)
	assert.Equal(t, resp.ReportID, dispatcher.dispatched[0].ReportID)
}

func TestSubmitReport_QueueFull(t *testing.T) {
	router := newTestRouter(newTestHandler(&stubDispatcher{full: true}, newStubStore()))

	body := `{"code_snippet": "x = 1", "review_comments": []}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetReport(t *testing.T) {
	store := newStubStore()
	store.reports["abc-123"] = &core.StoredReport{
		ReportID: "abc-123",
		Status:   core.ReportStatusCompleted,
		Content:  "# Empathetic Code Review Report",
	}
	router := newTestRouter(newTestHandler(&stubDispatcher{}, store))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/abc-123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ReportID string `json:"report_id"`
		Status   string `json:"status"`
		Content  string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc-123", resp.ReportID)
	assert.Equal(t, core.ReportStatusCompleted, resp.Status)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports/unknown", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
