package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-mentor/internal/config"
	"github.com/sevigo/code-mentor/internal/core"
	"github.com/sevigo/code-mentor/internal/storage"
)

type stubAssembler struct{}

func (stubAssembler) Assemble(_ context.Context, snippet core.CodeSnippet, comments []core.ReviewComment) *core.Report {
	sections := make([]core.ReportSection, len(comments))
	for i, c := range comments {
		sections[i] = core.ReportSection{Comment: c, Rephrasing: "nice work"}
	}
	return &core.Report{Title: "Empathetic Code Review Report", Snippet: snippet, Sections: sections, Summary: "keep going"}
}

// memoryStore records status transitions and content in memory.
type memoryStore struct {
	mu         sync.Mutex
	statuses   map[string][]string
	contents   map[string]string
	failReason map[string]string
	contentErr error
}

var _ storage.Store = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{
		statuses:   make(map[string][]string),
		contents:   make(map[string]string),
		failReason: make(map[string]string),
	}
}

func (m *memoryStore) SaveReport(_ context.Context, report *core.StoredReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[report.ReportID] = append(m.statuses[report.ReportID], report.Status)
	return nil
}

func (m *memoryStore) GetReportByID(_ context.Context, reportID string) (*core.StoredReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history, ok := m.statuses[reportID]
	if !ok {
		return nil, storage.ErrReportNotFound
	}
	return &core.StoredReport{
		ReportID: reportID,
		Status:   history[len(history)-1],
		Content:  m.contents[reportID],
	}, nil
}

func (m *memoryStore) ListRecentReports(_ context.Context, _ int) ([]*core.StoredReport, error) {
	return nil, nil
}

func (m *memoryStore) UpdateReportStatus(_ context.Context, reportID, status, failReason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[reportID] = append(m.statuses[reportID], status)
	if failReason != "" {
		m.failReason[reportID] = failReason
	}
	return nil
}

func (m *memoryStore) SetReportContent(_ context.Context, reportID, content string) error {
	if m.contentErr != nil {
		return m.contentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contents[reportID] = content
	return nil
}

func testJobConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ReportsDir:         filepath.Join(t.TempDir(), "reports"),
		GeneratorModelName: "gemma3:latest",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReviewJob_Run(t *testing.T) {
	store := newMemoryStore()
	cfg := testJobConfig(t)
	job := NewReviewJob(cfg, stubAssembler{}, store, discardLogger())

	event := &core.ReviewEvent{
		ReportID: uuid.NewString(),
		Snippet:  core.CodeSnippet{Code: "def f(): pass"},
		Comments: []core.ReviewComment{{Text: "bad name"}},
	}

	require.NoError(t, job.Run(context.Background(), event))

	assert.Equal(t, []string{core.ReportStatusRunning, core.ReportStatusCompleted}, store.statuses[event.ReportID])
	assert.Contains(t, store.contents[event.ReportID], "## Code Under Review")
	assert.Contains(t, store.contents[event.ReportID], `### Analysis of Comment 1: "bad name"`)

	// Artifact file lands in the reports directory.
	matches, err := filepath.Glob(filepath.Join(cfg.ReportsDir, event.ReportID+"_*.md"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestReviewJob_RunInvalidEvent(t *testing.T) {
	store := newMemoryStore()
	job := NewReviewJob(testJobConfig(t), stubAssembler{}, store, discardLogger())

	err := job.Run(context.Background(), &core.ReviewEvent{ReportID: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event validation failed")
	assert.Empty(t, store.statuses)
}

func TestReviewJob_RunPersistFailureMarksFailed(t *testing.T) {
	store := newMemoryStore()
	store.contentErr = errors.New("db down")
	job := NewReviewJob(testJobConfig(t), stubAssembler{}, store, discardLogger())

	event := &core.ReviewEvent{ReportID: uuid.NewString()}
	err := job.Run(context.Background(), event)
	require.Error(t, err)

	history := store.statuses[event.ReportID]
	require.NotEmpty(t, history)
	assert.Equal(t, core.ReportStatusFailed, history[len(history)-1])
	assert.Equal(t, "failed to persist report content", store.failReason[event.ReportID])
}

func TestDispatcher_DispatchAndStop(t *testing.T) {
	store := newMemoryStore()
	job := NewReviewJob(testJobConfig(t), stubAssembler{}, store, discardLogger())
	d := NewDispatcher(job, 2, discardLogger())

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = uuid.NewString()
		require.NoError(t, d.Dispatch(context.Background(), &core.ReviewEvent{ReportID: ids[i]}))
	}

	// Stop drains the queue before returning.
	d.Stop()

	for _, id := range ids {
		history := store.statuses[id]
		require.NotEmpty(t, history, "report %s was never processed", id)
		assert.Equal(t, core.ReportStatusCompleted, history[len(history)-1])
	}
}
