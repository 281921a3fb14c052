// Package storage persists generated reports in Postgres.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/code-mentor/internal/core"
)

// ErrReportNotFound is returned when no report exists for the given ID.
var ErrReportNotFound = errors.New("report not found")

// Store defines the interface for all database operations on reports.
type Store interface {
	SaveReport(ctx context.Context, report *core.StoredReport) error
	GetReportByID(ctx context.Context, reportID string) (*core.StoredReport, error)
	ListRecentReports(ctx context.Context, limit int) ([]*core.StoredReport, error)
	UpdateReportStatus(ctx context.Context, reportID, status, failReason string) error
	SetReportContent(ctx context.Context, reportID, content string) error
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store backed by Postgres.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// SaveReport inserts a new report record.
func (s *postgresStore) SaveReport(ctx context.Context, report *core.StoredReport) error {
	query := `
		INSERT INTO reports (report_id, status, language, comment_count, content, fail_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		report.ReportID, report.Status, report.Language, report.CommentCount,
		report.Content, report.FailReason, now)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.ReportID, err)
	}
	return nil
}

// GetReportByID retrieves a single report by its public UUID.
func (s *postgresStore) GetReportByID(ctx context.Context, reportID string) (*core.StoredReport, error) {
	query := `
		SELECT id, report_id, status, language, comment_count, content, fail_reason, created_at, updated_at
		FROM reports
		WHERE report_id = $1`

	row := s.db.QueryRowContext(ctx, query, reportID)

	var r core.StoredReport
	err := row.Scan(&r.ID, &r.ReportID, &r.Status, &r.Language, &r.CommentCount,
		&r.Content, &r.FailReason, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("report %s: %w", reportID, ErrReportNotFound)
		}
		return nil, err
	}
	return &r, nil
}

// ListRecentReports retrieves the most recently created reports, newest first.
func (s *postgresStore) ListRecentReports(ctx context.Context, limit int) ([]*core.StoredReport, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, report_id, status, language, comment_count, content, fail_reason, created_at, updated_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*core.StoredReport
	for rows.Next() {
		var r core.StoredReport
		if err := rows.Scan(&r.ID, &r.ReportID, &r.Status, &r.Language, &r.CommentCount,
			&r.Content, &r.FailReason, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

// UpdateReportStatus transitions a report to a new lifecycle status. The
// failure reason is only meaningful for the failed status and may be empty.
func (s *postgresStore) UpdateReportStatus(ctx context.Context, reportID, status, failReason string) error {
	query := `UPDATE reports SET status = $2, fail_reason = $3, updated_at = $4 WHERE report_id = $1`
	res, err := s.db.ExecContext(ctx, query, reportID, status, failReason, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update status of report %s: %w", reportID, err)
	}
	return ensureRowAffected(res, reportID)
}

// SetReportContent stores the rendered Markdown of a completed report.
func (s *postgresStore) SetReportContent(ctx context.Context, reportID, content string) error {
	query := `UPDATE reports SET content = $2, updated_at = $3 WHERE report_id = $1`
	res, err := s.db.ExecContext(ctx, query, reportID, content, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set content of report %s: %w", reportID, err)
	}
	return ensureRowAffected(res, reportID)
}

func ensureRowAffected(res sql.Result, reportID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("report %s: %w", reportID, ErrReportNotFound)
	}
	return nil
}
