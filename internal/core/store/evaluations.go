package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brandlens/brandlens/internal/core"
)

// EvaluationRecord is one persisted evaluation.
type EvaluationRecord struct {
	ID           int64
	Title        string
	OverallScore int
	Grade        core.Grade
	Engine       string
	EvaluatedAt  time.Time
	Report       *core.UniquenessReport
}

// SaveEvaluation persists a report and returns its row id.
func (s *Store) SaveEvaluation(ctx context.Context, report *core.UniquenessReport) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	if report == nil {
		return 0, errors.New("report is required")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("encode evaluation: %w", err)
	}

	evaluatedAt := report.EvaluatedAt
	if evaluatedAt.IsZero() {
		evaluatedAt = s.now()
	}

	result, err := s.DB.ExecContext(ctx, `
		INSERT INTO evaluations (title, overall_score, grade, report_json, evaluated_at, engine)
		VALUES (?, ?, ?, ?, ?, ?)
	`, strings.TrimSpace(report.Title), report.OverallScore, string(report.Grade), string(payload), evaluatedAt.Unix(), report.Engine)
	if err != nil {
		return 0, fmt.Errorf("store evaluation: %w", err)
	}
	return result.LastInsertId()
}

// RecentEvaluations lists the newest evaluations first. An empty title lists all
// titles; limit <= 0 defaults to 20.
func (s *Store) RecentEvaluations(ctx context.Context, title string, limit int) ([]EvaluationRecord, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, title, overall_score, grade, engine, report_json, evaluated_at FROM evaluations`
	args := []any{}
	if title = strings.TrimSpace(title); title != "" {
		query += ` WHERE title = ?`
		args = append(args, title)
	}
	query += ` ORDER BY evaluated_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []EvaluationRecord
	for rows.Next() {
		var (
			rec         EvaluationRecord
			grade       string
			payload     string
			evaluatedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.OverallScore, &grade, &rec.Engine, &payload, &evaluatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		rec.Grade = core.Grade(grade)
		rec.EvaluatedAt = time.Unix(evaluatedAt, 0).UTC()

		var report core.UniquenessReport
		if err := json.Unmarshal([]byte(payload), &report); err != nil {
			return nil, fmt.Errorf("decode evaluation %d: %w", rec.ID, err)
		}
		rec.Report = &report
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return records, nil
}
