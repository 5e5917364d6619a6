package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const runColumns = `id, source, style_preset, state, scene_count, asset_count, failure_count,
	video_path, captions_path, archive_path, error_message, started_at, finished_at`

// BeginRun inserts a new in-flight run. StartedAt defaults to now.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("begin run: id required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, source, style_preset, state, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.StylePreset, run.State, formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// UpdateState records an intermediate state transition.
func (s *Store) UpdateState(ctx context.Context, id, state string) error {
	res, err := s.exec(ctx, `UPDATE runs SET state = ? WHERE id = ?`, state, id)
	if err != nil {
		return fmt.Errorf("update run state: %w", err)
	}
	return requireRow(res, id)
}

// FinishRun stamps the run with its terminal state and counts.
func (s *Store) FinishRun(ctx context.Context, id string, summary RunSummary) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET state = ?, scene_count = ?, asset_count = ?, failure_count = ?,
			video_path = ?, captions_path = ?, archive_path = ?, error_message = ?, finished_at = ?
		WHERE id = ?`,
		summary.State, summary.SceneCount, summary.AssetCount, summary.FailureCount,
		summary.VideoPath, summary.CaptionsPath, summary.ArchivePath, summary.ErrorMessage,
		formatTime(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return requireRow(res, id)
}

// GetRun fetches a single run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run               Run
		started, finished string
	)
	err := row.Scan(
		&run.ID, &run.Source, &run.StylePreset, &run.State,
		&run.SceneCount, &run.AssetCount, &run.FailureCount,
		&run.VideoPath, &run.CaptionsPath, &run.ArchivePath, &run.ErrorMessage,
		&started, &finished,
	)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return run, nil
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
