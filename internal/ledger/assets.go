package ledger

import (
	"context"
	"fmt"
)

// RecordAsset appends a scene outcome to its run.
func (s *Store) RecordAsset(ctx context.Context, outcome AssetOutcome) error {
	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = s.now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO asset_outcomes (run_id, scene_index, title, path, outcome, attempts, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.RunID, outcome.SceneIndex, outcome.Title, outcome.Path,
		string(outcome.Outcome), outcome.Attempts, outcome.ErrorMessage, formatTime(outcome.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record asset outcome: %w", err)
	}
	return nil
}

// ListAssets returns a run's scene outcomes in scene order.
func (s *Store) ListAssets(ctx context.Context, runID string) ([]AssetOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, scene_index, title, path, outcome, attempts, error_message, created_at
		FROM asset_outcomes WHERE run_id = ? ORDER BY scene_index, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []AssetOutcome
	for rows.Next() {
		var (
			item    AssetOutcome
			outcome string
			created string
		)
		if err := rows.Scan(&item.RunID, &item.SceneIndex, &item.Title, &item.Path,
			&outcome, &item.Attempts, &item.ErrorMessage, &created); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		item.Outcome = Outcome(outcome)
		item.CreatedAt = parseTime(created)
		out = append(out, item)
	}
	return out, rows.Err()
}
