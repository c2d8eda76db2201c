package store

import (
	"context"
	"fmt"

	"github.com/rcliao/cardfolio/internal/model"
)

// ExportAll returns the latest live version of every snapshot, ordered by id.
func (s *SQLiteStore) ExportAll(ctx context.Context) ([]model.SavedContent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id FROM snapshots s
		WHERE s.deleted_at IS NULL
		GROUP BY s.id ORDER BY s.id`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snaps := make([]model.SavedContent, 0, len(ids))
	for _, id := range ids {
		snap, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, nil
}

// Import stores snapshots from a backup into repo. Each one becomes a new
// version under its id.
func Import(ctx context.Context, repo Repository, snaps []model.SavedContent) (int, error) {
	imported := 0
	for _, snap := range snaps {
		if err := repo.Put(ctx, snap); err != nil {
			return imported, fmt.Errorf("import %s: %w", snap.ID, err)
		}
		imported++
	}
	return imported, nil
}
