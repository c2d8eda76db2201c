package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string          `json:"db_path"`
	DBSizeBytes    int64           `json:"db_size_bytes"`
	TotalRevisions int             `json:"total_revisions"`
	LiveRevisions  int             `json:"live_revisions"`
	TotalCards     int             `json:"total_cards"`
	LocalKeys      int             `json:"local_keys"`
	Snapshots      []SnapshotStats `json:"snapshots"`
}

// SnapshotStats holds per-snapshot counts.
type SnapshotStats struct {
	ID       string `json:"id"`
	Versions int    `json:"versions"`
	Bytes    int64  `json:"bytes"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&st.TotalRevisions)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE deleted_at IS NULL`).Scan(&st.LiveRevisions)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshot_cards`).Scan(&st.TotalCards)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv`).Scan(&st.LocalKeys)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COUNT(*) AS versions, SUM(length(content)) AS bytes
		FROM snapshots WHERE deleted_at IS NULL
		GROUP BY id ORDER BY versions DESC, id`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ss SnapshotStats
		rows.Scan(&ss.ID, &ss.Versions, &ss.Bytes)
		st.Snapshots = append(st.Snapshots, ss)
	}

	return st, rows.Err()
}
