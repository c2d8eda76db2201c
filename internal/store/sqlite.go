package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/cardfolio/internal/model"
)

// SQLiteStore implements LocalStore and Repository using SQLite. Snapshots
// are versioned: every Put adds a revision that supersedes the previous one.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		rev_id      TEXT PRIMARY KEY,
		id          TEXT NOT NULL,
		version     INTEGER NOT NULL DEFAULT 1,
		supersedes  TEXT,
		content     TEXT NOT NULL,
		saved_at    TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		deleted_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_id ON snapshots(id, version DESC);
	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_snapshots_deleted ON snapshots(deleted_at);

	CREATE TABLE IF NOT EXISTS snapshot_cards (
		rev_id        TEXT NOT NULL REFERENCES snapshots(rev_id),
		card_id       TEXT NOT NULL,
		title         TEXT NOT NULL,
		body          TEXT NOT NULL,
		preview_image TEXT,
		updated_at    TEXT,
		PRIMARY KEY (rev_id, card_id)
	);
	CREATE INDEX IF NOT EXISTS idx_snapshot_cards_card ON snapshot_cards(card_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetItem implements LocalStore.
func (s *SQLiteStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get item %q: %w", key, err)
	}
	return value, true, nil
}

// SetItem implements LocalStore.
func (s *SQLiteStore) SetItem(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	if err != nil {
		return fmt.Errorf("set item %q: %w", key, err)
	}
	return nil
}

// RemoveItem implements LocalStore.
func (s *SQLiteStore) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove item %q: %w", key, err)
	}
	return nil
}

// Put implements Repository.
func (s *SQLiteStore) Put(ctx context.Context, snap model.SavedContent) error {
	_, err := s.PutRevision(ctx, snap)
	return err
}

// PutRevision stores snap as the next version under its id and indexes its
// cards for search.
func (s *SQLiteStore) PutRevision(ctx context.Context, snap model.SavedContent) (*model.Revision, error) {
	if snap.ID == "" {
		return nil, fmt.Errorf("put snapshot: empty id")
	}
	content, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	now := time.Now().UTC()
	revID := s.newID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var prevRev string
	var prevVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT rev_id, version FROM snapshots
		 WHERE id = ? AND deleted_at IS NULL
		 ORDER BY version DESC LIMIT 1`, snap.ID).Scan(&prevRev, &prevVersion)

	version := 1
	var supersedes *string
	if err == nil {
		version = prevVersion + 1
		supersedes = &prevRev
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (rev_id, id, version, supersedes, content, saved_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		revID, snap.ID, version, supersedes, string(content), snap.SavedAt, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	for cardID, c := range snap.Content.ProjectCards {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO snapshot_cards (rev_id, card_id, title, body, preview_image, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			revID, cardID, c.Title, model.BlocksText(c.Content), c.PreviewImage, c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert snapshot card: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	rev := &model.Revision{
		RevID:     revID,
		ID:        snap.ID,
		Version:   version,
		SavedAt:   snap.SavedAt,
		CreatedAt: now,
		Cards:     len(snap.Content.ProjectCards),
		Bytes:     len(content),
	}
	if supersedes != nil {
		rev.Supersedes = *supersedes
	}
	return rev, nil
}

// Get implements Repository.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.SavedContent, error) {
	return s.GetVersion(ctx, id, 0)
}

// GetVersion returns a specific version of a snapshot; 0 means latest.
func (s *SQLiteStore) GetVersion(ctx context.Context, id string, version int) (*model.SavedContent, error) {
	query := `SELECT content FROM snapshots WHERE id = ? AND deleted_at IS NULL
	          ORDER BY version DESC LIMIT 1`
	args := []interface{}{id}
	if version > 0 {
		query = `SELECT content FROM snapshots WHERE id = ? AND version = ? AND deleted_at IS NULL LIMIT 1`
		args = append(args, version)
	}

	var content string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var snap model.SavedContent
	if err := json.Unmarshal([]byte(content), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// History returns every live revision of a snapshot, newest first.
func (s *SQLiteStore) History(ctx context.Context, id string) ([]model.Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+revisionColumns+`
		 FROM snapshots s WHERE s.id = ? AND s.deleted_at IS NULL
		 ORDER BY s.version DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	revs, err := scanRevisions(rows)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	return revs, nil
}

// List returns the latest revision of each snapshot, newest first.
func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Revision, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+revisionColumns+`
		FROM snapshots s
		INNER JOIN (
			SELECT id, MAX(version) AS max_ver
			FROM snapshots WHERE deleted_at IS NULL
			GROUP BY id
		) latest ON s.id = latest.id AND s.version = latest.max_ver
		WHERE s.deleted_at IS NULL
		ORDER BY s.created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRevisions(rows)
}

// Rm soft-deletes (or hard-deletes) a snapshot.
func (s *SQLiteStore) Rm(ctx context.Context, p RmParams) error {
	if p.Hard {
		where := `id = ?`
		args := []interface{}{p.ID}
		if !p.AllVersions {
			var revID string
			err := s.db.QueryRowContext(ctx,
				`SELECT rev_id FROM snapshots WHERE id = ? AND deleted_at IS NULL ORDER BY version DESC LIMIT 1`,
				p.ID).Scan(&revID)
			if err != nil {
				return fmt.Errorf("snapshot %s: %w", p.ID, ErrNotFound)
			}
			where = `rev_id = ?`
			args = []interface{}{revID}
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM snapshot_cards WHERE rev_id IN (SELECT rev_id FROM snapshots WHERE `+where+`)`, args...); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE `+where, args...); err != nil {
			return err
		}
		return tx.Commit()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if p.AllVersions {
		res, err := s.db.ExecContext(ctx,
			`UPDATE snapshots SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, now, p.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("snapshot %s: %w", p.ID, ErrNotFound)
		}
		return nil
	}

	var revID string
	err := s.db.QueryRowContext(ctx,
		`SELECT rev_id FROM snapshots WHERE id = ? AND deleted_at IS NULL ORDER BY version DESC LIMIT 1`,
		p.ID).Scan(&revID)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", p.ID, ErrNotFound)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE snapshots SET deleted_at = ? WHERE rev_id = ?`, now, revID)
	return err
}

// Close implements Repository.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const revisionColumns = `s.rev_id, s.id, s.version, s.supersedes, s.saved_at, s.created_at, s.deleted_at,
		length(s.content), (SELECT COUNT(*) FROM snapshot_cards c WHERE c.rev_id = s.rev_id)`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRevision(row scanner) (model.Revision, error) {
	var r model.Revision
	var supersedes, deletedAt sql.NullString
	var createdAt string

	err := row.Scan(&r.RevID, &r.ID, &r.Version, &supersedes, &r.SavedAt, &createdAt, &deletedAt, &r.Bytes, &r.Cards)
	if err != nil {
		return r, err
	}

	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if supersedes.Valid {
		r.Supersedes = supersedes.String
	}
	if deletedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, deletedAt.String)
		r.DeletedAt = &t
	}
	return r, nil
}

func scanRevisions(rows *sql.Rows) ([]model.Revision, error) {
	var revs []model.Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}
