// Package store persists recordings and keyword records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"child-speech-pipeline-service/internal/models"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite database holding parents, children, keyword
// records and persisted recordings.
type Store struct {
	db *sql.DB
}

// Open initializes the store at path, creating the schema if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS parents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS children (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS child_parents (
    child_id INTEGER NOT NULL,
    parent_id INTEGER NOT NULL,
    PRIMARY KEY (child_id, parent_id),
    FOREIGN KEY(child_id) REFERENCES children(id) ON DELETE CASCADE,
    FOREIGN KEY(parent_id) REFERENCES parents(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS keywords (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    parent_id INTEGER NOT NULL,
    keyword TEXT NOT NULL,
    audio_path TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(parent_id) REFERENCES parents(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS recordings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    child_id INTEGER NOT NULL,
    transcript TEXT NOT NULL,
    storage_path TEXT NOT NULL,
    recorded_at TIMESTAMP NOT NULL,
    FOREIGN KEY(child_id) REFERENCES children(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_recordings_child_recorded ON recordings(child_id, recorded_at);
CREATE INDEX IF NOT EXISTS idx_keywords_parent ON keywords(parent_id);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateParent inserts a parent account and returns its id.
func (s *Store) CreateParent(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO parents(name) VALUES(?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert parent: %w", err)
	}
	return res.LastInsertId()
}

// CreateChild inserts a child account and returns its id.
func (s *Store) CreateChild(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO children(name) VALUES(?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert child: %w", err)
	}
	return res.LastInsertId()
}

// LinkParent associates a parent with a child.
func (s *Store) LinkParent(ctx context.Context, childID, parentID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO child_parents(child_id, parent_id) VALUES(?, ?)`,
		childID, parentID)
	if err != nil {
		return fmt.Errorf("link parent: %w", err)
	}
	return nil
}

// ChildByID looks up a child account.
func (s *Store) ChildByID(ctx context.Context, id int64) (models.Child, error) {
	var c models.Child
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM children WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Child{}, ErrNotFound
	}
	if err != nil {
		return models.Child{}, fmt.Errorf("select child: %w", err)
	}
	return c, nil
}

// ParentByID looks up a parent account.
func (s *Store) ParentByID(ctx context.Context, id int64) (models.Parent, error) {
	var p models.Parent
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM parents WHERE id = ?`, id).Scan(&p.ID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Parent{}, ErrNotFound
	}
	if err != nil {
		return models.Parent{}, fmt.Errorf("select parent: %w", err)
	}
	return p, nil
}

// ParentsOfChild returns the ids of all parents linked to a child.
func (s *Store) ParentsOfChild(ctx context.Context, childID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT parent_id FROM child_parents WHERE child_id = ? ORDER BY parent_id`, childID)
	if err != nil {
		return nil, fmt.Errorf("select parents of child: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateKeyword registers a trigger phrase for a parent.
func (s *Store) CreateKeyword(ctx context.Context, parentID int64, keyword, audioPath string) (int64, error) {
	if keyword == "" {
		return 0, fmt.Errorf("keyword must not be empty")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO keywords(parent_id, keyword, audio_path, created_at) VALUES(?, ?, ?, ?)`,
		parentID, keyword, audioPath, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert keyword: %w", err)
	}
	return res.LastInsertId()
}

// DeleteKeyword removes a keyword owned by the given parent.
func (s *Store) DeleteKeyword(ctx context.Context, id, parentID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM keywords WHERE id = ? AND parent_id = ?`, id, parentID)
	if err != nil {
		return fmt.Errorf("delete keyword: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// KeywordsForParents returns all keyword records owned by the given
// parents, in registration order. The ordering matters: the matcher
// applies a last-match-wins rule over it.
func (s *Store) KeywordsForParents(ctx context.Context, parentIDs []int64) ([]models.KeywordRecord, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(parentIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(parentIDs))
	for i, id := range parentIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, keyword, audio_path FROM keywords
		 WHERE parent_id IN (`+placeholders+`) ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("select keywords: %w", err)
	}
	defer rows.Close()

	var kws []models.KeywordRecord
	for rows.Next() {
		var k models.KeywordRecord
		if err := rows.Scan(&k.ID, &k.ParentID, &k.Keyword, &k.AudioPath); err != nil {
			return nil, err
		}
		kws = append(kws, k)
	}
	return kws, rows.Err()
}

// SaveRecording persists a recording and returns its id. A recording with
// an empty transcript is rejected: uploads with no recognizable speech
// must never reach the store.
func (s *Store) SaveRecording(ctx context.Context, rec models.Recording) (int64, error) {
	if rec.Transcript == "" {
		return 0, fmt.Errorf("refusing to save recording without transcript")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings(child_id, transcript, storage_path, recorded_at) VALUES(?, ?, ?, ?)`,
		rec.ChildID, rec.Transcript, rec.StoragePath, rec.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert recording: %w", err)
	}
	return res.LastInsertId()
}

// RecordingsForChild lists a child's recordings, newest first.
func (s *Store) RecordingsForChild(ctx context.Context, childID int64, limit int) ([]models.Recording, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, child_id, transcript, storage_path, recorded_at FROM recordings
		 WHERE child_id = ? ORDER BY recorded_at DESC LIMIT ?`, childID, limit)
	if err != nil {
		return nil, fmt.Errorf("select recordings: %w", err)
	}
	defer rows.Close()

	var recs []models.Recording
	for rows.Next() {
		var r models.Recording
		var recorded string
		if err := rows.Scan(&r.ID, &r.ChildID, &r.Transcript, &r.StoragePath, &recorded); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, recorded); err == nil {
			r.RecordedAt = ts
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
