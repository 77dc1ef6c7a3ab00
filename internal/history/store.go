package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a persistent log of played files backed by SQLite
type Store struct {
	db *sql.DB
}

// Entry represents one played file
type Entry struct {
	ID       int64
	Path     string
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
	PlayedAt time.Time
}

// Open opens (and if needed creates) the history database at dbPath
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps in-memory databases consistent across queries.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS plays (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			title TEXT,
			artist TEXT,
			album TEXT,
			duration INTEGER NOT NULL DEFAULT 0,
			played_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_played_at ON plays(played_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Add records a play and returns its id
func (s *Store) Add(ctx context.Context, e Entry) (int64, error) {
	if e.Path == "" {
		return 0, fmt.Errorf("entry has no path")
	}
	if e.PlayedAt.IsZero() {
		e.PlayedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO plays (path, title, artist, album, duration, played_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		e.Path,
		e.Title,
		e.Artist,
		e.Album,
		int64(e.Duration.Seconds()),
		e.PlayedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert play: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}
	return id, nil
}

// UpdateDetails fills in title, tags and duration once mpv reports them
func (s *Store) UpdateDetails(ctx context.Context, id int64, e Entry) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE plays
		SET title = ?, artist = ?, album = ?, duration = ?
		WHERE id = ?
	`, e.Title, e.Artist, e.Album, int64(e.Duration.Seconds()), id)
	if err != nil {
		return fmt.Errorf("failed to update play: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("play with id %d not found", id)
	}
	return nil
}

// Recent returns the most recent plays, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, path, COALESCE(title, ''), COALESCE(artist, ''), COALESCE(album, ''), duration, played_at
		FROM plays
		ORDER BY played_at DESC, id DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationSecs, playedUnix int64
		if err := rows.Scan(&e.ID, &e.Path, &e.Title, &e.Artist, &e.Album, &durationSecs, &playedUnix); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		e.Duration = time.Duration(durationSecs) * time.Second
		e.PlayedAt = time.Unix(playedUnix, 0)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plays: %w", err)
	}
	return entries, nil
}

// Count returns the number of recorded plays
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plays").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return count, nil
}

// Cleanup removes plays older than maxAge
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()

	result, err := s.db.ExecContext(ctx, "DELETE FROM plays WHERE played_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old plays: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
