package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hyobinnSeo/VoiceSync/models"
)

const schema = `CREATE TABLE IF NOT EXISTS videos (
    id TEXT PRIMARY KEY,
    origin TEXT NOT NULL,
    title TEXT NOT NULL,
    source_url TEXT NOT NULL DEFAULT '',
    stream_url TEXT NOT NULL,
    direct_url TEXT NOT NULL DEFAULT '',
    storage_path TEXT NOT NULL DEFAULT '',
    filename TEXT NOT NULL,
    thumbnail TEXT NOT NULL DEFAULT '',
    uploader TEXT NOT NULL DEFAULT '',
    duration REAL NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    has_audio INTEGER NOT NULL DEFAULT 0,
    codec TEXT NOT NULL DEFAULT '',
    file_size INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
)`

// SQLiteStore keeps videos in a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at dbPath.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create videos table: %w", err)
	}
	return &SQLiteStore{db: db, path: dbPath}, nil
}

// SaveVideo upserts v by id.
func (s *SQLiteStore) SaveVideo(ctx context.Context, v *models.Video) error {
	created := v.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (
            id, origin, title, source_url, stream_url, direct_url, storage_path, filename,
            thumbnail, uploader, duration, height, has_audio, codec, file_size, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            origin = excluded.origin, title = excluded.title, source_url = excluded.source_url,
            stream_url = excluded.stream_url, direct_url = excluded.direct_url,
            storage_path = excluded.storage_path, filename = excluded.filename,
            thumbnail = excluded.thumbnail, uploader = excluded.uploader,
            duration = excluded.duration, height = excluded.height, has_audio = excluded.has_audio,
            codec = excluded.codec, file_size = excluded.file_size`,
		v.ID.String(), v.Origin, v.Title, v.SourceURL, v.StreamURL, v.DirectURL, v.StoragePath, v.Filename,
		v.Thumbnail, v.Uploader, v.Duration, v.Height, v.HasAudio, v.Codec, v.FileSize,
		created.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save video %s: %w", v.ID, err)
	}
	return nil
}

// GetVideo loads a video by id.
func (s *SQLiteStore) GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, origin, title, source_url, stream_url, direct_url, storage_path, filename,
            thumbnail, uploader, duration, height, has_audio, codec, file_size, created_at
        FROM videos WHERE id = ?`, id.String())

	var (
		v       models.Video
		rawID   string
		created string
	)
	err := row.Scan(&rawID, &v.Origin, &v.Title, &v.SourceURL, &v.StreamURL, &v.DirectURL, &v.StoragePath, &v.Filename,
		&v.Thumbnail, &v.Uploader, &v.Duration, &v.Height, &v.HasAudio, &v.Codec, &v.FileSize, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load video %s: %w", id, err)
	}
	if v.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("corrupt video id %q: %w", rawID, err)
	}
	if v.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("corrupt created_at %q: %w", created, err)
	}
	return &v, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
