package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"sco-server/internal/snapshot"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS game_snapshots (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	status       TEXT NOT NULL,
	current_turn INTEGER NOT NULL,
	payload      BLOB NOT NULL,
	updated_at   TEXT NOT NULL
);`

// SQLiteStore keeps one row per game in a local SQLite file. Writes go
// through a single connection.
type SQLiteStore struct {
	db     *sql.DB
	codec  *snapshot.Codec
	logger *slog.Logger
}

func OpenSQLite(path string, codec *snapshot.Codec, logger *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;", "PRAGMA busy_timeout=5000;", sqliteSchema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialise sqlite: %w", err)
		}
	}

	logger.Info("SQLite store opened", "component", "sqlite_store", "path", path)
	return &SQLiteStore{db: db, codec: codec, logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	payload, err := s.codec.Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO game_snapshots (id, name, status, current_turn, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			current_turn = excluded.current_turn,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		snap.Game.ID, snap.Game.Name, string(snap.Game.Status), snap.CurrentTurnNumber,
		payload, snap.Game.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		s.logger.Error("Failed to save game", "component", "sqlite_store", "game_id", snap.Game.ID, "error", err)
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, gameID string) (*snapshot.Snapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM game_snapshots WHERE id = ?`, gameID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return s.codec.Decode(payload)
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM game_snapshots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
