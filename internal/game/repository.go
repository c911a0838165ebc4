package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"sco-server/internal/snapshot"
)

// Repository is the Postgres Store. Each game is one row holding the encoded
// snapshot plus a few columns copied out of it for listing and scheduling.
type Repository struct {
	db     *sql.DB
	codec  *snapshot.Codec
	logger *slog.Logger
}

func NewRepository(db *sql.DB, codec *snapshot.Codec, logger *slog.Logger) *Repository {
	logger.Debug("Initializing game repository")

	return &Repository{
		db:     db,
		codec:  codec,
		logger: logger,
	}
}

func (r *Repository) Save(ctx context.Context, s *snapshot.Snapshot) error {
	logger := r.logger.With(
		"component", "game_repository",
		"operation", "save_game",
		"game_id", s.Game.ID,
		"turn", s.CurrentTurnNumber,
	)

	payload, err := r.codec.Encode(s)
	if err != nil {
		logger.Error("Failed to encode snapshot", "error", err)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
		INSERT INTO game_snapshots (id, name, status, current_turn, next_turn_at, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			current_turn = EXCLUDED.current_turn,
			next_turn_at = EXCLUDED.next_turn_at,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		s.Game.ID,
		s.Game.Name,
		string(s.Game.Status),
		s.CurrentTurnNumber,
		s.Game.NextTurnAt,
		payload,
		s.Game.CreatedAt,
		s.Game.UpdatedAt,
	)
	if err != nil {
		logger.Error("Failed to save game", "error", err)
		return fmt.Errorf("failed to save game: %w", err)
	}

	logger.Debug("Game saved", "bytes", len(payload))
	return nil
}

func (r *Repository) Load(ctx context.Context, gameID string) (*snapshot.Snapshot, error) {
	logger := r.logger.With("component", "game_repository", "operation", "load_game", "game_id", gameID)
	logger.Debug("Loading game")

	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM game_snapshots WHERE id = $1`, gameID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Debug("Game not found")
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to load game", "error", err)
		return nil, fmt.Errorf("failed to load game: %w", err)
	}

	s, err := r.codec.Decode(payload)
	if err != nil {
		logger.Error("Failed to decode snapshot", "error", err)
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}

func (r *Repository) List(ctx context.Context) ([]string, error) {
	logger := r.logger.With("component", "game_repository", "operation", "list_games")

	rows, err := r.db.QueryContext(ctx, `SELECT id FROM game_snapshots ORDER BY id`)
	if err != nil {
		logger.Error("Failed to query games", "error", err)
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			logger.Error("Failed to scan game id", "error", err)
			return nil, fmt.Errorf("failed to scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}

	logger.Debug("Games listed", "count", len(ids))
	return ids, nil
}
