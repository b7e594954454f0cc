package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iamasit07/connect4-server/internal/domain"
)

type GameRepo struct {
	DB *sql.DB
}

func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{DB: db}
}

// SaveGame stores a finished game. The upsert makes a retried save harmless.
func (r *GameRepo) SaveGame(ctx context.Context, rec domain.GameRecord) error {
	boardJSON, err := json.Marshal(rec.Board)
	if err != nil {
		return fmt.Errorf("failed to marshal board state: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO game (game_id, session_number, mode, peer_a, peer_b, winner, reason, total_moves, duration_seconds, created_at, finished_at, board_state)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (game_id) DO UPDATE SET
		winner = EXCLUDED.winner,
		reason = EXCLUDED.reason,
		total_moves = EXCLUDED.total_moves,
		duration_seconds = EXCLUDED.duration_seconds,
		finished_at = EXCLUDED.finished_at,
		board_state = EXCLUDED.board_state;
	`
	_, err = tx.ExecContext(ctx, query,
		rec.GameID, int64(rec.SessionNumber), rec.Mode, rec.PeerA, rec.PeerB, rec.Winner, rec.Reason,
		rec.TotalMoves, rec.DurationSeconds, rec.CreatedAt, rec.FinishedAt, boardJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert game record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const selectGame = `
	SELECT game_id, session_number, mode, peer_a, peer_b, winner, reason,
	       total_moves, duration_seconds, created_at, finished_at, board_state
	FROM game`

// GetGameByID returns nil, nil when the game does not exist.
func (r *GameRepo) GetGameByID(ctx context.Context, gameID string) (*domain.GameRecord, error) {
	row := r.DB.QueryRowContext(ctx, selectGame+` WHERE game_id = $1;`, gameID)

	rec, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by ID: %w", err)
	}
	return rec, nil
}

// ListRecent returns the latest finished games, newest first.
func (r *GameRepo) ListRecent(ctx context.Context, limit int) ([]domain.GameRecord, error) {
	rows, err := r.DB.QueryContext(ctx, selectGame+` ORDER BY finished_at DESC LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query game history: %w", err)
	}
	defer rows.Close()

	games := make([]domain.GameRecord, 0, limit)
	for rows.Next() {
		rec, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		games = append(games, *rec)
	}
	return games, rows.Err()
}

// DeleteOlderThan prunes games finished more than days ago.
func (r *GameRepo) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM game WHERE finished_at < NOW() - make_interval(days => $1);`, days)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old games: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(s scanner) (*domain.GameRecord, error) {
	var (
		rec       domain.GameRecord
		number    int64
		boardJSON []byte
	)
	err := s.Scan(
		&rec.GameID,
		&number,
		&rec.Mode,
		&rec.PeerA,
		&rec.PeerB,
		&rec.Winner,
		&rec.Reason,
		&rec.TotalMoves,
		&rec.DurationSeconds,
		&rec.CreatedAt,
		&rec.FinishedAt,
		&boardJSON,
	)
	if err != nil {
		return nil, err
	}
	rec.SessionNumber = uint32(number)

	if boardJSON != nil {
		if err := json.Unmarshal(boardJSON, &rec.Board); err != nil {
			return nil, fmt.Errorf("failed to unmarshal board state: %w", err)
		}
	}
	return &rec, nil
}
