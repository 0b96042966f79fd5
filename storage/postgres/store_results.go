package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
	"github.com/wricardo/mcp-training/laddergame/game/service"
)

// FinalizeGame implements service.ResultSink. The result row and the wallet
// credits are written in one transaction; a game already stored is skipped.
func (s *Store) FinalizeGame(ctx context.Context, result service.GameResult) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if result.GameID <= 0 {
		return engine.ErrInvalidGameID
	}

	players, err := json.Marshal(result.Players)
	if err != nil {
		return fmt.Errorf("failed to encode players: %w", err)
	}
	coins, err := json.Marshal(result.Coins)
	if err != nil {
		return fmt.Errorf("failed to encode coins: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
	INSERT INTO game_results (game_id, ruleset, winner_id, end_reason, players, coins, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (game_id) DO NOTHING;
	`
	tag, err := tx.Exec(ctx, q, result.GameID, result.RulesetName, result.WinnerID,
		string(result.EndReason), players, coins, result.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert game result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	for userID, amount := range result.Coins {
		if amount == 0 {
			continue
		}
		q := `
		INSERT INTO wallets (user_id, coins) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET coins = wallets.coins + EXCLUDED.coins;
		`
		if _, err := tx.Exec(ctx, q, userID, amount); err != nil {
			return fmt.Errorf("failed to credit wallet %d: %w", userID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Result returns the stored result of a game.
func (s *Store) Result(ctx context.Context, gameID int64) (service.GameResult, error) {
	if err := s.ready(ctx); err != nil {
		return service.GameResult{}, err
	}

	q := `
	SELECT game_id, ruleset, winner_id, end_reason, players, coins, finished_at
	  FROM game_results WHERE game_id = $1;
	`
	var (
		result         service.GameResult
		endReason      string
		players, coins []byte
	)
	err := s.pool.QueryRow(ctx, q, gameID).Scan(
		&result.GameID, &result.RulesetName, &result.WinnerID, &endReason, &players, &coins, &result.FinishedAt)
	if err != nil {
		if isNoRows(err) {
			return service.GameResult{}, ErrNotFound
		}
		return service.GameResult{}, fmt.Errorf("failed to read game result: %w", err)
	}

	if err := json.Unmarshal(players, &result.Players); err != nil {
		return service.GameResult{}, fmt.Errorf("failed to decode players: %w", err)
	}
	if err := json.Unmarshal(coins, &result.Coins); err != nil {
		return service.GameResult{}, fmt.Errorf("failed to decode coins: %w", err)
	}
	result.EndReason = engine.EndReason(endReason)
	return result, nil
}

// Balance returns the coins credited to a player.
func (s *Store) Balance(ctx context.Context, userID int64) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var coins int
	if err := s.pool.QueryRow(ctx, `SELECT coins FROM wallets WHERE user_id = $1`, userID).Scan(&coins); err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read wallet: %w", err)
	}
	return coins, nil
}

var (
	_ service.ResultSink = (*Store)(nil)
	_ service.Wallets    = (*Store)(nil)
)
