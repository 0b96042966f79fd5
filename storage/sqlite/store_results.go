package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
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
		return fmt.Errorf("encode players: %w", err)
	}
	coins, err := json.Marshal(result.Coins)
	if err != nil {
		return fmt.Errorf("encode coins: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin result transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO game_results (game_id, ruleset, winner_id, end_reason, players, coins, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (game_id) DO NOTHING`,
		result.GameID, result.RulesetName, result.WinnerID, string(result.EndReason),
		string(players), string(coins), toMillis(result.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	for userID, amount := range result.Coins {
		if amount == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wallets (user_id, coins) VALUES (?, ?)
			 ON CONFLICT (user_id) DO UPDATE SET coins = coins + excluded.coins`,
			userID, amount); err != nil {
			return fmt.Errorf("credit wallet %d: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit game result: %w", err)
	}
	return nil
}

// Result returns the stored result of a game.
func (s *Store) Result(ctx context.Context, gameID int64) (service.GameResult, error) {
	if err := s.ready(ctx); err != nil {
		return service.GameResult{}, err
	}

	var (
		result           service.GameResult
		endReason        string
		players, coins   string
		finishedAtMillis int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT game_id, ruleset, winner_id, end_reason, players, coins, finished_at
		   FROM game_results WHERE game_id = ?`, gameID).
		Scan(&result.GameID, &result.RulesetName, &result.WinnerID, &endReason, &players, &coins, &finishedAtMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return service.GameResult{}, ErrNotFound
	}
	if err != nil {
		return service.GameResult{}, fmt.Errorf("read game result: %w", err)
	}

	if err := json.Unmarshal([]byte(players), &result.Players); err != nil {
		return service.GameResult{}, fmt.Errorf("decode players: %w", err)
	}
	if err := json.Unmarshal([]byte(coins), &result.Coins); err != nil {
		return service.GameResult{}, fmt.Errorf("decode coins: %w", err)
	}
	result.EndReason = engine.EndReason(endReason)
	result.FinishedAt = fromMillis(finishedAtMillis)
	return result, nil
}

// Balance returns the coins credited to a player.
func (s *Store) Balance(ctx context.Context, userID int64) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var coins int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT coins FROM wallets WHERE user_id = ?`, userID).Scan(&coins)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read wallet: %w", err)
	}
	return coins, nil
}

var (
	_ service.ResultSink = (*Store)(nil)
	_ service.Wallets    = (*Store)(nil)
)
