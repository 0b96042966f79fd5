package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wricardo/mcp-training/laddergame/game/service"
)

// Record implements service.ActionJournal. Replaying a record with a known
// id is a no-op.
func (s *Store) Record(ctx context.Context, rec service.ActionRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("action record id is required")
	}

	var payload []byte
	if rec.Payload != nil {
		var err error
		if payload, err = json.Marshal(rec.Payload); err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
	}

	q := `
	INSERT INTO game_actions (id, game_id, turn_seq, actor_user_id, action, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := s.pool.Exec(ctx, q, rec.ID, rec.GameID, int64(rec.TurnSeq), rec.ActorUserID, rec.Action, payload, rec.Timestamp.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to insert action: %w", err)
	}
	return nil
}

// Actions returns up to limit records of a game, oldest first.
func (s *Store) Actions(ctx context.Context, gameID int64, limit int) ([]service.ActionRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	q := `
	SELECT id, game_id, turn_seq, actor_user_id, action, payload, created_at
	  FROM game_actions
	 WHERE game_id = $1
	 ORDER BY created_at, id
	 LIMIT $2;
	`
	rows, err := s.pool.Query(ctx, q, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var recs []service.ActionRecord
	for rows.Next() {
		var (
			rec     service.ActionRecord
			seq     int64
			payload []byte
		)
		if err := rows.Scan(&rec.ID, &rec.GameID, &seq, &rec.ActorUserID, &rec.Action, &payload, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		rec.TurnSeq = uint64(seq)
		if len(payload) > 0 {
			rec.Payload = json.RawMessage(payload)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate actions: %w", err)
	}
	return recs, nil
}

var (
	_ service.ActionJournal = (*Store)(nil)
	_ service.ActionReader  = (*Store)(nil)
)
