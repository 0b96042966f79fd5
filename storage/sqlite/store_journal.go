package sqlite

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
			return fmt.Errorf("encode payload: %w", err)
		}
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO game_actions (id, game_id, turn_seq, actor_user_id, action, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.GameID, int64(rec.TurnSeq), rec.ActorUserID, rec.Action, string(payload), toMillis(rec.Timestamp))
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// Actions returns up to limit records of a game, oldest first. The payload
// of each record is the raw JSON that was stored.
func (s *Store) Actions(ctx context.Context, gameID int64, limit int) ([]service.ActionRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, game_id, turn_seq, actor_user_id, action, payload, created_at
		   FROM game_actions
		  WHERE game_id = ?
		  ORDER BY created_at, rowid
		  LIMIT ?`, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var recs []service.ActionRecord
	for rows.Next() {
		var (
			rec     service.ActionRecord
			seq     int64
			payload string
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.GameID, &seq, &rec.ActorUserID, &rec.Action, &payload, &created); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		rec.TurnSeq = uint64(seq)
		rec.Timestamp = fromMillis(created)
		if payload != "" {
			rec.Payload = json.RawMessage(payload)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return recs, nil
}

var (
	_ service.ActionJournal = (*Store)(nil)
	_ service.ActionReader  = (*Store)(nil)
)
