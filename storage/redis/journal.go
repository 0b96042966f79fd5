// Package redis journals game actions to Redis streams and publishes game
// events over Redis pub/sub so other processes can follow live games.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wricardo/mcp-training/laddergame/game/service"
)

const (
	// DefaultPrefix namespaces every key written by this package
	DefaultPrefix = "laddergame"

	// DefaultStreamLength caps each per-game stream (approximate trim)
	DefaultStreamLength = 1000

	dedupeTTL = 24 * time.Hour
)

// Connect parses a redis URL or host:port address and pings the server.
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	var opts *goredis.Options
	if strings.Contains(addr, "://") {
		parsed, err := goredis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &goredis.Options{Addr: addr}
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Journal appends action records to one stream per game.
type Journal struct {
	client goredis.UniversalClient
	prefix string
	maxLen int64
}

// NewJournal creates a journal. An empty prefix uses DefaultPrefix.
func NewJournal(client goredis.UniversalClient, prefix string) *Journal {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Journal{client: client, prefix: prefix, maxLen: DefaultStreamLength}
}

// StreamKey returns the stream holding a game's actions.
func (j *Journal) StreamKey(gameID int64) string {
	return j.prefix + ":actions:" + strconv.FormatInt(gameID, 10)
}

func (j *Journal) dedupeKey(id string) string {
	return j.prefix + ":action-id:" + id
}

// Record implements service.ActionJournal. A record id seen within the last
// day is skipped.
func (j *Journal) Record(ctx context.Context, rec service.ActionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("action record id is required")
	}

	fresh, err := j.client.SetNX(ctx, j.dedupeKey(rec.ID), 1, dedupeTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve action id: %w", err)
	}
	if !fresh {
		return nil
	}

	values, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	err = j.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: j.StreamKey(rec.GameID),
		MaxLen: j.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}
	return nil
}

// Actions reads up to limit records of a game, oldest first.
func (j *Journal) Actions(ctx context.Context, gameID int64, limit int) ([]service.ActionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	msgs, err := j.client.XRangeN(ctx, j.StreamKey(gameID), "-", "+", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read actions: %w", err)
	}

	recs := make([]service.ActionRecord, 0, len(msgs))
	for _, msg := range msgs {
		rec, err := decodeRecord(msg.Values)
		if err != nil {
			return nil, fmt.Errorf("stream entry %s: %w", msg.ID, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func encodeRecord(rec service.ActionRecord) (map[string]any, error) {
	values := map[string]any{
		"id":       rec.ID,
		"game_id":  strconv.FormatInt(rec.GameID, 10),
		"turn_seq": strconv.FormatUint(rec.TurnSeq, 10),
		"actor":    strconv.FormatInt(rec.ActorUserID, 10),
		"action":   rec.Action,
		"ts":       strconv.FormatInt(rec.Timestamp.UnixMilli(), 10),
	}
	if rec.Payload != nil {
		payload, err := json.Marshal(rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		values["payload"] = string(payload)
	}
	return values, nil
}

func decodeRecord(values map[string]any) (service.ActionRecord, error) {
	str := func(key string) string {
		s, _ := values[key].(string)
		return s
	}

	var rec service.ActionRecord
	var err error
	rec.ID = str("id")
	rec.Action = str("action")
	if rec.GameID, err = strconv.ParseInt(str("game_id"), 10, 64); err != nil {
		return rec, fmt.Errorf("bad game_id: %w", err)
	}
	if rec.TurnSeq, err = strconv.ParseUint(str("turn_seq"), 10, 64); err != nil {
		return rec, fmt.Errorf("bad turn_seq: %w", err)
	}
	if rec.ActorUserID, err = strconv.ParseInt(str("actor"), 10, 64); err != nil {
		return rec, fmt.Errorf("bad actor: %w", err)
	}
	ms, err := strconv.ParseInt(str("ts"), 10, 64)
	if err != nil {
		return rec, fmt.Errorf("bad ts: %w", err)
	}
	rec.Timestamp = time.UnixMilli(ms).UTC()
	if p := str("payload"); p != "" {
		rec.Payload = json.RawMessage(p)
	}
	return rec, nil
}

var (
	_ service.ActionJournal = (*Journal)(nil)
	_ service.ActionReader  = (*Journal)(nil)
)
