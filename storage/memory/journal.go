package memory

import (
	"context"
	"sync"

	"github.com/wricardo/mcp-training/laddergame/game/service"
)

// DefaultJournalLimit bounds the records kept per game
const DefaultJournalLimit = 500

// Journal keeps the most recent action records of every game
type Journal struct {
	mu      sync.RWMutex
	limit   int
	records map[int64][]service.ActionRecord
}

// NewJournal creates a journal keeping at most limit records per game.
// A non-positive limit uses DefaultJournalLimit.
func NewJournal(limit int) *Journal {
	if limit <= 0 {
		limit = DefaultJournalLimit
	}
	return &Journal{
		limit:   limit,
		records: make(map[int64][]service.ActionRecord),
	}
}

// Record implements service.ActionJournal
func (j *Journal) Record(ctx context.Context, rec service.ActionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	recs := append(j.records[rec.GameID], rec)
	if len(recs) > j.limit {
		recs = recs[len(recs)-j.limit:]
	}
	j.records[rec.GameID] = recs
	return nil
}

// Actions returns a copy of up to limit records kept for a game, oldest
// first. A non-positive limit returns every kept record.
func (j *Journal) Actions(ctx context.Context, gameID int64, limit int) ([]service.ActionRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	recs := j.records[gameID]
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return append([]service.ActionRecord(nil), recs...), nil
}

var (
	_ service.ActionJournal = (*Journal)(nil)
	_ service.ActionReader  = (*Journal)(nil)
)
